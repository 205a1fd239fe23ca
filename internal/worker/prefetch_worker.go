package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomcal/internal/domain"
	"roomcal/internal/events"
	"roomcal/internal/metrics"
	"roomcal/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned when a month cannot be queued without blocking.
var ErrQueueFull = errors.New("prefetch queue is full")

// MonthRefresher rebuilds the cached data of one month.
type MonthRefresher interface {
	Refresh(ctx context.Context, year int, month time.Month) error
}

// MonthTask is one month waiting to be refreshed.
type MonthTask struct {
	Year    int
	Month   time.Month
	Attempt int
}

func (t MonthTask) String() string {
	return fmt.Sprintf("%04d-%02d", t.Year, int(t.Month))
}

// PrefetchConfig controls schedule and reach of the worker.
type PrefetchConfig struct {
	Schedule  string
	Months    int
	QueueSize int
	Retry     RetryPolicy
}

// PrefetchWorker keeps the current and upcoming months warm.
type PrefetchWorker struct {
	refresher   MonthRefresher
	events      domain.EventPublisher
	retryPolicy RetryPolicy
	queue       chan MonthTask
	schedule    string
	months      int
	now         func() time.Time
	logger      *zerolog.Logger

	mu      sync.Mutex
	pending map[string]bool
}

// NewPrefetchWorker builds a worker with sane defaults.
func NewPrefetchWorker(refresher MonthRefresher, publisher domain.EventPublisher, cfg PrefetchConfig, logger *zerolog.Logger) *PrefetchWorker {
	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "*/15 * * * *"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = models.WorkerQueueSize
	}
	if cfg.Months < 0 {
		cfg.Months = 0
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &PrefetchWorker{
		refresher:   refresher,
		events:      publisher,
		retryPolicy: retry,
		queue:       make(chan MonthTask, cfg.QueueSize),
		schedule:    cfg.Schedule,
		months:      cfg.Months,
		now:         time.Now,
		logger:      logger,
		pending:     make(map[string]bool),
	}
}

// EnqueueMonth queues a month unless it is already waiting.
func (w *PrefetchWorker) EnqueueMonth(year int, month time.Month) error {
	return w.enqueue(MonthTask{Year: year, Month: month})
}

func (w *PrefetchWorker) enqueue(task MonthTask) error {
	key := task.String()

	w.mu.Lock()
	if w.pending[key] {
		w.mu.Unlock()
		return nil
	}
	w.pending[key] = true
	w.mu.Unlock()

	select {
	case w.queue <- task:
		return nil
	default:
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()
		return ErrQueueFull
	}
}

// EnqueueUpcoming queues the current month and the configured number of
// following months.
func (w *PrefetchWorker) EnqueueUpcoming() {
	now := w.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= w.months; i++ {
		m := first.AddDate(0, i, 0)
		if err := w.EnqueueMonth(m.Year(), m.Month()); err != nil {
			w.logger.Warn().Err(err).Str("month", m.Format("2006-01")).Msg("prefetch enqueue skipped")
		}
	}
}

// Start runs the cron schedule and the queue loop until ctx is done.
func (w *PrefetchWorker) Start(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(w.schedule, w.EnqueueUpcoming); err != nil {
		return fmt.Errorf("prefetch schedule %q: %w", w.schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	w.logger.Info().Str("schedule", w.schedule).Int("months_ahead", w.months).Msg("prefetch worker started")
	defer w.logger.Info().Msg("prefetch worker stopped")

	w.EnqueueUpcoming()

	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-w.queue:
			w.processTask(ctx, task)
		}
	}
}

func (w *PrefetchWorker) processTask(ctx context.Context, task MonthTask) {
	w.mu.Lock()
	delete(w.pending, task.String())
	w.mu.Unlock()

	err := w.refresher.Refresh(ctx, task.Year, task.Month)
	if err == nil {
		metrics.IncPrefetch("ok")
		w.logger.Debug().Str("month", task.String()).Msg("month refreshed")
		if w.events == nil {
			return
		}
		if perr := w.events.PublishJSON(events.EventMonthRefreshed, events.MonthEventPayload{
			Year:     task.Year,
			Month:    int(task.Month),
			Source:   "prefetch",
			LoadedAt: w.now(),
		}); perr != nil {
			w.logger.Error().Err(perr).Msg("failed to publish refresh event")
		}
		return
	}

	w.retryOrFail(ctx, task, err)
}

func (w *PrefetchWorker) retryOrFail(ctx context.Context, task MonthTask, cause error) {
	attempt := task.Attempt + 1
	if attempt >= w.retryPolicy.MaxRetries {
		metrics.IncPrefetch("failed")
		w.logger.Error().Err(cause).Str("month", task.String()).Int("attempts", attempt).Msg("month prefetch failed")
		return
	}

	metrics.IncPrefetch("retry")
	delay := w.retryPolicy.NextDelay(attempt)
	w.logger.Warn().Err(cause).Str("month", task.String()).Dur("retry_in", delay).Msg("month prefetch will be retried")

	next := MonthTask{Year: task.Year, Month: task.Month, Attempt: attempt}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			if err := w.enqueue(next); err != nil {
				w.logger.Warn().Err(err).Str("month", next.String()).Msg("prefetch retry dropped")
			}
		}
	}()
}
