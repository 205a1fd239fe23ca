package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"roomcal/internal/calendar"
	"roomcal/internal/config"
	"roomcal/internal/domain"
	"roomcal/internal/events"
	"roomcal/internal/metrics"
	"roomcal/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidMonth = errors.New("invalid year or month")

// CalendarOptions are the tunables of CalendarService.
type CalendarOptions struct {
	WeekStart               time.Weekday
	MaxOccurrencesPerSeries int
	ViewCacheTTL            time.Duration
}

// CalendarOptionsFromConfig converts the calendar config block.
func CalendarOptionsFromConfig(cfg config.CalendarConfig) (CalendarOptions, error) {
	weekStart, err := calendar.ParseWeekStart(cfg.WeekStart)
	if err != nil {
		return CalendarOptions{}, err
	}
	return CalendarOptions{
		WeekStart:               weekStart,
		MaxOccurrencesPerSeries: cfg.MaxOccurrencesPerSeries,
		ViewCacheTTL:            time.Duration(cfg.ViewCacheTTL) * time.Second,
	}, nil
}

type monthEntry struct {
	bookings int
	result   calendar.ExpandResult
	expires  time.Time
}

type CalendarService struct {
	source domain.BookingSource
	events domain.EventPublisher
	opts   CalendarOptions
	logger *zerolog.Logger
	now    func() time.Time

	flight singleflight.Group
	mu     sync.Mutex
	months map[string]monthEntry
}

var _ domain.CalendarService = (*CalendarService)(nil)

func NewCalendarService(source domain.BookingSource, publisher domain.EventPublisher, opts CalendarOptions, logger *zerolog.Logger) *CalendarService {
	if opts.MaxOccurrencesPerSeries <= 0 {
		opts.MaxOccurrencesPerSeries = models.DefaultMaxOccurrencesPerSeries
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CalendarService{
		source: source,
		events: publisher,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		months: make(map[string]monthEntry),
	}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func validMonth(year int, month time.Month) error {
	if year < 1 || year > 9999 || month < time.January || month > time.December {
		return fmt.Errorf("%w: %d-%d", ErrInvalidMonth, year, int(month))
	}
	return nil
}

// Month builds the grid and per-day groups of one month.
func (s *CalendarService) Month(ctx context.Context, year int, month time.Month) (*calendar.MonthView, error) {
	entry, err := s.load(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return calendar.BuildMonthView(year, month, s.opts.WeekStart, entry.result, s.now()), nil
}

// Day builds the slot schedule of the day's month.
func (s *CalendarService) Day(ctx context.Context, day time.Time) (*calendar.DayView, error) {
	day = models.CivilDate(day)
	entry, err := s.load(ctx, day.Year(), day.Month())
	if err != nil {
		return nil, err
	}
	return calendar.BuildDayView(day, entry.result.Occurrences), nil
}

// Occurrences returns the expanded occurrences of a month.
func (s *CalendarService) Occurrences(ctx context.Context, year int, month time.Month) ([]models.Occurrence, error) {
	entry, err := s.load(ctx, year, month)
	if err != nil {
		return nil, err
	}
	out := make([]models.Occurrence, len(entry.result.Occurrences))
	copy(out, entry.result.Occurrences)
	return out, nil
}

// Refresh re-reads the month from upstream past the response cache, which
// the client re-populates, and drops the cached view so the next read
// rebuilds it.
func (s *CalendarService) Refresh(ctx context.Context, year int, month time.Month) error {
	if err := validMonth(year, month); err != nil {
		return err
	}
	if _, err := s.fetch(ctx, year, month, true); err != nil {
		return err
	}
	s.Invalidate(year, month)
	return nil
}

// Invalidate drops the cached view of a month.
func (s *CalendarService) Invalidate(year int, month time.Month) {
	s.mu.Lock()
	delete(s.months, monthKey(year, month))
	s.mu.Unlock()
}

// HandleMonthRefreshed invalidates the month named by a
// calendar_month_refreshed event.
func (s *CalendarService) HandleMonthRefreshed(e *events.Event) error {
	var payload events.MonthEventPayload
	if err := e.Decode(&payload); err != nil {
		return err
	}
	s.Invalidate(payload.Year, time.Month(payload.Month))
	return nil
}

const (
	sourceLoad    = "load"
	sourceRefresh = "refresh"
)

func (s *CalendarService) load(ctx context.Context, year int, month time.Month) (monthEntry, error) {
	if err := validMonth(year, month); err != nil {
		return monthEntry{}, err
	}
	key := monthKey(year, month)

	if entry, ok := s.cached(key); ok {
		return entry, nil
	}

	// The shared fetch outlives any single caller; the upstream client timeout
	// bounds it. Request values such as the bearer token are kept.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		entry, err := s.fetch(fetchCtx, year, month, false)
		if err != nil {
			return monthEntry{}, err
		}
		s.store(year, month, entry)
		return entry, nil
	})
	select {
	case <-ctx.Done():
		return monthEntry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return monthEntry{}, res.Err
		}
		return res.Val.(monthEntry), nil
	}
}

func (s *CalendarService) cached(key string) (monthEntry, bool) {
	if s.opts.ViewCacheTTL <= 0 {
		return monthEntry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.months[key]
	if !ok || !s.now().Before(entry.expires) {
		return monthEntry{}, false
	}
	return entry, true
}

func (s *CalendarService) store(year int, month time.Month, entry monthEntry) {
	if s.opts.ViewCacheTTL <= 0 {
		return
	}
	entry.expires = s.now().Add(s.opts.ViewCacheTTL)
	s.mu.Lock()
	s.months[monthKey(year, month)] = entry
	s.mu.Unlock()
}

func (s *CalendarService) fetch(ctx context.Context, year int, month time.Month, fresh bool) (monthEntry, error) {
	first, last := calendar.MonthRange(year, month)

	var (
		bookings []models.BookingRecord
		rooms    []models.Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if fs, ok := s.source.(domain.FreshBookingSource); ok && fresh {
			bookings, err = fs.ListBookingsFresh(gctx, first, last)
		} else {
			bookings, err = s.source.ListBookings(gctx, first, last)
		}
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rooms, err = s.source.ListRooms(gctx); err != nil {
			// names fall back to what the bookings carry
			s.logger.Warn().Err(err).Msg("room list unavailable")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return monthEntry{}, err
	}

	NewRoomLookup(rooms).Apply(bookings)

	result := calendar.Expand(bookings, calendar.ExpandConfig{
		RangeStart:              first,
		RangeEnd:                last,
		MaxOccurrencesPerSeries: s.opts.MaxOccurrencesPerSeries,
	})
	metrics.AddExpansion(len(result.Occurrences), len(result.TruncatedSeries))
	if len(result.TruncatedSeries) > 0 {
		s.logger.Warn().
			Strs("series", result.TruncatedSeries).
			Int("cap", s.opts.MaxOccurrencesPerSeries).
			Str("month", monthKey(year, month)).
			Msg("recurring series truncated")
	}

	source := sourceLoad
	if fresh {
		source = sourceRefresh
	}
	s.publish(year, month, len(bookings), result, source)

	return monthEntry{bookings: len(bookings), result: result}, nil
}

func (s *CalendarService) publish(year int, month time.Month, bookings int, result calendar.ExpandResult, source string) {
	if s.events == nil {
		return
	}
	err := s.events.PublishJSON(events.EventMonthLoaded, events.MonthEventPayload{
		Year:            year,
		Month:           int(month),
		Bookings:        bookings,
		Occurrences:     len(result.Occurrences),
		TruncatedSeries: result.TruncatedSeries,
		Source:          source,
		LoadedAt:        s.now(),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to publish month event")
	}
}
