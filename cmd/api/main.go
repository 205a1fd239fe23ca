package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomcal/internal/api"
	"roomcal/internal/bookingapi"
	"roomcal/internal/config"
	"roomcal/internal/domain"
	"roomcal/internal/events"
	"roomcal/internal/logging"
	"roomcal/internal/metrics"
	"roomcal/internal/models"
	"roomcal/internal/repository"
	"roomcal/internal/service"
	"roomcal/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, redisClient := initCache(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	client := bookingapi.NewClient(cfg.Upstream, logging.Component(&logger, "bookingapi"))
	client.UseCache(cache, snapshotTTL(cfg))

	eventBus := events.NewEventBus()

	calendarOpts, err := service.CalendarOptionsFromConfig(cfg.Calendar)
	if err != nil {
		return fmt.Errorf("calendar options: %w", err)
	}
	calendarService := service.NewCalendarService(client, eventBus, calendarOpts, logging.Component(&logger, "calendar"))
	profileService := service.NewProfileService(client, eventBus, cfg.Profile, logging.Component(&logger, "profile"))
	subscribeEvents(eventBus, calendarService, &logger)

	icsLocation, err := time.LoadLocation(cfg.Calendar.ICSTimezone)
	if err != nil {
		return fmt.Errorf("calendar.ics_timezone: %w", err)
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Dependencies{
		Calendar:    calendarService,
		Profiles:    profileService,
		Cache:       cache,
		ICSLocation: icsLocation,
		Logger:      &logger,
	})

	prefetch := worker.NewPrefetchWorker(calendarService, eventBus, worker.PrefetchConfig{
		Schedule: cfg.Calendar.RefreshCron,
		Months:   cfg.Calendar.PrefetchMonths,
		Retry:    worker.PolicyFromConfig(cfg.Upstream.Retry),
	}, logging.Component(&logger, "prefetch"))

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, httpServer, prefetch, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// initCache returns Redis behind an in-memory fallback, or memory alone when
// Redis is not configured or unreachable at startup.
func initCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.SnapshotCache, *redis.Client) {
	memory := repository.NewMemorySnapshotCache()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, using in-memory snapshot cache")
		return memory, nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = repository.Close(redisClient)
		return memory, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisSnapshotCache(redisClient)
	return repository.NewFailoverSnapshotCache(primary, memory, logging.Component(logger, "cache")), redisClient
}

func snapshotTTL(cfg *config.Config) time.Duration {
	if cfg.Upstream.CacheTTL > 0 {
		return time.Duration(cfg.Upstream.CacheTTL) * time.Second
	}
	return models.DefaultSnapshotTTL
}

func subscribeEvents(bus *events.EventBus, calendarService *service.CalendarService, logger *zerolog.Logger) {
	bus.Subscribe(events.EventMonthRefreshed, calendarService.HandleMonthRefreshed)
	bus.Subscribe(events.EventMonthLoaded, func(e *events.Event) error {
		var payload events.MonthEventPayload
		if err := e.Decode(&payload); err != nil {
			return err
		}
		logger.Debug().
			Int("year", payload.Year).
			Int("month", payload.Month).
			Int("bookings", payload.Bookings).
			Int("occurrences", payload.Occurrences).
			Str("source", payload.Source).
			Msg("calendar month loaded")
		return nil
	})
	bus.Subscribe(events.EventProfileUpdated, func(e *events.Event) error {
		var payload events.ProfileEventPayload
		if err := e.Decode(&payload); err != nil {
			return err
		}
		logger.Info().Str("user_id", payload.UserID).Msg("profile updated")
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(ctx context.Context, httpServer *api.HTTPServer, prefetch *worker.PrefetchWorker, logger *zerolog.Logger) error {
	go func() {
		if err := prefetch.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("prefetch worker stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Str("http_addr", httpServer.Addr()).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
