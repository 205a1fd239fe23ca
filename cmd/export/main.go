package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"roomcal/internal/bookingapi"
	"roomcal/internal/config"
	"roomcal/internal/export"
	"roomcal/internal/logging"
	"roomcal/internal/service"

	"github.com/rs/zerolog"
)

type options struct {
	configPath string
	month      string
	format     string
	outDir     string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", envOr("CONFIG_PATH", "configs/config.yaml"), "Path to config file")
	flag.StringVar(&opts.month, "month", time.Now().Format("2006-01"), "Month to export, YYYY-MM")
	flag.StringVar(&opts.format, "format", "xlsx", "Output format: xlsx, ics or both")
	flag.StringVar(&opts.outDir, "out", "", "Output directory (defaults to exports.path)")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(opts options) error {
	period, err := time.Parse("2006-01", opts.month)
	if err != nil {
		return fmt.Errorf("invalid -month %q: expected YYYY-MM", opts.month)
	}
	writeXLSX, writeICS, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "export-main").Logger()

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Exports.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calendarOpts, err := service.CalendarOptionsFromConfig(cfg.Calendar)
	if err != nil {
		return err
	}
	client := bookingapi.NewClient(cfg.Upstream, logging.Component(&logger, "bookingapi"))
	calendarService := service.NewCalendarService(client, nil, calendarOpts, logging.Component(&logger, "calendar"))

	year, month := period.Year(), period.Month()
	occs, err := calendarService.Occurrences(ctx, year, month)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.month, err)
	}

	if writeXLSX {
		path, err := export.SaveMonthXLSX(outDir, year, month, occs)
		if err != nil {
			return err
		}
		logExported(&logger, path, len(occs))
	}
	if writeICS {
		loc, err := time.LoadLocation(cfg.Calendar.ICSTimezone)
		if err != nil {
			return fmt.Errorf("calendar.ics_timezone: %w", err)
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		path := filepath.Join(outDir, export.FileName(year, month, "ics"))
		if err := os.WriteFile(path, []byte(export.MonthICS(year, month, occs, loc)), 0o644); err != nil {
			return fmt.Errorf("write ics: %w", err)
		}
		logExported(&logger, path, len(occs))
	}
	return nil
}

func parseFormat(format string) (xlsx, ics bool, err error) {
	switch format {
	case "xlsx":
		return true, false, nil
	case "ics":
		return false, true, nil
	case "both":
		return true, true, nil
	default:
		return false, false, fmt.Errorf("unknown -format %q", format)
	}
}

func logExported(logger *zerolog.Logger, path string, occurrences int) {
	logger.Info().Str("file_path", path).Int("occurrences", occurrences).Msg("export written")
}
