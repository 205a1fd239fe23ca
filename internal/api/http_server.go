package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roomcal/internal/bookingapi"
	"roomcal/internal/config"
	"roomcal/internal/domain"
	"roomcal/internal/service"

	"github.com/rs/zerolog"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the HTTP API serves.
type Dependencies struct {
	Calendar    domain.CalendarService
	Profiles    domain.ProfileService
	Cache       Pinger
	ICSLocation *time.Location
	Logger      *zerolog.Logger
}

// HTTPServer exposes the calendar and profile API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Dependencies
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Dependencies) *HTTPServer {
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if deps.ICSLocation == nil {
		deps.ICSLocation = time.UTC
	}

	srv := &HTTPServer{cfg: cfg, deps: deps, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/readyz", srv.handleReady)
	mux.HandleFunc("/api/v1/calendar/month", srv.handleMonth)
	mux.HandleFunc("/api/v1/calendar/day", srv.handleDay)
	mux.HandleFunc("/api/v1/calendar/export.xlsx", srv.handleExportXLSX)
	mux.HandleFunc("/api/v1/calendar/export.ics", srv.handleExportICS)
	mux.HandleFunc("/api/v1/profile/password", srv.handlePassword)
	mux.HandleFunc("/api/v1/profile/image", srv.handleProfileImage)
	mux.HandleFunc("/api/v1/profile/", srv.handleProfile)

	handler := Chain(mux, RequestID, AccessLog(logger), srv.auth.Wrap)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Cache.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeServiceError maps service and upstream failures onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *bookingapi.StatusError
	switch {
	case errors.Is(err, service.ErrInvalidMonth),
		errors.Is(err, service.ErrMissingUserID),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrProfileIncomplete),
		errors.Is(err, service.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500:
		msg := upstream.Message
		if msg == "" {
			msg = http.StatusText(upstream.StatusCode)
		}
		writeError(w, upstream.StatusCode, msg)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("upstream failure")
		writeError(w, http.StatusBadGateway, "booking service unavailable")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
