package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomcal/internal/bookingapi"
	"roomcal/internal/export"
	"roomcal/internal/models"
)

func (s *HTTPServer) handleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	view, err := s.deps.Calendar.Month(r.Context(), year, month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	view, err := s.deps.Calendar.Day(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	occs, err := s.deps.Calendar.Occurrences(r.Context(), year, month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMonthXLSX(&buf, year, month, occs); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.FileName(year, month, "xlsx"), buf.Bytes())
}

func (s *HTTPServer) handleExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	year, month, ok := parseYearMonth(w, r)
	if !ok {
		return
	}

	occs, err := s.deps.Calendar.Occurrences(r.Context(), year, month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	body := export.MonthICS(year, month, occs, s.deps.ICSLocation)
	writeAttachment(w, "text/calendar; charset=utf-8", export.FileName(year, month, "ics"), []byte(body))
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/profile/"
	userID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, prefix))
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}
	ctx := withUserToken(r)

	switch r.Method {
	case http.MethodGet:
		profile, err := s.deps.Profiles.GetProfile(ctx, userID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var body models.UserProfile
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.deps.Profiles.UpdateProfile(ctx, userID, &body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body models.PasswordChange
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Profiles.ChangePassword(withUserToken(r), body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *HTTPServer) handleProfileImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, models.MaxProfileImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "image body is required")
		return
	}

	out, err := s.deps.Profiles.CompressProfileImage(data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// parseYearMonth reads ?year=&month=; both absent means the current month.
func parseYearMonth(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	q := r.URL.Query()
	rawYear := strings.TrimSpace(q.Get("year"))
	rawMonth := strings.TrimSpace(q.Get("month"))
	if rawYear == "" && rawMonth == "" {
		now := time.Now()
		return now.Year(), now.Month(), true
	}

	year, err := strconv.Atoi(rawYear)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month; expected 1-12")
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return decoder.Decode(out)
}

// withUserToken forwards the caller's bearer token to the booking API.
func withUserToken(r *http.Request) context.Context {
	ctx := r.Context()
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && strings.TrimSpace(token) != "" {
		return bookingapi.ContextWithToken(ctx, strings.TrimSpace(token))
	}
	return ctx
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
