package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomcal/internal/bookingapi"
	"roomcal/internal/calendar"
	"roomcal/internal/config"
	"roomcal/internal/models"
	"roomcal/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCalendar struct {
	mock.Mock
}

func (m *mockCalendar) Month(ctx context.Context, year int, month time.Month) (*calendar.MonthView, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.MonthView), args.Error(1)
}

func (m *mockCalendar) Day(ctx context.Context, day time.Time) (*calendar.DayView, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.DayView), args.Error(1)
}

func (m *mockCalendar) Occurrences(ctx context.Context, year int, month time.Month) ([]models.Occurrence, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Occurrence), args.Error(1)
}

func (m *mockCalendar) Refresh(ctx context.Context, year int, month time.Month) error {
	return m.Called(ctx, year, month).Error(0)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *mockProfiles) UpdateProfile(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *mockProfiles) ChangePassword(ctx context.Context, req models.PasswordChange) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockProfiles) CompressProfileImage(data []byte) ([]byte, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, cal *mockCalendar, prof *mockProfiles, cache Pinger) *httptest.Server {
	t.Helper()
	srv := NewHTTPServer(config.APIConfig{}, Dependencies{Calendar: cal, Profiles: prof, Cache: cache})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestMonthEndpoint(t *testing.T) {
	cal := new(mockCalendar)
	cal.On("Month", mock.Anything, 2024, time.March).Return(&calendar.MonthView{Year: 2024, Month: 3, Total: 6}, nil)
	ts := newTestServer(t, cal, nil, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/month?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("x-request-id"))

	var view calendar.MonthView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, 6, view.Total)
}

func TestMonthEndpoint_BadParams(t *testing.T) {
	ts := newTestServer(t, new(mockCalendar), nil, nil)

	for _, q := range []string{"year=2024&month=13", "year=abc&month=1", "month=2"} {
		resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/month?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/calendar/month", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMonthEndpoint_UpstreamFailure(t *testing.T) {
	cal := new(mockCalendar)
	cal.On("Month", mock.Anything, 2024, time.April).Return(nil, errors.New("dial tcp: refused"))
	ts := newTestServer(t, cal, nil, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/month?year=2024&month=4", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "booking service unavailable", errorBody(t, resp))
}

func TestDayEndpoint(t *testing.T) {
	cal := new(mockCalendar)
	cal.On("Day", mock.Anything, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)).
		Return(&calendar.DayView{Date: "2024-03-15", Count: 2}, nil)
	ts := newTestServer(t, cal, nil, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/day?date=2024-03-15", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view calendar.DayView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, 2, view.Count)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/day?date=15.03.2024", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/day", nil)
	assert.Equal(t, "date is required", errorBody(t, resp))
}

func sampleOccurrences() []models.Occurrence {
	return []models.Occurrence{{BookingRecord: models.BookingRecord{
		ID: "b1", Title: "Standup", Status: models.StatusConfirmed,
		Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "09:30",
	}}}
}

func TestExportEndpoints(t *testing.T) {
	cal := new(mockCalendar)
	cal.On("Occurrences", mock.Anything, 2024, time.March).Return(sampleOccurrences(), nil)
	ts := newTestServer(t, cal, nil, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/export.xlsx?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2024-03.xlsx")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")))

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/calendar/export.ics?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "b1-2024-03-04")
}

func TestProfileEndpoints(t *testing.T) {
	prof := new(mockProfiles)
	prof.On("GetProfile", mock.Anything, "42").Return(&models.UserProfile{ID: "42", FirstName: "Ann"}, nil)
	prof.On("UpdateProfile", mock.Anything, "42", mock.MatchedBy(func(p *models.UserProfile) bool {
		return p.LastName == "Lee"
	})).Return(&models.UserProfile{ID: "42", FirstName: "Ann", LastName: "Lee"}, nil)
	prof.On("GetProfile", mock.Anything, "404").Return(nil, &bookingapi.StatusError{StatusCode: 404, Message: "user not found"})
	ts := newTestServer(t, new(mockCalendar), prof, nil)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/profile/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodPut, ts.URL+"/api/v1/profile/42", strings.NewReader(`{"firstName":"Ann","lastName":"Lee"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.UserProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Lee", got.LastName)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/profile/404", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "user not found", errorBody(t, resp))

	resp = doRequest(t, http.MethodPut, ts.URL+"/api/v1/profile/42", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/api/v1/profile/42", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestProfileForwardsBearerToken(t *testing.T) {
	prof := new(mockProfiles)
	prof.On("GetProfile", mock.MatchedBy(func(ctx context.Context) bool {
		token, ok := bookingapi.TokenFromContext(ctx)
		return ok && token == "user-token"
	}), "42").Return(&models.UserProfile{ID: "42"}, nil)
	ts := newTestServer(t, new(mockCalendar), prof, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/profile/42", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer user-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordEndpoint(t *testing.T) {
	prof := new(mockProfiles)
	prof.On("ChangePassword", mock.Anything, mock.MatchedBy(func(req models.PasswordChange) bool {
		return req.NewPassword == req.ConfirmPassword
	})).Return(nil)
	prof.On("ChangePassword", mock.Anything, mock.Anything).Return(service.ErrPasswordMismatch)
	ts := newTestServer(t, new(mockCalendar), prof, nil)

	resp := doRequest(t, http.MethodPut, ts.URL+"/api/v1/profile/password",
		strings.NewReader(`{"email":"a@b.c","currentPassword":"old","newPassword":"n","confirmPassword":"n"}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodPut, ts.URL+"/api/v1/profile/password",
		strings.NewReader(`{"email":"a@b.c","currentPassword":"old","newPassword":"n","confirmPassword":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, service.ErrPasswordMismatch.Error(), errorBody(t, resp))
}

func TestProfileImageEndpoint(t *testing.T) {
	prof := new(mockProfiles)
	prof.On("CompressProfileImage", []byte("png-bytes")).Return([]byte("jpeg-bytes"), nil)
	prof.On("CompressProfileImage", []byte("huge")).Return(nil, service.ErrImageTooLarge)
	ts := newTestServer(t, new(mockCalendar), prof, nil)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/profile/image", strings.NewReader("png-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "jpeg-bytes", string(raw))

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/v1/profile/image", strings.NewReader("huge"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/v1/profile/image", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t, new(mockCalendar), nil, stubPinger{})
	assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/healthz", nil).StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, http.MethodGet, ts.URL+"/readyz", nil).StatusCode)

	down := newTestServer(t, new(mockCalendar), nil, stubPinger{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, http.MethodGet, down.URL+"/readyz", nil).StatusCode)
}
