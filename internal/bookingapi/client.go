package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roomcal/internal/config"
	"roomcal/internal/domain"
	"roomcal/internal/metrics"
	"roomcal/internal/models"
	"roomcal/internal/worker"

	"github.com/rs/zerolog"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx answer from the booking API.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("booking api %s: http %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("booking api %s: http %d", e.Endpoint, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the booking REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retry      worker.RetryPolicy
	logger     *zerolog.Logger

	cache    domain.SnapshotCache
	cacheTTL time.Duration
}

type tokenKey struct{}

// ContextWithToken overrides the configured bearer token for calls made with ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by ContextWithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// NewClient constructs a client from the upstream config block.
func NewClient(cfg config.UpstreamConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		retry:      worker.PolicyFromConfig(cfg.Retry),
		logger:     logger,
	}
}

// UseCache configures snapshot caching for GET endpoints.
func (c *Client) UseCache(cache domain.SnapshotCache, ttl time.Duration) {
	c.cache = cache
	c.cacheTTL = ttl
}

// ListBookings returns the bookings the API reports for [start, end].
func (c *Client) ListBookings(ctx context.Context, start, end time.Time) ([]models.BookingRecord, error) {
	return c.listBookings(ctx, start, end, true)
}

// ListBookingsFresh skips the cache read but stores the fresh answer.
func (c *Client) ListBookingsFresh(ctx context.Context, start, end time.Time) ([]models.BookingRecord, error) {
	return c.listBookings(ctx, start, end, false)
}

func (c *Client) listBookings(ctx context.Context, start, end time.Time, useCache bool) ([]models.BookingRecord, error) {
	q := url.Values{}
	q.Set("startDate", models.DateKey(start))
	q.Set("endDate", models.DateKey(end))
	endpoint := c.baseURL + "/bookings?" + q.Encode()
	cacheKey := fmt.Sprintf("bookings:%s:%s", q.Get("startDate"), q.Get("endDate"))

	body, err := c.getCached(ctx, "bookings", endpoint, cacheKey, useCache)
	if err != nil {
		return nil, err
	}

	dtos, err := decodeBookingList(body)
	if err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}

	records := make([]models.BookingRecord, 0, len(dtos))
	for _, dto := range dtos {
		rec, err := dto.toRecord()
		if err != nil {
			c.logger.Warn().Err(err).Str("booking_id", dto.id()).Msg("dropping booking with unreadable date")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListRooms returns all rooms with their buildings and sub-rooms.
func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	body, err := c.getCached(ctx, "rooms", c.baseURL+"/rooms", "rooms", true)
	if err != nil {
		return nil, err
	}

	var dtos []roomDTO
	if err := decodeList(body, "rooms", &dtos); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}

	rooms := make([]models.Room, 0, len(dtos))
	for _, dto := range dtos {
		rooms = append(rooms, dto.toRoom())
	}
	return rooms, nil
}

// GetUser fetches a user profile.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(userID)
	body, err := c.send(ctx, "users", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// UpdateUser replaces a user profile and returns the stored version.
func (c *Client) UpdateUser(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(userID)
	body, err := c.send(ctx, "users", http.MethodPut, endpoint, profile)
	if err != nil {
		return nil, err
	}
	return decodeUser(body)
}

// UpdatePassword changes the password of the account identified by email.
func (c *Client) UpdatePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	payload := map[string]string{
		"email":           email,
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	_, err := c.send(ctx, "update_password", http.MethodPut, c.baseURL+"/auth/update-password", payload)
	return err
}

func (c *Client) getCached(ctx context.Context, name, endpoint, cacheKey string, readCache bool) ([]byte, error) {
	if readCache {
		if body, ok := c.readCache(ctx, cacheKey); ok {
			return body, nil
		}
	}

	body, err := c.send(ctx, name, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, body)
	return body, nil
}

func (c *Client) readCache(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("snapshot cache read failed")
		return nil, false
	}
	return body, ok
}

func (c *Client) writeCache(ctx context.Context, key string, body []byte) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("snapshot cache write failed")
	}
}

// send performs one logical call with retries and returns the response body.
func (c *Client) send(ctx context.Context, name, method, endpoint string, payload any) ([]byte, error) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}

	var body []byte
	started := time.Now()
	err := c.retry.Do(ctx, retryable, func(ctx context.Context) error {
		var reqBody io.Reader
		if data != nil {
			reqBody = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.addHeaders(ctx, req)

		body, err = c.do(req, name)
		return err
	})
	metrics.ObserveUpstream(name, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(req *http.Request, name string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: name, Message: errorMessage(raw)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) addHeaders(ctx context.Context, req *http.Request) {
	token := c.token
	if override, ok := TokenFromContext(ctx); ok {
		token = override
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
