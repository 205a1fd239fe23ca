package domain

import (
	"context"
	"time"

	"roomcal/internal/calendar"
	"roomcal/internal/models"
)

// SnapshotCache stores raw upstream responses keyed by request.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// BookingSource is the read side of the booking API.
type BookingSource interface {
	ListBookings(ctx context.Context, start, end time.Time) ([]models.BookingRecord, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// FreshBookingSource can bypass its response cache.
type FreshBookingSource interface {
	BookingSource
	ListBookingsFresh(ctx context.Context, start, end time.Time) ([]models.BookingRecord, error)
}

// ProfileGateway is the user side of the booking API.
type ProfileGateway interface {
	GetUser(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateUser(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error)
	UpdatePassword(ctx context.Context, email, currentPassword, newPassword string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type CalendarService interface {
	Month(ctx context.Context, year int, month time.Month) (*calendar.MonthView, error)
	Day(ctx context.Context, day time.Time) (*calendar.DayView, error)
	Occurrences(ctx context.Context, year int, month time.Month) ([]models.Occurrence, error)
	Refresh(ctx context.Context, year int, month time.Month) error
}

type ProfileService interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error)
	ChangePassword(ctx context.Context, req models.PasswordChange) error
	CompressProfileImage(data []byte) ([]byte, error)
}
