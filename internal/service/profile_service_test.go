package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"roomcal/internal/config"
	"roomcal/internal/events"
	"roomcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProfileGateway is a mock of domain.ProfileGateway.
type MockProfileGateway struct {
	mock.Mock
}

func (m *MockProfileGateway) GetUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileGateway) UpdateUser(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error) {
	args := m.Called(ctx, userID, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *MockProfileGateway) UpdatePassword(ctx context.Context, email, currentPassword, newPassword string) error {
	args := m.Called(ctx, email, currentPassword, newPassword)
	return args.Error(0)
}

func newTestProfiles(gw *MockProfileGateway, bus *events.EventBus) *ProfileService {
	return NewProfileService(gw, bus, config.ProfileConfig{UploadsBaseURL: "https://api.example.com/uploads/"}, nil)
}

func TestProfileService_GetProfile(t *testing.T) {
	gw := new(MockProfileGateway)
	ctx := context.Background()
	gw.On("GetUser", ctx, "42").Return(&models.UserProfile{ID: "42", FirstName: "Ann", ProfileImage: "ann me.jpg"}, nil)

	svc := newTestProfiles(gw, nil)
	p, err := svc.GetProfile(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/uploads/ann%20me.jpg", p.ProfileImageURL)

	_, err = svc.GetProfile(ctx, " ")
	assert.ErrorIs(t, err, ErrMissingUserID)
	gw.AssertExpectations(t)
}

func TestProfileService_UpdateProfile(t *testing.T) {
	gw := new(MockProfileGateway)
	ctx := context.Background()
	bus := events.NewEventBus()

	var published events.ProfileEventPayload
	bus.Subscribe(events.EventProfileUpdated, func(e *events.Event) error {
		return e.Decode(&published)
	})

	in := &models.UserProfile{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", ProfileImageURL: "stale"}
	gw.On("UpdateUser", ctx, "42", mock.MatchedBy(func(p *models.UserProfile) bool {
		return p.LastName == "Lee" && p.ProfileImageURL == ""
	})).Return(&models.UserProfile{ID: "42", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}, nil)

	svc := newTestProfiles(gw, bus)
	out, err := svc.UpdateProfile(ctx, "42", in)
	require.NoError(t, err)
	assert.Equal(t, "42", out.ID)
	assert.Equal(t, "stale", in.ProfileImageURL)
	assert.Equal(t, "42", published.UserID)
	assert.Equal(t, "ann@example.com", published.Email)

	_, err = svc.UpdateProfile(ctx, "42", &models.UserProfile{FirstName: "Ann"})
	assert.ErrorIs(t, err, ErrProfileIncomplete)
	gw.AssertExpectations(t)
}

func TestProfileService_UpdateProfileUpstreamError(t *testing.T) {
	gw := new(MockProfileGateway)
	ctx := context.Background()
	upstream := errors.New("503")
	gw.On("UpdateUser", ctx, "42", mock.Anything).Return(nil, upstream)

	svc := newTestProfiles(gw, nil)
	_, err := svc.UpdateProfile(ctx, "42", &models.UserProfile{FirstName: "Ann", LastName: "Lee"})
	assert.ErrorIs(t, err, upstream)
}

func TestProfileService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Mismatch", func(t *testing.T) {
		gw := new(MockProfileGateway)
		err := newTestProfiles(gw, nil).ChangePassword(ctx, models.PasswordChange{
			Email: "a@b.c", CurrentPassword: "old", NewPassword: "new1", ConfirmPassword: "new2",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
		gw.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingFields", func(t *testing.T) {
		err := newTestProfiles(new(MockProfileGateway), nil).ChangePassword(ctx, models.PasswordChange{NewPassword: "x", ConfirmPassword: "x"})
		assert.ErrorIs(t, err, ErrPasswordRequired)
	})

	t.Run("Proxied", func(t *testing.T) {
		gw := new(MockProfileGateway)
		gw.On("UpdatePassword", ctx, "a@b.c", "old", "new").Return(nil).Once()
		err := newTestProfiles(gw, nil).ChangePassword(ctx, models.PasswordChange{
			Email: "a@b.c", CurrentPassword: "old", NewPassword: "new", ConfirmPassword: "new",
		})
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressProfileImage(t *testing.T) {
	svc := newTestProfiles(new(MockProfileGateway), nil)

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"Landscape", 1600, 800, 800, 400},
		{"Portrait", 600, 1200, 400, 800},
		{"Small", 120, 90, 120, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.CompressProfileImage(encodePNG(t, tt.w, tt.h))
			require.NoError(t, err)

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestCompressProfileImage_Rejects(t *testing.T) {
	svc := newTestProfiles(new(MockProfileGateway), nil)

	_, err := svc.CompressProfileImage(make([]byte, models.MaxProfileImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = svc.CompressProfileImage([]byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	// a few bytes on the wire, 64 MP once decoded
	_, err = svc.CompressProfileImage(pngWithDeclaredSize(t, 8000, 8000))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

// pngWithDeclaredSize encodes a 1x1 PNG and rewrites its IHDR to claim w x h.
func pngWithDeclaredSize(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc at 29
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
