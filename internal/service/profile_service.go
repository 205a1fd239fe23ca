package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	"roomcal/internal/config"
	"roomcal/internal/domain"
	"roomcal/internal/events"
	"roomcal/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
)

var (
	ErrMissingUserID     = errors.New("user id is required")
	ErrPasswordMismatch  = errors.New("new passwords do not match")
	ErrPasswordRequired  = errors.New("email, current and new password are required")
	ErrImageTooLarge     = errors.New("image file is too large")
	ErrUnsupportedImage  = errors.New("unsupported image format")
	ErrProfileIncomplete = errors.New("first and last name are required")
)

type ProfileService struct {
	gateway    domain.ProfileGateway
	events     domain.EventPublisher
	uploadsURL string
	logger     *zerolog.Logger
}

var _ domain.ProfileService = (*ProfileService)(nil)

func NewProfileService(gateway domain.ProfileGateway, publisher domain.EventPublisher, cfg config.ProfileConfig, logger *zerolog.Logger) *ProfileService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ProfileService{
		gateway:    gateway,
		events:     publisher,
		uploadsURL: strings.TrimRight(cfg.UploadsBaseURL, "/"),
		logger:     logger,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	profile, err := s.gateway.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	s.resolveImage(profile)
	return profile, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, profile *models.UserProfile) (*models.UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if profile == nil || strings.TrimSpace(profile.FirstName) == "" || strings.TrimSpace(profile.LastName) == "" {
		return nil, ErrProfileIncomplete
	}

	outgoing := *profile
	outgoing.ProfileImageURL = ""
	updated, err := s.gateway.UpdateUser(ctx, userID, &outgoing)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", userID, err)
	}
	s.resolveImage(updated)

	if s.events != nil {
		if err := s.events.PublishJSON(events.EventProfileUpdated, events.ProfileEventPayload{
			UserID: userID,
			Email:  updated.Email,
		}); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish profile event")
		}
	}
	s.logger.Info().Str("user_id", userID).Msg("profile updated")
	return updated, nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, req models.PasswordChange) error {
	if strings.TrimSpace(req.Email) == "" || req.CurrentPassword == "" || req.NewPassword == "" {
		return ErrPasswordRequired
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := s.gateway.UpdatePassword(ctx, req.Email, req.CurrentPassword, req.NewPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info().Str("email", req.Email).Msg("password changed")
	return nil
}

// CompressProfileImage re-encodes an uploaded picture as a JPEG no larger
// than models.ProfileImageMaxSide on its longest side.
func (s *ProfileService) CompressProfileImage(data []byte) ([]byte, error) {
	if len(data) > models.MaxProfileImageBytes {
		return nil, ErrImageTooLarge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	// the decoder allocates whatever canvas the header declares
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > models.MaxProfileImagePixels {
		return nil, ErrImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := src.Bounds()
	w, h := scaledSize(bounds.Dx(), bounds.Dy(), models.ProfileImageMaxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; transparent pixels become white.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: models.ProfileImageQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func scaledSize(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w)
	}
	return max(1, w*maxSide/h), maxSide
}

func (s *ProfileService) resolveImage(p *models.UserProfile) {
	if p == nil || p.ProfileImage == "" || s.uploadsURL == "" {
		return
	}
	if strings.HasPrefix(p.ProfileImage, "http://") || strings.HasPrefix(p.ProfileImage, "https://") {
		p.ProfileImageURL = p.ProfileImage
		return
	}
	p.ProfileImageURL = s.uploadsURL + "/" + url.PathEscape(p.ProfileImage)
}
