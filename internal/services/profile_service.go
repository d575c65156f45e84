package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turulko-oleksandr/cinema-api/internal/logging"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/repositories"
	"github.com/turulko-oleksandr/cinema-api/internal/storage"
)

// MaxAvatarSize is the largest accepted avatar upload in bytes.
const MaxAvatarSize = 5 << 20

var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Gender      *string
	DateOfBirth *time.Time
	Info        *string
}

// ProfileView is a profile with a temporary avatar link.
type ProfileView struct {
	*models.UserProfile
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ProfileService manages user profiles and avatars.
type ProfileService struct {
	profiles repositories.ProfileRepository
	users    repositories.UserRepository
	store    storage.ObjectStore
}

// NewProfileService creates a new ProfileService. store may be nil, in which
// case avatar operations fail with ErrStorageUnavailable.
func NewProfileService(profiles repositories.ProfileRepository, users repositories.UserRepository, store storage.ObjectStore) *ProfileService {
	return &ProfileService{profiles: profiles, users: users, store: store}
}

func (s *ProfileService) load(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.UserProfile{UserID: userID}, nil
	}
	return profile, err
}

// GetProfile returns the user's profile, empty if never edited.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

// UpdateProfile applies the non-nil fields of upd.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*ProfileView, error) {
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		profile.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Gender != nil {
		profile.Gender = *upd.Gender
	}
	if upd.DateOfBirth != nil {
		if upd.DateOfBirth.After(time.Now()) {
			return nil, fmt.Errorf("date of birth is in the future: %w", ErrInvalidState)
		}
		dob := *upd.DateOfBirth
		profile.DateOfBirth = &dob
	}
	if upd.Info != nil {
		profile.Info = *upd.Info
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	return s.view(ctx, profile)
}

// UploadAvatar stores a new avatar and deletes the previous one.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename, contentType string, size int64, body io.Reader) (*ProfileView, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q: %w", contentType, ErrInvalidFile)
	}
	if size <= 0 || size > MaxAvatarSize {
		return nil, fmt.Errorf("avatar must be at most 5MB: %w", ErrInvalidFile)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return nil, fmt.Errorf("unsupported file name %q: %w", filename, ErrInvalidFile)
	}

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := "avatars/" + uuid.New().String() + ext
	if err := s.store.Upload(ctx, key, body, contentType, size); err != nil {
		return nil, err
	}

	previous := profile.Avatar
	profile.Avatar = key
	if err := s.profiles.Save(ctx, profile); err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	if previous != "" {
		s.deleteObject(ctx, previous)
	}
	return s.view(ctx, profile)
}

// DeleteAvatar removes the user's avatar if there is one.
func (s *ProfileService) DeleteAvatar(ctx context.Context, userID string) error {
	if s.store == nil {
		return ErrStorageUnavailable
	}
	profile, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if profile.Avatar == "" {
		return nil
	}
	previous := profile.Avatar
	profile.Avatar = ""
	if err := s.profiles.Save(ctx, profile); err != nil {
		return err
	}
	s.deleteObject(ctx, previous)
	return nil
}

func (s *ProfileService) deleteObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logging.FromContext(ctx).Warn("failed to delete avatar object", "key", key, "error", err)
	}
}

func (s *ProfileService) view(ctx context.Context, profile *models.UserProfile) (*ProfileView, error) {
	v := &ProfileView{UserProfile: profile}
	if user, err := s.users.GetByID(ctx, profile.UserID); err == nil {
		v.Email = user.Email
	}
	if profile.Avatar != "" && s.store != nil {
		u, err := s.store.PresignedURL(ctx, profile.Avatar)
		if err != nil {
			logging.FromContext(ctx).Warn("failed to presign avatar", "key", profile.Avatar, "error", err)
		} else {
			v.AvatarURL = u
		}
	}
	return v, nil
}
