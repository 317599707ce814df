package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/boardnight/server/models"
	"github.com/boardnight/server/repositories"
	"github.com/boardnight/server/storage"
)

var allowedAvatarTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

var (
	ErrUnsupportedAvatarType = errors.New("unsupported avatar content type")
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, userID string, contentType string, file io.Reader) (*models.User, error)
	GetRating(ctx context.Context, userID string) (*models.Rating, error)
}

type UpdateProfileInput struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
}

type userService struct {
	userRepo   repositories.UserRepository
	ratingRepo repositories.RatingRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	ratingRepo repositories.RatingRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		ratingRepo: ratingRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	s.populateAvatarURL(user)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, ErrValidationFailed
		}
		user.Username = username
	}
	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if displayName == "" {
			user.DisplayName = nil
		} else {
			user.DisplayName = &displayName
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserUsernameConflict) {
			return nil, ErrUserUsernameConflict
		}
		return nil, fmt.Errorf("failed to update user %s: %w", userID, err)
	}

	s.populateAvatarURL(user)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID string, contentType string, file io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageDisabled
	}
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedAvatarType
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %s: %w", userID, err)
	}

	oldKey := user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist avatar key for user %s: %w", userID, err)
	}

	// Best effort: the new avatar is already live, a stale object only wastes
	// bucket space.
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous avatar", "user_id", userID, "key", *oldKey, "error", err)
		}
	}

	user.AvatarKey = &result.Key
	s.populateAvatarURL(user)
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetRating(ctx context.Context, userID string) (*models.Rating, error) {
	rating, err := s.ratingRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRatingNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load rating for user %s: %w", userID, err)
	}
	return rating, nil
}

func (s *userService) populateAvatarURL(user *models.User) {
	if user.AvatarKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*user.AvatarKey)
		user.AvatarURL = &url
	}
}
