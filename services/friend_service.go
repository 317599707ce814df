package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardnight/server/models"
	"github.com/boardnight/server/repositories"
)

type FriendService interface {
	SendRequest(ctx context.Context, requesterID, addresseeID string) (*models.Friendship, error)
	Respond(ctx context.Context, userID, friendshipID string, accept bool) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID string) ([]*models.User, error)
}

type friendService struct {
	friendRepo repositories.FriendRepository
	userRepo   repositories.UserRepository
}

func NewFriendService(friendRepo repositories.FriendRepository, userRepo repositories.UserRepository) FriendService {
	return &friendService{friendRepo: friendRepo, userRepo: userRepo}
}

func (s *friendService) SendRequest(ctx context.Context, requesterID, addresseeID string) (*models.Friendship, error) {
	if requesterID == addresseeID {
		return nil, ErrValidationFailed
	}

	if _, err := s.userRepo.GetByID(ctx, addresseeID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load addressee %s: %w", addresseeID, err)
	}

	existing, err := s.friendRepo.GetBetween(ctx, requesterID, addresseeID)
	if err != nil && !errors.Is(err, repositories.ErrFriendshipNotFound) {
		return nil, fmt.Errorf("failed to check existing friendship: %w", err)
	}
	if existing != nil && existing.Status != models.FriendStatusDeclined {
		return nil, ErrFriendRequestExists
	}

	friendship := &models.Friendship{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.FriendStatusPending,
	}
	if err := s.friendRepo.Create(ctx, friendship); err != nil {
		if errors.Is(err, repositories.ErrFriendshipConflict) {
			return nil, ErrFriendRequestExists
		}
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}
	return friendship, nil
}

func (s *friendService) Respond(ctx context.Context, userID, friendshipID string, accept bool) (*models.Friendship, error) {
	friendship, err := s.friendRepo.GetByID(ctx, friendshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrFriendshipNotFound) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("failed to load friendship %s: %w", friendshipID, err)
	}

	// Only the recipient of a pending request can answer it.
	if friendship.AddresseeID != userID {
		return nil, ErrForbiddenOperation
	}
	if friendship.Status != models.FriendStatusPending {
		return nil, ErrValidationFailed
	}

	status := models.FriendStatusDeclined
	if accept {
		status = models.FriendStatusAccepted
	}
	if err := s.friendRepo.UpdateStatus(ctx, friendshipID, status); err != nil {
		return nil, fmt.Errorf("failed to update friendship %s: %w", friendshipID, err)
	}

	friendship.Status = status
	return friendship, nil
}

func (s *friendService) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.friendRepo.ListAcceptedFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend ids for user %s: %w", userID, err)
	}

	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load friend profiles: %w", err)
	}
	for _, user := range users {
		user.PasswordHash = ""
	}
	return users, nil
}
