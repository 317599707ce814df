package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/boardnight/server/models"
	"github.com/boardnight/server/repositories"
	"github.com/boardnight/server/storage"
)

type GameService interface {
	Create(ctx context.Context, input CreateGameInput) (*models.Game, error)
	GetByID(ctx context.Context, id string) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
}

type CreateGameInput struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

type gameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader) GameService {
	return &gameService{gameRepo: gameRepo, uploader: uploader}
}

func (s *gameService) Create(ctx context.Context, input CreateGameInput) (*models.Game, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrValidationFailed
	}
	if input.MinPlayers < 1 || input.MaxPlayers < input.MinPlayers {
		return nil, ErrValidationFailed
	}

	game := &models.Game{
		ID:         uuid.NewString(),
		Name:       name,
		MinPlayers: input.MinPlayers,
		MaxPlayers: input.MaxPlayers,
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			return nil, ErrGameNameConflict
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

func (s *gameService) GetByID(ctx context.Context, id string) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	s.populateCoverURL(game)
	return game, nil
}

func (s *gameService) List(ctx context.Context) ([]*models.Game, error) {
	games, err := s.gameRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	for _, game := range games {
		s.populateCoverURL(game)
	}
	return games, nil
}

func (s *gameService) populateCoverURL(game *models.Game) {
	if game.CoverKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*game.CoverKey)
		game.CoverURL = &url
	}
}
