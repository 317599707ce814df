package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/boardnight/server/engine"
	"github.com/boardnight/server/models"
	"github.com/boardnight/server/realtime"
	"github.com/boardnight/server/repositories"
)

// joinCodeAttempts bounds retries when a generated code collides with an
// existing night.
const joinCodeAttempts = 3

// EventBroadcaster pushes realtime events to room subscribers. Satisfied by
// *realtime.Hub; tests pass nil to skip broadcasting.
type EventBroadcaster interface {
	BroadcastToRoom(roomID string, eventType string, payload interface{})
}

type NightService interface {
	Create(ctx context.Context, hostID string, input CreateNightInput) (*models.GameNight, error)
	Join(ctx context.Context, userID string, joinCode string) (*models.GameNight, error)
	UpdateScore(ctx context.Context, actorID string, nightID string, input UpdateScoreInput) (*models.NightScore, error)
	End(ctx context.Context, actorID string, nightID string, input EndNightInput) (*models.GameNight, error)
	GetByID(ctx context.Context, userID string, nightID string) (*models.GameNight, error)
	ListMine(ctx context.Context, userID string) ([]*models.GameNight, error)
}

type CreateNightInput struct {
	GameID string `json:"game_id"`
	Title  string `json:"title"`
}

type UpdateScoreInput struct {
	UserID     string `json:"user_id"`
	RoundIndex int    `json:"round_index"`
	Score      int    `json:"score"`
}

type EndNightInput struct {
	WinnerID string `json:"winner_id"`
}

type nightService struct {
	txRunner   repositories.TxRunner
	nightRepo  repositories.NightRepository
	scoreRepo  repositories.NightScoreRepository
	ratingRepo repositories.RatingRepository
	friendRepo repositories.FriendRepository
	gameRepo   repositories.GameRepository
	userRepo   repositories.UserRepository
	auditRepo  repositories.AuditRepository
	broadcast  EventBroadcaster
	logger     *slog.Logger
}

func NewNightService(
	txRunner repositories.TxRunner,
	nightRepo repositories.NightRepository,
	scoreRepo repositories.NightScoreRepository,
	ratingRepo repositories.RatingRepository,
	friendRepo repositories.FriendRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditRepository,
	broadcast EventBroadcaster,
	logger *slog.Logger,
) NightService {
	return &nightService{
		txRunner:   txRunner,
		nightRepo:  nightRepo,
		scoreRepo:  scoreRepo,
		ratingRepo: ratingRepo,
		friendRepo: friendRepo,
		gameRepo:   gameRepo,
		userRepo:   userRepo,
		auditRepo:  auditRepo,
		broadcast:  broadcast,
		logger:     logger,
	}
}

func (s *nightService) Create(ctx context.Context, hostID string, input CreateNightInput) (*models.GameNight, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.GameID == "" {
		return nil, ErrValidationFailed
	}

	if _, err := s.gameRepo.GetByID(ctx, input.GameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game %s: %w", input.GameID, err)
	}

	var night *models.GameNight
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, err
		}

		night = &models.GameNight{
			ID:       uuid.NewString(),
			GameID:   input.GameID,
			HostID:   hostID,
			Title:    title,
			JoinCode: code,
			Status:   models.NightStatusActive,
		}

		err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.nightRepo.Create(ctx, exec, night); err != nil {
				return err
			}
			host := &models.NightParticipant{
				ID:           uuid.NewString(),
				GameNightID:  night.ID,
				UserID:       hostID,
				TurnPosition: 1,
				IsHost:       true,
			}
			if err := s.nightRepo.AddParticipant(ctx, exec, host); err != nil {
				return err
			}
			if err := s.seedInitialScore(ctx, exec, night.ID, hostID); err != nil {
				return err
			}
			return writeAuditLog(ctx, s.auditRepo, exec, hostID, "night.create", "game_night", night.ID, map[string]any{
				"game_id": input.GameID,
			})
		})
		if err == nil {
			return night, nil
		}
		if errors.Is(err, repositories.ErrNightJoinCodeConflict) {
			continue
		}
		return nil, fmt.Errorf("failed to create game night: %w", err)
	}
	return nil, fmt.Errorf("failed to create game night: join code collisions exhausted %d attempts", joinCodeAttempts)
}

// seedInitialScore gives a new participant a zero score for the first round so
// the scoreboard lists everyone at the table immediately.
func (s *nightService) seedInitialScore(ctx context.Context, exec repositories.SQLExecutor, nightID, userID string) error {
	return s.scoreRepo.Upsert(ctx, exec, &models.NightScore{
		ID:          uuid.NewString(),
		GameNightID: nightID,
		UserID:      userID,
		RoundIndex:  0,
		Score:       0,
	})
}

func (s *nightService) Join(ctx context.Context, userID string, joinCode string) (*models.GameNight, error) {
	joinCode = strings.ToUpper(strings.TrimSpace(joinCode))
	if len(joinCode) != joinCodeLength {
		return nil, ErrValidationFailed
	}

	night, err := s.nightRepo.GetByJoinCode(ctx, joinCode)
	if err != nil {
		if errors.Is(err, repositories.ErrNightNotFound) {
			return nil, ErrNightNotFound
		}
		return nil, fmt.Errorf("failed to look up join code: %w", err)
	}
	if night.Status != models.NightStatusActive {
		return nil, ErrNightAlreadyEnded
	}

	if _, err := s.nightRepo.GetParticipant(ctx, night.ID, userID); err == nil {
		return nil, ErrAlreadyJoined
	} else if !errors.Is(err, repositories.ErrNightParticipantNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	friendship, err := s.friendRepo.GetBetween(ctx, userID, night.HostID)
	if err != nil {
		if errors.Is(err, repositories.ErrFriendshipNotFound) {
			return nil, ErrNotFriendsWithHost
		}
		return nil, fmt.Errorf("failed to check friendship with host: %w", err)
	}
	if friendship.Status != models.FriendStatusAccepted {
		return nil, ErrNotFriendsWithHost
	}

	count, err := s.nightRepo.CountParticipants(ctx, night.ID)
	if err != nil {
		return nil, err
	}

	participant := &models.NightParticipant{
		ID:           uuid.NewString(),
		GameNightID:  night.ID,
		UserID:       userID,
		TurnPosition: count + 1,
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.nightRepo.AddParticipant(ctx, exec, participant); err != nil {
			if errors.Is(err, repositories.ErrNightParticipantConflict) {
				return ErrAlreadyJoined
			}
			return err
		}
		if err := s.seedInitialScore(ctx, exec, night.ID, userID); err != nil {
			return err
		}
		return writeAuditLog(ctx, s.auditRepo, exec, userID, "night.join", "game_night", night.ID, nil)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to join game night %s: %w", night.ID, err)
	}

	if s.broadcast != nil {
		s.broadcast.BroadcastToRoom(night.ID, realtime.EventNightParticipantJoined, participant)
	}
	return night, nil
}

func (s *nightService) UpdateScore(ctx context.Context, actorID string, nightID string, input UpdateScoreInput) (*models.NightScore, error) {
	if input.RoundIndex < 0 {
		return nil, ErrScoreRoundOutOfRange
	}

	night, err := s.getNight(ctx, nightID)
	if err != nil {
		return nil, err
	}
	if night.Status != models.NightStatusActive {
		return nil, ErrNightAlreadyEnded
	}

	// The host can score anyone; everyone else only themselves.
	if actorID != night.HostID && actorID != input.UserID {
		return nil, ErrForbiddenOperation
	}

	if _, err := s.nightRepo.GetParticipant(ctx, nightID, input.UserID); err != nil {
		if errors.Is(err, repositories.ErrNightParticipantNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}

	score := &models.NightScore{
		ID:          uuid.NewString(),
		GameNightID: nightID,
		UserID:      input.UserID,
		RoundIndex:  input.RoundIndex,
		Score:       input.Score,
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.scoreRepo.Upsert(ctx, exec, score); err != nil {
			return err
		}
		return writeAuditLog(ctx, s.auditRepo, exec, actorID, "night.score", "game_night", nightID, map[string]any{
			"user_id":     input.UserID,
			"round_index": input.RoundIndex,
			"score":       input.Score,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record score: %w", err)
	}

	if s.broadcast != nil {
		s.broadcast.BroadcastToRoom(nightID, realtime.EventNightScoreUpdated, score)
	}
	return score, nil
}

func (s *nightService) End(ctx context.Context, actorID string, nightID string, input EndNightInput) (*models.GameNight, error) {
	night, err := s.getNight(ctx, nightID)
	if err != nil {
		return nil, err
	}
	if actorID != night.HostID {
		return nil, ErrForbiddenOperation
	}
	if night.Status != models.NightStatusActive {
		return nil, ErrNightAlreadyEnded
	}

	participants, err := s.nightRepo.ListParticipants(ctx, nightID)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepo.ListByNight(ctx, nightID)
	if err != nil {
		return nil, err
	}

	participantIDs := make([]string, len(participants))
	for i, p := range participants {
		participantIDs[i] = p.UserID
	}

	ratingRows, err := s.ratingRepo.GetByUserIDs(ctx, participantIDs)
	if err != nil {
		return nil, err
	}
	ratings := make(map[string]int, len(ratingRows))
	for id, rating := range ratingRows {
		ratings[id] = rating.GlobalRating
	}

	scoreRows := make([]engine.ScoreRow, len(scores))
	for i, sc := range scores {
		scoreRows[i] = engine.ScoreRow{UserID: sc.UserID, Score: sc.Score}
	}

	summary, err := engine.BuildNightRecap(participantIDs, scoreRows, ratings, input.WinnerID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrWinnerNotParticipant):
			return nil, ErrWinnerNotParticipant
		case errors.Is(err, engine.ErrNoParticipants), errors.Is(err, engine.ErrUnknownParticipant):
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to build night recap: %w", err)
	}

	endedAt := time.Now().UTC()
	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.nightRepo.MarkEnded(ctx, exec, nightID, input.WinnerID, summary, endedAt); err != nil {
			return err
		}
		for _, entry := range summary.Participants {
			result := &models.NightResult{
				ID:           uuid.NewString(),
				GameNightID:  nightID,
				UserID:       entry.UserID,
				TotalScore:   entry.TotalScore,
				Placement:    entry.Placement,
				RatingChange: entry.RatingChange,
			}
			if err := s.scoreRepo.InsertResult(ctx, exec, result); err != nil {
				return err
			}
			won := entry.UserID == input.WinnerID
			if err := s.ratingRepo.ApplyDelta(ctx, exec, entry.UserID, entry.RatingChange, won); err != nil {
				return err
			}
		}
		return writeAuditLog(ctx, s.auditRepo, exec, actorID, "night.end", "game_night", nightID, map[string]any{
			"winner_id": input.WinnerID,
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNightAlreadyEnded) {
			return nil, ErrNightAlreadyEnded
		}
		return nil, fmt.Errorf("failed to end game night %s: %w", nightID, err)
	}

	night.Status = models.NightStatusEnded
	night.WinnerID = &input.WinnerID
	night.Summary = summary
	night.EndedAt = &endedAt

	if s.broadcast != nil {
		s.broadcast.BroadcastToRoom(nightID, realtime.EventNightEnded, summary)
	}
	s.logger.Info("game night ended",
		"night_id", nightID,
		"winner_id", input.WinnerID,
		"participants", len(participants),
	)
	return night, nil
}

func (s *nightService) GetByID(ctx context.Context, userID string, nightID string) (*models.GameNight, error) {
	night, err := s.getNight(ctx, nightID)
	if err != nil {
		return nil, err
	}

	if _, err := s.nightRepo.GetParticipant(ctx, nightID, userID); err != nil {
		if errors.Is(err, repositories.ErrNightParticipantNotFound) {
			return nil, ErrForbiddenOperation
		}
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	var (
		game         *models.Game
		participants []*models.NightParticipant
		scores       []*models.NightScore
	)
	g.Go(func() error {
		var err error
		game, err = s.gameRepo.GetByID(gctx, night.GameID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.nightRepo.ListParticipants(gctx, nightID)
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = s.scoreRepo.ListByNight(gctx, nightID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load night details: %w", err)
	}

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load participant profiles: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		u.PasswordHash = ""
		byID[u.ID] = u
	}

	night.Game = game
	night.Participants = make([]models.NightParticipant, len(participants))
	for i, p := range participants {
		p.User = byID[p.UserID]
		night.Participants[i] = *p
	}
	night.Scores = make([]models.NightScore, len(scores))
	for i, sc := range scores {
		night.Scores[i] = *sc
	}
	return night, nil
}

func (s *nightService) ListMine(ctx context.Context, userID string) ([]*models.GameNight, error) {
	nights, err := s.nightRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nights for user %s: %w", userID, err)
	}
	return nights, nil
}

func (s *nightService) getNight(ctx context.Context, nightID string) (*models.GameNight, error) {
	night, err := s.nightRepo.GetByID(ctx, nightID)
	if err != nil {
		if errors.Is(err, repositories.ErrNightNotFound) {
			return nil, ErrNightNotFound
		}
		return nil, fmt.Errorf("failed to load game night %s: %w", nightID, err)
	}
	return night, nil
}
