package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/boardnight/server/engine"
	"github.com/boardnight/server/models"
	"github.com/boardnight/server/realtime"
	"github.com/boardnight/server/repositories"
)

type TournamentService interface {
	Create(ctx context.Context, hostID string, input CreateTournamentInput) (*models.Tournament, error)
	ReportMatch(ctx context.Context, actorID string, tournamentID string, matchID string, input ReportMatchInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	ListMine(ctx context.Context, hostID string) ([]*models.Tournament, error)
}

type CreateTournamentInput struct {
	GameID         string                  `json:"game_id"`
	Title          string                  `json:"title"`
	Format         models.TournamentFormat `json:"format"`
	ParticipantIDs []string                `json:"participant_ids"`
}

type ReportMatchInput struct {
	WinnerID string `json:"winner_id"`
	ScoreA   *int   `json:"score_a"`
	ScoreB   *int   `json:"score_b"`
}

type tournamentService struct {
	txRunner        repositories.TxRunner
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	ratingRepo      repositories.RatingRepository
	gameRepo        repositories.GameRepository
	userRepo        repositories.UserRepository
	auditRepo       repositories.AuditRepository
	broadcast       EventBroadcaster
	logger          *slog.Logger

	// rng seeds brackets; guarded because *rand.Rand is not safe for
	// concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	ratingRepo repositories.RatingRepository,
	gameRepo repositories.GameRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditRepository,
	broadcast EventBroadcaster,
	logger *slog.Logger,
	rng *rand.Rand,
) TournamentService {
	return &tournamentService{
		txRunner:        txRunner,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		ratingRepo:      ratingRepo,
		gameRepo:        gameRepo,
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		broadcast:       broadcast,
		logger:          logger,
		rng:             rng,
	}
}

func (s *tournamentService) Create(ctx context.Context, hostID string, input CreateTournamentInput) (*models.Tournament, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || input.GameID == "" {
		return nil, ErrValidationFailed
	}
	if !input.Format.Valid() {
		return nil, ErrInvalidFormat
	}
	if len(input.ParticipantIDs) < 2 {
		return nil, ErrNotEnoughParticipants
	}
	seen := make(map[string]bool, len(input.ParticipantIDs))
	for _, id := range input.ParticipantIDs {
		if seen[id] {
			return nil, ErrDuplicateParticipants
		}
		seen[id] = true
	}

	if _, err := s.gameRepo.GetByID(ctx, input.GameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game %s: %w", input.GameID, err)
	}
	users, err := s.userRepo.ListByIDs(ctx, input.ParticipantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(users) != len(input.ParticipantIDs) {
		return nil, ErrUserNotFound
	}

	var bracket *engine.Bracket
	switch input.Format {
	case models.FormatSingleElimination:
		s.rngMu.Lock()
		bracket, err = engine.GenerateSingleElimination(input.ParticipantIDs, s.rng)
		s.rngMu.Unlock()
	case models.FormatRoundRobin:
		bracket, err = engine.GenerateRoundRobin(input.ParticipantIDs)
	}
	if err != nil {
		if errors.Is(err, engine.ErrTooFewParticipants) {
			return nil, ErrNotEnoughParticipants
		}
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}

	tournament := &models.Tournament{
		ID:           uuid.NewString(),
		GameID:       input.GameID,
		HostID:       hostID,
		Title:        title,
		Format:       input.Format,
		Status:       models.TournamentStatusActive,
		CurrentRound: 1,
		TotalRounds:  bracket.TotalRounds,
	}

	participants := make([]*models.TournamentParticipant, len(input.ParticipantIDs))
	for i, userID := range input.ParticipantIDs {
		participants[i] = &models.TournamentParticipant{
			ID:           uuid.NewString(),
			TournamentID: tournament.ID,
			UserID:       userID,
			Seed:         i + 1,
		}
	}

	matches := s.materializeBracket(tournament, bracket)

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, tournament); err != nil {
			return err
		}
		if err := s.participantRepo.CreateBatch(ctx, exec, participants); err != nil {
			return err
		}
		if err := s.matchRepo.CreateBatch(ctx, exec, matches); err != nil {
			return err
		}
		return writeAuditLog(ctx, s.auditRepo, exec, hostID, "tournament.create", "tournament", tournament.ID, map[string]any{
			"format":       string(input.Format),
			"participants": len(input.ParticipantIDs),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.Info("tournament created",
		"tournament_id", tournament.ID,
		"format", tournament.Format,
		"participants", len(participants),
		"total_rounds", tournament.TotalRounds,
	)

	s.attach(tournament, participants, matches)
	return tournament, nil
}

// materializeBracket turns generated pairings into persistable matches,
// resolving every winner's downstream match to a pre-assigned id so
// advancement needs no positional arithmetic at report time.
func (s *tournamentService) materializeBracket(tournament *models.Tournament, bracket *engine.Bracket) []*models.Match {
	now := time.Now().UTC()

	type position struct{ round, number int }
	ids := make(map[position]string, len(bracket.Matches))
	for _, bm := range bracket.Matches {
		ids[position{bm.Round, bm.MatchNumber}] = uuid.NewString()
	}

	matches := make([]*models.Match, 0, len(bracket.Matches))
	for _, bm := range bracket.Matches {
		match := &models.Match{
			ID:           ids[position{bm.Round, bm.MatchNumber}],
			TournamentID: tournament.ID,
			RoundNumber:  bm.Round,
			MatchNumber:  bm.MatchNumber,
			PlayerAID:    bm.PlayerAID,
			PlayerBID:    bm.PlayerBID,
			WinnerID:     bm.WinnerID,
			Status:       models.MatchStatusPending,
		}
		if bm.IsBye {
			match.Status = models.MatchStatusCompleted
			completedAt := now
			match.CompletedAt = &completedAt
		}
		if nr, nn, slot, ok := engine.NextMatchPosition(bm.Round, bm.MatchNumber, bracket.TotalRounds); ok {
			nextID := ids[position{nr, nn}]
			nextSlot := slot
			match.NextMatchID = &nextID
			match.NextMatchSlot = &nextSlot
		}
		matches = append(matches, match)
	}
	return matches
}

func (s *tournamentService) ReportMatch(ctx context.Context, actorID string, tournamentID string, matchID string, input ReportMatchInput) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.HostID != actorID {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentStatusActive {
		return nil, ErrTournamentAlreadyEnded
	}

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if match.TournamentID != tournamentID {
		return nil, ErrMatchNotFound
	}
	if match.Status != models.MatchStatusPending {
		return nil, ErrMatchAlreadyCompleted
	}
	if match.PlayerAID == nil || match.PlayerBID == nil {
		return nil, ErrMatchNotReady
	}

	var loserID string
	switch input.WinnerID {
	case *match.PlayerAID:
		loserID = *match.PlayerBID
	case *match.PlayerBID:
		loserID = *match.PlayerAID
	default:
		return nil, ErrWinnerNotInMatch
	}

	ratingRows, err := s.ratingRepo.GetByUserIDs(ctx, []string{input.WinnerID, loserID})
	if err != nil {
		return nil, err
	}
	winnerRating := engine.DefaultRating
	loserRating := engine.DefaultRating
	if r, ok := ratingRows[input.WinnerID]; ok {
		winnerRating = r.GlobalRating
	}
	if r, ok := ratingRows[loserID]; ok {
		loserRating = r.GlobalRating
	}
	winnerDelta := engine.RatingDelta(float64(winnerRating), float64(loserRating), true, engine.KFactorTournament)
	loserDelta := engine.RatingDelta(float64(loserRating), float64(winnerRating), false, engine.KFactorTournament)

	// Completion and round advancement are decided inside the transaction,
	// under a lock on the tournament row, so two reports racing on the last
	// pending matches cannot both conclude the tournament is still running.
	var (
		finished   bool
		standings  []models.Standing
		championID string
	)
	endedAt := time.Now().UTC()

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if locked.Status != models.TournamentStatusActive {
			return repositories.ErrTournamentAlreadyEnded
		}

		if err := s.matchRepo.Complete(ctx, exec, match.ID, input.WinnerID, input.ScoreA, input.ScoreB, endedAt); err != nil {
			return err
		}

		participants, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if err := engine.ApplyMatchResult(participants, input.WinnerID, &loserID, locked.Format); err != nil {
			return ErrWinnerNotParticipant
		}
		for _, p := range participants {
			switch p.UserID {
			case input.WinnerID:
				if err := s.participantRepo.IncrementCounters(ctx, exec, p.ID, 1, 0, 3, false); err != nil {
					return err
				}
			case loserID:
				eliminated := locked.Format == models.FormatSingleElimination
				if err := s.participantRepo.IncrementCounters(ctx, exec, p.ID, 0, 1, 0, eliminated); err != nil {
					return err
				}
			}
		}

		if err := s.ratingRepo.ApplyDelta(ctx, exec, input.WinnerID, winnerDelta, true); err != nil {
			return err
		}
		if err := s.ratingRepo.ApplyDelta(ctx, exec, loserID, loserDelta, false); err != nil {
			return err
		}
		if match.NextMatchID != nil && match.NextMatchSlot != nil {
			if err := s.matchRepo.SetPlayerSlot(ctx, exec, *match.NextMatchID, *match.NextMatchSlot, input.WinnerID); err != nil {
				return err
			}
		}

		pending, err := s.matchRepo.CountPending(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if pending == 0 {
			finished = true
			standings = engine.ComputeStandings(participants)
			championID = standings[0].UserID
			if err := s.tournamentRepo.MarkEnded(ctx, exec, tournamentID, championID, standings, endedAt); err != nil {
				return err
			}
		} else if match.RoundNumber == locked.CurrentRound && match.RoundNumber < locked.TotalRounds {
			pendingInRound, err := s.matchRepo.CountPendingInRound(ctx, exec, tournamentID, match.RoundNumber)
			if err != nil {
				return err
			}
			if pendingInRound == 0 {
				if err := s.tournamentRepo.UpdateCurrentRound(ctx, exec, tournamentID, locked.CurrentRound+1); err != nil {
					return err
				}
			}
		}

		return writeAuditLog(ctx, s.auditRepo, exec, actorID, "tournament.report", "tournament", tournamentID, map[string]any{
			"match_id":  match.ID,
			"winner_id": input.WinnerID,
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMatchAlreadyCompleted) {
			return nil, ErrMatchAlreadyCompleted
		}
		if errors.Is(err, repositories.ErrTournamentAlreadyEnded) {
			return nil, ErrTournamentAlreadyEnded
		}
		if errors.Is(err, ErrWinnerNotParticipant) {
			return nil, ErrWinnerNotParticipant
		}
		return nil, fmt.Errorf("failed to report match %s: %w", matchID, err)
	}

	if s.broadcast != nil {
		s.broadcast.BroadcastToRoom(tournamentID, realtime.EventMatchReported, map[string]any{
			"match_id":  match.ID,
			"winner_id": input.WinnerID,
		})
	}

	if finished {
		if s.broadcast != nil {
			s.broadcast.BroadcastToRoom(tournamentID, realtime.EventTournamentEnded, standings)
		}
		s.logger.Info("tournament ended",
			"tournament_id", tournamentID,
			"champion_id", championID,
		)
	}

	return s.GetByID(ctx, tournamentID)
}

func (s *tournamentService) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var (
		game         *models.Game
		participants []*models.TournamentParticipant
		matches      []*models.Match
	)
	g.Go(func() error {
		var err error
		game, err = s.gameRepo.GetByID(gctx, tournament.GameID)
		return err
	})
	g.Go(func() error {
		var err error
		participants, err = s.participantRepo.ListByTournament(gctx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament details: %w", err)
	}

	tournament.Game = game
	s.attach(tournament, participants, matches)
	return tournament, nil
}

func (s *tournamentService) ListMine(ctx context.Context, hostID string) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for host %s: %w", hostID, err)
	}
	return tournaments, nil
}

func (s *tournamentService) getTournament(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) attach(tournament *models.Tournament, participants []*models.TournamentParticipant, matches []*models.Match) {
	tournament.Participants = make([]models.TournamentParticipant, len(participants))
	for i, p := range participants {
		tournament.Participants[i] = *p
	}
	tournament.Matches = make([]models.Match, len(matches))
	for i, m := range matches {
		tournament.Matches[i] = *m
	}
}
