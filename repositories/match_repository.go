package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boardnight/server/models"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrMatchAlreadyCompleted = errors.New("match has already been completed")
)

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
	// Complete records the outcome of a pending match. Returns
	// ErrMatchAlreadyCompleted if the match is no longer pending, so
	// concurrent reports cannot double-apply.
	Complete(ctx context.Context, exec SQLExecutor, id string, winnerID string, scoreA, scoreB *int, completedAt time.Time) error
	// SetPlayerSlot places a winner into slot 1 or 2 of a downstream match.
	SetPlayerSlot(ctx context.Context, exec SQLExecutor, matchID string, slot int, playerID string) error
	// CountPending and CountPendingInRound run through the reporting
	// transaction's executor so the counts include the completion being
	// committed; a nil exec falls back to the pool for plain reads.
	CountPending(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error)
	CountPendingInRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round_number, match_number, player_a_id, player_b_id, winner_id, score_a, score_b, status, next_match_id, next_match_slot, completed_at, created_at`

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches (id, tournament_id, round_number, match_number, player_a_id, player_b_id, winner_id, status, next_match_id, next_match_slot, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, m := range matches {
		if _, err := exec.ExecContext(ctx, query,
			m.ID, m.TournamentID, m.RoundNumber, m.MatchNumber,
			m.PlayerAID, m.PlayerBID, m.WinnerID, m.Status,
			m.NextMatchID, m.NextMatchSlot, m.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to insert match %d.%d: %w", m.RoundNumber, m.MatchNumber, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.TournamentID,
		&match.RoundNumber,
		&match.MatchNumber,
		&match.PlayerAID,
		&match.PlayerBID,
		&match.WinnerID,
		&match.ScoreA,
		&match.ScoreB,
		&match.Status,
		&match.NextMatchID,
		&match.NextMatchSlot,
		&match.CompletedAt,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round_number ASC, match_number ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		if err := rows.Scan(
			&match.ID,
			&match.TournamentID,
			&match.RoundNumber,
			&match.MatchNumber,
			&match.PlayerAID,
			&match.PlayerBID,
			&match.WinnerID,
			&match.ScoreA,
			&match.ScoreB,
			&match.Status,
			&match.NextMatchID,
			&match.NextMatchSlot,
			&match.CompletedAt,
			&match.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id string, winnerID string, scoreA, scoreB *int, completedAt time.Time) error {
	query := `
		UPDATE matches
		SET winner_id = $1, score_a = $2, score_b = $3, status = $4, completed_at = $5
		WHERE id = $6 AND status = $7`

	result, err := exec.ExecContext(ctx, query,
		winnerID, scoreA, scoreB, models.MatchStatusCompleted, completedAt, id, models.MatchStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyCompleted)
}

func (r *postgresMatchRepository) SetPlayerSlot(ctx context.Context, exec SQLExecutor, matchID string, slot int, playerID string) error {
	column := "player_a_id"
	if slot == 2 {
		column = "player_b_id"
	}

	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, playerID, matchID)
	if err != nil {
		return fmt.Errorf("failed to set slot %d on match %s: %w", slot, matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountPending(ctx context.Context, exec SQLExecutor, tournamentID string) (int, error) {
	var count int
	err := r.executor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status = $2`,
		tournamentID, models.MatchStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending matches for tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) CountPendingInRound(ctx context.Context, exec SQLExecutor, tournamentID string, round int) (int, error) {
	var count int
	err := r.executor(exec).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round_number = $2 AND status = $3`,
		tournamentID, round, models.MatchStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending matches in round %d for tournament %s: %w", round, tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}
