package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boardnight/server/models"
)

var ErrParticipantNotFound = errors.New("tournament participant not found")

type ParticipantRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.TournamentParticipant) error
	// ListByTournament reads through exec when given one, so a reporting
	// transaction sees counters it has already incremented; a nil exec reads
	// from the pool.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.TournamentParticipant, error)
	// IncrementCounters applies relative deltas so concurrent match reports
	// touching the same participant never overwrite each other's counts.
	IncrementCounters(ctx context.Context, exec SQLExecutor, id string, wins, losses, points int, eliminated bool) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) CreateBatch(ctx context.Context, exec SQLExecutor, participants []*models.TournamentParticipant) error {
	query := `
		INSERT INTO tournament_participants (id, tournament_id, user_id, seed, wins, losses, points, is_eliminated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, p := range participants {
		if _, err := exec.ExecContext(ctx, query,
			p.ID, p.TournamentID, p.UserID, p.Seed, p.Wins, p.Losses, p.Points, p.IsEliminated,
		); err != nil {
			return fmt.Errorf("failed to insert participant %s: %w", p.UserID, err)
		}
	}
	return nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, user_id, seed, wins, losses, points, is_eliminated, created_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY seed ASC`

	if exec == nil {
		exec = r.db
	}
	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.TournamentParticipant, 0)
	for rows.Next() {
		p := &models.TournamentParticipant{}
		if err := rows.Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.Seed, &p.Wins, &p.Losses, &p.Points, &p.IsEliminated, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresParticipantRepository) IncrementCounters(ctx context.Context, exec SQLExecutor, id string, wins, losses, points int, eliminated bool) error {
	query := `
		UPDATE tournament_participants
		SET wins = wins + $1, losses = losses + $2, points = points + $3, is_eliminated = is_eliminated OR $4
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query, wins, losses, points, eliminated, id)
	if err != nil {
		return fmt.Errorf("failed to update counters for participant %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
