package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boardnight/server/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentAlreadyEnded = errors.New("tournament has already ended")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	// GetByIDForUpdate loads the tournament through the transaction's
	// executor and takes a row lock, so concurrent match reports on the same
	// tournament serialize instead of deciding completion from stale reads.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	ListByHost(ctx context.Context, hostID string) ([]*models.Tournament, error)
	UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id string, round int) error
	// MarkEnded flips an active tournament to ended with its champion and a
	// frozen standings snapshot. Returns ErrTournamentAlreadyEnded if the
	// tournament is not active.
	MarkEnded(ctx context.Context, exec SQLExecutor, id string, championID string, standings []models.Standing, endedAt time.Time) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, game_id, host_id, title, format, status, current_round, total_rounds, champion_id, standings, ended_at, created_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, game_id, host_id, title, format, status, current_round, total_rounds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := exec.QueryRowContext(ctx, query,
		tournament.ID,
		tournament.GameID,
		tournament.HostID,
		tournament.Title,
		tournament.Format,
		tournament.Status,
		tournament.CurrentRound,
		tournament.TotalRounds,
	).Scan(&tournament.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanOne(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresTournamentRepository) scanOne(row *sql.Row, id string) (*models.Tournament, error) {
	tournament := &models.Tournament{}
	var standingsJSON []byte
	err := row.Scan(
		&tournament.ID,
		&tournament.GameID,
		&tournament.HostID,
		&tournament.Title,
		&tournament.Format,
		&tournament.Status,
		&tournament.CurrentRound,
		&tournament.TotalRounds,
		&tournament.ChampionID,
		&standingsJSON,
		&tournament.EndedAt,
		&tournament.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %s: %w", id, err)
	}
	if len(standingsJSON) > 0 {
		if err := json.Unmarshal(standingsJSON, &tournament.Standings); err != nil {
			return nil, fmt.Errorf("failed to decode standings for tournament %s: %w", id, err)
		}
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) ListByHost(ctx context.Context, hostID string) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE host_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for host %s: %w", hostID, err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		tournament := &models.Tournament{}
		var standingsJSON []byte
		if err := rows.Scan(
			&tournament.ID,
			&tournament.GameID,
			&tournament.HostID,
			&tournament.Title,
			&tournament.Format,
			&tournament.Status,
			&tournament.CurrentRound,
			&tournament.TotalRounds,
			&tournament.ChampionID,
			&standingsJSON,
			&tournament.EndedAt,
			&tournament.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		if len(standingsJSON) > 0 {
			if err := json.Unmarshal(standingsJSON, &tournament.Standings); err != nil {
				return nil, fmt.Errorf("failed to decode standings for tournament %s: %w", tournament.ID, err)
			}
		}
		tournaments = append(tournaments, tournament)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id string, round int) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE tournaments SET current_round = $1 WHERE id = $2`, round, id)
	if err != nil {
		return fmt.Errorf("failed to update current round for tournament %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkEnded(ctx context.Context, exec SQLExecutor, id string, championID string, standings []models.Standing, endedAt time.Time) error {
	standingsJSON, err := json.Marshal(standings)
	if err != nil {
		return fmt.Errorf("failed to encode standings for tournament %s: %w", id, err)
	}

	query := `
		UPDATE tournaments
		SET status = $1, champion_id = $2, standings = $3, ended_at = $4
		WHERE id = $5 AND status = $6`

	result, err := exec.ExecContext(ctx, query,
		models.TournamentStatusEnded, championID, standingsJSON, endedAt, id, models.TournamentStatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark tournament %s ended: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentAlreadyEnded)
}
