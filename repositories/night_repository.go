package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/boardnight/server/models"
)

var (
	ErrNightNotFound            = errors.New("game night not found")
	ErrNightAlreadyEnded        = errors.New("game night has already ended")
	ErrNightJoinCodeConflict    = errors.New("join code already in use")
	ErrNightParticipantConflict = errors.New("user already joined this game night")
	ErrNightParticipantNotFound = errors.New("night participant not found")
)

type NightRepository interface {
	Create(ctx context.Context, exec SQLExecutor, night *models.GameNight) error
	GetByID(ctx context.Context, id string) (*models.GameNight, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*models.GameNight, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.GameNight, error)
	// MarkEnded flips an active night to ended and freezes its summary.
	// Returns ErrNightAlreadyEnded if the night is not active, making the
	// transition safe to race.
	MarkEnded(ctx context.Context, exec SQLExecutor, id string, winnerID string, summary *models.NightSummary, endedAt time.Time) error

	AddParticipant(ctx context.Context, exec SQLExecutor, participant *models.NightParticipant) error
	GetParticipant(ctx context.Context, nightID, userID string) (*models.NightParticipant, error)
	ListParticipants(ctx context.Context, nightID string) ([]*models.NightParticipant, error)
	CountParticipants(ctx context.Context, nightID string) (int, error)
}

type postgresNightRepository struct {
	db *sql.DB
}

func NewPostgresNightRepository(db *sql.DB) NightRepository {
	return &postgresNightRepository{db: db}
}

const nightColumns = `id, game_id, host_id, title, join_code, status, winner_id, summary, ended_at, created_at`

func (r *postgresNightRepository) Create(ctx context.Context, exec SQLExecutor, night *models.GameNight) error {
	query := `
		INSERT INTO game_nights (id, game_id, host_id, title, join_code, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := exec.QueryRowContext(ctx, query,
		night.ID,
		night.GameID,
		night.HostID,
		night.Title,
		night.JoinCode,
		night.Status,
	).Scan(&night.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "game_nights_join_code_key" {
		return ErrNightJoinCodeConflict
	}
	return err
}

func (r *postgresNightRepository) GetByID(ctx context.Context, id string) (*models.GameNight, error) {
	return r.getOne(ctx, `SELECT `+nightColumns+` FROM game_nights WHERE id = $1`, id)
}

func (r *postgresNightRepository) GetByJoinCode(ctx context.Context, joinCode string) (*models.GameNight, error) {
	return r.getOne(ctx, `SELECT `+nightColumns+` FROM game_nights WHERE join_code = $1`, joinCode)
}

func (r *postgresNightRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.GameNight, error) {
	night := &models.GameNight{}
	var summaryJSON []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&night.ID,
		&night.GameID,
		&night.HostID,
		&night.Title,
		&night.JoinCode,
		&night.Status,
		&night.WinnerID,
		&summaryJSON,
		&night.EndedAt,
		&night.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNightNotFound
		}
		return nil, fmt.Errorf("failed to scan game night: %w", err)
	}
	if len(summaryJSON) > 0 {
		night.Summary = &models.NightSummary{}
		if err := json.Unmarshal(summaryJSON, night.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary for night %s: %w", night.ID, err)
		}
	}
	return night, nil
}

func (r *postgresNightRepository) ListByParticipant(ctx context.Context, userID string) ([]*models.GameNight, error) {
	query := `
		SELECT ` + nightColumns + `
		FROM game_nights
		WHERE id IN (SELECT game_night_id FROM night_participants WHERE user_id = $1)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game nights for user %s: %w", userID, err)
	}
	defer rows.Close()

	nights := make([]*models.GameNight, 0)
	for rows.Next() {
		night := &models.GameNight{}
		var summaryJSON []byte
		if err := rows.Scan(
			&night.ID,
			&night.GameID,
			&night.HostID,
			&night.Title,
			&night.JoinCode,
			&night.Status,
			&night.WinnerID,
			&summaryJSON,
			&night.EndedAt,
			&night.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game night row: %w", err)
		}
		if len(summaryJSON) > 0 {
			night.Summary = &models.NightSummary{}
			if err := json.Unmarshal(summaryJSON, night.Summary); err != nil {
				return nil, fmt.Errorf("failed to decode summary for night %s: %w", night.ID, err)
			}
		}
		nights = append(nights, night)
	}
	return nights, rows.Err()
}

func (r *postgresNightRepository) MarkEnded(ctx context.Context, exec SQLExecutor, id string, winnerID string, summary *models.NightSummary, endedAt time.Time) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary for night %s: %w", id, err)
	}

	query := `
		UPDATE game_nights
		SET status = $1, winner_id = $2, summary = $3, ended_at = $4
		WHERE id = $5 AND status = $6`

	result, err := exec.ExecContext(ctx, query,
		models.NightStatusEnded, winnerID, summaryJSON, endedAt, id, models.NightStatusActive)
	if err != nil {
		return fmt.Errorf("failed to mark night %s ended: %w", id, err)
	}
	return checkAffectedRows(result, ErrNightAlreadyEnded)
}

func (r *postgresNightRepository) AddParticipant(ctx context.Context, exec SQLExecutor, participant *models.NightParticipant) error {
	query := `
		INSERT INTO night_participants (id, game_night_id, user_id, turn_position, is_host)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := exec.QueryRowContext(ctx, query,
		participant.ID,
		participant.GameNightID,
		participant.UserID,
		participant.TurnPosition,
		participant.IsHost,
	).Scan(&participant.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "night_participants_game_night_id_user_id_key" {
		return ErrNightParticipantConflict
	}
	return err
}

func (r *postgresNightRepository) GetParticipant(ctx context.Context, nightID, userID string) (*models.NightParticipant, error) {
	query := `
		SELECT id, game_night_id, user_id, turn_position, is_host, created_at
		FROM night_participants
		WHERE game_night_id = $1 AND user_id = $2`

	p := &models.NightParticipant{}
	err := r.db.QueryRowContext(ctx, query, nightID, userID).Scan(
		&p.ID, &p.GameNightID, &p.UserID, &p.TurnPosition, &p.IsHost, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNightParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan night participant: %w", err)
	}
	return p, nil
}

func (r *postgresNightRepository) ListParticipants(ctx context.Context, nightID string) ([]*models.NightParticipant, error) {
	query := `
		SELECT id, game_night_id, user_id, turn_position, is_host, created_at
		FROM night_participants
		WHERE game_night_id = $1
		ORDER BY turn_position ASC`

	rows, err := r.db.QueryContext(ctx, query, nightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for night %s: %w", nightID, err)
	}
	defer rows.Close()

	participants := make([]*models.NightParticipant, 0)
	for rows.Next() {
		p := &models.NightParticipant{}
		if err := rows.Scan(&p.ID, &p.GameNightID, &p.UserID, &p.TurnPosition, &p.IsHost, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan night participant row: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *postgresNightRepository) CountParticipants(ctx context.Context, nightID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM night_participants WHERE game_night_id = $1`, nightID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants for night %s: %w", nightID, err)
	}
	return count, nil
}
