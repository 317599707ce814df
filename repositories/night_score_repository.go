package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boardnight/server/models"
)

type NightScoreRepository interface {
	// Upsert writes one (participant, round) score, overwriting any previous
	// value for the same round.
	Upsert(ctx context.Context, exec SQLExecutor, score *models.NightScore) error
	ListByNight(ctx context.Context, nightID string) ([]*models.NightScore, error)

	InsertResult(ctx context.Context, exec SQLExecutor, result *models.NightResult) error
	ListResultsByNight(ctx context.Context, nightID string) ([]*models.NightResult, error)
}

type postgresNightScoreRepository struct {
	db *sql.DB
}

func NewPostgresNightScoreRepository(db *sql.DB) NightScoreRepository {
	return &postgresNightScoreRepository{db: db}
}

func (r *postgresNightScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, score *models.NightScore) error {
	query := `
		INSERT INTO night_scores (id, game_night_id, user_id, round_index, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_night_id, user_id, round_index)
		DO UPDATE SET score = EXCLUDED.score, updated_at = now()
		RETURNING updated_at`

	err := exec.QueryRowContext(ctx, query,
		score.ID,
		score.GameNightID,
		score.UserID,
		score.RoundIndex,
		score.Score,
	).Scan(&score.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert score for night %s user %s: %w", score.GameNightID, score.UserID, err)
	}
	return nil
}

func (r *postgresNightScoreRepository) ListByNight(ctx context.Context, nightID string) ([]*models.NightScore, error) {
	query := `
		SELECT id, game_night_id, user_id, round_index, score, updated_at
		FROM night_scores
		WHERE game_night_id = $1
		ORDER BY round_index ASC, user_id ASC`

	rows, err := r.db.QueryContext(ctx, query, nightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores for night %s: %w", nightID, err)
	}
	defer rows.Close()

	scores := make([]*models.NightScore, 0)
	for rows.Next() {
		s := &models.NightScore{}
		if err := rows.Scan(&s.ID, &s.GameNightID, &s.UserID, &s.RoundIndex, &s.Score, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan night score row: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *postgresNightScoreRepository) InsertResult(ctx context.Context, exec SQLExecutor, result *models.NightResult) error {
	query := `
		INSERT INTO night_results (id, game_night_id, user_id, total_score, placement, rating_change)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := exec.QueryRowContext(ctx, query,
		result.ID,
		result.GameNightID,
		result.UserID,
		result.TotalScore,
		result.Placement,
		result.RatingChange,
	).Scan(&result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert night result for user %s: %w", result.UserID, err)
	}
	return nil
}

func (r *postgresNightScoreRepository) ListResultsByNight(ctx context.Context, nightID string) ([]*models.NightResult, error) {
	query := `
		SELECT id, game_night_id, user_id, total_score, placement, rating_change, created_at
		FROM night_results
		WHERE game_night_id = $1
		ORDER BY placement ASC`

	rows, err := r.db.QueryContext(ctx, query, nightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for night %s: %w", nightID, err)
	}
	defer rows.Close()

	results := make([]*models.NightResult, 0)
	for rows.Next() {
		res := &models.NightResult{}
		if err := rows.Scan(&res.ID, &res.GameNightID, &res.UserID, &res.TotalScore, &res.Placement, &res.RatingChange, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan night result row: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
