package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/boardnight/server/engine"
	"github.com/boardnight/server/models"
)

var ErrRatingNotFound = errors.New("rating not found")

type RatingRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Rating, error)
	// GetByUserIDs returns the ratings that exist; callers fall back to the
	// default rating for users absent from the map.
	GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*models.Rating, error)
	// ApplyDelta adds delta to a user's rating, seeding a fresh row from the
	// default rating when none exists yet.
	ApplyDelta(ctx context.Context, exec SQLExecutor, userID string, delta int, won bool) error
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) GetByUserID(ctx context.Context, userID string) (*models.Rating, error) {
	query := `SELECT user_id, global_rating, games_played, wins, updated_at FROM ratings WHERE user_id = $1`

	rating := &models.Rating{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rating.UserID,
		&rating.GlobalRating,
		&rating.GamesPlayed,
		&rating.Wins,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRatingNotFound
		}
		return nil, fmt.Errorf("failed to scan rating for user %s: %w", userID, err)
	}
	return rating, nil
}

func (r *postgresRatingRepository) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*models.Rating, error) {
	ratings := make(map[string]*models.Rating, len(userIDs))
	if len(userIDs) == 0 {
		return ratings, nil
	}

	query := `SELECT user_id, global_rating, games_played, wins, updated_at FROM ratings WHERE user_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rating := &models.Rating{}
		if err := rows.Scan(
			&rating.UserID,
			&rating.GlobalRating,
			&rating.GamesPlayed,
			&rating.Wins,
			&rating.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		ratings[rating.UserID] = rating
	}
	return ratings, rows.Err()
}

func (r *postgresRatingRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, userID string, delta int, won bool) error {
	winIncrement := 0
	if won {
		winIncrement = 1
	}

	query := `
		INSERT INTO ratings (user_id, global_rating, games_played, wins)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			global_rating = ratings.global_rating + $4,
			games_played = ratings.games_played + 1,
			wins = ratings.wins + $3,
			updated_at = now()`

	_, err := exec.ExecContext(ctx, query, userID, engine.DefaultRating+delta, winIncrement, delta)
	if err != nil {
		return fmt.Errorf("failed to apply rating delta for user %s: %w", userID, err)
	}
	return nil
}
