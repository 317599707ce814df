package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/boardnight/server/models"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("game name already exists")
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id string) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games_catalog (id, name, min_players, max_players, cover_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		game.ID,
		game.Name,
		game.MinPlayers,
		game.MaxPlayers,
		game.CoverKey,
	).Scan(&game.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "games_catalog_name_key" {
		return ErrGameNameConflict
	}
	return err
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	query := `SELECT id, name, min_players, max_players, cover_key, created_at FROM games_catalog WHERE id = $1`

	game := &models.Game{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID,
		&game.Name,
		&game.MinPlayers,
		&game.MaxPlayers,
		&game.CoverKey,
		&game.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan game %s: %w", id, err)
	}
	return game, nil
}

func (r *postgresGameRepository) List(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT id, name, min_players, max_players, cover_key, created_at FROM games_catalog ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query games catalog: %w", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game := &models.Game{}
		if err := rows.Scan(
			&game.ID,
			&game.Name,
			&game.MinPlayers,
			&game.MaxPlayers,
			&game.CoverKey,
			&game.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
