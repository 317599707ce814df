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
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrFriendshipConflict = errors.New("friendship already exists")
)

type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id string) (*models.Friendship, error)
	// GetBetween looks up a friendship between two users regardless of which
	// side sent the request.
	GetBetween(ctx context.Context, userA, userB string) (*models.Friendship, error)
	UpdateStatus(ctx context.Context, id string, status models.FriendStatus) error
	// ListAcceptedFriendIDs returns the ids of everyone userID has an
	// accepted friendship with, from either side.
	ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error)
}

type postgresFriendRepository struct {
	db *sql.DB
}

func NewPostgresFriendRepository(db *sql.DB) FriendRepository {
	return &postgresFriendRepository{db: db}
}

const friendColumns = `id, requester_id, addressee_id, status, created_at, responded_at`

func (r *postgresFriendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, addressee_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		friendship.ID,
		friendship.RequesterID,
		friendship.AddresseeID,
		friendship.Status,
	).Scan(&friendship.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "friendships_pair_key" {
		return ErrFriendshipConflict
	}
	return err
}

func (r *postgresFriendRepository) GetByID(ctx context.Context, id string) (*models.Friendship, error) {
	return r.getOne(ctx, `SELECT `+friendColumns+` FROM friendships WHERE id = $1`, id)
}

func (r *postgresFriendRepository) GetBetween(ctx context.Context, userA, userB string) (*models.Friendship, error) {
	query := `
		SELECT ` + friendColumns + `
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2)
		   OR (requester_id = $2 AND addressee_id = $1)`
	return r.getOne(ctx, query, userA, userB)
}

func (r *postgresFriendRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("failed to scan friendship: %w", err)
	}
	return f, nil
}

func (r *postgresFriendRepository) UpdateStatus(ctx context.Context, id string, status models.FriendStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE friendships SET status = $1, responded_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update friendship %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrFriendshipNotFound)
}

func (r *postgresFriendRepository) ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM friendships
		WHERE (requester_id = $1 OR addressee_id = $1) AND status = $2`

	rows, err := r.db.QueryContext(ctx, query, userID, models.FriendStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to query friends for user %s: %w", userID, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
