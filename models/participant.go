package models

import "time"

// TournamentParticipant is one user's entry in a tournament. Seeds are a
// permutation of 1..N within the tournament, assigned in input order.
type TournamentParticipant struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Seed         int       `json:"seed" db:"seed"`
	Wins         int       `json:"wins" db:"wins"`
	Losses       int       `json:"losses" db:"losses"`
	Points       int       `json:"points" db:"points"`
	IsEliminated bool      `json:"is_eliminated" db:"is_eliminated"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
