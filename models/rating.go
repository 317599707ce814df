package models

import "time"

// Rating is a user's global Elo-style rating across all game nights and
// tournaments. Rows are created lazily on the first applied delta.
type Rating struct {
	UserID       string    `json:"user_id" db:"user_id"`
	GlobalRating int       `json:"global_rating" db:"global_rating"`
	GamesPlayed  int       `json:"games_played" db:"games_played"`
	Wins         int       `json:"wins" db:"wins"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
