package models

import "time"

// Game is an entry in the games catalog (the board games people play).
type Game struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	MinPlayers int       `json:"min_players" db:"min_players"`
	MaxPlayers int       `json:"max_players" db:"max_players"`
	CoverKey   *string   `json:"-" db:"cover_key"`
	CoverURL   *string   `json:"cover_url,omitempty" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
