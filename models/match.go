package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCompleted MatchStatus = "completed"
)

// Match is one tournament pairing. A nil player slot is a bye (bracket
// padding) or a later-round slot still waiting on a feeder match.
// NextMatchID/NextMatchSlot wire single-elimination advancement: the winner
// of this match occupies that slot of that match.
type Match struct {
	ID            string      `json:"id" db:"id"`
	TournamentID  string      `json:"tournament_id" db:"tournament_id"`
	RoundNumber   int         `json:"round_number" db:"round_number"`
	MatchNumber   int         `json:"match_number" db:"match_number"`
	PlayerAID     *string     `json:"player_a_id,omitempty" db:"player_a_id"`
	PlayerBID     *string     `json:"player_b_id,omitempty" db:"player_b_id"`
	WinnerID      *string     `json:"winner_id,omitempty" db:"winner_id"`
	ScoreA        *int        `json:"score_a,omitempty" db:"score_a"`
	ScoreB        *int        `json:"score_b,omitempty" db:"score_b"`
	Status        MatchStatus `json:"status" db:"status"`
	NextMatchID   *string     `json:"next_match_id,omitempty" db:"next_match_id"`
	NextMatchSlot *int        `json:"next_match_slot,omitempty" db:"next_match_slot"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}
