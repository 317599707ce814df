package models

import "time"

// TournamentStatus represents tournament statuses, matching the ENUM in the DB.
type TournamentStatus string

const (
	TournamentStatusDraft  TournamentStatus = "draft"
	TournamentStatusActive TournamentStatus = "active"
	TournamentStatusEnded  TournamentStatus = "ended"
)

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

func (f TournamentFormat) Valid() bool {
	return f == FormatSingleElimination || f == FormatRoundRobin
}

type Tournament struct {
	ID           string           `json:"id" db:"id"`
	GameID       string           `json:"game_id" db:"game_id"`
	HostID       string           `json:"host_id" db:"host_id"`
	Title        string           `json:"title" db:"title"`
	Format       TournamentFormat `json:"format" db:"format"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	TotalRounds  int              `json:"total_rounds" db:"total_rounds"`
	ChampionID   *string          `json:"champion_id,omitempty" db:"champion_id"`
	Standings    []Standing       `json:"standings,omitempty" db:"standings"`
	EndedAt      *time.Time       `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by the service layer.
	Game         *Game                   `json:"game,omitempty" db:"-"`
	Participants []TournamentParticipant `json:"participants,omitempty" db:"-"`
	Matches      []Match                 `json:"matches,omitempty" db:"-"`
}

// Standing is one row of the frozen final table stored when a tournament ends.
type Standing struct {
	UserID string `json:"user_id"`
	Seed   int    `json:"seed"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}
