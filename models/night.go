package models

import "time"

// NightStatus represents game night statuses, matching the ENUM in the DB.
type NightStatus string

const (
	NightStatusActive NightStatus = "active"
	NightStatusEnded  NightStatus = "ended"
)

// GameNight is a casual scoring session for one board game.
type GameNight struct {
	ID        string        `json:"id" db:"id"`
	GameID    string        `json:"game_id" db:"game_id"`
	HostID    string        `json:"host_id" db:"host_id"`
	Title     string        `json:"title" db:"title"`
	JoinCode  string        `json:"join_code" db:"join_code"`
	Status    NightStatus   `json:"status" db:"status"`
	WinnerID  *string       `json:"winner_id,omitempty" db:"winner_id"`
	Summary   *NightSummary `json:"summary,omitempty" db:"summary"`
	EndedAt   *time.Time    `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`

	// Optional linked entities, populated by the service layer.
	Game         *Game              `json:"game,omitempty" db:"-"`
	Participants []NightParticipant `json:"participants,omitempty" db:"-"`
	Scores       []NightScore       `json:"scores,omitempty" db:"-"`
}

type NightParticipant struct {
	ID           string    `json:"id" db:"id"`
	GameNightID  string    `json:"game_night_id" db:"game_night_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	TurnPosition int       `json:"turn_position" db:"turn_position"`
	IsHost       bool      `json:"is_host" db:"is_host"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// NightScore is one participant's raw score for one round of the night.
type NightScore struct {
	ID          string    `json:"id" db:"id"`
	GameNightID string    `json:"game_night_id" db:"game_night_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	RoundIndex  int       `json:"round_index" db:"round_index"`
	Score       int       `json:"score" db:"score"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// NightResult is the frozen per-participant outcome written when a night ends.
type NightResult struct {
	ID           string    `json:"id" db:"id"`
	GameNightID  string    `json:"game_night_id" db:"game_night_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	TotalScore   int       `json:"total_score" db:"total_score"`
	Placement    int       `json:"placement" db:"placement"`
	RatingChange int       `json:"rating_change" db:"rating_change"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NightSummary is the recap snapshot stored on the night row at end time.
// The winner is whoever the host designates; the top scorer is computed and
// the two need not coincide.
type NightSummary struct {
	Winner       NightSummaryWinner  `json:"winner"`
	TopScorer    NightSummaryScorer  `json:"top_scorer"`
	Participants []NightSummaryEntry `json:"participants"`
}

type NightSummaryWinner struct {
	UserID       string `json:"user_id"`
	RatingChange int    `json:"rating_change"`
}

type NightSummaryScorer struct {
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}

type NightSummaryEntry struct {
	UserID       string `json:"user_id"`
	Placement    int    `json:"placement"`
	TotalScore   int    `json:"total_score"`
	RatingChange int    `json:"rating_change"`
}
