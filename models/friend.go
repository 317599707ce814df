package models

import "time"

type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
	FriendStatusDeclined FriendStatus = "declined"
)

// Friendship links two users. Joining a game night requires an accepted
// friendship with the host.
type Friendship struct {
	ID          string       `json:"id" db:"id"`
	RequesterID string       `json:"requester_id" db:"requester_id"`
	AddresseeID string       `json:"addressee_id" db:"addressee_id"`
	Status      FriendStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	RespondedAt *time.Time   `json:"responded_at,omitempty" db:"responded_at"`

	Requester *User `json:"requester,omitempty" db:"-"`
	Addressee *User `json:"addressee,omitempty" db:"-"`
}
