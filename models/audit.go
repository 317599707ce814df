package models

import "time"

// AuditLog records who did what to which entity. Written for every mutating
// operation; never read on a request path.
type AuditLog struct {
	ID         string         `json:"id" db:"id"`
	ActorID    string         `json:"actor_id" db:"actor_id"`
	Action     string         `json:"action" db:"action"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   *string        `json:"entity_id,omitempty" db:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
