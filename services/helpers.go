package services

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"github.com/boardnight/server/models"
	"github.com/boardnight/server/repositories"
)

// Join codes avoid 0/O and 1/I so they survive being read out loud.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const joinCodeLength = 6

func generateJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

// writeAuditLog records a mutating action inside the caller's transaction.
// Audit failures abort the transaction: a mutation without its trail is worse
// than a retried request.
func writeAuditLog(ctx context.Context, auditRepo repositories.AuditRepository, exec repositories.SQLExecutor, actorID, action, entityType, entityID string, metadata map[string]any) error {
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	return auditRepo.Insert(ctx, exec, entry)
}
