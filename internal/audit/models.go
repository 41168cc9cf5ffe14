package audit

import (
	"context"
	"time"

	id "procura/pkg/domain"
)

// Action names an audited automatic or manual operation.
type Action string

const (
	ActionManagerAutoAssigned     Action = "MANAGER_AUTO_ASSIGNED"
	ActionManagerManuallyAssigned Action = "MANAGER_MANUALLY_ASSIGNED"
	ActionManagerAssignmentClear  Action = "MANAGER_ASSIGNMENT_CLEARED"
)

// EntityDepartment is the entity type recorded for department actions.
const EntityDepartment = "Department"

// Entry is an immutable audit record. Entries are never updated or deleted.
type Entry struct {
	ID         id.AuditEntryID `json:"id"`
	Action     Action          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Actor      string          `json:"actor"`
	Detail     string          `json:"detail"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store persists entries. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Streamer mirrors entries to an external sink (e.g. a Kafka topic).
type Streamer interface {
	Stream(ctx context.Context, entry Entry) error
}
