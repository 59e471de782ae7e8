// Package store is the persistence layer: atomic per-call
// save/load/list/delete of a single WorkflowState blob per session,
// backed by Postgres in production and an in-memory map for tests and
// database-less deployments.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// Store is the persistence contract every kernel node commits through
// after executing. The store is the only writer of durable state.
type Store interface {
	// Save is an idempotent upsert keyed on SessionID. It persists the
	// entire state blob atomically: a crash mid-call leaves either the old
	// row or the new one, never a partial write.
	Save(ctx context.Context, state *models.WorkflowState) error
	// Load returns errs.KindNotFound if sessionID is unknown.
	Load(ctx context.Context, sessionID string) (*models.WorkflowState, error)
	// List returns a page of summaries ordered by CreatedAt descending,
	// plus the total row count for pagination.
	List(ctx context.Context, limit, offset int) ([]models.SessionSummary, int, error)
	// Delete removes a session. It is not an error to delete an unknown
	// sessionID (idempotent, matching the upsert semantics of Save).
	Delete(ctx context.Context, sessionID string) error
}

func notFound(sessionID string) error {
	return errs.New(errs.KindNotFound, "session not found: "+sessionID)
}

func clone(state *models.WorkflowState) (*models.WorkflowState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out models.WorkflowState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// stampTimestamps fills CreatedAt on first save and always refreshes
// UpdatedAt. Timestamps are owned server-side, never trusted from the
// caller.
func stampTimestamps(state *models.WorkflowState, existingCreatedAt *time.Time) {
	now := time.Now().UTC()
	if existingCreatedAt != nil {
		state.CreatedAt = *existingCreatedAt
	} else if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
}
