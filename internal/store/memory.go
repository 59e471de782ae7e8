package store

import (
	"context"
	"sort"
	"sync"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// MemoryStore is an in-process Store, used by tests and by councild when
// no database is configured. Guarded by a single mutex: the store, not
// the kernel, is the serialisation point for concurrent sessions.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.WorkflowState
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.WorkflowState)}
}

func (s *MemoryStore) Save(_ context.Context, state *models.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[state.SessionID]
	cp, err := clone(state)
	if err != nil {
		return err
	}
	if ok {
		ca := existing.CreatedAt
		stampTimestamps(cp, &ca)
	} else {
		stampTimestamps(cp, nil)
	}
	s.sessions[state.SessionID] = cp
	// Reflect server-stamped timestamps back onto the caller's copy, the
	// same contract a database round-trip would give via RETURNING.
	state.CreatedAt = cp.CreatedAt
	state.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*models.WorkflowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	return clone(existing)
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]models.SessionSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.SessionSummary, 0, len(s.sessions))
	for _, st := range s.sessions {
		all = append(all, models.SessionSummary{
			SessionID: st.SessionID,
			Status:    st.Status,
			CreatedAt: st.CreatedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []models.SessionSummary{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
