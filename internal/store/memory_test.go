package store

import (
	"context"
	"testing"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := &models.WorkflowState{SessionID: "s1", UserRequest: "design X", Status: models.StatusPending}
	require.NoError(t, s.Save(ctx, state))
	assert.False(t, state.CreatedAt.IsZero())

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "design X", loaded.UserRequest)
	assert.Equal(t, models.StatusPending, loaded.Status)
}

func TestMemoryStore_LoadUnknownSessionReturnsNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestMemoryStore_SavePreservesCreatedAtAcrossUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := &models.WorkflowState{SessionID: "s1", Status: models.StatusPending}
	require.NoError(t, s.Save(ctx, state))
	firstCreated := state.CreatedAt

	state.Status = models.StatusInProgress
	require.NoError(t, s.Save(ctx, state))

	assert.Equal(t, firstCreated, state.CreatedAt)
	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, loaded.Status)
}

func TestMemoryStore_AppendOnlySequencesNeverShrink(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := &models.WorkflowState{SessionID: "s1", Messages: []models.AgentMessage{{Content: "first"}}}
	require.NoError(t, s.Save(ctx, state))

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	loaded.Messages = append(loaded.Messages, models.AgentMessage{Content: "second"})
	require.NoError(t, s.Save(ctx, loaded))

	reloaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, reloaded.Messages, 2)
}

func TestMemoryStore_ListOrdersByCreatedAtDescending(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &models.WorkflowState{SessionID: "a"}))
	require.NoError(t, s.Save(ctx, &models.WorkflowState{SessionID: "b"}))

	summaries, total, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, summaries, 2)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &models.WorkflowState{SessionID: "s1"}))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err := s.Load(ctx, "s1")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}
