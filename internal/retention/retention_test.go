package retention

import (
	"context"
	"testing"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SweepDeletesExpiredTerminalSessions(t *testing.T) {
	// MemoryStore.Save always stamps UpdatedAt to time.Now(), so rather than
	// forging an old timestamp, a negative SessionTTL pushes the cutoff into
	// the future, making every session currently saved already "expired".
	st := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &models.WorkflowState{SessionID: "expired-completed", Status: models.StatusCompleted}))
	require.NoError(t, st.Save(ctx, &models.WorkflowState{SessionID: "expired-in-progress", Status: models.StatusInProgress}))

	svc := New(Config{SessionTTL: -time.Hour, Interval: time.Hour, PageSize: 50}, st)
	svc.sweep(ctx)

	_, err := st.Load(ctx, "expired-completed")
	assert.True(t, errs.Is(err, errs.KindNotFound), "expired terminal session should be pruned")

	_, err = st.Load(ctx, "expired-in-progress")
	assert.NoError(t, err, "non-terminal session should survive regardless of age")
}

func TestService_SweepKeepsSessionsWithinTTL(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &models.WorkflowState{SessionID: "fresh-completed", Status: models.StatusCompleted}))

	svc := New(Config{SessionTTL: 24 * time.Hour, Interval: time.Hour, PageSize: 50}, st)
	svc.sweep(ctx)

	_, err := st.Load(ctx, "fresh-completed")
	assert.NoError(t, err, "recently-updated terminal session should survive")
}

func TestService_StartStopIsIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(Config{SessionTTL: time.Hour, Interval: time.Millisecond, PageSize: 10}, st)

	ctx := context.Background()
	svc.Start(ctx)
	svc.Start(ctx) // second call is a no-op
	svc.Stop()
	svc.Stop() // second call is a no-op
}
