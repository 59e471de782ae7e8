//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestPostgresStore spins up a disposable Postgres container (or, in
// CI, connects to CI_DATABASE_URL) and returns a PostgresStore with
// migrations already applied.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	ctx := context.Background()

	cfg := Config{
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}

	if url := os.Getenv("CI_DATABASE_URL"); url != "" {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
		cfg.ConnString = url
	} else {
		t.Log("using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
		cfg.ConnString = connStr
	}

	st, err := NewPostgresStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgresStore_SaveLoadRoundTrip(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()

	state := &models.WorkflowState{
		SessionID:   "pg-1",
		UserRequest: "design a payments integration",
		Status:      models.StatusPending,
	}
	require.NoError(t, st.Save(ctx, state))

	loaded, err := st.Load(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, state.UserRequest, loaded.UserRequest)
	assert.Equal(t, models.StatusPending, loaded.Status)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestPostgresStore_LoadUnknownSessionReturnsNotFound(t *testing.T) {
	st := newTestPostgresStore(t)
	_, err := st.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestPostgresStore_AppendOnlySequencesSurviveRoundTrip(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()

	state := &models.WorkflowState{
		SessionID: "pg-2",
		Messages:  []models.AgentMessage{{AgentRole: models.RoleMaster, Content: "first"}},
	}
	require.NoError(t, st.Save(ctx, state))

	loaded, err := st.Load(ctx, "pg-2")
	require.NoError(t, err)
	loaded.Messages = append(loaded.Messages, models.AgentMessage{AgentRole: models.RoleSolutionArchitect, Content: "second"})
	require.NoError(t, st.Save(ctx, loaded))

	reloaded, err := st.Load(ctx, "pg-2")
	require.NoError(t, err)
	assert.Len(t, reloaded.Messages, 2)
}

func TestPostgresStore_ListAndDelete(t *testing.T) {
	st := newTestPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, &models.WorkflowState{SessionID: "pg-3", Status: models.StatusCompleted}))

	summaries, total, err := st.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	found := false
	for _, s := range summaries {
		if s.SessionID == "pg-3" {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, st.Delete(ctx, "pg-3"))
	_, err = st.Load(ctx, "pg-3")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}
