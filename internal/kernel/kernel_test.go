package kernel

import (
	"context"
	"testing"

	"github.com/raju-bvssn/ai-agent-council/internal/agent"
	"github.com/raju-bvssn/ai-agent-council/internal/consensus"
	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/guards"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
	"github.com/raju-bvssn/ai-agent-council/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel() *Kernel {
	provider := llmgateway.NewEchoProvider("demo-echo", nil)
	gateway := llmgateway.New(provider, guards.New(), llmgateway.DefaultRetryConfig())
	factory := agent.NewFactory(gateway, tools.NewRegistry(), false, "demo-echo")
	facilitator := agent.NewDebateFacilitator(gateway, "demo-echo")
	debateEngine := debate.New(debate.DefaultConfig(), facilitator)
	consensusEngine := consensus.New(nil, consensus.DefaultThreshold)
	return New(store.NewMemoryStore(), factory, debateEngine, consensusEngine, true)
}

func seedSession(t *testing.T, k *Kernel, sessionID string) {
	t.Helper()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID:    sessionID,
		UserRequest:  "design a rate limiter service",
		Status:       models.StatusPending,
		MaxRevisions: 2,
	}))
}

// S1: all reviewers approve on the default EchoProvider fallback, so the
// workflow should run straight through FAQGeneration/Finalise/GenerateDeliverables
// to Completed with no human gate.
func TestKernel_Start_AllApproveReachesCompleted(t *testing.T) {
	k := newTestKernel()
	seedSession(t, k, "s1")

	state, err := k.Start(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.NotNil(t, state.Deliverables)
	assert.Equal(t, "s1", state.Deliverables.SessionID)
	assert.NotEmpty(t, state.ReviewerRounds)
	assert.Len(t, state.ReviewerRounds[0].Reviews, 3)
}

func TestKernel_Start_RejectsWhenNotPending(t *testing.T) {
	k := newTestKernel()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID: "s2",
		Status:    models.StatusInProgress,
	}))

	_, err := k.Start(context.Background(), "s2")
	require.Error(t, err)
}

func TestKernel_Step_ApproveFromAwaitingHumanCompletesWorkflow(t *testing.T) {
	k := newTestKernel()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID:    "s3",
		UserRequest:  "design a rate limiter",
		Status:       models.StatusAwaitingHuman,
		MaxRevisions: 2,
		CurrentNode:  NodeHumanApproval,
	}))

	state, err := k.Step(context.Background(), "s3", ActionApprove, "looks good")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.True(t, state.Metadata.HumanApproved)
	assert.NotNil(t, state.Deliverables)
}

func TestKernel_Step_ReviseIncrementsRevisionCountAndReturnsToArchitect(t *testing.T) {
	k := newTestKernel()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID:     "s4",
		UserRequest:   "design a rate limiter",
		Status:        models.StatusAwaitingHuman,
		MaxRevisions:  2,
		RevisionCount: 0,
		CurrentNode:   NodeHumanApproval,
	}))

	state, err := k.Step(context.Background(), "s4", ActionRevise, "needs more detail")
	require.NoError(t, err)

	assert.Equal(t, 1, state.RevisionCount)
	// All-approve fallback takes the reviewer round straight to completion
	// on the re-run, since the revised design is still reviewed fresh.
	assert.Equal(t, models.StatusCompleted, state.Status)
}

func TestKernel_Step_RejectsUnknownAction(t *testing.T) {
	k := newTestKernel()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID: "s5",
		Status:    models.StatusAwaitingHuman,
	}))

	_, err := k.Step(context.Background(), "s5", HumanAction("Bogus"), "")
	require.Error(t, err)
}

func TestKernel_Deliverables_UnavailableBeforeCompletion(t *testing.T) {
	k := newTestKernel()
	require.NoError(t, k.Store.Save(context.Background(), &models.WorkflowState{
		SessionID: "s6",
		Status:    models.StatusInProgress,
	}))

	_, err := k.Deliverables(context.Background(), "s6")
	require.Error(t, err)
}

func TestRouteAfterReviews(t *testing.T) {
	base := &models.WorkflowState{MaxRevisions: 2, RevisionCount: 0}

	t.Run("critical severity forces human approval", func(t *testing.T) {
		reviews := []models.ReviewFeedback{
			{Decision: models.DecisionApprove, Severity: models.SeverityCritical},
			{Decision: models.DecisionApprove, Severity: models.SeverityLow},
		}
		assert.Equal(t, NodeHumanApproval, routeAfterReviews(base, reviews))
	})

	t.Run("escalate decision forces human approval", func(t *testing.T) {
		reviews := []models.ReviewFeedback{
			{Decision: models.DecisionEscalate, Severity: models.SeverityLow},
		}
		assert.Equal(t, NodeHumanApproval, routeAfterReviews(base, reviews))
	})

	t.Run("revise with budget returns to solution architect", func(t *testing.T) {
		state := &models.WorkflowState{MaxRevisions: 2, RevisionCount: 0}
		reviews := []models.ReviewFeedback{
			{Decision: models.DecisionRevise, Severity: models.SeverityLow},
		}
		assert.Equal(t, NodeSolutionArchitect, routeAfterReviews(state, reviews))
		assert.Equal(t, 1, state.RevisionCount)
	})

	t.Run("revise with exhausted budget forces human approval", func(t *testing.T) {
		state := &models.WorkflowState{MaxRevisions: 1, RevisionCount: 1}
		reviews := []models.ReviewFeedback{
			{Decision: models.DecisionRevise, Severity: models.SeverityLow},
		}
		assert.Equal(t, NodeHumanApproval, routeAfterReviews(state, reviews))
	})

	t.Run("all approve moves to faq generation", func(t *testing.T) {
		reviews := []models.ReviewFeedback{
			{Decision: models.DecisionApprove, Severity: models.SeverityLow},
			{Decision: models.DecisionApprove, Severity: models.SeverityMedium},
		}
		assert.Equal(t, NodeFAQGeneration, routeAfterReviews(base, reviews))
	})

	t.Run("empty reviews retries reviewer round", func(t *testing.T) {
		assert.Equal(t, NodeReviewers, routeAfterReviews(base, nil))
	})
}

func TestKernel_Adjudicator_FirstRunSetsRationaleAndCount(t *testing.T) {
	k := newTestKernel()
	state := &models.WorkflowState{SessionID: "s8", UserRequest: "design a rate limiter", MaxRevisions: 2}

	require.NoError(t, k.nodeAdjudicator(context.Background(), state))

	assert.Equal(t, 1, state.Metadata.AdjudicatorRunCount)
	assert.True(t, state.AdjudicationComplete)
	assert.NotEmpty(t, state.FinalArchitectureRationale)
}

func TestKernel_Adjudicator_SecondRunSkipsWithWarning(t *testing.T) {
	k := newTestKernel()
	state := &models.WorkflowState{SessionID: "s9", UserRequest: "design a rate limiter", MaxRevisions: 2}
	state.Metadata.AdjudicatorRunCount = 1

	require.NoError(t, k.nodeAdjudicator(context.Background(), state))

	assert.Equal(t, 1, state.Metadata.AdjudicatorRunCount)
	assert.False(t, state.AdjudicationComplete)
	assert.NotEmpty(t, state.Warnings)
}

func TestKernel_GenerateDeliverables_NeverRegressesCompletedStatus(t *testing.T) {
	k := newTestKernel()
	state := &models.WorkflowState{SessionID: "s7", Status: models.StatusCompleted}
	k.nodeGenerateDeliverables(state)
	assert.Equal(t, models.StatusCompleted, state.Status)
	assert.NotNil(t, state.Deliverables)
}
