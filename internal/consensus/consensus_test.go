package consensus

import (
	"testing"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCompute_AllApproveReachesConsensus(t *testing.T) {
	e := New(nil, DefaultThreshold)
	reviews := []models.ReviewFeedback{
		{ReviewerRole: models.RoleReviewerNFR, Decision: models.DecisionApprove},
		{ReviewerRole: models.RoleReviewerSecurity, Decision: models.DecisionApprove},
		{ReviewerRole: models.RoleReviewerIntegration, Decision: models.DecisionApprove},
	}
	result := e.Compute(reviews, nil)
	assert.True(t, result.Agreed)
	assert.GreaterOrEqual(t, result.Confidence, DefaultThreshold)
}

func TestCompute_RejectionsLowerConfidence(t *testing.T) {
	e := New(nil, DefaultThreshold)
	reviews := []models.ReviewFeedback{
		{ReviewerRole: models.RoleReviewerNFR, Decision: models.DecisionReject},
		{ReviewerRole: models.RoleReviewerSecurity, Decision: models.DecisionReject},
	}
	result := e.Compute(reviews, nil)
	assert.False(t, result.Agreed)
}

func TestCompute_DebateAdjustmentClampedAndApplied(t *testing.T) {
	e := New(nil, DefaultThreshold)
	reviews := []models.ReviewFeedback{
		{ReviewerRole: models.RoleReviewerNFR, Decision: models.DecisionRevise},
	}
	debates := []models.DebateOutcome{
		{ID: "d1", ConsensusReached: true},
		{ID: "d2", ConsensusReached: true},
		{ID: "d3", ConsensusReached: true},
		{ID: "d4", ConsensusReached: true},
		{ID: "d5", ConsensusReached: true},
	}
	withAdjustment := e.Compute(reviews, debates)
	withoutAdjustment := e.Compute(reviews, nil)
	assert.InDelta(t, withoutAdjustment.Confidence+0.2, withAdjustment.Confidence, 0.001)
}

func TestCompute_ConfidenceInRange(t *testing.T) {
	e := New(nil, DefaultThreshold)
	reviews := []models.ReviewFeedback{
		{ReviewerRole: models.RoleReviewerNFR, Decision: models.DecisionEscalate},
	}
	result := e.Compute(reviews, nil)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}
