package deliverables

import (
	"regexp"
	"testing"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalState() *models.WorkflowState {
	return &models.WorkflowState{
		SessionID:   "sess-1",
		UserRequest: "Design a MuleSoft integration between Salesforce and SAP",
		CurrentDesign: &models.DesignDocument{
			ArchitectureOverview: "An event-driven integration layer.",
		},
		Reviews: []models.ReviewFeedback{
			{ReviewerRole: models.RoleReviewerSecurity, Decision: models.DecisionApprove, Severity: models.SeverityLow},
		},
	}
}

func TestBuild_MinimalStateProducesRequiredMinimums(t *testing.T) {
	bundle := Build(minimalState(), false)

	assert.GreaterOrEqual(t, len(bundle.Decisions), 2)
	assert.GreaterOrEqual(t, len(bundle.Risks), 3)
	assert.GreaterOrEqual(t, len(bundle.FAQs), 3)
	assert.GreaterOrEqual(t, len(bundle.Diagrams), 3)
	assert.GreaterOrEqual(t, len(bundle.MarkdownReport), 500)

	for _, h := range []string{
		"# Architecture Deliverables",
		"## Architecture Summary",
		"## Key Design Decisions",
		"## Risks & Mitigations",
		"## FAQ",
		"## Architecture Diagrams",
	} {
		assert.Contains(t, bundle.MarkdownReport, h)
	}
}

func TestBuild_DecisionAndRiskIDsAreWellFormedAndUnique(t *testing.T) {
	bundle := Build(minimalState(), false)

	adrRe := regexp.MustCompile(`^ADR-\d{3}$`)
	seen := map[string]bool{}
	for _, d := range bundle.Decisions {
		require.Regexp(t, adrRe, d.ID)
		assert.False(t, seen[d.ID], "duplicate ADR id %s", d.ID)
		seen[d.ID] = true
	}

	riskRe := regexp.MustCompile(`^RISK-\d{3}$`)
	seenRisk := map[string]bool{}
	for _, r := range bundle.Risks {
		require.Regexp(t, riskRe, r.ID)
		assert.False(t, seenRisk[r.ID], "duplicate RISK id %s", r.ID)
		seenRisk[r.ID] = true
	}
}

func TestBuild_IsIdempotentInCounts(t *testing.T) {
	state := minimalState()
	b1 := Build(state, false)
	b2 := Build(state, false)

	assert.Equal(t, len(b1.Decisions), len(b2.Decisions))
	assert.Equal(t, len(b1.Risks), len(b2.Risks))
	assert.Equal(t, len(b1.FAQs), len(b2.FAQs))
	assert.Equal(t, len(b1.Diagrams), len(b2.Diagrams))
}

func TestBuild_IntegrationPointsAddSequenceDiagramAndDecision(t *testing.T) {
	state := minimalState()
	state.CurrentDesign.IntegrationPoints = []map[string]any{{"name": "Salesforce"}}

	bundle := Build(state, false)

	var hasSequence bool
	for _, d := range bundle.Diagrams {
		if d.Kind == "sequence" {
			hasSequence = true
		}
	}
	assert.True(t, hasSequence)

	var hasIntegrationDecision bool
	for _, d := range bundle.Decisions {
		if d.Title == "Integration Pattern Selection" {
			hasIntegrationDecision = true
		}
	}
	assert.True(t, hasIntegrationDecision)
}

func TestBuild_DemoModeIsRecordedOnBundle(t *testing.T) {
	bundle := Build(minimalState(), true)
	assert.True(t, bundle.DemoMode)
}

func TestBuild_CriticalReviewConcernsBecomeRisks(t *testing.T) {
	state := minimalState()
	state.Reviews = append(state.Reviews, models.ReviewFeedback{
		ReviewerRole: models.RoleReviewerNFR,
		Decision:     models.DecisionRevise,
		Severity:     models.SeverityCritical,
		Concerns:     []models.Concern{{Description: "unbounded queue growth under load"}},
	})

	bundle := Build(state, false)
	var found bool
	for _, r := range bundle.Risks {
		if r.Description == "unbounded queue growth under load" {
			found = true
		}
	}
	assert.True(t, found)
}
