// Package consensus computes a weighted-vote consensus over a round's
// reviews, adjusted by debate outcomes.
package consensus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// DefaultWeights is the built-in per-role vote weight table. Domain and
// Ops entries stay here even though those reviewers are not in the
// default roster, so a deployment can activate them by config alone.
var DefaultWeights = map[models.AgentRole]float64{
	models.RoleMaster:              0.25,
	models.RoleSolutionArchitect:   0.25,
	models.RoleReviewerNFR:         0.10,
	models.RoleReviewerSecurity:    0.15,
	models.RoleReviewerIntegration: 0.10,
	models.RoleReviewerDomain:      0.08,
	models.RoleReviewerOps:         0.07,
}

// DefaultWeight is used for any role absent from the weights map.
const DefaultWeight = 0.05

// DefaultThreshold is the minimum confidence for agreement.
const DefaultThreshold = 0.65

// Engine computes consensus from reviews and debate outcomes.
type Engine struct {
	Weights   map[models.AgentRole]float64
	Threshold float64
}

// New constructs an Engine with the given weights (nil uses DefaultWeights)
// and threshold.
func New(weights map[models.AgentRole]float64, threshold float64) *Engine {
	if weights == nil {
		weights = DefaultWeights
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Engine{Weights: weights, Threshold: threshold}
}

// Compute builds the vote breakdown, scores it against the role weights,
// applies the debate adjustment, and compares the result to the threshold.
func (e *Engine) Compute(reviews []models.ReviewFeedback, debates []models.DebateOutcome) models.ConsensusResult {
	voteBreakdown := make(map[models.AgentRole]models.Decision, len(reviews))
	weightsApplied := make(map[models.AgentRole]float64, len(reviews))
	for _, r := range reviews {
		voteBreakdown[r.ReviewerRole] = r.Decision
		weightsApplied[r.ReviewerRole] = e.weightFor(r.ReviewerRole)
	}

	confidence := e.computeConfidence(voteBreakdown, weightsApplied)
	adjustment := computeDebateAdjustment(debates)
	adjusted := confidence + adjustment
	if adjusted > 1.0 {
		adjusted = 1.0
	}
	if adjusted < 0 {
		adjusted = 0
	}

	agreed := adjusted >= e.Threshold

	var resolved, unresolved []string
	for _, d := range debates {
		if d.ConsensusReached {
			resolved = append(resolved, d.ID)
		} else {
			unresolved = append(unresolved, d.ID)
		}
	}

	summary := generateSummary(agreed, adjusted, e.Threshold, voteBreakdown, debates)

	slog.Info("Consensus computed",
		"agreed", agreed, "confidence", adjusted, "threshold", e.Threshold,
		"votes", len(voteBreakdown), "debates_resolved", len(resolved),
		"debates_unresolved", len(unresolved))

	return models.ConsensusResult{
		RoundID:                 uuid.NewString(),
		Agreed:                  agreed,
		Confidence:              adjusted,
		Summary:                 summary,
		DisagreementsResolved:   resolved,
		DisagreementsUnresolved: unresolved,
		VoteBreakdown:           voteBreakdown,
		WeightsApplied:          weightsApplied,
		Threshold:               e.Threshold,
		Timestamp:               time.Now().UTC(),
	}
}

func (e *Engine) weightFor(role models.AgentRole) float64 {
	if w, ok := e.Weights[role]; ok {
		return w
	}
	return DefaultWeight
}

// computeConfidence scores votes as Approve=+1w, Revise=0w, Reject=-0.5w,
// Escalate=+0.3w, then shifts/scales the weighted sum into [0,1].
func (e *Engine) computeConfidence(votes map[models.AgentRole]models.Decision, weights map[models.AgentRole]float64) float64 {
	var totalWeight float64
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}

	var weightedSum float64
	for agent, vote := range votes {
		w := weights[agent]
		switch vote {
		case models.DecisionApprove:
			weightedSum += 1.0 * w
		case models.DecisionRevise:
			weightedSum += 0.0 * w
		case models.DecisionReject:
			weightedSum += -0.5 * w
		case models.DecisionEscalate:
			weightedSum += 0.3 * w
		}
	}

	confidence := (weightedSum + 0.5*totalWeight) / (1.5 * totalWeight)
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// computeDebateAdjustment adds 0.05 per resolved debate and subtracts
// 0.05 per unresolved one, clamped to [-0.2, 0.2].
func computeDebateAdjustment(debates []models.DebateOutcome) float64 {
	if len(debates) == 0 {
		return 0
	}
	var resolved, unresolved int
	for _, d := range debates {
		if d.ConsensusReached {
			resolved++
		} else {
			unresolved++
		}
	}
	adjustment := float64(resolved)*0.05 - float64(unresolved)*0.05
	if adjustment > 0.2 {
		return 0.2
	}
	if adjustment < -0.2 {
		return -0.2
	}
	return adjustment
}

func generateSummary(agreed bool, confidence, threshold float64, votes map[models.AgentRole]models.Decision, debates []models.DebateOutcome) string {
	var approvals, revisions, rejections int
	for _, v := range votes {
		switch v {
		case models.DecisionApprove:
			approvals++
		case models.DecisionRevise:
			revisions++
		case models.DecisionReject:
			rejections++
		}
	}

	if agreed {
		if len(debates) > 0 {
			resolved := 0
			for _, d := range debates {
				if d.ConsensusReached {
					resolved++
				}
			}
			return fmt.Sprintf(
				"Consensus reached with %.1f%% confidence. Votes: %d approve, %d revise, %d reject. Resolved %d/%d debates.",
				confidence*100, approvals, revisions, rejections, resolved, len(debates))
		}
		return fmt.Sprintf(
			"Consensus reached with %.1f%% confidence. Votes: %d approve, %d revise, %d reject.",
			confidence*100, approvals, revisions, rejections)
	}

	if len(debates) > 0 {
		unresolved := 0
		for _, d := range debates {
			if !d.ConsensusReached {
				unresolved++
			}
		}
		return fmt.Sprintf(
			"Consensus not reached (%.1f%% confidence, threshold %.1f%%). %d unresolved debate(s). Requires adjudication.",
			confidence*100, threshold*100, unresolved)
	}
	return fmt.Sprintf(
		"Consensus not reached (%.1f%% confidence, threshold %.1f%%). Votes: %d approve, %d revise, %d reject. Requires adjudication.",
		confidence*100, threshold*100, approvals, revisions, rejections)
}
