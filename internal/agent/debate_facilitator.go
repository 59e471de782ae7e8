package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// DebateFacilitator drives one debate round via the LLM gateway,
// implementing debate.Facilitator with the same JSON-mode discipline as
// the role runtimes.
type DebateFacilitator struct {
	gateway *llmgateway.Gateway
	model   string
}

// NewDebateFacilitator constructs a Facilitator over the given gateway.
// model may be empty, in which case the gateway's default provider model
// is used.
func NewDebateFacilitator(gateway *llmgateway.Gateway, model string) *DebateFacilitator {
	return &DebateFacilitator{gateway: gateway, model: model}
}

type facilitatorOutput struct {
	RevisedPositions      map[string]string `json:"revisedPositions"`
	ConsensusReached      bool              `json:"consensusReached"`
	ConsensusExplanation  string            `json:"consensusExplanation"`
	CommonGround          []string          `json:"commonGround"`
	RemainingDifferences  []string          `json:"remainingDifferences"`
}

// ConductRound implements debate.Facilitator.
func (f *DebateFacilitator) ConductRound(
	ctx context.Context,
	d models.Disagreement,
	positions map[models.AgentRole]string,
	roundNumber, maxRounds int,
	designContext string,
) (debate.RoundResult, error) {
	prompt := buildDebatePrompt(d, positions, roundNumber, maxRounds, designContext)

	var out facilitatorOutput
	err := f.gateway.GenerateJSON(ctx, llmgateway.Request{
		SystemPrompt: debateFacilitatorSystemPrompt,
		Prompt:       prompt,
		Model:        f.model,
	}, &out)
	if err != nil {
		return debate.RoundResult{}, err
	}

	revised := make(map[models.AgentRole]string, len(out.RevisedPositions))
	for role, pos := range out.RevisedPositions {
		revised[models.AgentRole(role)] = pos
	}
	if len(revised) == 0 {
		revised = positions
	}

	return debate.RoundResult{
		RevisedPositions:     revised,
		ConsensusReached:     out.ConsensusReached,
		ConsensusExplanation: out.ConsensusExplanation,
		CommonGround:         out.CommonGround,
		RemainingDifferences: out.RemainingDifferences,
	}, nil
}

const debateFacilitatorSystemPrompt = `You are the debate facilitator for an engineering design council.
Given a disagreement between reviewer roles and their current positions, try to
find common ground. Respond as JSON with fields: revisedPositions (object
mapping each role to its updated position string), consensusReached (bool),
consensusExplanation (string), commonGround (array of strings),
remainingDifferences (array of strings).`

func buildDebatePrompt(d models.Disagreement, positions map[models.AgentRole]string, round, maxRounds int, designContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d of %d.\n\nDisagreement topic: %s\nCategory: %s\nSeverity: %s\n\n", round, maxRounds, d.Topic, d.Category, d.Severity)
	b.WriteString("Current positions:\n")
	positionsJSON, _ := json.Marshal(positions)
	b.Write(positionsJSON)
	b.WriteString("\n\nDesign context:\n")
	b.WriteString(designContext)
	return b.String()
}
