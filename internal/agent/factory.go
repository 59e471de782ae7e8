package agent

import (
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/tools"
)

// Factory builds Performer/Critic runtimes per role, each configured with
// its own system prompt, review criteria, and allowed tools.
type Factory struct {
	gateway       *llmgateway.Gateway
	registry      *tools.Registry
	autoMode      bool
	modelOverride string
}

// NewFactory constructs a Factory. autoMode selects models via
// internal/modelselect per call; when false every agent uses modelOverride.
func NewFactory(gateway *llmgateway.Gateway, registry *tools.Registry, autoMode bool, modelOverride string) *Factory {
	return &Factory{gateway: gateway, registry: registry, autoMode: autoMode, modelOverride: modelOverride}
}

func (f *Factory) newRuntime(role models.AgentRole, systemPrompt, criteria string, allowedTools []string) *runtime {
	return &runtime{
		role:          role,
		systemPrompt:  systemPrompt,
		criteria:      criteria,
		gateway:       f.gateway,
		registry:      f.registry,
		allowedTools:  allowedTools,
		autoMode:      f.autoMode,
		modelOverride: f.modelOverride,
	}
}

// Performer builds the Performer for the given role. Master,
// SolutionArchitect, FAQ, and Adjudicator are the producing roles; every
// other role is a Critic.
func (f *Factory) Performer(role models.AgentRole) (Performer, error) {
	switch role {
	case models.RoleMaster:
		return f.newRuntime(role, masterSystemPrompt, "", nil), nil
	case models.RoleSolutionArchitect:
		return f.newRuntime(role, solutionArchitectSystemPrompt, "", []string{"http_fetch"}), nil
	case models.RoleFAQ:
		return f.newRuntime(role, faqSystemPrompt, "", nil), nil
	case models.RoleAdjudicator:
		return f.newRuntime(role, adjudicatorSystemPrompt, "", nil), nil
	default:
		return nil, errUnsupportedRole(role)
	}
}

// Critic builds the Critic for a reviewer role.
func (f *Factory) Critic(role models.AgentRole) (Critic, error) {
	switch role {
	case models.RoleReviewerNFR:
		return criticAdapter{f.newRuntime(role, reviewerSystemPrompt("NFR"), nfrCriteria, nil)}, nil
	case models.RoleReviewerSecurity:
		return criticAdapter{f.newRuntime(role, reviewerSystemPrompt("Security"), securityCriteria, nil)}, nil
	case models.RoleReviewerIntegration:
		return criticAdapter{f.newRuntime(role, reviewerSystemPrompt("Integration"), integrationCriteria, []string{"http_fetch"})}, nil
	case models.RoleReviewerDomain:
		return criticAdapter{f.newRuntime(role, reviewerSystemPrompt("Domain"), domainCriteria, nil)}, nil
	case models.RoleReviewerOps:
		return criticAdapter{f.newRuntime(role, reviewerSystemPrompt("Operations"), opsCriteria, nil)}, nil
	default:
		return nil, errUnsupportedRole(role)
	}
}

// AllReviewers returns the default active reviewer roster. Domain and Ops
// reviewer roles remain configurable (internal/consensus.DefaultWeights
// still carries weights for them) but are not instantiated by default.
func (f *Factory) AllReviewers() []models.AgentRole {
	return []models.AgentRole{
		models.RoleReviewerNFR,
		models.RoleReviewerSecurity,
		models.RoleReviewerIntegration,
	}
}
