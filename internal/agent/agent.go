// Package agent implements the per-role runtimes of the council: prompt
// assembly, model selection, Guards-wrapped LLM generation, and the
// Performer/Critic result contracts.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/modelselect"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/tools"
)

// PerformerResult is what a Performer agent returns: content plus
// metadata, never a bare error on a successful call; degraded JSON is
// still returned as content, with a warning flagged in Metadata.
type PerformerResult struct {
	Content     string
	Metadata    map[string]any
	Success     bool
	ToolResults []models.ToolResult
}

// CriticResult is what a Critic agent returns.
type CriticResult struct {
	Decision    models.Decision
	Concerns    []models.Concern
	Suggestions []models.Suggestion
	Rationale   string
	Severity    models.Severity
	Success     bool
	ToolResults []models.ToolResult
}

// Performer produces or revises content (Master, SolutionArchitect, FAQ,
// Adjudicator).
type Performer interface {
	Role() models.AgentRole
	Run(ctx context.Context, request string, requestContext map[string]any) (PerformerResult, error)
}

// Critic evaluates content and returns structured feedback (reviewer roles).
type Critic interface {
	Role() models.AgentRole
	Run(ctx context.Context, contentToReview string, requestContext map[string]any) (CriticResult, error)
}

// runtime is the single concrete implementation backing every role;
// AgentFactory configures one instance per role with its own prompt,
// review criteria, and allowed tools.
type runtime struct {
	role          models.AgentRole
	systemPrompt  string
	criteria      string // non-empty for Critic roles
	gateway       *llmgateway.Gateway
	registry      *tools.Registry
	allowedTools  []string
	autoMode      bool
	modelOverride string
}

func (r *runtime) Role() models.AgentRole { return r.role }

// selectModel picks the model tier per call in auto mode; a non-auto
// factory always uses the configured override.
func (r *runtime) selectModel(description string) string {
	if !r.autoMode {
		return r.modelOverride
	}
	tier := modelselect.Select(description, string(r.role), modelselect.EstimateTokens(description))
	return string(tier)
}

// invokeTools fetches the URL in requestContext["referenceURL"] through
// the http_fetch tool when this role is allowed it, the one concrete live
// Tool shipped in-repo.
func (r *runtime) invokeTools(ctx context.Context, requestContext map[string]any) []models.ToolResult {
	if r.registry == nil || len(r.allowedTools) == 0 {
		return nil
	}
	url, ok := requestContext["referenceURL"].(string)
	if !ok || url == "" {
		return nil
	}
	for _, name := range r.allowedTools {
		if strings.EqualFold(name, "http_fetch") {
			result := r.registry.Execute(ctx, name, "fetch", map[string]any{"url": url})
			return []models.ToolResult{result}
		}
	}
	return nil
}

func formatContext(requestContext map[string]any) string {
	if len(requestContext) == 0 {
		return "No additional context provided."
	}
	keys := make([]string, 0, len(requestContext))
	for k := range requestContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]any, len(requestContext))
	for _, k := range keys {
		ordered[k] = requestContext[k]
	}
	b, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return "No additional context provided."
	}
	return string(b)
}

func isValidJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(strings.TrimSpace(s)), &v) == nil
}

// wrapAsAnalysis degrades an unparseable JSON-mode response into the
// {"analysis": raw} fallback shape so downstream parsing always has JSON.
func wrapAsAnalysis(raw string) string {
	b, err := json.Marshal(map[string]string{"analysis": raw})
	if err != nil {
		return `{"analysis":""}`
	}
	return string(b)
}

// Run implements Performer: assemble the prompt, select the model tier,
// call the gateway in JSON mode, and degrade gracefully on unparseable
// output rather than failing the call.
func (r *runtime) Run(ctx context.Context, request string, requestContext map[string]any) (PerformerResult, error) {
	contextStr := formatContext(requestContext)
	prompt := request + "\n\nContext:\n" + contextStr
	model := r.selectModel(request + contextStr)
	toolResults := r.invokeTools(ctx, requestContext)

	resp, err := r.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: r.systemPrompt,
		Prompt:       prompt,
		JSONMode:     true,
		Model:        model,
	})
	if err != nil {
		return PerformerResult{}, err
	}

	content := resp.Content
	degraded := !isValidJSON(content)
	if degraded {
		slog.Warn("Agent output was not valid JSON, wrapping as analysis",
			"role", r.role, "model", model)
		content = wrapAsAnalysis(content)
	}

	slog.Info("Agent run completed", "role", r.role, "model", model, "degraded", degraded)

	return PerformerResult{
		Content: content,
		Success: true,
		Metadata: map[string]any{
			"model":        model,
			"parseWarning": degraded,
		},
		ToolResults: toolResults,
	}, nil
}

// RunCritic implements Critic: assemble the review prompt with this
// role's criteria, call the gateway in JSON mode, and parse into a
// typed reviewer output. An unparseable response degrades to an Escalate
// decision carrying the raw content as rationale; untyped maps never
// cross the component boundary.
func (r *runtime) RunCritic(ctx context.Context, contentToReview string, requestContext map[string]any) (CriticResult, error) {
	contextStr := formatContext(requestContext)
	prompt := buildReviewPrompt(r.criteria, contentToReview, contextStr)
	model := r.selectModel(contentToReview)
	toolResults := r.invokeTools(ctx, requestContext)

	resp, err := r.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: r.systemPrompt,
		Prompt:       prompt,
		JSONMode:     true,
		Model:        model,
	})
	if err != nil {
		return CriticResult{}, err
	}

	out, ok := ParseReviewerOutput(resp.Content)
	if !ok {
		slog.Warn("Reviewer output was not parseable, escalating",
			"role", r.role, "model", model)
		return CriticResult{
			Decision:    models.DecisionEscalate,
			Rationale:   resp.Content,
			Severity:    models.SeverityMedium,
			Success:     false,
			ToolResults: toolResults,
		}, nil
	}

	slog.Info("Reviewer run completed",
		"role", r.role, "model", model, "decision", out.decision(), "severity", out.severity())

	return CriticResult{
		Decision:    out.decision(),
		Concerns:    out.concernList(),
		Suggestions: out.suggestionList(),
		Rationale:   out.Rationale,
		Severity:    out.severity(),
		Success:     true,
		ToolResults: toolResults,
	}, nil
}

// criticAdapter exposes runtime's RunCritic method through the narrower
// Critic interface, so AgentFactory can hand back an interface value
// without leaking the shared runtime's Performer method set.
type criticAdapter struct{ *runtime }

func (c criticAdapter) Run(ctx context.Context, contentToReview string, requestContext map[string]any) (CriticResult, error) {
	return c.runtime.RunCritic(ctx, contentToReview, requestContext)
}

func buildReviewPrompt(criteria, content, contextStr string) string {
	var b strings.Builder
	b.WriteString("Review the following content according to these criteria:\n\n")
	b.WriteString(criteria)
	b.WriteString("\n\nContent to Review:\n")
	b.WriteString(content)
	b.WriteString("\n\nContext:\n")
	b.WriteString(contextStr)
	b.WriteString("\n\nRespond as JSON with: decision (\"Approve\"|\"Reject\"|\"Revise\"|\"Escalate\"), ")
	b.WriteString("concerns (string list), suggestions (string list), rationale (string), severity (\"low\"|\"medium\"|\"high\"|\"critical\").")
	return b.String()
}

// errUnsupportedRole is returned by the factory for an unknown role.
func errUnsupportedRole(role models.AgentRole) error {
	return errs.New(errs.KindValidation, "unsupported agent role: "+string(role))
}
