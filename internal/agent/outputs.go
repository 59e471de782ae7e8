package agent

import (
	"encoding/json"
	"strings"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// reviewerOutputJSON is the flat JSON shape every reviewer/critic role is
// asked to return. A RawFallback is populated instead whenever the model's
// response can't be unmarshalled into this shape; callers must check ok
// before trusting the typed fields.
type reviewerOutputJSON struct {
	Decision    string   `json:"decision"`
	Concerns    []string `json:"concerns"`
	Suggestions []string `json:"suggestions"`
	Rationale   string   `json:"rationale"`
	Severity    string   `json:"severity"`

	RawFallback string `json:"-"`
}

func (o reviewerOutputJSON) decision() models.Decision {
	switch strings.ToLower(strings.TrimSpace(o.Decision)) {
	case "approve":
		return models.DecisionApprove
	case "reject":
		return models.DecisionReject
	case "revise":
		return models.DecisionRevise
	case "escalate":
		return models.DecisionEscalate
	default:
		return models.DecisionEscalate
	}
}

func (o reviewerOutputJSON) severity() models.Severity {
	switch strings.ToLower(strings.TrimSpace(o.Severity)) {
	case "low":
		return models.SeverityLow
	case "medium":
		return models.SeverityMedium
	case "high":
		return models.SeverityHigh
	case "critical":
		return models.SeverityCritical
	default:
		return models.SeverityMedium
	}
}

func (o reviewerOutputJSON) concernList() []models.Concern {
	out := make([]models.Concern, 0, len(o.Concerns))
	for _, c := range o.Concerns {
		out = append(out, models.Concern{Description: c, Severity: o.severity()})
	}
	return out
}

func (o reviewerOutputJSON) suggestionList() []models.Suggestion {
	out := make([]models.Suggestion, 0, len(o.Suggestions))
	for _, s := range o.Suggestions {
		out = append(out, models.Suggestion{Suggestion: s})
	}
	return out
}

// ParseReviewerOutput attempts to unmarshal a critic's raw JSON response.
// ok is false when the content isn't valid JSON or is missing a decision,
// signalling the caller should degrade rather than trust zero-valued fields.
func ParseReviewerOutput(raw string) (reviewerOutputJSON, bool) {
	var out reviewerOutputJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return reviewerOutputJSON{RawFallback: raw}, false
	}
	if strings.TrimSpace(out.Decision) == "" {
		return reviewerOutputJSON{RawFallback: raw}, false
	}
	return out, true
}

// SolutionOutputJSON is the shape a SolutionArchitect performer is asked
// to return, mirroring models.DesignDocument.
type SolutionOutputJSON struct {
	ArchitectureOverview   string                   `json:"architectureOverview"`
	Components             []map[string]any        `json:"components"`
	IntegrationPoints       []map[string]any        `json:"integrationPoints"`
	NFRConsiderations       map[string]string        `json:"nfrConsiderations"`
	SecurityConsiderations  map[string]string        `json:"securityConsiderations"`
	DeploymentNotes         string                   `json:"deploymentNotes"`
}

// ParseSolutionOutput parses a SolutionArchitect response into a versioned
// DesignDocument. On parse failure it falls back to a single-field design
// carrying the raw content as its overview, so the workflow can still
// proceed with a degraded-but-typed document rather than stall.
func ParseSolutionOutput(raw string, version int) *models.DesignDocument {
	var out SolutionOutputJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return &models.DesignDocument{Version: version, ArchitectureOverview: raw}
	}
	return &models.DesignDocument{
		Version:                version,
		ArchitectureOverview:   out.ArchitectureOverview,
		Components:             out.Components,
		IntegrationPoints:      out.IntegrationPoints,
		NFRConsiderations:      out.NFRConsiderations,
		SecurityConsiderations: out.SecurityConsiderations,
		DeploymentNotes:        out.DeploymentNotes,
	}
}

// AdjudicatorOutputJSON is the shape the Adjudicator performer returns.
type AdjudicatorOutputJSON struct {
	ArchitectureRationale string            `json:"architectureRationale"`
	FinalDecisions        []string          `json:"finalDecisions"`
	FAQEntries            []models.FAQItem `json:"faqEntries"`
}

// ParseAdjudicatorOutput parses the Adjudicator's response, falling back
// to carrying the raw content as the rationale on parse failure.
func ParseAdjudicatorOutput(raw string) AdjudicatorOutputJSON {
	var out AdjudicatorOutputJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return AdjudicatorOutputJSON{ArchitectureRationale: raw}
	}
	if out.ArchitectureRationale == "" {
		out.ArchitectureRationale = raw
	}
	return out
}

// FAQOutputJSON is the shape the FAQ performer returns.
type FAQOutputJSON struct {
	FAQEntries        []models.FAQItem `json:"faqEntries"`
	DecisionRationale string           `json:"decisionRationale"`
	KeyTakeaways      []string         `json:"keyTakeaways"`
}

// ParseFAQOutput parses the FAQ generator's response, falling back to
// carrying the raw content as the decision rationale; ok is false so the
// caller can record a warning.
func ParseFAQOutput(raw string) (FAQOutputJSON, bool) {
	var out FAQOutputJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return FAQOutputJSON{DecisionRationale: raw}, false
	}
	return out, true
}
