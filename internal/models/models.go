// Package models holds the workflow's value objects. All entities are
// JSON-serialisable to a single document per session.
package models

import "time"

// Status is the lifecycle status of a WorkflowState.
type Status string

const (
	StatusPending       Status = "Pending"
	StatusInProgress    Status = "InProgress"
	StatusAwaitingHuman Status = "AwaitingHuman"
	StatusCompleted     Status = "Completed"
	StatusFailed        Status = "Failed"
	StatusCancelled     Status = "Cancelled"
)

// AgentRole identifies a council participant.
type AgentRole string

const (
	RoleMaster             AgentRole = "master"
	RoleSolutionArchitect  AgentRole = "solution_architect"
	RoleAdjudicator        AgentRole = "adjudicator"
	RoleFAQ                AgentRole = "faq"
	RoleReviewerNFR        AgentRole = "reviewer_nfr"
	RoleReviewerSecurity   AgentRole = "reviewer_security"
	RoleReviewerIntegration AgentRole = "reviewer_integration"
	RoleReviewerDomain     AgentRole = "reviewer_domain"
	RoleReviewerOps        AgentRole = "reviewer_ops"
	RoleHuman              AgentRole = "human"
	RoleDebateFacilitator  AgentRole = "debate_facilitator"
)

// Decision is a reviewer's verdict on a design.
type Decision string

const (
	DecisionApprove  Decision = "Approve"
	DecisionReject   Decision = "Reject"
	DecisionRevise   Decision = "Revise"
	DecisionEscalate Decision = "Escalate"
)

// Severity is a concern/review severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DisagreementCategory classifies how a Disagreement was detected.
type DisagreementCategory string

const (
	CategoryDecisionConflict  DisagreementCategory = "decision_conflict"
	CategorySeverityConflict  DisagreementCategory = "severity_conflict"
	// pattern conflicts are "pattern_conflict_<name>", built dynamically.
)

// ToolResult is the uniform shape every Tool execution returns (§4.B).
type ToolResult struct {
	ToolName string         `json:"toolName"`
	Success  bool           `json:"success"`
	Summary  string         `json:"summary"`
	Details  string         `json:"details,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Error    *ToolError     `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolError carries a classified tool failure.
type ToolError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AgentMessage is an append-only record of one agent invocation.
type AgentMessage struct {
	AgentRole   AgentRole     `json:"agentRole"`
	Timestamp   time.Time     `json:"timestamp"`
	Content     string        `json:"content"`
	Success     bool          `json:"success"`
	Decision    *Decision     `json:"decision,omitempty"`
	ToolResults []ToolResult  `json:"toolResults,omitempty"`
}

// Concern is a structured reviewer concern.
type Concern struct {
	Area        string   `json:"area,omitempty"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Text renders the concern as "<area>: <description>" when an area is
// present, else just the description.
func (c Concern) Text() string {
	if c.Area != "" {
		return c.Area + ": " + c.Description
	}
	return c.Description
}

// Suggestion is a structured reviewer suggestion.
type Suggestion struct {
	Area       string `json:"area,omitempty"`
	Suggestion string `json:"suggestion"`
}

// Text renders the suggestion with its area prefix when one is present.
func (s Suggestion) Text() string {
	if s.Area != "" {
		return s.Area + ": " + s.Suggestion
	}
	return s.Suggestion
}

// ReviewFeedback is one reviewer's verdict on the current design (§3).
type ReviewFeedback struct {
	ReviewerRole AgentRole    `json:"reviewerRole"`
	Decision     Decision     `json:"decision"`
	Concerns     []Concern    `json:"concerns"`
	Suggestions  []Suggestion `json:"suggestions"`
	Rationale    string       `json:"rationale"`
	Severity     Severity     `json:"severity"`
}

// ReviewerRoundResult snapshots one complete fan-out of reviews.
type ReviewerRoundResult struct {
	Round         int              `json:"round"`
	Reviews       []ReviewFeedback `json:"reviews"`
	Disagreements []Disagreement   `json:"disagreements,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Disagreement is a typed conflict across a round's reviews (§4.E).
type Disagreement struct {
	ID         string               `json:"id"`
	AgentRoles []AgentRole          `json:"agentRoles"`
	Topic      string               `json:"topic"`
	Positions  map[AgentRole]string `json:"positions"`
	Severity   Severity             `json:"severity"`
	Category   string               `json:"category"`
}

// DebateOutcome is the result of running the DebateEngine on one disagreement (§4.F).
type DebateOutcome struct {
	ID                   string               `json:"id"`
	Disagreement         Disagreement         `json:"disagreement"`
	Rounds               int                  `json:"rounds"`
	RevisedPositions     map[AgentRole]string `json:"revisedPositions"`
	ConsensusReached     bool                 `json:"consensusReached"`
	ResolutionSummary    string               `json:"resolutionSummary"`
	Confidence           float64              `json:"confidence"`
	Timestamp            time.Time            `json:"timestamp"`
	ForcedConsensus      bool                 `json:"forcedConsensus"`
	TimeoutOccurred      bool                 `json:"timeoutOccurred"`
	RepetitionDetected   bool                 `json:"repetitionDetected"`
}

// ConsensusResult is the output of ConsensusEngine.compute (§4.G).
type ConsensusResult struct {
	RoundID               string                `json:"roundID"`
	Agreed                bool                  `json:"agreed"`
	Confidence            float64               `json:"confidence"`
	Summary               string                `json:"summary"`
	DisagreementsResolved []string              `json:"disagreementsResolved"`
	DisagreementsUnresolved []string            `json:"disagreementsUnresolved"`
	VoteBreakdown         map[AgentRole]Decision `json:"voteBreakdown"`
	WeightsApplied        map[AgentRole]float64  `json:"weightsApplied"`
	Threshold             float64               `json:"threshold"`
	Timestamp             time.Time             `json:"timestamp"`
}

// DesignDocument is the solution architect's current design (versioned).
type DesignDocument struct {
	Version                int                      `json:"version"`
	ArchitectureOverview    string                   `json:"architectureOverview"`
	Components              []map[string]any        `json:"components,omitempty"`
	IntegrationPoints       []map[string]any        `json:"integrationPoints,omitempty"`
	NFRConsiderations       map[string]string        `json:"nfrConsiderations,omitempty"`
	SecurityConsiderations  map[string]string        `json:"securityConsiderations,omitempty"`
	DeploymentNotes         string                   `json:"deploymentNotes,omitempty"`
}

// FAQItem is a single frequently-asked-question entry.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// DecisionRecord is an ADR-style record emitted by the deliverables builder.
type DecisionRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Context      string `json:"context"`
	Decision     string `json:"decision"`
	Rationale    string `json:"rationale"`
	Consequences string `json:"consequences"`
}

// RiskItem is a risk entry emitted by the deliverables builder.
type RiskItem struct {
	ID          string   `json:"id"`
	Area        string   `json:"area"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Mitigation  string   `json:"mitigation"`
}

// DiagramDescriptor carries either an external URL or a fallback text source.
type DiagramDescriptor struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	ExternalURL string `json:"externalURL,omitempty"`
	FallbackSource string `json:"fallbackSource,omitempty"`
}

// ArchitectureSummary is the headline section of a DeliverablesBundle.
type ArchitectureSummary struct {
	Overview                 string   `json:"overview"`
	KeyCapabilities          []string `json:"keyCapabilities"`
	NonFunctionalHighlights  []string `json:"nonFunctionalHighlights"`
}

// DeliverablesBundle is the terminal artefact of a completed workflow (§3, §4.J).
type DeliverablesBundle struct {
	SessionID          string                `json:"sessionID"`
	ArchitectureSummary ArchitectureSummary  `json:"architectureSummary"`
	Decisions          []DecisionRecord      `json:"decisions"`
	Risks              []RiskItem            `json:"risks"`
	FAQs               []FAQItem             `json:"faqs"`
	Diagrams           []DiagramDescriptor   `json:"diagrams"`
	MarkdownReport     string                `json:"markdownReport"`
	GeneratedAt        time.Time             `json:"generatedAt"`
	WorkflowVersion    string                `json:"workflowVersion"`
	IncludesToolInsights bool                `json:"includesToolInsights"`
	DemoMode           bool                  `json:"demoMode"`
}

// ChatMessage is a follow-up chat turn on a completed session (supplemented feature).
type ChatMessage struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries the state's auxiliary scalar/flag fields (§3).
type Metadata struct {
	AdjudicatorRunCount int      `json:"adjudicatorRunCount"`
	KeyTakeaways        []string `json:"keyTakeaways,omitempty"`
	ForcedConsensusEvents []string `json:"forcedConsensusEvents,omitempty"`
	HumanApproved       bool     `json:"humanApproved,omitempty"`
	ChatHistory         []ChatMessage `json:"chatHistory,omitempty"`
}

// WorkflowState is the single source of truth for one council session (§3).
type WorkflowState struct {
	SessionID       string         `json:"sessionID"`
	UserRequest     string         `json:"userRequest"`
	UserContext     map[string]any `json:"userContext,omitempty"`
	Status          Status         `json:"status"`
	CurrentNode     string         `json:"currentNode"`
	CurrentAgent    AgentRole      `json:"currentAgent,omitempty"`

	Messages         []AgentMessage         `json:"messages"`
	Reviews          []ReviewFeedback       `json:"reviews"`
	ReviewerRounds   []ReviewerRoundResult  `json:"reviewerRounds"`
	Debates          []DebateOutcome        `json:"debates"`
	ConsensusHistory []ConsensusResult      `json:"consensusHistory"`

	CurrentDesign *DesignDocument `json:"currentDesign,omitempty"`
	FinalDesign   *DesignDocument `json:"finalDesign,omitempty"`

	RevisionCount int `json:"revisionCount"`
	MaxRevisions  int `json:"maxRevisions"`
	CurrentRound  int `json:"currentRound"`

	RequiresAdjudication bool `json:"requiresAdjudication"`
	AdjudicationComplete bool `json:"adjudicationComplete"`

	FinalArchitectureRationale string    `json:"finalArchitectureRationale,omitempty"`
	FAQEntries                 []FAQItem `json:"faqEntries,omitempty"`
	DecisionRationale          string    `json:"decisionRationale,omitempty"`

	Metadata Metadata `json:"metadata"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Deliverables *DeliverablesBundle `json:"deliverables,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy for handoff to a reader goroutine: the top-level
// history slices and the CurrentDesign, FinalDesign and Deliverables
// values are copied. Maps and slices held inside those copies, and the
// state's other map and slice fields, are shared with the original.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = append([]AgentMessage(nil), s.Messages...)
	cp.Reviews = append([]ReviewFeedback(nil), s.Reviews...)
	cp.ReviewerRounds = append([]ReviewerRoundResult(nil), s.ReviewerRounds...)
	cp.Debates = append([]DebateOutcome(nil), s.Debates...)
	cp.ConsensusHistory = append([]ConsensusResult(nil), s.ConsensusHistory...)
	cp.Errors = append([]string(nil), s.Errors...)
	cp.Warnings = append([]string(nil), s.Warnings...)
	if s.CurrentDesign != nil {
		d := *s.CurrentDesign
		cp.CurrentDesign = &d
	}
	if s.FinalDesign != nil {
		d := *s.FinalDesign
		cp.FinalDesign = &d
	}
	if s.Deliverables != nil {
		d := *s.Deliverables
		cp.Deliverables = &d
	}
	return &cp
}

// SessionSummary is the lightweight projection returned by ListSessions.
type SessionSummary struct {
	SessionID string    `json:"sessionID"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
