// Package deliverables turns a terminal WorkflowState into the final
// architecture bundle: summary, ADR-style decision records, risks, FAQs,
// diagrams, and an assembled markdown report. The transform is pure and
// deterministic, so rebuilding from the same state yields the same
// counts and section layout.
package deliverables

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// WorkflowVersion is stamped into every bundle this builder produces.
const WorkflowVersion = "1.0"

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Build transforms a terminal WorkflowState into a DeliverablesBundle.
// demoMode forces every diagram to its fallback text source.
func Build(state *models.WorkflowState, demoMode bool) models.DeliverablesBundle {
	summary := buildArchitectureSummary(state)
	decisions := buildDecisionRecords(state)
	risks := buildRisks(state)
	faqs := buildFAQs(state)
	diagrams := buildDiagrams(state, demoMode)

	bundle := models.DeliverablesBundle{
		SessionID:            state.SessionID,
		ArchitectureSummary:  summary,
		Decisions:            decisions,
		Risks:                risks,
		FAQs:                 faqs,
		Diagrams:             diagrams,
		GeneratedAt:          time.Now().UTC(),
		WorkflowVersion:      WorkflowVersion,
		IncludesToolInsights: false,
		DemoMode:             demoMode,
	}
	bundle.MarkdownReport = assembleMarkdownReport(bundle)

	slog.Info("Deliverables bundle built",
		"session_id", state.SessionID, "decisions", len(decisions),
		"risks", len(risks), "faqs", len(faqs), "diagrams", len(diagrams),
		"report_bytes", len(bundle.MarkdownReport), "demo_mode", demoMode)
	return bundle
}

var defaultCapabilities = []string{
	"Multi-system integration",
	"Secure API gateway",
	"Data transformation and routing",
	"Error handling and retry logic",
}

var defaultNFRHighlights = []string{
	"Scalability: supports horizontal scaling for high throughput",
	"Availability: 99.9% uptime with automated failover",
	"Security: OAuth 2.0, TLS encryption, API key management",
	"Performance: sub-500ms response times for standard operations",
}

func buildArchitectureSummary(state *models.WorkflowState) models.ArchitectureSummary {
	overview := ""
	switch {
	case state.FinalArchitectureRationale != "":
		overview = state.FinalArchitectureRationale
	case state.CurrentDesign != nil && state.CurrentDesign.ArchitectureOverview != "":
		overview = state.CurrentDesign.ArchitectureOverview
	default:
		overview = "Architecture solution for: " + truncate(state.UserRequest, 200)
	}

	var capabilities []string
	if state.CurrentDesign != nil {
		for _, c := range state.CurrentDesign.Components {
			if name, ok := c["name"].(string); ok && name != "" {
				capabilities = append(capabilities, name)
			}
		}
		for _, ip := range state.CurrentDesign.IntegrationPoints {
			if name, ok := ip["name"].(string); ok && name != "" {
				capabilities = append(capabilities, "Integration: "+name)
			}
		}
	}
	if len(capabilities) == 0 {
		capabilities = append([]string(nil), defaultCapabilities...)
	}
	if len(capabilities) > 8 {
		capabilities = capabilities[:8]
	}

	var nfrHighlights []string
	if state.CurrentDesign != nil {
		for _, entry := range sortedEntries(state.CurrentDesign.NFRConsiderations) {
			nfrHighlights = append(nfrHighlights, fmt.Sprintf("%s: %s", titleCase(entry.K), entry.V))
		}
		for _, entry := range sortedEntries(state.CurrentDesign.SecurityConsiderations) {
			nfrHighlights = append(nfrHighlights, fmt.Sprintf("Security - %s: %s", titleCase(entry.K), entry.V))
		}
	}
	if len(nfrHighlights) < 4 {
		for _, d := range defaultNFRHighlights {
			if len(nfrHighlights) >= 4 {
				break
			}
			nfrHighlights = append(nfrHighlights, d)
		}
	}
	if len(nfrHighlights) > 6 {
		nfrHighlights = nfrHighlights[:6]
	}

	return models.ArchitectureSummary{
		Overview:                overview,
		KeyCapabilities:         capabilities,
		NonFunctionalHighlights: nfrHighlights,
	}
}

// sortedEntries returns a map's entries as ordered key/value pairs so
// output is deterministic across Go's randomised map iteration.
func sortedEntries(m map[string]string) []kv {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	out := make([]kv, 0, len(keys))
	for _, k := range keys {
		out = append(out, kv{k, m[k]})
	}
	return out
}

type kv struct{ K, V string }

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func buildDecisionRecords(state *models.WorkflowState) []models.DecisionRecord {
	var decisions []models.DecisionRecord
	next := func() string {
		return fmt.Sprintf("ADR-%03d", len(decisions)+1)
	}

	if state.FinalArchitectureRationale != "" {
		decisions = append(decisions, models.DecisionRecord{
			ID:      next(),
			Title:   "Final Architecture Pattern Selection",
			Context: fmt.Sprintf("User requested: %s. Multiple agent reviews and potential debates occurred.", truncate(state.UserRequest, 200)),
			Decision: "Final architecture approved by Architect Adjudicator",
			Rationale:    truncate(state.FinalArchitectureRationale, 500),
			Consequences: "Architecture aligns with best practices, security requirements, and NFRs. Implementation can proceed with confidence.",
		})
	}

	debates := state.Debates
	if len(debates) > 3 {
		debates = debates[:3]
	}
	for _, d := range debates {
		topic := d.Disagreement.Topic
		if topic == "" {
			topic = "Debate topic"
		}
		achieved := "No"
		if d.ConsensusReached {
			achieved = "Yes"
		}
		rationale := d.ResolutionSummary
		if rationale == "" {
			rationale = "Resolved through agent debate cycle"
		}
		decisions = append(decisions, models.DecisionRecord{
			ID:           next(),
			Title:        "Resolution: " + topic,
			Context:      "Disagreement between reviewers on: " + topic,
			Decision:     "Consensus reached: " + achieved,
			Rationale:    truncate(rationale, 500),
			Consequences: fmt.Sprintf("Design updated to address %s. Confidence: %.2f", topic, d.Confidence),
		})
	}

	if len(state.ConsensusHistory) > 0 {
		latest := state.ConsensusHistory[len(state.ConsensusHistory)-1]
		achieved := "not achieved"
		next2 := "Further review recommended."
		if latest.Agreed {
			achieved = "achieved"
			next2 = "Proceed with implementation."
		}
		rationale := latest.Summary
		if rationale == "" {
			rationale = "Weighted consensus computed across all reviewer agents"
		}
		decisions = append(decisions, models.DecisionRecord{
			ID:           next(),
			Title:        "Overall Agent Council Consensus",
			Context:      fmt.Sprintf("After %d review round(s), agents evaluated the architecture", state.CurrentRound),
			Decision:     "Consensus " + achieved,
			Rationale:    truncate(rationale, 500),
			Consequences: fmt.Sprintf("Confidence level: %.2f. %s", latest.Confidence, next2),
		})
	}

	if state.CurrentDesign != nil && len(state.CurrentDesign.IntegrationPoints) > 0 {
		decisions = append(decisions, models.DecisionRecord{
			ID:           next(),
			Title:        "Integration Pattern Selection",
			Context:      "Multiple integration options considered for system connectivity",
			Decision:     fmt.Sprintf("%d integration point(s) defined", len(state.CurrentDesign.IntegrationPoints)),
			Rationale:    "Selected pattern optimizes for maintainability, security, and performance.",
			Consequences: "Clear integration contracts defined. APIs documented. Security policies applied at each integration point.",
		})
	}

	if state.CurrentDesign != nil && state.CurrentDesign.DeploymentNotes != "" {
		decisions = append(decisions, models.DecisionRecord{
			ID:           next(),
			Title:        "Deployment Architecture",
			Context:      "Deployment model must support NFRs and operational requirements",
			Decision:     "Deployment strategy defined",
			Rationale:    truncate(state.CurrentDesign.DeploymentNotes, 300),
			Consequences: "Deployment approach enables scalability, monitoring, and operational excellence.",
		})
	}

	fallbackDecisions := []models.DecisionRecord{
		{
			Title:        "API-First Architecture Approach",
			Context:      "System requires integration with multiple external systems and future extensibility",
			Decision:     "Adopt API-first design with RESTful interfaces and comprehensive API management",
			Rationale:    "API-first approach enables loose coupling, independent scaling, and clear contracts between systems.",
			Consequences: "All integrations go through a managed API layer. Enables monitoring, security policies, and rate limiting.",
		},
		{
			Title:        "Layered Security Model",
			Context:      "Sensitive data flows across system boundaries and must be protected end to end",
			Decision:     "Apply defence in depth: authenticated APIs, encrypted transport, and least-privilege service accounts",
			Rationale:    "A single security control is a single point of failure; layering limits the blast radius of any one compromise.",
			Consequences: "Every new integration inherits the same security baseline without per-project design work.",
		},
	}
	for _, d := range fallbackDecisions {
		if len(decisions) >= 2 {
			break
		}
		d.ID = next()
		decisions = append(decisions, d)
	}

	return decisions
}

func buildRisks(state *models.WorkflowState) []models.RiskItem {
	var risks []models.RiskItem
	next := func() string {
		return fmt.Sprintf("RISK-%03d", len(risks)+1)
	}

	for _, r := range state.Reviews {
		if r.Severity != models.SeverityHigh && r.Severity != models.SeverityCritical {
			continue
		}
		concerns := r.Concerns
		if len(concerns) > 2 {
			concerns = concerns[:2]
		}
		for _, c := range concerns {
			mitigation := "Review and address during implementation phase"
			if len(r.Suggestions) > 0 {
				mitigation = r.Suggestions[0].Text()
			}
			risks = append(risks, models.RiskItem{
				ID:          next(),
				Area:        string(r.ReviewerRole),
				Description: c.Text(),
				Severity:    r.Severity,
				Mitigation:  mitigation,
			})
		}
	}

	containsAny := func(words ...string) bool {
		for _, r := range risks {
			lower := strings.ToLower(r.Description)
			for _, w := range words {
				if strings.Contains(lower, w) {
					return true
				}
			}
		}
		return false
	}

	if !containsAny("integration") {
		risks = append(risks, models.RiskItem{
			ID:          next(),
			Area:        "integration_architect",
			Description: "Integration point failures or timeouts could impact system availability",
			Severity:    models.SeverityHigh,
			Mitigation:  "Implement circuit breakers, retry logic with exponential backoff, and fallback mechanisms at each integration point.",
		})
	}
	if !containsAny("security", "auth") {
		risks = append(risks, models.RiskItem{
			ID:          next(),
			Area:        "security_architect",
			Description: "Unauthorized access to APIs or sensitive data exposure",
			Severity:    models.SeverityCritical,
			Mitigation:  "Enforce OAuth 2.0, API key rotation, TLS 1.2+, input validation, and rate limiting on all endpoints.",
		})
	}
	if !containsAny("performance", "scale") {
		risks = append(risks, models.RiskItem{
			ID:          next(),
			Area:        "platform_architect",
			Description: "System may not meet performance SLAs under peak load conditions",
			Severity:    models.SeverityHigh,
			Mitigation:  "Conduct load testing, implement caching strategies, enable auto-scaling, and optimize database queries.",
		})
	}
	if !containsAny("data") {
		risks = append(risks, models.RiskItem{
			ID:          next(),
			Area:        "integration_architect",
			Description: "Data inconsistencies or format mismatches between integrated systems",
			Severity:    models.SeverityMedium,
			Mitigation:  "Implement comprehensive data validation, transformation rules, error handling, and data quality monitoring.",
		})
	}

	if len(risks) > 6 {
		risks = risks[:6]
	}
	return risks
}

func buildFAQs(state *models.WorkflowState) []models.FAQItem {
	var faqs []models.FAQItem

	if state.FinalArchitectureRationale != "" {
		faqs = append(faqs, models.FAQItem{
			Question: "Why was this architecture approach selected?",
			Answer:   truncate(state.FinalArchitectureRationale, 400),
		})
	}

	debates := state.Debates
	if len(debates) > 2 {
		debates = debates[:2]
	}
	for _, d := range debates {
		topic := d.Disagreement.Topic
		if topic == "" {
			topic = "this issue"
		}
		answer := d.ResolutionSummary
		if answer == "" {
			answer = "Resolved through agent consensus"
		}
		faqs = append(faqs, models.FAQItem{
			Question: "Why was " + topic + " decided this way?",
			Answer:   truncate(answer, 400),
		})
	}

	existing := state.FAQEntries
	if len(existing) > 3 {
		existing = existing[:3]
	}
	faqs = append(faqs, existing...)

	if state.CurrentDesign != nil && len(state.CurrentDesign.IntegrationPoints) > 0 {
		faqs = append(faqs, models.FAQItem{
			Question: "How are external systems integrated?",
			Answer: fmt.Sprintf("Architecture includes %d integration point(s) using an API-first pattern. "+
				"Each integration has defined contracts, security policies, and error handling.",
				len(state.CurrentDesign.IntegrationPoints)),
		})
	}

	if state.CurrentDesign != nil && len(state.CurrentDesign.SecurityConsiderations) > 0 {
		var parts []string
		for _, e := range sortedEntries(state.CurrentDesign.SecurityConsiderations) {
			if len(parts) >= 2 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s: %s", e.K, e.V))
		}
		answer := strings.Join(parts, ". ")
		if answer == "" {
			answer = "OAuth 2.0 authentication, TLS encryption, API key management, and input validation applied throughout."
		}
		faqs = append(faqs, models.FAQItem{Question: "How is security handled?", Answer: answer})
	}

	if state.CurrentDesign != nil && len(state.CurrentDesign.NFRConsiderations) > 0 {
		var parts []string
		for _, e := range sortedEntries(state.CurrentDesign.NFRConsiderations) {
			if len(parts) >= 2 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s: %s", e.K, e.V))
		}
		answer := strings.Join(parts, ". ")
		if answer == "" {
			answer = "Scalability, availability (99.9%), performance (sub-500ms), and maintainability prioritized."
		}
		faqs = append(faqs, models.FAQItem{Question: "What are the key non-functional requirements?", Answer: answer})
	}

	fallbackFAQs := []models.FAQItem{
		{
			Question: "What deployment model is recommended?",
			Answer:   "A managed cloud runtime with auto-scaling, multi-region redundancy, and managed services for databases and messaging.",
		},
		{
			Question: "How is monitoring and observability handled?",
			Answer:   "Structured logging, custom dashboards, alerting on SLA thresholds, and integration with enterprise monitoring tools.",
		},
		{
			Question: "How does the architecture scale as load grows?",
			Answer:   "Stateless services scale horizontally behind the API layer; data stores scale through read replicas and partitioning.",
		},
	}
	for _, f := range fallbackFAQs {
		if len(faqs) >= 3 {
			break
		}
		faqs = append(faqs, f)
	}

	if len(faqs) > 8 {
		faqs = faqs[:8]
	}
	return faqs
}

func buildDiagrams(state *models.WorkflowState, demoMode bool) []models.DiagramDescriptor {
	fallback := func(kind string) string {
		switch kind {
		case "context":
			return "graph TB\n" +
				"  subgraph external[External Systems]\n    client[Client Systems]\n  end\n" +
				"  subgraph core[" + truncate(state.UserRequest, 30) + "]\n    sys[Target System]\n  end\n" +
				"  client --> sys"
		case "integration_flow":
			return "graph LR\n  A[Source System] --> B[API Gateway] --> C[Transformation] --> D[Target System]"
		case "deployment":
			return "graph TB\n  subgraph runtime[Runtime]\n    A[API Gateway]\n    B[Services]\n  end\n  A --> B"
		case "sequence":
			return "sequenceDiagram\n  Client->>Gateway: Request\n  Gateway->>Service: Route\n  Service-->>Gateway: Response\n  Gateway-->>Client: Response"
		}
		return ""
	}

	// No external diagram-rendering service is wired, so every descriptor
	// carries the fallback text source; demoMode is still recorded on the
	// bundle for a consumer that later adds a live renderer.
	descriptor := func(kind, title string) models.DiagramDescriptor {
		return models.DiagramDescriptor{Kind: kind, Title: title, FallbackSource: fallback(kind)}
	}
	_ = demoMode

	diagrams := []models.DiagramDescriptor{
		descriptor("context", "System Context Diagram"),
		descriptor("integration_flow", "Integration Flow Diagram"),
		descriptor("deployment", "Deployment Architecture"),
	}

	if state.CurrentDesign != nil && len(state.CurrentDesign.IntegrationPoints) > 0 {
		diagrams = append(diagrams, descriptor("sequence", "Integration Sequence Diagram"))
	}

	return diagrams
}

func assembleMarkdownReport(bundle models.DeliverablesBundle) string {
	var b strings.Builder

	b.WriteString("# Architecture Deliverables\n\n")
	fmt.Fprintf(&b, "**Session ID:** %s\n", bundle.SessionID)
	fmt.Fprintf(&b, "**Generated:** %s\n", bundle.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Workflow Version:** %s\n\n---\n\n", bundle.WorkflowVersion)

	b.WriteString("## Architecture Summary\n\n")
	b.WriteString(bundle.ArchitectureSummary.Overview)
	b.WriteString("\n\n### Key Capabilities\n\n")
	for _, c := range bundle.ArchitectureSummary.KeyCapabilities {
		fmt.Fprintf(&b, "* %s\n", c)
	}
	b.WriteString("\n### Non-Functional Highlights\n\n")
	for _, n := range bundle.ArchitectureSummary.NonFunctionalHighlights {
		fmt.Fprintf(&b, "* %s\n", n)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Key Design Decisions\n\n")
	for _, d := range bundle.Decisions {
		fmt.Fprintf(&b, "### %s: %s\n\n", d.ID, d.Title)
		fmt.Fprintf(&b, "**Context:** %s\n\n", d.Context)
		fmt.Fprintf(&b, "**Decision:** %s\n\n", d.Decision)
		fmt.Fprintf(&b, "**Rationale:** %s\n\n", d.Rationale)
		fmt.Fprintf(&b, "**Consequences:** %s\n\n", d.Consequences)
	}
	b.WriteString("---\n\n")

	b.WriteString("## Risks & Mitigations\n\n")
	b.WriteString("| Risk ID | Description | Severity | Mitigation |\n")
	b.WriteString("|---------|-------------|----------|------------|\n")
	for _, r := range bundle.Risks {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", r.ID, truncate(r.Description, 80), r.Severity, truncate(r.Mitigation, 80))
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## FAQ\n\n")
	for i, f := range bundle.FAQs {
		fmt.Fprintf(&b, "### Q%d: %s\n\n**A:** %s\n\n", i+1, f.Question, f.Answer)
	}
	b.WriteString("---\n\n")

	b.WriteString("## Architecture Diagrams\n\n")
	for _, d := range bundle.Diagrams {
		fmt.Fprintf(&b, "### %s\n\n**Type:** %s\n\n", d.Title, d.Kind)
		if d.ExternalURL != "" {
			fmt.Fprintf(&b, "**Diagram:** [Open](%s)\n\n", d.ExternalURL)
		} else if d.FallbackSource != "" {
			b.WriteString("**Diagram Source:**\n\n```\n")
			b.WriteString(d.FallbackSource)
			b.WriteString("\n```\n\n")
		}
	}

	return b.String()
}
