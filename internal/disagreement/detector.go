// Package disagreement finds typed conflicts across a round's reviews:
// decision conflicts, opposing-pattern conflicts, and severity conflicts.
package disagreement

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// Detect runs the three independent sub-detectors and concatenates their
// output. Returns empty if fewer than 2 reviews are supplied.
func Detect(reviews []models.ReviewFeedback) []models.Disagreement {
	if len(reviews) < 2 {
		return nil
	}

	var out []models.Disagreement
	out = append(out, detectDecisionConflicts(reviews)...)
	out = append(out, detectPatternConflicts(reviews)...)
	out = append(out, detectConcernSeverityConflicts(reviews)...)
	if len(out) > 0 {
		slog.Info("Disagreements detected", "reviews", len(reviews), "disagreements", len(out))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func detectDecisionConflicts(reviews []models.ReviewFeedback) []models.Disagreement {
	var approvals, revisionsOrRejections bool
	for _, r := range reviews {
		switch r.Decision {
		case models.DecisionApprove:
			approvals = true
		case models.DecisionRevise, models.DecisionReject:
			revisionsOrRejections = true
		}
	}
	if !approvals || !revisionsOrRejections {
		return nil
	}

	roles := make([]models.AgentRole, 0, len(reviews))
	positions := make(map[models.AgentRole]string, len(reviews))
	for _, r := range reviews {
		roles = append(roles, r.ReviewerRole)
		positions[r.ReviewerRole] = string(r.Decision) + ": " + truncate(r.Rationale, 100) + "..."
	}

	return []models.Disagreement{{
		ID:         uuid.NewString(),
		AgentRoles: roles,
		Topic:      "Overall Design Approval",
		Positions:  positions,
		Severity:   AnalyzeConflictSeverity(reviews),
		Category:   string(models.CategoryDecisionConflict),
	}}
}

// reviewText concatenates a single review's suggestions then concerns,
// lower-cased, for keyword scanning.
func reviewText(r models.ReviewFeedback) string {
	parts := make([]string, 0, len(r.Suggestions)+len(r.Concerns))
	for _, s := range r.Suggestions {
		parts = append(parts, s.Text())
	}
	for _, c := range r.Concerns {
		parts = append(parts, c.Text())
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func detectPatternConflicts(reviews []models.ReviewFeedback) []models.Disagreement {
	reviewTexts := make([]string, len(reviews))
	var allTextParts []string
	for i, r := range reviews {
		reviewTexts[i] = reviewText(r)
		allTextParts = append(allTextParts, reviewTexts[i])
	}
	allText := strings.Join(allTextParts, " ")

	var out []models.Disagreement
	for _, patternName := range patternOrder {
		sides := opposingPatterns[patternName]

		// sidesDetected: sideName -> ordered list of distinct roles that
		// mentioned any keyword on that side.
		sidesDetected := make(map[string][]models.AgentRole)
		sideOrder := []string{}

		for i, sideName := range sides.sideNames {
			for _, keyword := range sides.sideWords[i] {
				if !strings.Contains(allText, keyword) {
					continue
				}
				for j, r := range reviews {
					if !strings.Contains(reviewTexts[j], keyword) {
						continue
					}
					if _, ok := sidesDetected[sideName]; !ok {
						sideOrder = append(sideOrder, sideName)
					}
					if !containsRole(sidesDetected[sideName], r.ReviewerRole) {
						sidesDetected[sideName] = append(sidesDetected[sideName], r.ReviewerRole)
					}
				}
			}
		}

		if len(sidesDetected) < 2 {
			continue
		}

		// side_agents: agent -> ordered list of sides it was seen on.
		agentOrder := []models.AgentRole{}
		agentSides := make(map[models.AgentRole][]string)
		for _, sideName := range sideOrder {
			for _, agent := range sidesDetected[sideName] {
				if _, ok := agentSides[agent]; !ok {
					agentOrder = append(agentOrder, agent)
				}
				agentSides[agent] = append(agentSides[agent], sideName)
			}
		}

		// The roles named on the disagreement are the first two detected
		// sides' agent lists concatenated; a role arguing both sides
		// appears once per side it was seen on.
		var agentRoles []models.AgentRole
		agentRoles = append(agentRoles, sidesDetected[sideOrder[0]]...)
		agentRoles = append(agentRoles, sidesDetected[sideOrder[1]]...)

		positions := make(map[models.AgentRole]string, len(agentOrder))
		for _, agent := range agentOrder {
			positions[agent] = "Recommends " + agentSides[agent][0]
		}

		out = append(out, models.Disagreement{
			ID:         uuid.NewString(),
			AgentRoles: agentRoles,
			Topic:      "Technical Approach: " + titleCaseUnderscored(patternName),
			Positions:  positions,
			Severity:   models.SeverityMedium,
			Category:   "pattern_conflict_" + patternName,
		})
	}
	return out
}

func containsRole(roles []models.AgentRole, role models.AgentRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func titleCaseUnderscored(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type concernOccurrence struct {
	role     models.AgentRole
	severity models.Severity
}

func detectConcernSeverityConflicts(reviews []models.ReviewFeedback) []models.Disagreement {
	concernOrder := []string{}
	concernMap := make(map[string][]concernOccurrence)
	originalText := make(map[string]string)

	for _, r := range reviews {
		for _, c := range r.Concerns {
			text := c.Text()
			lower := strings.ToLower(text)
			if _, ok := concernMap[lower]; !ok {
				concernOrder = append(concernOrder, lower)
				originalText[lower] = text
			}
			concernMap[lower] = append(concernMap[lower], concernOccurrence{role: r.ReviewerRole, severity: r.Severity})
		}
	}

	var out []models.Disagreement
	for _, concern := range concernOrder {
		occurrences := concernMap[concern]
		if len(occurrences) < 2 {
			continue
		}
		severitySet := make(map[models.Severity]bool)
		for _, o := range occurrences {
			severitySet[o.severity] = true
		}
		if len(severitySet) <= 1 {
			continue
		}

		roles := make([]models.AgentRole, 0, len(occurrences))
		positions := make(map[models.AgentRole]string, len(occurrences))
		for _, o := range occurrences {
			roles = append(roles, o.role)
			positions[o.role] = "Severity: " + string(o.severity)
		}

		out = append(out, models.Disagreement{
			ID:         uuid.NewString(),
			AgentRoles: roles,
			Topic:      "Severity Assessment: " + truncate(originalText[concern], 50) + "...",
			Positions:  positions,
			Severity:   models.SeverityLow,
			Category:   string(models.CategorySeverityConflict),
		})
	}
	return out
}

// AnalyzeConflictSeverity derives a conflict's severity from the reviews
// involved: any critical → critical; else >=2 high → high; else (>=1
// high or >=2 medium) → medium; else low.
func AnalyzeConflictSeverity(reviews []models.ReviewFeedback) models.Severity {
	var critical, high, medium int
	for _, r := range reviews {
		switch r.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		}
	}
	switch {
	case critical > 0:
		return models.SeverityCritical
	case high > 1:
		return models.SeverityHigh
	case high > 0 || medium > 1:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
