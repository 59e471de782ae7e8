// Package modelselect maps a task description, agent role, and context
// size to a model tier through an ordered rule list: first match wins.
package modelselect

import "strings"

// Tier is an abstract model capability tier.
type Tier string

const (
	TierHighPlus Tier = "High+"
	TierHigh     Tier = "High"
	TierMid      Tier = "Mid"
	TierLow      Tier = "Low"
)

// contextWindow is the maximum input tokens each tier supports, used by
// ValidateContext.
var contextWindow = map[Tier]int{
	TierHighPlus: 2_000_000,
	TierHigh:     2_000_000,
	TierMid:      1_000_000,
	TierLow:      1_000_000,
}

var securityKeywords = []string{
	"security", "governance", "policy", "compliance", "audit", "gdpr",
	"hipaa", "sox", "pci", "encryption", "authentication", "authorization",
	"vulnerability", "penetration", "threat",
}

var architectureKeywords = []string{
	"architecture", "integration", "nfr", "high volume", "scalability",
	"distributed", "microservices", "enterprise", "multi-tenant",
	"performance optimization", "load balancing", "caching strategy",
	"disaster recovery", "high availability", "fault tolerance",
}

var simpleKeywords = []string{
	"review", "feedback", "quick", "polish", "summary", "list",
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// EstimateTokens approximates token count as len(text)/4.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Select walks the ordered rules and returns the first matching tier.
// role and contextTokens are optional (zero-value role string and
// contextTokens <= 0 are treated as "not provided").
func Select(description string, role string, contextTokens int) Tier {
	desc := strings.ToLower(description)
	roleLower := strings.ToLower(role)
	descLen := len(description)

	// Rule 1: very large context forces High.
	if contextTokens > 1_000_000 {
		return TierHigh
	}

	// Rule 2: security/governance/compliance keywords force High+.
	if containsAny(desc, securityKeywords) {
		return TierHighPlus
	}

	// Rule 3: architecture/scalability keywords force High.
	if containsAny(desc, architectureKeywords) {
		return TierHigh
	}

	// Rule 4: role-based overrides.
	if roleLower != "" {
		if strings.Contains(roleLower, "master") ||
			strings.Contains(roleLower, "solution_architect") ||
			strings.Contains(roleLower, "adjudicator") {
			return TierHigh
		}
		if strings.Contains(roleLower, "security") {
			return TierHighPlus
		}
		if strings.Contains(roleLower, "suggestion") ||
			strings.Contains(roleLower, "faq") ||
			strings.Contains(roleLower, "quick") {
			return TierLow
		}
	}

	// Rule 5: long descriptions need the stronger tier.
	if descLen > 400 {
		return TierHigh
	}

	// Rule 6: short, simple-task descriptions get the cheapest tier.
	if descLen < 200 && containsAny(desc, simpleKeywords) {
		return TierLow
	}

	// Rule 7: default.
	return TierMid
}

// ValidateContext refuses a tier whose context window is below tokens.
func ValidateContext(tier Tier, tokens int) bool {
	window, ok := contextWindow[tier]
	if !ok {
		return false
	}
	return tokens <= window
}
