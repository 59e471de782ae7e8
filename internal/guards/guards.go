// Package guards implements prompt-injection sanitisation and
// output-leak validation: patterns compiled once at construction,
// fail-open vs fail-closed handling kept explicit per call site.
package guards

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
)

const safetyBannerToken = "SYSTEM-SAFETY-BOUNDARY"

// injectionPatterns catch common prompt-injection phrasing. Compiled once.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (all )?(previous|prior|above) instructions`),
	regexp.MustCompile(`(?i)disregard (the )?(system|safety) prompt`),
	regexp.MustCompile(`(?i)you are now (in )?developer mode`),
	regexp.MustCompile(`(?i)reveal your (system prompt|instructions)`),
}

// Guards sanitises LLM inputs and validates LLM outputs. Stateless aside
// from its compiled-once pattern list, safe for concurrent use.
type Guards struct {
	patterns []*regexp.Regexp
}

// New constructs a Guards instance with the built-in pattern set.
func New() *Guards {
	return &Guards{patterns: injectionPatterns}
}

// SanitiseInput strips/flags suspected prompt-injection phrasing from
// user-supplied text before it is embedded in a prompt.
func (g *Guards) SanitiseInput(text string) string {
	sanitised := text
	for _, p := range g.patterns {
		sanitised = p.ReplaceAllString(sanitised, "[redacted-instruction]")
	}
	return sanitised
}

// PrefixSystemWithSafetyBanner wraps a system prompt with a boundary banner
// whose token must never appear in model output (checked by ValidateOutput).
func (g *Guards) PrefixSystemWithSafetyBanner(systemPrompt string) string {
	return fmt.Sprintf("[%s] %s [/%s]", safetyBannerToken, systemPrompt, safetyBannerToken)
}

// ValidateOutput fails (fail-closed) if the safety banner token leaked
// into the model's response.
func (g *Guards) ValidateOutput(response string) error {
	if strings.Contains(response, safetyBannerToken) {
		return errs.New(errs.KindSafety, "safety banner leaked into model output")
	}
	return nil
}
