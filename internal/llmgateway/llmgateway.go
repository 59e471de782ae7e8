// Package llmgateway wraps a pluggable LLM Provider with input
// sanitisation, output-leak validation, a JSON-mode parsing contract,
// and retry with exponential backoff over classified error kinds. No
// vendor SDK appears here; concrete backends implement Provider.
package llmgateway

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/guards"
)

// Request is one generation call.
type Request struct {
	SystemPrompt string
	Prompt       string
	Temperature  float32
	MaxTokens    int32
	JSONMode     bool
	// Model optionally names the selected model tier/identifier. A
	// Provider that only serves one backend may ignore it.
	Model string
}

// Response is a completed generation.
type Response struct {
	Content   string
	ModelName string
}

// Provider is a single LLM backend. The gateway never depends on a
// specific vendor SDK; the offline EchoProvider is the one concrete
// implementation shipped in-repo.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
	ModelName() string
}

// RetryConfig controls the exponential-backoff retry loop.
type RetryConfig struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig is three attempts with backoff between 2s and 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, MinBackoff: 2 * time.Second, MaxBackoff: 10 * time.Second}
}

// Gateway wraps a Provider with input sanitisation, output-leak validation,
// and retry/backoff over the provider's classified error kinds.
type Gateway struct {
	provider Provider
	guards   *guards.Guards
	retry    RetryConfig
}

// New constructs a Gateway over the given Provider.
func New(provider Provider, g *guards.Guards, retry RetryConfig) *Gateway {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	if g == nil {
		g = guards.New()
	}
	return &Gateway{provider: provider, guards: g, retry: retry}
}

// Generate performs a Guards-wrapped, retried generation call.
func (gw *Gateway) Generate(ctx context.Context, req Request) (Response, error) {
	req.Prompt = gw.guards.SanitiseInput(req.Prompt)
	if req.SystemPrompt != "" {
		req.SystemPrompt = gw.guards.PrefixSystemWithSafetyBanner(req.SystemPrompt)
	}

	var lastErr error
	for attempt := 0; attempt < gw.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := gw.backoffFor(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Response{}, errs.Wrap(errs.KindTimeout, "generation cancelled during backoff", ctx.Err())
			}
		}

		resp, err := gw.provider.Generate(ctx, req)
		if err == nil {
			if validateErr := gw.guards.ValidateOutput(resp.Content); validateErr != nil {
				return Response{}, validateErr
			}
			if resp.ModelName == "" {
				resp.ModelName = gw.provider.ModelName()
			}
			return resp, nil
		}

		lastErr = err
		if !errs.IsRetryable(err) {
			return Response{}, err
		}
	}
	return Response{}, errs.Wrap(errs.KindProvider, "generation failed after retries", lastErr)
}

// GenerateJSON performs a JSON-mode generation and unmarshals the result
// into out. A malformed response is a KindParse error, never retried;
// the model produced text, it just wasn't valid JSON.
func (gw *Gateway) GenerateJSON(ctx context.Context, req Request, out any) error {
	req.JSONMode = true
	resp, err := gw.Generate(ctx, req)
	if err != nil {
		return err
	}
	content := extractJSONBody(resp.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return errs.Wrap(errs.KindParse, "model response was not valid JSON", err)
	}
	return nil
}

// backoffFor computes attempt N's delay: multiplier=1, clamped to [min,max],
// doubling per attempt (tenacity's wait_exponential default base 2).
func (gw *Gateway) backoffFor(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * gw.retry.MinBackoff
	if d > gw.retry.MaxBackoff {
		d = gw.retry.MaxBackoff
	}
	if d < gw.retry.MinBackoff {
		d = gw.retry.MinBackoff
	}
	return d
}

// extractJSONBody strips a ```json ... ``` fence if the model wrapped its
// JSON-mode output in markdown despite the mode flag.
func extractJSONBody(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
