// Package tools implements the uniform Tool contract and its registry:
// named singletons looked up case-insensitively, each call wrapped with
// a per-category timeout and bounded retry.
package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// Tool is the uniform contract every tool implementation satisfies.
type Tool interface {
	// Name is the lowercase registry key.
	Name() string
	// Execute runs one operation and always returns a populated ToolResult,
	// never a bare error; failures are carried inside ToolResult.Error.
	Execute(ctx context.Context, operation string, params map[string]any) models.ToolResult
}

// contractErrorKinds are never retried; they indicate a caller mistake,
// not a transient condition.
var contractErrorKinds = map[string]bool{
	"InvalidParameter": true,
	"InvalidOperation": true,
}

// timeouts by tool category.
const (
	DefaultTimeout  = 30 * time.Second
	AnalysisTimeout = 45 * time.Second
	LLMWrapperTimeout = 60 * time.Second
)

const (
	defaultRetryAttempts = 3
	backoffFactor        = 1.5
	initialBackoff       = 200 * time.Millisecond
)

// Registry holds named tool singletons, read-only after construction.
type Registry struct {
	tools map[string]registeredTool
}

type registeredTool struct {
	tool    Tool
	timeout time.Duration
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register adds a tool under its lowercased name with the given per-call
// timeout. Call only during startup wiring; the registry is read-only
// after that.
func (r *Registry) Register(t Tool, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r.tools[strings.ToLower(t.Name())] = registeredTool{tool: t, timeout: timeout}
}

// Execute looks up a tool by name and runs it with timeout + retry wrapping.
func (r *Registry) Execute(ctx context.Context, name, operation string, params map[string]any) models.ToolResult {
	rt, ok := r.tools[strings.ToLower(name)]
	if !ok {
		return models.ToolResult{
			ToolName: name,
			Success:  false,
			Error: &models.ToolError{
				Kind:    "InvalidParameter",
				Message: "unknown tool: " + name,
			},
		}
	}
	return executeWithRetry(ctx, rt.tool, rt.timeout, operation, params)
}

func executeWithRetry(ctx context.Context, t Tool, timeout time.Duration, operation string, params map[string]any) models.ToolResult {
	var last models.ToolResult
	backoff := initialBackoff

	for attempt := 1; attempt <= defaultRetryAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		slog.Info("tool_call_started", "tool", t.Name(), "operation", operation, "attempt", attempt)
		last = t.Execute(callCtx, operation, params)
		cancel()
		slog.Info("tool_call_finished", "tool", t.Name(), "operation", operation, "attempt", attempt, "success", last.Success)

		if last.Success {
			return last
		}
		if last.Error != nil && contractErrorKinds[last.Error.Kind] {
			// Contract errors are never transient; stop immediately.
			return last
		}
		if attempt == defaultRetryAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return last
		}
		backoff = time.Duration(float64(backoff) * backoffFactor)
	}
	return last
}
