package tools

import (
	"context"
	"testing"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTool struct {
	calls int
	failUntil int
}

func (f *flakyTool) Name() string { return "flaky" }

func (f *flakyTool) Execute(_ context.Context, _ string, _ map[string]any) models.ToolResult {
	f.calls++
	if f.calls <= f.failUntil {
		return models.ToolResult{ToolName: "flaky", Success: false, Error: &models.ToolError{Kind: "Execution", Message: "transient"}}
	}
	return models.ToolResult{ToolName: "flaky", Success: true, Summary: "ok"}
}

type contractErrorTool struct {
	calls int
}

func (c *contractErrorTool) Name() string { return "bad_params" }

func (c *contractErrorTool) Execute(_ context.Context, _ string, _ map[string]any) models.ToolResult {
	c.calls++
	return models.ToolResult{ToolName: "bad_params", Success: false, Error: &models.ToolError{Kind: "InvalidParameter", Message: "missing x"}}
}

func TestRegistry_RetriesTransientFailures(t *testing.T) {
	r := NewRegistry()
	ft := &flakyTool{failUntil: 2}
	r.Register(ft, 2*time.Second)

	result := r.Execute(context.Background(), "flaky", "run", nil)
	require.True(t, result.Success)
	assert.Equal(t, 3, ft.calls)
}

func TestRegistry_DoesNotRetryContractErrors(t *testing.T) {
	r := NewRegistry()
	ct := &contractErrorTool{}
	r.Register(ct, time.Second)

	result := r.Execute(context.Background(), "bad_params", "run", nil)
	require.False(t, result.Success)
	assert.Equal(t, 1, ct.calls)
}

func TestRegistry_UnknownToolReturnsInvalidParameter(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "nope", "run", nil)
	require.False(t, result.Success)
	assert.Equal(t, "InvalidParameter", result.Error.Kind)
}

func TestDemoTool_ReturnsCannedResult(t *testing.T) {
	dt := NewDemoTool("jira", map[string]models.ToolResult{
		"create_ticket": {Success: true, Summary: "created DEMO-123"},
	})
	result := dt.Execute(context.Background(), "create_ticket", nil)
	assert.True(t, result.Success)
	assert.Equal(t, "created DEMO-123", result.Summary)
	assert.Equal(t, "jira", result.ToolName)
}

func TestHTTPFetchTool_DemoMode(t *testing.T) {
	ht := NewHTTPFetchTool(nil, true)
	result := ht.Execute(context.Background(), "fetch", map[string]any{"url": "https://example.com"})
	assert.True(t, result.Success)
	assert.Contains(t, result.Metadata, "demoMode")
}

func TestHTTPFetchTool_MissingURL(t *testing.T) {
	ht := NewHTTPFetchTool(nil, true)
	result := ht.Execute(context.Background(), "fetch", map[string]any{})
	assert.False(t, result.Success)
	assert.Equal(t, "InvalidParameter", result.Error.Kind)
}
