package tools

import (
	"context"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// DemoTool returns deterministic canned ToolResults, satisfying the same
// contract and schema as a live tool.
type DemoTool struct {
	name     string
	canned   map[string]models.ToolResult
}

// NewDemoTool builds a demo tool that returns a canned result per operation.
func NewDemoTool(name string, canned map[string]models.ToolResult) *DemoTool {
	return &DemoTool{name: name, canned: canned}
}

func (d *DemoTool) Name() string { return d.name }

func (d *DemoTool) Execute(_ context.Context, operation string, _ map[string]any) models.ToolResult {
	if result, ok := d.canned[operation]; ok {
		result.ToolName = d.name
		return result
	}
	return models.ToolResult{
		ToolName: d.name,
		Success:  true,
		Summary:  "demo mode: no canned response configured for operation " + operation,
		Metadata: map[string]any{"demoMode": true},
	}
}
