package tools

import (
	"context"
	"io"
	"net/http"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// HTTPFetchTool is a reference live Tool implementation: it fetches a URL
// and returns the body as the ToolResult's details, within the uniform
// contract. Falls back to a canned response in demo mode.
type HTTPFetchTool struct {
	client   *http.Client
	demoMode bool
}

// NewHTTPFetchTool constructs the tool. demoMode forces canned responses
// regardless of credentials.
func NewHTTPFetchTool(client *http.Client, demoMode bool) *HTTPFetchTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetchTool{client: client, demoMode: demoMode}
}

func (h *HTTPFetchTool) Name() string { return "http_fetch" }

func (h *HTTPFetchTool) Execute(ctx context.Context, operation string, params map[string]any) models.ToolResult {
	if operation != "fetch" {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  false,
			Error:    &models.ToolError{Kind: "InvalidOperation", Message: "unsupported operation: " + operation},
		}
	}

	url, _ := params["url"].(string)
	if url == "" {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  false,
			Error:    &models.ToolError{Kind: "InvalidParameter", Message: "url parameter is required"},
		}
	}

	if h.demoMode {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  true,
			Summary:  "demo mode: canned fetch response",
			Details:  "<demo content for " + url + ">",
			Metadata: map[string]any{"demoMode": true},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  false,
			Error:    &models.ToolError{Kind: "InvalidParameter", Message: err.Error()},
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  false,
			Error:    &models.ToolError{Kind: "Execution", Message: err.Error()},
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.ToolResult{
			ToolName: h.Name(),
			Success:  false,
			Error:    &models.ToolError{Kind: "Execution", Message: err.Error()},
		}
	}

	return models.ToolResult{
		ToolName: h.Name(),
		Success:  resp.StatusCode < 400,
		Summary:  "fetched " + url,
		Details:  string(body),
		Metadata: map[string]any{"statusCode": resp.StatusCode},
	}
}
