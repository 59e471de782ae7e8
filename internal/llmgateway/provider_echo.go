package llmgateway

import (
	"context"
)

// EchoProvider is the demo-mode Provider: deterministic, offline, and
// honest about being canned rather than masquerading as a live model.
// When a real backend isn't configured, the system still runs end to end.
type EchoProvider struct {
	modelName string
	responses map[string]string
	fallback  string
}

// NewEchoProvider builds a demo Provider that returns a canned response per
// distinct prompt, falling back to a generic acknowledgement.
func NewEchoProvider(modelName string, responses map[string]string) *EchoProvider {
	if modelName == "" {
		modelName = "demo-echo"
	}
	return &EchoProvider{
		modelName: modelName,
		responses: responses,
		fallback:  `{"decision":"Approve","rationale":"demo mode: no live LLM backend configured","concerns":[],"suggestions":[]}`,
	}
}

func (e *EchoProvider) ModelName() string { return e.modelName }

// Generate returns the canned response keyed by the request's prompt, or
// the generic JSON-shaped fallback so json_mode callers never fail to parse.
func (e *EchoProvider) Generate(_ context.Context, req Request) (Response, error) {
	if resp, ok := e.responses[req.Prompt]; ok {
		return Response{Content: resp, ModelName: e.modelName}, nil
	}
	if req.JSONMode {
		return Response{Content: e.fallback, ModelName: e.modelName}, nil
	}
	return Response{Content: "demo mode: " + req.Prompt, ModelName: e.modelName}, nil
}
