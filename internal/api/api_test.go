package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raju-bvssn/ai-agent-council/internal/agent"
	"github.com/raju-bvssn/ai-agent-council/internal/consensus"
	"github.com/raju-bvssn/ai-agent-council/internal/councilsvc"
	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/events"
	"github.com/raju-bvssn/ai-agent-council/internal/guards"
	"github.com/raju-bvssn/ai-agent-council/internal/kernel"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
	"github.com/raju-bvssn/ai-agent-council/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	provider := llmgateway.NewEchoProvider("demo-echo", nil)
	gateway := llmgateway.New(provider, guards.New(), llmgateway.DefaultRetryConfig())
	factory := agent.NewFactory(gateway, tools.NewRegistry(), false, "demo-echo")
	facilitator := agent.NewDebateFacilitator(gateway, "demo-echo")
	debateEngine := debate.New(debate.DefaultConfig(), facilitator)
	consensusEngine := consensus.New(nil, consensus.DefaultThreshold)
	st := store.NewMemoryStore()
	k := kernel.New(st, factory, debateEngine, consensusEngine, true)
	svc := councilsvc.New(st, k, gateway)
	return NewServer(svc, events.NewManager())
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSession_RejectsEmptyRequest(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", createSessionRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSession_ThenStartReachesCompletion(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/sessions", createSessionRequest{UserRequest: "design a cache layer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	sessionID, _ := created["sessionID"].(string)
	require.NotEmpty(t, sessionID)

	startRec := doRequest(s, http.MethodPost, "/api/v1/sessions/"+sessionID+"/start", nil)
	require.Equal(t, http.StatusOK, startRec.Code)

	var started map[string]any
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &started))
	assert.Equal(t, "Completed", started["status"])

	deliverRec := doRequest(s, http.MethodGet, "/api/v1/sessions/"+sessionID+"/deliverables", nil)
	assert.Equal(t, http.StatusOK, deliverRec.Code)
}

func TestGetSession_UnknownReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession_ReturnsNoContent(t *testing.T) {
	s := newTestServer(t)
	createRec := doRequest(s, http.MethodPost, "/api/v1/sessions", createSessionRequest{UserRequest: "design a cache layer"})
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	sessionID := created["sessionID"].(string)

	rec := doRequest(s, http.MethodDelete, "/api/v1/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
