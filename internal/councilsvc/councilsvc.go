// Package councilsvc is the application-layer facade over the workflow
// kernel and state store: session CRUD, workflow start/step/status,
// deliverables retrieval, and follow-up chat on completed sessions.
package councilsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/kernel"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
)

// CreateSessionRequest is the input to CreateSession.
type CreateSessionRequest struct {
	UserRequest string
	UserContext map[string]any
	MaxRevisions int
}

// Service is the council's application-layer facade. Thin HTTP/WS
// transport (internal/api, internal/events) drives the workflow only
// through this type; internal/api imports internal/kernel solely for the
// HumanAction type and never touches internal/store.
type Service struct {
	store   store.Store
	kernel  *kernel.Kernel
	gateway *llmgateway.Gateway
}

// New constructs a Service.
func New(st store.Store, k *kernel.Kernel, gateway *llmgateway.Gateway) *Service {
	return &Service{store: st, kernel: k, gateway: gateway}
}

const defaultMaxRevisions = 3

// CreateSession validates the request and persists a new Pending session.
// It does not start the workflow; the caller drives that separately via
// StartWorkflow.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.WorkflowState, error) {
	if req.UserRequest == "" {
		return nil, errs.New(errs.KindValidation, "userRequest is required")
	}

	maxRevisions := req.MaxRevisions
	if maxRevisions <= 0 {
		maxRevisions = defaultMaxRevisions
	}

	state := &models.WorkflowState{
		SessionID:    uuid.NewString(),
		UserRequest:  req.UserRequest,
		UserContext:  req.UserContext,
		Status:       models.StatusPending,
		MaxRevisions: maxRevisions,
	}
	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}
	slog.Info("Session created", "session_id", state.SessionID, "max_revisions", maxRevisions)
	return state, nil
}

// GetSession returns the full state for a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	return s.store.Load(ctx, sessionID)
}

// ListSessions returns a page of session summaries.
func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]models.SessionSummary, int, error) {
	return s.store.List(ctx, limit, offset)
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("Session deleted", "session_id", sessionID)
	return nil
}

// StartWorkflow runs the kernel from Pending to a pause/terminal point.
func (s *Service) StartWorkflow(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	return s.kernel.Start(ctx, sessionID)
}

// StepWorkflow resumes a paused session with a human decision.
func (s *Service) StepWorkflow(ctx context.Context, sessionID string, action kernel.HumanAction, comment string) (*models.WorkflowState, error) {
	return s.kernel.Step(ctx, sessionID, action, comment)
}

// GetStatus returns the current status snapshot.
func (s *Service) GetStatus(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	return s.kernel.Status(ctx, sessionID)
}

// GetDeliverables returns the terminal bundle for a completed session.
func (s *Service) GetDeliverables(ctx context.Context, sessionID string) (*models.DeliverablesBundle, error) {
	return s.kernel.Deliverables(ctx, sessionID)
}

// Chat appends a follow-up question about a completed session's design,
// answers it via the LLM gateway, and persists both turns into the
// session's chat history.
func (s *Service) Chat(ctx context.Context, sessionID, question string) (*models.ChatMessage, error) {
	if question == "" {
		return nil, errs.New(errs.KindValidation, "question is required")
	}

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status != models.StatusCompleted {
		return nil, errs.New(errs.KindWrongStatus, "chat is only available once a session has completed")
	}

	now := time.Now().UTC()
	state.Metadata.ChatHistory = append(state.Metadata.ChatHistory, models.ChatMessage{
		Role: "user", Content: question, Timestamp: now,
	})

	prompt := buildChatPrompt(state, question)
	resp, err := s.gateway.Generate(ctx, llmgateway.Request{
		SystemPrompt: chatSystemPrompt,
		Prompt:       prompt,
	})
	if err != nil {
		return nil, err
	}

	answer := models.ChatMessage{Role: "assistant", Content: resp.Content, Timestamp: time.Now().UTC()}
	state.Metadata.ChatHistory = append(state.Metadata.ChatHistory, answer)

	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}
	slog.Info("Chat question answered",
		"session_id", sessionID, "history_len", len(state.Metadata.ChatHistory))
	return &answer, nil
}

const chatSystemPrompt = `You are answering follow-up questions about a completed architecture
design council session. Base your answers only on the final design, FAQ entries,
and decision rationale provided in context. If the question cannot be answered
from that material, say so plainly.`

func buildChatPrompt(state *models.WorkflowState, question string) string {
	var overview string
	if state.FinalDesign != nil {
		overview = state.FinalDesign.ArchitectureOverview
	}
	return "Final architecture overview:\n" + overview +
		"\n\nDecision rationale:\n" + state.DecisionRationale +
		"\n\nQuestion: " + question
}
