// Package kernel drives a council session's node graph: sequential node
// execution with per-node persistence, a conditional routing table, the
// human-gate pause/resume protocol, and the run-once adjudicator guard.
package kernel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raju-bvssn/ai-agent-council/internal/agent"
	"github.com/raju-bvssn/ai-agent-council/internal/consensus"
	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/deliverables"
	"github.com/raju-bvssn/ai-agent-council/internal/disagreement"
	"github.com/raju-bvssn/ai-agent-council/internal/errs"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
)

// Node names, persisted as state.CurrentNode. Every node commits state
// before returning, so a crash mid-workflow leaves a resumable pointer.
const (
	NodeMasterArchitect      = "MasterArchitect"
	NodeSolutionArchitect    = "SolutionArchitect"
	NodeReviewers            = "Reviewers"
	NodeAdjudicator          = "Adjudicator"
	NodeHumanApproval        = "HumanApproval"
	NodeFAQGeneration        = "FAQGeneration"
	NodeFinalise             = "Finalise"
	NodeGenerateDeliverables = "GenerateDeliverables"
	nodeDone                 = ""
)

// HumanAction is the action a human supplies to StepWorkflow.
type HumanAction string

const (
	ActionApprove HumanAction = "Approve"
	ActionRevise  HumanAction = "Revise"
)

// Kernel drives one session's node graph to a pause point or terminal
// status. A single Kernel instance is shared across sessions; all
// per-session mutable state lives in the WorkflowState the Store hands
// back, never on the Kernel itself, so sessions stay independent.
type Kernel struct {
	Store           store.Store
	Factory         *agent.Factory
	DebateEngine    *debate.Engine
	ConsensusEngine *consensus.Engine
	DemoMode        bool
}

// New constructs a Kernel with its collaborators.
func New(st store.Store, factory *agent.Factory, debateEngine *debate.Engine, consensusEngine *consensus.Engine, demoMode bool) *Kernel {
	return &Kernel{Store: st, Factory: factory, DebateEngine: debateEngine, ConsensusEngine: consensusEngine, DemoMode: demoMode}
}

// Start runs the kernel from a Pending session until it reaches
// AwaitingHuman, Completed, or Failed.
func (k *Kernel) Start(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	state, err := k.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status != models.StatusPending {
		return nil, errs.New(errs.KindWrongStatus, "workflow already started for session "+sessionID)
	}
	slog.Info("Starting workflow", "session_id", sessionID)
	state.CurrentNode = NodeMasterArchitect
	k.runLoop(ctx, state)
	return state, nil
}

// Step resumes a session paused at AwaitingHuman with a human decision.
func (k *Kernel) Step(ctx context.Context, sessionID string, action HumanAction, comment string) (*models.WorkflowState, error) {
	state, err := k.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status != models.StatusAwaitingHuman {
		return nil, errs.New(errs.KindWrongStatus, "session is not awaiting human input")
	}

	if comment != "" {
		state.Messages = append(state.Messages, models.AgentMessage{
			AgentRole: models.RoleHuman,
			Timestamp: time.Now().UTC(),
			Content:   comment,
			Success:   true,
		})
	}

	switch action {
	case ActionApprove:
		state.Metadata.HumanApproved = true
		state.CurrentNode = NodeFAQGeneration
	case ActionRevise:
		if comment != "" {
			feedback := models.ReviewFeedback{
				ReviewerRole: models.RoleHuman,
				Decision:     models.DecisionRevise,
				Rationale:    comment,
				Severity:     models.SeverityMedium,
			}
			state.Reviews = append(state.Reviews, feedback)
			if n := len(state.ReviewerRounds); n > 0 {
				state.ReviewerRounds[n-1].Reviews = append(state.ReviewerRounds[n-1].Reviews, feedback)
			}
		}
		if state.RevisionCount < state.MaxRevisions {
			state.RevisionCount++
			state.CurrentNode = NodeSolutionArchitect
		} else {
			state.CurrentNode = NodeFAQGeneration
		}
	default:
		return nil, errs.New(errs.KindValidation, "unknown human action: "+string(action))
	}

	slog.Info("Resuming workflow from human gate",
		"session_id", sessionID, "action", action, "next_node", state.CurrentNode)
	state.Status = models.StatusInProgress
	k.runLoop(ctx, state)
	return state, nil
}

// Status returns the current snapshot for a session.
func (k *Kernel) Status(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	return k.Store.Load(ctx, sessionID)
}

// Deliverables returns the terminal bundle, failing until the session has
// reached Completed.
func (k *Kernel) Deliverables(ctx context.Context, sessionID string) (*models.DeliverablesBundle, error) {
	state, err := k.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Status != models.StatusCompleted || state.Deliverables == nil {
		return nil, errs.New(errs.KindWrongStatus, "deliverables are not available until the workflow completes")
	}
	return state.Deliverables, nil
}

// runLoop executes nodes sequentially, committing state after each one,
// until the workflow pauses or reaches a terminal status.
func (k *Kernel) runLoop(ctx context.Context, state *models.WorkflowState) {
	for {
		node := state.CurrentNode
		if node == nodeDone {
			k.persist(ctx, state)
			return
		}

		slog.Info("Executing workflow node", "session_id", state.SessionID, "node", node)
		if err := k.execNode(ctx, node, state); err != nil {
			slog.Error("Workflow node failed", "session_id", state.SessionID, "node", node, "error", err)
			state.Status = models.StatusFailed
			state.Errors = append(state.Errors, err.Error())
			k.persist(ctx, state)
			return
		}

		k.persist(ctx, state)

		// Completed is not a stop condition here: Finalise marks the
		// session Completed while GenerateDeliverables still has to run
		// (and its failure must never regress that status). The chain
		// itself ends at nodeDone.
		if state.Status == models.StatusAwaitingHuman ||
			state.Status == models.StatusFailed {
			return
		}
	}
}

func (k *Kernel) persist(ctx context.Context, state *models.WorkflowState) {
	if err := k.Store.Save(ctx, state); err != nil {
		slog.Error("State persistence failed", "session_id", state.SessionID, "error", err)
		state.Warnings = append(state.Warnings, "state persistence failed: "+err.Error())
	}
}

// execNode dispatches one node and advances state.CurrentNode to whatever
// comes next.
func (k *Kernel) execNode(ctx context.Context, node string, state *models.WorkflowState) error {
	switch node {
	case NodeMasterArchitect:
		if err := k.nodeMasterArchitect(ctx, state); err != nil {
			return err
		}
		state.CurrentNode = NodeSolutionArchitect
		return nil

	case NodeSolutionArchitect:
		if err := k.nodeSolutionArchitect(ctx, state); err != nil {
			return err
		}
		state.CurrentNode = NodeReviewers
		return nil

	case NodeReviewers:
		return k.nodeReviewerRound(ctx, state)

	case NodeAdjudicator:
		return k.nodeAdjudicator(ctx, state)

	case NodeHumanApproval:
		state.Status = models.StatusAwaitingHuman
		return nil

	case NodeFAQGeneration:
		if err := k.nodeFAQGeneration(ctx, state); err != nil {
			return err
		}
		state.CurrentNode = NodeFinalise
		return nil

	case NodeFinalise:
		k.nodeFinalise(state)
		state.CurrentNode = NodeGenerateDeliverables
		return nil

	case NodeGenerateDeliverables:
		k.nodeGenerateDeliverables(state)
		state.CurrentNode = nodeDone
		return nil

	default:
		state.CurrentNode = nodeDone
		return nil
	}
}

func requestContext(state *models.WorkflowState) map[string]any {
	ctx := make(map[string]any, len(state.UserContext)+1)
	for k, v := range state.UserContext {
		ctx[k] = v
	}
	return ctx
}

func (k *Kernel) nodeMasterArchitect(ctx context.Context, state *models.WorkflowState) error {
	performer, err := k.Factory.Performer(models.RoleMaster)
	if err != nil {
		return err
	}
	result, err := performer.Run(ctx, state.UserRequest, requestContext(state))
	if err != nil {
		return err
	}
	state.Messages = append(state.Messages, models.AgentMessage{
		AgentRole:   models.RoleMaster,
		Timestamp:   time.Now().UTC(),
		Content:     result.Content,
		Success:     result.Success,
		ToolResults: result.ToolResults,
	})
	state.CurrentAgent = models.RoleSolutionArchitect
	state.Status = models.StatusInProgress
	return nil
}

func (k *Kernel) nodeSolutionArchitect(ctx context.Context, state *models.WorkflowState) error {
	performer, err := k.Factory.Performer(models.RoleSolutionArchitect)
	if err != nil {
		return err
	}

	reqCtx := requestContext(state)
	request := state.UserRequest
	if state.CurrentDesign != nil {
		prior, _ := json.Marshal(state.CurrentDesign)
		reqCtx["previousDesign"] = string(prior)
		reqCtx["reviewerFeedback"] = latestRoundFeedbackSummary(state)
		request = "Revise the architecture based on reviewer feedback for: " + state.UserRequest
	}

	result, err := performer.Run(ctx, request, reqCtx)
	if err != nil {
		return err
	}

	version := 1
	if state.CurrentDesign != nil {
		version = state.CurrentDesign.Version + 1
	}
	state.CurrentDesign = agent.ParseSolutionOutput(result.Content, version)

	state.Messages = append(state.Messages, models.AgentMessage{
		AgentRole:   models.RoleSolutionArchitect,
		Timestamp:   time.Now().UTC(),
		Content:     result.Content,
		Success:     result.Success,
		ToolResults: result.ToolResults,
	})
	state.CurrentAgent = ""
	return nil
}

func latestRoundFeedbackSummary(state *models.WorkflowState) string {
	if len(state.ReviewerRounds) == 0 {
		return ""
	}
	round := state.ReviewerRounds[len(state.ReviewerRounds)-1]
	var summaries []string
	for _, r := range round.Reviews {
		summaries = append(summaries, string(r.ReviewerRole)+": "+string(r.Decision)+" - "+r.Rationale)
	}
	out, _ := json.Marshal(summaries)
	return string(out)
}

// nodeReviewerRound runs the parallel reviewer fan-out then, in one
// committed step, snapshots the round, detects disagreements, debates
// them, and computes consensus. The stage is uninterrupted; only the
// fan-out itself is concurrent.
func (k *Kernel) nodeReviewerRound(ctx context.Context, state *models.WorkflowState) error {
	reviews := k.runReviewersParallel(ctx, state)
	state.Reviews = append(state.Reviews, reviews...)

	round := models.ReviewerRoundResult{
		Round:     state.CurrentRound + 1,
		Reviews:   reviews,
		Timestamp: time.Now().UTC(),
	}
	if round.Round > 10 {
		round.Round = 10
	}
	state.CurrentRound = round.Round

	disagreements := disagreement.Detect(reviews)
	round.Disagreements = disagreements
	state.ReviewerRounds = append(state.ReviewerRounds, round)
	slog.Info("Reviewer round closed",
		"session_id", state.SessionID, "round", round.Round,
		"reviews", len(reviews), "disagreements", len(disagreements))

	designContext := ""
	if state.CurrentDesign != nil {
		b, _ := json.Marshal(state.CurrentDesign)
		designContext = string(b)
	}
	outcomes, warnings := k.DebateEngine.FacilitateAll(ctx, disagreements, designContext)
	state.Debates = append(state.Debates, outcomes...)
	state.Warnings = append(state.Warnings, warnings...)

	result := k.ConsensusEngine.Compute(reviews, outcomes)
	state.ConsensusHistory = append(state.ConsensusHistory, result)
	state.RequiresAdjudication = !result.Agreed

	if state.CurrentRound >= 10 {
		slog.Warn("Round ceiling reached, escalating to human gate",
			"session_id", state.SessionID, "round", state.CurrentRound)
		state.CurrentNode = NodeHumanApproval
		return nil
	}

	if state.RequiresAdjudication && state.Metadata.AdjudicatorRunCount < 1 {
		state.CurrentNode = NodeAdjudicator
		return nil
	}

	state.CurrentNode = routeAfterReviews(state, reviews)
	return nil
}

// runReviewersParallel fans out every active reviewer role concurrently
// and returns results in stable role order rather than arrival order, so
// a round's review sequence is deterministic.
func (k *Kernel) runReviewersParallel(ctx context.Context, state *models.WorkflowState) []models.ReviewFeedback {
	roles := k.Factory.AllReviewers()
	content := ""
	if state.CurrentDesign != nil {
		b, _ := json.Marshal(state.CurrentDesign)
		content = string(b)
	}
	reqCtx := requestContext(state)

	type indexed struct {
		idx    int
		review models.ReviewFeedback
		msg    models.AgentMessage
	}

	results := make(chan indexed, len(roles))
	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(idx int, r models.AgentRole) {
			defer wg.Done()
			critic, err := k.Factory.Critic(r)
			if err != nil {
				return
			}
			out, err := critic.Run(ctx, content, reqCtx)
			if err != nil {
				return
			}
			review := models.ReviewFeedback{
				ReviewerRole: r,
				Decision:     out.Decision,
				Concerns:     out.Concerns,
				Suggestions:  out.Suggestions,
				Rationale:    out.Rationale,
				Severity:     out.Severity,
			}
			dec := out.Decision
			results <- indexed{idx: idx, review: review, msg: models.AgentMessage{
				AgentRole:   r,
				Timestamp:   time.Now().UTC(),
				Content:     out.Rationale,
				Success:     out.Success,
				Decision:    &dec,
				ToolResults: out.ToolResults,
			}}
		}(i, role)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexed, 0, len(roles))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].review.ReviewerRole < collected[j].review.ReviewerRole
	})

	reviews := make([]models.ReviewFeedback, 0, len(collected))
	for _, c := range collected {
		reviews = append(reviews, c.review)
		state.Messages = append(state.Messages, c.msg)
	}
	return reviews
}

// routeAfterReviews picks the next node from the latest round's verdicts:
// critical/escalate (or an exhausted revision budget) goes to the human
// gate, revise loops back to the architect, unanimous approval moves on.
func routeAfterReviews(state *models.WorkflowState, reviews []models.ReviewFeedback) string {
	if len(reviews) == 0 {
		return NodeReviewers
	}

	var anyCritical, anyEscalate, anyRevise, allApprove bool
	allApprove = true
	for _, r := range reviews {
		if r.Severity == models.SeverityCritical {
			anyCritical = true
		}
		switch r.Decision {
		case models.DecisionEscalate:
			anyEscalate = true
		case models.DecisionRevise:
			anyRevise = true
		}
		if r.Decision != models.DecisionApprove {
			allApprove = false
		}
	}

	switch {
	case anyCritical || anyEscalate || state.RevisionCount >= state.MaxRevisions:
		return NodeHumanApproval
	case anyRevise && state.RevisionCount < state.MaxRevisions:
		state.RevisionCount++
		return NodeSolutionArchitect
	case allApprove:
		return NodeFAQGeneration
	default:
		return NodeHumanApproval
	}
}

// nodeAdjudicator runs at most once per session, guarded by
// Metadata.AdjudicatorRunCount. A re-entry skips the agent call and
// records a warning instead.
func (k *Kernel) nodeAdjudicator(ctx context.Context, state *models.WorkflowState) error {
	if state.Metadata.AdjudicatorRunCount >= 1 {
		slog.Warn("Adjudicator already ran for this session, skipping re-invocation",
			"session_id", state.SessionID)
		state.Warnings = append(state.Warnings, "adjudicator already ran for this session; skipping re-invocation")
		state.CurrentNode = routeAfterReviews(state, latestRoundReviews(state))
		return nil
	}
	state.Metadata.AdjudicatorRunCount++
	slog.Info("Invoking adjudicator",
		"session_id", state.SessionID, "debates", len(state.Debates),
		"unresolved_disagreements", len(unresolvedDisagreements(state)))

	performer, err := k.Factory.Performer(models.RoleAdjudicator)
	if err != nil {
		return err
	}

	reqCtx := requestContext(state)
	reqCtx["reviews"] = state.Reviews
	reqCtx["debates"] = state.Debates
	reqCtx["consensus"] = state.ConsensusHistory
	reqCtx["unresolvedDisagreements"] = unresolvedDisagreements(state)

	result, err := performer.Run(ctx, "Adjudicate the unresolved design disagreements for: "+state.UserRequest, reqCtx)
	if err != nil {
		return err
	}

	out := agent.ParseAdjudicatorOutput(result.Content)
	state.FinalArchitectureRationale = out.ArchitectureRationale
	state.FAQEntries = append(state.FAQEntries, out.FAQEntries...)
	state.AdjudicationComplete = true

	state.Messages = append(state.Messages, models.AgentMessage{
		AgentRole: models.RoleAdjudicator,
		Timestamp: time.Now().UTC(),
		Content:   result.Content,
		Success:   result.Success,
	})

	state.CurrentNode = routeAfterReviews(state, latestRoundReviews(state))
	return nil
}

func latestRoundReviews(state *models.WorkflowState) []models.ReviewFeedback {
	if len(state.ReviewerRounds) == 0 {
		return nil
	}
	return state.ReviewerRounds[len(state.ReviewerRounds)-1].Reviews
}

func unresolvedDisagreements(state *models.WorkflowState) []models.Disagreement {
	if len(state.ReviewerRounds) == 0 {
		return nil
	}
	round := state.ReviewerRounds[len(state.ReviewerRounds)-1]
	resolved := make(map[string]bool)
	for _, d := range state.Debates {
		if d.ConsensusReached {
			resolved[d.Disagreement.ID] = true
		}
	}
	var out []models.Disagreement
	for _, d := range round.Disagreements {
		if !resolved[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func (k *Kernel) nodeFAQGeneration(ctx context.Context, state *models.WorkflowState) error {
	performer, err := k.Factory.Performer(models.RoleFAQ)
	if err != nil {
		return err
	}

	reqCtx := requestContext(state)
	reqCtx["design"] = state.CurrentDesign
	reqCtx["reviews"] = state.Reviews

	result, err := performer.Run(ctx, "Generate FAQ and decision rationale for: "+state.UserRequest, reqCtx)
	if err != nil {
		return err
	}

	out, ok := agent.ParseFAQOutput(result.Content)
	if !ok {
		state.Warnings = append(state.Warnings, "FAQ generator output was not valid JSON; stored raw content as rationale")
	}
	state.FAQEntries = append(state.FAQEntries, out.FAQEntries...)
	state.DecisionRationale = out.DecisionRationale
	state.Metadata.KeyTakeaways = append(state.Metadata.KeyTakeaways, out.KeyTakeaways...)

	state.Messages = append(state.Messages, models.AgentMessage{
		AgentRole: models.RoleFAQ,
		Timestamp: time.Now().UTC(),
		Content:   result.Content,
		Success:   result.Success,
	})
	return nil
}

func (k *Kernel) nodeFinalise(state *models.WorkflowState) {
	if state.CurrentDesign != nil {
		final := *state.CurrentDesign
		state.FinalDesign = &final
	}
	state.Status = models.StatusCompleted
}

// nodeGenerateDeliverables never regresses a Completed status on failure;
// a build problem is recorded as an error plus warning and nothing more.
func (k *Kernel) nodeGenerateDeliverables(state *models.WorkflowState) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Deliverables generation failed, preserving Completed status",
				"session_id", state.SessionID, "panic", r)
			state.Errors = append(state.Errors, "deliverables generation panicked")
			state.Warnings = append(state.Warnings, "deliverables generation failed; status preserved")
		}
	}()
	bundle := deliverables.Build(state, k.DemoMode)
	bundle.SessionID = state.SessionID
	if bundle.SessionID == "" {
		bundle.SessionID = uuid.NewString()
	}
	state.Deliverables = &bundle
}
