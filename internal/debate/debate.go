// Package debate runs a bounded reconciliation loop per disagreement,
// with three stability safeguards: a per-round timeout, repetition
// detection across consecutive rounds, and a hard round cap. Any of the
// three can force consensus so a debate always terminates.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

// RoundResult is what a Facilitator returns for one debate round.
type RoundResult struct {
	RevisedPositions      map[models.AgentRole]string
	ConsensusReached      bool
	ConsensusExplanation  string
	CommonGround          []string
	RemainingDifferences  []string
}

// Facilitator drives a single debate round via an LLM call. Implemented by
// internal/agent in production; tests supply fakes.
type Facilitator interface {
	ConductRound(ctx context.Context, d models.Disagreement, positions map[models.AgentRole]string, roundNumber, maxRounds int, designContext string) (RoundResult, error)
}

// Config holds the stability-safeguard knobs.
type Config struct {
	MaxRounds                    int
	RoundTimeout                 time.Duration
	EnableRepetitionDetection    bool
	RepetitionSimilarityThreshold float64
	EnableForcedConsensus        bool
}

// DefaultConfig is the safeguard configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxRounds:                     3,
		RoundTimeout:                  30 * time.Second,
		EnableRepetitionDetection:     true,
		RepetitionSimilarityThreshold: 0.85,
		EnableForcedConsensus:         true,
	}
}

// Engine facilitates debates over disagreements.
type Engine struct {
	cfg         Config
	facilitator Facilitator
}

// New constructs a debate Engine.
func New(cfg Config, facilitator Facilitator) *Engine {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultConfig().MaxRounds
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = DefaultConfig().RoundTimeout
	}
	return &Engine{cfg: cfg, facilitator: facilitator}
}

// FacilitateOne runs the bounded loop for a single disagreement.
func (e *Engine) FacilitateOne(ctx context.Context, d models.Disagreement, designContext string) models.DebateOutcome {
	revised := make(map[models.AgentRole]string, len(d.Positions))
	for k, v := range d.Positions {
		revised[k] = v
	}

	var (
		forcedConsensus    bool
		timeoutOccurred    bool
		repetitionDetected bool
		roundsRun          int
		naturalConsensus   bool
		lastSummary        string
	)

	for round := 1; round <= e.cfg.MaxRounds; round++ {
		roundCtx, cancel := context.WithTimeout(ctx, e.cfg.RoundTimeout)
		result, err := e.facilitator.ConductRound(roundCtx, d, revised, round, e.cfg.MaxRounds, designContext)
		cancel()

		if err != nil {
			if roundCtx.Err() == context.DeadlineExceeded {
				timeoutOccurred = true
				roundsRun = round
				slog.Warn("Debate round timed out",
					"disagreement_id", d.ID, "topic", d.Topic, "round", round,
					"timeout", e.cfg.RoundTimeout, "forced_consensus", e.cfg.EnableForcedConsensus)
				if e.cfg.EnableForcedConsensus {
					forcedConsensus = true
					lastSummary = "Forced consensus: debate round timeout"
					break
				}
				lastSummary = "Debate round timeout"
				continue
			}
			// Any other facilitator error: carry positions over, keep going.
			slog.Warn("Debate round failed, carrying positions over",
				"disagreement_id", d.ID, "round", round, "error", err)
			roundsRun = round
			continue
		}

		roundsRun = round
		newPositions := result.RevisedPositions
		if newPositions == nil {
			newPositions = revised
		}

		if e.cfg.EnableRepetitionDetection && round > 1 {
			similarity := averagePositionSimilarity(revised, newPositions)
			if similarity >= e.cfg.RepetitionSimilarityThreshold {
				repetitionDetected = true
				revised = newPositions
				slog.Warn("Repetitive debate arguments detected",
					"disagreement_id", d.ID, "round", round,
					"similarity", similarity, "threshold", e.cfg.RepetitionSimilarityThreshold)
				if e.cfg.EnableForcedConsensus {
					forcedConsensus = true
					lastSummary = "Forced consensus: repetitive arguments detected"
					break
				}
			}
		}

		revised = newPositions

		if result.ConsensusReached {
			naturalConsensus = true
			lastSummary = result.ConsensusExplanation
			if lastSummary == "" {
				lastSummary = "Consensus reached naturally"
			}
			break
		}
	}

	if !forcedConsensus && !naturalConsensus && roundsRun >= e.cfg.MaxRounds && e.cfg.EnableForcedConsensus {
		forcedConsensus = true
		lastSummary = "Forced consensus: max rounds reached"
		slog.Warn("Debate hit max rounds without consensus, forcing",
			"disagreement_id", d.ID, "max_rounds", e.cfg.MaxRounds)
	}

	confidence := convergence(d.Positions, revised)
	consensusReached := naturalConsensus || forcedConsensus
	if forcedConsensus && confidence < 0.5 {
		confidence = 0.5
	}
	if lastSummary == "" {
		lastSummary = "No consensus reached"
	}

	slog.Info("Debate finished",
		"disagreement_id", d.ID, "rounds", roundsRun,
		"consensus_reached", consensusReached, "forced", forcedConsensus,
		"confidence", confidence)

	return models.DebateOutcome{
		ID:                 uuid.NewString(),
		Disagreement:       d,
		Rounds:             roundsRun,
		RevisedPositions:   revised,
		ConsensusReached:   consensusReached,
		ResolutionSummary:  lastSummary,
		Confidence:         confidence,
		Timestamp:          time.Now().UTC(),
		ForcedConsensus:    forcedConsensus,
		TimeoutOccurred:    timeoutOccurred,
		RepetitionDetected: repetitionDetected,
	}
}

// FacilitateAll runs all disagreements from a round concurrently. A single
// debate failing never fails the round; it's excluded and logged by the
// caller via the returned warnings slice.
func (e *Engine) FacilitateAll(ctx context.Context, disagreements []models.Disagreement, designContext string) ([]models.DebateOutcome, []string) {
	if len(disagreements) == 0 {
		return nil, nil
	}

	slog.Info("Debating disagreements", "count", len(disagreements))

	type indexed struct {
		idx     int
		outcome models.DebateOutcome
		failure string
	}

	results := make(chan indexed, len(disagreements))
	var wg sync.WaitGroup
	for i, d := range disagreements {
		wg.Add(1)
		go func(idx int, disagreement models.Disagreement) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Debate failed and was excluded from the round",
						"disagreement_id", disagreement.ID, "topic", disagreement.Topic, "panic", r)
					results <- indexed{idx: idx, failure: fmt.Sprintf(
						"debate on %q (%s) failed and was excluded from the round", disagreement.Topic, disagreement.ID)}
				}
			}()
			results <- indexed{idx: idx, outcome: e.FacilitateOne(ctx, disagreement, designContext)}
		}(i, d)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]indexed, 0, len(disagreements))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	outcomes := make([]models.DebateOutcome, 0, len(collected))
	var warnings []string
	for _, c := range collected {
		if c.failure != "" {
			warnings = append(warnings, c.failure)
			continue
		}
		outcomes = append(outcomes, c.outcome)
	}
	return outcomes, warnings
}

// averagePositionSimilarity is the mean per-role sequenceRatio between
// two position maps.
func averagePositionSimilarity(prev, curr map[models.AgentRole]string) float64 {
	if len(prev) == 0 {
		return 0
	}
	var total float64
	var count int
	for role, prevPos := range prev {
		currPos, ok := curr[role]
		if !ok {
			currPos = ""
		}
		total += sequenceRatio(prevPos, currPos)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// convergence is the Jaccard overlap of the tokenised initial vs final
// position strings, pooled across all roles.
func convergence(initial, final map[models.AgentRole]string) float64 {
	var initialText, finalText []string
	for _, v := range initial {
		initialText = append(initialText, v)
	}
	for _, v := range final {
		finalText = append(finalText, v)
	}
	return jaccard(tokenize(strings.Join(initialText, " ")), tokenize(strings.Join(finalText, " ")))
}
