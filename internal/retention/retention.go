// Package retention prunes terminal-status sessions past a configurable
// TTL on a background ticker loop. There is no separate event table to
// clean independently; a session's history lives inside its one state
// blob, so deleting the row is the whole job.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
)

// Config controls the retention sweep.
type Config struct {
	// SessionTTL is how long a session in a terminal status (Completed,
	// Failed, Cancelled) is kept after its last update before deletion.
	SessionTTL time.Duration `yaml:"session_ttl"`
	// Interval is how often the sweep runs.
	Interval time.Duration `yaml:"interval"`
	// PageSize bounds how many session summaries are listed per sweep page.
	PageSize int `yaml:"page_size"`
}

// DefaultConfig keeps terminal sessions for 30 days and sweeps hourly.
func DefaultConfig() Config {
	return Config{
		SessionTTL: 30 * 24 * time.Hour,
		Interval:   time.Hour,
		PageSize:   200,
	}
}

var terminalStatuses = map[models.Status]bool{
	models.StatusCompleted: true,
	models.StatusFailed:    true,
	models.StatusCancelled: true,
}

// Service periodically deletes sessions that reached a terminal status
// more than SessionTTL ago. Safe to run from multiple processes: Delete
// on an already-gone sessionID is a no-op (internal/store.Store.Delete
// is idempotent).
type Service struct {
	cfg   Config
	store store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Service.
func New(cfg Config, st store.Store) *Service {
	return &Service{cfg: cfg, store: st}
}

// Start launches the background sweep loop. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention service started", "session_ttl", s.cfg.SessionTTL, "interval", s.cfg.Interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.SessionTTL)
	offset := 0
	deleted := 0

	for {
		summaries, total, err := s.store.List(ctx, s.cfg.PageSize, offset)
		if err != nil {
			slog.Error("retention: list sessions failed", "error", err)
			return
		}
		if len(summaries) == 0 {
			break
		}

		for _, sess := range summaries {
			if !terminalStatuses[sess.Status] || sess.UpdatedAt.After(cutoff) {
				continue
			}
			if err := s.store.Delete(ctx, sess.SessionID); err != nil {
				slog.Error("retention: delete session failed", "sessionID", sess.SessionID, "error", err)
				continue
			}
			deleted++
		}

		offset += len(summaries)
		if offset >= total {
			break
		}
	}

	if deleted > 0 {
		slog.Info("retention: deleted expired sessions", "count", deleted)
	}
}
