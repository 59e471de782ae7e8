package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/raju-bvssn/ai-agent-council/internal/models"
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds the Postgres connection and pool settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// ConnString, when set, is used verbatim as the pgx DSN instead of
	// assembling one from the fields above. Used by integration tests
	// against a testcontainers-provisioned Postgres instance.
	ConnString string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStore persists WorkflowState as a single JSONB blob per row,
// alongside session_id (primary key), status and created_at (indexed) and
// updated_at columns for listing and retention sweeps.
type PostgresStore struct {
	db *stdsql.DB
}

// NewPostgresStore opens the connection pool, applies pending migrations,
// and returns a ready Store.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	dsn := cfg.ConnString
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
	}

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func applyMigrations(db *stdsql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Save(ctx context.Context, state *models.WorkflowState) error {
	cp, err := clone(state)
	if err != nil {
		return err
	}

	var existingCreatedAt stdsql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM workflow_sessions WHERE session_id = $1`, state.SessionID,
	).Scan(&existingCreatedAt)
	switch {
	case errors.Is(err, stdsql.ErrNoRows):
		stampTimestamps(cp, nil)
	case err != nil:
		return fmt.Errorf("check existing session: %w", err)
	default:
		ca := existingCreatedAt.Time
		stampTimestamps(cp, &ca)
	}

	blob, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_sessions (session_id, status, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET status = EXCLUDED.status, state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		cp.SessionID, string(cp.Status), blob, cp.CreatedAt, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	state.CreatedAt = cp.CreatedAt
	state.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM workflow_sessions WHERE session_id = $1`, sessionID,
	).Scan(&blob)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, notFound(sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var state models.WorkflowState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]models.SessionSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM workflow_sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, status, created_at, updated_at FROM workflow_sessions
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.SessionSummary, 0, limit)
	for rows.Next() {
		var summary models.SessionSummary
		var status string
		if err := rows.Scan(&summary.SessionID, &status, &summary.CreatedAt, &summary.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan session summary: %w", err)
		}
		summary.Status = models.Status(status)
		summaries = append(summaries, summary)
	}
	return summaries, total, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workflow_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
