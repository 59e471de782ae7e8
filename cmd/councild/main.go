// Command councild is the council workflow service's thin entrypoint:
// flag parsing, .env loading, config init, dependency wiring, serve,
// graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/raju-bvssn/ai-agent-council/internal/agent"
	"github.com/raju-bvssn/ai-agent-council/internal/api"
	"github.com/raju-bvssn/ai-agent-council/internal/config"
	"github.com/raju-bvssn/ai-agent-council/internal/consensus"
	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/events"
	"github.com/raju-bvssn/ai-agent-council/internal/guards"
	"github.com/raju-bvssn/ai-agent-council/internal/kernel"
	"github.com/raju-bvssn/ai-agent-council/internal/llmgateway"
	"github.com/raju-bvssn/ai-agent-council/internal/models"
	"github.com/raju-bvssn/ai-agent-council/internal/retention"
	"github.com/raju-bvssn/ai-agent-council/internal/store"
	"github.com/raju-bvssn/ai-agent-council/internal/tools"
	"github.com/raju-bvssn/ai-agent-council/internal/version"

	"github.com/raju-bvssn/ai-agent-council/internal/councilsvc"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configPath := flag.String("config", getEnv("COUNCIL_CONFIG", "./deploy/config/council.yaml"), "Path to YAML configuration file")
	envPath := flag.String("env-file", getEnv("COUNCIL_ENV_FILE", "./deploy/config/.env"), "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("could not load .env file, continuing with process environment", "path", *envPath, "error", err)
	} else {
		slog.Info("loaded environment file", "path", *envPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("council service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	weights := roleWeights(cfg.Weights)
	demoMode := cfg.ResolvedDemoMode()

	g := guards.New()
	provider := newProvider(cfg)
	gateway := llmgateway.New(provider, g, llmgateway.DefaultRetryConfig())

	registry := tools.NewRegistry()
	registry.Register(tools.NewHTTPFetchTool(&http.Client{Timeout: 30 * time.Second}, demoMode), 45*time.Second)
	registry.Register(tools.NewDemoTool("diagram_service", nil), 30*time.Second)

	factory := agent.NewFactory(gateway, registry, cfg.Provider.AutoSelect, cfg.Provider.ModelName)
	facilitator := agent.NewDebateFacilitator(gateway, cfg.Provider.ModelName)

	debateCfg := cfg.Debate
	debateEngine := debate.New(debateCfg, facilitator)
	consensusEngine := consensus.New(weights, cfg.Threshold)

	k := kernel.New(st, factory, debateEngine, consensusEngine, demoMode)
	svc := councilsvc.New(st, k, gateway)

	connManager := events.NewManager()
	srv := api.NewServer(svc, connManager)

	retentionSvc := retention.New(cfg.Retention, st)
	retentionSvc.Start(ctx)
	defer retentionSvc.Stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("council service listening", "version", version.Full(), "addr", cfg.Server.Addr, "demoMode", demoMode, "storeMode", cfg.Store.Mode)
		if err := srv.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Mode != "postgres" {
		slog.Info("using in-memory state store", "mode", cfg.Store.Mode)
		return store.NewMemoryStore(), nil
	}

	return store.NewPostgresStore(ctx, store.Config{
		Host:            cfg.Store.Host,
		Port:            cfg.Store.Port,
		User:            cfg.Store.User,
		Password:        cfg.StorePassword(),
		Database:        cfg.Store.Database,
		SSLMode:         cfg.Store.SSLMode,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
	})
}

// newProvider selects the LLM backend. Only the offline EchoProvider
// ships in this repository; it is what every deployment gets until a
// real Provider is wired in from outside.
func newProvider(cfg *config.Config) llmgateway.Provider {
	return llmgateway.NewEchoProvider(cfg.Provider.ModelName, nil)
}

// roleWeights converts the YAML-friendly string-keyed weights map into
// the AgentRole-keyed map internal/consensus expects. A nil/empty input
// leaves consensus.New to fall back to consensus.DefaultWeights.
func roleWeights(raw map[string]float64) map[models.AgentRole]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[models.AgentRole]float64, len(raw))
	for role, w := range raw {
		out[models.AgentRole(role)] = w
	}
	return out
}
