// Package config loads the council service's umbrella configuration:
// YAML file, ${VAR} env expansion, then a merge over built-in defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/raju-bvssn/ai-agent-council/internal/consensus"
	"github.com/raju-bvssn/ai-agent-council/internal/debate"
	"github.com/raju-bvssn/ai-agent-council/internal/retention"
)

// Config is the fully-resolved, ready-to-use configuration object
// returned by Load.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Provider ProviderConfig `yaml:"provider"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Debate   debate.Config  `yaml:"debate"`
	Weights  map[string]float64 `yaml:"weights"`
	Threshold float64       `yaml:"threshold"`
	Retention retention.Config `yaml:"retention"`
}

// ServerConfig holds the HTTP/WebSocket transport settings.
type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// StoreConfig selects and configures persistence. Mode "memory" runs
// without a database, the natural pairing for demo-mode deployments.
type StoreConfig struct {
	Mode            string        `yaml:"mode"` // "memory" | "postgres"
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password_env"` // name of env var holding the password
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ProviderConfig holds the LLM backend settings. Demo mode is on when
// DemoMode is true, or when DemoMode is left unset and APIKeyEnv names an
// unset variable; an explicit flag always wins over the
// missing-credentials inference. Demo mode switches the http_fetch tool
// to canned responses and is recorded on the deliverables bundle; the
// backend itself is the offline EchoProvider in either mode.
type ProviderConfig struct {
	DemoMode    *bool  `yaml:"demo_mode"`
	APIKeyEnv   string `yaml:"api_key_env"`
	ModelName   string `yaml:"model_name"`
	AutoSelect  bool   `yaml:"auto_select_model"`
}

// WorkflowConfig holds the workflow loop bounds as read from the config
// file. Nothing outside this package reads them: a session's revision
// limit comes from its CreateSession request (3 when unset).
type WorkflowConfig struct {
	MaxRevisions int `yaml:"max_revisions"`
	MaxRounds    int `yaml:"max_rounds"`
}

// defaults holds every field Load fills in when the user's YAML and
// environment leave it unset.
func defaults() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Store: StoreConfig{
			Mode:            "memory",
			Port:            5432,
			SSLMode:         "require",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Provider: ProviderConfig{
			ModelName:  "demo-echo",
			AutoSelect: true,
		},
		Workflow: WorkflowConfig{
			MaxRevisions: 3,
			MaxRounds:    10,
		},
		Debate:    debate.DefaultConfig(),
		Weights:   nil,
		Threshold: consensus.DefaultThreshold,
		Retention: retention.DefaultConfig(),
	}
}

// Load reads path (if non-empty and present), expands ${VAR}/$VAR
// references against the process environment, merges it over the
// built-in defaults, and returns the resolved Config.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &cfg, nil
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		expanded := ExpandEnv(raw)

		var user Config
		if err := yaml.Unmarshal(expanded, &user); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}

		if err := mergo.Merge(&cfg, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	return &cfg, nil
}

// ExpandEnv expands ${VAR}/$VAR references in YAML content. Missing
// variables expand to empty string.
func ExpandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	}))
}

// StorePassword resolves the store password from the environment
// variable named by StoreConfig.Password, per the YAML convention of
// never inlining secrets directly in config files.
func (c *Config) StorePassword() string {
	if c.Store.Password == "" {
		return ""
	}
	return os.Getenv(c.Store.Password)
}

// ProviderAPIKey resolves the provider API key from the environment.
func (c *Config) ProviderAPIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// ResolvedDemoMode implements Open Question 4's precedence: an explicit
// DemoMode flag always wins; only when the config is silent does the
// absence of an API key infer demo mode.
func (c *Config) ResolvedDemoMode() bool {
	if c.Provider.DemoMode != nil {
		return *c.Provider.DemoMode
	}
	return c.ProviderAPIKey() == ""
}
