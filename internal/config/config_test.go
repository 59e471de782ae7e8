package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Mode)
	assert.Equal(t, 3, cfg.Workflow.MaxRevisions)
}

func TestLoad_UserValuesOverrideDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "council.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
store:
  mode: "postgres"
  host: "db.internal"
workflow:
  max_revisions: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Store.Mode)
	assert.Equal(t, "db.internal", cfg.Store.Host)
	assert.Equal(t, 5, cfg.Workflow.MaxRevisions)
	// Unset sections keep their built-in defaults.
	assert.Equal(t, 5432, cfg.Store.Port)
}

func TestExpandEnv_ExpandsBraceAndBareVariables(t *testing.T) {
	t.Setenv("COUNCIL_TEST_HOST", "example.internal")
	out := ExpandEnv([]byte("host: ${COUNCIL_TEST_HOST}\nbare: $COUNCIL_TEST_HOST\n"))
	assert.Contains(t, string(out), "host: example.internal")
	assert.Contains(t, string(out), "bare: example.internal")
}

func TestResolvedDemoMode_ExplicitFlagWinsOverMissingKey(t *testing.T) {
	falseVal := false
	cfg := &Config{Provider: ProviderConfig{DemoMode: &falseVal, APIKeyEnv: "COUNCIL_MISSING_KEY"}}
	assert.False(t, cfg.ResolvedDemoMode())
}

func TestResolvedDemoMode_InfersFromMissingCredentials(t *testing.T) {
	cfg := &Config{Provider: ProviderConfig{APIKeyEnv: "COUNCIL_MISSING_KEY"}}
	assert.True(t, cfg.ResolvedDemoMode())
}
