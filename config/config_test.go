package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.MaxLiveMatches)
	assert.Equal(t, 50, cfg.MaxCompletedCache)
	assert.Equal(t, 2, cfg.JudgePanelSize)
	assert.Equal(t, 3, cfg.DebateExchanges)
	assert.InDelta(t, 0.5, cfg.DeactivationFailureRate, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARENA_MAX_LIVE_MATCHES", "4")
	t.Setenv("ARENA_JUDGE_PANEL_SIZE", "5")
	t.Setenv("ARENA_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxLiveMatches)
	assert.Equal(t, 5, cfg.JudgePanelSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.MaxCompletedCache)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_live_matches: 7\ndebate_exchanges: 5\n"), 0o600))

	t.Setenv("ARENA_CONFIG", path)
	t.Setenv("ARENA_MAX_LIVE_MATCHES", "9")

	cfg, err := Load()
	require.NoError(t, err)
	// Env wins over file; file wins over defaults.
	assert.Equal(t, 9, cfg.MaxLiveMatches)
	assert.Equal(t, 5, cfg.DebateExchanges)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv("ARENA_MAX_LIVE_MATCHES", "0")
	_, err := Load()
	assert.Error(t, err)
}
