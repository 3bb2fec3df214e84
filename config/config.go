// Package config defines arena configuration and its layered loading.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains the tunables of a running arena.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects json or text output.
	LogFormat string `koanf:"log_format"`

	// MaxLiveMatches is the admission ceiling on concurrent matches.
	MaxLiveMatches int `koanf:"max_live_matches"`

	// MaxCompletedCache bounds the in-memory cache of finished matches.
	MaxCompletedCache int `koanf:"max_completed_cache"`

	// JudgePanelSize is how many judges evaluate each match.
	JudgePanelSize int `koanf:"judge_panel_size"`

	// DebateExchanges is the number of back-and-forth rounds in a debate.
	DebateExchanges int `koanf:"debate_exchanges"`

	// DeactivationFailureRate removes a competitor from pairing once its
	// oracle failure rate exceeds this fraction.
	DeactivationFailureRate float64 `koanf:"deactivation_failure_rate"`

	// DeactivationMinAttempts is how many generation attempts are needed
	// before the failure rate is trusted.
	DeactivationMinAttempts int `koanf:"deactivation_min_attempts"`

	// DynamoTable names the persistence table; empty keeps matches in memory.
	DynamoTable string `koanf:"dynamo_table"`

	// AWSRegion is used when DynamoTable is set.
	AWSRegion string `koanf:"aws_region"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "json",
		MaxLiveMatches:          10,
		MaxCompletedCache:       50,
		JudgePanelSize:          2,
		DebateExchanges:         3,
		DeactivationFailureRate: 0.5,
		DeactivationMinAttempts: 3,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARENA_CONFIG is set
//  3. env (prefix ARENA_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ARENA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env keys like ARENA_MAX_LIVE_MATCHES map to max_live_matches.
	envProvider := env.Provider("ARENA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "arena_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.MaxLiveMatches <= 0 {
		return nil, errors.New("max_live_matches must be positive")
	}
	if cfg.JudgePanelSize < 0 {
		return nil, errors.New("judge_panel_size must not be negative")
	}
	return &cfg, nil
}
