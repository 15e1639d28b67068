package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level platewise.yml configuration.
// The resolver thresholds are policy parameters, not constants: the
// shipped defaults are the empirically tuned values, but deployments
// can retune them without a code change.
type Config struct {
	Version  string          `yaml:"version"`
	Resolver *ResolverConfig `yaml:"resolver,omitempty"`
	Confirm  *ConfirmConfig  `yaml:"confirm,omitempty"`
	Sync     *SyncConfig     `yaml:"sync,omitempty"`
	Journal  *JournalConfig  `yaml:"journal,omitempty"`
}

// ResolverConfig holds the nutrition-source arbitration policy.
type ResolverConfig struct {
	// BarcodeMinConfidence is the branded confidence required to trust a
	// barcode-backed product match outright (rule 1).
	BarcodeMinConfidence *int `yaml:"barcode_min_confidence,omitempty"`

	// RescueMinConfidence is the branded confidence required when the
	// generic estimate failed (rule 3).
	RescueMinConfidence *int `yaml:"rescue_min_confidence,omitempty"`

	// StrongBrandConfidence and WeakGenericConfidence gate the
	// "both found but generic is weak" override (rule 4).
	StrongBrandConfidence *int `yaml:"strong_brand_confidence,omitempty"`
	WeakGenericConfidence *int `yaml:"weak_generic_confidence,omitempty"`

	// LookupTimeoutSeconds bounds each provider branch.
	LookupTimeoutSeconds *int `yaml:"lookup_timeout_seconds,omitempty"`
}

// ConfirmConfig holds confirmation state machine budgets.
type ConfirmConfig struct {
	// StepTimeoutSeconds bounds any single resolution or persistence step.
	StepTimeoutSeconds *int `yaml:"step_timeout_seconds,omitempty"`

	// PipelineTimeoutSeconds bounds the whole confirmation run.
	PipelineTimeoutSeconds *int `yaml:"pipeline_timeout_seconds,omitempty"`

	// MaxCalories is the upper bound accepted at confirm time.
	MaxCalories *int `yaml:"max_calories,omitempty"`
}

// SyncConfig holds realtime sync engine tuning.
type SyncConfig struct {
	// DedupWindowSeconds is how long a locally-written id is recognized
	// and discarded when echoed back by the change feed.
	DedupWindowSeconds *int `yaml:"dedup_window_seconds,omitempty"`

	// ReconnectBaseMs is the first reconnect delay; it doubles per
	// attempt up to ReconnectCapMs.
	ReconnectBaseMs *int `yaml:"reconnect_base_ms,omitempty"`
	ReconnectCapMs  *int `yaml:"reconnect_cap_ms,omitempty"`
}

// JournalConfig holds the local fallback journal settings.
type JournalConfig struct {
	// Path is the sqlite file for entries that failed to persist.
	// Empty disables the journal.
	Path string `yaml:"path,omitempty"`
}

// Default returns a fully-populated configuration with shipped defaults.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	cfg.applyDefaults()
	return cfg
}

func intPtr(v int) *int { return &v }

func (c *Config) applyDefaults() {
	if c.Resolver == nil {
		c.Resolver = &ResolverConfig{}
	}
	if c.Resolver.BarcodeMinConfidence == nil {
		c.Resolver.BarcodeMinConfidence = intPtr(95)
	}
	if c.Resolver.RescueMinConfidence == nil {
		c.Resolver.RescueMinConfidence = intPtr(90)
	}
	if c.Resolver.StrongBrandConfidence == nil {
		c.Resolver.StrongBrandConfidence = intPtr(95)
	}
	if c.Resolver.WeakGenericConfidence == nil {
		c.Resolver.WeakGenericConfidence = intPtr(70)
	}
	if c.Resolver.LookupTimeoutSeconds == nil {
		c.Resolver.LookupTimeoutSeconds = intPtr(20)
	}

	if c.Confirm == nil {
		c.Confirm = &ConfirmConfig{}
	}
	if c.Confirm.StepTimeoutSeconds == nil {
		c.Confirm.StepTimeoutSeconds = intPtr(30)
	}
	if c.Confirm.PipelineTimeoutSeconds == nil {
		c.Confirm.PipelineTimeoutSeconds = intPtr(120)
	}
	if c.Confirm.MaxCalories == nil {
		c.Confirm.MaxCalories = intPtr(5000)
	}

	if c.Sync == nil {
		c.Sync = &SyncConfig{}
	}
	if c.Sync.DedupWindowSeconds == nil {
		c.Sync.DedupWindowSeconds = intPtr(10)
	}
	if c.Sync.ReconnectBaseMs == nil {
		c.Sync.ReconnectBaseMs = intPtr(500)
	}
	if c.Sync.ReconnectCapMs == nil {
		c.Sync.ReconnectCapMs = intPtr(30000)
	}

	if c.Journal == nil {
		c.Journal = &JournalConfig{}
	}
}

// Validate performs strict validation on the configuration.
// Defaults are applied before validation so a partial file is fine.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	for name, v := range map[string]int{
		"resolver.barcode_min_confidence":  *c.Resolver.BarcodeMinConfidence,
		"resolver.rescue_min_confidence":   *c.Resolver.RescueMinConfidence,
		"resolver.strong_brand_confidence": *c.Resolver.StrongBrandConfidence,
		"resolver.weak_generic_confidence": *c.Resolver.WeakGenericConfidence,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be 0..100, got %d", name, v)
		}
	}

	if *c.Resolver.LookupTimeoutSeconds <= 0 {
		return fmt.Errorf("resolver.lookup_timeout_seconds must be positive, got %d", *c.Resolver.LookupTimeoutSeconds)
	}
	if *c.Confirm.StepTimeoutSeconds <= 0 {
		return fmt.Errorf("confirm.step_timeout_seconds must be positive, got %d", *c.Confirm.StepTimeoutSeconds)
	}
	if *c.Confirm.PipelineTimeoutSeconds < *c.Confirm.StepTimeoutSeconds {
		return fmt.Errorf("confirm.pipeline_timeout_seconds (%d) cannot be below step timeout (%d)",
			*c.Confirm.PipelineTimeoutSeconds, *c.Confirm.StepTimeoutSeconds)
	}
	if *c.Confirm.MaxCalories <= 0 {
		return fmt.Errorf("confirm.max_calories must be positive, got %d", *c.Confirm.MaxCalories)
	}
	if *c.Sync.DedupWindowSeconds <= 0 {
		return fmt.Errorf("sync.dedup_window_seconds must be positive, got %d", *c.Sync.DedupWindowSeconds)
	}
	if *c.Sync.ReconnectBaseMs <= 0 {
		return fmt.Errorf("sync.reconnect_base_ms must be positive, got %d", *c.Sync.ReconnectBaseMs)
	}
	if *c.Sync.ReconnectCapMs < *c.Sync.ReconnectBaseMs {
		return fmt.Errorf("sync.reconnect_cap_ms (%d) cannot be below reconnect_base_ms (%d)",
			*c.Sync.ReconnectCapMs, *c.Sync.ReconnectBaseMs)
	}

	return nil
}

// Duration accessors so callers don't juggle unit conversions.

func (r *ResolverConfig) LookupTimeout() time.Duration {
	return time.Duration(*r.LookupTimeoutSeconds) * time.Second
}

func (c *ConfirmConfig) StepTimeout() time.Duration {
	return time.Duration(*c.StepTimeoutSeconds) * time.Second
}

func (c *ConfirmConfig) PipelineTimeout() time.Duration {
	return time.Duration(*c.PipelineTimeoutSeconds) * time.Second
}

func (s *SyncConfig) DedupWindow() time.Duration {
	return time.Duration(*s.DedupWindowSeconds) * time.Second
}

func (s *SyncConfig) ReconnectBase() time.Duration {
	return time.Duration(*s.ReconnectBaseMs) * time.Millisecond
}

func (s *SyncConfig) ReconnectCap() time.Duration {
	return time.Duration(*s.ReconnectCapMs) * time.Millisecond
}

// Load reads and validates platewise.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
