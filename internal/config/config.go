// Package config loads AEGIS engine configuration from a CUE file,
// validating it against an embedded schema and filling defaults for
// anything unset.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Config carries every tunable the engine accepts.
type Config struct {
	// TrustIncrement is the score delta per clean execution.
	TrustIncrement float64 `json:"trust_increment"`

	// PromotionThreshold is the score at which an identity becomes
	// eligible for the optimized path.
	PromotionThreshold float64 `json:"promotion_threshold"`

	// CacheCapacity bounds the artifact cache entry count.
	CacheCapacity int `json:"cache_capacity"`

	// InstructionLimit is the per-run instruction ceiling.
	InstructionLimit int `json:"instruction_limit"`

	// ValueBound is the arithmetic magnitude bound.
	ValueBound int64 `json:"value_bound"`

	// StorePath locates the SQLite trust store.
	StorePath string `json:"store_path"`
}

// Default returns the configuration with every field at its schema
// default.
func Default() (*Config, error) {
	return decode(cuecontext.New().CompileString(schemaCUE))
}

// Load reads and validates a CUE config file. An empty path returns the
// defaults. Fields absent from the file take their schema defaults;
// fields outside the schema's constraints fail with a position-carrying
// error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileString(string(data), cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return decode(schema.Unify(value))
}

func decode(v cue.Value) (*Config, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
