package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/roach88/aegis/internal/config"
	"github.com/roach88/aegis/internal/engine"
	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/optimize"
	"github.com/roach88/aegis/internal/store"
	"github.com/roach88/aegis/internal/trust"
)

// openStore loads config and opens the trust store, creating parent
// directories as needed. storeOverride, when non-empty, wins over the
// configured path.
func openStore(opts *RootOptions, storeOverride string) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err).WithCode(ErrCodeConfig)
	}

	path := cfg.StorePath
	if storeOverride != "" {
		path = storeOverride
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to create store directory", err).WithCode(ErrCodeStore)
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open trust store", err).WithCode(ErrCodeStore)
	}
	return cfg, st, nil
}

// buildEngine wires the ledger, artifact cache, and audit sink into an
// engine per the loaded config.
func buildEngine(cfg *config.Config, st *store.Store) *engine.Engine {
	ledger := trust.NewLedger(st,
		trust.WithIncrement(cfg.TrustIncrement),
		trust.WithThreshold(cfg.PromotionThreshold),
	)
	cache := optimize.NewCache(cfg.CacheCapacity)
	return engine.NewEngine(ledger, cache, st,
		engine.WithInstructionLimit(cfg.InstructionLimit),
		engine.WithValueBound(cfg.ValueBound),
	)
}

// parseFile reads and parses one program source file. Lexical and
// syntax errors map to ExitFailure; unreadable paths to ExitCommandError.
func parseFile(path string) (*lang.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read program", err).WithCode(ErrCodeNotFound)
	}
	prog, err := lang.Parse(string(src))
	if err != nil {
		code := ErrCodeSyntax
		var lexErr *lang.LexicalError
		if errors.As(err, &lexErr) {
			code = ErrCodeLex
		}
		return nil, WrapExitError(ExitFailure, "failed to parse program", err).WithCode(code)
	}
	return prog, nil
}
