package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/optimize"
	"github.com/roach88/aegis/internal/runtime"
	"github.com/roach88/aegis/internal/trust"
)

// Engine executes programs through the trust-gated state machine. It is
// safe for concurrent use; each Execute call owns its own Execution
// Context, monitor, and interpreter, sharing only the ledger, the
// artifact cache, and the audit sink.
type Engine struct {
	ledger      *trust.Ledger
	cache       *optimize.Cache
	coordinator *Coordinator
	runIDs      RunIDGenerator

	instructionLimit int
	valueBound       int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithInstructionLimit sets the per-run instruction ceiling.
func WithInstructionLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.instructionLimit = limit
		}
	}
}

// WithValueBound sets the arithmetic magnitude bound.
func WithValueBound(bound int64) Option {
	return func(e *Engine) {
		if bound > 0 {
			e.valueBound = bound
		}
	}
}

// WithRunIDGenerator substitutes the run ID source, for deterministic
// tests.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.runIDs = gen
		}
	}
}

// NewEngine creates an engine over a trust ledger and artifact cache.
// The audit sink may be nil.
func NewEngine(ledger *trust.Ledger, cache *optimize.Cache, audit RollbackSink, opts ...Option) *Engine {
	e := &Engine{
		ledger:           ledger,
		cache:            cache,
		coordinator:      NewCoordinator(ledger, cache, audit),
		runIDs:           UUIDv7Generator{},
		instructionLimit: runtime.DefaultInstructionLimit,
		valueBound:       runtime.DefaultValueBound,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one program through the full state machine and returns
// its terminal Result. The returned error reports infrastructure faults
// (identity derivation, trust persistence, audit); violations and
// analysis defects are outcomes, carried in the Result, not errors.
func (e *Engine) Execute(ctx context.Context, prog *lang.Program) (*Result, error) {
	runID := e.runIDs.Generate()

	identity, err := lang.Identity(prog)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:           runID,
		Identity:        identity,
		State:           StateStart,
		SpeedMultiplier: 1.0,
	}

	// Start -> Analyzed, or terminal Failed on any defect.
	if defects := lang.Analyze(prog); len(defects) > 0 {
		res.State = StateFailed
		res.Defects = defects
		slog.Info("run rejected by analysis",
			"run_id", runID,
			"identity", identity,
			"defects", len(defects),
		)
		return res, nil
	}
	res.State = StateAnalyzed

	// The promotion decision reads the score persisted before this run;
	// this run's own increment only affects the next invocation.
	promotable := e.ledger.IsPromotable(ctx, identity)

	mode := runtime.ModeInterpreted
	if promotable {
		mode = runtime.ModeOptimized
	}
	rctx := runtime.NewContext(identity, mode)
	monitor := runtime.NewMonitor(e.instructionLimit)
	monitor.Start(rctx)

	slog.Debug("run started",
		"run_id", runID,
		"identity", identity,
		"mode", mode,
	)

	if promotable {
		res.State = StateOptimizing
		e.runOptimized(identity, prog, rctx, monitor, res)
	} else {
		res.State = StateInterpreting
		e.runInterpreted(prog, rctx, monitor)
	}

	res.Metrics = monitor.Metrics()

	// Both execution states converge on the monitor's verdict.
	if violations := monitor.Check(); len(violations) > 0 {
		res.State = StateViolated
		res.Violation = violations[0]

		_, rbErr := e.coordinator.Handle(ctx, identity, res.Violation, rctx)
		res.State = StateRolledBack
		res.TrustScore = 0.0
		res.TrustLevel = trust.Level(0.0)
		res.Mode = rctx.Mode()
		res.Variables = rctx.Variables()
		res.Output = rctx.Output()

		return res, rbErr
	}

	res.State = StateCompleted
	res.Mode = rctx.Mode()
	res.Variables = rctx.Variables()
	res.Output = rctx.Output()

	rec, saveErr := e.ledger.RecordCleanExecution(ctx, identity, res.Metrics)
	res.TrustScore = rec.Score
	res.TrustLevel = trust.Level(rec.Score)
	res.ExecutionCount = rec.ExecutionCount

	slog.Debug("run completed",
		"run_id", runID,
		"identity", identity,
		"mode", res.Mode,
		"score", rec.Score,
	)
	return res, saveErr
}

func (e *Engine) runInterpreted(prog *lang.Program, rctx *runtime.Context, monitor *runtime.Monitor) {
	interp := runtime.NewInterpreter(monitor, e.valueBound)
	// The violation, if any, is already in the monitor; the state
	// machine reads the verdict from there.
	_ = interp.Run(prog, rctx)
}

// runOptimized promotes the identity if its artifact is not cached,
// then replays. An artifact evicted between the promote and the run is
// recompiled rather than silently skipped.
func (e *Engine) runOptimized(identity string, prog *lang.Program, rctx *runtime.Context, monitor *runtime.Monitor, res *Result) {
	if !e.cache.Contains(identity) {
		e.cache.Promote(identity, prog, e.valueBound)
	}

	art, err := e.cache.Run(identity, rctx, monitor, e.valueBound)
	if optimize.IsNotCached(err) {
		art = e.cache.Promote(identity, prog, e.valueBound)
		_ = art.Replay(rctx, monitor, e.valueBound)
	}
	if art != nil {
		res.SpeedMultiplier = art.SpeedMultiplier
	}
}
