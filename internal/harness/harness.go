package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/aegis/internal/engine"
	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/optimize"
	"github.com/roach88/aegis/internal/store"
	"github.com/roach88/aegis/internal/trust"
)

// TraceEvent records one engine invocation in a scenario trace.
// Score is pre-formatted to one decimal place so traces serialize
// canonically without floats.
type TraceEvent struct {
	Seq       int
	Program   string
	Identity  string
	State     string
	Mode      string
	Output    []string
	Score     string
	Violation string
}

// Result holds a scenario execution's trace and expectation failures.
type Result struct {
	Scenario *Scenario
	Trace    []TraceEvent
	Failures []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario against a fresh in-memory trust store.
// Run IDs are fixed ("run-1", "run-2", ...) so traces are
// deterministic. The returned error covers harness faults (bad program
// source, storage); expectation mismatches land in Result.Failures.
func Run(scenario *Scenario) (*Result, error) {
	programs := make(map[string]*lang.Program, len(scenario.Programs))
	for label, src := range scenario.Programs {
		prog, err := lang.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", label, err)
		}
		programs[label] = prog
	}

	eng := buildEngine(scenario)
	result := &Result{Scenario: scenario}
	ctx := context.Background()

	seq := 0
	for i, step := range scenario.Runs {
		repeat := step.Repeat
		if repeat < 1 {
			repeat = 1
		}

		for rep := 0; rep < repeat; rep++ {
			seq++
			res, err := eng.Execute(ctx, programs[step.Program])
			if err != nil {
				return nil, fmt.Errorf("runs[%d] (%s): %w", i, step.Program, err)
			}

			ev := TraceEvent{
				Seq:      seq,
				Program:  step.Program,
				Identity: res.Identity,
				State:    string(res.State),
				Mode:     string(res.Mode),
				Output:   res.Output,
				Score:    fmt.Sprintf("%.1f", res.TrustScore),
			}
			if res.Violation != nil {
				ev.Violation = string(res.Violation.Kind)
			}
			result.Trace = append(result.Trace, ev)

			// The expectation applies to the final repetition.
			if step.Expect != nil && rep == repeat-1 {
				checkExpectation(result, i, step.Expect, ev)
			}
		}
	}

	return result, nil
}

// buildEngine wires an engine per the scenario's config over in-memory
// storage and fixed run IDs.
func buildEngine(scenario *Scenario) *engine.Engine {
	cfg := scenario.Config
	if cfg == nil {
		cfg = &ScenarioConfig{}
	}

	mem := store.NewMemory()
	ledger := trust.NewLedger(mem,
		trust.WithIncrement(cfg.TrustIncrement),
		trust.WithThreshold(cfg.PromotionThreshold),
	)
	cache := optimize.NewCache(cfg.CacheCapacity)

	ids := make([]string, scenario.totalRuns())
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}

	return engine.NewEngine(ledger, cache, mem,
		engine.WithInstructionLimit(cfg.InstructionLimit),
		engine.WithValueBound(cfg.ValueBound),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(ids...)),
	)
}

func checkExpectation(result *Result, step int, expect *ExpectClause, ev TraceEvent) {
	fail := func(format string, args ...any) {
		result.Failures = append(result.Failures,
			fmt.Sprintf("runs[%d] (seq %d): %s", step, ev.Seq, fmt.Sprintf(format, args...)))
	}

	if expect.State != "" && ev.State != expect.State {
		fail("state %q, want %q", ev.State, expect.State)
	}
	if expect.Mode != "" && ev.Mode != expect.Mode {
		fail("mode %q, want %q", ev.Mode, expect.Mode)
	}
	if expect.Output != nil && !slices.Equal(ev.Output, expect.Output) {
		fail("output %v, want %v", ev.Output, expect.Output)
	}
	if expect.Score != "" && ev.Score != expect.Score {
		fail("score %s, want %s", ev.Score, expect.Score)
	}
	if expect.Violation != "" && ev.Violation != expect.Violation {
		fail("violation %q, want %q", ev.Violation, expect.Violation)
	}
}
