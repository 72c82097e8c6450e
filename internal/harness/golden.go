package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/aegis/internal/lang"
)

// toCanonicalMap converts a result's trace to a map[string]any for
// canonical JSON serialization. Identities are excluded: they are
// content hashes, and the program labels already correlate runs.
// Scores are pre-formatted strings because canonical JSON forbids
// floats.
func (r *Result) toCanonicalMap() map[string]any {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		entry := map[string]any{
			"seq":     ev.Seq,
			"program": ev.Program,
			"state":   ev.State,
			"mode":    ev.Mode,
			"score":   ev.Score,
		}
		if len(ev.Output) > 0 {
			output := make([]any, len(ev.Output))
			for j, line := range ev.Output {
				output[j] = line
			}
			entry["output"] = output
		}
		if ev.Violation != "" {
			entry["violation"] = ev.Violation
		}
		trace[i] = entry
	}

	return map[string]any{
		"scenario_name": r.Scenario.Name,
		"trace":         trace,
	}
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; expectation and golden
// mismatches fail the test.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := lang.MarshalCanonical(result.toCanonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
