package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: programs, an optional
// engine configuration, and an ordered list of runs with expected
// outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides engine defaults. Zero fields keep the defaults.
	Config *ScenarioConfig `yaml:"config,omitempty"`

	// Programs maps a label to program source text. Runs refer to
	// programs by label.
	Programs map[string]string `yaml:"programs"`

	// Runs is the ordered list of engine invocations.
	Runs []RunStep `yaml:"runs"`
}

// ScenarioConfig is the subset of engine configuration scenarios may
// override.
type ScenarioConfig struct {
	TrustIncrement     float64 `yaml:"trust_increment,omitempty"`
	PromotionThreshold float64 `yaml:"promotion_threshold,omitempty"`
	CacheCapacity      int     `yaml:"cache_capacity,omitempty"`
	InstructionLimit   int     `yaml:"instruction_limit,omitempty"`
	ValueBound         int64   `yaml:"value_bound,omitempty"`
}

// RunStep invokes one program, optionally repeated, and optionally
// validates the outcome.
type RunStep struct {
	// Program is the label of the program to run.
	Program string `yaml:"program"`

	// Repeat runs the step this many times (default 1). The expectation
	// applies to the final repetition.
	Repeat int `yaml:"repeat,omitempty"`

	// Expect specifies the expected outcome. If nil, the run is only
	// recorded in the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected run outcomes. Empty fields are not
// validated; Output is validated whenever present, including as an
// explicit empty list.
type ExpectClause struct {
	// State is the expected terminal state (completed, rolled_back,
	// failed).
	State string `yaml:"state,omitempty"`

	// Mode is the expected final execution mode (interpreted, optimized,
	// failed).
	Mode string `yaml:"mode,omitempty"`

	// Output is the expected output line sequence.
	Output []string `yaml:"output,omitempty"`

	// Score is the expected trust score after the run, formatted with
	// one decimal place (e.g. "0.3").
	Score string `yaml:"score,omitempty"`

	// Violation is the expected violation kind (e.g. DIVISION_BY_ZERO).
	Violation string `yaml:"violation,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and every
// run refers to a defined program.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Programs) == 0 {
		return fmt.Errorf("programs map is required and must be non-empty")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, step := range s.Runs {
		if step.Program == "" {
			return fmt.Errorf("runs[%d]: program is required", i)
		}
		if _, ok := s.Programs[step.Program]; !ok {
			return fmt.Errorf("runs[%d]: unknown program %q", i, step.Program)
		}
		if step.Repeat < 0 {
			return fmt.Errorf("runs[%d]: repeat must be non-negative", i)
		}
	}

	return nil
}

// totalRuns returns the number of engine invocations the scenario
// performs, counting repeats.
func (s *Scenario) totalRuns() int {
	total := 0
	for _, step := range s.Runs {
		n := step.Repeat
		if n < 1 {
			n = 1
		}
		total += n
	}
	return total
}
