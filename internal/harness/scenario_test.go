package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: minimal
description: smallest valid scenario
programs:
  p: "x = 1\n"
runs:
  - program: p
    repeat: 3
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, 3, scenario.totalRuns())
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	// Typos like "run:" instead of "runs:" must fail loudly.
	path := writeScenario(t, `
name: typo
description: has a misspelled key
programs:
  p: "x = 1\n"
run:
  - program: p
`)

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_RejectsUnknownProgramLabel(t *testing.T) {
	path := writeScenario(t, `
name: dangling
description: run refers to an undefined program
programs:
  p: "x = 1\n"
runs:
  - program: q
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown program "q"`)
}

func TestLoadScenario_RequiresRuns(t *testing.T) {
	path := writeScenario(t, `
name: empty
description: no runs
programs:
  p: "x = 1\n"
runs: []
`)

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
