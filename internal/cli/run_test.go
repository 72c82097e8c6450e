package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProgram drops program source into a temp file and returns its path.
func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.aeg")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// execute runs the CLI with args and returns stdout, stderr, and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "trust.db")
}

func TestRun_CleanProgram(t *testing.T) {
	prog := writeProgram(t, "x = 10\ny = x + 5\nprint y\n")
	storePath := tempStorePath(t)

	stdout, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)
	assert.Contains(t, stdout, "15\n")
	assert.Contains(t, stdout, "completed")
	assert.Contains(t, stdout, "interpreted")
}

func TestRun_TrustPersistsAcrossInvocations(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")
	storePath := tempStorePath(t)

	_, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)

	stdout, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)
	assert.Contains(t, stdout, "score 0.2", "the second run sees the first run's increment")
}

func TestRun_ViolationExitsWithFailure(t *testing.T) {
	prog := writeProgram(t, "x = 10\ny = 0\nresult = x / y\n")

	stdout, _, err := execute(t, "run", "--store", tempStorePath(t), prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "rolled back")
	assert.Contains(t, stdout, "division by zero")
}

func TestRun_AnalysisDefectExitsWithFailure(t *testing.T) {
	prog := writeProgram(t, "print ghost\n")

	stdout, _, err := execute(t, "run", "--store", tempStorePath(t), prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "rejected by analysis")
}

func TestRun_MissingFileIsCommandError(t *testing.T) {
	_, _, err := execute(t, "run", "--store", tempStorePath(t), "/nonexistent/prog.aeg")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_ParseErrorEmitsErrorCode(t *testing.T) {
	prog := writeProgram(t, "x = = 1\n")

	stdout, _, err := execute(t, "run", "--format", "json", "--store", tempStorePath(t), prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSyntax, resp.Error.Code)
}

func TestRun_LexicalErrorEmitsErrorCode(t *testing.T) {
	prog := writeProgram(t, "x = 1 @ 2\n")

	stdout, _, err := execute(t, "run", "--store", tempStorePath(t), prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "[E101]")
}

func TestRun_JSONFormat(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")

	stdout, _, err := execute(t, "run", "--format", "json", "--store", tempStorePath(t), prog)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", data["state"])
	assert.Equal(t, "interpreted", data["mode"])
	assert.Equal(t, []any{"1"}, data["output"])
}

func TestRun_BatchStopsNothingButReportsFailure(t *testing.T) {
	clean := writeProgram(t, "x = 1\nprint x\n")
	bad := writeProgram(t, "x = 1 / 0\n")
	storePath := tempStorePath(t)

	stdout, _, err := execute(t, "run", "--store", storePath, bad, clean)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	// The clean program after the violating one still ran.
	assert.Contains(t, stdout, "completed")
}

func TestRun_InvalidFormatRejected(t *testing.T) {
	_, _, err := execute(t, "run", "--format", "xml", "somefile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
