package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAndListIdentity executes a program and returns its identity from
// the trust store listing.
func runAndListIdentity(t *testing.T, storePath, prog string) string {
	t.Helper()
	_, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)

	stdout, _, err := execute(t, "trust", "show", "--store", storePath)
	require.NoError(t, err)
	fields := strings.Fields(stdout)
	require.NotEmpty(t, fields)
	return fields[0]
}

func TestTrustShow_ListsRecords(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")
	storePath := tempStorePath(t)

	_, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)

	stdout, _, err := execute(t, "trust", "show", "--store", storePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "score=0.1")
	assert.Contains(t, stdout, "level=NONE")
	assert.Contains(t, stdout, "executions=1")
}

func TestTrustShow_SingleIdentityWithHistory(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")
	storePath := tempStorePath(t)
	identity := runAndListIdentity(t, storePath, prog)

	stdout, _, err := execute(t, "trust", "show", "--store", storePath, identity)
	require.NoError(t, err)
	assert.Contains(t, stdout, "increment")
}

func TestTrustShow_AcceptsProgramFile(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")
	storePath := tempStorePath(t)

	_, _, err := execute(t, "run", "--store", storePath, prog)
	require.NoError(t, err)

	// A program path resolves to its identity's record.
	stdout, _, err := execute(t, "trust", "show", "--store", storePath, prog)
	require.NoError(t, err)
	assert.Contains(t, stdout, "score=0.1")
	assert.Contains(t, stdout, "increment")
}

func TestTrustShow_UnknownIdentityIsFailure(t *testing.T) {
	storePath := tempStorePath(t)

	_, _, err := execute(t, "trust", "show", "--store", storePath, "deadbeef")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTrustReset_RemovesRecord(t *testing.T) {
	prog := writeProgram(t, "x = 1\nprint x\n")
	storePath := tempStorePath(t)
	identity := runAndListIdentity(t, storePath, prog)

	stdout, _, err := execute(t, "trust", "reset", "--store", storePath, identity)
	require.NoError(t, err)
	assert.Contains(t, stdout, "trust reset")

	_, _, err = execute(t, "trust", "show", "--store", storePath, identity)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestTrustReset_UnknownIdentityIsFailure(t *testing.T) {
	storePath := tempStorePath(t)

	_, _, err := execute(t, "trust", "reset", "--store", storePath, "deadbeef")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
