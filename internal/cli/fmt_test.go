package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFmt_PrintsCanonicalForm(t *testing.T) {
	prog := writeProgram(t, "x   =10\nprint    x\n")

	stdout, _, err := execute(t, "fmt", prog)
	require.NoError(t, err)
	assert.Equal(t, "x = 10\nprint x\n", stdout)
}

func TestFmt_WriteRewritesInPlace(t *testing.T) {
	prog := writeProgram(t, "x=((1+2))*3\n")

	_, _, err := execute(t, "fmt", "-w", prog)
	require.NoError(t, err)

	data, err := os.ReadFile(prog)
	require.NoError(t, err)
	assert.Equal(t, "x = (1 + 2) * 3\n", string(data))
}

func TestFmt_SyntaxErrorIsFailure(t *testing.T) {
	prog := writeProgram(t, "x = (1\n")

	stdout, _, err := execute(t, "fmt", prog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "[E102]")
}
