package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/aegis/internal/lang"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Write bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <program>...",
		Short: "Render programs in canonical form",
		Long: `Parse program files and render them in canonical form: one
statement per line, single spaces, minimal parentheses. Formatting
never changes a program's code identity, which hashes the AST rather
than the source text.

Example:
  aegis fmt prog.aeg
  aegis fmt -w prog.aeg`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatPrograms(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "rewrite files in place instead of printing")

	return cmd
}

func formatPrograms(cmd *cobra.Command, opts *FmtOptions, files []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	for _, file := range files {
		prog, err := parseFile(file)
		if err != nil {
			formatter.EmitError(err)
			return err
		}

		formatted := lang.Format(prog)

		if opts.Write {
			if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write formatted program", err)
			}
			continue
		}
		fmt.Fprint(cmd.OutOrStdout(), formatted)
	}
	return nil
}
