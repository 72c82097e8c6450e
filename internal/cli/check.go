package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/aegis/internal/lang"
)

// checkReport is the payload emitted by the check command.
type checkReport struct {
	File     string   `json:"file"`
	Identity string   `json:"identity"`
	Defects  []string `json:"defects,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program>...",
		Short: "Parse and analyze programs without executing them",
		Long: `Parse program files, run static analysis, and report the code
identity each would execute under. Nothing is executed and no trust
state is touched.

Example:
  aegis check prog.aeg`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkPrograms(cmd, rootOpts, args)
		},
	}

	return cmd
}

func checkPrograms(cmd *cobra.Command, opts *RootOptions, files []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	defective := false
	for _, file := range files {
		prog, err := parseFile(file)
		if err != nil {
			formatter.EmitError(err)
			return err
		}

		identity, err := lang.Identity(prog)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to derive identity", err)
		}

		report := &checkReport{File: file, Identity: identity}
		for _, d := range lang.Analyze(prog) {
			report.Defects = append(report.Defects, d.Error())
		}
		if len(report.Defects) > 0 {
			defective = true
		}

		if formatter.Format == "json" {
			if err := formatter.SuccessJSON(report, ""); err != nil {
				return err
			}
			continue
		}

		if len(report.Defects) == 0 {
			fmt.Fprintf(formatter.Writer, "%s: ok (identity %.12s)\n", file, identity)
		} else {
			fmt.Fprintf(formatter.Writer, "%s: %d defect(s):\n", file, len(report.Defects))
			for _, d := range report.Defects {
				fmt.Fprintf(formatter.Writer, "  %s\n", d)
			}
		}
	}

	if defective {
		return NewExitError(ExitFailure, "one or more programs have defects").WithCode(ErrCodeAnalysis)
	}
	return nil
}
