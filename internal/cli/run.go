package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/aegis/internal/engine"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Store string
}

// runReport is the per-file payload emitted by the run command.
type runReport struct {
	File            string           `json:"file"`
	RunID           string           `json:"run_id"`
	Identity        string           `json:"identity"`
	State           string           `json:"state"`
	Mode            string           `json:"mode"`
	Output          []string         `json:"output"`
	Variables       map[string]int64 `json:"variables"`
	TrustScore      float64          `json:"trust_score"`
	TrustLevel      string           `json:"trust_level"`
	ExecutionCount  int              `json:"execution_count"`
	Instructions    int              `json:"instructions"`
	SpeedMultiplier float64          `json:"speed_multiplier"`
	Violation       *CLIError        `json:"violation,omitempty"`
	Defects         []string         `json:"defects,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program>...",
		Short: "Execute programs through the adaptive engine",
		Long: `Execute one or more program files through the adaptive engine.

Each file is parsed, analyzed, and run on the path its trust level
selects: interpreted for new or demoted identities, optimized replay
for identities at or above the promotion threshold. Clean runs raise
trust; violations roll it back to zero.

Example:
  aegis run prog.aeg
  aegis run --store /tmp/trust.db a.aeg b.aeg --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrograms(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "path to SQLite trust store (overrides config)")

	return cmd
}

func runPrograms(cmd *cobra.Command, opts *RunOptions, files []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, st, err := openStore(opts.RootOptions, opts.Store)
	if err != nil {
		formatter.EmitError(err)
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing trust store", "error", closeErr)
		}
	}()

	eng := buildEngine(cfg, st)

	failed := false
	for _, file := range files {
		report, err := runOne(cmd.Context(), eng, file)
		if err != nil {
			formatter.EmitError(err)
			return err
		}
		if err := emitRunReport(formatter, report); err != nil {
			return err
		}
		if report.State != string(engine.StateCompleted) {
			failed = true
		}
	}

	if failed {
		return NewExitError(ExitFailure, "one or more runs did not complete cleanly")
	}
	return nil
}

func runOne(ctx context.Context, eng *engine.Engine, file string) (*runReport, error) {
	prog, err := parseFile(file)
	if err != nil {
		return nil, err
	}

	res, err := eng.Execute(ctx, prog)
	if err != nil && res == nil {
		return nil, WrapExitError(ExitCommandError, "execution failed", err)
	}
	if err != nil {
		// Infrastructure fault after the run finished (trust persistence
		// or audit). The outcome stands; surface the fault as a warning.
		slog.Warn("run finished with persistence fault", "file", file, "error", err)
	}

	report := &runReport{
		File:            file,
		RunID:           res.RunID,
		Identity:        res.Identity,
		State:           string(res.State),
		Mode:            string(res.Mode),
		Output:          res.Output,
		Variables:       res.Variables,
		TrustScore:      res.TrustScore,
		TrustLevel:      res.TrustLevel,
		ExecutionCount:  res.ExecutionCount,
		Instructions:    res.Metrics.Instructions,
		SpeedMultiplier: res.SpeedMultiplier,
	}

	if res.Violation != nil {
		report.Violation = &CLIError{
			Code:    ErrCodeViolation,
			Message: res.Violation.Message,
			Details: map[string]string{"kind": string(res.Violation.Kind)},
		}
	}
	for _, d := range res.Defects {
		report.Defects = append(report.Defects, d.Error())
	}

	return report, nil
}

func emitRunReport(f *OutputFormatter, r *runReport) error {
	if f.Format == "json" {
		return f.SuccessJSON(r, r.RunID)
	}

	for _, line := range r.Output {
		fmt.Fprintln(f.Writer, line)
	}
	switch r.State {
	case string(engine.StateCompleted):
		fmt.Fprintf(f.Writer, "%s: completed (%s, score %.1f, %s)\n",
			r.File, r.Mode, r.TrustScore, r.TrustLevel)
	case string(engine.StateRolledBack):
		fmt.Fprintf(f.Writer, "%s: rolled back: %s\n", r.File, r.Violation.Message)
	case string(engine.StateFailed):
		fmt.Fprintf(f.Writer, "%s: rejected by analysis:\n", r.File)
		for _, d := range r.Defects {
			fmt.Fprintf(f.Writer, "  %s\n", d)
		}
	}
	f.VerboseLog("identity=%s instructions=%d multiplier=%.2f",
		r.Identity, r.Instructions, r.SpeedMultiplier)
	return nil
}
