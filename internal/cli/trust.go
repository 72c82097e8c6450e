package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/aegis/internal/lang"
	"github.com/roach88/aegis/internal/store"
	"github.com/roach88/aegis/internal/trust"
)

// TrustOptions holds flags shared by the trust subcommands.
type TrustOptions struct {
	*RootOptions
	Store string
}

// trustReport is the per-identity payload emitted by trust show.
type trustReport struct {
	Identity       string   `json:"identity"`
	Score          float64  `json:"score"`
	Level          string   `json:"level"`
	ExecutionCount int      `json:"execution_count"`
	LastViolation  string   `json:"last_violation,omitempty"`
	History        []string `json:"history,omitempty"`
	Rollbacks      []string `json:"rollbacks,omitempty"`
}

// NewTrustCommand creates the trust command group.
func NewTrustCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrustOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect and manage the trust store",
	}

	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "path to SQLite trust store (overrides config)")

	cmd.AddCommand(newTrustShowCommand(opts))
	cmd.AddCommand(newTrustResetCommand(opts))

	return cmd
}

func newTrustShowCommand(opts *TrustOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show [file|identity]",
		Short:         "Show trust records, or one identity's full history",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := ""
			if len(args) == 1 {
				var err error
				if identity, err = resolveIdentity(args[0]); err != nil {
					return err
				}
			}
			return showTrust(cmd, opts, identity)
		},
	}
}

func newTrustResetCommand(opts *TrustOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <file|identity>",
		Short: "Delete an identity's trust record and history",
		Long: `Delete an identity's trust record and event history, returning it
to the untrusted state. The rollback audit log is retained.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := resolveIdentity(args[0])
			if err != nil {
				return err
			}
			return resetTrust(cmd, opts, identity)
		},
	}
}

// resolveIdentity accepts either a program file path or a literal
// identity. A readable path is parsed and hashed; anything else passes
// through unchanged.
func resolveIdentity(arg string) (string, error) {
	if _, err := os.Stat(arg); err != nil {
		return arg, nil
	}
	prog, err := parseFile(arg)
	if err != nil {
		return "", err
	}
	return lang.Identity(prog)
}

func showTrust(cmd *cobra.Command, opts *TrustOptions, identity string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	_, st, err := openStore(opts.RootOptions, opts.Store)
	if err != nil {
		formatter.EmitError(err)
		return err
	}
	defer closeStore(st)

	identities := []string{identity}
	if identity == "" {
		identities, err = st.ListIdentities(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list identities", err).WithCode(ErrCodeStore)
		}
	}

	for _, id := range identities {
		rec, found, err := st.Load(cmd.Context(), id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load trust record", err)
		}
		if !found {
			err := NewExitError(ExitFailure, fmt.Sprintf("no trust record for identity %s", id)).WithCode(ErrCodeNotFound)
			formatter.EmitError(err)
			return err
		}

		report := buildTrustReport(rec)
		if identity != "" {
			rollbacks, err := st.ReadRollbacks(cmd.Context(), id)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read rollback log", err)
			}
			for _, rb := range rollbacks {
				report.Rollbacks = append(report.Rollbacks, fmt.Sprintf("%s %s prior_score=%.1f: %s",
					rb.At.Format(time.RFC3339), rb.ViolationKind, rb.PriorScore, rb.Message))
			}
		}

		if err := emitTrustReport(formatter, report, identity != ""); err != nil {
			return err
		}
	}

	return nil
}

func buildTrustReport(rec *trust.Record) *trustReport {
	report := &trustReport{
		Identity:       rec.Identity,
		Score:          rec.Score,
		Level:          trust.Level(rec.Score),
		ExecutionCount: rec.ExecutionCount,
	}
	if rec.LastViolation != nil {
		report.LastViolation = rec.LastViolation.Format(time.RFC3339)
	}
	for _, ev := range rec.History {
		report.History = append(report.History, fmt.Sprintf("%s %s score=%.1f",
			ev.At.Format(time.RFC3339), ev.Kind, ev.Score))
	}
	return report
}

func emitTrustReport(f *OutputFormatter, r *trustReport, detailed bool) error {
	if f.Format == "json" {
		return f.SuccessJSON(r, "")
	}

	fmt.Fprintf(f.Writer, "%s score=%.1f level=%s executions=%d\n",
		r.Identity, r.Score, r.Level, r.ExecutionCount)
	if !detailed {
		return nil
	}
	if r.LastViolation != "" {
		fmt.Fprintf(f.Writer, "  last violation: %s\n", r.LastViolation)
	}
	for _, h := range r.History {
		fmt.Fprintf(f.Writer, "  %s\n", h)
	}
	for _, rb := range r.Rollbacks {
		fmt.Fprintf(f.Writer, "  rollback: %s\n", rb)
	}
	return nil
}

func resetTrust(cmd *cobra.Command, opts *TrustOptions, identity string) error {
	_, st, err := openStore(opts.RootOptions, opts.Store)
	if err != nil {
		return err
	}
	defer closeStore(st)

	existed, err := st.ResetTrust(cmd.Context(), identity)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reset trust", err).WithCode(ErrCodeStore)
	}
	if !existed {
		return NewExitError(ExitFailure, fmt.Sprintf("no trust record for identity %s", identity)).WithCode(ErrCodeNotFound)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "trust reset for %s\n", identity)
	return nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing trust store", "error", err)
	}
}
