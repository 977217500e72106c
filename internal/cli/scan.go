package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/budget"
	"github.com/roach88/atlas/internal/eye"
	"github.com/roach88/atlas/internal/session"
)

// NewScanCommand creates the scan command: observe a directory tree
// with the filesystem eye under a budget.
func NewScanCommand(opts *RootOptions) *cobra.Command {
	var (
		preset   string
		maxFiles int64
		maxBytes int64
		maxDepth int
		maxSecs  float64
	)

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Observe a directory tree and record what was seen",
		Long: "Walks the target directory under a budget, appending an ARTIFACT_SEEN\n" +
			"event per visible file. Budget exhaustion stops the scan cleanly and is\n" +
			"itself recorded.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			_, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			guard := budget.Preset(preset)
			if maxFiles > 0 || maxBytes > 0 || maxDepth > 0 || maxSecs > 0 {
				guard = budget.New(budget.Limits{
					TimeSeconds: maxSecs,
					Files:       maxFiles,
					Bytes:       maxBytes,
					Depth:       maxDepth,
				})
			}

			ses := session.New(args[0], "scan", guard)
			if err := ses.Start(store, "cli.scan"); err != nil {
				return WrapExitError(ExitCommandError, "starting session", err)
			}

			fsEye := eye.NewFilesystem(store)
			report, err := fsEye.Observe(cmd.Context(), args[0], guard, ses.ID)
			if err != nil {
				_ = ses.Abort(store, "cli.scan", err.Error())
				return WrapExitError(ExitCommandError, "scanning", err)
			}
			ses.RecordReport(report)
			if err := ses.Complete(store, "cli.scan"); err != nil {
				return WrapExitError(ExitCommandError, "closing session", err)
			}

			if opts.Format == "json" {
				return out.Success(ses.Summary())
			}
			summary := ses.Summary()
			fmt.Fprintf(out.Writer, "scanned %s\n", args[0])
			fmt.Fprintf(out.Writer, "  files seen:      %d\n", summary.FilesSeen)
			fmt.Fprintf(out.Writer, "  bytes accounted: %d\n", summary.BytesAccounted)
			if summary.StoppedReason != "" {
				fmt.Fprintf(out.Writer, "  stopped:         %s\n", summary.StoppedReason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "budget", "standard", "budget preset (quick-scan|standard|deep-analysis|metadata-only|unlimited)")
	cmd.Flags().Int64Var(&maxFiles, "max-files", 0, "override: maximum files to scan")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "override: maximum bytes to account")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override: maximum directory depth")
	cmd.Flags().Float64Var(&maxSecs, "max-seconds", 0, "override: wall-clock limit in seconds")

	return cmd
}
