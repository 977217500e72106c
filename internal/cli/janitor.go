package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/maintenance"
	"github.com/roach88/atlas/internal/projection"
)

// NewJanitorCommand creates the janitor command: analyze staleness and
// recommend maintenance actions. Nothing is deleted.
func NewJanitorCommand(opts *RootOptions) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Recommend maintenance actions for stale state",
		Long: "Analyzes projected artifact staleness and, optionally, a cache\n" +
			"directory. Recommendations are recorded as events; nothing is deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			cfg, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			eng := projection.NewEngine()
			if _, err := eng.RebuildFrom(store); err != nil {
				return WrapExitError(ExitCommandError, "replaying ledger", err)
			}

			jan := maintenance.NewJanitor(store)
			recs, err := jan.Run(eng.Artifacts.GetState(), cfg.Confidence.DefaultVolatility, cacheDir, "")
			if err != nil {
				return WrapExitError(ExitCommandError, "running maintenance analysis", err)
			}

			if opts.Format == "json" {
				return out.Success(map[string]any{"recommendations": recs})
			}
			if len(recs) == 0 {
				fmt.Fprintln(out.Writer, "nothing to recommend")
				return nil
			}
			for _, rec := range recs {
				target := rec.ArtifactID
				if target == "" {
					target = rec.Path
				}
				fmt.Fprintf(out.Writer, "%-12s %-8s %s: %s\n", rec.Action, rec.Priority, target, rec.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "also analyze this cache directory for pruning")
	return cmd
}
