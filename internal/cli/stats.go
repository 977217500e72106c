package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/ledger"
	"github.com/roach88/atlas/internal/projection"
)

// NewStatsCommand creates the stats command: summarize the ledger and
// projected state.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize ledger and projected state",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			_, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			byType := map[string]int64{}
			stats, err := store.ForEach(ledger.Filter{}, func(r ledger.Record) error {
				byType[string(r.Event.EventType)]++
				return nil
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "reading ledger", err)
			}

			eng := projection.NewEngine()
			if _, err := eng.RebuildFrom(store); err != nil {
				return WrapExitError(ExitCommandError, "replaying ledger", err)
			}

			result := map[string]any{
				"events":          stats.Lines,
				"lines_skipped":   stats.Skipped,
				"events_by_type":  byType,
				"artifacts":       len(eng.Artifacts.GetState()),
				"relations":       len(eng.Relations.GetState()),
				"conflicts":       len(eng.Conflicts.GetState()),
				"latest_sequence": store.LatestSequence(),
			}
			if opts.Format == "json" {
				return out.Success(result)
			}

			fmt.Fprintf(out.Writer, "events:    %d (%d malformed line(s) skipped)\n", stats.Lines, stats.Skipped)
			fmt.Fprintf(out.Writer, "artifacts: %d\n", len(eng.Artifacts.GetState()))
			fmt.Fprintf(out.Writer, "relations: %d\n", len(eng.Relations.GetState()))
			fmt.Fprintf(out.Writer, "conflicts: %d\n", len(eng.Conflicts.GetState()))

			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				marker := ""
				if !event.Known(event.Type(t)) {
					marker = " (unknown type, ignored by projections)"
				}
				fmt.Fprintf(out.Writer, "  %-26s %d%s\n", t, byType[t], marker)
			}
			return nil
		},
	}
	return cmd
}
