package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/index"
)

// NewIndexCommand creates the index command group: rebuild and query
// the SQLite secondary index.
func NewIndexCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild or query the secondary index",
	}
	cmd.AddCommand(newIndexRebuildCommand(opts))
	cmd.AddCommand(newIndexFindCommand(opts))
	cmd.AddCommand(newIndexNeighborsCommand(opts))
	return cmd
}

func newIndexRebuildCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			cfg, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			ix, err := index.Open(cfg.IndexPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening index", err)
			}
			defer ix.Close()

			res, err := index.RebuildFromLedger(cmd.Context(), ix, store)
			if err != nil {
				return WrapExitError(ExitCommandError, "rebuilding index", err)
			}

			if opts.Format == "json" {
				return out.Success(res)
			}
			fmt.Fprintf(out.Writer, "indexed %d artifact(s), %d relation(s), %d tag(s)\n",
				res.Artifacts, res.Relations, res.Tags)
			return nil
		},
	}
}

func newIndexFindCommand(opts *RootOptions) *cobra.Command {
	var byLocator, byHash, byTag string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find artifact ids by locator, hash, or tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			set := 0
			for _, flag := range []string{byLocator, byHash, byTag} {
				if flag != "" {
					set++
				}
			}
			if set != 1 {
				return NewExitError(ExitCommandError, "exactly one of --locator, --hash, --tag is required")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ix, err := index.Open(cfg.IndexPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening index", err)
			}
			defer ix.Close()

			var ids []string
			switch {
			case byLocator != "":
				id, found, err := ix.FindByLocator(cmd.Context(), byLocator)
				if err != nil {
					return WrapExitError(ExitCommandError, "querying index", err)
				}
				if found {
					ids = []string{id}
				}
			case byHash != "":
				ids, err = ix.FindByHash(cmd.Context(), byHash)
				if err != nil {
					return WrapExitError(ExitCommandError, "querying index", err)
				}
			case byTag != "":
				ids, err = ix.FindByTag(cmd.Context(), byTag)
				if err != nil {
					return WrapExitError(ExitCommandError, "querying index", err)
				}
			}

			if opts.Format == "json" {
				return out.Success(map[string]any{"artifact_ids": ids})
			}
			if len(ids) == 0 {
				fmt.Fprintln(out.Writer, "no matches")
				return nil
			}
			fmt.Fprintln(out.Writer, strings.Join(ids, "\n"))
			return nil
		},
	}

	cmd.Flags().StringVar(&byLocator, "locator", "", "find by locator")
	cmd.Flags().StringVar(&byHash, "hash", "", "find by content or structure hash")
	cmd.Flags().StringVar(&byTag, "tag", "", "find by tag")
	return cmd
}

func newIndexNeighborsCommand(opts *RootOptions) *cobra.Command {
	var direction, relType string

	cmd := &cobra.Command{
		Use:   "neighbors <artifact-id>",
		Short: "List artifacts related to an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ix, err := index.Open(cfg.IndexPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening index", err)
			}
			defer ix.Close()

			dir := index.Direction(direction)
			switch dir {
			case index.Out, index.In, index.Both:
			default:
				return NewExitError(ExitCommandError, "--direction must be out, in, or both")
			}

			neighbors, err := ix.Neighbors(cmd.Context(), args[0], dir, relType)
			if err != nil {
				return WrapExitError(ExitCommandError, "querying index", err)
			}

			if opts.Format == "json" {
				return out.Success(map[string]any{"neighbors": neighbors})
			}
			if len(neighbors) == 0 {
				fmt.Fprintln(out.Writer, "no neighbors")
				return nil
			}
			for _, n := range neighbors {
				fmt.Fprintf(out.Writer, "%-4s %-20s %s (%.2f, %s)\n",
					n.Direction, n.RelationType, n.ArtifactID, n.Confidence, n.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "both", "edge direction (out|in|both)")
	cmd.Flags().StringVar(&relType, "type", "", "filter by relation type")
	return cmd
}
