package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/confidence"
	"github.com/roach88/atlas/internal/projection"
)

// NewEvolveCommand creates the evolve command: apply time decay,
// contradiction, and reinforcement to an artifact's confidence.
func NewEvolveCommand(opts *RootOptions) *cobra.Command {
	var (
		volatility    float64
		contradiction float64
		reinforce     int
	)

	cmd := &cobra.Command{
		Use:   "evolve <artifact-id>",
		Short: "Evolve an artifact's confidence score",
		Long: "Replays the ledger to find the artifact's current confidence, applies\n" +
			"decay, contradiction, and reinforcement in that fixed order, and records\n" +
			"each material change as a CONFIDENCE_UPDATED event.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)
			artifactID := args[0]

			cfg, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			eng := projection.NewEngine()
			if _, err := eng.RebuildFrom(store); err != nil {
				return WrapExitError(ExitCommandError, "replaying ledger", err)
			}
			state, ok := eng.Artifacts.Get(artifactID)
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("artifact %q not found in projected state", artifactID))
			}

			score := 0.5
			if state.Confidence != nil {
				score = *state.Confidence
			}

			var ageHours float64
			if state.LastSeenAt > 0 {
				ageHours = time.Since(time.Unix(int64(state.LastSeenAt), 0)).Hours()
			}
			if volatility == 0 {
				volatility = cfg.Confidence.DefaultVolatility
			}

			engine := confidence.NewEngine(store)
			newScore, err := engine.Evolve(artifactID, score, confidence.Evolution{
				AgeHours:              ageHours,
				Volatility:            volatility,
				ContradictionStrength: contradiction,
				Reinforcements:        reinforce,
				PriorObservations:     int(state.ObservationCount),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "recording confidence updates", err)
			}

			result := map[string]any{
				"artifact_id": artifactID,
				"old_score":   score,
				"new_score":   newScore,
				"age_hours":   ageHours,
				"volatility":  volatility,
			}
			if opts.Format == "json" {
				return out.Success(result)
			}
			fmt.Fprintf(out.Writer, "%s: %.3f -> %.3f (age %.1fh, volatility %.2f)\n",
				artifactID, score, newScore, ageHours, volatility)
			return nil
		},
	}

	cmd.Flags().Float64Var(&volatility, "volatility", 0, "volatility hint in [0,1]; default from config")
	cmd.Flags().Float64Var(&contradiction, "contradiction", 0, "contradiction strength in [0,1]")
	cmd.Flags().IntVar(&reinforce, "reinforce", 0, "number of consistent observations to apply")
	return cmd
}
