package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/event"
	"github.com/roach88/atlas/internal/schema"
)

// NewAppendCommand creates the append command: validate and append
// events from a JSON/JSONL file or stdin.
func NewAppendCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append [file]",
		Short: "Validate and append events to the ledger",
		Long: "Reads one JSON event per line from the file (or stdin when omitted),\n" +
			"validates each against the event schema, and appends the valid ones.\n" +
			"Any invalid event fails the whole command before anything is written.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(cmd, opts)

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "opening input", err)
				}
				defer f.Close()
				src = f
			}

			// Validate everything first. Appending half a batch and
			// then failing would leave the caller guessing.
			var envelopes []event.Envelope
			dec := json.NewDecoder(src)
			line := 0
			for {
				var raw map[string]any
				if err := dec.Decode(&raw); err == io.EOF {
					break
				} else if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("parsing event %d", line+1), err)
				}
				line++

				if res := schema.Validate(raw); !res.Valid {
					return NewExitError(ExitFailure,
						fmt.Sprintf("event %d invalid: %s", line, res.Summary()))
				}

				data, err := json.Marshal(raw)
				if err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("re-encoding event %d", line), err)
				}
				var env event.Envelope
				if err := json.Unmarshal(data, &env); err != nil {
					return WrapExitError(ExitFailure, fmt.Sprintf("decoding event %d", line), err)
				}
				envelopes = append(envelopes, env)
			}

			_, store, err := openWorkspace(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			var lastSeq int64
			for i, env := range envelopes {
				seq, err := store.Append(env)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("appending event %d", i+1), err)
				}
				lastSeq = seq
			}

			result := map[string]any{
				"appended": len(envelopes),
				"last_seq": lastSeq,
			}
			if opts.Format == "json" {
				return out.Success(result)
			}
			fmt.Fprintf(out.Writer, "appended %d event(s), last seq %d\n", len(envelopes), lastSeq)
			return nil
		},
	}
	return cmd
}
