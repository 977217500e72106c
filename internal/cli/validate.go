package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/schema"
)

// lineReport is the validation result for one input line.
type lineReport struct {
	Line   int                 `json:"line"`
	Valid  bool                `json:"valid"`
	Errors []schema.FieldError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command: schema-check events
// without touching the ledger.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate events against the schema without appending",
		Args:  cobra.MaximumNArgs(1),
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

			var reports []lineReport
			invalid := 0

			scanner := bufio.NewScanner(src)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			line := 0
			for scanner.Scan() {
				text := scanner.Bytes()
				if len(text) == 0 {
					continue
				}
				line++

				var raw map[string]any
				if err := json.Unmarshal(text, &raw); err != nil {
					invalid++
					reports = append(reports, lineReport{
						Line:  line,
						Valid: false,
						Errors: []schema.FieldError{
							{Path: "", Message: fmt.Sprintf("not valid JSON: %v", err)},
						},
					})
					continue
				}

				res := schema.Validate(raw)
				if !res.Valid {
					invalid++
				}
				reports = append(reports, lineReport{Line: line, Valid: res.Valid, Errors: res.Errors})
			}
			if err := scanner.Err(); err != nil {
				return WrapExitError(ExitCommandError, "reading input", err)
			}

			if opts.Format == "json" {
				if err := out.Success(map[string]any{
					"events":  line,
					"invalid": invalid,
					"reports": reports,
				}); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					if r.Valid {
						out.VerboseLog("line %d: ok", r.Line)
						continue
					}
					fmt.Fprintf(out.Writer, "line %d: invalid\n", r.Line)
					for _, fieldErr := range r.Errors {
						fmt.Fprintf(out.Writer, "  %s\n", fieldErr.String())
					}
				}
				fmt.Fprintf(out.Writer, "%d event(s), %d invalid\n", line, invalid)
			}

			if invalid > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d invalid event(s)", invalid))
			}
			return nil
		},
	}
	return cmd
}
