package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/atlas/internal/config"
	"github.com/roach88/atlas/internal/ledger"
)

// formatter builds the output formatter for a command from the global
// flags.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig resolves config for the workspace root without opening
// the ledger.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Root)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "loading workspace config", err)
	}
	return cfg, nil
}

// openWorkspace loads config for the workspace root and opens its
// ledger.
func openWorkspace(opts *RootOptions) (config.Config, *ledger.Store, error) {
	cfg, err := config.Load(opts.Root)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "loading workspace config", err)
	}
	store, err := ledger.Open(cfg.LedgerDir)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "opening ledger", err)
	}
	return cfg, store, nil
}
