// Package config loads workspace configuration from a CUE file. The
// schema carries defaults for every field, so a missing or empty config
// file yields a fully usable configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// DefaultFileName is the config file looked up in the workspace root.
const DefaultFileName = "atlas.cue"

// schema defines the configuration surface and its defaults. User
// config is unified against it, so type mismatches and unknown
// constraint violations surface as load errors.
const schema = `
{
	// Directory layout, relative to the workspace root unless absolute.
	ledger_dir:   string | *"atlas/ledger"
	snapshot_dir: string | *"atlas/state"
	index_path:   string | *"atlas/index/atlas.db"

	// Budget preset applied when a scan names none.
	budget_preset: "quick-scan" | "standard" | "deep-analysis" | "metadata-only" | "unlimited" | *"standard"

	// Remote lookups are opt-in. With allow_remote false every remote
	// fetch is declined and recorded as a REMOTE_LOOKUP_DECLINED event.
	remote: {
		allow_remote:  bool | *false
		allowed_hosts: [...string] | *[]
	}

	// Confidence evolution tuning.
	confidence: {
		default_volatility: float & >=0 & <=1 | *0.3
		stale_after_hours:  float & >0 | *720.0
	}
}
`

// Remote is the remote lookup policy.
type Remote struct {
	AllowRemote  bool     `json:"allow_remote"`
	AllowedHosts []string `json:"allowed_hosts"`
}

// Confidence is the evolution tuning block.
type Confidence struct {
	DefaultVolatility float64 `json:"default_volatility"`
	StaleAfterHours   float64 `json:"stale_after_hours"`
}

// Config is the resolved workspace configuration.
type Config struct {
	LedgerDir    string `json:"ledger_dir"`
	SnapshotDir  string `json:"snapshot_dir"`
	IndexPath    string `json:"index_path"`
	BudgetPreset string `json:"budget_preset"`

	Remote     Remote     `json:"remote"`
	Confidence Confidence `json:"confidence"`

	// Root is the workspace directory the config was resolved against.
	Root string `json:"-"`
}

// Default returns the configuration with every field at its schema
// default, rooted at root.
func Default(root string) (Config, error) {
	return load(root, "")
}

// Load resolves configuration for a workspace root. A missing config
// file is not an error; the defaults apply.
func Load(root string) (Config, error) {
	path := filepath.Join(root, DefaultFileName)
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return load(root, "")
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := load(root, string(src))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func load(root, userSrc string) (Config, error) {
	ctx := cuecontext.New()

	value := ctx.CompileString(schema)
	if err := value.Err(); err != nil {
		return Config{}, fmt.Errorf("config: compiling schema: %w", err)
	}

	if userSrc != "" {
		user := ctx.CompileString(userSrc)
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("parsing config: %s", errors.Details(err, nil))
		}
		value = value.Unify(user)
		if err := value.Validate(); err != nil {
			return Config{}, fmt.Errorf("validating config: %s", errors.Details(err, nil))
		}
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Root = root
	cfg.LedgerDir = resolve(root, cfg.LedgerDir)
	cfg.SnapshotDir = resolve(root, cfg.SnapshotDir)
	cfg.IndexPath = resolve(root, cfg.IndexPath)
	return cfg, nil
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
