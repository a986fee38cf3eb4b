package config

// Config represents the bindsync pipeline configuration
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Verify    VerifyConfig    `mapstructure:"verify"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Watch     WatchConfig     `mapstructure:"watch"`

	// Platforms enumerates the target platforms for a run. Each entry must
	// match a key in the platform rule table (linux, darwin, windows).
	Platforms []string `mapstructure:"platforms"`
}

// SourceConfig configures where the pinned native source tree comes from
type SourceConfig struct {
	URL     string `mapstructure:"url"`      // go-getter URL of the native library (git, archive, or local path)
	PinFile string `mapstructure:"pin_file"` // path to the pin file recording revision + version
	Workdir string `mapstructure:"workdir"`  // directory source checkouts are materialized into
}

// GeneratorConfig configures the external binding generator invocation
type GeneratorConfig struct {
	Command        string `mapstructure:"command"`         // command line template; receives config via flags and env
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // per-platform generation timeout
	Canonicalize   bool   `mapstructure:"canonicalize"`    // apply canonicalizing post-process to generator output
}

// VerifyConfig configures the verification gate
type VerifyConfig struct {
	Command        string `mapstructure:"command"`         // test suite command run against the candidate
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // test suite timeout
	Typecheck      bool   `mapstructure:"typecheck"`       // type-check the candidate before running the suite
}

// PublishConfig configures the synchronization and publish controller
type PublishConfig struct {
	RepoPath    string `mapstructure:"repo_path"`    // local clone of the wrapper repository
	RemoteName  string `mapstructure:"remote_name"`  // git remote to push to
	Branch      string `mapstructure:"branch"`       // mainline branch all sessions integrate against
	ArtifactDir string `mapstructure:"artifact_dir"` // directory holding per-platform artifact subtrees
	RetryBudget int    `mapstructure:"retry_budget"` // bounded push retry attempts under contention
	AuthorName  string `mapstructure:"author_name"`  // commit author for publishes
	AuthorEmail string `mapstructure:"author_email"`

	// PushesPerMinute paces retry attempts so contending sessions back off
	// instead of hammering the remote. 0 disables pacing.
	PushesPerMinute int `mapstructure:"pushes_per_minute"`
}

// LedgerConfig configures the local run history database
type LedgerConfig struct {
	Path string `mapstructure:"path"` // sqlite database path; empty disables the ledger
}

// WatchConfig configures the change watcher. Runs triggered while one is
// still in flight are skipped, so there is no concurrency knob here.
type WatchConfig struct {
	TriggerFile   string `mapstructure:"trigger_file"`   // pipeline trigger definition (YAML)
	DebounceMS    int    `mapstructure:"debounce_ms"`    // debounce for rapid file changes
	SettleSeconds int    `mapstructure:"settle_seconds"` // quiet period before a run starts
	RunOnStart    bool   `mapstructure:"run_on_start"`   // trigger a run immediately when watching begins
}

// ArtifactPath returns the platform-scoped artifact path relative to the
// repository root. Paths are disjoint per platform, which is what lets
// concurrent sessions publish without ever producing a content conflict.
func (c PublishConfig) ArtifactPath(platform string) string {
	return c.ArtifactDir + "/" + platform + "/miniaudio.go"
}
