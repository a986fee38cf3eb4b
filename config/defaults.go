package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.url", "git::https://github.com/mackron/miniaudio.git")
	v.SetDefault("source.pin_file", "bindsync.pin.toml")
	v.SetDefault("source.workdir", ".bindsync/source")

	// Generator defaults
	v.SetDefault("generator.command", "bindgen-c --header miniaudio.h")
	v.SetDefault("generator.timeout_seconds", 300)
	v.SetDefault("generator.canonicalize", true)

	// Verification defaults
	v.SetDefault("verify.command", "go test ./...")
	v.SetDefault("verify.timeout_seconds", 600)
	v.SetDefault("verify.typecheck", true)

	// Publish defaults
	v.SetDefault("publish.repo_path", ".")
	v.SetDefault("publish.remote_name", "origin")
	v.SetDefault("publish.branch", "main")
	v.SetDefault("publish.artifact_dir", "bindings")
	v.SetDefault("publish.retry_budget", 5) // bounded CAS retries under sibling contention
	v.SetDefault("publish.author_name", "bindsync")
	v.SetDefault("publish.author_email", "bindsync@localhost")
	v.SetDefault("publish.pushes_per_minute", 30)

	// Ledger defaults
	v.SetDefault("ledger.path", ".bindsync/ledger.db")

	// Watch defaults
	v.SetDefault("watch.trigger_file", ".bindsync/workflow.yml")
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.settle_seconds", 2)
	v.SetDefault("watch.run_on_start", false)

	// Platform matrix defaults
	v.SetDefault("platforms", []string{"linux", "darwin", "windows"})
}
