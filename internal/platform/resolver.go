package platform

import (
	"path/filepath"

	"github.com/ohmree/bindsync/errors"
)

// rule holds the platform-conditional pieces of a generation config. Keeping
// the per-platform differences in one table keeps the configuration surface
// auditable; Resolve applies a rule to a concrete source tree.
type rule struct {
	toolchain    string
	defines      map[string]string
	blockSymbols []string
	extraFlags   []string
}

// rules is the platform rule table, keyed by platform identity. The defines
// mirror the audio backends miniaudio enables per OS.
var rules = map[string]rule{
	"linux": {
		toolchain: "gcc",
		defines: map[string]string{
			"_GNU_SOURCE":          "",
			"MA_ENABLE_ALSA":       "",
			"MA_ENABLE_PULSEAUDIO": "",
			"MA_ENABLE_JACK":       "",
		},
		blockSymbols: []string{"ma_context_init__coreaudio", "ma_context_init__wasapi"},
	},
	"darwin": {
		toolchain: "clang",
		defines: map[string]string{
			"MA_ENABLE_COREAUDIO": "",
		},
		blockSymbols: []string{"ma_context_init__alsa", "ma_context_init__wasapi"},
		extraFlags:   []string{"--target-env", "darwin"},
	},
	"windows": {
		toolchain: "msvc",
		defines: map[string]string{
			"_WIN32":              "",
			"MA_ENABLE_WASAPI":    "",
			"MA_ENABLE_DSOUND":    "",
			"MA_ENABLE_WINMM":     "",
			"WIN32_LEAN_AND_MEAN": "",
		},
		blockSymbols: []string{"ma_context_init__alsa", "ma_context_init__coreaudio"},
		extraFlags:   []string{"--target-env", "windows"},
	},
}

// sharedDefines apply to every platform.
var sharedDefines = map[string]string{
	"MA_NO_RUNTIME_LINKING": "",
	"MA_API":                "extern",
}

// sharedAllowSymbols keeps the binding scoped to the library's public prefix.
var sharedAllowSymbols = []string{"ma_", "MA_"}

// Resolve computes the generation config for a target against a pinned
// source tree root. The result is a pure function of its inputs.
func Resolve(target Target, sourceRoot string) (*GenConfig, error) {
	r, ok := rules[target.OS]
	if !ok {
		return nil, errors.Newf("no generation rule for platform %q", target.OS)
	}

	defines := make(map[string]string, len(sharedDefines)+len(r.defines))
	for key, value := range sharedDefines {
		defines[key] = value
	}
	for key, value := range r.defines {
		defines[key] = value
	}

	cfg := &GenConfig{
		Target: target,
		IncludePaths: []string{
			sourceRoot,
			filepath.Join(sourceRoot, "extras"),
		},
		Defines:      defines,
		AllowSymbols: append([]string(nil), sharedAllowSymbols...),
		BlockSymbols: append([]string(nil), r.blockSymbols...),
		ExtraFlags:   append([]string(nil), r.extraFlags...),
	}

	return cfg, nil
}
