// Package platform enumerates binding target platforms and resolves their
// generation configuration from a table-driven rule set.
package platform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ohmree/bindsync/errors"
)

// Target identifies one OS/toolchain pair the matrix generates bindings for.
// Targets are immutable and enumerated at run start.
type Target struct {
	OS        string `json:"os"`
	Toolchain string `json:"toolchain"`
}

// String returns the platform identity used in artifact paths, commit
// messages, and logs.
func (t Target) String() string {
	return t.OS
}

// Targets resolves platform names from configuration into Target values.
// Unknown names fail the whole enumeration: a typo in the matrix should not
// silently shrink it.
func Targets(names []string) ([]Target, error) {
	if len(names) == 0 {
		return nil, errors.New("platform matrix is empty")
	}

	targets := make([]Target, 0, len(names))
	for _, name := range names {
		rule, ok := rules[name]
		if !ok {
			return nil, errors.Newf("unknown platform %q (known: %s)", name, strings.Join(knownPlatforms(), ", "))
		}
		targets = append(targets, Target{OS: name, Toolchain: rule.toolchain})
	}
	return targets, nil
}

func knownPlatforms() []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenConfig is the resolved generation configuration for one target: a pure
// function of (Target, source tree root). Two resolutions with the same
// inputs always produce an identical config.
type GenConfig struct {
	Target       Target            `json:"target"`
	IncludePaths []string          `json:"include_paths"`
	Defines      map[string]string `json:"defines"`
	AllowSymbols []string          `json:"allow_symbols"` // symbol prefixes kept in the binding
	BlockSymbols []string          `json:"block_symbols"` // symbol prefixes excluded from the binding
	ExtraFlags   []string          `json:"extra_flags"`
}

// Args renders the config as a deterministic generator argument list.
// Defines are emitted in sorted order so the rendered command line is a
// stable function of the config.
func (c *GenConfig) Args() []string {
	args := make([]string, 0, 2*len(c.IncludePaths)+len(c.Defines)+len(c.ExtraFlags))

	for _, inc := range c.IncludePaths {
		args = append(args, "-I", inc)
	}

	defines := make([]string, 0, len(c.Defines))
	for key, value := range c.Defines {
		if value == "" {
			defines = append(defines, "-D"+key)
		} else {
			defines = append(defines, fmt.Sprintf("-D%s=%s", key, value))
		}
	}
	sort.Strings(defines)
	args = append(args, defines...)

	for _, sym := range c.AllowSymbols {
		args = append(args, "--allow", sym)
	}
	for _, sym := range c.BlockSymbols {
		args = append(args, "--block", sym)
	}

	args = append(args, c.ExtraFlags...)
	return args
}
