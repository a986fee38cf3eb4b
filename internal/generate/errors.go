package generate

import (
	"github.com/ohmree/bindsync/errors"
)

// unstableOutputError reports a run-dependent fragment that survived
// canonicalization. Treated as a generation failure: the candidate cannot be
// trusted for byte comparison.
func unstableOutputError(fragment string) error {
	return errors.WithHint(
		errors.Wrapf(errors.ErrGeneration, "unstable fragment %q in generator output", fragment),
		"the generator embeds run-dependent values; enable canonicalization or fix the generator")
}
