package verify

import (
	"golang.org/x/tools/go/packages"

	"github.com/ohmree/bindsync/errors"
)

// typecheckDir loads and type-checks the Go package in dir. This is a cheap
// pre-flight before the full suite runs: a candidate that does not even
// type-check fails fast without paying for the test run.
func typecheckDir(dir string) error {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return errors.Wrapf(err, "failed to load package in %s", dir)
	}

	if len(pkgs) == 0 {
		return errors.Newf("no Go package found in %s", dir)
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return errors.Newf("package %s: %v", pkg.Name, pkg.Errors[0])
		}
	}

	return nil
}
