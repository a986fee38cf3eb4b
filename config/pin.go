package config

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"

	"github.com/ohmree/bindsync/errors"
)

// Pin records the exact native source revision the bindings are generated
// from. The pin file is the primary trigger surface: bumping it starts a run.
type Pin struct {
	// Revision is the exact commit hash of the native library source
	Revision string `toml:"revision"`

	// Version is the native library release the revision corresponds to
	Version string `toml:"version"`
}

// Validate checks that the pin is usable: a plausible commit hash and a
// parseable semantic version.
func (p *Pin) Validate() error {
	if len(p.Revision) < 7 {
		return errors.Newf("pin revision %q too short, want a commit hash (7+ chars)", p.Revision)
	}
	if _, err := semver.NewVersion(p.Version); err != nil {
		return errors.Wrapf(err, "pin version %q is not a semantic version", p.Version)
	}
	return nil
}

// LoadPin reads and validates the pin file
func LoadPin(path string) (*Pin, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read pin file %s", path)
	}

	var pin Pin
	if err := toml.Unmarshal(content, &pin); err != nil {
		return nil, errors.Wrapf(err, "failed to parse pin file %s", path)
	}

	if err := pin.Validate(); err != nil {
		return nil, err
	}

	return &pin, nil
}

// SavePin validates and writes the pin file, rotating backups first so a bad
// edit can be recovered by hand.
func SavePin(path string, pin *Pin) error {
	if err := pin.Validate(); err != nil {
		return err
	}

	if err := createBackup(path); err != nil {
		return err
	}

	content, err := toml.Marshal(pin)
	if err != nil {
		return errors.Wrap(err, "failed to marshal pin")
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, "failed to write pin file %s", path)
	}

	return nil
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying a file
func createBackup(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := path + ".back3"
	back2 := path + ".back2"
	back1 := path + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete old backup %s", back3)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read file for backup")
	}

	if err := os.WriteFile(back1, content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// isBackupFile reports whether a path is one of our rotating backups
func isBackupFile(path string) bool {
	for _, suffix := range []string{".back1", ".back2", ".back3"} {
		if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}
