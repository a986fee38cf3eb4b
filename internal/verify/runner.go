package verify

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
)

// ExecRunner runs the configured test command as a subprocess.
type ExecRunner struct {
	command string
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewExecRunner creates a runner from the verification configuration.
func NewExecRunner(cfg config.VerifyConfig, log *zap.SugaredLogger) *ExecRunner {
	return &ExecRunner{
		command: cfg.Command,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:     log,
	}
}

// Run executes the test suite in workdir.
func (r *ExecRunner) Run(ctx context.Context, workdir string) error {
	words, err := shellquote.Split(r.command)
	if err != nil {
		return errors.Wrapf(err, "invalid test command %q", r.command)
	}
	if len(words) == 0 {
		return errors.New("test command is empty")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Dir = workdir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	r.log.Debugw("Running verification suite",
		"command", r.command,
		"workdir", workdir)

	if err := cmd.Run(); err != nil {
		r.log.Debugw("Verification suite output",
			"output", output.String())
		return errors.Wrapf(err, "test command failed")
	}

	return nil
}
