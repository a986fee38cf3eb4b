package generate

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/source"
)

// ExecGenerator runs the configured generator command as a subprocess. The
// resolved config is passed as flags appended to the command line; the
// binding source is read from stdout.
type ExecGenerator struct {
	command string
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewExecGenerator creates a generator from the generator configuration.
func NewExecGenerator(cfg config.GeneratorConfig, log *zap.SugaredLogger) *ExecGenerator {
	return &ExecGenerator{
		command: cfg.Command,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:     log,
	}
}

// Generate invokes the external generator for one platform config.
func (g *ExecGenerator) Generate(ctx context.Context, cfg *platform.GenConfig, tree *source.Tree) ([]byte, error) {
	words, err := shellquote.Split(g.command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid generator command %q", g.command)
	}
	if len(words) == 0 {
		return nil, errors.New("generator command is empty")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	args := append(words[1:], cfg.Args()...)
	cmd := exec.CommandContext(ctx, words[0], args...)
	cmd.Dir = tree.Root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.log.Debugw("Invoking binding generator",
		"platform", cfg.Target.String(),
		"command", words[0],
		"args", len(args))

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(errors.ErrGeneration,
			"generator exited with error for %s: %v: %s",
			cfg.Target.String(), err, firstLines(stderr.String(), 5))
	}

	if stdout.Len() == 0 {
		return nil, errors.Wrapf(errors.ErrGeneration,
			"generator produced no output for %s", cfg.Target.String())
	}

	g.log.Infow("Generated binding source",
		"platform", cfg.Target.String(),
		"bytes", stdout.Len(),
		"duration_ms", time.Since(start).Milliseconds())

	return stdout.Bytes(), nil
}

// firstLines truncates command output for error messages
func firstLines(s string, n int) string {
	count := 0
	for i := range s {
		if s[i] == '\n' {
			count++
			if count == n {
				return s[:i] + " ..."
			}
		}
	}
	return s
}
