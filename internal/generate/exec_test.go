package generate

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/source"
)

func testTree(t *testing.T) *source.Tree {
	return &source.Tree{Root: t.TempDir(), Revision: "4a5b6c7d8e9f"}
}

func linuxConfig(t *testing.T, root string) *platform.GenConfig {
	cfg, err := platform.Resolve(platform.Target{OS: "linux", Toolchain: "gcc"}, root)
	require.NoError(t, err)
	return cfg
}

func TestExecGeneratorCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh")
	}

	tree := testTree(t)
	gen := NewExecGenerator(config.GeneratorConfig{
		Command:        "echo package miniaudio",
		TimeoutSeconds: 10,
	}, zap.NewNop().Sugar())

	out, err := gen.Generate(context.Background(), linuxConfig(t, tree.Root), tree)
	require.NoError(t, err)
	assert.Contains(t, string(out), "package miniaudio")
}

func TestExecGeneratorFailureIsGenerationError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh")
	}

	tree := testTree(t)
	gen := NewExecGenerator(config.GeneratorConfig{
		Command:        "false",
		TimeoutSeconds: 10,
	}, zap.NewNop().Sugar())

	_, err := gen.Generate(context.Background(), linuxConfig(t, tree.Root), tree)
	require.Error(t, err)
	assert.True(t, errors.IsGenerationError(err))
}

func TestExecGeneratorEmptyOutputIsError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses sh")
	}

	tree := testTree(t)
	gen := NewExecGenerator(config.GeneratorConfig{
		Command:        "true",
		TimeoutSeconds: 10,
	}, zap.NewNop().Sugar())

	_, err := gen.Generate(context.Background(), linuxConfig(t, tree.Root), tree)
	require.Error(t, err)
	assert.True(t, errors.IsGenerationError(err))
}

func TestExecGeneratorRejectsEmptyCommand(t *testing.T) {
	tree := testTree(t)
	gen := NewExecGenerator(config.GeneratorConfig{Command: ""}, zap.NewNop().Sugar())

	_, err := gen.Generate(context.Background(), linuxConfig(t, tree.Root), tree)
	assert.Error(t, err)
}
