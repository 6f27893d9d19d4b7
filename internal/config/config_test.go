package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	src := t.TempDir()
	t.Setenv("FLOWMAP_SOURCE", src)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, src, cfg.SourcePath)
	assert.Equal(t, 30*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, 5*time.Minute, cfg.Cooldown.Std())
	assert.Equal(t, []string{"**/*.swift"}, cfg.AllowPatterns)
	assert.Equal(t, 3, cfg.MaxJourneysAdded)
	assert.Equal(t, 1, cfg.MaxJourneysRemoved)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 20, cfg.BackupKeep)
	assert.Equal(t, ":8085", cfg.ServerAddr)
}

func TestLoadYAML(t *testing.T) {
	src := t.TempDir()
	path := writeConfig(t, `
sourcePath: `+src+`
pollInterval: 2m
allowPatterns:
  - ios/**/*.swift
journeyRules:
  - pathPrefix: ios/Checkout
    journeyId: checkout
    name: Checkout
maxJourneysAdded: 5
dataDir: /tmp/flowmap
serverAddr: ":9090"
watch: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, src, cfg.SourcePath)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval.Std())
	assert.Equal(t, []string{"ios/**/*.swift"}, cfg.AllowPatterns)
	require.Len(t, cfg.JourneyRules, 1)
	assert.Equal(t, "checkout", cfg.JourneyRules[0].JourneyID)
	assert.Equal(t, 5, cfg.MaxJourneysAdded)
	assert.Equal(t, "/tmp/flowmap", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 1, cfg.MaxJourneysRemoved, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	src := t.TempDir()
	path := writeConfig(t, `
sourcePath: `+src+`
pollInterval: 2m
dataDir: from-file
`)
	t.Setenv("FLOWMAP_POLL_INTERVAL", "45s")
	t.Setenv("FLOWMAP_DATA_DIR", "from-env")
	t.Setenv("FLOWMAP_ALLOW_PATTERNS", "a/**/*.swift, b/**/*.swift")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.PollInterval.Std())
	assert.Equal(t, "from-env", cfg.DataDir)
	assert.Equal(t, []string{"a/**/*.swift", "b/**/*.swift"}, cfg.AllowPatterns)
}

func TestLoadRequiresSource(t *testing.T) {
	t.Setenv("FLOWMAP_SOURCE", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source-tree path is required")
}

func TestLoadRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	t.Setenv("FLOWMAP_SOURCE", file)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a directory")
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "sourcePath: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "pollInterval: soon")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}
