package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benatfroemming/mapping-tool/internal/style"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
palette:
  categorical: ["#000000", "#111111", "#222222", "#333333", "#ffffff"]
  fallback: "#999999"
fit:
  padding: 10
ingest_limit: 8
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"#000000", "#111111", "#222222", "#333333", "#ffffff"}, cfg.Palette.Categorical)
	assert.Equal(t, "#999999", cfg.Palette.Fallback)
	assert.Equal(t, style.DefaultPalette().Warm, cfg.Palette.Warm)
	assert.Equal(t, 10, cfg.Fit.Padding)
	assert.Equal(t, 15.0, cfg.Fit.MaxZoom)
	assert.Equal(t, 8, cfg.IngestLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "fit:\n  padding: -1\n"))
	assert.ErrorContains(t, err, "padding")

	_, err = Load(writeConfig(t, "palette:\n  categorical: [\"#fff\", \"#000\"]\n"))
	assert.ErrorContains(t, err, "exactly 5 colors, got 2")

	_, err = Load(writeConfig(t, "palette:\n  categorical: []\n"))
	assert.ErrorContains(t, err, "got 0")

	_, err = Load(writeConfig(t, "palette:\n  categorical: [\"#fff\", \"\", \"#111\", \"#222\", \"#333\"]\n"))
	assert.ErrorContains(t, err, "categorical[1]")

	_, err = Load(writeConfig(t, "fit: [1, 2"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
