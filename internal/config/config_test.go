package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
state_dir = "/var/lib/tablemerge"
profiles_file = "profiles.yaml"
default_profile = "urban_waters_keep_headers"
log_level = "debug"
log_format = "json"

[writer]
extra_columns = "append"
mode = "append"

[watch]
debounce_ms = 250
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tablemerge", cfg.StateDir)
	assert.Equal(t, "profiles.yaml", cfg.ProfilesFile)
	assert.Equal(t, "urban_waters_keep_headers", cfg.DefaultProfile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "append", cfg.Writer.ExtraColumns)
	assert.Equal(t, "append", cfg.Writer.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce())
	assert.Equal(t, filepath.Join("/var/lib/tablemerge", HistoryDBName), cfg.HistoryPath())
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.StateDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "error", cfg.Writer.ExtraColumns)
	assert.Equal(t, "replace", cfg.Writer.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce())
	assert.False(t, cfg.DisableHistory)
}

func TestParse_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"extra columns": "[writer]\nextra_columns = \"keep\"\n",
		"mode":          "[writer]\nmode = \"upsert\"\n",
		"log format":    "log_format = \"xml\"\n",
		"syntax":        "state_dir = \n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestNewConfigFromToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0o644))

	cfg, err := NewConfigFromToml(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	_, err = NewConfigFromToml(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
