package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
data_dir: /data
reference_dir: /ref
rates_file: /ref/rates.csv
clamp_year: 2016
workers: 4
addr: ":9000"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "/ref", cfg.ReferenceDir)
	assert.Equal(t, "/ref/rates.csv", cfg.RatesFile)
	assert.Equal(t, 2016, cfg.ClampYear)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ":9000", cfg.Addr)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "data_dir: /data\nreference_dir: /ref\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2014, cfg.ClampYear)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.RatesFile)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
