package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pascalfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, logrus.InfoLevel, cfg.LogLevel())
	require.False(t, cfg.RejectOutOfOrder())
	require.True(t, cfg.Catalog.Scan)
	require.Equal(t, "BLANK", cfg.Format.VolumeName)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  echo: true
catalog:
  out_of_order: reject
format:
  volume_name: WORK
  boot_images:
    "5.25": /tmp/boot525.bin
report:
  encoding: cbor
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, cfg.LogLevel())
	require.True(t, cfg.Log.Echo)
	require.True(t, cfg.RejectOutOfOrder())
	require.Equal(t, "WORK", cfg.Format.VolumeName)
	require.Equal(t, "/tmp/boot525.bin", cfg.Format.BootImages["5.25"])
	require.Equal(t, "cbor", cfg.Report.Encoding)

	// untouched sections keep their defaults
	require.True(t, cfg.Catalog.Scan)
}

func TestLoadFileInvalid(t *testing.T) {
	path := writeConfig(t, `
log:
  level: chatty
catalog:
  out_of_order: shuffle
format:
  boot_images:
    "8": /tmp/x
report:
  encoding: xml
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
	require.Contains(t, err.Error(), "catalog.out_of_order")
	require.Contains(t, err.Error(), "format.boot_images")
	require.Contains(t, err.Error(), "report.encoding")

	_, err = LoadFile(writeConfig(t, "log: [unclosed"))
	require.ErrorContains(t, err, "parsing config")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	t.Setenv(EnvVar, writeConfig(t, "catalog:\n  scan: false\n"))
	cfg, err = Load()
	require.NoError(t, err)
	require.False(t, cfg.Catalog.Scan)
}
