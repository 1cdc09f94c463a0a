package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "evremap.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
device_name = "AT Translated Set 2 keyboard"
hold_timeout_ms = 150

[[dual_role]]
input = "KEY_CAPSLOCK"
hold = ["KEY_LEFTCTRL"]
tap = ["KEY_ESC"]

[[remap]]
input = ["KEY_LEFTALT", "KEY_F4"]
output = ["KEY_VOLUMEUP"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AT Translated Set 2 keyboard", cfg.DeviceName)
	assert.Len(t, cfg.Mappings.DualRoles, 1)
	assert.Len(t, cfg.Mappings.Remaps, 1)
}

func TestLoadRejectsMissingDeviceName(t *testing.T) {
	path := writeConfig(t, `
[[dual_role]]
input = "KEY_CAPSLOCK"
hold = ["KEY_LEFTCTRL"]
tap = ["KEY_ESC"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_name is required")
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, `
device_name = "kbd"

[[dual_role]]
input = "KEY_NOT_REAL"
hold = ["KEY_LEFTCTRL"]
tap = ["KEY_ESC"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
