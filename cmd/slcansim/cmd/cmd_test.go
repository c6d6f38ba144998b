package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roffe/slcan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexBytes(t *testing.T) {
	b, err := parseHexBytes([]string{"10", "FF", "0x80", "0", "7f"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0xFF, 0x80, 0x00, 0x7F}, b)

	_, err = parseHexBytes([]string{"10", "100"})
	assert.EqualError(t, err, `argument 2: "100" is not a hex byte`)
	_, err = parseHexBytes([]string{"zz"})
	assert.Error(t, err)
}

func TestLoadConfigLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.ini")
	require.NoError(t, os.WriteFile(path, []byte("[adapter]\nport = COM4\nbitrate = 4\ntimeout = 1s\n"), 0o644))

	require.NoError(t, infoCmd.ParseFlags([]string{"-c", path, "-s", "3", "--terminator", "lf"}))
	cfg, err := loadConfig(infoCmd)
	require.NoError(t, err)
	assert.Equal(t, "COM4", cfg.Port)
	assert.Equal(t, slcan.Bitrate100k, cfg.Bitrate)
	assert.Equal(t, byte(slcan.LF), cfg.Terminator)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 57600, cfg.Baudrate)
}

func TestSimulateKeepsCaptureOnBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.ini")
	require.NoError(t, os.WriteFile(path, []byte("[adapter]\nbitrate = 4\n"), 0o644))
	capPath := filepath.Join(dir, "old.cbor")
	old := []byte("previous capture")
	require.NoError(t, os.WriteFile(capPath, old, 0o644))

	require.NoError(t, simulateCmd.ParseFlags([]string{"-c", path, "--capture", capPath}))
	err := simulateCmd.RunE(simulateCmd, nil)
	assert.ErrorIs(t, err, slcan.ErrNoPort)

	b, err := os.ReadFile(capPath)
	require.NoError(t, err)
	assert.Equal(t, old, b)
}
