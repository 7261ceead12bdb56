package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvcore/config"
)

func TestDefaultConfigBuildsRV64Hart(t *testing.T) {
	h, err := config.Default().NewHart()
	require.NoError(t, err)
	assert.Equal(t, 64, h.XLEN)
	assert.EqualValues(t, 0x80000000, h.PC)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hart.yaml")
	body := "xlen: 32\nresetVector: \"0x1000\"\ntohostOverride: \"0x2000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.XLEN)

	h, err := cfg.NewHart()
	require.NoError(t, err)
	assert.EqualValues(t, 0x1000, h.PC)
	assert.EqualValues(t, 0x2000, h.ToHost)
}

func TestNewHartRejectsBadXLEN(t *testing.T) {
	cfg := config.Config{XLEN: 17, ResetVector: "0"}
	_, err := cfg.NewHart()
	assert.Error(t, err)
}
