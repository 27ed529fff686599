package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dawscript.yaml")
	data := `
log_level: debug
midi_inputs: [nanoKONTROL, FCB]
echo_window: 50ms
bitwig:
  port: 9000
web:
  enabled: true
  htdocs: ./site
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"nanoKONTROL", "FCB"}, cfg.MIDIInputs)
	assert.Equal(t, 50*time.Millisecond, cfg.EchoWindow)
	assert.Equal(t, "127.0.0.1:9000", cfg.Bitwig.Addr())
	assert.True(t, cfg.Web.Enabled)
	assert.Equal(t, DefaultWSPort, cfg.Web.WSPort)
	assert.Equal(t, "./site", cfg.Web.Htdocs)
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dawscript.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web:\n  ws_port: 70000\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "web.ws_port")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DAWSCRIPT_LOG_LEVEL", "warn")
	t.Setenv("DAWSCRIPT_MIDI_INPUTS", " Launchpad , ,Keystep")
	t.Setenv("DAWSCRIPT_BITWIG_PORT", "8999")
	t.Setenv("DAWSCRIPT_WEB", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"Launchpad", "Keystep"}, cfg.MIDIInputs)
	assert.Equal(t, 8999, cfg.Bitwig.Port)
	assert.True(t, cfg.Web.Enabled)
}

func TestApplyEnvInvalidValue(t *testing.T) {
	t.Setenv("DAWSCRIPT_BITWIG_PORT", "eighty")
	assert.Error(t, Default().ApplyEnv())
}
