package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/hrconsole/internal/pkg/logger"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HRCONSOLE_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("HRCONSOLE_HOME", filepath.Join(dir, "creds"))
	return dir
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	useTempConfig(t)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", config.CurrentContext)
	assert.Equal(t, []string{"dev", "prod"}, config.ContextNames())

	dev, err := config.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "localhost", dev.API.Host)
	assert.Equal(t, 8000, dev.API.Port)
	assert.NoError(t, dev.Validate())

	// Second load reads the file written by the first
	again, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.ContextNames(), again.ContextNames())
}

func TestConfigRoundTrip(t *testing.T) {
	useTempConfig(t)

	config := DefaultConfig()
	staging := NewContext()
	staging.API.Host = "staging.example.com"
	staging.API.Scheme = "https"
	staging.Tenant = "acme"
	config.AddContext("staging", staging)
	require.NoError(t, config.SetCurrentContext("staging"))
	require.NoError(t, SaveConfig(config))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	ctx, err := loaded.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "acme", ctx.Tenant)
	assert.Equal(t, "staging.example.com", ctx.API.Host)
	assert.Equal(t, staging.Readiness, ctx.Readiness)
	assert.Equal(t, staging.API.RequestTimeout, ctx.API.RequestTimeout)
}

func TestConfigContextErrors(t *testing.T) {
	config := DefaultConfig()

	_, err := config.GetContext("missing")
	assert.Error(t, err)
	assert.Error(t, config.SetCurrentContext("missing"))
	assert.Error(t, config.DeleteContext("dev"), "current context cannot be deleted")
	assert.Error(t, config.DeleteContext("missing"))
	assert.NoError(t, config.DeleteContext("prod"))
	assert.Equal(t, []string{"dev"}, config.ContextNames())
}

func TestResolveLogFile(t *testing.T) {
	assert.Equal(t, "", resolveLogFile("", false))
	assert.Equal(t, "/tmp/cli.log", resolveLogFile("/tmp/cli.log", true))
	assert.Equal(t, logger.GetDefaultLogFile("cli"), resolveLogFile("", true))
}
