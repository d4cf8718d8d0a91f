// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/ccd")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("API_URL", "https://api.ccdexplorer.io")
	t.Setenv("API_NET", "testnet")
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")

	c, err := load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "testnet", c.Explorer.Net)
	assert.Equal(t, "https://api.ccdexplorer.io", c.Explorer.APIURL)
	assert.Equal(t, "ccdexplorer/services/api/keys", c.Explorer.KeysChannel)
	assert.Equal(t, 5*time.Second, c.Cache.APIKeysTTL)
	assert.Equal(t, 60*time.Second, c.Cache.BlocksPerDayTTL)
	assert.Equal(t, 30*time.Second, c.Database.StatementTimeout)
	assert.Equal(t, time.Hour, c.Session.ResetTokenTTL)
	assert.Equal(t, "localhost:20000", c.Node.Address())
}

func TestLoadReadsYAMLFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"cache:\n  exchange_rates_ttl: 30s\napp:\n  name: test gateway\n",
	), 0o600))

	c, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, c.Cache.ExchangeRatesTTL)
	assert.Equal(t, "test gateway", c.App.Name)
}

func TestLoadRejectsMissingAPIURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_URL", "")

	_, err := load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_URL")
}

func TestLoadRejectsUnknownNet(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_NET", "devnet")

	_, err := load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_NET")
}

func TestValidateRejectsWildcardWithCredentials(t *testing.T) {
	setRequiredEnv(t)

	c, err := load("")
	require.NoError(t, err)

	c.CORS.AllowedOrigins = []string{"*"}
	c.CORS.AllowCredentials = true

	assert.Error(t, validate(c))
}

func TestEnvKeyReplacerIgnoresUnmappedVars(t *testing.T) {
	assert.Equal(t, "redis.url", envKeyReplacer("REDIS_URL"))
	assert.Empty(t, envKeyReplacer("HOME"))
}

func TestLoadSkipsMissingFile(t *testing.T) {
	setRequiredEnv(t)

	c, err := load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "CCDExplorer.io API", c.App.Name)
}
