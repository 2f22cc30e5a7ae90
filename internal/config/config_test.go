package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/webim-client/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, home, body string) string {
	t.Helper()
	dir := filepath.Join(home, configDir)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadUsesDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, "mobile", cfg.Location)
	assert.Equal(t, "android", cfg.Platform)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, filepath.Join(home, ".webim", "history.db"), cfg.History.DSN)
	assert.True(t, cfg.History.Remote)
	assert.Equal(t, filepath.Join(home, ".webim", "secrets"), cfg.SecretsDir)
	assert.Equal(t, SecretsBackendAuto, cfg.SecretsBackend)
	assert.Equal(t, "webim", cfg.SecretsPassFolder)
	assert.Equal(t, time.Second, cfg.Loop.MinBackoff)
	assert.Equal(t, 30*time.Second, cfg.Loop.MaxBackoff)
	assert.Equal(t, 5, cfg.Loop.ActionAttempts)
	assert.Equal(t, 10, cfg.Loop.MaxPollFailures)
	assert.Equal(t, DefaultDeviceID(), cfg.DeviceID)
}

func TestLoadReadsFileAndEnvironmentOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, home, `account_url = "https://demo.webim.ru/"
location = "web"
title = "Support"
device_id = "device-1"

[history]
driver = "postgres"
dsn = "postgres://localhost/webim"

[loop]
min_backoff = "250ms"
action_attempts = 3
`)
	t.Setenv("WEBIM_LOCATION", "mobile-beta")
	t.Setenv("WEBIM_HISTORY_REMOTE", "false")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://demo.webim.ru", cfg.AccountURL)
	assert.Equal(t, "mobile-beta", cfg.Location)
	assert.Equal(t, "Support", cfg.Title)
	assert.Equal(t, "device-1", cfg.DeviceID)
	assert.Equal(t, "postgres", cfg.History.Driver)
	assert.Equal(t, "postgres://localhost/webim", cfg.History.DSN)
	assert.False(t, cfg.History.Remote)
	assert.Equal(t, 250*time.Millisecond, cfg.Loop.MinBackoff)
	assert.Equal(t, 3, cfg.Loop.ActionAttempts)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 250*time.Millisecond, policy.MinBackoff)
	assert.Equal(t, 3, policy.MaxActionAttempts)
	assert.Equal(t, 10, policy.MaxConsecutiveFailures)
}

func TestLoadFailsOnMalformedConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, "account_url = \n")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.ErrorContains(t, err, "read config file")
}

func TestLoadFailsOnMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	_, err := Load(v)
	require.Error(t, err)
	assert.ErrorContains(t, err, "read config file")
}

func TestLoadPrefersExplicitFileOverDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, home, "account_url = \"https://default.example.com\"\n")

	path := filepath.Join(t.TempDir(), "other.toml")
	require.NoError(t, os.WriteFile(path, []byte("account_url = \"https://other.example.com\"\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://other.example.com", cfg.AccountURL)
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	t.Parallel()

	err := Config{Title: "Support"}.Validate()
	require.ErrorIs(t, err, domain.ErrMissingParameter)
	assert.ElementsMatch(t, []string{KeyAccountURL, KeyLocation, KeyPlatform, KeyDeviceID}, domain.MissingParameterNames(err))
}

func TestValidateRejectsNonHTTPAccountURL(t *testing.T) {
	t.Parallel()

	cfg := Config{AccountURL: "ftp://demo", Location: "mobile", Platform: "android", Title: "t", DeviceID: "d"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "must be an http(s) URL")
}

func TestValidateRejectsUnknownSecretsBackend(t *testing.T) {
	t.Parallel()

	cfg := Config{AccountURL: "https://demo", Location: "mobile", Platform: "android", Title: "t", DeviceID: "d", SecretsBackend: "vault"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, KeySecretsBackend)

	cfg.SecretsBackend = SecretsBackendFile
	assert.NoError(t, cfg.Validate())
}

func TestDefaultDeviceIDIsStable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultDeviceID(), DefaultDeviceID())
	assert.Len(t, DefaultDeviceID(), 36)
}
