// Package config loads CLI settings from $HOME/.webim/config.toml with WEBIM_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/webim-client/internal/client"
	"github.com/bnema/webim-client/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".webim"
	envPrefix  = "WEBIM"

	KeyAccountURL        = "account_url"
	KeyLocation          = "location"
	KeyTitle             = "title"
	KeyPlatform          = "platform"
	KeyAppVersion        = "app_version"
	KeyDeviceID          = "device_id"
	KeyDeviceToken       = "device_token"
	KeyVisitorFieldsJSON = "visitor_fields_json"
	KeyHistoryDriver     = "history.driver"
	KeyHistoryDSN        = "history.dsn"
	KeyHistoryRemote     = "history.remote"
	KeySecretsDir        = "secrets.dir"
	KeySecretsBackend    = "secrets.backend"
	KeySecretsPassFolder = "secrets.pass_folder"
	KeyMinBackoff        = "loop.min_backoff"
	KeyMaxBackoff        = "loop.max_backoff"
	KeyActionAttempts    = "loop.action_attempts"
	KeyMaxPollFailures   = "loop.max_poll_failures"
	KeyRequestTimeout    = "loop.request_timeout"
	KeyWaitTimeout       = "loop.wait_timeout"
)

type Config struct {
	AccountURL        string
	Location          string
	Title             string
	Platform          string
	AppVersion        string
	DeviceID          string
	DeviceToken       string
	VisitorFieldsJSON string
	History           HistoryConfig
	SecretsDir        string
	SecretsBackend    string
	SecretsPassFolder string
	Loop              LoopConfig

	// File is the config file that was read, empty when none exists.
	File string
}

// Secret backends for the auth token. Auto tries pass and falls back to files.
const (
	SecretsBackendAuto = "auto"
	SecretsBackendPass = "pass"
	SecretsBackendFile = "file"
)

type HistoryConfig struct {
	Driver string
	DSN    string
	Remote bool
}

type LoopConfig struct {
	MinBackoff      time.Duration
	MaxBackoff      time.Duration
	ActionAttempts  int
	MaxPollFailures int
	RequestTimeout  time.Duration
	WaitTimeout     time.Duration
}

// Load reads configuration into v. An explicit file set with v.SetConfigFile
// must exist; the default file is optional.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(homeDir, configDir)

	// SetConfigName forgets a file set by the caller, so only search the
	// default location when none was given.
	explicit := v.ConfigFileUsed()
	if explicit == "" {
		v.SetConfigName(configName)
		v.AddConfigPath(base)
	}
	v.SetConfigType(configType)
	setDefaults(v, base)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		AccountURL:        strings.TrimRight(strings.TrimSpace(v.GetString(KeyAccountURL)), "/"),
		Location:          strings.TrimSpace(v.GetString(KeyLocation)),
		Title:             v.GetString(KeyTitle),
		Platform:          strings.TrimSpace(v.GetString(KeyPlatform)),
		AppVersion:        v.GetString(KeyAppVersion),
		DeviceID:          strings.TrimSpace(v.GetString(KeyDeviceID)),
		DeviceToken:       v.GetString(KeyDeviceToken),
		VisitorFieldsJSON: v.GetString(KeyVisitorFieldsJSON),
		History: HistoryConfig{
			Driver: v.GetString(KeyHistoryDriver),
			DSN:    v.GetString(KeyHistoryDSN),
			Remote: v.GetBool(KeyHistoryRemote),
		},
		SecretsDir:        v.GetString(KeySecretsDir),
		SecretsBackend:    strings.ToLower(strings.TrimSpace(v.GetString(KeySecretsBackend))),
		SecretsPassFolder: v.GetString(KeySecretsPassFolder),
		Loop: LoopConfig{
			MinBackoff:      v.GetDuration(KeyMinBackoff),
			MaxBackoff:      v.GetDuration(KeyMaxBackoff),
			ActionAttempts:  v.GetInt(KeyActionAttempts),
			MaxPollFailures: v.GetInt(KeyMaxPollFailures),
			RequestTimeout:  v.GetDuration(KeyRequestTimeout),
			WaitTimeout:     v.GetDuration(KeyWaitTimeout),
		},
		File: v.ConfigFileUsed(),
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = DefaultDeviceID()
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, base string) {
	v.SetDefault(KeyLocation, "mobile")
	v.SetDefault(KeyTitle, "webim-cli")
	v.SetDefault(KeyPlatform, "android")
	v.SetDefault(KeyHistoryDriver, "sqlite")
	v.SetDefault(KeyHistoryDSN, filepath.Join(base, "history.db"))
	v.SetDefault(KeyHistoryRemote, true)
	v.SetDefault(KeySecretsDir, filepath.Join(base, "secrets"))
	v.SetDefault(KeySecretsBackend, SecretsBackendAuto)
	v.SetDefault(KeySecretsPassFolder, "webim")
	v.SetDefault(KeyMinBackoff, time.Second)
	v.SetDefault(KeyMaxBackoff, 30*time.Second)
	v.SetDefault(KeyActionAttempts, 5)
	v.SetDefault(KeyMaxPollFailures, 10)
	v.SetDefault(KeyRequestTimeout, 90*time.Second)
	v.SetDefault(KeyWaitTimeout, 30*time.Second)
}

// Validate reports every missing required field at once.
func (c Config) Validate() error {
	var errs []error
	for _, field := range []struct {
		name  string
		value string
	}{
		{KeyAccountURL, c.AccountURL},
		{KeyLocation, c.Location},
		{KeyPlatform, c.Platform},
		{KeyTitle, c.Title},
		{KeyDeviceID, c.DeviceID},
	} {
		if strings.TrimSpace(field.value) == "" {
			errs = append(errs, &domain.MissingParameterError{Name: field.name})
		}
	}
	if c.AccountURL != "" && !strings.HasPrefix(c.AccountURL, "http://") && !strings.HasPrefix(c.AccountURL, "https://") {
		errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", KeyAccountURL, c.AccountURL))
	}
	switch c.SecretsBackend {
	case "", SecretsBackendAuto, SecretsBackendPass, SecretsBackendFile:
	default:
		errs = append(errs, fmt.Errorf("%s must be one of auto, pass, file, got %q", KeySecretsBackend, c.SecretsBackend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) RetryPolicy() client.RetryPolicy {
	return client.RetryPolicy{
		MinBackoff:             c.Loop.MinBackoff,
		MaxBackoff:             c.Loop.MaxBackoff,
		MaxActionAttempts:      c.Loop.ActionAttempts,
		MaxConsecutiveFailures: c.Loop.MaxPollFailures,
	}
}

// DefaultDeviceID derives a stable id for this user on this host, so the server
// sees the same device across runs without anything being stored.
func DefaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	seed := host + "/" + os.Getenv("USER")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("webim-client:"+seed)).String()
}
