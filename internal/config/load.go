package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Environment variable names. Every tunable has one; unset variables fall
// back to the settings file and then the built-in defaults.
const (
	EnvBaseDir       = "CORELANE_BASE_DIR"
	EnvRepoDir       = "CORELANE_REPO_DIR"
	EnvRepoURL       = "CORELANE_REPO_URL"
	EnvGroup         = "CORELANE_GROUP"
	EnvUser          = "CORELANE_USER"
	EnvSSHDir        = "CORELANE_SSH_DIR"
	EnvSSHConfig     = "CORELANE_SSH_CONFIG"
	EnvGitName       = "CORELANE_GIT_NAME"
	EnvGitEmail      = "CORELANE_GIT_EMAIL"
	EnvSkipKeyVerify = "CORELANE_SKIP_KEY_VERIFY"
	EnvSettingsFile  = "CORELANE_SETTINGS_FILE"
)

// DefaultSettingsFile is consulted when CORELANE_SETTINGS_FILE is unset.
// A missing file is not an error.
const DefaultSettingsFile = "/etc/corelane/bootstrap.yaml"

// Load builds the effective configuration: defaults, then the optional YAML
// settings file, then environment overrides, then validation.
func Load() (*Config, error) {
	cfg := Defaults()

	settingsPath := os.Getenv(EnvSettingsFile)
	explicit := settingsPath != ""
	if !explicit {
		settingsPath = DefaultSettingsFile
	}
	if err := applyFile(cfg, settingsPath, explicit); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyFile overlays settings from a YAML file onto cfg. Only keys present in
// the file are applied. A missing file is fatal only when explicitly named.
func applyFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  cfg,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to build settings decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode settings file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) error {
	for _, v := range []struct {
		env    string
		target *string
	}{
		{EnvBaseDir, &cfg.BaseDir},
		{EnvRepoDir, &cfg.RepoDir},
		{EnvRepoURL, &cfg.RepoURL},
		{EnvGroup, &cfg.Group},
		{EnvUser, &cfg.User},
		{EnvSSHDir, &cfg.SSHDir},
		{EnvSSHConfig, &cfg.SSHConfigPath},
		{EnvGitName, &cfg.GitName},
		{EnvGitEmail, &cfg.GitEmail},
	} {
		if value, ok := os.LookupEnv(v.env); ok {
			*v.target = value
		}
	}

	if value, ok := os.LookupEnv(EnvSkipKeyVerify); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", EnvSkipKeyVerify, value)
		}
		cfg.SkipKeyVerify = parsed
	}
	return nil
}
