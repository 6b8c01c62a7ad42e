package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goplus/uitest/testconfig"
)

// FileName is the runner configuration looked up in the working directory.
const FileName = "uitest.yaml"

// Load loads configuration from .env, the config file and environment
// variables, in increasing priority. An explicit path must exist.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getConfigPath returns the first existing candidate config file, or the
// working-directory candidate when none exists.
func getConfigPath() string {
	candidates := []string{FileName}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		candidates = append(candidates, filepath.Join(xdgConfig, "uitest", "config.yaml"))
	} else if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "uitest", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return FileName
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies UITEST_* environment overrides.
func loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"UITEST_BIN_DIR":        &cfg.BinDir,
		testconfig.PathEnv:      &cfg.ConfigPath,
		"UITEST_LOG_LEVEL":      &cfg.LogLevel,
		"UITEST_CONFIGURATION":  &cfg.Build.Configuration,
		"UITEST_SDK_VERSION":    &cfg.Android.SDKVersion,
		"UITEST_AVD_NAME":       &cfg.Android.AVDName,
		"UITEST_SYSTEM_IMAGE":   &cfg.Android.SystemImage,
		"UITEST_ANDROID_DEVICE": &cfg.Android.Device,
		"UITEST_IOS_DEVICE":     &cfg.IOS.DeviceType,
		"UITEST_IOS_RUNTIME":    &cfg.IOS.Runtime,
		"UITEST_APPIUM_URL":     &cfg.Appium.URL,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("UITEST_POLL_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UITEST_POLL_ATTEMPTS: %w", err)
		}
		cfg.Poll.Attempts = n
	}
	if v := os.Getenv("UITEST_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UITEST_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BinDir == "" {
		return ErrMissingBinDir
	}
	if c.Poll.Attempts <= 0 || c.Poll.Interval <= 0 {
		return ErrInvalidPoll
	}
	if _, err := strconv.Atoi(c.Android.SDKVersion); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSDKVersion, c.Android.SDKVersion)
	}
	return nil
}

// ConfigError is a configuration validation error.
type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

const (
	ErrMissingBinDir     ConfigError = "bin_dir must not be empty"
	ErrInvalidPoll       ConfigError = "poll attempts and interval must be positive"
	ErrInvalidSDKVersion ConfigError = "android sdk_version must be a number"
)
