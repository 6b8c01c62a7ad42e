// Package config holds the runner options: where to look for artifacts,
// which emulator and simulator to provision, and how to reach the
// automation server.
package config

import "time"

// Config is the runner configuration.
type Config struct {
	BinDir     string        `yaml:"bin_dir"`
	ConfigPath string        `yaml:"config_path"`
	LogLevel   string        `yaml:"log_level"`
	Build      BuildConfig   `yaml:"build"`
	Android    AndroidConfig `yaml:"android"`
	IOS        IOSConfig     `yaml:"ios"`
	Appium     AppiumConfig  `yaml:"appium"`
	Poll       PollConfig    `yaml:"poll"`
}

// BuildConfig configures the build dispatcher.
type BuildConfig struct {
	Project       string            `yaml:"project"`
	Configuration string            `yaml:"configuration"`
	Properties    map[string]string `yaml:"properties"`
}

// AndroidConfig configures emulator bootstrap.
type AndroidConfig struct {
	SDKVersion  string `yaml:"sdk_version"`
	AVDName     string `yaml:"avd_name"`
	SystemImage string `yaml:"system_image"`
	Device      string `yaml:"device"`
}

// IOSConfig configures simulator selection.
type IOSConfig struct {
	DeviceType string `yaml:"device_type"`
	Runtime    string `yaml:"runtime"`
}

// AppiumConfig configures the automation server.
type AppiumConfig struct {
	URL      string   `yaml:"url"`
	Packages []string `yaml:"packages"`
}

// PollConfig bounds the wait for a booted device.
type PollConfig struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		BinDir:     DefaultBinDir,
		ConfigPath: DefaultConfigPath,
		LogLevel:   "info",
		Build: BuildConfig{
			Configuration: DefaultConfiguration,
		},
		Android: AndroidConfig{
			SDKVersion: DefaultSDKVersion,
			AVDName:    DefaultAVDName,
		},
		IOS: IOSConfig{
			DeviceType: DefaultIOSDeviceType,
		},
		Appium: AppiumConfig{
			URL:      DefaultAppiumURL,
			Packages: []string{"appium"},
		},
		Poll: PollConfig{
			Attempts: DefaultPollAttempts,
			Interval: DefaultPollInterval,
		},
	}
}

// Image returns the emulator system image package, derived from the
// SDK version unless set explicitly.
func (a AndroidConfig) Image() string {
	if a.SystemImage != "" {
		return a.SystemImage
	}
	return "system-images;android-" + a.SDKVersion + ";google_apis;x86_64"
}
