package config

import (
	"time"

	"github.com/goplus/uitest/testconfig"
)

// Default configuration values.
const (
	DefaultBinDir        = "bin"
	DefaultConfigPath    = testconfig.DefaultPath
	DefaultConfiguration = "Release"

	DefaultSDKVersion = "29"
	DefaultAVDName    = "uitest_emulator"

	DefaultIOSDeviceType = "iPhone"

	DefaultAppiumURL = "http://127.0.0.1:4723/wd/hub"

	DefaultPollAttempts = 60
	DefaultPollInterval = 5 * time.Second
)
