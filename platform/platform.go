// Package platform names the target platforms a build artifact can belong to.
package platform

import (
	"fmt"
	"strings"
)

// Platform is a target platform. The zero value is not a valid platform.
type Platform string

const (
	Android Platform = "Android"
	IOS     Platform = "iOS"
)

// All lists the supported platforms in detection order.
var All = []Platform{Android, IOS}

// Parse maps a platform name (case-insensitive, "droid" accepted) to a Platform.
func Parse(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "android", "droid":
		return Android, nil
	case "ios":
		return IOS, nil
	}
	return "", fmt.Errorf("platform %q is not supported", name)
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p == Android || p == IOS
}

func (p Platform) String() string {
	return string(p)
}

// UnmarshalText accepts any spelling Parse does. Empty text yields the
// zero Platform.
func (p *Platform) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ""
		return nil
	}
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Device identifies a provisioned device, emulator or simulator. It is
// only produced once the device is ready.
type Device struct {
	Name      string
	UDID      string
	OSVersion string
}
