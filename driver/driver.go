// Package driver creates automation sessions bound to the device recorded
// by the provisioning run.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/uitest/driver/appium"
	"github.com/goplus/uitest/platform"
	"github.com/goplus/uitest/testconfig"
)

// DefaultServer is used when the configuration names no server.
const DefaultServer = "http://127.0.0.1:4723/wd/hub"

// ErrDriverConstruction is returned when no session could be created.
var ErrDriverConstruction = errors.New("driver construction failed")

// engine builds the capabilities for one platform.
type engine struct {
	automationName string
	caps           func(c *testconfig.Config, caps appium.Capabilities)
}

var engines = map[platform.Platform]engine{
	platform.Android: {
		automationName: "Espresso",
		caps: func(c *testconfig.Config, caps appium.Capabilities) {
			if app := existingFile(c.AppPath); app != "" {
				caps["app"] = app
			}
			caps["forceEspressoRebuild"] = true
			caps["enforceAppInstall"] = true
		},
	},
	platform.IOS: {
		automationName: "XCUITest",
		caps: func(c *testconfig.Config, caps appium.Capabilities) {
			if app := existingFile(c.AppPath); app != "" {
				caps["app"] = app
			}
			set(caps, "platformVersion", c.OSVersion)
		},
	},
}

func existingFile(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	if _, err := os.Stat(abs); err != nil {
		return ""
	}
	return abs
}

// set adds a capability unless v is empty.
func set(caps appium.Capabilities, k, v string) {
	if v != "" {
		caps[k] = v
	}
}

// Capabilities returns the session capabilities for c: the user's
// capabilities first, then the keys owned by the platform engine.
func Capabilities(c *testconfig.Config) (appium.Capabilities, error) {
	eng, ok := engines[c.Platform]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported platform %q", ErrDriverConstruction, c.Platform)
	}
	caps := appium.Capabilities{}
	for k, v := range c.Capabilities {
		caps[k] = v
	}
	caps["platformName"] = c.Platform.String()
	set(caps, "deviceName", c.DeviceName)
	set(caps, "udid", c.UDID)
	caps["automationName"] = eng.automationName
	eng.caps(c, caps)
	return caps, nil
}

type options struct {
	server  string
	timeout time.Duration
}

// Option configures New.
type Option func(*options)

// WithServer overrides the server recorded in the configuration.
func WithServer(url string) Option {
	return func(o *options) { o.server = url }
}

// WithTimeout overrides appium.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Driver is a live session on the provisioned device.
type Driver struct {
	Platform platform.Platform
	Device   platform.Device
	session  *appium.Session
}

// New starts a session described by c.
func New(ctx context.Context, c *testconfig.Config, opts ...Option) (*Driver, error) {
	o := options{server: c.AppiumServer, timeout: appium.DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.server == "" {
		o.server = DefaultServer
	}

	caps, err := Capabilities(c)
	if err != nil {
		return nil, err
	}
	client := appium.NewClient(o.server, o.timeout)
	sess, err := client.NewSession(ctx, caps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDriverConstruction, err)
	}
	if len(c.Settings) > 0 {
		settings := make(map[string]any, len(c.Settings))
		for k, v := range c.Settings {
			settings[k] = v
		}
		if err := sess.UpdateSettings(ctx, settings); err != nil {
			sess.Quit(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("%w: settings: %w", ErrDriverConstruction, err)
		}
	}
	return &Driver{Platform: c.Platform, Device: c.Device(), session: sess}, nil
}

// Open loads the configuration at testconfig.Path and starts a session.
func Open(ctx context.Context, opts ...Option) (*Driver, error) {
	c, err := testconfig.Parse(testconfig.Path(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDriverConstruction, err)
	}
	return New(ctx, c, opts...)
}

// SessionID returns the server's session id.
func (d *Driver) SessionID() string {
	return d.session.ID
}

// FindElement returns the first element matching the locator.
func (d *Driver) FindElement(ctx context.Context, using, value string) (*Element, error) {
	id, err := d.session.FindElement(ctx, using, value)
	if err != nil {
		return nil, err
	}
	return &Element{id: id, session: d.session}, nil
}

// Source returns the current UI hierarchy.
func (d *Driver) Source(ctx context.Context) (string, error) {
	return d.session.Source(ctx)
}

// Quit ends the session.
func (d *Driver) Quit(ctx context.Context) error {
	return d.session.Quit(ctx)
}
