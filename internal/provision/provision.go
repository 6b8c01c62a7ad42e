// Package provision brings a device for the target platform into a state
// where the built artifact can run under an automation driver.
//
// Provisioning is a state machine:
//
//	PlatformSelected -> ToolingReady -> DeviceAvailable -> DeviceReady
//
// with a transition to Failed from any state. Steps run strictly in order
// and each step waits for the side effect of its predecessor.
package provision

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/goplus/uitest/internal/android"
	"github.com/goplus/uitest/internal/apple"
	"github.com/goplus/uitest/internal/config"
	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/platform"
	"github.com/goplus/uitest/pkgs/tool"
)

// Result describes a successful provisioning run.
type Result struct {
	Platform platform.Platform
	Device   platform.Device
	States   []State
}

// Provisioner provisions devices with the configured tooling.
type Provisioner struct {
	android *android.Client
	apple   *apple.Client

	androidCfg config.AndroidConfig
	iosCfg     config.IOSConfig
	poll       config.PollConfig
	observe    Observer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithObserver reports every state transition to fn.
func WithObserver(fn Observer) Option {
	return func(p *Provisioner) {
		p.observe = fn
	}
}

// New creates a Provisioner running tools through run.
func New(run tool.Runner, cfg *config.Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		android:    android.New(run),
		apple:      apple.New(run),
		androidCfg: cfg.Android,
		iosCfg:     cfg.IOS,
		poll:       cfg.Poll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// flow drives one platform from PlatformSelected to DeviceReady.
type flow func(p *Provisioner, ctx context.Context, m *machine) (platform.Device, error)

var flows = map[platform.Platform]flow{
	platform.Android: (*Provisioner).provisionAndroid,
	platform.IOS:     (*Provisioner).provisionIOS,
}

// Provision runs the state machine for plat.
func (p *Provisioner) Provision(ctx context.Context, plat platform.Platform) (*Result, error) {
	run, ok := flows[plat]
	if !ok {
		return nil, fmt.Errorf("provision: %w: %q", ErrUnsupportedPlatform, plat)
	}
	m := &machine{observe: p.observe}
	m.enter(PlatformSelected, plat.String())
	dev, err := run(p, ctx, m)
	if err != nil {
		m.enter(Failed, err.Error())
		return nil, err
	}
	m.enter(DeviceReady, fmt.Sprintf("%s (%s) %s", dev.Name, dev.UDID, dev.OSVersion))
	return &Result{Platform: plat, Device: dev, States: m.states}, nil
}

type machine struct {
	states  []State
	observe Observer
}

func (m *machine) enter(s State, detail string) {
	m.states = append(m.states, s)
	logging.Info("provisioning", "state", s.String(), "detail", detail)
	if m.observe != nil {
		m.observe(s, detail)
	}
}

func (p *Provisioner) provisionIOS(ctx context.Context, m *machine) (platform.Device, error) {
	if err := p.apple.ShutdownAll(ctx); err != nil {
		return platform.Device{}, stepError("simulator-shutdown", err)
	}
	m.enter(ToolingReady, "simulators shut down")

	sims, err := p.apple.List(ctx)
	if err != nil {
		return platform.Device{}, stepError("simulator-list", err)
	}
	sim, err := apple.Select(sims, apple.Criteria{Name: p.iosCfg.DeviceType, OSVersion: p.iosCfg.Runtime})
	if err != nil {
		return platform.Device{}, stepError("simulator-select", fmt.Errorf("%w: %w", ErrDeviceNotFound, err))
	}
	m.enter(DeviceAvailable, sim.Name)

	// The driver boots the simulator when it creates the session.
	return platform.Device{Name: sim.Name, UDID: sim.UDID, OSVersion: sim.OSVersion}, nil
}

func (p *Provisioner) provisionAndroid(ctx context.Context, m *machine) (platform.Device, error) {
	if err := p.android.InstallWebDriver(ctx); err != nil {
		return platform.Device{}, stepError("webdriver-install", err)
	}
	m.enter(ToolingReady, android.WebDriverPackage)

	devices, err := p.android.Devices(ctx)
	if err != nil {
		return platform.Device{}, stepError("device-check", err)
	}
	booted := len(devices) == 0
	if booted {
		devices, err = p.bootEmulator(ctx)
		if err != nil {
			return platform.Device{}, err
		}
	}
	dev := p.pickDevice(devices)
	m.enter(DeviceAvailable, dev.Serial)

	// An emulator reports its system image as model (sdk_gphone64_x86_64);
	// the AVD we booted is the more useful name.
	name := dev.Name()
	if dev.Emulator() && (booted || dev.Model == "") {
		name = p.androidCfg.AVDName
	}
	return platform.Device{Name: name, UDID: dev.Serial, OSVersion: dev.SDKVersion}, nil
}

// pickDevice returns the configured device if attached, else the first.
func (p *Provisioner) pickDevice(devices []android.Device) android.Device {
	if serial := p.androidCfg.Device; serial != "" {
		for _, d := range devices {
			if d.Serial == serial {
				return d
			}
		}
		logging.Warn("configured android device not attached", "serial", serial)
	}
	return devices[0]
}

func (p *Provisioner) bootEmulator(ctx context.Context) ([]android.Device, error) {
	name, image := p.androidCfg.AVDName, p.androidCfg.Image()
	if err := p.android.EnsureSDK(ctx, p.androidCfg.SDKVersion, image); err != nil {
		return nil, stepError("sdk-ensure", err)
	}

	avds, err := p.android.AVDs(ctx)
	if err != nil {
		return nil, stepError("avd-ensure", err)
	}
	if !slices.Contains(avds, name) {
		if err := p.android.CreateAVD(ctx, name, image); err != nil {
			return nil, stepError("avd-ensure", err)
		}
	}

	if err := p.android.StartEmulator(ctx, name); err != nil {
		return nil, stepError("emulator-start", err)
	}
	return p.waitForDevice(ctx)
}

// waitForDevice polls the bridge until it lists a device, at most
// poll.Attempts times.
func (p *Provisioner) waitForDevice(ctx context.Context) ([]android.Device, error) {
	for attempt := 1; attempt <= p.poll.Attempts; attempt++ {
		if err := sleep(ctx, p.poll.Interval); err != nil {
			return nil, stepError("device-poll", err)
		}
		devices, err := p.android.Devices(ctx)
		if err != nil {
			return nil, stepError("device-poll", err)
		}
		if len(devices) > 0 {
			return devices, nil
		}
		logging.Debug("waiting for device", "attempt", attempt, "of", p.poll.Attempts)
	}
	total := time.Duration(p.poll.Attempts) * p.poll.Interval
	return nil, stepError("device-poll", fmt.Errorf("%w after %s", ErrDeviceTimeout, total))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("device poll: %w", tool.ErrCancelled)
	case <-t.C:
		return nil
	}
}
