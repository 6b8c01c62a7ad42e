// Package android drives the Android SDK command-line tools: the device
// bridge, the SDK and virtual device managers and the emulator.
package android

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goplus/uitest/internal/env"
	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/tool"
)

// WebDriverPackage is the SDK package providing the Android web driver.
const WebDriverPackage = "extras;google;webdriver"

// Device is a device listed by the bridge in the "device" state.
type Device struct {
	Serial     string
	Model      string
	Product    string
	SDKVersion string
}

// Name returns the model reported by the bridge, or the serial.
func (d Device) Name() string {
	if d.Model != "" {
		return d.Model
	}
	return d.Serial
}

// Emulator reports whether the device is an emulator instance.
func (d Device) Emulator() bool {
	return strings.HasPrefix(d.Serial, "emulator-")
}

// Client runs the Android SDK tools through a tool.Runner.
type Client struct {
	run        tool.Runner
	adb        string
	sdkmanager string
	avdmanager string
	emulator   string
}

// New creates a client resolving tool paths below the SDK root.
func New(r tool.Runner) *Client {
	return &Client{
		run:        r,
		adb:        env.AndroidTool("platform-tools", "adb"),
		sdkmanager: env.AndroidTool("cmdline-tools", "latest", "bin", "sdkmanager"),
		avdmanager: env.AndroidTool("cmdline-tools", "latest", "bin", "avdmanager"),
		emulator:   env.AndroidTool("emulator", "emulator"),
	}
}

func (c *Client) output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := tool.Output(ctx, c.run, tool.Command{Name: name, Args: args})
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// Devices lists the devices attached to the bridge that are ready for
// commands, each with its SDK level.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.output(ctx, c.adb, "devices", "-l")
	if err != nil {
		return nil, err
	}
	devices := parseDevices(out)
	for i := range devices {
		sdk, err := c.output(ctx, c.adb, "-s", devices[i].Serial, "shell", "getprop", "ro.build.version.sdk")
		if err != nil {
			return nil, err
		}
		devices[i].SDKVersion = strings.TrimSpace(sdk)
	}
	return devices, nil
}

// parseDevices parses `adb devices -l`, keeping devices in the "device"
// state only.
func parseDevices(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		d := Device{Serial: fields[0]}
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, ":")
			if !ok {
				continue
			}
			switch k {
			case "model":
				d.Model = v
			case "product":
				d.Product = v
			}
		}
		devices = append(devices, d)
	}
	return devices
}

// InstalledPackages lists the SDK package paths that are installed.
func (c *Client) InstalledPackages(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, c.sdkmanager, "--list_installed")
	if err != nil {
		return nil, err
	}
	return parseInstalled(out), nil
}

func parseInstalled(output string) []string {
	var pkgs []string
	for _, line := range strings.Split(output, "\n") {
		col, _, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		col = strings.TrimSpace(col)
		if col == "" || col == "Path" || strings.Trim(col, "-") == "" {
			continue
		}
		pkgs = append(pkgs, col)
	}
	return pkgs
}

// EnsurePackages installs the SDK packages that are not yet installed.
func (c *Client) EnsurePackages(ctx context.Context, pkgs ...string) error {
	installed, err := c.InstalledPackages(ctx)
	if err != nil {
		return err
	}
	var missing []string
	for _, p := range pkgs {
		if !slices.Contains(installed, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	logging.Info("installing android sdk packages", "packages", missing)
	_, err = c.run.Run(ctx, tool.Command{
		Name:   c.sdkmanager,
		Args:   append([]string{"--install"}, missing...),
		Stdin:  strings.Repeat("y\n", 16),
		Stdout: func(line string) { logging.Debug(line, "tool", "sdkmanager") },
	})
	if err != nil {
		return fmt.Errorf("sdkmanager --install: %w", err)
	}
	return nil
}

// InstallWebDriver installs the Android web driver package if missing.
func (c *Client) InstallWebDriver(ctx context.Context) error {
	return c.EnsurePackages(ctx, WebDriverPackage)
}

// EnsureSDK installs the SDK platform and the emulator system image.
func (c *Client) EnsureSDK(ctx context.Context, version, image string) error {
	return c.EnsurePackages(ctx, "platforms;android-"+version, image)
}

// AVDs lists the virtual devices known to the emulator.
func (c *Client) AVDs(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, c.emulator, "-list-avds")
	if err != nil {
		return nil, err
	}
	var avds []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		// Newer emulators print INFO lines before the list.
		if line == "" || strings.HasPrefix(line, "INFO") {
			continue
		}
		avds = append(avds, line)
	}
	return avds, nil
}

// CreateAVD creates (or replaces) a virtual device from a system image.
func (c *Client) CreateAVD(ctx context.Context, name, image string) error {
	_, err := c.run.Run(ctx, tool.Command{
		Name: c.avdmanager,
		Args: []string{"create", "avd", "-n", name, "-k", image, "--force"},
		// Decline the custom hardware profile prompt.
		Stdin: "no\n",
	})
	if err != nil {
		return fmt.Errorf("avdmanager create avd %s: %w", name, err)
	}
	return nil
}

// StartEmulator boots the named virtual device in the background.
func (c *Client) StartEmulator(ctx context.Context, name string) error {
	err := c.run.Start(ctx, tool.Command{
		Name: c.emulator,
		Args: []string{"-avd", name, "-no-snapshot-save", "-no-boot-anim"},
	})
	if err != nil {
		return fmt.Errorf("emulator -avd %s: %w", name, err)
	}
	return nil
}
