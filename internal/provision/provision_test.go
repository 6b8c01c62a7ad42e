package provision

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goplus/uitest/internal/config"
	"github.com/goplus/uitest/platform"
	"github.com/goplus/uitest/pkgs/tool"
	"github.com/goplus/uitest/pkgs/tool/tooltest"
)

const installed = `Installed packages:
  Path                    | Version | Description | Location
  -------                 | ------- | -------     | --------
  extras;google;webdriver | 2       | WebDriver   | extras/google/webdriver
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ANDROID_HOME", "")
	t.Setenv("ANDROID_SDK_ROOT", "")
	cfg := config.DefaultConfig()
	cfg.Poll = config.PollConfig{Attempts: 3, Interval: time.Millisecond}
	return cfg
}

type recorder struct {
	states []State
}

func (r *recorder) observe(s State, _ string) {
	r.states = append(r.states, s)
}

// androidBridge fakes an installed SDK whose bridge lists a Pixel_4 on
// SDK 30 once `ready` reports true.
func androidBridge(run *tooltest.Runner, ready func() bool) {
	run.Lines("sdkmanager", []string{"--list_installed"}, installed)
	run.Respond(tooltest.Response{}, "sdkmanager", "--install")
	run.Handle(func(context.Context, tool.Command) tooltest.Response {
		if !ready() {
			return tooltest.Response{Stdout: []string{"List of devices attached", ""}}
		}
		return tooltest.Response{Stdout: []string{
			"List of devices attached",
			"emulator-5554 device product:sdk_gphone_x86 model:Pixel_4 transport_id:1",
		}}
	}, "adb", "devices", "-l")
	run.Lines("adb", []string{"-s", "emulator-5554", "shell", "getprop", "ro.build.version.sdk"}, "30")
}

func TestAndroidConnectedDevice(t *testing.T) {
	run := tooltest.New()
	androidBridge(run, func() bool { return true })
	rec := &recorder{}

	res, err := New(run, testConfig(t), WithObserver(rec.observe)).Provision(context.Background(), platform.Android)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := platform.Device{Name: "Pixel_4", UDID: "emulator-5554", OSVersion: "30"}
	if res.Device != want {
		t.Fatalf("Device = %+v, want %+v", res.Device, want)
	}
	wantStates := []State{PlatformSelected, ToolingReady, DeviceAvailable, DeviceReady}
	if !slices.Equal(res.States, wantStates) || !slices.Equal(rec.states, wantStates) {
		t.Fatalf("States = %v, observed %v, want %v", res.States, rec.states, wantStates)
	}
	for _, cmd := range run.Commands() {
		if strings.HasPrefix(cmd, "avdmanager") || strings.HasPrefix(cmd, "emulator") || strings.HasPrefix(cmd, "sdkmanager --install") {
			t.Fatalf("unexpected bootstrap command %q", cmd)
		}
	}
}

func TestAndroidBootsEmulator(t *testing.T) {
	run := tooltest.New()
	var started atomic.Bool
	var polls atomic.Int32
	androidBridge(run, func() bool {
		// Report the device on the second poll after the emulator started.
		return started.Load() && polls.Add(1) >= 2
	})
	run.Lines("emulator", []string{"-list-avds"}, "Pixel_4_API_30")
	run.Respond(tooltest.Response{}, "avdmanager", "create", "avd")
	run.Handle(func(context.Context, tool.Command) tooltest.Response {
		started.Store(true)
		return tooltest.Response{}
	}, "emulator", "-avd")

	cfg := testConfig(t)
	res, err := New(run, cfg).Provision(context.Background(), platform.Android)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := platform.Device{Name: "uitest_emulator", UDID: "emulator-5554", OSVersion: "30"}
	if res.Device != want {
		t.Fatalf("Device = %+v, want %+v", res.Device, want)
	}

	image := cfg.Android.Image()
	wantCmds := []string{
		"sdkmanager --list_installed",
		"adb devices -l",
		"sdkmanager --list_installed",
		"sdkmanager --install platforms;android-29 " + image,
		"emulator -list-avds",
		"avdmanager create avd -n uitest_emulator -k " + image + " --force",
		"emulator -avd uitest_emulator -no-snapshot-save -no-boot-anim",
		"adb devices -l",
		"adb devices -l",
		"adb -s emulator-5554 shell getprop ro.build.version.sdk",
	}
	if got := run.Commands(); !slices.Equal(got, wantCmds) {
		t.Fatalf("commands:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(wantCmds, "\n"))
	}
}

func TestAndroidBootedEmulatorNamedAfterAVD(t *testing.T) {
	run := tooltest.New()
	var started atomic.Bool
	run.Lines("sdkmanager", []string{"--list_installed"}, installed)
	run.Respond(tooltest.Response{}, "sdkmanager", "--install")
	run.Handle(func(context.Context, tool.Command) tooltest.Response {
		if !started.Load() {
			return tooltest.Response{Stdout: []string{"List of devices attached", ""}}
		}
		return tooltest.Response{Stdout: []string{
			"List of devices attached",
			"emulator-5556 device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64 device:emu64xa transport_id:2",
		}}
	}, "adb", "devices", "-l")
	run.Lines("adb", []string{"-s", "emulator-5556", "shell", "getprop", "ro.build.version.sdk"}, "29")
	run.Lines("emulator", []string{"-list-avds"}, "Nexus_API_29")
	run.Handle(func(context.Context, tool.Command) tooltest.Response {
		started.Store(true)
		return tooltest.Response{}
	}, "emulator", "-avd")

	cfg := testConfig(t)
	cfg.Android.AVDName = "Nexus_API_29"
	res, err := New(run, cfg).Provision(context.Background(), platform.Android)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := platform.Device{Name: "Nexus_API_29", UDID: "emulator-5556", OSVersion: "29"}
	if res.Device != want {
		t.Fatalf("Device = %+v, want %+v", res.Device, want)
	}
}

func TestAndroidExistingAVDNotRecreated(t *testing.T) {
	run := tooltest.New()
	var started atomic.Bool
	androidBridge(run, started.Load)
	run.Lines("emulator", []string{"-list-avds"}, "uitest_emulator")
	run.Handle(func(context.Context, tool.Command) tooltest.Response {
		started.Store(true)
		return tooltest.Response{}
	}, "emulator", "-avd")

	if _, err := New(run, testConfig(t)).Provision(context.Background(), platform.Android); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	for _, cmd := range run.Commands() {
		if strings.HasPrefix(cmd, "avdmanager") {
			t.Fatalf("avd recreated: %q", cmd)
		}
	}
}

func TestAndroidDeviceTimeout(t *testing.T) {
	run := tooltest.New()
	androidBridge(run, func() bool { return false })
	run.Lines("emulator", []string{"-list-avds"}, "uitest_emulator")
	run.Respond(tooltest.Response{}, "emulator", "-avd")
	rec := &recorder{}

	_, err := New(run, testConfig(t), WithObserver(rec.observe)).Provision(context.Background(), platform.Android)
	if !errors.Is(err, ErrDeviceTimeout) {
		t.Fatalf("err = %v, want ErrDeviceTimeout", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.Step != "device-poll" {
		t.Fatalf("err = %v, want device-poll StepError", err)
	}
	polls := 0
	for _, cmd := range run.Commands() {
		if cmd == "adb devices -l" {
			polls++
		}
	}
	if polls != 4 {
		t.Fatalf("adb devices called %d times, want 4", polls)
	}
	if last := rec.states[len(rec.states)-1]; last != Failed {
		t.Fatalf("last state = %v, want failed", last)
	}
}

func TestAndroidCancelStopsSteps(t *testing.T) {
	run := tooltest.New()
	androidBridge(run, func() bool { return false })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	run.Handle(func(ctx context.Context, _ tool.Command) tooltest.Response {
		cancel()
		<-ctx.Done()
		return tooltest.Response{}
	}, "sdkmanager", "--install")
	// Nothing is installed, so the web driver install runs first.
	run.Lines("sdkmanager", []string{"--list_installed"}, "Installed packages:")

	_, err := New(run, testConfig(t)).Provision(ctx, platform.Android)
	if !errors.Is(err, tool.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if got := run.Commands(); len(got) != 2 {
		t.Fatalf("commands after cancel = %q, want only the listing and the install", got)
	}
}

func TestAndroidStepFailure(t *testing.T) {
	run := tooltest.New()
	run.Lines("sdkmanager", []string{"--list_installed"}, "Installed packages:")
	run.Respond(tooltest.Response{Stderr: []string{"Warning: Failed to find package"}, Code: 1}, "sdkmanager", "--install")

	_, err := New(run, testConfig(t)).Provision(context.Background(), platform.Android)
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StepError", err)
	}
	if se.Step != "webdriver-install" || se.Detail != "Warning: Failed to find package" {
		t.Fatalf("StepError = %+v", se)
	}
}

const simctlJSON = `{"devices": {
  "com.apple.CoreSimulator.SimRuntime.iOS-16-0": [
    {"udid": "ABCD-1234", "isAvailable": true, "state": "Shutdown", "name": "iPhone 13"}
  ]
}}`

func TestIOS(t *testing.T) {
	run := tooltest.New()
	run.Respond(tooltest.Response{}, "xcrun", "simctl", "shutdown", "all")
	run.Lines("xcrun", []string{"simctl", "list"}, simctlJSON)

	res, err := New(run, testConfig(t)).Provision(context.Background(), platform.IOS)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	want := platform.Device{Name: "iPhone 13", UDID: "ABCD-1234", OSVersion: "16.0"}
	if res.Device != want || res.Platform != platform.IOS {
		t.Fatalf("Result = %+v, want %+v", res, want)
	}
	if got := run.Commands(); got[0] != "xcrun simctl shutdown all" {
		t.Fatalf("first command = %q, want shutdown", got[0])
	}
}

func TestIOSDeviceNotFound(t *testing.T) {
	run := tooltest.New()
	run.Respond(tooltest.Response{}, "xcrun", "simctl", "shutdown", "all")
	run.Lines("xcrun", []string{"simctl", "list"}, `{"devices": {}}`)

	_, err := New(run, testConfig(t)).Provision(context.Background(), platform.IOS)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	run := tooltest.New()
	_, err := New(run, testConfig(t)).Provision(context.Background(), platform.Platform("Tizen"))
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("err = %v, want ErrUnsupportedPlatform", err)
	}
	if len(run.Calls()) != 0 {
		t.Fatalf("calls = %q", run.Commands())
	}
}

func TestStateString(t *testing.T) {
	if DeviceReady.String() != "device-ready" || !DeviceReady.Terminal() || ToolingReady.Terminal() {
		t.Fatal("unexpected State formatting")
	}
	if got := State(42).String(); got != "State(42)" {
		t.Fatalf("State(42) = %q", got)
	}
}
