// Package apple drives the iOS simulator through xcrun simctl.
package apple

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/uitest/pkgs/tool"
)

const runtimePrefix = "com.apple.CoreSimulator.SimRuntime."

// ErrNoSimulator is returned by Select when no simulator matches.
var ErrNoSimulator = errors.New("no matching simulator")

// Simulator is one available simulator device.
type Simulator struct {
	Name  string `json:"name"`
	UDID  string `json:"udid"`
	State string `json:"state"`

	// Filled from the runtime key the device is listed under.
	Platform  string `json:"-"`
	OSVersion string `json:"-"`
}

// Criteria narrows simulator selection. Empty fields match anything.
type Criteria struct {
	// Name is matched exactly first, then as a name prefix.
	Name string
	// OSVersion pins the runtime, e.g. "16.0".
	OSVersion string
}

// Client runs simctl commands.
type Client struct {
	run tool.Runner
}

// New creates a client invoking xcrun through r.
func New(r tool.Runner) *Client {
	return &Client{run: r}
}

// ShutdownAll stops every running simulator.
func (c *Client) ShutdownAll(ctx context.Context) error {
	_, err := c.run.Run(ctx, tool.Command{
		Name: "xcrun",
		Args: []string{"simctl", "shutdown", "all"},
	})
	if err != nil {
		return fmt.Errorf("simctl shutdown all: %w", err)
	}
	return nil
}

// List returns the available simulators sorted by runtime (newest first)
// then by name.
func (c *Client) List(ctx context.Context) ([]Simulator, error) {
	out, err := tool.Output(ctx, c.run, tool.Command{
		Name: "xcrun",
		Args: []string{"simctl", "list", "devices", "available", "--json"},
	})
	if err != nil {
		return nil, fmt.Errorf("simctl list: %w", err)
	}
	return parseList([]byte(out))
}

// listedDevice is a device entry as simctl prints it. Xcode 10.1+ sets
// isAvailable (a bool, or "YES"/"NO" in early releases); older releases
// only set availability, e.g. "(available)" or "(unavailable, runtime
// profile not found)".
type listedDevice struct {
	Simulator
	IsAvailable  any    `json:"isAvailable"`
	Availability string `json:"availability"`
}

// unavailable reports whether simctl explicitly marks d unusable. Devices
// carrying neither field are kept since List already asks for available
// devices only.
func (d *listedDevice) unavailable() bool {
	switch v := d.IsAvailable.(type) {
	case bool:
		return !v
	case string:
		return strings.EqualFold(v, "NO") || strings.EqualFold(v, "false")
	}
	return strings.HasPrefix(d.Availability, "(unavailable")
}

func parseList(data []byte) ([]Simulator, error) {
	var doc struct {
		Devices map[string][]listedDevice `json:"devices"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("simctl list: malformed output: %w", err)
	}
	var sims []Simulator
	for key, devs := range doc.Devices {
		platform, version, ok := ParseRuntime(key)
		if !ok {
			continue
		}
		for _, d := range devs {
			if d.unavailable() {
				continue
			}
			sim := d.Simulator
			sim.Platform, sim.OSVersion = platform, version
			sims = append(sims, sim)
		}
	}
	sort.SliceStable(sims, func(i, j int) bool {
		if c := compareVersion(sims[i].OSVersion, sims[j].OSVersion); c != 0 {
			return c > 0
		}
		return sims[i].Name < sims[j].Name
	})
	return sims, nil
}

// ParseRuntime splits a runtime identifier such as
// com.apple.CoreSimulator.SimRuntime.iOS-16-0 into ("iOS", "16.0").
func ParseRuntime(id string) (platform, version string, ok bool) {
	rest, found := strings.CutPrefix(id, runtimePrefix)
	if !found {
		return "", "", false
	}
	platform, ver, found := strings.Cut(rest, "-")
	if !found || platform == "" || ver == "" {
		return "", "", false
	}
	return platform, strings.ReplaceAll(ver, "-", "."), true
}

func compareVersion(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// Select picks the iOS simulator best matching crit from sims, which
// must be ordered as List returns them.
func Select(sims []Simulator, crit Criteria) (Simulator, error) {
	var candidates []Simulator
	for _, s := range sims {
		if s.Platform != "iOS" {
			continue
		}
		if crit.OSVersion != "" && s.OSVersion != crit.OSVersion {
			continue
		}
		candidates = append(candidates, s)
	}
	if crit.Name != "" {
		for _, s := range candidates {
			if s.Name == crit.Name {
				return s, nil
			}
		}
	}
	for _, s := range candidates {
		if strings.HasPrefix(s.Name, crit.Name) {
			return s, nil
		}
	}
	return Simulator{}, fmt.Errorf("%w: name %q, os %q", ErrNoSimulator, crit.Name, crit.OSVersion)
}
