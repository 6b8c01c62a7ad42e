// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testconfig reads and writes the configuration record handed from
// the provisioning run to the UI test run.
package testconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/goplus/uitest/platform"
	"github.com/tailscale/hujson"
)

// DefaultPath is the file name of the configuration record.
const DefaultPath = "uitest.json"

// PathEnv overrides DefaultPath for test processes.
const PathEnv = "UITEST_CONFIG"

// Config is the persisted test configuration. Capabilities and Settings
// are passed to the automation server verbatim.
type Config struct {
	Platform     platform.Platform `json:"platform,omitempty"`
	AppPath      string            `json:"appPath,omitempty"`
	DeviceName   string            `json:"deviceName,omitempty"`
	UDID         string            `json:"udid,omitempty"`
	OSVersion    string            `json:"osVersion,omitempty"`
	AppiumServer string            `json:"appiumServer,omitempty"`
	Capabilities map[string]string `json:"capabilities"`
	Settings     map[string]string `json:"settings"`
}

// Path returns the configuration path from PathEnv or DefaultPath.
func Path() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Parse reads a configuration from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
// Comments and trailing commas are accepted; keys match case-insensitively.
func Parse(file string, data []byte) (*Config, error) {
	if data == nil {
		var err error
		if data, err = os.ReadFile(file); err != nil {
			return nil, err
		}
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	var c Config
	if err := json.Unmarshal(std, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &c, nil
}

// Load parses the configuration at path. A missing file yields an empty
// configuration.
func Load(path string) (*Config, error) {
	c, err := Parse(path, nil)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	return c, err
}

// Merge combines the user-declared configuration with discovered facts.
// Capabilities, settings and the automation server are kept from user;
// platform, app path and device fields are always replaced. user is not
// modified and may be nil.
func Merge(user *Config, p platform.Platform, appPath string, dev platform.Device) *Config {
	out := &Config{}
	if user != nil {
		out.AppiumServer = user.AppiumServer
		out.Capabilities = maps.Clone(user.Capabilities)
		out.Settings = maps.Clone(user.Settings)
	}
	if out.Capabilities == nil {
		out.Capabilities = map[string]string{}
	}
	if out.Settings == nil {
		out.Settings = map[string]string{}
	}
	out.Platform = p
	out.AppPath = appPath
	out.DeviceName = dev.Name
	out.UDID = dev.UDID
	out.OSVersion = dev.OSVersion
	return out
}

// Device returns the device identity recorded in c.
func (c *Config) Device() platform.Device {
	return platform.Device{Name: c.DeviceName, UDID: c.UDID, OSVersion: c.OSVersion}
}

// Marshal returns the indented JSON form. Map keys are sorted, so equal
// configurations marshal to identical bytes.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save overwrites path with c.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}
	return nil
}
