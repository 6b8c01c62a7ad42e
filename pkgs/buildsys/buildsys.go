// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buildsys selects the native toolchain for a project file and
// forwards the build to it.
package buildsys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/tool"
)

// DefaultConfiguration is used when the caller leaves the configuration empty.
const DefaultConfiguration = "Release"

var (
	// ErrUnsupportedProjectFormat reports that no registered strategy
	// recognises the project file.
	ErrUnsupportedProjectFormat = errors.New("unsupported project format")

	// ErrBuildFailed is matched by every *BuildError.
	ErrBuildFailed = errors.New("build failed")
)

// Project describes one project file to build. It is not modified by
// strategies.
type Project struct {
	// Path is the project definition file.
	Path string
	// Format is the name of the strategy that recognised Path. Dispatch
	// fills it in.
	Format string
	// OutputDir receives the build artifacts. Dispatch makes it absolute.
	OutputDir string
	// Properties are extra build properties forwarded to the toolchain.
	Properties map[string]string
}

// Strategy captures one native build toolchain. Implementations are
// stateless so a single value can serve every build in the process.
type Strategy interface {
	// Name identifies the project format, e.g. "dotnet".
	Name() string

	// Applies reports whether the strategy can build proj.
	Applies(proj *Project) bool

	// Build runs the toolchain. The returned Result carries the tool output
	// even when err is non-nil.
	Build(ctx context.Context, r tool.Runner, proj *Project, configuration string) (*tool.Result, error)
}

// Registry is an ordered, read-only set of strategies.
type Registry struct {
	strategies []Strategy
}

// NewRegistry creates a registry probing strategies in the given order.
func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: append([]Strategy(nil), strategies...)}
}

// Strategies returns the registered strategies in probe order.
func (r *Registry) Strategies() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// Lookup returns the first strategy that applies to proj.
func (r *Registry) Lookup(proj *Project) (Strategy, error) {
	for _, s := range r.strategies {
		if s.Applies(proj) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", proj.Path, ErrUnsupportedProjectFormat)
}

// Result summarises a successful build.
type Result struct {
	Strategy      string
	Configuration string
	OutputDir     string
}

// BuildError is returned when the toolchain exits unsuccessfully.
type BuildError struct {
	Strategy string
	Project  string
	Output   []string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s build of %s failed: %v", e.Strategy, e.Project, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

// Dispatch builds proj with the first applicable strategy. An empty
// configuration defaults to DefaultConfiguration. Build failures are
// returned as *BuildError and are never retried.
func (r *Registry) Dispatch(ctx context.Context, run tool.Runner, proj Project, configuration string) (*Result, error) {
	abs, err := filepath.Abs(proj.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("project file %s is a directory", abs)
	}
	proj.Path = abs

	s, err := r.Lookup(&proj)
	if err != nil {
		return nil, err
	}
	proj.Format = s.Name()

	if strings.TrimSpace(configuration) == "" {
		configuration = DefaultConfiguration
	}
	if proj.OutputDir == "" {
		proj.OutputDir = filepath.Join(filepath.Dir(abs), "bin")
	}
	if proj.OutputDir, err = filepath.Abs(proj.OutputDir); err != nil {
		return nil, err
	}

	res, err := s.Build(ctx, run, &proj, configuration)
	if err != nil {
		if errors.Is(err, tool.ErrCancelled) || errors.Is(err, tool.ErrToolNotInstalled) {
			return nil, err
		}
		var output []string
		if res != nil {
			output = append(append(output, res.Stdout...), res.Stderr...)
		}
		for _, line := range output {
			logging.Error(line, "strategy", s.Name())
		}
		return nil, &BuildError{Strategy: s.Name(), Project: abs, Output: output, Err: err}
	}
	return &Result{Strategy: s.Name(), Configuration: configuration, OutputDir: proj.OutputDir}, nil
}

// HasExt reports whether path has one of exts, compared case-insensitively.
func HasExt(path string, exts ...string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
