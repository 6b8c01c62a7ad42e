// Package runner wires the build, detection and provisioning stages into
// the pipelines exposed by the command line.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/goplus/uitest/internal/config"
	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/internal/node"
	"github.com/goplus/uitest/internal/probe"
	"github.com/goplus/uitest/internal/provision"
	"github.com/goplus/uitest/pkgs/buildsys"
	"github.com/goplus/uitest/pkgs/buildsys/dotnet"
	"github.com/goplus/uitest/pkgs/buildsys/gradle"
	"github.com/goplus/uitest/pkgs/buildsys/msbuild"
	"github.com/goplus/uitest/pkgs/tool"
	"github.com/goplus/uitest/testconfig"
)

// DefaultRegistry returns the build strategies in probe order.
func DefaultRegistry() *buildsys.Registry {
	return buildsys.NewRegistry(dotnet.New(), msbuild.New(), gradle.New())
}

// Runner runs pipelines with one set of options. Stages run one after
// another; each consumes the previous stage's output.
type Runner struct {
	cfg      *config.Config
	tools    tool.Runner
	registry *buildsys.Registry
	observe  provision.Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *buildsys.Registry) Option {
	return func(rn *Runner) { rn.registry = r }
}

// WithObserver reports provisioning states to fn.
func WithObserver(fn provision.Observer) Option {
	return func(rn *Runner) { rn.observe = fn }
}

// New creates a Runner invoking external tools through tools.
func New(cfg *config.Config, tools tool.Runner, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, tools: tools}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = DefaultRegistry()
	}
	return r
}

// Build builds the configured project, or the first project found below
// root, into the bin directory.
func (r *Runner) Build(ctx context.Context, root string) (*buildsys.Result, error) {
	path := r.cfg.Build.Project
	if path == "" {
		found, err := buildsys.Discover(root)
		if err != nil {
			return nil, err
		}
		path = found[0]
		if len(found) > 1 {
			logging.Warn("several projects found, building the first", "project", path, "count", len(found))
		}
	}
	proj := buildsys.Project{
		Path:       path,
		OutputDir:  r.binDir(root),
		Properties: r.cfg.Build.Properties,
	}
	logging.Info("building", "project", path, "output", proj.OutputDir)
	res, err := r.registry.Dispatch(ctx, r.tools, proj, r.cfg.Build.Configuration)
	if err != nil {
		return nil, err
	}
	logging.Info("build finished", "strategy", res.Strategy, "configuration", res.Configuration)
	return res, nil
}

func (r *Runner) binDir(root string) string {
	if filepath.IsAbs(r.cfg.BinDir) {
		return r.cfg.BinDir
	}
	return filepath.Join(root, r.cfg.BinDir)
}

func (r *Runner) configPath(root string) string {
	path := r.cfg.ConfigPath
	if path == "" {
		path = testconfig.Path()
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Detect reports the artifact in the bin directory below root.
func (r *Runner) Detect(root string) (*probe.Artifact, error) {
	return probe.Detect(r.binDir(root))
}

// Provision detects the artifact, provisions a matching device and
// rewrites the test configuration with what was discovered.
func (r *Runner) Provision(ctx context.Context, root string) (*testconfig.Config, error) {
	art, err := r.Detect(root)
	if err != nil {
		return nil, err
	}
	logging.Info("detected artifact", "platform", art.Platform, "path", art.Path)

	path := r.configPath(root)
	user, err := testconfig.Load(path)
	if err != nil {
		return nil, err
	}

	res, err := provision.New(r.tools, r.cfg, provision.WithObserver(r.observe)).Provision(ctx, art.Platform)
	if err != nil {
		return nil, err
	}

	out := testconfig.Merge(user, art.Platform, art.Path, res.Device)
	if out.AppiumServer == "" && r.cfg.Appium.URL != config.DefaultAppiumURL {
		out.AppiumServer = r.cfg.Appium.URL
	}
	if err := out.Save(path); err != nil {
		return nil, fmt.Errorf("save %s: %w", path, err)
	}
	logging.Info("wrote test configuration", "path", path)
	return out, nil
}

// Run builds and then provisions.
func (r *Runner) Run(ctx context.Context, root string) (*testconfig.Config, error) {
	if _, err := r.Build(ctx, root); err != nil {
		return nil, err
	}
	return r.Provision(ctx, root)
}

// Setup installs the automation server packages and returns the node
// version used.
func (r *Runner) Setup(ctx context.Context) (string, error) {
	npm := node.New(r.tools)
	version, err := npm.Version(ctx)
	if err != nil {
		return version, err
	}
	var errs []error
	for _, pkg := range r.cfg.Appium.Packages {
		if err := npm.InstallGlobal(ctx, pkg); err != nil {
			if errors.Is(err, tool.ErrCancelled) {
				return version, err
			}
			errs = append(errs, err)
		}
	}
	return version, errors.Join(errs...)
}
