// Package msbuild builds legacy (non SDK-style) MSBuild projects.
package msbuild

import (
	"context"
	"runtime"
	"strings"

	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/buildsys"
	"github.com/goplus/uitest/pkgs/tool"
)

// MSBuild drives msbuild for legacy project files.
type MSBuild struct {
	bin string
}

var _ buildsys.Strategy = (*MSBuild)(nil)

// New creates the legacy strategy. On Windows the binary is msbuild.exe;
// elsewhere the Mono/Visual Studio for Mac msbuild in PATH is used.
func New() *MSBuild {
	bin := "msbuild"
	if runtime.GOOS == "windows" {
		bin = "msbuild.exe"
	}
	return &MSBuild{bin: bin}
}

func (m *MSBuild) Name() string { return "msbuild" }

// Applies reports whether proj is an MSBuild file without an Sdk.
func (m *MSBuild) Applies(proj *buildsys.Project) bool {
	if !buildsys.HasExt(proj.Path, ".csproj", ".fsproj", ".vbproj") {
		return false
	}
	f, err := buildsys.ParseMSBuild(proj.Path)
	if err != nil {
		logging.Debug("msbuild: cannot parse project", "path", proj.Path, "error", err)
		return false
	}
	return !f.IsSDK()
}

// Build runs msbuild with /restore. Android application projects are
// built through SignAndroidPackage so a signed package lands in OutputDir.
func (m *MSBuild) Build(ctx context.Context, r tool.Runner, proj *buildsys.Project, configuration string) (*tool.Result, error) {
	target := "Build"
	if f, err := buildsys.ParseMSBuild(proj.Path); err == nil && f.IsAndroid() {
		target = "SignAndroidPackage"
	}
	return r.Run(ctx, tool.Command{
		Name:   m.bin,
		Args:   m.args(proj, target, configuration),
		Stdout: func(line string) { logging.Debug(line, "tool", m.bin) },
	})
}

func (m *MSBuild) args(proj *buildsys.Project, target, configuration string) []string {
	out := proj.OutputDir
	if !strings.HasSuffix(out, "/") && !strings.HasSuffix(out, `\`) {
		// OutputPath must end with a separator or msbuild warns MSB8004.
		out += "/"
	}
	args := []string{
		proj.Path,
		"/restore",
		"/t:" + target,
		"/p:Configuration=" + configuration,
		"/p:OutputPath=" + out,
	}
	return append(args, buildsys.PropertyArgs("/p:", proj.Properties)...)
}
