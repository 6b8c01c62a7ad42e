// Package dotnet builds SDK-style .NET projects with the dotnet CLI.
package dotnet

import (
	"context"

	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/buildsys"
	"github.com/goplus/uitest/pkgs/tool"
)

// DotNet drives `dotnet build` for SDK-style project files.
type DotNet struct {
	bin string
}

var _ buildsys.Strategy = (*DotNet)(nil)

// New creates the SDK-style strategy using the dotnet binary in PATH.
func New() *DotNet {
	return &DotNet{bin: "dotnet"}
}

func (d *DotNet) Name() string { return "dotnet" }

// Applies reports whether proj is an MSBuild file declaring an Sdk.
func (d *DotNet) Applies(proj *buildsys.Project) bool {
	if !buildsys.HasExt(proj.Path, ".csproj", ".fsproj", ".vbproj") {
		return false
	}
	f, err := buildsys.ParseMSBuild(proj.Path)
	if err != nil {
		logging.Debug("dotnet: cannot parse project", "path", proj.Path, "error", err)
		return false
	}
	return f.IsSDK()
}

// Build runs dotnet build <project> --output=<dir> --configuration=<cfg>.
func (d *DotNet) Build(ctx context.Context, r tool.Runner, proj *buildsys.Project, configuration string) (*tool.Result, error) {
	return r.Run(ctx, tool.Command{
		Name:   d.bin,
		Args:   d.args(proj, configuration),
		Stdout: func(line string) { logging.Debug(line, "tool", d.bin) },
	})
}

func (d *DotNet) args(proj *buildsys.Project, configuration string) []string {
	args := []string{
		"build",
		proj.Path,
		"--output=" + proj.OutputDir,
		"--configuration=" + configuration,
	}
	return append(args, buildsys.PropertyArgs("-p:", proj.Properties)...)
}
