package buildsys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goplus/uitest/pkgs/tool"
	"github.com/goplus/uitest/pkgs/tool/tooltest"
)

// fakeStrategy applies to files with ext and records builds.
type fakeStrategy struct {
	name    string
	ext     string
	builds  []string
	configs []string
	resp    *tool.Result
	err     error
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Applies(proj *Project) bool { return HasExt(proj.Path, f.ext) }

func (f *fakeStrategy) Build(ctx context.Context, r tool.Runner, proj *Project, configuration string) (*tool.Result, error) {
	f.builds = append(f.builds, proj.Path)
	f.configs = append(f.configs, configuration)
	if f.err != nil {
		return f.resp, f.err
	}
	return r.Run(ctx, tool.Command{Name: f.name, Args: []string{proj.Path, proj.OutputDir}})
}

func writeProject(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDispatchSelectsFirstApplicable(t *testing.T) {
	a := &fakeStrategy{name: "a", ext: ".aproj"}
	b := &fakeStrategy{name: "b", ext: ".bproj"}
	b2 := &fakeStrategy{name: "b2", ext: ".bproj"}
	reg := NewRegistry(a, b, b2)

	run := tooltest.New()
	run.Respond(tooltest.Response{}, "b")

	path := writeProject(t, "app.bproj", "")
	out := filepath.Join(t.TempDir(), "out")
	res, err := reg.Dispatch(context.Background(), run, Project{Path: path, OutputDir: out}, "")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Strategy != "b" {
		t.Fatalf("Strategy = %q, want %q", res.Strategy, "b")
	}
	if len(a.builds) != 0 || len(b2.builds) != 0 {
		t.Fatalf("other strategies invoked: a=%v b2=%v", a.builds, b2.builds)
	}
	if !slices.Equal(b.configs, []string{DefaultConfiguration}) {
		t.Fatalf("configuration = %q, want default %q", b.configs, DefaultConfiguration)
	}
	if res.OutputDir != out {
		t.Fatalf("OutputDir = %q, want %q", res.OutputDir, out)
	}
}

func TestDispatchKeepsExplicitConfiguration(t *testing.T) {
	a := &fakeStrategy{name: "a", ext: ".aproj"}
	run := tooltest.New()
	run.Respond(tooltest.Response{}, "a")

	path := writeProject(t, "app.aproj", "")
	res, err := NewRegistry(a).Dispatch(context.Background(), run, Project{Path: path}, "Debug")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Configuration != "Debug" || a.configs[0] != "Debug" {
		t.Fatalf("configuration = %q/%q, want Debug", res.Configuration, a.configs[0])
	}
	if want := filepath.Join(filepath.Dir(path), "bin"); res.OutputDir != want {
		t.Fatalf("OutputDir = %q, want %q", res.OutputDir, want)
	}
}

func TestDispatchUnsupported(t *testing.T) {
	a := &fakeStrategy{name: "a", ext: ".aproj"}
	run := tooltest.New()

	path := writeProject(t, "app.xyz", "")
	_, err := NewRegistry(a).Dispatch(context.Background(), run, Project{Path: path}, "")
	if !errors.Is(err, ErrUnsupportedProjectFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedProjectFormat", err)
	}
	if calls := run.Calls(); len(calls) != 0 {
		t.Fatalf("external invocations = %v, want none", run.Commands())
	}
}

func TestDispatchMissingProject(t *testing.T) {
	_, err := NewRegistry().Dispatch(context.Background(), tooltest.New(), Project{Path: filepath.Join(t.TempDir(), "none.csproj")}, "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDispatchBuildFailed(t *testing.T) {
	a := &fakeStrategy{name: "a", ext: ".aproj"}
	run := tooltest.New()
	run.Respond(tooltest.Response{Stdout: []string{"error CS1002: ; expected"}, Stderr: []string{"fatal"}, Code: 1}, "a")

	path := writeProject(t, "app.aproj", "")
	_, err := NewRegistry(a).Dispatch(context.Background(), run, Project{Path: path}, "")
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v, want *BuildError", err)
	}
	if !errors.Is(err, ErrBuildFailed) {
		t.Fatalf("err = %v, want ErrBuildFailed", err)
	}
	want := []string{"error CS1002: ; expected", "fatal"}
	if !slices.Equal(be.Output, want) {
		t.Fatalf("Output = %q, want %q", be.Output, want)
	}
	if len(run.Calls()) != 1 {
		t.Fatalf("build retried: %v", run.Commands())
	}
}

func TestDispatchCancelled(t *testing.T) {
	a := &fakeStrategy{name: "a", ext: ".aproj"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeProject(t, "app.aproj", "")
	_, err := NewRegistry(a).Dispatch(ctx, tooltest.New(), Project{Path: path}, "")
	if !errors.Is(err, tool.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	var be *BuildError
	if errors.As(err, &be) {
		t.Fatal("cancellation reported as build failure")
	}
}

func TestParseMSBuild(t *testing.T) {
	sdk := writeProject(t, "sdk.csproj", `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup><TargetFrameworks>net8.0-android;net8.0-ios</TargetFrameworks></PropertyGroup>
</Project>`)
	legacy := writeProject(t, "legacy.csproj", `<?xml version="1.0" encoding="utf-8"?>
<Project ToolsVersion="15.0" xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup><AndroidApplication>True</AndroidApplication></PropertyGroup>
  <Import Project="$(MSBuildExtensionsPath)\Xamarin\Android\Xamarin.Android.CSharp.targets" />
</Project>`)

	f, err := ParseMSBuild(sdk)
	if err != nil {
		t.Fatalf("ParseMSBuild(sdk): %v", err)
	}
	if !f.IsSDK() || !f.IsAndroid() {
		t.Fatalf("sdk project: IsSDK=%v IsAndroid=%v", f.IsSDK(), f.IsAndroid())
	}

	f, err = ParseMSBuild(legacy)
	if err != nil {
		t.Fatalf("ParseMSBuild(legacy): %v", err)
	}
	if f.IsSDK() || !f.IsAndroid() || f.ToolsVersion != "15.0" {
		t.Fatalf("legacy project: IsSDK=%v IsAndroid=%v ToolsVersion=%q", f.IsSDK(), f.IsAndroid(), f.ToolsVersion)
	}
}

func TestPropertyArgsSorted(t *testing.T) {
	got := PropertyArgs("-p:", map[string]string{"b": "2", "a": "1"})
	want := []string{"-p:a=1", "-p:b=2"}
	if !slices.Equal(got, want) {
		t.Fatalf("PropertyArgs = %q, want %q", got, want)
	}
	if PropertyArgs("-p:", nil) != nil {
		t.Fatal("PropertyArgs(nil) should be nil")
	}
}
