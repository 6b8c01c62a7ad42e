// Package gradle builds native Android projects with Gradle.
package gradle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/buildsys"
	"github.com/goplus/uitest/pkgs/tool"
)

// Gradle drives `assemble<Configuration>` and collects the produced APKs.
type Gradle struct{}

var _ buildsys.Strategy = (*Gradle)(nil)

// New creates the Gradle strategy.
func New() *Gradle {
	return &Gradle{}
}

func (g *Gradle) Name() string { return "gradle" }

// Applies reports whether proj is a Gradle build script.
func (g *Gradle) Applies(proj *buildsys.Project) bool {
	base := filepath.Base(proj.Path)
	return base == "build.gradle" || base == "build.gradle.kts"
}

// Build assembles the project and copies the APKs of the built variant
// into OutputDir. Signed packages are renamed <name>-Signed.apk.
func (g *Gradle) Build(ctx context.Context, r tool.Runner, proj *buildsys.Project, configuration string) (*tool.Result, error) {
	dir := filepath.Dir(proj.Path)
	args := append([]string{"assemble" + capitalize(configuration)}, buildsys.PropertyArgs("-P", proj.Properties)...)
	res, err := r.Run(ctx, tool.Command{
		Name:   wrapper(dir),
		Args:   args,
		Dir:    dir,
		Stdout: func(line string) { logging.Debug(line, "tool", "gradle") },
	})
	if err != nil {
		return res, err
	}
	if err := collect(filepath.Join(dir, "build", "outputs", "apk"), configuration, proj.OutputDir); err != nil {
		return res, err
	}
	return res, nil
}

// wrapper returns the Gradle wrapper of the project (searching up to the
// settings root), falling back to gradle in PATH.
func wrapper(dir string) string {
	name := "gradlew"
	if runtime.GOOS == "windows" {
		name = "gradlew.bat"
	}
	for d, i := dir, 0; i < 4; d, i = filepath.Dir(d), i+1 {
		p := filepath.Join(d, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		if d == filepath.Dir(d) {
			break
		}
	}
	return "gradle"
}

// collect copies the APKs Gradle placed in a build type directory named
// after configuration (apk/<type>/ or apk/<flavor>/<type>/). APKs of other
// variants are left from earlier builds and are skipped.
func collect(apkDir, configuration, outputDir string) error {
	all, err := doublestar.Glob(os.DirFS(apkDir), "**/*.apk", doublestar.WithFilesOnly())
	if err != nil {
		return err
	}
	buildType := strings.ToLower(configuration)
	var matches []string
	for _, m := range all {
		if strings.ToLower(path.Base(path.Dir(m))) == buildType {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return fmt.Errorf("gradle: no %s apk produced below %s", buildType, apkDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, m := range matches {
		src := filepath.Join(apkDir, filepath.FromSlash(m))
		if err := copyFile(src, filepath.Join(outputDir, outputName(filepath.Base(m)))); err != nil {
			return err
		}
	}
	return nil
}

// outputName maps a Gradle APK name to the name placed in the output dir.
func outputName(name string) string {
	stem := strings.TrimSuffix(name, ".apk")
	if strings.HasSuffix(stem, "-unsigned") || strings.HasSuffix(stem, "-Signed") {
		return name
	}
	return stem + "-Signed.apk"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
