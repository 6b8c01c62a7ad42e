// Package probe classifies a build output directory by the artifact it
// contains.
package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/platform"
)

const (
	// AndroidPackageExt is the Android package extension.
	AndroidPackageExt = ".apk"
	// SignedSuffix marks the signed Android package among the build outputs.
	SignedSuffix = "-Signed.apk"
	// BundleExt is the iOS application bundle extension.
	BundleExt = ".app"
)

var (
	// ErrArtifactNotFound is matched by *NotFoundError.
	ErrArtifactNotFound = errors.New("could not locate an iOS .app bundle or a signed Android .apk")

	// ErrAmbiguousArtifact reports that both an Android and an iOS artifact
	// were found.
	ErrAmbiguousArtifact = errors.New("output directory contains both Android and iOS artifacts")
)

// Artifact is the build output identifying the target platform.
type Artifact struct {
	Platform platform.Platform
	Path     string
}

// NotFoundError lists everything that was scanned when no artifact matched.
type NotFoundError struct {
	Dir     string
	Entries []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v (%d entries scanned)", e.Dir, ErrArtifactNotFound, len(e.Entries))
}

func (e *NotFoundError) Unwrap() error {
	return ErrArtifactNotFound
}

// Detect scans the immediate children of dir. A file named *-Signed.apk
// selects Android and a directory named *.app selects iOS; when both or
// neither are present Detect fails rather than guessing.
func Detect(dir string) (*Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("could not locate the bin directory: %w", err)
	}

	var apks, bundles []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case !e.IsDir() && strings.EqualFold(filepath.Ext(name), AndroidPackageExt) && strings.HasSuffix(name, SignedSuffix):
			apks = append(apks, filepath.Join(abs, name))
		case e.IsDir() && strings.HasSuffix(name, BundleExt):
			bundles = append(bundles, filepath.Join(abs, name))
		}
	}

	switch {
	case len(apks) > 0 && len(bundles) > 0:
		logging.Warn("ambiguous build output", "apk", apks[0], "app", bundles[0])
		return nil, fmt.Errorf("%s: %w", abs, ErrAmbiguousArtifact)
	case len(apks) > 0:
		return &Artifact{Platform: platform.Android, Path: apks[0]}, nil
	case len(bundles) > 0:
		return &Artifact{Platform: platform.IOS, Path: bundles[0]}, nil
	}

	scanned := listing(abs, entries)
	for _, p := range scanned {
		logging.Warn("scanned", "entry", p)
	}
	return nil, &NotFoundError{Dir: abs, Entries: scanned}
}

// listing returns directories first, then files, each as full paths.
func listing(dir string, entries []os.DirEntry) []string {
	var dirs, files []string
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			dirs = append(dirs, p)
		} else {
			files = append(files, p)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	return append(dirs, files...)
}
