package buildsys

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoProject reports that Discover found no project file.
var ErrNoProject = errors.New("no project file found")

// ProjectPatterns are the project definition files Discover looks for.
var ProjectPatterns = []string{
	"**/*.{csproj,fsproj}",
	"**/build.gradle{,.kts}",
}

var skipDirs = map[string]bool{
	"bin": true, "obj": true, "build": true, "node_modules": true, ".git": true, ".gradle": true,
}

// Discover returns the project files below root, shallowest first.
func Discover(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var found []string
	for _, pattern := range ProjectPatterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || skipped(m) {
				continue
			}
			seen[m] = true
			found = append(found, m)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoProject)
	}
	sort.Slice(found, func(i, j int) bool {
		di, dj := strings.Count(found[i], "/"), strings.Count(found[j], "/")
		if di != dj {
			return di < dj
		}
		return found[i] < found[j]
	})
	for i, m := range found {
		found[i] = filepath.Join(root, filepath.FromSlash(m))
	}
	return found, nil
}

func skipped(rel string) bool {
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if skipDirs[path.Base(dir)] {
			return true
		}
	}
	return false
}
