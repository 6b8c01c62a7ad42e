// Package env resolves per-user directories and SDK locations from the
// process environment.
package env

import (
	"os"
	"path/filepath"
	"runtime"
)

// WorkDir returns the per-user directory for uitest state (logs, caches).
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".uitest"), nil
}

// LogDir returns the directory log files are written to, creating it with
// 0700 permissions.
func LogDir() (string, error) {
	dir, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "logs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// AndroidHome returns the Android SDK root from ANDROID_HOME, falling back
// to ANDROID_SDK_ROOT. It is empty when neither is set.
func AndroidHome() string {
	if dir := os.Getenv("ANDROID_HOME"); dir != "" {
		return dir
	}
	return os.Getenv("ANDROID_SDK_ROOT")
}

// AndroidTool returns the path of an Android SDK tool below the SDK root,
// or the bare name so it is looked up in PATH when the SDK root is unknown
// or the tool is missing there.
func AndroidTool(elem ...string) string {
	name := elem[len(elem)-1]
	home := AndroidHome()
	if home == "" {
		return name
	}
	candidates := []string{name}
	if runtime.GOOS == "windows" {
		candidates = []string{name + ".exe", name + ".bat"}
	}
	dir := filepath.Join(append([]string{home}, elem[:len(elem)-1]...)...)
	for _, c := range candidates {
		p := filepath.Join(dir, c)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return name
}

// IsMac reports whether the process runs on macOS.
func IsMac() bool {
	return runtime.GOOS == "darwin"
}
