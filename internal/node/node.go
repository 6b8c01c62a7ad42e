// Package node installs global npm packages and checks the node runtime.
package node

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/pkgs/tool"
)

// MinVersion is the oldest node release the automation server supports.
const MinVersion = "v14.0.0"

// macWarning is printed by some packages' install scripts on macOS and
// does not indicate a failure.
const macWarning = "did not detect a Windows system"

var (
	ErrBadVersion = errors.New("unrecognized node version")
	ErrTooOld     = errors.New("node version too old")
)

// InstallError reports stderr output of a failed npm install.
type InstallError struct {
	Package string
	Stderr  []string
	Err     error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("npm install -g %s failed", e.Package)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, "\n")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InstallError) Unwrap() error { return e.Err }

// Client runs node and npm.
type Client struct {
	run tool.Runner
	npm string
}

// New creates a client invoking node and npm through r.
func New(r tool.Runner) *Client {
	npm := "npm"
	if runtime.GOOS == "windows" {
		npm = "npm.cmd"
	}
	return &Client{run: r, npm: npm}
}

// Version returns the installed node version, for example "v18.16.0",
// and fails if it is older than MinVersion.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := tool.Output(ctx, c.run, tool.Command{Name: "node", Args: []string{"-v"}})
	if err != nil {
		return "", fmt.Errorf("node -v: %w", err)
	}
	v := strings.TrimSpace(out)
	if !strings.HasPrefix(v, "v") || !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrBadVersion, v)
	}
	if semver.Compare(v, MinVersion) < 0 {
		return v, fmt.Errorf("%w: %s < %s", ErrTooOld, v, MinVersion)
	}
	return v, nil
}

// Benign reports whether an npm stderr line carries no failure.
func Benign(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.Contains(line, macWarning)
}

// InstallGlobal runs npm install -g pkg. It succeeds only when npm exits
// cleanly and prints nothing but benign lines on stderr.
func (c *Client) InstallGlobal(ctx context.Context, pkg string) error {
	logging.Info("installing npm package", "package", pkg)
	res, err := c.run.Run(ctx, tool.Command{
		Name:   c.npm,
		Args:   []string{"install", "-g", pkg},
		Stdout: func(line string) { logging.Debug(line, "tool", "npm") },
		Ignore: Benign,
	})
	if errors.Is(err, tool.ErrCancelled) || errors.Is(err, tool.ErrToolNotInstalled) {
		return err
	}
	var stderr []string
	if res != nil {
		stderr = res.Stderr
	}
	if err != nil || len(stderr) > 0 {
		return &InstallError{Package: pkg, Stderr: stderr, Err: err}
	}
	return nil
}
