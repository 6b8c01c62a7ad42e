// Package tool runs external command-line tools and captures their output
// line by line.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCancelled reports that a tool invocation was aborted through its context.
	ErrCancelled = errors.New("cancelled")

	// ErrToolNotInstalled reports that the tool binary could not be located.
	ErrToolNotInstalled = errors.New("tool not installed")
)

// Command describes a single tool invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   map[string]string
	Stdin string

	// Stdout and Stderr, when set, receive every line as soon as it is read.
	Stdout func(line string)
	Stderr func(line string)

	// Ignore drops matching stderr lines from the captured Result.
	Ignore func(line string) bool
}

// String returns the command line as it would be typed in a shell.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished invocation.
type Result struct {
	Code   int
	Stdout []string
	Stderr []string
}

// Output returns the captured stdout joined by newlines.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Stdout, "\n")
}

// ExitError is returned when a tool exits with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  []string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(strings.Join(e.Stderr, "\n"))
	if msg == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, msg)
}

// Runner executes tool commands.
type Runner interface {
	// Run starts cmd and waits for it to exit. A non-zero exit status is
	// reported as *ExitError together with the captured Result.
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Start launches cmd detached from the caller and returns once the
	// process is running. The process is not killed when ctx ends.
	Start(ctx context.Context, cmd Command) error
}

// Output runs cmd and returns its stdout, turning failures into errors.
func Output(ctx context.Context, r Runner, cmd Command) (string, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	return res.Output(), nil
}
