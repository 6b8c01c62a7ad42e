package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultGracePeriod bounds how long a cancelled invocation may take to
// release its output pipes after the process group was killed.
const DefaultGracePeriod = 5 * time.Second

// Exec runs commands as local processes.
type Exec struct {
	grace    time.Duration
	lookPath func(file string) (string, error)
}

var _ Runner = (*Exec)(nil)

// ExecOption configures Exec.
type ExecOption func(*Exec)

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) ExecOption {
	return func(e *Exec) {
		e.grace = d
	}
}

// WithLookPath replaces exec.LookPath for resolving binaries.
func WithLookPath(fn func(file string) (string, error)) ExecOption {
	return func(e *Exec) {
		e.lookPath = fn
	}
}

// NewExec creates a Runner backed by os/exec.
func NewExec(opts ...ExecOption) *Exec {
	e := &Exec{grace: DefaultGracePeriod, lookPath: exec.LookPath}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exec) command(ctx context.Context, c Command) (*exec.Cmd, error) {
	bin, err := e.lookPath(c.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrToolNotInstalled)
	}
	cmd := exec.CommandContext(ctx, bin, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
		if c.Dir != "" {
			// Let os/exec derive PWD from Dir.
			cmd.Env = slices.DeleteFunc(cmd.Env, func(kv string) bool {
				return strings.HasPrefix(kv, "PWD=")
			})
		}
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	return cmd, nil
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrCancelled)
	}
	cmd, err := e.command(ctx, c)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var mu sync.Mutex
	stdout := &lineWriter{emit: func(line string) {
		if c.Stdout != nil {
			c.Stdout(line)
		}
		mu.Lock()
		res.Stdout = append(res.Stdout, line)
		mu.Unlock()
	}}
	stderr := &lineWriter{emit: func(line string) {
		if c.Stderr != nil {
			c.Stderr(line)
		}
		if c.Ignore != nil && c.Ignore(line) {
			return
		}
		mu.Lock()
		res.Stderr = append(res.Stderr, line)
		mu.Unlock()
	}}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Kill the whole process group so tools that fork (gradle daemons,
	// emulator wrappers) do not keep running after cancellation.
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}
	cmd.WaitDelay = e.grace

	err = cmd.Run()
	stdout.flush()
	stderr.flush()

	if ctx.Err() != nil {
		res.Code = -1
		return res, fmt.Errorf("%s: %w", c.Name, ErrCancelled)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, &ExitError{Command: c.String(), Code: res.Code, Stderr: res.Stderr}
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			return res, nil
		}
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}
	return res, nil
}

// Start implements Runner.
func (e *Exec) Start(ctx context.Context, c Command) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", c.Name, ErrCancelled)
	}
	// The child must outlive ctx, so it is not bound to it.
	cmd, err := e.command(context.Background(), c)
	if err != nil {
		return err
	}
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return cmd.Process.Release()
}

// lineWriter splits written bytes into lines.
type lineWriter struct {
	buf  bytes.Buffer
	emit func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(data[:i]), "\r")
		w.buf.Next(i + 1)
		w.emit(line)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		line := strings.TrimRight(w.buf.String(), "\r")
		w.buf.Reset()
		w.emit(line)
	}
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
