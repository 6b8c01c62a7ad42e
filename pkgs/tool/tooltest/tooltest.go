// Package tooltest provides a scriptable tool.Runner for tests.
package tooltest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/goplus/uitest/pkgs/tool"
)

// Response is what a faked invocation produces.
type Response struct {
	Stdout []string
	Stderr []string
	Code   int
	Err    error
}

// Handler computes the response for a command. It may block on ctx to
// simulate long-running tools.
type Handler func(ctx context.Context, cmd tool.Command) Response

// Call records one invocation.
type Call struct {
	Command  tool.Command
	Detached bool
}

type route struct {
	name   string
	prefix []string
	h      Handler
}

// Runner is a fake tool.Runner that answers from registered handlers.
// Unmatched commands fail.
type Runner struct {
	mu     sync.Mutex
	routes []route
	calls  []Call
}

var _ tool.Runner = (*Runner)(nil)

// New creates an empty fake runner.
func New() *Runner {
	return &Runner{}
}

// Handle registers h for commands named name whose arguments start with
// prefix. The longest matching prefix wins; later registrations win ties.
func (r *Runner) Handle(h Handler, name string, prefix ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{name: name, prefix: prefix, h: h})
}

// Respond registers a fixed response.
func (r *Runner) Respond(resp Response, name string, prefix ...string) {
	r.Handle(func(context.Context, tool.Command) Response { return resp }, name, prefix...)
}

// Lines registers a successful response printing lines to stdout.
func (r *Runner) Lines(name string, prefix []string, lines ...string) {
	r.Respond(Response{Stdout: lines}, name, prefix...)
}

func (r *Runner) lookup(cmd tool.Command) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *route
	for i := range r.routes {
		rt := &r.routes[i]
		if rt.name != cmd.Name || len(rt.prefix) > len(cmd.Args) {
			continue
		}
		if !slices.Equal(rt.prefix, cmd.Args[:len(rt.prefix)]) {
			continue
		}
		if best == nil || len(rt.prefix) >= len(best.prefix) {
			best = rt
		}
	}
	if best == nil {
		return nil
	}
	return best.h
}

func (r *Runner) record(cmd tool.Command, detached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Command: cmd, Detached: detached})
}

// Run implements tool.Runner.
func (r *Runner) Run(ctx context.Context, cmd tool.Command) (*tool.Result, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name, tool.ErrCancelled)
	}
	r.record(cmd, false)
	h := r.lookup(cmd)
	if h == nil {
		return nil, fmt.Errorf("tooltest: unexpected command %q", cmd.String())
	}
	resp := h(ctx, cmd)
	if ctx.Err() != nil {
		return &tool.Result{Code: -1}, fmt.Errorf("%s: %w", cmd.Name, tool.ErrCancelled)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	res := &tool.Result{Code: resp.Code}
	for _, line := range resp.Stdout {
		if cmd.Stdout != nil {
			cmd.Stdout(line)
		}
		res.Stdout = append(res.Stdout, line)
	}
	for _, line := range resp.Stderr {
		if cmd.Stderr != nil {
			cmd.Stderr(line)
		}
		if cmd.Ignore != nil && cmd.Ignore(line) {
			continue
		}
		res.Stderr = append(res.Stderr, line)
	}
	if resp.Code != 0 {
		return res, &tool.ExitError{Command: cmd.String(), Code: resp.Code, Stderr: res.Stderr}
	}
	return res, nil
}

// Start implements tool.Runner. The handler's error, if any, is returned.
func (r *Runner) Start(ctx context.Context, cmd tool.Command) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", cmd.Name, tool.ErrCancelled)
	}
	r.record(cmd, true)
	h := r.lookup(cmd)
	if h == nil {
		return fmt.Errorf("tooltest: unexpected command %q", cmd.String())
	}
	return h(ctx, cmd).Err
}

// Calls returns the recorded invocations in order.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Commands returns the recorded command lines in order.
func (r *Runner) Commands() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Command.String()
	}
	return out
}

// Called reports whether any recorded command line equals line.
func (r *Runner) Called(line string) bool {
	return slices.Contains(r.Commands(), line)
}
