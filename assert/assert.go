// Package assert reports test failures through whichever test framework
// hosts the process.
//
// The reporter is resolved on first use and cached until Reset. Inside a
// go test binary failures go to the testing.TB installed with Bind;
// elsewhere they panic with a *Failure.
package assert

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// ErrBridgeCorrupt reports a resolved reporter that cannot deliver a
// failure, such as the testing reporter with no bound test.
var ErrBridgeCorrupt = errors.New("assertion bridge corrupt")

// Reporter is the framework-neutral assertion contract.
type Reporter interface {
	Name() string
	// Fail reports a failure and stops the current test.
	Fail(msg string)
	// Attach records a file produced by the test, such as a screenshot.
	Attach(path, description string)
	// WriteLine writes a diagnostic line to the test output.
	WriteLine(msg string)
}

// Failure is the panic value of the console reporter.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return "assertion failed: " + f.Message
}

type variant struct {
	name    string
	present func() bool
	build   func() Reporter
}

// variants in priority order; the last one is always present.
var variants = []variant{
	{name: "testing", present: testing.Testing, build: func() Reporter { return testingReporter{} }},
	{name: "console", present: func() bool { return true }, build: newConsole},
}

var (
	mu     sync.Mutex
	active Reporter
	bound  testing.TB
)

// Current returns the resolved reporter, resolving it on first use.
func Current() Reporter {
	mu.Lock()
	defer mu.Unlock()
	if active == nil {
		active = resolve()
	}
	return active
}

func resolve() Reporter {
	for _, v := range variants {
		if v.present() {
			return v.build()
		}
	}
	panic(fmt.Errorf("%w: no reporter available", ErrBridgeCorrupt))
}

// Reset drops the cached reporter and any bound test.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	active = nil
	bound = nil
}

// Bind routes failures of the testing reporter to tb until tb finishes.
func Bind(tb testing.TB) {
	mu.Lock()
	bound = tb
	mu.Unlock()
	tb.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		if bound == tb {
			bound = nil
		}
	})
}

func boundTB() testing.TB {
	mu.Lock()
	defer mu.Unlock()
	return bound
}

// Fail reports msg through the current reporter.
func Fail(msg string) {
	Current().Fail(msg)
}

// Failf formats and reports a failure.
func Failf(format string, args ...any) {
	Current().Fail(fmt.Sprintf(format, args...))
}

// Attach records a test artifact.
func Attach(path, description string) {
	Current().Attach(path, description)
}

// WriteLine writes a diagnostic line.
func WriteLine(msg string) {
	Current().WriteLine(msg)
}
