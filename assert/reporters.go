package assert

import (
	"fmt"
	"io"
	"os"

	"github.com/stretchr/testify/require"
)

type testingReporter struct{}

func (testingReporter) Name() string { return "testing" }

func (testingReporter) Fail(msg string) {
	tb := boundTB()
	if tb == nil {
		panic(fmt.Errorf("%w: testing reporter has no bound test", ErrBridgeCorrupt))
	}
	tb.Helper()
	require.FailNow(tb, msg)
}

// Attach and WriteLine are best effort and drop output with no bound test.

func (testingReporter) Attach(path, description string) {
	if tb := boundTB(); tb != nil {
		tb.Logf("attachment %s: %s", path, description)
	}
}

func (testingReporter) WriteLine(msg string) {
	if tb := boundTB(); tb != nil {
		tb.Log(msg)
	}
}

type console struct {
	w io.Writer
}

func newConsole() Reporter {
	return console{w: os.Stdout}
}

func (console) Name() string { return "console" }

func (console) Fail(msg string) {
	panic(&Failure{Message: msg})
}

func (console) Attach(string, string) {}

func (c console) WriteLine(msg string) {
	fmt.Fprintln(c.w, msg)
}
