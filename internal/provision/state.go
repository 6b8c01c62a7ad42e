package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/uitest/pkgs/tool"
)

// State is a provisioning state.
type State int

const (
	PlatformSelected State = iota
	ToolingReady
	DeviceAvailable
	DeviceReady
	Failed
)

var stateNames = [...]string{
	PlatformSelected: "platform-selected",
	ToolingReady:     "tooling-ready",
	DeviceAvailable:  "device-available",
	DeviceReady:      "device-ready",
	Failed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == DeviceReady || s == Failed
}

// Observer is notified of every state entered, with a short detail.
type Observer func(state State, detail string)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDeviceTimeout       = errors.New("timed out waiting for device")
)

// StepError reports the step that failed and the tool's message.
type StepError struct {
	Step   string
	Detail string
	Err    error
}

func (e *StepError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("provisioning failed at %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("provisioning failed at %s: %s", e.Step, e.Detail)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepError(step string, err error) *StepError {
	detail := err.Error()
	var exitErr *tool.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		detail = strings.Join(exitErr.Stderr, "\n")
	}
	return &StepError{Step: step, Detail: detail, Err: err}
}
