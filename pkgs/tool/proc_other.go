//go:build !unix

package tool

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func detach(cmd *exec.Cmd) {}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}
