//go:build unix

package command

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/oneconcern/releaser/pkg/errors"
)

// inProcessGroup starts cmd in a process group of its own, killed as a whole on cancellation
func inProcessGroup(cmd *exec.Cmd, onKillError func(error)) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if err == nil || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		onKillError(err)
		if e := cmd.Process.Kill(); e != nil && !errors.Is(e, os.ErrProcessDone) {
			return e
		}
		return nil
	}
}
