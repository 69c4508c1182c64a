//go:build windows

package streaming

import (
	"fmt"
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on Windows; terminateGroup falls back to
// killing the single process instead of a process group.
func setProcessGroup(cmd *exec.Cmd) {}

func terminateGroup(pid int) error {
	return killGroup(pid)
}

func killGroup(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

// pauseGroup/resumeGroup have no Windows analogue to POSIX stop/continue;
// per spec.md §4.4, pause on platforms lacking stop/continue is implemented
// by termination plus a flag preventing auto-resume, handled one layer up
// in Delegate.Pause.
func pauseGroup(pid int) error {
	return fmt.Errorf("streaming: stop/continue is not supported on this platform")
}

func resumeGroup(pid int) error {
	return fmt.Errorf("streaming: stop/continue is not supported on this platform")
}

const supportsStopContinue = false
