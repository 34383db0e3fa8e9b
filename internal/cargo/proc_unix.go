//go:build !windows

package cargo

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup places the child in a fresh process group so the
// whole cargo/rustc tree can be killed atomically
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killGroup signals the child's process group. Falls back to killing
// just the child when the group is already gone.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Kill()
	}
	err = unix.Kill(-pgid, unix.SIGKILL)
	if err == unix.ESRCH {
		return nil
	}
	return err
}
