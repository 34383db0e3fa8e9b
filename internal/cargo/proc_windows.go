//go:build windows

package cargo

import (
	"os/exec"
	"strconv"
)

// setProcessGroup is a no-op on Windows; termination goes through
// taskkill's tree kill instead
func setProcessGroup(cmd *exec.Cmd) {}

// killGroup terminates the child and its descendants
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
