//go:build windows
// +build windows

package runner

import (
	"os/exec"
	"strconv"
	"syscall"
)

func ConfigureAsProcessGroup() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// mp4dash is a python wrapper around the bento4 binaries, so the whole tree has to go.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	kill := exec.Command("TASKKILL", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	return kill.Run()
}
