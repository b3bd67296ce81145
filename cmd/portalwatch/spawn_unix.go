//go:build !windows

package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/user/portalwatch/internal/util"
)

// spawnDetached starts executable in a new session with output going to
// logFile.
func spawnDetached(executable string, args []string, logFile *os.File) (int, error) {
	procAttr := &os.ProcAttr{
		Dir:   "/",
		Env:   os.Environ(),
		Files: []*os.File{nil, logFile, logFile},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	proc, err := os.StartProcess(executable, append([]string{executable}, args...), procAttr)
	if err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := proc.Pid
	if err := proc.Release(); err != nil {
		util.Warn("Failed to release process: %v", err)
	}
	return pid, nil
}
