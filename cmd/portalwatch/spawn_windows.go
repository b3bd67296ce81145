//go:build windows

package main

import (
	"fmt"
	"os"
	"os/exec"
)

// spawnDetached starts executable in the background with output going to
// logFile.
func spawnDetached(executable string, args []string, logFile *os.File) (int, error) {
	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	return cmd.Process.Pid, nil
}
