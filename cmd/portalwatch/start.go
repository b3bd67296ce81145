package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/portalwatch/internal/daemon"
)

var foreground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the portalwatch daemon",
	Long:  "Start the portalwatch daemon in the background to watch for captive portals.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"Run in foreground instead of daemonizing")
}

func runStart(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)
	if running {
		fmt.Printf("Daemon is already running (PID %d)\n", pid)
		return nil
	}

	if foreground {
		return runForeground()
	}

	return runDaemon()
}

func runForeground() error {
	fmt.Println("Starting portalwatch in foreground mode...")

	d := daemon.New(cfg)
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if cfg.WebPort > 0 {
		fmt.Printf("API: http://localhost:%d/api/status\n", cfg.WebPort)
	}
	fmt.Println("PortalWatch daemon started. Press Ctrl+C to stop.")

	d.Wait()
	return d.Stop()
}

// daemonArgs are the arguments the background process is started with.
func daemonArgs() []string {
	args := []string{"start", "--foreground"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	return args
}

func runDaemon() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	pid, err := spawnDetached(executable, daemonArgs(), logFile)
	if err != nil {
		return err
	}

	fmt.Printf("PortalWatch daemon started (PID %d)\n", pid)
	fmt.Printf("Logs: %s\n", cfg.LogFile)
	return nil
}
