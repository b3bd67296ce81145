package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/portalwatch/internal/daemon"
	"github.com/user/portalwatch/internal/tui"
	"github.com/user/portalwatch/internal/util"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Run portal detection in-process and show it in an interactive terminal
dashboard.

The dashboard shows:
- The active network and its portal status
- Detection phase, retry context and attempt count
- Every network seen so far

Keys: 'r' recheck, 'e' enable/disable, 's' session, 'x' error screen, 'q' quit.`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	// The dashboard owns the terminal
	util.InitFileLogger(cfg.LogLevel, cfg.LogFile)

	uiCfg := *cfg
	uiCfg.WebPort = 0

	d := daemon.New(&uiCfg, daemon.Embedded())
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start detection: %w", err)
	}
	defer d.Stop()

	return tui.NewApp(d.Facade().Get()).Run()
}
