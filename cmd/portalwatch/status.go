package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/user/portalwatch/internal/daemon"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Show whether the daemon is running and what it knows about the active network.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86"))

	runningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	stoppedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		Bold(true)

	running, pid := daemon.CheckRunning(cfg.DataDir)

	fmt.Println(titleStyle.Render("PortalWatch Status"))
	fmt.Println()

	fmt.Print(labelStyle.Render("Daemon: "))
	if running {
		fmt.Println(runningStyle.Render(fmt.Sprintf("Running (PID %d)", pid)))
	} else {
		fmt.Println(stoppedStyle.Render("Stopped"))
		return nil
	}

	var snap model.Snapshot
	if err := newAPIClient(cfg.WebPort).get("/api/status", &snap); err != nil {
		return err
	}

	network := string(snap.ActiveNetwork)
	if snap.ActiveNetwork == model.NoNetwork {
		network = "none"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Detection: ", tui.RenderEnabled(snap.Enabled)},
		{"Network: ", valueStyle.Render(network)},
		{"Link usable: ", valueStyle.Render(fmt.Sprintf("%v", snap.Usable))},
		{"Status: ", tui.RenderStatus(snap.State)},
		{"Phase: ", valueStyle.Render(snap.Phase)},
		{"Context: ", valueStyle.Render(snap.Context.String())},
		{"Attempts: ", valueStyle.Render(fmt.Sprintf("%d", snap.Attempts))},
	}
	for _, r := range rows {
		fmt.Print(labelStyle.Render(r.label))
		fmt.Println(r.value)
	}

	return nil
}
