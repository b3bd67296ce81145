package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/portalwatch/internal/model"
)

var startDetection bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Recheck the active network now",
	Long:  "Ask the running daemon to probe the active network unless a check is already running or scheduled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Started bool `json:"started"`
		}
		if err := newAPIClient(cfg.WebPort).post("/api/detect", nil, &resp); err != nil {
			return err
		}
		if resp.Started {
			fmt.Println("Detection started")
		} else {
			fmt.Println("Detection already in progress, disabled, or no usable network")
		}
		return nil
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn portal detection on",
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap model.Snapshot
		body := map[string]bool{"start_detection": startDetection}
		if err := newAPIClient(cfg.WebPort).post("/api/enable", body, &snap); err != nil {
			return err
		}
		fmt.Printf("Detection enabled (%s)\n", snap.State)
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn portal detection off",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(cfg.WebPort).post("/api/disable", nil, nil); err != nil {
			return err
		}
		fmt.Println("Detection disabled")
		return nil
	},
}

func init() {
	enableCmd.Flags().BoolVar(&startDetection, "now", true,
		"Probe the active network right away")
}
