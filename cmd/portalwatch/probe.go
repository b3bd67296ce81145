package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/portalwatch/internal/daemon"
	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/netstate"
	"github.com/user/portalwatch/internal/tui"
)

var (
	probeInterface string
	probeTimeout   time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run a single portal probe",
	Long: `Probe the configured URL once and print how the answer is classified.

Without --interface the active network is picked the same way the daemon
picks it.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeInterface, "interface", "i", "",
		"Interface to bind the probe to")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second,
		"Probe timeout")
}

func runProbe(cmd *cobra.Command, args []string) error {
	network := model.NetworkIdentity(probeInterface)
	if network == model.NoNetwork {
		active, err := activeNetwork()
		if err != nil {
			return err
		}
		network = active
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()

	probeCfg := *cfg
	if probeInterface != "" {
		probeCfg.BindInterface = true
	}
	prober := daemon.NewProber(&probeCfg)
	fmt.Printf("Probing %s via %s...\n", prober.URL(), displayNetwork(network, probeCfg.BindInterface))

	start := time.Now()
	res := prober.Probe(ctx, network)
	elapsed := time.Since(start).Round(time.Millisecond)

	if res.Err != nil {
		fmt.Printf("Transport failure after %s: %v\n", elapsed, res.Err)
	} else {
		fmt.Printf("HTTP %d in %s (content matched: %v)\n", res.ResponseCode, elapsed, res.ContentMatched)
	}
	fmt.Println(tui.RenderStatus(detector.Interpret(res)))
	return nil
}

func activeNetwork() (model.NetworkIdentity, error) {
	var active model.NetworkIdentity
	var usable bool
	p := netstate.NewPoller(nil, time.Second, listenerFunc(func(network model.NetworkIdentity, up bool) {
		active, usable = network, up
	}))
	p.Poll()

	if active == model.NoNetwork {
		return model.NoNetwork, fmt.Errorf("no active network")
	}
	if !usable {
		fmt.Printf("Warning: %s has no routable address yet\n", active)
	}
	return active, nil
}

func displayNetwork(network model.NetworkIdentity, bound bool) string {
	if name := netstate.InterfaceName(network); name != "" && bound {
		return name
	}
	return "default route"
}

// listenerFunc adapts a function to netstate.Listener, ignoring list changes.
type listenerFunc func(model.NetworkIdentity, bool)

func (f listenerFunc) ActiveNetworkChanged(network model.NetworkIdentity, usable bool) {
	f(network, usable)
}

func (f listenerFunc) NetworkListChanged([]model.NetworkIdentity) {}
