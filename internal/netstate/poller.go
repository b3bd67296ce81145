// Package netstate reports the host's active network by polling its
// interfaces.
package netstate

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/util"
)

// Listener receives network-state changes.
type Listener interface {
	ActiveNetworkChanged(network model.NetworkIdentity, usable bool)
	NetworkListChanged(visible []model.NetworkIdentity)
}

// Interface is the subset of an OS interface the poller looks at.
type Interface struct {
	Name         string
	HardwareAddr string
	Up           bool
	Running      bool
	Loopback     bool
	// GlobalUnicast is set when the interface holds a routable address.
	GlobalUnicast bool
}

// Source lists the host's interfaces.
type Source func() ([]Interface, error)

// SystemInterfaces reads interfaces from the OS.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ifc := range ifaces {
		info := Interface{
			Name:         ifc.Name,
			HardwareAddr: ifc.HardwareAddr.String(),
			Up:           ifc.Flags&net.FlagUp != 0,
			Running:      ifc.Flags&net.FlagRunning != 0,
			Loopback:     ifc.Flags&net.FlagLoopback != 0,
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			util.Debug("Failed to read addresses of %s: %v", ifc.Name, err)
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
				info.GlobalUnicast = true
				break
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// Identity builds the network identity of an interface.
func Identity(ifc Interface) model.NetworkIdentity {
	return model.NetworkIdentity(ifc.Name + "/" + ifc.HardwareAddr)
}

// InterfaceName extracts the interface name from an identity built by
// Identity. It is what the prober binds its socket to.
func InterfaceName(network model.NetworkIdentity) string {
	name, _, _ := strings.Cut(string(network), "/")
	return name
}

// Poller watches the interface list and reports changes to a Listener.
type Poller struct {
	source   Source
	interval time.Duration
	listener Listener

	mu      sync.Mutex
	primed  bool
	active  model.NetworkIdentity
	usable  bool
	visible []model.NetworkIdentity
}

// NewPoller creates a poller. A nil source reads the OS interfaces.
func NewPoller(source Source, interval time.Duration, listener Listener) *Poller {
	if source == nil {
		source = SystemInterfaces
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		source:   source,
		interval: interval,
		listener: listener,
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	util.Info("Network poller started (interval %s)", p.interval)

	p.Poll() // Run immediately
	for {
		select {
		case <-ctx.Done():
			util.Info("Network poller stopping")
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll reads the interfaces once and reports what changed since the last
// poll.
func (p *Poller) Poll() {
	ifaces, err := p.source()
	if err != nil {
		util.Warn("Network poll failed: %v", err)
		return
	}

	active, usable := selectActive(ifaces)
	visible := visibleNetworks(ifaces)

	p.mu.Lock()
	activeChanged := !p.primed || active != p.active || usable != p.usable
	listChanged := !p.primed || !equalIDs(visible, p.visible)
	p.primed = true
	p.active, p.usable, p.visible = active, usable, visible
	p.mu.Unlock()

	if listChanged {
		p.listener.NetworkListChanged(visible)
	}
	if activeChanged {
		util.Debug("Active network: %q (usable=%v)", active, usable)
		p.listener.ActiveNetworkChanged(active, usable)
	}
}

// selectActive picks the first up, non-loopback interface that is usable,
// falling back to the first one that is merely up. Interfaces are ordered by
// name so the choice is stable across polls.
func selectActive(ifaces []Interface) (model.NetworkIdentity, bool) {
	candidates := make([]Interface, 0, len(ifaces))
	for _, ifc := range ifaces {
		if ifc.Up && !ifc.Loopback {
			candidates = append(candidates, ifc)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })

	for _, ifc := range candidates {
		if ifc.Running && ifc.GlobalUnicast {
			return Identity(ifc), true
		}
	}
	if len(candidates) > 0 {
		return Identity(candidates[0]), false
	}
	return model.NoNetwork, false
}

func visibleNetworks(ifaces []Interface) []model.NetworkIdentity {
	ids := make([]model.NetworkIdentity, 0, len(ifaces))
	for _, ifc := range ifaces {
		if !ifc.Loopback {
			ids = append(ids, Identity(ifc))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func equalIDs(a, b []model.NetworkIdentity) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
