// Package portal exposes captive portal detection to the rest of the
// program: an Instance contract, the loop-backed Service that implements it,
// and the Facade that owns the current Instance.
package portal

import (
	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/notify"
)

// Instance is the public detection contract used by UI collaborators and the
// network-state provider.
//
// Observers run on the detection loop. Calls they make back into the
// Instance run inline, except SubscribeAndNotifyNow, which panics with
// notify.ErrReentrantSubscribe.
type Instance interface {
	// State returns the stored state of network, or the unknown state.
	State(network model.NetworkIdentity) model.PortalState
	// Current returns the active network and its state.
	Current() (model.NetworkIdentity, model.PortalState)
	IsEnabled() bool
	Enable(startDetection bool)
	Disable()
	// StartDetectionIfIdle forces a recheck unless one is already running
	// or scheduled. It reports whether a probe was started.
	StartDetectionIfIdle() bool

	Subscribe(o notify.Observer) notify.Handle
	// SubscribeAndNotifyNow subscribes o and delivers the current state to
	// it before returning.
	SubscribeAndNotifyNow(o notify.Observer) notify.Handle
	Unsubscribe(h notify.Handle)

	ActiveNetworkChanged(network model.NetworkIdentity, usable bool)
	NetworkListChanged(visible []model.NetworkIdentity)

	SetErrorScreenVisible(visible bool)
	SetSessionActive(active bool)

	Snapshot() model.Snapshot
	Records() []detector.Record

	// Close cancels pending work and releases the instance.
	Close() error
}
