// Package notify fans detection results out to observers.
package notify

import (
	"errors"

	"github.com/user/portalwatch/internal/model"
)

// ErrReentrantSubscribe is the panic value raised when SubscribeAndNotifyNow
// is called while observers are being notified.
var ErrReentrantSubscribe = errors.New("notify: SubscribeAndNotifyNow called from an observer callback")

// Observer receives the network a detection completed for (NoNetwork if
// there is no active network) and its portal state.
type Observer func(network model.NetworkIdentity, state model.PortalState)

// Handle identifies a subscription.
type Handle uint64

// CurrentFunc returns the active network and its state.
type CurrentFunc func() (model.NetworkIdentity, model.PortalState)

// Registry holds the observer set. It is not safe for concurrent use; it is
// driven from the detector's loop.
type Registry struct {
	current    CurrentFunc
	observers  map[Handle]Observer
	next       Handle
	delivering int
}

// NewRegistry creates a registry. current is consulted by
// SubscribeAndNotifyNow.
func NewRegistry(current CurrentFunc) *Registry {
	return &Registry{
		current:   current,
		observers: make(map[Handle]Observer),
	}
}

// Subscribe adds o without calling it.
func (r *Registry) Subscribe(o Observer) Handle {
	r.next++
	r.observers[r.next] = o
	return r.next
}

// SubscribeAndNotifyNow adds o and calls it with the current state before
// returning. It panics with ErrReentrantSubscribe when called from inside an
// observer, where the caller may not be fully set up yet.
func (r *Registry) SubscribeAndNotifyNow(o Observer) Handle {
	if r.delivering > 0 {
		panic(ErrReentrantSubscribe)
	}
	h := r.Subscribe(o)
	network, state := r.current()
	r.deliver(o, network, state)
	return h
}

// Unsubscribe removes the observer behind h. Unknown handles are ignored.
func (r *Registry) Unsubscribe(h Handle) {
	delete(r.observers, h)
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	return len(r.observers)
}

// NotifyAll calls every subscriber. Observers added or removed by a callback
// take effect for the next broadcast.
func (r *Registry) NotifyAll(network model.NetworkIdentity, state model.PortalState) {
	snapshot := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		snapshot = append(snapshot, o)
	}
	for _, o := range snapshot {
		r.deliver(o, network, state)
	}
}

func (r *Registry) deliver(o Observer, network model.NetworkIdentity, state model.PortalState) {
	r.delivering++
	defer func() { r.delivering-- }()
	o(network, state)
}
