// Package detector implements the captive portal detection state machine.
//
// A Detector tracks the active network, probes it through a Prober, turns
// probe results into portal states, and schedules retries with a backoff
// Strategy. For the active network it moves between three phases:
//
//	idle     -> probing   network became usable, explicit start, retry due
//	probing  -> idle      online result, or detection cancelled
//	probing  -> cooldown  any other result; a retry timer is armed
//	cooldown -> probing   retry timer fired while the network is usable
//	any      -> idle      network switch, network unusable, disable
//
// A Detector is not safe for concurrent use. Every method, and every probe
// completion, runs on the loop it was created with.
package detector

import (
	"context"
	"time"

	"github.com/user/portalwatch/internal/loop"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/notify"
	"github.com/user/portalwatch/internal/strategy"
	"github.com/user/portalwatch/internal/util"
)

// Prober issues one probe for network and calls done exactly once with the
// result. done may be called from any goroutine. Cancelling ctx asks the
// probe to stop early; its result is ignored either way.
type Prober interface {
	RunProbe(ctx context.Context, network model.NetworkIdentity, done func(model.ProbeResult))
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, network model.NetworkIdentity, done func(model.ProbeResult))

// RunProbe calls f.
func (f ProberFunc) RunProbe(ctx context.Context, network model.NetworkIdentity, done func(model.ProbeResult)) {
	f(ctx, network, done)
}

// Phase is the detection phase of the active network.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseCooldown
)

func (p Phase) String() string {
	switch p {
	case PhaseProbing:
		return "probing"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "idle"
	}
}

// Record is the detection entry of one network.
type Record struct {
	Identity model.NetworkIdentity
	State    model.PortalState
}

// attempt is one in-flight probe. A result is accepted only while its
// attempt is still the detector's current one.
type attempt struct {
	network model.NetworkIdentity
	cancel  context.CancelFunc
}

// Detector owns the per-network records and drives probing of the active
// network.
type Detector struct {
	loop      *loop.Loop
	prober    Prober
	strategy  *strategy.Strategy
	selector  strategy.Selector
	observers *notify.Registry

	enabled bool
	records map[model.NetworkIdentity]*Record
	active  model.NetworkIdentity
	usable  bool

	phase     Phase
	attempts  int
	inflight  *attempt
	retry     *loop.Timer
	lastDelay time.Duration
}

// New creates a disabled detector. Enable turns automatic probing on.
func New(l *loop.Loop, prober Prober, strat *strategy.Strategy) *Detector {
	d := &Detector{
		loop:     l,
		prober:   prober,
		strategy: strat,
		records:  make(map[model.NetworkIdentity]*Record),
	}
	d.observers = notify.NewRegistry(d.Current)
	return d
}

// Observers returns the registry notified on every settled state change of
// the active network.
func (d *Detector) Observers() *notify.Registry {
	return d.observers
}

// State returns the portal state of network. A disabled detector, or a
// network without a record, reports the unknown state.
func (d *Detector) State(network model.NetworkIdentity) model.PortalState {
	if !d.enabled {
		return model.UnknownState()
	}
	if rec, ok := d.records[network]; ok {
		return rec.State
	}
	return model.UnknownState()
}

// Current returns the active network and its state.
func (d *Detector) Current() (model.NetworkIdentity, model.PortalState) {
	return d.active, d.State(d.active)
}

// IsEnabled reports whether automatic detection is on.
func (d *Detector) IsEnabled() bool {
	return d.enabled
}

// Enable turns detection on. With startDetection set, a usable active
// network is probed right away; otherwise probing starts with the next
// network change or explicit request. Enabling twice is a no-op.
func (d *Detector) Enable(startDetection bool) {
	if d.enabled {
		return
	}
	d.enabled = true
	util.Info("Portal detection enabled (start=%v)", startDetection)
	if startDetection && d.active != model.NoNetwork {
		d.attempts = 0
		d.applyUsability()
	}
}

// Disable cancels any pending work and stops automatic probing. Stored
// states are kept but reported as unknown until detection is enabled again.
func (d *Detector) Disable() {
	if !d.enabled {
		return
	}
	d.stopDetection()
	d.enabled = false
	util.Info("Portal detection disabled")
}

// StartDetectionIfIdle starts a probe of the active network unless one is
// already running or scheduled. It reports whether a probe was started.
func (d *Detector) StartDetectionIfIdle() bool {
	if d.phase != PhaseIdle || !d.canProbe() {
		return false
	}
	d.startAttempt()
	return true
}

// ActiveNetworkChanged is the network-state provider's signal that the
// active network, or its usability, changed. network may be NoNetwork.
func (d *Detector) ActiveNetworkChanged(network model.NetworkIdentity, usable bool) {
	if network != d.active {
		util.Debug("Active network changed: %q -> %q (usable=%v)", d.active, network, usable)
		d.stopDetection()
		d.attempts = 0
		d.active = network
		d.usable = usable
		if network == model.NoNetwork {
			return
		}
		if _, ok := d.records[network]; !ok {
			d.records[network] = &Record{Identity: network, State: model.UnknownState()}
		}
		d.applyUsability()
		return
	}

	if network == model.NoNetwork || usable == d.usable {
		return
	}
	util.Debug("Network %q usable=%v", network, usable)
	d.usable = usable
	if !usable {
		d.stopDetection()
	}
	d.applyUsability()
}

func (d *Detector) applyUsability() {
	if !d.enabled {
		return
	}
	if !d.usable {
		d.setState(d.active, model.OfflineState())
		return
	}
	if d.phase == PhaseIdle {
		d.startAttempt()
	}
}

// NetworkListChanged drops the records of networks the provider no longer
// reports. The active network's record is always kept.
func (d *Detector) NetworkListChanged(visible []model.NetworkIdentity) {
	keep := make(map[model.NetworkIdentity]bool, len(visible))
	for _, id := range visible {
		keep[id] = true
	}
	for id := range d.records {
		if !keep[id] && id != d.active {
			util.Debug("Forgetting network %q", id)
			delete(d.records, id)
		}
	}
}

// SetErrorScreenVisible records the error screen visibility. Showing the
// screen also starts a probe if detection is idle, so the screen reflects
// fresh data.
func (d *Detector) SetErrorScreenVisible(visible bool) {
	if d.selector.SetErrorScreenVisible(visible) {
		util.Debug("Strategy context is now %s", d.selector.Current())
	}
	if visible {
		d.StartDetectionIfIdle()
	}
}

// SetSessionActive records whether a user session is running.
func (d *Detector) SetSessionActive(active bool) {
	if d.selector.SetSessionActive(active) {
		util.Debug("Strategy context is now %s", d.selector.Current())
	}
}

// Context returns the active strategy context.
func (d *Detector) Context() model.StrategyContext {
	return d.selector.Current()
}

// Phase returns the detection phase of the active network.
func (d *Detector) Phase() Phase {
	return d.phase
}

// Attempts returns the number of consecutive non-online results.
func (d *Detector) Attempts() int {
	return d.attempts
}

// LastDelay returns the delay of the most recently scheduled retry.
func (d *Detector) LastDelay() time.Duration {
	return d.lastDelay
}

// Records returns a copy of all detection records. While detection is
// disabled every record reports the unknown state.
func (d *Detector) Records() []Record {
	out := make([]Record, 0, len(d.records))
	for _, rec := range d.records {
		r := *rec
		if !d.enabled {
			r.State = model.UnknownState()
		}
		out = append(out, r)
	}
	return out
}

// Snapshot returns a read model for status displays.
func (d *Detector) Snapshot() model.Snapshot {
	return model.Snapshot{
		Enabled:       d.enabled,
		ActiveNetwork: d.active,
		Usable:        d.usable,
		State:         d.State(d.active),
		Phase:         d.phase.String(),
		Context:       d.selector.Current(),
		Attempts:      d.attempts,
	}
}

// Shutdown cancels pending work and disables the detector.
func (d *Detector) Shutdown() {
	d.Disable()
	d.stopDetection()
}

func (d *Detector) canProbe() bool {
	return d.enabled && d.active != model.NoNetwork && d.usable
}

func (d *Detector) startAttempt() {
	ctx, cancel := context.WithTimeout(context.Background(), d.strategy.AttemptTimeout(d.selector.Current()))
	a := &attempt{network: d.active, cancel: cancel}
	d.inflight = a
	d.phase = PhaseProbing
	util.Debug("Probing network %q (attempt %d, %s)", a.network, d.attempts+1, d.selector.Current())

	d.prober.RunProbe(ctx, a.network, func(res model.ProbeResult) {
		d.loop.Post(func() {
			d.onProbeCompleted(a, res)
		})
	})
}

func (d *Detector) onProbeCompleted(a *attempt, res model.ProbeResult) {
	a.cancel()
	if d.inflight != a {
		util.Debug("Discarding result of cancelled probe for %q", a.network)
		return
	}
	d.inflight = nil

	state := Interpret(res)
	if res.Err != nil {
		util.Debug("Probe for %q failed: %v", a.network, res.Err)
	}
	d.setState(a.network, state)
	if d.phase != PhaseProbing || d.inflight != nil {
		// An observer stopped or restarted detection.
		return
	}

	if state.Status == model.StatusOnline {
		d.attempts = 0
		d.phase = PhaseIdle
		return
	}

	ctx := d.selector.Current()
	delay := d.strategy.Delay(ctx, d.attempts, state.Status)
	d.attempts++
	d.lastDelay = delay
	d.phase = PhaseCooldown
	util.Debug("Next probe for %q in %s (%s, attempt %d)", a.network, delay, ctx, d.attempts)
	d.retry = d.loop.AfterFunc(delay, d.onRetryDue)
}

func (d *Detector) onRetryDue() {
	if d.phase != PhaseCooldown {
		return
	}
	d.retry = nil
	d.phase = PhaseIdle
	if d.canProbe() {
		d.startAttempt()
	}
}

// stopDetection cancels the in-flight probe and the retry timer. It is safe
// to call when nothing is pending.
func (d *Detector) stopDetection() {
	if d.inflight != nil {
		d.inflight.cancel()
		d.inflight = nil
	}
	d.retry.Stop()
	d.retry = nil
	d.phase = PhaseIdle
}

func (d *Detector) setState(network model.NetworkIdentity, state model.PortalState) {
	rec, ok := d.records[network]
	if !ok {
		rec = &Record{Identity: network, State: model.UnknownState()}
		d.records[network] = rec
	}
	if rec.State == state {
		return
	}
	util.Info("Network %q: %s -> %s", network, rec.State, state)
	rec.State = state
	if network == d.active {
		d.observers.NotifyAll(network, state)
	}
}
