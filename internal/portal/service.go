package portal

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/loop"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/notify"
	"github.com/user/portalwatch/internal/strategy"
	"github.com/user/portalwatch/internal/util"
)

// Option configures a Service.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the clock backing retry timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Service is the production Instance. It runs a Detector on its own loop
// goroutine and marshals every call onto it, so it is safe for concurrent
// use.
type Service struct {
	loop     *loop.Loop
	detector *detector.Detector

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

var _ Instance = (*Service)(nil)

// NewService creates a service and starts its loop. Detection starts
// disabled.
func NewService(prober detector.Prober, strat *strategy.Strategy, opts ...Option) *Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	l := loop.New(o.clock)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		loop:     l,
		detector: detector.New(l, prober, strat),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		l.Run(ctx)
	}()
	return s
}

// call runs fn on the loop. Observers run on the loop too, so a call made from
// an observer runs inline. It reports false once the service is closed.
func (s *Service) call(fn func()) bool {
	return s.loop.Call(s.ctx, fn)
}

func (s *Service) State(network model.NetworkIdentity) model.PortalState {
	state := model.UnknownState()
	s.call(func() {
		state = s.detector.State(network)
	})
	return state
}

func (s *Service) Current() (model.NetworkIdentity, model.PortalState) {
	network, state := model.NoNetwork, model.UnknownState()
	s.call(func() {
		network, state = s.detector.Current()
	})
	return network, state
}

func (s *Service) IsEnabled() bool {
	var enabled bool
	s.call(func() {
		enabled = s.detector.IsEnabled()
	})
	return enabled
}

func (s *Service) Enable(startDetection bool) {
	s.call(func() {
		s.detector.Enable(startDetection)
	})
}

func (s *Service) Disable() {
	s.call(s.detector.Disable)
}

func (s *Service) StartDetectionIfIdle() bool {
	var started bool
	s.call(func() {
		started = s.detector.StartDetectionIfIdle()
	})
	return started
}

func (s *Service) Subscribe(o notify.Observer) notify.Handle {
	var h notify.Handle
	s.call(func() {
		h = s.detector.Observers().Subscribe(o)
	})
	return h
}

// SubscribeAndNotifyNow panics with notify.ErrReentrantSubscribe when called
// from an observer.
func (s *Service) SubscribeAndNotifyNow(o notify.Observer) notify.Handle {
	var h notify.Handle
	s.call(func() {
		h = s.detector.Observers().SubscribeAndNotifyNow(o)
	})
	return h
}

func (s *Service) Unsubscribe(h notify.Handle) {
	s.call(func() {
		s.detector.Observers().Unsubscribe(h)
	})
}

// ActiveNetworkChanged queues the change without waiting for it to be
// handled. Changes are applied in the order they arrive.
func (s *Service) ActiveNetworkChanged(network model.NetworkIdentity, usable bool) {
	s.loop.Post(func() {
		s.detector.ActiveNetworkChanged(network, usable)
	})
}

// NetworkListChanged queues the new network list.
func (s *Service) NetworkListChanged(visible []model.NetworkIdentity) {
	ids := append([]model.NetworkIdentity(nil), visible...)
	s.loop.Post(func() {
		s.detector.NetworkListChanged(ids)
	})
}

func (s *Service) SetErrorScreenVisible(visible bool) {
	s.call(func() {
		s.detector.SetErrorScreenVisible(visible)
	})
}

func (s *Service) SetSessionActive(active bool) {
	s.call(func() {
		s.detector.SetSessionActive(active)
	})
}

func (s *Service) Snapshot() model.Snapshot {
	snap := model.Snapshot{State: model.UnknownState(), Phase: detector.PhaseIdle.String()}
	s.call(func() {
		snap = s.detector.Snapshot()
	})
	return snap
}

func (s *Service) Records() []detector.Record {
	var records []detector.Record
	s.call(func() {
		records = s.detector.Records()
	})
	return records
}

// Close shuts the detector down and stops the loop. It is safe to call more
// than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.call(s.detector.Shutdown)
		s.cancel()
		if !s.loop.OnLoop() {
			<-s.done
		}
		util.Debug("Portal service stopped")
	})
	return nil
}
