package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/notify"
	"github.com/user/portalwatch/internal/strategy"
)

type stubProber struct {
	mu      sync.Mutex
	pending []func(model.ProbeResult)
}

func (p *stubProber) RunProbe(_ context.Context, _ model.NetworkIdentity, done func(model.ProbeResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, done)
}

func (p *stubProber) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// complete answers the most recent probe.
func (p *stubProber) complete(t *testing.T, res model.ProbeResult) {
	t.Helper()
	require.Eventually(t, func() bool { return p.calls() > 0 }, time.Second, time.Millisecond)
	p.mu.Lock()
	done := p.pending[len(p.pending)-1]
	p.mu.Unlock()
	done(res)
}

type notification struct {
	network model.NetworkIdentity
	state   model.PortalState
}

type collector struct {
	mu   sync.Mutex
	seen []notification
}

func (c *collector) observe(network model.NetworkIdentity, state model.PortalState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, notification{network, state})
}

func (c *collector) all() []notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notification(nil), c.seen...)
}

func newTestService(t *testing.T) (*Service, *stubProber) {
	t.Helper()
	prober := &stubProber{}
	svc := NewService(prober, strategy.New(strategy.DefaultPolicies()), WithClock(clock.NewMock()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, prober
}

func TestService_DisabledReportsUnknown(t *testing.T) {
	svc, prober := newTestService(t)

	svc.ActiveNetworkChanged("wifi", true)

	assert.False(t, svc.IsEnabled())
	assert.Equal(t, model.UnknownState(), svc.State("wifi"))
	assert.Equal(t, model.UnknownState(), svc.State("other"))
	assert.False(t, svc.StartDetectionIfIdle())
	assert.Zero(t, prober.calls())
}

func TestService_EndToEndPortal(t *testing.T) {
	svc, prober := newTestService(t)
	var obs collector
	svc.Subscribe(obs.observe)

	svc.ActiveNetworkChanged("wifi", true)
	svc.Enable(false)
	require.True(t, svc.StartDetectionIfIdle())
	require.False(t, svc.StartDetectionIfIdle())

	prober.complete(t, model.ProbeResult{ResponseCode: http.StatusOK})

	portal := model.PortalState{Status: model.StatusPortal, ResponseCode: http.StatusOK}
	require.Eventually(t, func() bool { return svc.State("wifi") == portal }, time.Second, time.Millisecond)
	assert.Equal(t, []notification{{"wifi", portal}}, obs.all())

	snap := svc.Snapshot()
	assert.Equal(t, "cooldown", snap.Phase)
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, model.ContextLoginScreen, snap.Context)
	assert.Equal(t, model.NetworkIdentity("wifi"), snap.ActiveNetwork)
}

func TestService_SubscribeAndNotifyNowIsSynchronous(t *testing.T) {
	svc, prober := newTestService(t)
	svc.ActiveNetworkChanged("wifi", true)
	svc.Enable(true)
	prober.complete(t, model.ProbeResult{ResponseCode: http.StatusNoContent})

	online := model.PortalState{Status: model.StatusOnline, ResponseCode: http.StatusNoContent}
	require.Eventually(t, func() bool { return svc.State("wifi") == online }, time.Second, time.Millisecond)

	var obs collector
	h := svc.SubscribeAndNotifyNow(obs.observe)
	assert.Equal(t, []notification{{"wifi", online}}, obs.all())

	svc.Unsubscribe(h)
	svc.Disable()
	assert.Len(t, obs.all(), 1)
}

func TestService_ReentrantSubscribeAndNotifyNowPanics(t *testing.T) {
	svc, prober := newTestService(t)
	done := make(chan struct{})
	var (
		enabled bool
		network model.NetworkIdentity
	)
	svc.Subscribe(func(model.NetworkIdentity, model.PortalState) {
		defer close(done)
		assert.PanicsWithValue(t, notify.ErrReentrantSubscribe, func() {
			svc.SubscribeAndNotifyNow(func(model.NetworkIdentity, model.PortalState) {})
		})
		enabled = svc.IsEnabled()
		network, _ = svc.Current()
	})

	svc.ActiveNetworkChanged("wifi", true)
	svc.Enable(true)
	prober.complete(t, model.ProbeResult{ResponseCode: http.StatusOK})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("observer did not return")
	}
	assert.True(t, enabled)
	assert.Equal(t, model.NetworkIdentity("wifi"), network)

	svc.Disable()
	assert.False(t, svc.IsEnabled())
}

func TestService_CloseFromObserver(t *testing.T) {
	svc, prober := newTestService(t)
	closed := make(chan error, 1)
	svc.Subscribe(func(model.NetworkIdentity, model.PortalState) {
		closed <- svc.Close()
	})

	svc.ActiveNetworkChanged("wifi", true)
	svc.Enable(true)
	prober.complete(t, model.ProbeResult{ResponseCode: http.StatusOK})

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("observer did not return")
	}
	require.NoError(t, svc.Close())
	assert.False(t, svc.IsEnabled())
}

func TestService_Records(t *testing.T) {
	svc, _ := newTestService(t)
	svc.ActiveNetworkChanged("wifi", false)
	svc.NetworkListChanged([]model.NetworkIdentity{"wifi"})

	records := svc.Records()
	require.Len(t, records, 1)
	assert.Equal(t, model.NetworkIdentity("wifi"), records[0].Identity)
}

func TestService_CloseIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	svc.ActiveNetworkChanged("wifi", true)
	svc.Enable(false)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	assert.False(t, svc.IsEnabled())
	assert.Equal(t, model.UnknownState(), svc.State("wifi"))
}

type fakeInstance struct {
	Instance
	closeErr error
	closed   int
}

func (f *fakeInstance) Close() error {
	f.closed++
	return f.closeErr
}

func TestFacade_GetBeforeInitializePanics(t *testing.T) {
	f := NewFacade(nil)

	assert.False(t, f.IsInitialized())
	assert.PanicsWithValue(t, ErrNotInitialized, func() { f.Get() })
}

func TestFacade_Lifecycle(t *testing.T) {
	inst := &fakeInstance{}
	builds := 0
	f := NewFacade(func() (Instance, error) {
		builds++
		return inst, nil
	})

	require.NoError(t, f.Initialize())
	assert.True(t, f.IsInitialized())
	assert.Same(t, inst, f.Get())
	assert.PanicsWithValue(t, ErrAlreadyInitialized, func() { _ = f.Initialize() })

	require.NoError(t, f.Shutdown())
	assert.Equal(t, 1, inst.closed)
	assert.False(t, f.IsInitialized())
	assert.PanicsWithValue(t, ErrNotInitialized, func() { f.Get() })

	require.NoError(t, f.Shutdown())
	assert.Equal(t, 1, inst.closed)

	require.NoError(t, f.Initialize())
	assert.Equal(t, 2, builds)
}

func TestFacade_FactoryError(t *testing.T) {
	f := NewFacade(func() (Instance, error) {
		return nil, errors.New("no interfaces")
	})

	err := f.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no interfaces")
	assert.False(t, f.IsInitialized())
}

func TestFacade_InitializeForTesting(t *testing.T) {
	f := NewFacade(nil)
	inst := &fakeInstance{closeErr: errors.New("boom")}

	f.InitializeForTesting(inst)
	assert.Same(t, inst, f.Get())
	assert.PanicsWithValue(t, ErrAlreadyInitialized, func() { f.InitializeForTesting(&fakeInstance{}) })

	err := f.Shutdown()
	require.Error(t, err)
	assert.Equal(t, 1, inst.closed)
	assert.False(t, f.IsInitialized())
}

func TestFacade_WithService(t *testing.T) {
	prober := &stubProber{}
	f := NewFacade(func() (Instance, error) {
		return NewService(prober, strategy.New(strategy.DefaultPolicies())), nil
	})
	require.NoError(t, f.Initialize())

	inst := f.Get()
	inst.ActiveNetworkChanged("eth0", true)
	inst.Enable(true)
	require.Eventually(t, func() bool { return prober.calls() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, f.Shutdown())
	assert.Equal(t, model.UnknownState(), inst.State("eth0"))
}
