package netstate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/portalwatch/internal/model"
)

type activeChange struct {
	network model.NetworkIdentity
	usable  bool
}

type recordingListener struct {
	mu     sync.Mutex
	active []activeChange
	lists  [][]model.NetworkIdentity
}

func (l *recordingListener) ActiveNetworkChanged(network model.NetworkIdentity, usable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = append(l.active, activeChange{network, usable})
}

func (l *recordingListener) NetworkListChanged(visible []model.NetworkIdentity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lists = append(l.lists, visible)
}

func (l *recordingListener) activeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

type fakeSource struct {
	ifaces []Interface
	err    error
}

func (s *fakeSource) list() ([]Interface, error) {
	return s.ifaces, s.err
}

var (
	lo    = Interface{Name: "lo", Up: true, Running: true, Loopback: true}
	wlan  = Interface{Name: "wlan0", HardwareAddr: "aa:bb:cc:dd:ee:ff", Up: true, Running: true, GlobalUnicast: true}
	ether = Interface{Name: "eth0", HardwareAddr: "00:11:22:33:44:55", Up: true}
)

func TestPoller_ReportsActiveNetwork(t *testing.T) {
	src := &fakeSource{ifaces: []Interface{lo, ether, wlan}}
	var l recordingListener
	p := NewPoller(src.list, time.Second, &l)

	p.Poll()

	// eth0 sorts first but has no address yet; wlan0 is usable.
	require.Equal(t, []activeChange{{Identity(wlan), true}}, l.active)
	require.Len(t, l.lists, 1)
	assert.Equal(t, []model.NetworkIdentity{Identity(ether), Identity(wlan)}, l.lists[0])
}

func TestPoller_OnlyReportsChanges(t *testing.T) {
	src := &fakeSource{ifaces: []Interface{lo, wlan}}
	var l recordingListener
	p := NewPoller(src.list, time.Second, &l)

	p.Poll()
	p.Poll()
	assert.Len(t, l.active, 1)
	assert.Len(t, l.lists, 1)

	connecting := wlan
	connecting.GlobalUnicast = false
	src.ifaces = []Interface{lo, connecting}
	p.Poll()

	assert.Equal(t, activeChange{Identity(wlan), false}, l.active[1])
	assert.Len(t, l.lists, 1)
}

func TestPoller_NoNetwork(t *testing.T) {
	src := &fakeSource{ifaces: []Interface{lo}}
	var l recordingListener
	p := NewPoller(src.list, time.Second, &l)

	p.Poll()

	assert.Equal(t, []activeChange{{model.NoNetwork, false}}, l.active)
	assert.Equal(t, []model.NetworkIdentity{}, l.lists[0])
}

func TestPoller_SourceErrorKeepsLastState(t *testing.T) {
	src := &fakeSource{ifaces: []Interface{wlan}}
	var l recordingListener
	p := NewPoller(src.list, time.Second, &l)
	p.Poll()

	src.err = errors.New("netlink unavailable")
	p.Poll()

	assert.Len(t, l.active, 1)
}

func TestPoller_RunPollsImmediately(t *testing.T) {
	src := &fakeSource{ifaces: []Interface{wlan}}
	var l recordingListener
	p := NewPoller(src.list, time.Hour, &l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return l.activeCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestInterfaceName(t *testing.T) {
	assert.Equal(t, "wlan0", InterfaceName(Identity(wlan)))
	assert.Equal(t, "", InterfaceName(model.NoNetwork))
}
