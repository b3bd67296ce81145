// Package daemon runs portal detection as a background service.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/portalwatch/internal/metrics"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/netstate"
	"github.com/user/portalwatch/internal/notify"
	"github.com/user/portalwatch/internal/portal"
	"github.com/user/portalwatch/internal/util"
	"github.com/user/portalwatch/internal/web"
)

const pidFileName = "portalwatch.pid"

// Daemon wires the network poller, the detection facade, metrics and the
// web API together.
type Daemon struct {
	config   *util.Config
	facade   *portal.Facade
	source   netstate.Source
	recorder *metrics.Recorder
	server   *web.Server
	pidFile  string
	embedded bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	handles   []notify.Handle
	stopOnce  sync.Once
	mu        sync.RWMutex
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithFacade replaces the production facade, typically with one set up by
// InitializeForTesting.
func WithFacade(f *portal.Facade) Option {
	return func(d *Daemon) {
		d.facade = f
	}
}

// WithInterfaceSource replaces the OS interface list.
func WithInterfaceSource(src netstate.Source) Option {
	return func(d *Daemon) {
		d.source = src
	}
}

// Embedded runs the daemon inside another program, such as the terminal
// dashboard. It writes no PID file and leaves signals to the host.
func Embedded() Option {
	return func(d *Daemon) {
		d.embedded = true
	}
}

// New creates a new daemon instance.
func New(cfg *util.Config, opts ...Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:   cfg,
		facade:   portal.NewFacade(ProductionFactory(cfg)),
		recorder: metrics.NewRecorder(),
		pidFile:  filepath.Join(cfg.DataDir, pidFileName),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	util.Info("Daemon starting...")

	if !d.facade.IsInitialized() {
		if err := d.facade.Initialize(); err != nil {
			d.removePIDFile()
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
			return err
		}
	}
	inst := d.facade.Get()

	d.handles = append(d.handles,
		inst.Subscribe(d.recorder.Observe),
		inst.Subscribe(logNotification),
	)
	if d.config.EnableOnStart {
		inst.Enable(true)
	}

	poller := netstate.NewPoller(d.source, d.config.PollInterval, inst)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		poller.Run(d.ctx)
	}()

	if d.config.WebPort > 0 {
		d.server = web.NewServer(inst, d.recorder, d.config.WebPort)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.server.Start(); err != nil {
				util.Error("%v", err)
			}
		}()
	}

	if !d.embedded {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleSignals()
		}()
	}

	util.Info("Daemon started with PID %d", os.Getpid())

	return nil
}

// Wait waits for the daemon to finish.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	util.Info("Daemon stopping...")

	d.shutdownServices()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		util.Info("Daemon stopped gracefully")
	case <-time.After(30 * time.Second):
		util.Warn("Daemon stop timed out")
	}

	if d.facade.IsInitialized() {
		inst := d.facade.Get()
		for _, h := range d.handles {
			inst.Unsubscribe(h)
		}
		d.handles = nil
	}
	if err := d.facade.Shutdown(); err != nil {
		util.Warn("%v", err)
	}
	d.removePIDFile()

	return nil
}

func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		util.Info("Received signal: %v", sig)
		d.shutdownServices()
	case <-d.ctx.Done():
		return
	}
}

// shutdownServices stops the goroutines Wait is waiting for. Stop finishes
// the cleanup.
func (d *Daemon) shutdownServices() {
	d.stopOnce.Do(func() {
		d.cancel()
		if d.server != nil {
			if err := d.server.Stop(); err != nil {
				util.Warn("Web server shutdown: %v", err)
			}
		}
	})
}

func (d *Daemon) writePIDFile() error {
	if d.embedded {
		return nil
	}
	if err := util.EnsureDir(d.config.DataDir); err != nil {
		return err
	}
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (d *Daemon) removePIDFile() {
	if d.embedded {
		return
	}
	os.Remove(d.pidFile)
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Status holds the current daemon status.
type Status struct {
	Running   bool           `json:"running"`
	PID       int            `json:"pid"`
	StartTime time.Time      `json:"start_time"`
	Uptime    time.Duration  `json:"uptime"`
	Snapshot  model.Snapshot `json:"snapshot"`
}

// GetStatus returns the daemon status.
func (d *Daemon) GetStatus() *Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st := &Status{
		Running:   d.running,
		PID:       os.Getpid(),
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime),
	}
	if d.facade.IsInitialized() {
		st.Snapshot = d.facade.Get().Snapshot()
	}
	return st
}

// Facade returns the detection facade.
func (d *Daemon) Facade() *portal.Facade {
	return d.facade
}

// Recorder returns the metrics recorder.
func (d *Daemon) Recorder() *metrics.Recorder {
	return d.recorder
}

func logNotification(network model.NetworkIdentity, state model.PortalState) {
	switch state.Status {
	case model.StatusPortal, model.StatusProxyAuthRequired:
		util.Warn("Captive portal on %q: %s", network, state)
	default:
		util.Info("Connectivity on %q: %s", network, state)
	}
}
