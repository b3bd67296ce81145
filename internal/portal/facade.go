package portal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/user/portalwatch/internal/util"
)

var (
	// ErrNotInitialized is the panic value of Get on an empty facade.
	ErrNotInitialized = errors.New("portal: facade is not initialized")
	// ErrAlreadyInitialized is the panic value of a second initialization.
	ErrAlreadyInitialized = errors.New("portal: facade is already initialized")
)

// Factory builds the production Instance.
type Factory func() (Instance, error)

// Facade owns at most one Instance between Initialize and Shutdown. It is
// constructed by the composing program and handed to whoever needs it.
type Facade struct {
	mu      sync.Mutex
	factory Factory
	inst    Instance
}

// NewFacade creates an empty facade that builds instances with factory.
func NewFacade(factory Factory) *Facade {
	return &Facade{factory: factory}
}

// Initialize builds the production instance. It panics if an instance
// already exists.
func (f *Facade) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inst != nil {
		panic(ErrAlreadyInitialized)
	}
	if f.factory == nil {
		return errors.New("no portal factory configured")
	}

	inst, err := f.factory()
	if err != nil {
		return fmt.Errorf("failed to create portal instance: %w", err)
	}
	f.inst = inst
	util.Debug("Portal facade initialized")
	return nil
}

// InitializeForTesting installs inst in place of the production instance.
// The facade takes ownership and closes it on Shutdown.
func (f *Facade) InitializeForTesting(inst Instance) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inst != nil {
		panic(ErrAlreadyInitialized)
	}
	if inst == nil {
		panic("portal: InitializeForTesting called with a nil instance")
	}
	f.inst = inst
}

// Shutdown closes and drops the current instance. Shutting down an empty
// facade is a no-op.
func (f *Facade) Shutdown() error {
	f.mu.Lock()
	inst := f.inst
	f.inst = nil
	f.mu.Unlock()

	if inst == nil {
		return nil
	}
	if err := inst.Close(); err != nil {
		return fmt.Errorf("failed to close portal instance: %w", err)
	}
	util.Debug("Portal facade shut down")
	return nil
}

// IsInitialized reports whether an instance exists.
func (f *Facade) IsInitialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inst != nil
}

// Get returns the current instance. It panics with ErrNotInitialized when
// there is none.
func (f *Facade) Get() Instance {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inst == nil {
		panic(ErrNotInitialized)
	}
	return f.inst
}
