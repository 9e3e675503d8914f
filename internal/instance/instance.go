// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"errors"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/invowk/svchost/internal/clock"
	"github.com/invowk/svchost/internal/core/lifecycle"
	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/internal/listener"
	"github.com/invowk/svchost/internal/report"
	"github.com/invowk/svchost/pkg/types"
)

var (
	// ErrAborted is returned by Open when Abort interrupts it.
	ErrAborted = errors.New("instance aborted")
	// ErrClosedDuringOpen is returned by Open when Close interrupts it.
	ErrClosedDuringOpen = errors.New("instance closed while opening")
	// ErrNilRunRoutine is returned by New when no run routine is given.
	ErrNilRunRoutine = errors.New("run routine is nil")
)

type (
	// RunFunc is the instance's long-running work. It must return once ctx
	// is cancelled. Returning ctx.Err() after cancellation is the expected
	// way to stop; any other error is reported as a fault.
	RunFunc func(ctx context.Context) error

	// Instance hosts one run routine and its listeners.
	// An Instance is single-use: once Closed or Aborted, create a new one.
	Instance struct {
		base *lifecycle.Base

		id        uuid.UUID
		name      types.ServiceName
		run       RunFunc
		factories []listener.Factory

		logger          *log.Logger
		clock           clock.Clock
		catalog         endpoint.Catalog
		recorder        *report.Recorder
		gracePeriod     time.Duration
		warningInterval time.Duration
		reportTimeout   time.Duration
		rollbackTimeout time.Duration

		// mu protects everything below.
		mu        sync.Mutex
		sink      report.Sink
		opened    []listener.Listener
		addresses []string
		openedAt  time.Time
		launched  bool
		// sealedBy is set once Close or Abort stops Open from tracking
		// further listeners.
		sealedBy error

		// aborted is closed by Abort.
		aborted     chan struct{}
		runDone     chan struct{}
		runDoneOnce sync.Once
	}
)

// New creates an Instance in the Created state. Nil entries in factories
// are empty slots and are skipped by Open.
func New(name types.ServiceName, run RunFunc, factories []listener.Factory, opts ...Option) (*Instance, error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNilRunRoutine
	}

	i := &Instance{
		base:            lifecycle.NewBase(),
		id:              uuid.New(),
		name:            name,
		run:             run,
		factories:       slices.Clone(factories),
		clock:           clock.Real{},
		recorder:        report.NewRecorder(),
		gracePeriod:     DefaultGracePeriod,
		warningInterval: DefaultWarningInterval,
		reportTimeout:   report.DefaultTimeout,
		rollbackTimeout: DefaultRollbackTimeout,
		sink:            report.Discard,
		aborted:         make(chan struct{}),
		runDone:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: name.String()})
	}
	i.logger = i.logger.With("instance", i.id.String())

	return i, nil
}

// ID returns the instance's unique identifier.
func (i *Instance) ID() uuid.UUID { return i.id }

// Name returns the hosted service name.
func (i *Instance) Name() types.ServiceName { return i.name }

// State returns the current lifecycle state.
func (i *Instance) State() lifecycle.State { return i.base.State() }

// LastError returns the error that ended a failed Open, or nil.
func (i *Instance) LastError() error { return i.base.LastError() }

// Addresses returns the addresses published by the last successful Open,
// in listener declaration order.
func (i *Instance) Addresses() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.addresses)
}

// Done is closed when the run routine has exited, or as soon as it is
// certain the routine will never be launched.
func (i *Instance) Done() <-chan struct{} { return i.runDone }

// Terminated is closed when the instance reaches Closed or Aborted.
func (i *Instance) Terminated() <-chan struct{} { return i.base.Done() }

// Wait blocks until the run routine and any background slow-cancellation
// watcher left behind by Close have exited.
func (i *Instance) Wait() { i.base.WaitForShutdown() }

// Recorder returns the recorder backing Status.
func (i *Instance) Recorder() *report.Recorder { return i.recorder }

// Status returns a snapshot for the status listeners.
func (i *Instance) Status() listener.Status {
	i.mu.Lock()
	addrs := slices.Clone(i.addresses)
	openedAt := i.openedAt
	i.mu.Unlock()

	state := i.State()
	var uptime time.Duration
	if state == lifecycle.StateRunning && !openedAt.IsZero() {
		uptime = i.clock.Since(openedAt)
	}
	if addrs == nil {
		addrs = []string{}
	}

	return listener.Status{
		ID:        i.id.String(),
		Name:      i.name.String(),
		State:     state.String(),
		Running:   i.base.IsRunning(),
		Addresses: addrs,
		Uptime:    uptime,
		Health:    i.recorder.Latest(),
	}
}

// health builds a HealthInfo stamped with the instance clock.
func (i *Instance) health(sev report.Severity, category, description string) report.HealthInfo {
	return report.HealthInfo{
		Severity:    sev,
		Category:    category,
		Description: description,
		Time:        i.clock.Now(),
	}
}

// reporter returns the guarded sink installed by Open.
func (i *Instance) reporter() report.Sink {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sink
}

func (i *Instance) serviceContext() listener.ServiceContext {
	return listener.ServiceContext{
		Name:    i.name,
		ID:      i.id,
		Catalog: i.catalog,
		Logger:  i.logger,
		Status:  i,
	}
}

// track records an opened listener. Once the instance is sealed it returns
// the seal's reason instead and the caller must abort l.
func (i *Instance) track(l listener.Listener) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sealedBy != nil {
		return i.sealedBy
	}
	i.opened = append(i.opened, l)
	return nil
}

// seal stops Open from tracking further listeners. It also releases Done
// when the run routine was never launched.
func (i *Instance) seal(reason error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sealedBy == nil {
		i.sealedBy = reason
	}
	if !i.launched {
		i.releaseRunDone()
	}
}

// takeLast removes the most recently opened listener and returns it with
// its position. The caller becomes solely responsible for releasing it.
func (i *Instance) takeLast() (listener.Listener, int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := len(i.opened)
	if n == 0 {
		return nil, 0, false
	}
	l := i.opened[n-1]
	i.opened = i.opened[:n-1]
	return l, n - 1, true
}

// takeAll removes every opened listener and returns them in open order.
func (i *Instance) takeAll() []listener.Listener {
	i.mu.Lock()
	defer i.mu.Unlock()
	owned := i.opened
	i.opened = nil
	return owned
}

func (i *Instance) releaseRunDone() {
	i.runDoneOnce.Do(func() { close(i.runDone) })
}
