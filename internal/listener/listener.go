// SPDX-License-Identifier: MPL-2.0

package listener

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/internal/report"
	"github.com/invowk/svchost/pkg/types"
)

type (
	// Listener is a network endpoint opened and closed in lockstep with an
	// instance.
	Listener interface {
		// Open starts listening and returns the published address.
		Open(ctx context.Context) (string, error)
		// Close gracefully stops the listener.
		Close(ctx context.Context) error
		// Abort tears the listener down immediately.
		Abort() error
	}

	// Factory builds a listener for an instance. Returning a nil Listener
	// with a nil error leaves the slot empty.
	Factory func(sc ServiceContext) (Listener, error)

	// StatusSource produces a point-in-time view of the owning instance.
	StatusSource interface {
		Status() Status
	}

	// ServiceContext is what a Factory knows about the instance it builds
	// a listener for.
	ServiceContext struct {
		Name    types.ServiceName
		ID      uuid.UUID
		Catalog endpoint.Catalog
		Logger  *log.Logger
		Status  StatusSource
	}

	// Status is the snapshot rendered by the status listeners.
	Status struct {
		ID        string              `json:"id"`
		Name      string              `json:"name"`
		State     string              `json:"state"`
		Running   bool                `json:"running"`
		Addresses []string            `json:"addresses"`
		Uptime    time.Duration       `json:"uptime_ns"`
		Health    []report.HealthInfo `json:"health"`
	}
)

// Resolve returns the endpoint a listener named name should bind to.
// A nil name selects endpoint.Default.
func (sc ServiceContext) Resolve(name *types.EndpointName) (endpoint.Endpoint, error) {
	if name == nil {
		return endpoint.Default(), nil
	}
	return endpoint.Resolve(sc.Catalog, *name)
}

// logger returns sc.Logger or a prefixed stderr logger when unset.
func (sc ServiceContext) logger(prefix string) *log.Logger {
	if sc.Logger != nil {
		return sc.Logger.WithPrefix(prefix)
	}
	return log.NewWithOptions(os.Stderr, log.Options{Prefix: prefix})
}

// snapshot reads the status source, tolerating a nil source.
func (sc ServiceContext) snapshot() Status {
	if sc.Status == nil {
		return Status{ID: sc.ID.String(), Name: sc.Name.String(), State: "unknown"}
	}
	return sc.Status.Status()
}
