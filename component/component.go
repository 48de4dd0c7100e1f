package component

import (
	"context"

	"github.com/kbukum/transcribekit/observability"
)

// Component is a long-lived part of a binary, such as the relay server or a
// telemetry exporter.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start brings the component up. It must not block serving.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	observability.HealthChecker
}

// Func adapts start and stop functions to a Component that always reports
// healthy. Either function may be nil.
type Func struct {
	ComponentName string
	OnStart       func(ctx context.Context) error
	OnStop        func(ctx context.Context) error
}

func (f Func) Name() string { return f.ComponentName }

func (f Func) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

func (f Func) CheckHealth(context.Context) observability.Health {
	return observability.Health{Name: f.ComponentName, Status: observability.HealthStatusUp}
}
