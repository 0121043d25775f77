// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the vgrab
// application. The service never ships spans itself; without an external
// tracer provider everything here is a no-op.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Init installs the W3C trace context propagator. Span export stays on the
// globally registered provider, which defaults to no-op.
func Init() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Tracer returns a tracer for the given name.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
