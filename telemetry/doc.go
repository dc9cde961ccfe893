// Package telemetry wires structured logging, OpenTelemetry metrics,
// and tracing for the cache subsystem.
//
// It provides a Provider bundling a Meter, Tracer, and Logger behind a
// single lifecycle, exporter factories for prometheus/otlp/stdout, and
// a JSON logger with automatic redaction of sensitive fields.
package telemetry
