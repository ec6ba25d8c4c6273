// Package otel publishes ledger client metrics through OpenTelemetry.
//
// Each counter family becomes one Int64ObservableCounter whose series are told
// apart by attributes (operation, result, kind, outcome). Latency buckets are
// one gauge keyed by an le attribute. Callers own the MeterProvider and pass
// in a Meter.
package otel
