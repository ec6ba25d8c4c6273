// Package prometheus renders ledger client metrics in Prometheus text
// exposition format.
//
// Counters are grouped into labeled families such as
// ledger_request_failures_total{kind="timeout"}; the single histogram is
// ledger_request_latency_seconds. Nothing is registered globally; callers
// mount Handler where they like.
package prometheus
