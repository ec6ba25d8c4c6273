package internaldefs

import (
	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/gateway"
)

// Label is one name/value pair attached to a series.
type Label struct {
	Name  string
	Value string
}

// Series publishes one client counter under a fixed label set.
type Series struct {
	ID     ledger.MetricID
	Labels []Label
}

// CounterFamily is one exported counter name and the series it carries.
type CounterFamily struct {
	Name   string
	Help   string
	Series []Series
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   ledger.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "ledger_audit_dropped_total"

// Label names used across families.
const (
	LabelOutcome   = "outcome"
	LabelOperation = "operation"
	LabelResult    = "result"
	LabelKind      = "kind"
	LabelLE        = "le"
)

var CounterFamilies = []CounterFamily{
	{
		Name: "ledger_boot_total",
		Help: "Startup session checks by outcome.",
		Series: []Series{
			{ID: ledger.MetricBootValidated, Labels: []Label{{LabelOutcome, "validated"}}},
			{ID: ledger.MetricBootRejected, Labels: []Label{{LabelOutcome, "rejected"}}},
			{ID: ledger.MetricBootSkipped, Labels: []Label{{LabelOutcome, "no_token"}}},
		},
	},
	{
		Name: "ledger_credential_exchange_total",
		Help: "Requests that trade credentials for a session token, by operation and result.",
		Series: []Series{
			credential(ledger.MetricLoginSuccess, "login", "success"),
			credential(ledger.MetricLoginFailure, "login", "failure"),
			credential(ledger.MetricSignupSuccess, "signup", "success"),
			credential(ledger.MetricSignupFailure, "signup", "failure"),
			credential(ledger.MetricPasswordChangeSuccess, "password_change", "success"),
			credential(ledger.MetricPasswordChangeFailure, "password_change", "failure"),
		},
	},
	{
		Name:   "ledger_password_reset_request_total",
		Help:   "Reset links requested.",
		Series: []Series{{ID: ledger.MetricPasswordResetRequest}},
	},
	{
		Name:   "ledger_logout_total",
		Help:   "Logouts, excluding sessions expired by the service.",
		Series: []Series{{ID: ledger.MetricLogout}},
	},
	{
		Name: "ledger_request_failures_total",
		Help: "Failed service requests by gateway error kind.",
		Series: []Series{
			requestFailure(ledger.MetricRequestTimeout, gateway.KindTimeout),
			requestFailure(ledger.MetricRequestUnreachable, gateway.KindUnreachable),
			requestFailure(ledger.MetricRequestClientError, gateway.KindClientStatus),
			requestFailure(ledger.MetricRequestServerError, gateway.KindServerStatus),
		},
	},
	{
		Name:   "ledger_validation_rejected_total",
		Help:   "Forms rejected before anything was sent.",
		Series: []Series{{ID: ledger.MetricValidationRejected}},
	},
}

func credential(id ledger.MetricID, op, result string) Series {
	return Series{ID: id, Labels: []Label{{LabelOperation, op}, {LabelResult, result}}}
}

func requestFailure(id ledger.MetricID, kind gateway.Kind) Series {
	return Series{ID: id, Labels: []Label{{LabelKind, kind.String()}}}
}

var HistogramDefs = []HistogramDef{
	{ID: ledger.MetricRequestLatency, Name: "ledger_request_latency_seconds", Help: "Service request latency."},
}

// HistogramBounds are the upper bounds of the client's latency buckets, in
// seconds, formatted as le label values.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
