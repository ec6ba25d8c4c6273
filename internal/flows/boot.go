package flows

import (
	"context"
)

// BootOutcome classifies the startup check.
type BootOutcome int

const (
	// BootNoToken means nothing was persisted; no request was sent.
	BootNoToken BootOutcome = iota + 1
	// BootValidated means the service accepted the persisted token.
	BootValidated
	// BootRejected means validation failed for any reason.
	BootRejected
)

// BootMetrics carries metric IDs needed by the boot flow.
type BootMetrics struct {
	Validated int
	Rejected  int
	Skipped   int
}

// BootEvents carries audit event names used by the boot flow.
type BootEvents struct {
	Restored string
	Rejected string
}

// BootDeps captures startup validation dependencies.
type BootDeps struct {
	Store     TokenStore
	Requester Requester

	// KeepTokenOnTransportError leaves the token persisted when validation
	// failed without a verdict from the service.
	KeepTokenOnTransportError bool
	IsTransport               func(error) bool
	DescribeToken             func(token string) []any

	Hooks
	Metrics BootMetrics
	Events  BootEvents
}

// BootResult reports the startup check.
type BootResult struct {
	Outcome BootOutcome
	// Err is the validation or storage failure that led to the outcome, if any.
	Err error
	// Cleared reports whether the persisted token was removed.
	Cleared bool
}

// RunBoot reads the persisted token and, if one exists, validates it with a
// single request. Any failure is reported as BootRejected; the caller demotes
// to logged-out and never surfaces the error to the user.
func RunBoot(ctx context.Context, deps BootDeps) BootResult {
	h := deps.Hooks.withDefaults()
	if deps.IsTransport == nil {
		deps.IsTransport = func(error) bool { return false }
	}
	if deps.DescribeToken == nil {
		deps.DescribeToken = func(string) []any { return nil }
	}

	token, ok, err := deps.Store.Get(ctx)
	if err != nil {
		h.Warn(err, "reading persisted session failed; starting logged out")
		cleared := false
		if clearErr := deps.Store.Clear(ctx); clearErr != nil {
			h.Warn(clearErr, "clearing unreadable session failed")
		} else {
			cleared = true
		}
		h.MetricInc(deps.Metrics.Skipped)
		return BootResult{Outcome: BootNoToken, Err: err, Cleared: cleared}
	}
	if !ok {
		h.MetricInc(deps.Metrics.Skipped)
		return BootResult{Outcome: BootNoToken}
	}

	var payload tokenPayload
	err = deps.Requester.Get(ctx, PathValidate, &payload)
	if err == nil {
		h.MetricInc(deps.Metrics.Validated)
		h.EmitAudit(ctx, deps.Events.Restored, true, nil, nil)
		h.Info("session restored", deps.DescribeToken(token)...)
		return BootResult{Outcome: BootValidated}
	}

	h.MetricInc(deps.Metrics.Rejected)
	transport := deps.IsTransport(err)
	h.EmitAudit(ctx, deps.Events.Rejected, false, err, func() map[string]string {
		if transport {
			return map[string]string{"reason": "transport"}
		}
		return map[string]string{"reason": "rejected"}
	})

	if transport && deps.KeepTokenOnTransportError {
		h.Info("session validation unavailable; keeping token for next start", "error", err.Error())
		return BootResult{Outcome: BootRejected, Err: err}
	}

	h.Info("session validation failed; logging out", "error", err.Error())
	if clearErr := deps.Store.Clear(ctx); clearErr != nil {
		h.Warn(clearErr, "clearing rejected session failed")
		return BootResult{Outcome: BootRejected, Err: err}
	}
	return BootResult{Outcome: BootRejected, Err: err, Cleared: true}
}
