package flows

import "context"

// LogoutDeps captures logout dependencies. Logout never touches the network.
type LogoutDeps struct {
	Store TokenStore

	Hooks
	Metric int
	Event  string
}

// RunLogout clears the persisted token. The caller drops to logged-out
// whatever this returns.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	h := deps.Hooks.withDefaults()

	err := deps.Store.Clear(ctx)
	if err != nil {
		h.Warn(err, "clearing session on logout failed")
	}
	h.MetricInc(deps.Metric)
	h.EmitAudit(ctx, deps.Event, err == nil, err, nil)
	return err
}
