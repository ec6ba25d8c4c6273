package flows

import "context"

// Remote service paths.
const (
	PathValidate       = "/user/validate-token"
	PathLogin          = "/user/login"
	PathSignup         = "/user/create"
	PathForgotPassword = "/user/forgot-password"
	PathChangePassword = "/user/change-password"
	PathBalance        = "/user/balance"
	PathTransactions   = "/transaction/all"
	PathCreate         = "/transaction/create"
	PathUpdate         = "/transaction/update"
	PathTransaction    = "/transaction/"
)

// Requester is the slice of the request gateway used by flows.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// TokenStore is the slice of the session store used by flows.
type TokenStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Hooks carries the ambient callbacks every flow reports through. Nil
// callbacks are replaced with no-ops.
type Hooks struct {
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, err error, metadata func() map[string]string)
	Info      func(msg string, kv ...any)
	Warn      func(err error, msg string, kv ...any)
}

func (h Hooks) withDefaults() Hooks {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, error, func() map[string]string) {}
	}
	if h.Info == nil {
		h.Info = func(string, ...any) {}
	}
	if h.Warn == nil {
		h.Warn = func(error, string, ...any) {}
	}
	return h
}

type tokenPayload struct {
	Token string `json:"token"`
}
