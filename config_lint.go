package ledger

import (
	"net"
	"net/url"
)

// LintWarning is a setting that validates but is probably not what a
// production deployment wants.
type LintWarning struct {
	Code    string
	Message string
}

// LintResult is the list of warnings from [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (ws LintResult) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports risky but valid settings. It does not call Validate.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if u, err := url.Parse(c.Remote.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		add("insecure_transport", "tokens are sent over plain http to a non-local host")
	}
	if c.Remote.AttachEmptyBearer {
		add("empty_bearer", "requests without a session carry \"Bearer null\"")
	}
	if c.Session.KeepTokenOnTransportError {
		add("keep_token_on_transport_error", "an unverified token survives restarts while the service is unreachable")
	}
	if !c.Session.LogoutOnUnauthorized {
		add("stale_session", "a rejected token keeps the client authenticated until logout")
	}
	if !c.Validation.RequireGmail {
		add("gmail_check_disabled", "signup accepts addresses the service cannot send receipts from")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "session transitions are not audited")
	}
	return ws
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
