package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/internal/flows"
	"github.com/MrEthical07/ledger/internal/formcheck"
	"github.com/MrEthical07/ledger/jwt"
	"github.com/MrEthical07/ledger/session"
)

// Client is the session-aware entry point: it restores the persisted session,
// exchanges credentials for tokens, guards navigation and performs the
// protected ledger calls. It is safe for concurrent use.
type Client struct {
	config   Config
	store    session.Store
	gateway  *gateway.Gateway
	log      logr.Logger
	metrics  *Metrics
	audit    *auditDispatcher
	onChange func(from, to Status)

	mu      sync.Mutex
	status  Status
	settled bool

	// writeMu orders token writes against gen and applies the status each write
	// implies. gen changes on every write so a slower operation can tell that the
	// session it started with is gone. Lock order is writeMu then mu.
	writeMu sync.Mutex
	gen     uint64

	boot   singleflight.Group
	closed atomic.Bool
}

// Start resolves the initial status. Without a persisted token it returns
// StatusUnauthenticated and sends nothing. Otherwise it validates the token
// once; any failure logs the client out. Concurrent callers share the one
// validation and later calls return the settled status.
func (c *Client) Start(ctx context.Context) Status {
	if c.ready() != nil {
		return StatusUnauthenticated
	}
	if s, ok := c.settledStatus(); ok {
		return s
	}

	v, _, _ := c.boot.Do("boot", func() (any, error) {
		if s, ok := c.settledStatus(); ok {
			return s, nil
		}
		c.runBoot(ctx)
		return c.Status(), nil
	})
	return v.(Status)
}

func (c *Client) runBoot(ctx context.Context) {
	gen := c.generation()
	res := flows.RunBoot(ctx, flows.BootDeps{
		Store:                     bootStore{c: c, gen: gen},
		Requester:                 c.gateway,
		KeepTokenOnTransportError: c.config.Session.KeepTokenOnTransportError,
		IsTransport:               gateway.IsTransport,
		DescribeToken:             describeToken,
		Hooks:                     c.hooks(),
		Metrics: flows.BootMetrics{
			Validated: int(MetricBootValidated),
			Rejected:  int(MetricBootRejected),
			Skipped:   int(MetricBootSkipped),
		},
		Events: flows.BootEvents{
			Restored: auditEventSessionRestored,
			Rejected: auditEventSessionRejected,
		},
	})

	next := StatusUnauthenticated
	if res.Outcome == flows.BootValidated {
		next = StatusAuthenticated
	}

	c.writeMu.Lock()
	if c.gen != gen {
		// A login or logout wrote the store meanwhile; it owns the status.
		c.writeMu.Unlock()
		return
	}
	if _, settled := c.settledStatus(); settled {
		c.writeMu.Unlock()
		return
	}
	from := c.commitLocked(next)
	c.writeMu.Unlock()
	c.notify(from, next)
}

// Status returns the current status. It is StatusUnknown until Start settles.
func (c *Client) Status() Status {
	if c == nil {
		return StatusUnauthenticated
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Navigate applies [Route] to the current status.
func (c *Client) Navigate(screen Screen) Decision {
	return Route(c.Status(), screen)
}

// Login exchanges credentials for a token. On success the token is persisted,
// the status becomes StatusAuthenticated and the landing screen is returned.
// On failure nothing changes and ScreenLogin is returned.
func (c *Client) Login(ctx context.Context, creds Credentials) (Screen, error) {
	if err := c.ready(); err != nil {
		return ScreenLogin, err
	}
	if err := formcheck.Login(creds.Email, creds.Password); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return ScreenLogin, validationError(err)
	}

	if _, err := flows.RunLogin(ctx, creds.Email, creds.Password, c.credentialDeps()); err != nil {
		c.log.V(1).Info("login failed", "error", err.Error())
		return ScreenLogin, err
	}
	return LandingScreen, nil
}

// Signup creates an account and logs it in, like Login.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (Screen, error) {
	if err := c.ready(); err != nil {
		return ScreenSignup, err
	}
	if err := formcheck.CheckSignup(formcheck.Signup{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		RecordsEmail:         req.RecordsEmail,
		BalanceSet:           req.Balance.Valid,
		UserCreationPassword: req.UserCreationPassword,
	}, formcheck.SignupOptions{RequireGmail: c.config.Validation.RequireGmail}); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return ScreenSignup, validationError(err)
	}

	body := flows.SignupBody{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		EmailPassword:        req.EmailPassword,
		RecordsEmail:         req.RecordsEmail,
		Balance:              json.Number(req.Balance.Decimal.String()),
		UserCreationPassword: req.UserCreationPassword,
	}
	if _, err := flows.RunSignup(ctx, body, c.credentialDeps()); err != nil {
		c.log.V(1).Info("signup failed", "error", err.Error())
		return ScreenSignup, err
	}
	return LandingScreen, nil
}

// ForgotPassword asks the service to mail a reset link to email. The status
// is unchanged.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if err := c.ready(); err != nil {
		return err
	}
	email, err := formcheck.ForgotPassword(email)
	if err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return validationError(err)
	}
	return flows.RunForgotPassword(ctx, email, flows.PasswordResetDeps{
		Requester: c.gateway,
		Hooks:     c.hooks(),
		Metric:    int(MetricPasswordResetRequest),
		Event:     auditEventPasswordResetRequested,
	})
}

// ChangePassword sets a new password using the reset link's token and then
// logs in with it. If the change succeeds but the login does not, the error
// wraps ErrLoginAfterPasswordChange and the password stays changed.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) (Screen, error) {
	if err := c.ready(); err != nil {
		return ScreenChangePassword, err
	}
	if err := formcheck.ChangePassword(req.Email, req.ChangePasswordToken, req.Password, req.PasswordConfirmation); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return ScreenChangePassword, validationError(err)
	}

	res := flows.RunChangePassword(ctx, flows.ChangePasswordRequest{
		ChangePasswordToken: req.ChangePasswordToken,
		Email:               req.Email,
		Password:            req.Password,
	}, flows.ChangePasswordDeps{
		Requester: c.gateway,
		Login:     c.credentialDeps(),
		Hooks:     c.hooks(),
		Metrics: flows.ChangePasswordMetrics{
			Success: int(MetricPasswordChangeSuccess),
			Failure: int(MetricPasswordChangeFailure),
		},
		Event: auditEventPasswordChanged,
	})
	switch res.Stage {
	case flows.StageChange:
		return ScreenChangePassword, res.Err
	case flows.StageLogin:
		return ScreenChangePassword, fmt.Errorf("%w: %w", ErrLoginAfterPasswordChange, res.Err)
	}
	return LandingScreen, nil
}

// Logout clears the persisted token and sets StatusUnauthenticated. The
// status changes even when clearing fails; that error is returned.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return flows.RunLogout(ctx, flows.LogoutDeps{
		Store:  trackedStore{c: c},
		Hooks:  c.hooks(),
		Metric: int(MetricLogout),
		Event:  auditEventLogout,
	})
}

// Token returns the persisted token, if any.
func (c *Client) Token(ctx context.Context) (string, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}
	return c.store.Get(ctx)
}

// SessionInfo decodes the persisted token's claims without verifying them.
// Tokens that are not JWTs return jwt.ErrNotJWT.
func (c *Client) SessionInfo(ctx context.Context) (*jwt.Info, error) {
	token, ok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoToken
	}
	return jwt.Peek(token)
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	if c == nil {
		return nil
	}
	return c.metrics
}

// MetricsSnapshot returns the current counters and histograms. The metrics
// exporters read it on every scrape.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.Metrics().Snapshot()
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close flushes pending audit events. The Client is unusable afterwards.
func (c *Client) Close() {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.audit.Close()
}

func (c *Client) ready() error {
	if c == nil || c.gateway == nil || c.closed.Load() {
		return ErrClientNotReady
	}
	return nil
}

func (c *Client) settledStatus() (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.settled
}

// commitLocked sets the status and returns the previous one. writeMu must be
// held; callers notify after releasing it.
func (c *Client) commitLocked(to Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.status
	c.status = to
	c.settled = true
	return from
}

func (c *Client) notify(from, to Status) {
	if from == to {
		return
	}
	c.log.V(1).Info("status changed", "from", from.String(), "to", to.String())
	if c.onChange != nil {
		c.onChange(from, to)
	}
}

func (c *Client) generation() uint64 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.gen
}

// expire logs out after the service rejected the token, unless the session
// was replaced since gen.
func (c *Client) expire(ctx context.Context, gen uint64) {
	c.writeMu.Lock()
	if c.gen != gen {
		c.writeMu.Unlock()
		return
	}
	err := c.store.Clear(ctx)
	c.gen++
	from := c.commitLocked(StatusUnauthenticated)
	c.writeMu.Unlock()
	c.notify(from, StatusUnauthenticated)

	if err != nil {
		c.log.Error(err, "clearing rejected session failed")
	}
	c.log.Info("service rejected the session token; logged out")
	c.emitAudit(ctx, auditEventSessionExpired, err == nil, err, nil)
}

func (c *Client) credentialDeps() flows.CredentialDeps {
	return flows.CredentialDeps{
		Requester: c.gateway,
		Store:     trackedStore{c: c},
		Hooks:     c.hooks(),
		Metrics: flows.CredentialMetrics{
			LoginSuccess:  int(MetricLoginSuccess),
			LoginFailure:  int(MetricLoginFailure),
			SignupSuccess: int(MetricSignupSuccess),
			SignupFailure: int(MetricSignupFailure),
		},
		Events: flows.CredentialEvents{
			LoginSuccess:  auditEventLoginSuccess,
			LoginFailure:  auditEventLoginFailure,
			SignupSuccess: auditEventSignupSuccess,
			SignupFailure: auditEventSignupFailure,
		},
		Errors: flows.CredentialErrors{
			EmptyToken:   ErrEmptyToken,
			PersistToken: ErrPersistToken,
		},
	}
}

func (c *Client) hooks() flows.Hooks {
	return flows.Hooks{
		MetricInc: func(id int) { c.metrics.Inc(MetricID(id)) },
		EmitAudit: c.emitAudit,
		Info:      func(msg string, kv ...any) { c.log.Info(msg, kv...) },
		Warn:      func(err error, msg string, kv ...any) { c.log.Error(err, msg, kv...) },
	}
}

func (c *Client) observeRequest(method, path string, d time.Duration, err error) {
	c.metrics.Observe(MetricRequestLatency, d)
	switch gateway.KindOf(err) {
	case gateway.KindTimeout:
		c.metrics.Inc(MetricRequestTimeout)
	case gateway.KindUnreachable:
		c.metrics.Inc(MetricRequestUnreachable)
	case gateway.KindClientStatus:
		c.metrics.Inc(MetricRequestClientError)
	case gateway.KindServerStatus:
		c.metrics.Inc(MetricRequestServerError)
	}
}

// describeToken returns log fields for token. The token itself is never logged.
func describeToken(token string) []any {
	info, err := jwt.Peek(token)
	if err != nil {
		return []any{"jwt", false}
	}
	kv := []any{"jwt", true, "subject", info.Subject}
	if !info.ExpiresAt.IsZero() {
		kv = append(kv, "expires", info.ExpiresAt)
	}
	return kv
}

// trackedStore bumps the client's generation on every write and applies the
// matching status before releasing writeMu. A failed Set changes nothing; a
// Clear always logs out.
type trackedStore struct {
	c *Client
}

func (s trackedStore) Get(ctx context.Context) (string, bool, error) {
	return s.c.store.Get(ctx)
}

func (s trackedStore) Set(ctx context.Context, token string) error {
	s.c.writeMu.Lock()
	if err := s.c.store.Set(ctx, token); err != nil {
		s.c.writeMu.Unlock()
		return err
	}
	s.c.gen++
	from := s.c.commitLocked(StatusAuthenticated)
	s.c.writeMu.Unlock()
	s.c.notify(from, StatusAuthenticated)
	return nil
}

func (s trackedStore) Clear(ctx context.Context) error {
	s.c.writeMu.Lock()
	s.c.gen++
	err := s.c.store.Clear(ctx)
	from := s.c.commitLocked(StatusUnauthenticated)
	s.c.writeMu.Unlock()
	s.c.notify(from, StatusUnauthenticated)
	return err
}

// bootStore skips the clear after a failed validation when a login or logout
// wrote the store since validation began.
type bootStore struct {
	c   *Client
	gen uint64
}

func (s bootStore) Get(ctx context.Context) (string, bool, error) {
	return s.c.store.Get(ctx)
}

func (s bootStore) Set(ctx context.Context, token string) error {
	return trackedStore{c: s.c}.Set(ctx, token)
}

func (s bootStore) Clear(ctx context.Context) error {
	s.c.writeMu.Lock()
	defer s.c.writeMu.Unlock()
	if s.c.gen != s.gen {
		return nil
	}
	return s.c.store.Clear(ctx)
}
