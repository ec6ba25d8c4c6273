package flows

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type call struct {
	method string
	path   string
	body   any
}

type stubRequester struct {
	mu     sync.Mutex
	calls  []call
	tokens map[string]string
	errs   map[string]error
}

func (s *stubRequester) record(method, path string, body, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{method: method, path: path, body: body})
	if err := s.errs[path]; err != nil {
		return err
	}
	if p, ok := out.(*tokenPayload); ok {
		p.Token = s.tokens[path]
	}
	return nil
}

func (s *stubRequester) Get(_ context.Context, path string, out any) error {
	return s.record("GET", path, nil, out)
}

func (s *stubRequester) Post(_ context.Context, path string, body, out any) error {
	return s.record("POST", path, body, out)
}

type memStore struct {
	token    string
	ok       bool
	getErr   error
	setErr   error
	clearErr error
	clears   int
}

func (m *memStore) Get(context.Context) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	return m.token, m.ok, nil
}

func (m *memStore) Set(_ context.Context, token string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.token, m.ok = token, true
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.clears++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.token, m.ok = "", false
	return nil
}

type recorder struct {
	metrics []int
	events  []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		MetricInc: func(id int) { r.metrics = append(r.metrics, id) },
		EmitAudit: func(_ context.Context, event string, success bool, _ error, _ func() map[string]string) {
			if success {
				r.events = append(r.events, event+":ok")
				return
			}
			r.events = append(r.events, event+":fail")
		},
	}
}

var errTransport = errors.New("transport")
var errRejected = errors.New("rejected")

func bootDeps(store *memStore, req *stubRequester, rec *recorder) BootDeps {
	return BootDeps{
		Store:       store,
		Requester:   req,
		IsTransport: func(err error) bool { return errors.Is(err, errTransport) },
		Hooks:       rec.hooks(),
		Metrics:     BootMetrics{Validated: 1, Rejected: 2, Skipped: 3},
		Events:      BootEvents{Restored: "restored", Rejected: "rejected"},
	}
}

func TestRunBootNoTokenMakesNoRequest(t *testing.T) {
	store := &memStore{}
	req := &stubRequester{}
	rec := &recorder{}

	res := RunBoot(context.Background(), bootDeps(store, req, rec))
	if res.Outcome != BootNoToken {
		t.Fatalf("expected BootNoToken, got %v", res.Outcome)
	}
	if len(req.calls) != 0 {
		t.Fatalf("expected no requests, got %d", len(req.calls))
	}
	if len(rec.metrics) != 1 || rec.metrics[0] != 3 {
		t.Fatalf("expected skipped metric, got %v", rec.metrics)
	}
}

func TestRunBootValidated(t *testing.T) {
	store := &memStore{token: "abc", ok: true}
	req := &stubRequester{tokens: map[string]string{PathValidate: "abc"}}
	rec := &recorder{}

	res := RunBoot(context.Background(), bootDeps(store, req, rec))
	if res.Outcome != BootValidated || res.Err != nil {
		t.Fatalf("expected BootValidated, got %+v", res)
	}
	if len(req.calls) != 1 || req.calls[0].path != PathValidate || req.calls[0].method != "GET" {
		t.Fatalf("expected one validation request, got %+v", req.calls)
	}
	if store.clears != 0 || store.token != "abc" {
		t.Fatalf("validated token must stay, clears=%d token=%q", store.clears, store.token)
	}
	if len(rec.events) != 1 || rec.events[0] != "restored:ok" {
		t.Fatalf("unexpected events %v", rec.events)
	}
}

func TestRunBootRejectedClearsToken(t *testing.T) {
	for name, cause := range map[string]error{"rejected": errRejected, "transport": errTransport} {
		t.Run(name, func(t *testing.T) {
			store := &memStore{token: "abc", ok: true}
			req := &stubRequester{errs: map[string]error{PathValidate: cause}}
			rec := &recorder{}

			res := RunBoot(context.Background(), bootDeps(store, req, rec))
			if res.Outcome != BootRejected || !errors.Is(res.Err, cause) || !res.Cleared {
				t.Fatalf("unexpected result %+v", res)
			}
			if store.ok {
				t.Fatalf("token must be cleared")
			}
		})
	}
}

func TestRunBootKeepsTokenOnTransportErrorWhenConfigured(t *testing.T) {
	store := &memStore{token: "abc", ok: true}
	req := &stubRequester{errs: map[string]error{PathValidate: errTransport}}
	deps := bootDeps(store, req, &recorder{})
	deps.KeepTokenOnTransportError = true

	res := RunBoot(context.Background(), deps)
	if res.Outcome != BootRejected || res.Cleared {
		t.Fatalf("unexpected result %+v", res)
	}
	if !store.ok || store.token != "abc" {
		t.Fatalf("token must be kept on transport failure")
	}

	req.errs[PathValidate] = errRejected
	res = RunBoot(context.Background(), deps)
	if !res.Cleared || store.ok {
		t.Fatalf("a verdict from the service must still clear the token, got %+v", res)
	}
}

func TestRunBootUnreadableStore(t *testing.T) {
	store := &memStore{getErr: errors.New("corrupt")}
	req := &stubRequester{}

	res := RunBoot(context.Background(), bootDeps(store, req, &recorder{}))
	if res.Outcome != BootNoToken || res.Err == nil || !res.Cleared {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(req.calls) != 0 {
		t.Fatalf("expected no requests")
	}
}

func credentialDeps(store *memStore, req *stubRequester, rec *recorder) CredentialDeps {
	return CredentialDeps{
		Requester: req,
		Store:     store,
		Hooks:     rec.hooks(),
		Metrics:   CredentialMetrics{LoginSuccess: 10, LoginFailure: 11, SignupSuccess: 12, SignupFailure: 13},
		Events:    CredentialEvents{LoginSuccess: "login", LoginFailure: "login", SignupSuccess: "signup", SignupFailure: "signup"},
	}
}

func TestRunLoginStoresToken(t *testing.T) {
	store := &memStore{}
	req := &stubRequester{tokens: map[string]string{PathLogin: "xyz"}}
	rec := &recorder{}

	token, err := RunLogin(context.Background(), "a@b.com", "pw1", credentialDeps(store, req, rec))
	if err != nil || token != "xyz" {
		t.Fatalf("expected xyz, got %q err=%v", token, err)
	}
	if store.token != "xyz" {
		t.Fatalf("token not persisted")
	}
	body, _ := json.Marshal(req.calls[0].body)
	if string(body) != `{"email":"a@b.com","password":"pw1"}` {
		t.Fatalf("unexpected body %s", body)
	}
	if len(rec.metrics) != 1 || rec.metrics[0] != 10 {
		t.Fatalf("unexpected metrics %v", rec.metrics)
	}
}

func TestRunLoginFailures(t *testing.T) {
	emptyToken := errors.New("empty")
	persist := errors.New("persist")

	t.Run("rejected", func(t *testing.T) {
		store := &memStore{}
		req := &stubRequester{errs: map[string]error{PathLogin: errRejected}}
		if _, err := RunLogin(context.Background(), "a", "b", credentialDeps(store, req, &recorder{})); !errors.Is(err, errRejected) {
			t.Fatalf("expected errRejected, got %v", err)
		}
		if store.ok {
			t.Fatalf("nothing must be stored")
		}
	})

	t.Run("empty token", func(t *testing.T) {
		store := &memStore{}
		deps := credentialDeps(store, &stubRequester{}, &recorder{})
		deps.Errors.EmptyToken = emptyToken
		if _, err := RunLogin(context.Background(), "a", "b", deps); !errors.Is(err, emptyToken) {
			t.Fatalf("expected emptyToken, got %v", err)
		}
	})

	t.Run("persist", func(t *testing.T) {
		store := &memStore{setErr: errors.New("disk full")}
		deps := credentialDeps(store, &stubRequester{tokens: map[string]string{PathLogin: "xyz"}}, &recorder{})
		deps.Errors.PersistToken = persist
		if _, err := RunLogin(context.Background(), "a", "b", deps); !errors.Is(err, persist) {
			t.Fatalf("expected persist error, got %v", err)
		}
	})
}

func TestRunSignup(t *testing.T) {
	store := &memStore{}
	req := &stubRequester{tokens: map[string]string{PathSignup: "new"}}
	rec := &recorder{}

	token, err := RunSignup(context.Background(), SignupBody{Name: "N", Balance: "12.50"}, credentialDeps(store, req, rec))
	if err != nil || token != "new" || store.token != "new" {
		t.Fatalf("unexpected token=%q err=%v stored=%q", token, err, store.token)
	}
	body, _ := json.Marshal(req.calls[0].body)
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded["balance"] != 12.5 {
		t.Fatalf("balance must be a JSON number, got %#v", decoded["balance"])
	}

	req.errs = map[string]error{PathSignup: errRejected}
	if _, err := RunSignup(context.Background(), SignupBody{}, credentialDeps(&memStore{}, req, rec)); !errors.Is(err, errRejected) {
		t.Fatalf("expected errRejected, got %v", err)
	}
	if rec.metrics[len(rec.metrics)-1] != 13 {
		t.Fatalf("expected signup failure metric, got %v", rec.metrics)
	}
}

func TestRunChangePassword(t *testing.T) {
	store := &memStore{}
	req := &stubRequester{tokens: map[string]string{PathLogin: "fresh"}}
	deps := ChangePasswordDeps{Requester: req, Login: credentialDeps(store, req, &recorder{})}

	res := RunChangePassword(context.Background(), ChangePasswordRequest{ChangePasswordToken: "t", Email: "a@b.com", Password: "pw"}, deps)
	if res.Err != nil || res.Token != "fresh" || store.token != "fresh" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(req.calls) != 2 || req.calls[0].path != PathChangePassword || req.calls[1].path != PathLogin {
		t.Fatalf("expected change then login, got %+v", req.calls)
	}

	req.calls = nil
	req.errs = map[string]error{PathChangePassword: errRejected}
	res = RunChangePassword(context.Background(), ChangePasswordRequest{Email: "a@b.com"}, deps)
	if res.Stage != StageChange || len(req.calls) != 1 {
		t.Fatalf("expected change-stage failure without login, got %+v calls=%d", res, len(req.calls))
	}

	req.errs = map[string]error{PathLogin: errRejected}
	res = RunChangePassword(context.Background(), ChangePasswordRequest{Email: "a@b.com"}, deps)
	if res.Stage != StageLogin || !errors.Is(res.Err, errRejected) {
		t.Fatalf("expected login-stage failure, got %+v", res)
	}
}

func TestRunForgotPassword(t *testing.T) {
	req := &stubRequester{}
	rec := &recorder{}
	if err := RunForgotPassword(context.Background(), "a@b.com", PasswordResetDeps{Requester: req, Hooks: rec.hooks(), Event: "reset"}); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	body, _ := json.Marshal(req.calls[0].body)
	if string(body) != `{"email":"a@b.com"}` {
		t.Fatalf("unexpected body %s", body)
	}
	if rec.events[0] != "reset:ok" {
		t.Fatalf("unexpected events %v", rec.events)
	}
}

func TestRunLogout(t *testing.T) {
	store := &memStore{token: "abc", ok: true}
	if err := RunLogout(context.Background(), LogoutDeps{Store: store}); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	if err := RunLogout(context.Background(), LogoutDeps{Store: store}); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if store.ok || store.clears != 2 {
		t.Fatalf("expected cleared store, ok=%v clears=%d", store.ok, store.clears)
	}

	failing := &memStore{clearErr: errors.New("io")}
	if err := RunLogout(context.Background(), LogoutDeps{Store: failing}); err == nil {
		t.Fatalf("expected clear error to be returned")
	}
}
