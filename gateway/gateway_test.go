package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/ledger/session"
)

type seenRequest struct {
	method    string
	path      string
	auth      string
	hasAuth   bool
	requestID string
	userAgent string
	body      string
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, chan seenRequest) {
	t.Helper()
	seen := make(chan seenRequest, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, hasAuth := r.Header["Authorization"]
		seen <- seenRequest{
			method:    r.Method,
			path:      r.URL.Path,
			auth:      r.Header.Get("Authorization"),
			hasAuth:   hasAuth,
			requestID: r.Header.Get("X-Request-ID"),
			userAgent: r.Header.Get("User-Agent"),
			body:      string(body),
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newTestGateway(t *testing.T, cfg Config, tokens TokenSource) *Gateway {
	t.Helper()
	gw, err := New(cfg, tokens)
	require.NoError(t, err)
	return gw
}

func TestGatewayAttachesBearerToken(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"abc"}`))
	})
	gw := newTestGateway(t, Config{BaseURL: srv.URL, UserAgent: "ledger-test"}, session.NewMemoryStoreWithToken("abc"))

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, gw.Get(context.Background(), "/user/validate-token", &out))
	require.Equal(t, "abc", out.Token)

	req := <-seen
	require.Equal(t, http.MethodGet, req.method)
	require.Equal(t, "/user/validate-token", req.path)
	require.Equal(t, "Bearer abc", req.auth)
	require.NotEmpty(t, req.requestID)
	require.Equal(t, "ledger-test", req.userAgent)
}

func TestGatewayOmitsHeaderWithoutToken(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

	require.NoError(t, gw.Post(context.Background(), "/user/forgot-password", map[string]string{"email": "a@b.com"}, nil))

	req := <-seen
	require.False(t, req.hasAuth, "authorization header must be omitted when no token is stored")
	require.JSONEq(t, `{"email":"a@b.com"}`, req.body)
}

func TestGatewayLegacyEmptyBearer(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	gw := newTestGateway(t, Config{BaseURL: srv.URL, AttachEmptyBearer: true}, session.NewMemoryStore())

	require.NoError(t, gw.Get(context.Background(), "/user/balance", nil))
	require.Equal(t, "Bearer null", (<-seen).auth)
}

func TestGatewayReadsTokenSnapshotPerRequest(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	store := session.NewMemoryStore()
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, store)
	ctx := context.Background()

	require.NoError(t, gw.Get(ctx, "/transaction/all", nil))
	require.False(t, (<-seen).hasAuth)

	require.NoError(t, store.Set(ctx, "xyz"))
	require.NoError(t, gw.Get(ctx, "/transaction/all", nil))
	require.Equal(t, "Bearer xyz", (<-seen).auth)
}

type failingTokens struct{}

func (failingTokens) Get(context.Context) (string, bool, error) {
	return "", false, session.ErrStoreUnavailable
}

func TestGatewayProceedsWhenTokenStoreFails(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, failingTokens{})

	require.NoError(t, gw.Get(context.Background(), "/user/balance", nil))
	require.False(t, (<-seen).hasAuth)
}

func TestGatewayRequestIDFromContext(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

	ctx := WithRequestID(context.Background(), "req-42")
	require.NoError(t, gw.Delete(ctx, "/transaction/7", nil))

	req := <-seen
	require.Equal(t, "req-42", req.requestID)
	require.Equal(t, http.MethodDelete, req.method)
	require.Equal(t, "/transaction/7", req.path)
}

func TestGatewayJoinsBasePath(t *testing.T) {
	srv, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	gw := newTestGateway(t, Config{BaseURL: srv.URL + "/api/"}, session.NewMemoryStore())

	require.NoError(t, gw.Put(context.Background(), "transaction/update", map[string]string{"id": "1"}, nil))
	require.Equal(t, "/api/transaction/update", (<-seen).path)
}

func TestGatewayStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		kind     Kind
		sentinel error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, kind: KindClientStatus, sentinel: ErrClientStatus},
		{name: "conflict", status: http.StatusConflict, kind: KindClientStatus, sentinel: ErrClientStatus},
		{name: "server", status: http.StatusInternalServerError, kind: KindServerStatus, sentinel: ErrServerStatus},
		{name: "bad gateway", status: http.StatusBadGateway, kind: KindServerStatus, sentinel: ErrServerStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte("nope"))
			})
			store := session.NewMemoryStoreWithToken("abc")
			gw := newTestGateway(t, Config{BaseURL: srv.URL}, store)

			err := gw.Get(context.Background(), "/user/validate-token", nil)
			require.Error(t, err)
			require.ErrorIs(t, err, tc.sentinel)
			require.Equal(t, tc.kind, KindOf(err))
			require.False(t, IsTransport(err))

			status, ok := StatusCode(err)
			require.True(t, ok)
			require.Equal(t, tc.status, status)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			require.Equal(t, "nope", string(gerr.Body))

			token, ok, err := store.Get(context.Background())
			require.NoError(t, err)
			require.True(t, ok, "gateway must not touch the session store")
			require.Equal(t, "abc", token)
		})
	}
}

func TestGatewayUnfollowedRedirectIsDecodeError(t *testing.T) {
	for _, status := range []int{http.StatusNotModified, http.StatusFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

			err := gw.Get(context.Background(), "/user/balance", nil)
			require.ErrorIs(t, err, ErrDecode)
			require.NotErrorIs(t, err, ErrClientStatus)
			require.Equal(t, KindDecode, KindOf(err))

			got, ok := StatusCode(err)
			require.True(t, ok)
			require.Equal(t, status, got)
		})
	}
}

func TestGatewayTimeout(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	gw := newTestGateway(t, Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, session.NewMemoryStore())
	require.Equal(t, 50*time.Millisecond, gw.Timeout())

	err := gw.Delete(context.Background(), "/transaction/1", nil)
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, IsTransport(err))
	_, ok := StatusCode(err)
	require.False(t, ok)
}

func TestGatewayCallerDeadline(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.Equal(t, KindTimeout, KindOf(gw.Get(ctx, "/user/balance", nil)))
}

func TestGatewayCanceled(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := gw.Get(ctx, "/user/balance", nil)
	require.ErrorIs(t, err, ErrCanceled)
}

func TestGatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gw := newTestGateway(t, Config{BaseURL: url}, session.NewMemoryStore())
	err := gw.Get(context.Background(), "/user/balance", nil)
	require.ErrorIs(t, err, ErrUnreachable)
	require.True(t, IsTransport(err))
}

func TestGatewayDecodeErrors(t *testing.T) {
	var calls atomic.Int32
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"balance":`))
			return
		}
	})
	gw := newTestGateway(t, Config{BaseURL: srv.URL}, session.NewMemoryStore())

	var out map[string]any
	require.ErrorIs(t, gw.Get(context.Background(), "/user/balance", &out), ErrDecode)
	require.ErrorIs(t, gw.Get(context.Background(), "/user/balance", &out), ErrDecode, "empty 2xx body with a destination is a decode error")
}

func TestGatewayObserver(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	var observed []string
	var lastErr error
	gw := newTestGateway(t, Config{
		BaseURL: srv.URL,
		Observer: ObserverFunc(func(method, path string, d time.Duration, err error) {
			observed = append(observed, method+" "+path)
			lastErr = err
			require.GreaterOrEqual(t, d, time.Duration(0))
		}),
	}, session.NewMemoryStore())

	err := gw.Get(context.Background(), "/transaction/x", nil)
	require.Error(t, err)
	require.Equal(t, []string{"GET /transaction/x"}, observed)
	require.Equal(t, err, lastErr)
}

func TestNewValidatesConfig(t *testing.T) {
	store := session.NewMemoryStore()
	for _, base := range []string{"", "ftp://host", "http://", "://bad"} {
		_, err := New(Config{BaseURL: base}, store)
		require.Error(t, err, "base %q", base)
	}
	_, err := New(Config{BaseURL: "http://localhost"}, nil)
	require.Error(t, err)

	gw, err := New(Config{BaseURL: "http://localhost"}, store)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, gw.Timeout())
}

func TestErrorMessages(t *testing.T) {
	err := &Error{Kind: KindClientStatus, Op: "POST /user/login", Status: 401}
	require.Equal(t, "POST /user/login: status 401", err.Error())

	err = &Error{Kind: KindTimeout, Op: "GET /user/balance", Err: context.DeadlineExceeded}
	require.Contains(t, err.Error(), "timeout")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, ErrUnreachable)

	require.Equal(t, Kind(0), KindOf(errors.New("other")))
	require.Equal(t, "unknown", Kind(0).String())
}
