package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request unless Config.Timeout overrides it.
const DefaultTimeout = 10 * time.Second

const (
	maxResponseBytes = 1 << 20
	legacyEmptyToken = "null"
	headerRequestID  = "X-Request-ID"
)

// TokenSource yields the current session token. session.Store satisfies it.
type TokenSource interface {
	Get(ctx context.Context) (token string, ok bool, err error)
}

// Observer is told about every completed request.
type Observer interface {
	ObserveRequest(method, path string, d time.Duration, err error)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(method, path string, d time.Duration, err error)

func (f ObserverFunc) ObserveRequest(method, path string, d time.Duration, err error) {
	f(method, path, d, err)
}

// Config controls a [Gateway].
type Config struct {
	// BaseURL of the remote service, e.g. "https://ledger.example.com/api".
	BaseURL string
	// Timeout per request. Zero selects DefaultTimeout.
	Timeout time.Duration
	// UserAgent sent on every request.
	UserAgent string
	// AttachEmptyBearer sends "Authorization: Bearer null" when no token is
	// stored, for services that expect the header on every call. By default the
	// header is omitted.
	AttachEmptyBearer bool
	// Transport is the base round tripper. Nil selects http.DefaultTransport.
	Transport http.RoundTripper
	Logger    logr.Logger
	Observer  Observer
}

// Gateway performs authenticated JSON requests against the remote service.
// It is safe for concurrent use.
type Gateway struct {
	base       string
	client     *http.Client
	tokens     TokenSource
	userAgent  string
	emptyToken bool
	log        logr.Logger
	observer   Observer
}

// New returns a Gateway reading tokens from tokens.
func New(cfg Config, tokens TokenSource) (*Gateway, error) {
	if tokens == nil {
		return nil, errors.New("gateway: token source required")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway: base url must be http or https, got %q", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, errors.New("gateway: base url missing host")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Gateway{
		base:       strings.TrimRight(u.String(), "/"),
		client:     &http.Client{Transport: transport, Timeout: timeout},
		tokens:     tokens,
		userAgent:  cfg.UserAgent,
		emptyToken: cfg.AttachEmptyBearer,
		log:        log.WithName("gateway"),
		observer:   cfg.Observer,
	}, nil
}

// Timeout returns the per-request bound.
func (g *Gateway) Timeout() time.Duration {
	return g.client.Timeout
}

// Get issues a GET and decodes the response into out (nil discards it).
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with body encoded as JSON.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with body encoded as JSON.
func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one request. Every failure is an *Error.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	op := method + " " + path
	start := time.Now()

	err := g.do(ctx, method, path, op, body, out)

	if g.observer != nil {
		g.observer.ObserveRequest(method, path, time.Since(start), err)
	}
	return err
}

func (g *Gateway) do(ctx context.Context, method, path, op string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode %s body: %w", op, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base+"/"+strings.TrimLeft(path, "/"), payload)
	if err != nil {
		return fmt.Errorf("gateway: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(headerRequestID, requestID)

	g.attachToken(ctx, req)

	resp, err := g.client.Do(req)
	if err != nil {
		gerr := &Error{Kind: classifyTransport(ctx, err), Op: op, Err: err}
		g.log.V(1).Info("request failed", "op", op, "requestID", requestID, "kind", gerr.Kind.String())
		return gerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		gerr := &Error{Kind: classifyTransport(ctx, err), Op: op, Err: err}
		g.log.V(1).Info("reading response failed", "op", op, "requestID", requestID, "kind", gerr.Kind.String())
		return gerr
	}

	g.log.V(1).Info("request completed", "op", op, "requestID", requestID, "status", resp.StatusCode)

	switch {
	case resp.StatusCode >= 500:
		return &Error{Kind: KindServerStatus, Op: op, Status: resp.StatusCode, Body: data}
	case resp.StatusCode >= 400:
		return &Error{Kind: KindClientStatus, Op: op, Status: resp.StatusCode, Body: data}
	case resp.StatusCode >= 300:
		// Redirects the transport did not follow.
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Body: data, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Body: data, Err: err}
	}
	return nil
}

func (g *Gateway) attachToken(ctx context.Context, req *http.Request) {
	token, ok, err := g.tokens.Get(ctx)
	if err != nil {
		g.log.Error(err, "reading session token failed; sending request without credentials")
		ok = false
	}
	if ok && token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
		return
	}
	if g.emptyToken {
		req.Header.Set("Authorization", "Bearer "+legacyEmptyToken)
	}
}

func classifyTransport(ctx context.Context, err error) Kind {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}
