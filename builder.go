package ledger

import (
	"errors"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/session"
)

// Builder assembles a [Client]. A Builder can be built once.
type Builder struct {
	config    Config
	store     session.Store
	transport http.RoundTripper
	logger    logr.Logger
	auditSink AuditSink
	onChange  func(from, to Status)

	built bool
}

// New returns a Builder with DefaultConfig and an in-memory session store.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Remote.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.Remote.BaseURL = baseURL
	return b
}

// WithStore sets where the session token is persisted. The same store is read
// by every request.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPTransport sets the round tripper used for every request.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.logger = log
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// OnStatusChange registers fn to run after every status transition. It runs
// on the goroutine that caused the transition and must not call back into the
// Client's login or logout methods.
func (b *Builder) OnStatusChange(fn func(from, to Status)) *Builder {
	b.onChange = fn
	return b
}

// Build validates the configuration and returns a Client in StatusUnknown.
// Call [Client.Start] before routing.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = session.NewMemoryStore()
	}
	log := b.logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	log = log.WithName("ledger")

	c := &Client{
		config:   cfg,
		store:    store,
		log:      log,
		metrics:  NewMetrics(cfg.Metrics),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink, log),
		onChange: b.onChange,
		status:   StatusUnknown,
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:           cfg.Remote.BaseURL,
		Timeout:           cfg.Remote.Timeout,
		UserAgent:         cfg.Remote.UserAgent,
		AttachEmptyBearer: cfg.Remote.AttachEmptyBearer,
		Transport:         b.transport,
		Logger:            log,
		Observer:          gateway.ObserverFunc(c.observeRequest),
	}, store)
	if err != nil {
		c.audit.Close()
		return nil, err
	}
	c.gateway = gw

	b.built = true
	return c, nil
}
