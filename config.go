package ledger

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/ledger/gateway"
)

// Config controls a [Client]. Obtain one from DefaultConfig and adjust it;
// the zero value does not validate.
type Config struct {
	Remote     RemoteConfig
	Session    SessionConfig
	Validation ValidationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// RemoteConfig describes the remote ledger service.
type RemoteConfig struct {
	// BaseURL of the service, e.g. "http://localhost:8080".
	BaseURL string
	// Timeout bounds every request.
	Timeout   time.Duration
	UserAgent string
	// AttachEmptyBearer sends "Authorization: Bearer null" when no token is
	// stored. Off by default; the header is then omitted.
	AttachEmptyBearer bool
}

// SessionConfig tunes how the client reacts to token failures.
type SessionConfig struct {
	// KeepTokenOnTransportError keeps the persisted token when startup
	// validation failed only because the service could not be reached. The
	// status still becomes StatusUnauthenticated for this run.
	KeepTokenOnTransportError bool
	// LogoutOnUnauthorized logs the client out when a protected request is
	// answered with 401.
	LogoutOnUnauthorized bool
}

// ValidationConfig tunes the pre-flight form checks.
type ValidationConfig struct {
	// RequireGmail restricts signup addresses to @gmail.com, since the service
	// sends receipts through that mailbox.
	RequireGmail bool
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the defaults. Remote.BaseURL must still be set.
func DefaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Timeout:   gateway.DefaultTimeout,
			UserAgent: "ledger-client",
		},
		Session: SessionConfig{
			KeepTokenOnTransportError: false,
			LogoutOnUnauthorized:      true,
		},
		Validation: ValidationConfig{
			RequireGmail: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Remote.BaseURL = strings.TrimSpace(cfg.Remote.BaseURL)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return errors.New("Remote BaseURL is required")
	}
	u, err := url.Parse(c.Remote.BaseURL)
	if err != nil {
		return errors.New("Remote BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Remote BaseURL must use http or https")
	}
	if u.Host == "" {
		return errors.New("Remote BaseURL must include a host")
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("Remote Timeout must be > 0")
	}
	if c.Remote.Timeout > 5*time.Minute {
		return errors.New("Remote Timeout must be <= 5m")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
