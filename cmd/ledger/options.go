package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/gateway"
)

const (
	envAPIURL            = "LEDGER_API_URL"
	envSessionPassphrase = "LEDGER_SESSION_PASSPHRASE"

	backendFile  = "file"
	backendRedis = "redis"
)

// options holds the global flags.
type options struct {
	configPath     string
	apiURL         string
	sessionDir     string
	sessionBackend string
	redisAddr      string
	timeout        time.Duration
	verbosity      int
	printMetrics   bool
	auditLog       string
}

// fileConfig is the YAML config file.
type fileConfig struct {
	APIURL  string `json:"apiUrl,omitempty"`
	Timeout string `json:"timeout,omitempty"`
	Session struct {
		Backend     string `json:"backend,omitempty"`
		Dir         string `json:"dir,omitempty"`
		RedisAddr   string `json:"redisAddr,omitempty"`
		RedisPrefix string `json:"redisPrefix,omitempty"`
	} `json:"session,omitempty"`
	AuditLog  string `json:"auditLog,omitempty"`
	Verbosity int    `json:"verbosity,omitempty"`
}

// settings is the result of layering defaults, the config file, the
// environment, and flags, in that order.
type settings struct {
	client         ledger.Config
	sessionBackend string
	sessionDir     string
	redisAddr      string
	redisPrefix    string
	passphrase     string
	verbosity      int
	auditLog       string
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ledger"
	}
	return filepath.Join(dir, "ledger")
}

func bindGlobalFlags(f *pflag.FlagSet, o *options) {
	dir := defaultConfigDir()
	f.StringVar(&o.configPath, "config", filepath.Join(dir, "config.yaml"), "Path to the YAML config file")
	f.StringVar(&o.apiURL, "api-url", "", "Base URL of the ledger service (env "+envAPIURL+")")
	f.StringVar(&o.sessionDir, "session-dir", dir, "Directory holding the session file")
	f.StringVar(&o.sessionBackend, "session-backend", backendFile, "Where the session token is kept (file, redis)")
	f.StringVar(&o.redisAddr, "redis-addr", "localhost:6379", "Redis address for --session-backend=redis")
	f.DurationVar(&o.timeout, "timeout", gateway.DefaultTimeout, "Per-request timeout")
	f.IntVarP(&o.verbosity, "verbosity", "v", 0, "Log verbosity; 1 and above logs requests")
	f.BoolVar(&o.printMetrics, "print-metrics", false, "Print client metrics to stderr on exit")
	f.StringVar(&o.auditLog, "audit-log", "", "Append audit events as JSON lines to this file")
}

func (o *options) resolve(cmd *cobra.Command) (settings, error) {
	s := settings{
		client:         ledger.DefaultConfig(),
		sessionBackend: backendFile,
		sessionDir:     o.sessionDir,
		redisAddr:      o.redisAddr,
		redisPrefix:    "ledger",
	}
	flags := cmd.Flags()

	fc, err := loadFileConfig(o.configPath, flags.Changed("config"))
	if err != nil {
		return s, err
	}
	if fc.APIURL != "" {
		s.client.Remote.BaseURL = fc.APIURL
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return s, fmt.Errorf("config %s: timeout: %w", o.configPath, err)
		}
		s.client.Remote.Timeout = d
	}
	if fc.Session.Backend != "" {
		s.sessionBackend = fc.Session.Backend
	}
	if fc.Session.Dir != "" {
		s.sessionDir = fc.Session.Dir
	}
	if fc.Session.RedisAddr != "" {
		s.redisAddr = fc.Session.RedisAddr
	}
	if fc.Session.RedisPrefix != "" {
		s.redisPrefix = fc.Session.RedisPrefix
	}
	s.auditLog = fc.AuditLog
	s.verbosity = fc.Verbosity

	if v := strings.TrimSpace(os.Getenv(envAPIURL)); v != "" {
		s.client.Remote.BaseURL = v
	}
	s.passphrase = os.Getenv(envSessionPassphrase)

	if flags.Changed("api-url") {
		s.client.Remote.BaseURL = o.apiURL
	}
	if flags.Changed("timeout") {
		s.client.Remote.Timeout = o.timeout
	}
	if flags.Changed("session-backend") {
		s.sessionBackend = o.sessionBackend
	}
	if flags.Changed("session-dir") {
		s.sessionDir = o.sessionDir
	}
	if flags.Changed("redis-addr") {
		s.redisAddr = o.redisAddr
	}
	if flags.Changed("verbosity") {
		s.verbosity = o.verbosity
	}
	if flags.Changed("audit-log") {
		s.auditLog = o.auditLog
	}
	if o.printMetrics {
		s.client.Metrics.Enabled = true
		s.client.Metrics.EnableLatencyHistograms = true
	}
	s.client.Audit.Enabled = s.auditLog != ""

	switch s.sessionBackend {
	case backendFile, backendRedis:
	default:
		return s, fmt.Errorf("unknown session backend %q", s.sessionBackend)
	}
	if s.client.Remote.BaseURL == "" {
		return s, fmt.Errorf("no service URL: set --api-url, %s, or apiUrl in %s", envAPIURL, o.configPath)
	}
	return s, nil
}

// loadFileConfig reads path. A missing file is only an error when the path
// was given explicitly.
func loadFileConfig(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}
