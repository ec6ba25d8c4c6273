package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/metrics/export/prometheus"
	"github.com/MrEthical07/ledger/session"
)

var errNotLoggedIn = errors.New("please log in first")

// app is one invocation's client and its resources.
type app struct {
	client  *ledger.Client
	log     logr.Logger
	out     io.Writer
	in      io.Reader
	reader  *bufio.Reader
	errOut  io.Writer
	metrics bool
	closers []func() error
}

func newApp(cmd *cobra.Command, o *options) (*app, error) {
	s, err := o.resolve(cmd)
	if err != nil {
		return nil, err
	}

	stdr.SetVerbosity(s.verbosity)
	log := stdr.New(stdlog.New(cmd.ErrOrStderr(), "", stdlog.LstdFlags)).WithName("ledger-cli")

	a := &app{
		log:     log,
		out:     cmd.OutOrStdout(),
		in:      cmd.InOrStdin(),
		errOut:  cmd.ErrOrStderr(),
		metrics: o.printMetrics,
	}

	store, err := a.openStore(s)
	if err != nil {
		a.close()
		return nil, err
	}

	b := ledger.New().WithConfig(s.client).WithStore(store).WithLogger(log)
	var auditSink *ledger.JSONWriterSink
	if s.auditLog != "" {
		f, err := os.OpenFile(s.auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		auditSink = ledger.NewJSONWriterSink(f)
		b.WithAuditSink(auditSink)
	}

	client, err := b.Build()
	if err != nil {
		a.close()
		return nil, err
	}
	a.client = client
	// Closed first so pending audit events reach the file.
	a.closers = append([]func() error{
		func() error { client.Close(); return nil },
		auditSink.Err,
	}, a.closers...)

	for _, w := range s.client.Lint() {
		log.V(1).Info("config warning", "code", w.Code, "message", w.Message)
	}
	return a, nil
}

func (a *app) openStore(s settings) (session.Store, error) {
	switch s.sessionBackend {
	case backendRedis:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.redisAddr}})
		a.closers = append(a.closers, rdb.Close)
		a.log.V(1).Info("using redis session store", "addr", s.redisAddr, "prefix", s.redisPrefix)
		return session.NewRedisStore(rdb, s.redisPrefix, session.DefaultKey, 0), nil
	default:
		var opts []session.FileOption
		if s.passphrase != "" {
			sealer, err := session.NewSealer(s.passphrase, session.KDFParams{})
			if err != nil {
				return nil, err
			}
			opts = append(opts, session.WithSealer(sealer))
		}
		store, err := session.NewFileStore(s.sessionDir, session.DefaultKey, opts...)
		if err != nil {
			return nil, err
		}
		a.log.V(1).Info("using file session store", "path", store.Path(), "sealed", s.passphrase != "")
		return store, nil
	}
}

// enter restores the session and routes to screen. It returns the screen to
// show, or errNotLoggedIn when a protected screen redirects to login.
func (a *app) enter(ctx context.Context, screen ledger.Screen) (ledger.Decision, error) {
	a.client.Start(ctx)
	d := a.client.Navigate(screen)
	if screen.Protected() && d.Action == ledger.ActionRedirect && d.Screen == ledger.ScreenLogin {
		return d, errNotLoggedIn
	}
	return d, nil
}

func (a *app) close() {
	if a.metrics && a.client != nil {
		fmt.Fprint(a.errOut, prometheus.NewPrometheusExporter(a.client).Render())
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Error(err, "closing")
		}
	}
	a.closers = nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// run builds an app for cmd, runs fn, and releases the app.
func run(o *options, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd, o)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a)
	}
}
