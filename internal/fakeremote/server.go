// Package fakeremote is an in-memory stand-in for the ledger service.
//
// It serves every endpoint the client calls, issues HS256 session tokens,
// keeps Argon2id password hashes and per-user transactions, and lets tests
// force a status code or a delay on any route. It exists to exercise the
// client end to end; it is not the real service.
package fakeremote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/MrEthical07/ledger/internal/rate"
	"github.com/MrEthical07/ledger/jwt"
	"github.com/MrEthical07/ledger/password"
)

// Route names, usable with SetFault and Calls.
const (
	RouteValidate       = "validate"
	RouteLogin          = "login"
	RouteSignup         = "signup"
	RouteForgotPassword = "forgot-password"
	RouteChangePassword = "change-password"
	RouteList           = "list"
	RouteGet            = "get"
	RouteCreate         = "create"
	RouteUpdate         = "update"
	RouteDelete         = "delete"
	RouteBalance        = "balance"
)

// DefaultSignupSecret is the special signup password when Config leaves it empty.
const DefaultSignupSecret = "letmein"

// Config controls a Server. The zero value is usable.
type Config struct {
	// SignupSecret must accompany every signup.
	SignupSecret string
	// TokenSecret signs session tokens. Empty selects a fixed development key.
	TokenSecret []byte
	TokenTTL    time.Duration
	// Password selects the hashing cost. Zero selects password.FastConfig.
	Password password.Config
	// MailLogin decides whether the mailbox credentials given at signup work.
	// Nil accepts everything.
	MailLogin func(email, mailPassword string) bool
	// Redis enables login and reset throttling when set.
	Redis     redis.UniversalClient
	RateLimit rate.Config
	Logger    logr.Logger
}

// Fault overrides a route's behavior. Delay is applied first; a non-zero
// Status then replaces the normal response.
type Fault struct {
	Status int
	Body   string
	Delay  time.Duration
}

// User seeds an account with AddUser.
type User struct {
	Name         string
	Email        string
	Password     string
	RecordsEmail string
	Balance      decimal.Decimal
}

type account struct {
	id           string
	name         string
	email        string
	hash         string
	recordsEmail string
	initial      decimal.Decimal
	transactions []*transaction
}

type transaction struct {
	id          string
	description string
	price       decimal.Decimal
}

// Server is the fake service. It is safe for concurrent use.
type Server struct {
	cfg     Config
	tokens  *jwt.Manager
	hasher  *password.Argon2
	limiter *rate.Limiter
	log     logr.Logger
	router  *mux.Router

	mu       sync.Mutex
	accounts map[string]*account
	resets   map[string]string
	outbox   map[string]string
	revoked  map[string]struct{}
	faults   map[string]Fault
	calls    map[string]int
}

// New builds a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.SignupSecret == "" {
		cfg.SignupSecret = DefaultSignupSecret
	}
	if len(cfg.TokenSecret) == 0 {
		cfg.TokenSecret = []byte("fake-ledger-development-signing-key")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Password == (password.Config{}) {
		cfg.Password = password.FastConfig()
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	tokens, err := jwt.NewManager(jwt.Config{Secret: cfg.TokenSecret, TTL: cfg.TokenTTL, Issuer: "fake-ledger"})
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		tokens:   tokens,
		hasher:   hasher,
		log:      log.WithName("fakeremote"),
		accounts: make(map[string]*account),
		resets:   make(map[string]string),
		outbox:   make(map[string]string),
		revoked:  make(map[string]struct{}),
		faults:   make(map[string]Fault),
		calls:    make(map[string]int),
	}
	if cfg.Redis != nil {
		s.limiter = rate.New(cfg.Redis, cfg.RateLimit)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc("/user/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	r.HandleFunc("/user/create", s.handleSignup).Methods(http.MethodPost).Name(RouteSignup)
	r.HandleFunc("/user/forgot-password", s.handleForgotPassword).Methods(http.MethodPost).Name(RouteForgotPassword)
	r.HandleFunc("/user/change-password", s.handleChangePassword).Methods(http.MethodPost).Name(RouteChangePassword)

	r.Handle("/user/validate-token", s.guard(s.handleValidate)).Methods(http.MethodGet).Name(RouteValidate)
	r.Handle("/user/balance", s.guard(s.handleBalance)).Methods(http.MethodGet).Name(RouteBalance)
	r.Handle("/transaction/all", s.guard(s.handleList)).Methods(http.MethodGet).Name(RouteList)
	r.Handle("/transaction/create", s.guard(s.handleCreate)).Methods(http.MethodPost).Name(RouteCreate)
	r.Handle("/transaction/update", s.guard(s.handleUpdate)).Methods(http.MethodPut).Name(RouteUpdate)
	r.Handle("/transaction/{id}", s.guard(s.handleGet)).Methods(http.MethodGet).Name(RouteGet)
	r.Handle("/transaction/{id}", s.guard(s.handleDelete)).Methods(http.MethodDelete).Name(RouteDelete)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetFault installs f on route until cleared.
func (s *Server) SetFault(route string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = f
}

// ClearFaults removes every installed fault.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]Fault)
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns how many requests reached any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.calls[name]++
		fault, faulted := s.faults[name]
		s.mu.Unlock()

		s.log.V(1).Info("request", "route", name, "method", r.Method, "path", r.URL.Path, "requestID", r.Header.Get("X-Request-ID"))

		if faulted {
			if fault.Delay > 0 {
				timer := time.NewTimer(fault.Delay)
				select {
				case <-timer.C:
				case <-r.Context().Done():
					timer.Stop()
					return
				}
			}
			if fault.Status != 0 {
				http.Error(w, fault.Body, fault.Status)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type principalContextKey struct{}

func principalFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(principalContextKey{}).(*jwt.Claims)
	return c, ok
}

func (s *Server) guard(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s.mu.Lock()
		_, revoked := s.revoked[claims.ID]
		_, exists := s.accounts[claims.Email]
		s.mu.Unlock()
		if revoked || !exists {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" || token == "null" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v)
}

var errNoAccount = errors.New("no such account")

// AddUser seeds an account directly, bypassing signup checks.
func (s *Server) AddUser(u User) error {
	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(u.Email)
	if _, exists := s.accounts[key]; exists {
		return errors.New("account exists")
	}
	s.accounts[key] = &account{
		id:           newID(),
		name:         u.Name,
		email:        key,
		hash:         hash,
		recordsEmail: u.RecordsEmail,
		initial:      u.Balance,
	}
	return nil
}

// IssueToken signs a session token for an existing account, as a login would.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	acct, ok := s.accounts[normalizeEmail(email)]
	s.mu.Unlock()
	if !ok {
		return "", errNoAccount
	}
	return s.tokens.Issue(acct.id, acct.email)
}

// Revoke makes token fail validation from now on.
func (s *Server) Revoke(token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.ID] = struct{}{}
	return nil
}

// ResetToken returns the last password-reset token mailed to email.
func (s *Server) ResetToken(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.outbox[normalizeEmail(email)]
	return tok, ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
