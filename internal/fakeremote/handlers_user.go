package fakeremote

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrEthical07/ledger/internal/rate"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name                 string           `json:"name"`
	Email                string           `json:"email"`
	Password             string           `json:"password"`
	EmailPassword        string           `json:"emailPassword"`
	RecordsEmail         string           `json:"recordsEmail"`
	Balance              *decimal.Decimal `json:"balance"`
	UserCreationPassword string           `json:"userCreationPassword"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type changeRequest struct {
	ChangePasswordToken string `json:"changePasswordToken"`
	Email               string `json:"email"`
	Password            string `json:"password"`
}

func newID() string {
	return uuid.NewString()
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r.Header.Get("Authorization"))
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusUnauthorized)
		return
	}
	email := normalizeEmail(req.Email)

	if s.limiter != nil {
		if err := s.limiter.CheckLogin(r.Context(), email); err != nil {
			s.rateLimitError(w, err)
			return
		}
	}

	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()

	valid := false
	if ok {
		var err error
		valid, err = s.hasher.Verify(req.Password, acct.hash)
		if err != nil {
			valid = false
		}
	}
	if !valid {
		if s.limiter != nil {
			if err := s.limiter.IncrementLogin(r.Context(), email); err != nil {
				s.log.Error(err, "recording failed login")
			}
		}
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if s.limiter != nil {
		if err := s.limiter.ResetLogin(r.Context(), email); err != nil {
			s.log.Error(err, "resetting login counter")
		}
	}
	s.issue(w, acct, http.StatusOK)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "malformed body", http.StatusUnprocessableEntity)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.RecordsEmail == "" || req.Balance == nil {
		http.Error(w, "missing fields", http.StatusUnprocessableEntity)
		return
	}
	if req.UserCreationPassword != s.cfg.SignupSecret {
		http.Error(w, "incorrect signup password", http.StatusForbidden)
		return
	}
	if s.cfg.MailLogin != nil && !s.cfg.MailLogin(req.Email, req.EmailPassword) {
		http.Error(w, "mailbox login failed", http.StatusUnsupportedMediaType)
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		http.Error(w, "unacceptable password", http.StatusUnprocessableEntity)
		return
	}

	email := normalizeEmail(req.Email)
	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		http.Error(w, "account exists", http.StatusConflict)
		return
	}
	acct := &account{
		id:           newID(),
		name:         req.Name,
		email:        email,
		hash:         hash,
		recordsEmail: req.RecordsEmail,
		initial:      *req.Balance,
	}
	s.accounts[email] = acct
	s.mu.Unlock()

	s.issue(w, acct, http.StatusCreated)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "malformed body", http.StatusUnprocessableEntity)
		return
	}
	email := normalizeEmail(req.Email)

	s.mu.Lock()
	_, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown email", http.StatusUnauthorized)
		return
	}

	if s.limiter != nil {
		if err := s.limiter.AllowReset(r.Context(), email); err != nil {
			s.rateLimitError(w, err)
			return
		}
	}

	token := newID()
	s.mu.Lock()
	if prev, ok := s.outbox[email]; ok {
		delete(s.resets, prev)
	}
	s.resets[token] = email
	s.outbox[email] = token
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := decodeBody(w, r, &req); err != nil || req.ChangePasswordToken == "" || req.Email == "" {
		http.Error(w, "missing fields", http.StatusUnprocessableEntity)
		return
	}
	email := normalizeEmail(req.Email)

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		http.Error(w, "unacceptable password", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	owner, ok := s.resets[req.ChangePasswordToken]
	acct, exists := s.accounts[email]
	if !ok || owner != email || !exists {
		s.mu.Unlock()
		http.Error(w, "invalid reset token", http.StatusUnauthorized)
		return
	}
	acct.hash = hash
	delete(s.resets, req.ChangePasswordToken)
	delete(s.outbox, email)
	s.mu.Unlock()

	if s.limiter != nil {
		if err := s.limiter.ResetLogin(r.Context(), email); err != nil {
			s.log.Error(err, "resetting login counter")
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	balance := acct.initial
	for _, tx := range acct.transactions {
		balance = balance.Sub(tx.price)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Balance number `json:"balance"`
	}{Balance: number(balance)})
}

func (s *Server) issue(w http.ResponseWriter, acct *account, status int) {
	token, err := s.tokens.Issue(acct.id, acct.email)
	if err != nil {
		s.log.Error(err, "issuing session token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token})
}

func (s *Server) rateLimitError(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		http.Error(w, "too many attempts", http.StatusTooManyRequests)
		return
	}
	s.log.Error(err, "rate limiter unavailable")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) principal(r *http.Request) (*account, bool) {
	claims, ok := principalFromContext(r.Context())
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[claims.Email]
	return acct, ok
}
