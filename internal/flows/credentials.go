package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CredentialMetrics carries metric IDs needed by login and signup.
type CredentialMetrics struct {
	LoginSuccess  int
	LoginFailure  int
	SignupSuccess int
	SignupFailure int
}

// CredentialEvents carries audit event names used by login and signup.
type CredentialEvents struct {
	LoginSuccess  string
	LoginFailure  string
	SignupSuccess string
	SignupFailure string
}

// CredentialErrors carries host-level sentinel errors.
type CredentialErrors struct {
	EmptyToken   error
	PersistToken error
}

// CredentialDeps captures login and signup dependencies.
type CredentialDeps struct {
	Requester Requester
	Store     TokenStore

	Hooks
	Metrics CredentialMetrics
	Events  CredentialEvents
	Errors  CredentialErrors
}

// SignupBody is the wire shape of a signup request.
type SignupBody struct {
	Name                 string      `json:"name"`
	Email                string      `json:"email"`
	Password             string      `json:"password"`
	EmailPassword        string      `json:"emailPassword"`
	RecordsEmail         string      `json:"recordsEmail"`
	Balance              json.Number `json:"balance"`
	UserCreationPassword string      `json:"userCreationPassword"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RunLogin exchanges credentials for a token and persists it. On error
// nothing is stored.
func RunLogin(ctx context.Context, email, password string, deps CredentialDeps) (string, error) {
	h := deps.Hooks.withDefaults()

	token, err := issueToken(ctx, PathLogin, loginBody{Email: email, Password: password}, deps)
	if err != nil {
		h.MetricInc(deps.Metrics.LoginFailure)
		h.EmitAudit(ctx, deps.Events.LoginFailure, false, err, nil)
		return "", err
	}

	h.MetricInc(deps.Metrics.LoginSuccess)
	h.EmitAudit(ctx, deps.Events.LoginSuccess, true, nil, nil)
	return token, nil
}

// RunSignup creates an account and persists the returned token.
func RunSignup(ctx context.Context, body SignupBody, deps CredentialDeps) (string, error) {
	h := deps.Hooks.withDefaults()

	token, err := issueToken(ctx, PathSignup, body, deps)
	if err != nil {
		h.MetricInc(deps.Metrics.SignupFailure)
		h.EmitAudit(ctx, deps.Events.SignupFailure, false, err, nil)
		return "", err
	}

	h.MetricInc(deps.Metrics.SignupSuccess)
	h.EmitAudit(ctx, deps.Events.SignupSuccess, true, nil, nil)
	return token, nil
}

func issueToken(ctx context.Context, path string, body any, deps CredentialDeps) (string, error) {
	var payload tokenPayload
	if err := deps.Requester.Post(ctx, path, body, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errorOr(deps.Errors.EmptyToken, "service returned an empty token")
	}
	if err := deps.Store.Set(ctx, payload.Token); err != nil {
		return "", fmt.Errorf("%w: %w", errorOr(deps.Errors.PersistToken, "persist session token"), err)
	}
	return payload.Token, nil
}

func errorOr(err error, fallback string) error {
	if err != nil {
		return err
	}
	return errors.New(fallback)
}
