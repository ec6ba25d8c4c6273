package ledger

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/ledger/internal/formcheck"
)

var (
	// ErrClientNotReady is returned by methods called on a nil or unbuilt Client.
	ErrClientNotReady = errors.New("ledger client not ready")
	// ErrNotAuthenticated is returned by protected operations unless the
	// status is StatusAuthenticated. No request is sent.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired is returned when the service rejected the token of an
	// authenticated Client and the Client logged out as a result.
	ErrSessionExpired = errors.New("session expired")
	// ErrValidation wraps a *ValidationError from a pre-flight form check.
	ErrValidation = errors.New("invalid input")
	// ErrNoToken is returned when a token is required but none is stored.
	ErrNoToken = errors.New("no session token")
	// ErrEmptyToken is returned when the service answered a credential
	// exchange without a token.
	ErrEmptyToken = errors.New("service returned an empty token")
	// ErrPersistToken wraps a session store failure after a successful
	// credential exchange.
	ErrPersistToken = errors.New("could not persist session token")
	// ErrLoginAfterPasswordChange is returned when the password was changed
	// but the follow-up login failed.
	ErrLoginAfterPasswordChange = errors.New("password changed but login failed")
	// ErrInvalidTransactionID is returned for an empty transaction id.
	ErrInvalidTransactionID = errors.New("invalid transaction id")
)

// ValidationError describes a failed pre-flight check: the field and the
// message shown to the user.
type ValidationError = formcheck.Error

func validationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
