package screens

import (
	"context"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/internal/formcheck"
	"github.com/MrEthical07/ledger/internal/inflight"
)

const (
	HeaderIncorrectCredentials = "Incorrect credentials"
	MsgIncorrectCredentials    = "Your email/password combination was incorrect. Please try again."
	HeaderInvalidInput         = "Invalid input"
	MsgLoginMissing            = formcheck.MsgLoginMissing
)

// LoginForm is the login screen.
type LoginForm struct {
	session Session
	guard   inflight.Guard
}

func NewLoginForm(session Session) *LoginForm {
	return &LoginForm{session: session}
}

// Submit logs in. Any rejection by the service, including one that never
// reached it, reads as incorrect credentials.
func (f *LoginForm) Submit(ctx context.Context, email, password string) Outcome {
	var out Outcome
	err := f.guard.Do(ctx, "submit", func(ctx context.Context) error {
		next, err := f.session.Login(ctx, ledger.Credentials{Email: email, Password: password})
		switch {
		case err == nil:
			out = Outcome{Next: next}
		case isValidation(err):
			out = Outcome{Message: errorMessage(HeaderInvalidInput, MsgLoginMissing), Err: err}
		default:
			out = Outcome{Message: errorMessage(HeaderIncorrectCredentials, MsgIncorrectCredentials), Err: err}
		}
		return nil
	})
	if err != nil {
		return busy()
	}
	return out
}

// Busy reports whether a submission is running.
func (f *LoginForm) Busy() bool {
	return f.guard.Busy("submit")
}

func isValidation(err error) bool {
	_, ok := validationMessage(err)
	return ok
}
