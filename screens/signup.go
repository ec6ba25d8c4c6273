package screens

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/internal/inflight"
)

const (
	HeaderError            = "Error"
	MsgSignupForbidden     = "Incorrect special signup password."
	MsgSignupFieldsMissing = "Please verify you have filled out all the fields."
	MsgServerErrorRetry    = "A server error occurred. Please try again later."
	MsgServerErrorContact  = "A server error occurred. Please contact developer."
)

// SignupForm is the new-user screen.
type SignupForm struct {
	session Session
	guard   inflight.Guard
}

func NewSignupForm(session Session) *SignupForm {
	return &SignupForm{session: session}
}

// Submit creates the account and logs it in.
func (f *SignupForm) Submit(ctx context.Context, req ledger.SignupRequest) Outcome {
	var out Outcome
	err := f.guard.Do(ctx, "submit", func(ctx context.Context) error {
		next, err := f.session.Signup(ctx, req)
		if err != nil {
			out = Outcome{Message: errorMessage(HeaderError, signupMessage(err, req.Email)), Err: err}
			return nil
		}
		out = Outcome{Next: next}
		return nil
	})
	if err != nil {
		return busy()
	}
	return out
}

func signupMessage(err error, email string) string {
	if msg, ok := validationMessage(err); ok {
		return msg
	}
	status, ok := statusOf(err)
	if !ok {
		// No answer from the service, or one the client could not use.
		return MsgServerErrorContact
	}
	switch status {
	case http.StatusForbidden:
		return MsgSignupForbidden
	case http.StatusConflict:
		return fmt.Sprintf("A user with the email address %s already exists. Please sign in normally or use 'forgot password' if you forgot your password.", email)
	case http.StatusUnsupportedMediaType:
		return fmt.Sprintf("Tried to log into gmail account %s and using the gmail password you provided but it failed. Please check that and try again.", email)
	case http.StatusUnprocessableEntity:
		return MsgSignupFieldsMissing
	}
	if gateway.KindOf(err) == gateway.KindDecode {
		return MsgServerErrorContact
	}
	return MsgServerErrorRetry
}
