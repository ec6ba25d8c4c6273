package screens

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/internal/formcheck"
	"github.com/MrEthical07/ledger/internal/inflight"
)

const (
	HeaderEmailSent       = "Email sent"
	MsgEmailSent          = "Please follow instructions in email to complete password change."
	MsgUnknownEmail       = "I don't recognize that email. Please try again."
	MsgServerIssue        = "There was an issue with the server. Please try again later."
	HeaderPasswordChanged = "Success!"
	MsgPasswordChanged    = "Please wait a couple seconds while we log you in."
	MsgChangeFailed       = "Unable to change password. Try again later."
	MsgChangedLoginFailed = "Password changed, but unable to log in. Please visit the main page and try to log in."
	MsgResetLinkMissing   = formcheck.MsgResetLinkMissing

	resetLinkEmailParam = "email"
	resetLinkTokenParam = "token"
)

// ForgotPasswordForm requests a reset link.
type ForgotPasswordForm struct {
	session Session
	guard   inflight.Guard
}

func NewForgotPasswordForm(session Session) *ForgotPasswordForm {
	return &ForgotPasswordForm{session: session}
}

// Submit mails a reset link. On success the screen stays and shows a notice.
func (f *ForgotPasswordForm) Submit(ctx context.Context, email string) Outcome {
	var out Outcome
	err := f.guard.Do(ctx, "submit", func(ctx context.Context) error {
		err := f.session.ForgotPassword(ctx, email)
		if err != nil {
			out = Outcome{Message: errorMessage(HeaderError, forgotMessage(err)), Err: err}
			return nil
		}
		out = Outcome{Message: Message{Header: HeaderEmailSent, Body: MsgEmailSent}}
		return nil
	})
	if err != nil {
		return busy()
	}
	return out
}

func forgotMessage(err error) string {
	if msg, ok := validationMessage(err); ok {
		return msg
	}
	if status, ok := statusOf(err); ok && status == http.StatusUnauthorized {
		return MsgUnknownEmail
	}
	return MsgServerIssue
}

// ChangePasswordForm sets a new password from a reset link.
type ChangePasswordForm struct {
	session Session
	guard   inflight.Guard
	email   string
	token   string
}

// NewChangePasswordForm reads the email and token parameters of the reset
// link's query string.
func NewChangePasswordForm(session Session, rawQuery string) *ChangePasswordForm {
	q, _ := url.ParseQuery(rawQuery)
	return &ChangePasswordForm{
		session: session,
		email:   q.Get(resetLinkEmailParam),
		token:   q.Get(resetLinkTokenParam),
	}
}

// LinkValid reports whether the link carried both parameters. When it did
// not, the screen shows only MsgResetLinkMissing.
func (f *ChangePasswordForm) LinkValid() bool {
	return f.email != "" && f.token != ""
}

// Email is the address the link was sent to.
func (f *ChangePasswordForm) Email() string {
	return f.email
}

// Submit changes the password and logs in with it.
func (f *ChangePasswordForm) Submit(ctx context.Context, password, confirmation string) Outcome {
	var out Outcome
	err := f.guard.Do(ctx, "submit", func(ctx context.Context) error {
		next, err := f.session.ChangePassword(ctx, ledger.PasswordChange{
			Email:                f.email,
			ChangePasswordToken:  f.token,
			Password:             password,
			PasswordConfirmation: confirmation,
		})
		if err != nil {
			out = Outcome{Message: errorMessage(HeaderError, changeMessage(err)), Err: err}
			return nil
		}
		out = Outcome{Next: next, Message: Message{Header: HeaderPasswordChanged, Body: MsgPasswordChanged}}
		return nil
	})
	if err != nil {
		return busy()
	}
	return out
}

func changeMessage(err error) string {
	if msg, ok := validationMessage(err); ok {
		return msg
	}
	if errors.Is(err, ledger.ErrLoginAfterPasswordChange) {
		return MsgChangedLoginFailed
	}
	return MsgChangeFailed
}
