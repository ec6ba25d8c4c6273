package screens

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/internal/inflight"
)

// ErrBusy is reported when a submission is already running on the same form.
var ErrBusy = inflight.ErrBusy

// Session is the part of [ledger.Client] the public forms use.
type Session interface {
	Login(ctx context.Context, creds ledger.Credentials) (ledger.Screen, error)
	Signup(ctx context.Context, req ledger.SignupRequest) (ledger.Screen, error)
	ForgotPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, req ledger.PasswordChange) (ledger.Screen, error)
}

// Ledger is the part of [ledger.Client] the transaction screens use.
type Ledger interface {
	Overview(ctx context.Context) (ledger.Overview, error)
	ListTransactions(ctx context.Context) ([]ledger.Transaction, error)
	GetTransaction(ctx context.Context, id string) (ledger.Transaction, error)
	CreateTransaction(ctx context.Context, description string, price decimal.Decimal) error
	UpdateTransaction(ctx context.Context, tx ledger.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// Message is what a screen shows below its form.
type Message struct {
	Header string
	Body   string
	// Error selects error styling; success notices leave it false.
	Error bool
}

// IsZero reports whether there is nothing to show.
func (m Message) IsZero() bool {
	return m == Message{}
}

func errorMessage(header, body string) Message {
	return Message{Header: header, Body: body, Error: true}
}

// Outcome is the result of a form submission.
type Outcome struct {
	// Next is the screen to navigate to. ScreenUnknown means stay.
	Next ledger.Screen
	// Message is shown on the current screen.
	Message Message
	// Err is the underlying failure, for logging.
	Err error
}

// Navigates reports whether the outcome leaves the screen.
func (o Outcome) Navigates() bool {
	return o.Next != ledger.ScreenUnknown
}

func busy() Outcome {
	return Outcome{Err: ErrBusy}
}

// validationMessage returns the pre-flight message carried by err, if any.
func validationMessage(err error) (string, bool) {
	var verr *ledger.ValidationError
	if errors.Is(err, ledger.ErrValidation) && errors.As(err, &verr) {
		return verr.Message, true
	}
	return "", false
}

func sessionLost(err error) bool {
	return errors.Is(err, ledger.ErrSessionExpired) || errors.Is(err, ledger.ErrNotAuthenticated)
}

func statusOf(err error) (int, bool) {
	return gateway.StatusCode(err)
}
