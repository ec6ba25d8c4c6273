package screens

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/internal/formcheck"
	"github.com/MrEthical07/ledger/internal/inflight"
)

const (
	MsgTransactionMissing = "Unable to find this item!"
	MsgUpdateFailed       = "Unable to update this item!"
	MsgCreateFailed       = "Unable to create this item! Please try again"
)

// TransactionForm creates a transaction, or edits one when built with an id.
type TransactionForm struct {
	ledger Ledger
	id     string
	guard  inflight.Guard

	mu      sync.Mutex
	current ledger.Transaction
	message Message
	loaded  bool
}

// NewTransactionForm returns a form for id. An empty id means create.
func NewTransactionForm(l Ledger, id string) *TransactionForm {
	return &TransactionForm{ledger: l, id: id}
}

// Editing reports whether the form edits an existing transaction.
func (f *TransactionForm) Editing() bool {
	return f.id != ""
}

// Load fetches the transaction being edited. It is a no-op in create mode.
func (f *TransactionForm) Load(ctx context.Context) error {
	if !f.Editing() {
		return nil
	}
	return f.guard.Do(ctx, "load", func(ctx context.Context) error {
		tx, err := f.ledger.GetTransaction(ctx, f.id)
		f.mu.Lock()
		defer f.mu.Unlock()
		if err != nil {
			f.message = errorMessage(HeaderRequestFailed, MsgTransactionMissing)
			return err
		}
		f.current = tx
		f.loaded = true
		f.message = Message{}
		return nil
	})
}

// Current returns the loaded transaction, and whether one was loaded.
func (f *TransactionForm) Current() (ledger.Transaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.loaded
}

// Message is the message currently shown on the form.
func (f *TransactionForm) Message() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Submit saves the form. On success it navigates to the transactions screen.
func (f *TransactionForm) Submit(ctx context.Context, description string, price decimal.NullDecimal) Outcome {
	var out Outcome
	err := f.guard.Do(ctx, "submit", func(ctx context.Context) error {
		out = f.submit(ctx, description, price)
		return nil
	})
	if err != nil {
		return busy()
	}
	f.mu.Lock()
	f.message = out.Message
	f.mu.Unlock()
	return out
}

func (f *TransactionForm) submit(ctx context.Context, description string, price decimal.NullDecimal) Outcome {
	if err := formcheck.Transaction(description, price.Valid); err != nil {
		var ferr *formcheck.Error
		errors.As(err, &ferr)
		return Outcome{Message: errorMessage(HeaderRequestFailed, ferr.Message), Err: err}
	}
	var err error
	failMsg := MsgCreateFailed
	if f.Editing() {
		failMsg = MsgUpdateFailed
		err = f.ledger.UpdateTransaction(ctx, ledger.Transaction{ID: f.id, Description: description, Price: price.Decimal})
	} else {
		err = f.ledger.CreateTransaction(ctx, description, price.Decimal)
	}
	if err != nil {
		out := Outcome{Message: errorMessage(HeaderRequestFailed, failMsg), Err: err}
		if sessionLost(err) {
			out.Next = ledger.ScreenLogin
		}
		return out
	}
	return Outcome{Next: ledger.ScreenTransactions}
}
