package screens

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/internal/inflight"
)

const (
	HeaderRequestFailed = "An error occurred"
	MsgLoadFailed       = "An error occurred while trying to find your items. Try again later."
	MsgDeleteFailed     = "An error occurred while trying to delete your item. Try again later."
	MsgBalanceFailed    = "Unable to get balance at this time"
	MsgNoTransactions   = "No transactions found"
)

// ListView is a snapshot of the transactions screen.
type ListView struct {
	Items []ledger.Transaction
	// Balance is empty until loaded, and MsgBalanceFailed if loading failed.
	Balance string
	// Empty is MsgNoTransactions when a load succeeded with no items.
	Empty   string
	Message Message
	// PendingDelete is the id awaiting confirmation, if any.
	PendingDelete string
	Loading       bool
	// SessionLost is set when a request found the session gone; the caller
	// should route through the client again.
	SessionLost bool
}

// TransactionList is the transactions screen. The list and the balance load
// independently; one failing leaves the other on screen.
type TransactionList struct {
	ledger Ledger
	guard  inflight.Guard

	mu            sync.Mutex
	items         []ledger.Transaction
	loaded        bool
	balance       string
	message       Message
	pendingDelete string
	sessionLost   bool
}

func NewTransactionList(l Ledger) *TransactionList {
	return &TransactionList{ledger: l}
}

// Load fetches the list and the balance.
func (l *TransactionList) Load(ctx context.Context) error {
	return l.guard.Do(ctx, "load", func(ctx context.Context) error {
		ov, err := l.ledger.Overview(ctx)
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.fail(err, MsgLoadFailed)
			return err
		}
		if ov.TransactionsErr != nil {
			l.fail(ov.TransactionsErr, MsgLoadFailed)
		} else {
			l.items = ov.Transactions
			l.loaded = true
		}
		if ov.BalanceErr != nil {
			l.balance = MsgBalanceFailed
			l.sessionLost = l.sessionLost || sessionLost(ov.BalanceErr)
		} else {
			l.balance = formatMoney(ov.Balance)
		}
		if ov.TransactionsErr != nil {
			return ov.TransactionsErr
		}
		return ov.BalanceErr
	})
}

// RequestDelete asks for confirmation before deleting id.
func (l *TransactionList) RequestDelete(id string) {
	l.mu.Lock()
	l.pendingDelete = id
	l.mu.Unlock()
}

// CancelDelete dismisses the confirmation.
func (l *TransactionList) CancelDelete() {
	l.mu.Lock()
	l.pendingDelete = ""
	l.mu.Unlock()
}

// ConfirmDelete deletes the pending item and refetches the list. On failure
// the item stays listed.
func (l *TransactionList) ConfirmDelete(ctx context.Context) error {
	l.mu.Lock()
	id := l.pendingDelete
	l.pendingDelete = ""
	l.mu.Unlock()
	if id == "" {
		return nil
	}
	return l.guard.Do(ctx, "delete:"+id, func(ctx context.Context) error {
		if err := l.ledger.DeleteTransaction(ctx, id); err != nil {
			l.mu.Lock()
			l.fail(err, MsgDeleteFailed)
			l.mu.Unlock()
			return err
		}
		items, err := l.ledger.ListTransactions(ctx)
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.removeLocked(id)
			l.fail(err, MsgLoadFailed)
			return err
		}
		l.items = items
		l.loaded = true
		l.message = Message{}
		return nil
	})
}

// View returns a snapshot for rendering.
func (l *TransactionList) View() ListView {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := ListView{
		Items:         append([]ledger.Transaction(nil), l.items...),
		Balance:       l.balance,
		Message:       l.message,
		PendingDelete: l.pendingDelete,
		Loading:       l.guard.Busy("load"),
		SessionLost:   l.sessionLost,
	}
	if l.loaded && len(l.items) == 0 {
		v.Empty = MsgNoTransactions
	}
	return v
}

// fail records err under body. Callers hold l.mu.
func (l *TransactionList) fail(err error, body string) {
	l.message = errorMessage(HeaderRequestFailed, body)
	if sessionLost(err) {
		l.sessionLost = true
	}
}

func (l *TransactionList) removeLocked(id string) {
	kept := l.items[:0:0]
	for _, tx := range l.items {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	l.items = kept
}

func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
