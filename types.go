package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry. Price is positive for spending.
type Transaction struct {
	ID          string
	Description string
	Price       decimal.Decimal
}

type transactionWire struct {
	ID          json.RawMessage `json:"id,omitempty"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
}

// MarshalJSON encodes the price as a bare JSON number.
func (t Transaction) MarshalJSON() ([]byte, error) {
	w := transactionWire{Description: t.Description, Price: json.RawMessage(t.Price.String())}
	if t.ID != "" {
		id, err := json.Marshal(t.ID)
		if err != nil {
			return nil, err
		}
		w.ID = id
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts string or numeric ids and prices.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	var price decimal.Decimal
	if len(w.Price) > 0 && !bytes.Equal(w.Price, []byte("null")) {
		if err := price.UnmarshalJSON(w.Price); err != nil {
			return fmt.Errorf("transaction price: %w", err)
		}
	}
	*t = Transaction{ID: id, Description: w.Description, Price: price}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("transaction id: %w", err)
	}
	return n.String(), nil
}

// newTransaction is the create request body.
type newTransaction struct {
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
}

type balanceWire struct {
	Balance *decimal.Decimal `json:"balance"`
}

// Credentials are the login form's input.
type Credentials struct {
	Email    string
	Password string
}

// SignupRequest is the signup form's input.
type SignupRequest struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	// EmailPassword is the mailbox password the service uses to send receipts.
	EmailPassword string
	// RecordsEmail receives itemized bills.
	RecordsEmail string
	// Balance is the opening balance. Invalid means not entered.
	Balance decimal.NullDecimal
	// UserCreationPassword is the special password handed out for signup.
	UserCreationPassword string
}

// PasswordChange is the change-password form's input. Email and
// ChangePasswordToken come from the reset link.
type PasswordChange struct {
	Email                string
	ChangePasswordToken  string
	Password             string
	PasswordConfirmation string
}

// Overview is the transactions screen's initial load. The two halves fail
// independently.
type Overview struct {
	Transactions    []Transaction
	TransactionsErr error
	Balance         decimal.Decimal
	BalanceErr      error
}
