package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/internal/flows"
	"github.com/MrEthical07/ledger/internal/formcheck"
)

// ListTransactions returns every transaction of the logged-in account.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	err := c.protected(ctx, func() error {
		return c.gateway.Get(ctx, flows.PathTransactions, &out)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Transaction{}
	}
	return out, nil
}

// GetTransaction fetches one transaction. A missing item is a 404
// ClientStatus error.
func (c *Client) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	path, err := transactionPath(id)
	if err != nil {
		return Transaction{}, err
	}
	var out Transaction
	err = c.protected(ctx, func() error {
		return c.gateway.Get(ctx, path, &out)
	})
	if err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// CreateTransaction records a new transaction.
func (c *Client) CreateTransaction(ctx context.Context, description string, price decimal.Decimal) error {
	if err := formcheck.Transaction(description, true); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return validationError(err)
	}
	body := newTransaction{Description: description, Price: json.Number(price.String())}
	return c.protected(ctx, func() error {
		return c.gateway.Post(ctx, flows.PathCreate, body, nil)
	})
}

// UpdateTransaction replaces the description and price of tx.ID.
func (c *Client) UpdateTransaction(ctx context.Context, tx Transaction) error {
	if strings.TrimSpace(tx.ID) == "" {
		return ErrInvalidTransactionID
	}
	if err := formcheck.Transaction(tx.Description, true); err != nil {
		c.metrics.Inc(MetricValidationRejected)
		return validationError(err)
	}
	return c.protected(ctx, func() error {
		return c.gateway.Put(ctx, flows.PathUpdate, tx, nil)
	})
}

// DeleteTransaction removes one transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	path, err := transactionPath(id)
	if err != nil {
		return err
	}
	return c.protected(ctx, func() error {
		return c.gateway.Delete(ctx, path, nil)
	})
}

// Balance returns the account's current balance.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	var out balanceWire
	err := c.protected(ctx, func() error {
		if err := c.gateway.Get(ctx, flows.PathBalance, &out); err != nil {
			return err
		}
		if out.Balance == nil {
			return &gateway.Error{
				Kind: gateway.KindDecode,
				Op:   http.MethodGet + " " + flows.PathBalance,
				Err:  errors.New("missing balance"),
			}
		}
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return *out.Balance, nil
}

// Overview loads the transaction list and the balance concurrently. A failure
// of one half is reported in its own field and does not hide the other; the
// returned error is only set when the client is not authenticated.
func (c *Client) Overview(ctx context.Context) (Overview, error) {
	if err := c.requireAuth(); err != nil {
		return Overview{}, err
	}

	var ov Overview
	var g errgroup.Group
	g.Go(func() error {
		ov.Transactions, ov.TransactionsErr = c.ListTransactions(ctx)
		return nil
	})
	g.Go(func() error {
		ov.Balance, ov.BalanceErr = c.Balance(ctx)
		return nil
	})
	_ = g.Wait()
	return ov, nil
}

func (c *Client) requireAuth() error {
	if err := c.ready(); err != nil {
		return err
	}
	if c.Status() != StatusAuthenticated {
		return ErrNotAuthenticated
	}
	return nil
}

// protected runs call only while authenticated. A 401 answer logs the
// client out when configured to.
func (c *Client) protected(ctx context.Context, call func() error) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	gen := c.generation()

	err := call()
	if err == nil {
		return nil
	}
	if status, ok := gateway.StatusCode(err); ok && status == http.StatusUnauthorized && c.config.Session.LogoutOnUnauthorized {
		c.expire(ctx, gen)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return err
}

func transactionPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidTransactionID
	}
	return flows.PathTransaction + url.PathEscape(id), nil
}
