package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/screens"
)

func newTransactionsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"ls"},
		Short:   "List transactions and the current balance",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		if _, err := a.enter(ctx, ledger.ScreenTransactions); err != nil {
			return err
		}
		list := screens.NewTransactionList(a.client)
		loadErr := list.Load(ctx)
		v := list.View()
		if v.SessionLost {
			return errNotLoggedIn
		}
		if loadErr != nil {
			a.log.V(1).Info("load incomplete", "error", loadErr.Error())
		}
		a.printList(v)
		return a.show(v.Message)
	})
	return cmd
}

func (a *app) printList(v screens.ListView) {
	if v.Balance != "" {
		a.printf("Balance: %s\n\n", v.Balance)
	}
	if v.Empty != "" {
		a.printf("%s\n", v.Empty)
		return
	}
	if len(v.Items) == 0 {
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESCRIPTION\tPRICE")
	for _, tx := range v.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tx.ID, tx.Description, tx.Price.StringFixed(2))
	}
	tw.Flush()
}

func newTransactionCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transaction",
		Short: "Show, create, update, or delete one transaction",
	}
	cmd.AddCommand(
		newTransactionGetCommand(o),
		newTransactionCreateCommand(o),
		newTransactionUpdateCommand(o),
		newTransactionDeleteCommand(o),
	)
	return cmd
}

func newTransactionGetCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(o, func(ctx context.Context, a *app) error {
			if _, err := a.enter(ctx, ledger.ScreenTransaction); err != nil {
				return err
			}
			form := screens.NewTransactionForm(a.client, args[0])
			if err := form.Load(ctx); err != nil {
				a.log.V(1).Info("load failed", "id", args[0], "error", err.Error())
				return a.show(form.Message())
			}
			tx, _ := form.Current()
			a.printf("id: %s\ndescription: %s\nprice: %s\n", tx.ID, tx.Description, tx.Price.StringFixed(2))
			return nil
		})(cmd, args)
	}
	return cmd
}

// priceFlag parses --price. An unset or unparseable flag yields an invalid
// NullDecimal, which the form reports.
func priceFlag(raw string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func newTransactionCreateCommand(o *options) *cobra.Command {
	var description, price string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		if _, err := a.enter(ctx, ledger.ScreenTransaction); err != nil {
			return err
		}
		out := screens.NewTransactionForm(a.client, "").Submit(ctx, description, priceFlag(price))
		if out.Err != nil {
			return a.submitFailed(out)
		}
		a.printf("transaction created\n")
		return nil
	})
	cmd.Flags().StringVar(&description, "description", "", "What the money was for")
	cmd.Flags().StringVar(&price, "price", "", "Amount, e.g. 12.50")
	return cmd
}

func newTransactionUpdateCommand(o *options) *cobra.Command {
	var description, price string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a transaction; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(o, func(ctx context.Context, a *app) error {
			if _, err := a.enter(ctx, ledger.ScreenTransaction); err != nil {
				return err
			}
			form := screens.NewTransactionForm(a.client, args[0])
			if err := form.Load(ctx); err != nil {
				return a.show(form.Message())
			}
			current, _ := form.Current()
			desc := description
			if !cmd.Flags().Changed("description") {
				desc = current.Description
			}
			amount := decimal.NewNullDecimal(current.Price)
			if cmd.Flags().Changed("price") {
				amount = priceFlag(price)
			}
			out := form.Submit(ctx, desc, amount)
			if out.Err != nil {
				return a.submitFailed(out)
			}
			a.printf("transaction updated\n")
			return nil
		})(cmd, args)
	}
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&price, "price", "", "New amount")
	return cmd
}

func newTransactionDeleteCommand(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(o, func(ctx context.Context, a *app) error {
			if _, err := a.enter(ctx, ledger.ScreenTransactions); err != nil {
				return err
			}
			list := screens.NewTransactionList(a.client)
			list.RequestDelete(args[0])
			if !yes {
				answer, err := a.ask("", fmt.Sprintf("Delete %s? [y/N]", args[0]))
				if err != nil {
					return err
				}
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					list.CancelDelete()
					a.printf("kept\n")
					return nil
				}
			}
			if err := list.ConfirmDelete(ctx); err != nil {
				a.log.V(1).Info("delete failed", "id", args[0], "error", err.Error())
				if list.View().SessionLost {
					return errNotLoggedIn
				}
				return a.show(list.View().Message)
			}
			a.printf("deleted\n")
			return nil
		})(cmd, args)
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newBalanceCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		if _, err := a.enter(ctx, ledger.ScreenTransactions); err != nil {
			return err
		}
		balance, err := a.client.Balance(ctx)
		if err != nil {
			a.log.V(1).Info("balance failed", "error", err.Error())
			return a.show(screens.Message{Header: screens.HeaderRequestFailed, Body: screens.MsgBalanceFailed, Error: true})
		}
		a.printf("%s\n", balance.StringFixed(2))
		return nil
	})
	return cmd
}

func (a *app) submitFailed(out screens.Outcome) error {
	a.log.V(1).Info("submit failed", "error", out.Err.Error())
	if out.Next == ledger.ScreenLogin {
		return errNotLoggedIn
	}
	return a.show(out.Message)
}
