package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Track transactions and your balance from the terminal",
		Long: `ledger talks to a ledger service on your behalf. Log in once; the session
token is kept in --session-dir (or Redis) and reused by later commands until
the service rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindGlobalFlags(root.PersistentFlags(), o)

	root.AddCommand(
		newLoginCommand(o),
		newSignupCommand(o),
		newForgotPasswordCommand(o),
		newChangePasswordCommand(o),
		newLogoutCommand(o),
		newStatusCommand(o),
		newTransactionsCommand(o),
		newTransactionCommand(o),
		newBalanceCommand(o),
	)
	return root
}
