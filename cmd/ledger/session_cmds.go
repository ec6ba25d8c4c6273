package main

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/ledger"
	"github.com/MrEthical07/ledger/screens"
)

func newLoginCommand(o *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		if d, _ := a.enter(ctx, ledger.ScreenLogin); d.Action == ledger.ActionRedirect {
			a.printf("already logged in\n")
			return nil
		}
		email, err := a.ask(email, "Email")
		if err != nil {
			return err
		}
		password, err := a.ask(password, "Password")
		if err != nil {
			return err
		}
		out := screens.NewLoginForm(a.client).Submit(ctx, email, password)
		if out.Err != nil {
			a.log.V(1).Info("login failed", "error", out.Err.Error())
			return a.show(out.Message)
		}
		a.printf("logged in as %s\n", email)
		return nil
	})
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newSignupCommand(o *options) *cobra.Command {
	var (
		req     ledger.SignupRequest
		balance string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		if d, _ := a.enter(ctx, ledger.ScreenSignup); d.Action == ledger.ActionRedirect {
			a.printf("already logged in\n")
			return nil
		}
		var err error
		if req.Password, err = a.ask(req.Password, "Password"); err != nil {
			return err
		}
		if req.PasswordConfirmation, err = a.ask(req.PasswordConfirmation, "Confirm password"); err != nil {
			return err
		}
		if req.UserCreationPassword, err = a.ask(req.UserCreationPassword, "Signup password"); err != nil {
			return err
		}
		if balance != "" {
			d, err := decimal.NewFromString(balance)
			if err == nil {
				req.Balance = decimal.NewNullDecimal(d)
			}
		}
		out := screens.NewSignupForm(a.client).Submit(ctx, req)
		if out.Err != nil {
			return a.show(out.Message)
		}
		a.printf("account created; logged in as %s\n", req.Email)
		return nil
	})
	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Your name")
	f.StringVar(&req.Email, "email", "", "Gmail address for the account")
	f.StringVar(&req.Password, "password", "", "Account password (prompted when omitted)")
	f.StringVar(&req.PasswordConfirmation, "password-confirmation", "", "Account password again (prompted when omitted)")
	f.StringVar(&req.EmailPassword, "email-password", "", "Password the service uses to send mail from the account's mailbox")
	f.StringVar(&req.RecordsEmail, "records-email", "", "Address itemized bills are sent to")
	f.StringVar(&balance, "balance", "", "Current balance; 0 if none")
	f.StringVar(&req.UserCreationPassword, "signup-password", "", "Special password required to sign up (prompted when omitted)")
	return cmd
}

func newForgotPasswordCommand(o *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		a.enter(ctx, ledger.ScreenForgotPassword)
		email, err := a.ask(email, "Email")
		if err != nil {
			return err
		}
		return a.show(screens.NewForgotPasswordForm(a.client).Submit(ctx, email).Message)
	})
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newChangePasswordCommand(o *options) *cobra.Command {
	var email, token, password, confirmation string
	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Set a new password using the emailed reset link",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		a.enter(ctx, ledger.ScreenChangePassword)
		form := screens.NewChangePasswordForm(a.client, url.Values{"email": {email}, "token": {token}}.Encode())
		if !form.LinkValid() {
			return a.show(screens.Message{Header: screens.HeaderError, Body: screens.MsgResetLinkMissing, Error: true})
		}
		password, err := a.ask(password, "New password")
		if err != nil {
			return err
		}
		confirmation, err := a.ask(confirmation, "Confirm new password")
		if err != nil {
			return err
		}
		return a.show(form.Submit(ctx, password, confirmation).Message)
	})
	f := cmd.Flags()
	f.StringVar(&email, "email", "", "Email from the reset link")
	f.StringVar(&token, "token", "", "Token from the reset link")
	f.StringVar(&password, "password", "", "New password (prompted when omitted)")
	f.StringVar(&confirmation, "password-confirmation", "", "New password again (prompted when omitted)")
	return cmd
}

func newLogoutCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		a.client.Start(ctx)
		if err := a.client.Logout(ctx); err != nil {
			return err
		}
		a.printf("logged out\n")
		return nil
	})
	return cmd
}

func newStatusCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is active",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(o, func(ctx context.Context, a *app) error {
		status := a.client.Start(ctx)
		a.printf("status: %s\n", status)
		if status != ledger.StatusAuthenticated {
			return nil
		}
		info, err := a.client.SessionInfo(ctx)
		if err != nil {
			// Opaque tokens carry nothing to show.
			a.log.V(1).Info("session info unavailable", "error", err.Error())
			return nil
		}
		if info.Email != "" {
			a.printf("email: %s\n", info.Email)
		}
		if !info.ExpiresAt.IsZero() {
			a.printf("expires: %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	})
	return cmd
}
