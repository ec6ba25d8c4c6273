// Package formcheck holds the pre-flight checks run before a form is sent.
// A failed check never reaches the network.
package formcheck

import (
	"strings"

	"github.com/asaskevich/govalidator"
)

// Messages shown for failed checks.
const (
	MsgLoginMissing           = "Please enter an email and password."
	MsgNameMissing            = "Please enter a name."
	MsgPasswordTooShort       = "Please enter a password at least 4 characters in length."
	MsgSignupPasswordMismatch = "The new password you created does not match. Please try again."
	MsgSignupEmailInvalid     = "The new gmail address you created is not valid or is not a gmail address. Please try again."
	MsgRecordsEmailInvalid    = "The email address you are choosing to send itemized bills to is not valid. Please try again."
	MsgBalanceMissing         = "Please enter a valid balance. If there is no current balance, enter 0"
	MsgSignupSecretMissing    = "Please enter the special password that was given to you to sign up."
	MsgEmailInvalid           = "Please enter a valid email address"
	MsgResetLinkMissing       = "Please click a forgot password link from your email to visit this page."
	MsgPasswordMismatch       = "Passwords do not match. Please try again."
	MsgDescriptionMissing     = "Please enter a description."
	MsgPriceMissing           = "Please enter a valid price."
)

// MinPasswordLength is the shortest password the signup form accepts.
const MinPasswordLength = 4

// Error is a failed check. Field names the offending input.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

func fail(field, msg string) *Error {
	return &Error{Field: field, Message: msg}
}

// IsEmail reports whether s is a syntactically valid address.
func IsEmail(s string) bool {
	return govalidator.IsEmail(s)
}

// Login requires both fields.
func Login(email, password string) error {
	if email == "" || password == "" {
		field := "email"
		if email != "" {
			field = "password"
		}
		return fail(field, MsgLoginMissing)
	}
	return nil
}

// Signup is the signup form's input.
type Signup struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	RecordsEmail         string
	BalanceSet           bool
	UserCreationPassword string
}

// SignupOptions tune the signup checks.
type SignupOptions struct {
	// RequireGmail restricts the login address to @gmail.com.
	RequireGmail bool
}

// CheckSignup runs the signup checks in form order and reports the first failure.
func CheckSignup(in Signup, opts SignupOptions) error {
	switch {
	case in.Name == "":
		return fail("name", MsgNameMissing)
	case len(in.Password) < MinPasswordLength:
		return fail("password", MsgPasswordTooShort)
	case in.Password != in.PasswordConfirmation:
		return fail("passwordConfirmation", MsgSignupPasswordMismatch)
	case !IsEmail(in.Email) || (opts.RequireGmail && !strings.HasSuffix(in.Email, "@gmail.com")):
		return fail("email", MsgSignupEmailInvalid)
	case !IsEmail(in.RecordsEmail):
		return fail("recordsEmail", MsgRecordsEmailInvalid)
	case !in.BalanceSet:
		return fail("balance", MsgBalanceMissing)
	case in.UserCreationPassword == "":
		return fail("userCreationPassword", MsgSignupSecretMissing)
	}
	return nil
}

// ForgotPassword trims email and checks its syntax. The trimmed address is
// what gets sent.
func ForgotPassword(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !IsEmail(email) {
		return "", fail("email", MsgEmailInvalid)
	}
	return email, nil
}

// ChangePassword requires the reset-link parameters and matching passwords.
func ChangePassword(email, token, password, confirmation string) error {
	if email == "" || token == "" {
		return fail("changePasswordToken", MsgResetLinkMissing)
	}
	if password != confirmation {
		return fail("passwordConfirmation", MsgPasswordMismatch)
	}
	if password == "" {
		return fail("password", MsgPasswordMismatch)
	}
	return nil
}

// Transaction requires a description and a price.
func Transaction(description string, priceSet bool) error {
	if strings.TrimSpace(description) == "" {
		return fail("description", MsgDescriptionMissing)
	}
	if !priceSet {
		return fail("price", MsgPriceMissing)
	}
	return nil
}
