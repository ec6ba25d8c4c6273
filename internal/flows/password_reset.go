package flows

import (
	"context"
)

// PasswordResetDeps captures the reset-request dependencies.
type PasswordResetDeps struct {
	Requester Requester

	Hooks
	Metric int
	Event  string
}

// RunForgotPassword asks the service to mail a reset link. The session is
// untouched.
func RunForgotPassword(ctx context.Context, email string, deps PasswordResetDeps) error {
	h := deps.Hooks.withDefaults()

	err := deps.Requester.Post(ctx, PathForgotPassword, map[string]string{"email": email}, nil)
	h.MetricInc(deps.Metric)
	h.EmitAudit(ctx, deps.Event, err == nil, err, nil)
	return err
}

// ChangeStage names the step a password change failed at.
type ChangeStage int

const (
	// StageChange means the service refused the new password.
	StageChange ChangeStage = iota + 1
	// StageLogin means the password changed but the follow-up login failed.
	StageLogin
)

// ChangePasswordMetrics carries metric IDs for the change flow.
type ChangePasswordMetrics struct {
	Success int
	Failure int
}

// ChangePasswordDeps captures change-then-login dependencies.
type ChangePasswordDeps struct {
	Requester Requester
	Login     CredentialDeps

	Hooks
	Metrics ChangePasswordMetrics
	Event   string
}

// ChangePasswordRequest is the wire shape of a change request.
type ChangePasswordRequest struct {
	ChangePasswordToken string `json:"changePasswordToken"`
	Email               string `json:"email"`
	Password            string `json:"password"`
}

// ChangePasswordResult reports the change flow.
type ChangePasswordResult struct {
	Token string
	Stage ChangeStage
	Err   error
}

// RunChangePassword sets a new password with a reset token, then logs in
// with it. A failed login after a successful change is not rolled back.
func RunChangePassword(ctx context.Context, req ChangePasswordRequest, deps ChangePasswordDeps) ChangePasswordResult {
	h := deps.Hooks.withDefaults()

	if err := deps.Requester.Post(ctx, PathChangePassword, req, nil); err != nil {
		h.MetricInc(deps.Metrics.Failure)
		h.EmitAudit(ctx, deps.Event, false, err, nil)
		return ChangePasswordResult{Stage: StageChange, Err: err}
	}
	h.MetricInc(deps.Metrics.Success)
	h.EmitAudit(ctx, deps.Event, true, nil, nil)

	token, err := RunLogin(ctx, req.Email, req.Password, deps.Login)
	if err != nil {
		h.Warn(err, "password changed but login failed")
		return ChangePasswordResult{Stage: StageLogin, Err: err}
	}
	return ChangePasswordResult{Token: token}
}
