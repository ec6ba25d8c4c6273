package ledger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/ledger/gateway"
	"github.com/MrEthical07/ledger/jwt"
	"github.com/MrEthical07/ledger/session"
)

const (
	auditEventSessionRestored        = "session_restored"
	auditEventSessionRejected        = "session_rejected"
	auditEventSessionExpired         = "session_expired"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventSignupSuccess          = "signup_success"
	auditEventSignupFailure          = "signup_failure"
	auditEventPasswordResetRequested = "password_reset_requested"
	auditEventPasswordChanged        = "password_changed"
	auditEventLogout                 = "logout"
)

// AuditErrorCode is the coarse failure class recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidInput     AuditErrorCode = "invalid_input"
	auditErrUnauthorized     AuditErrorCode = "unauthorized"
	auditErrForbidden        AuditErrorCode = "forbidden"
	auditErrDuplicate        AuditErrorCode = "duplicate"
	auditErrRejected         AuditErrorCode = "rejected"
	auditErrServer           AuditErrorCode = "server_error"
	auditErrTimeout          AuditErrorCode = "timeout"
	auditErrUnreachable      AuditErrorCode = "unreachable"
	auditErrCanceled         AuditErrorCode = "canceled"
	auditErrBadResponse      AuditErrorCode = "bad_response"
	auditErrEmptyToken       AuditErrorCode = "empty_token"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: gateway.RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if success {
		event.Subject = c.tokenSubject(ctx)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func (c *Client) tokenSubject(ctx context.Context) string {
	token, ok, err := c.store.Get(ctx)
	if err != nil || !ok {
		return ""
	}
	info, err := jwt.Peek(token)
	if err != nil {
		return ""
	}
	return info.Subject
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrInvalidInput
	case errors.Is(err, ErrEmptyToken):
		return auditErrEmptyToken
	case errors.Is(err, ErrPersistToken),
		errors.Is(err, session.ErrStoreUnavailable),
		errors.Is(err, session.ErrTokenCorrupt):
		return auditErrStoreUnavailable
	}

	switch gateway.KindOf(err) {
	case gateway.KindTimeout:
		return auditErrTimeout
	case gateway.KindUnreachable:
		return auditErrUnreachable
	case gateway.KindCanceled:
		return auditErrCanceled
	case gateway.KindDecode:
		return auditErrBadResponse
	case gateway.KindServerStatus:
		return auditErrServer
	case gateway.KindClientStatus:
		status, _ := gateway.StatusCode(err)
		switch status {
		case http.StatusUnauthorized:
			return auditErrUnauthorized
		case http.StatusForbidden:
			return auditErrForbidden
		case http.StatusConflict:
			return auditErrDuplicate
		default:
			return auditErrRejected
		}
	}
	return auditErrInternal
}
