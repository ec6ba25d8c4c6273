package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure.
type Kind int

const (
	// KindTimeout means the request exceeded the gateway timeout or the caller's deadline.
	KindTimeout Kind = iota + 1
	// KindUnreachable means the request never produced an HTTP response.
	KindUnreachable
	// KindClientStatus means the service answered with a 4xx status.
	KindClientStatus
	// KindServerStatus means the service answered with a 5xx status.
	KindServerStatus
	// KindDecode means a 2xx payload did not match the expected shape, or the
	// service answered with a 3xx the transport did not follow.
	KindDecode
	// KindCanceled means the caller canceled the context.
	KindCanceled
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindClientStatus:
		return "client_status"
	case KindServerStatus:
		return "server_status"
	case KindDecode:
		return "decode"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrTimeout      = errors.New("gateway: request timed out")
	ErrUnreachable  = errors.New("gateway: service unreachable")
	ErrClientStatus = errors.New("gateway: request rejected")
	ErrServerStatus = errors.New("gateway: server error")
	ErrDecode       = errors.New("gateway: unexpected response payload")
	ErrCanceled     = errors.New("gateway: request canceled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindUnreachable:
		return ErrUnreachable
	case KindClientStatus:
		return ErrClientStatus
	case KindServerStatus:
		return ErrServerStatus
	case KindDecode:
		return ErrDecode
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// Error is the single error type returned by [Gateway] calls.
type Error struct {
	Kind Kind
	// Op is "<METHOD> <path>".
	Op string
	// Status and Body are set whenever the service answered with a non-2xx status.
	Status int
	Body   []byte
	// Err is the underlying transport or decode error, if any.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindClientStatus, KindServerStatus:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrTimeout) works through wrapping.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, if the service answered.
func StatusCode(err error) (int, bool) {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Status != 0 {
		return gerr.Status, true
	}
	return 0, false
}

// IsTransport reports whether err is a failure where the service's verdict is
// unknown: timeout, unreachable, or canceled.
func IsTransport(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUnreachable, KindCanceled:
		return true
	default:
		return false
	}
}
