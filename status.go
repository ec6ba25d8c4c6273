package ledger

// Status is the client's authentication state.
type Status int

const (
	// StatusUnknown means a persisted token is being validated.
	StatusUnknown Status = iota
	// StatusAuthenticated means the client holds a token the service accepted
	// or just issued.
	StatusAuthenticated
	// StatusUnauthenticated means no usable token is held.
	StatusUnauthenticated
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}
