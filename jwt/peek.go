package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by [Peek] for tokens that are not structurally JWTs.
var ErrNotJWT = errors.New("token is not a jwt")

// Info is an unverified view of a token's registered claims.
type Info struct {
	Subject   string
	Email     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Peek decodes token without checking its signature. Zero times mean the claim
// was absent.
func Peek(token string) (*Info, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}

	info := &Info{
		Subject: claims.Subject,
		Email:   claims.Email,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Expired reports whether the expiry claim is set and not after now.
func (i *Info) Expired(now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return false
	}
	return !i.ExpiresAt.After(now)
}

// ExpiresWithin reports whether the token expires within d of now.
func (i *Info) ExpiresWithin(d time.Duration, now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return false
	}
	return i.ExpiresAt.Before(now.Add(d))
}
