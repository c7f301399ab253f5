// Package token issues the ephemeral access tokens carried in deep links.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

const byteLen = 32

// Token is an opaque value and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer creates tokens.
type Issuer struct {
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl selects DefaultTTL; a nil now selects time.Now.
func NewIssuer(ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{ttl: ttl, now: now}
}

// Issue returns a fresh random token expiring ttl after now.
func (i *Issuer) Issue() (Token, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("generate token: %w", err)
	}
	return Token{
		Value:     base64.RawURLEncoding.EncodeToString(buf),
		ExpiresAt: i.now().Add(i.ttl),
	}, nil
}
