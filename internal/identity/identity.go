// Package identity derives the pseudo-identity used to deduplicate an
// anonymous visitor's reactions.
package identity

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// Provider returns a stable token for the current visitor.
type Provider interface {
	Identity(ctx context.Context) (string, error)
}

var ErrNoIdentity = errors.New("identity: no identity available")

// fingerprintLen is the number of hex characters kept from the hash.
const fingerprintLen = 16

// Fingerprint reduces an address and agent string to a fixed-width token.
func Fingerprint(ip, userAgent string) string {
	sum := blake2b.Sum256([]byte(ip + "-" + userAgent))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Static always returns the same token, e.g. one issued by a server or held
// in a cookie.
type Static string

func (s Static) Identity(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoIdentity
	}
	return string(s), nil
}

type contextKey struct{}

// NewContext attaches a per-request identity.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Request returns the identity attached to the context by the console's
// fingerprint middleware.
type Request struct{}

func (Request) Identity(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrNoIdentity
	}
	return id, nil
}
