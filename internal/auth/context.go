package auth

import "context"

type contextKey struct{}

// Credentials is the session context attached by the surrounding
// application. The API client itself holds no session state.
type Credentials struct {
	Token string
	Admin bool
}

func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// WithToken attaches a bearer token. A token alone grants admin scope; the
// backend is the authority on whether it is valid.
func WithToken(ctx context.Context, token string) context.Context {
	return WithCredentials(ctx, Credentials{Token: token, Admin: token != ""})
}

func FromContext(ctx context.Context) (Credentials, bool) {
	c, ok := ctx.Value(contextKey{}).(Credentials)
	return c, ok
}

func Token(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.Token
}

func IsAdmin(ctx context.Context) bool {
	c, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return c.Admin
}
