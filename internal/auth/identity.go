package auth

import (
	"context"
	"strings"

	"github.com/vovakirdan/wiredm/internal/core"
)

// Identity is the authenticated caller, resolved once per request or connection.
type Identity struct {
	UserID   int64
	Username string
}

// Resolver turns a bearer credential into an Identity.
type Resolver struct {
	jwt *JWTConfig
}

// NewResolver creates a resolver validating tokens against cfg.
func NewResolver(cfg *JWTConfig) *Resolver {
	return &Resolver{jwt: cfg}
}

// Resolve accepts either "Bearer <token>" or a bare token.
// Any missing or invalid credential yields core.ErrUnauthenticated.
func (r *Resolver) Resolve(_ context.Context, credential string) (Identity, error) {
	token := strings.TrimSpace(credential)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return Identity{}, core.ErrUnauthenticated
	}

	claims, err := ValidateToken(r.jwt, token)
	if err != nil {
		return Identity{}, &core.Error{Kind: core.KindUnauthenticated, Message: "unauthenticated", Err: err}
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.Username != ""
}
