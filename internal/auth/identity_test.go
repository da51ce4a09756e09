package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wiredm/internal/core"
)

func TestResolverAcceptsBearerAndBareToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateToken(cfg, 7, "alice")
	require.NoError(t, err)

	r := NewResolver(cfg)
	for _, cred := range []string{"Bearer " + token, "bearer " + token, token} {
		id, err := r.Resolve(context.Background(), cred)
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: 7, Username: "alice"}, id)
	}
}

func TestResolverRejects(t *testing.T) {
	cfg := testJWTConfig()
	r := NewResolver(cfg)

	expired, err := GenerateToken(&JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: cfg.Audience, TTL: -time.Minute}, 1, "alice")
	require.NoError(t, err)
	otherSecret, err := GenerateToken(&JWTConfig{Secret: []byte("nope"), Issuer: cfg.Issuer, Audience: cfg.Audience, TTL: time.Hour}, 1, "alice")
	require.NoError(t, err)
	otherAudience, err := GenerateToken(&JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: "elsewhere", TTL: time.Hour}, 1, "alice")
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"bearer only":    "Bearer ",
		"garbage":        "Bearer not.a.jwt",
		"expired":        "Bearer " + expired,
		"wrong secret":   "Bearer " + otherSecret,
		"wrong audience": "Bearer " + otherAudience,
	}
	for name, cred := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), cred)
			require.ErrorIs(t, err, core.ErrUnauthenticated)
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 1, Username: "bob"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "bob", id.Username)
}
