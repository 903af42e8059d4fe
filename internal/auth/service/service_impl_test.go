package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/meterbill/internal/auth/domain"
	"github.com/smallbiznis/meterbill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, issuer string) *Service {
	t.Helper()
	svc, err := NewService(config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: issuer}, zap.NewNop())
	require.NoError(t, err)
	return svc.(*Service)
}

func TestIssueAndAuthenticate(t *testing.T) {
	svc := newTestService(t, "meterbill")
	actor := authdomain.Actor{
		UserID: "user-1",
		Email:  "ops@example.com",
		Tenants: []authdomain.TenantRoles{
			{ID: "7d4c1b55-2f0e-4c38-9f1d-3f4f1a0f6b21", Roles: []string{"admin"}},
		},
	}

	token, err := svc.IssueToken(actor, time.Hour)
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)

	roles, ok := got.RolesIn("7D4C1B55-2F0E-4C38-9F1D-3F4F1A0F6B21")
	assert.True(t, ok)
	assert.Equal(t, []string{"admin"}, roles)
	assert.Equal(t, "user:user-1", got.Subject())
}

func TestAuthenticateRejects(t *testing.T) {
	svc := newTestService(t, "meterbill")
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)

	other := newTestService(t, "someone-else")
	foreign, err := other.IssueToken(authdomain.Actor{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, foreign)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)

	expired, err := svc.IssueToken(authdomain.Actor{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, expired)
	assert.ErrorIs(t, err, authdomain.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, unsigned)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(config.Config{}, zap.NewNop())
	assert.Error(t, err)
}
