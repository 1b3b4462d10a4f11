package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/tenant/models"
	"hearth/internal/tenant/service"
	membershipstore "hearth/internal/tenant/store/membership"
	tenantstore "hearth/internal/tenant/store/tenant"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

var (
	userID   = id.UserID(uuid.New())
	tenantID = id.TenantID(uuid.New())
)

func newService() *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", time.Minute)
}

func Test_GenerateAndValidate(t *testing.T) {
	svc := newService()

	t.Run("tenant token", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(userID, tenantID.Ref())
		require.NoError(t, err)
		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.Subject)
		assert.Equal(t, tenantID.String(), claims.TenantID)
		assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
	})

	t.Run("personal token has no tenant", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(userID, nil)
		require.NoError(t, err)
		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Empty(t, claims.TenantID)
	})

	t.Run("nil user is refused", func(t *testing.T) {
		_, err := svc.GenerateAccessToken(id.UserID{}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func Test_ValidateToken_Failures(t *testing.T) {
	svc := newService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-token-string")
		require.ErrorContains(t, err, "invalid token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.ValidateToken("")
		require.ErrorContains(t, err, "missing token")
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(userID, nil)
		require.NoError(t, err)
		later := newService()
		later.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err = later.ValidateToken(token)
		require.ErrorContains(t, err, "token expired")
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "someone-else", time.Minute)
		token, err := other.GenerateAccessToken(userID, nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.ErrorContains(t, err, "invalid token")
	})

	t.Run("other key", func(t *testing.T) {
		other := NewJWTService("another-key", "test-issuer", time.Minute)
		token, err := other.GenerateAccessToken(userID, nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "test-issuer",
			ID:        uuid.NewString(),
		},
	}

	cases := []struct {
		name       string
		signMethod jwt.SigningMethod
		signKey    any
	}{
		{
			name:       "hs512 header rejected",
			signMethod: jwt.SigningMethodHS512,
			signKey:    []byte("test-signing-key"),
		},
		{
			name:       "alg none rejected",
			signMethod: jwt.SigningMethodNone,
			signKey:    jwt.UnsafeAllowNoneSignatureType,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := jwt.NewWithClaims(tt.signMethod, claims).SignedString(tt.signKey)
			require.NoError(t, err)

			_, err = newService().ValidateToken(tokenString)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_SessionProvider(t *testing.T) {
	ctx := context.Background()
	tenants := service.NewTenantService(tenantstore.NewInMemory(), membershipstore.NewInMemory())
	owner := id.UserID(uuid.New())
	household, err := tenants.CreateTenant(ctx, service.CreateTenantCommand{
		Owner: owner, Name: "The Smiths", Slug: "smiths", Kind: models.KindHousehold,
	})
	require.NoError(t, err)

	svc := newService()
	provider := NewSessionProvider(svc, tenants)

	t.Run("member of tenant", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(owner, household.ID.Ref())
		require.NoError(t, err)
		sess, err := provider.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, owner, sess.UserID)
		assert.Equal(t, models.RoleOwner, sess.Role())
		require.NoError(t, sess.RequireManager(household.ID))
	})

	t.Run("personal", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(owner, nil)
		require.NoError(t, err)
		sess, err := provider.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, sess.TenantRef())
	})

	t.Run("outsider", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(id.UserID(uuid.New()), household.ID.Ref())
		require.NoError(t, err)
		_, err = provider.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(owner, tenantID.Ref())
		require.NoError(t, err)
		_, err = provider.Resolve(ctx, token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := provider.Resolve(ctx, "nope")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
