package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator(t *testing.T, issuer string) *hmacTokenValidator {
	t.Helper()
	v, err := NewTokenValidator(config.AuthConfig{JWTSecret: testSecret, Issuer: issuer})
	require.NoError(t, err)
	hv := v.(*hmacTokenValidator)
	hv.timeFunc = func() time.Time { return fixedTime }
	return hv
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewTokenValidator(t *testing.T) {
	t.Parallel()

	_, err := NewTokenValidator(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)

	v, err := NewTokenValidator(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	valid := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    "https://id.example.com",
		IssuedAt:  jwt.NewNumericDate(fixedTime.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
		ID:        "token-1",
	}

	with := func(mutate func(c *jwt.RegisteredClaims)) jwt.RegisteredClaims {
		c := valid
		mutate(&c)
		return c
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:  "valid token",
			token: func(t *testing.T) string { return signToken(t, testSecret, jwt.SigningMethodHS256, valid) },
		},
		{
			name:    "missing token",
			token:   func(t *testing.T) string { return "" },
			wantErr: ErrMissingToken,
		},
		{
			name:    "malformed token",
			token:   func(t *testing.T) string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signToken(t, "wrong-secret-that-is-long-enough-for-testing", jwt.SigningMethodHS256, valid)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unexpected signing method",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS512, valid)
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired beyond clock skew",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.ExpiresAt = jwt.NewNumericDate(fixedTime.Add(-5 * time.Minute))
				}))
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "expired within clock skew",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.ExpiresAt = jwt.NewNumericDate(fixedTime.Add(-time.Minute))
				}))
			},
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.NotBefore = jwt.NewNumericDate(fixedTime.Add(10 * time.Minute))
				}))
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.ExpiresAt = nil
				}))
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.Issuer = "https://evil.example.com"
				}))
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "subject is not a uuid",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, with(func(c *jwt.RegisteredClaims) {
					c.Subject = "user@example.com"
				}))
			},
			wantErr: ErrMissingSubject,
		},
	}

	v := newTestValidator(t, "https://id.example.com")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.ValidateToken(context.Background(), tt.token(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, "token-1", claims.ID)
			assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
		})
	}
}

func TestValidateToken_AnyIssuerWhenUnset(t *testing.T) {
	t.Parallel()

	v := newTestValidator(t, "")
	token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    "anyone",
		ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
	})

	claims, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "anyone", claims.Issuer)
}
