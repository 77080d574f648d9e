package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
)

func newAuthServiceForTest() *AuthService {
	return NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "school-idp"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newAuthServiceForTest()

	token, expiresAt, err := svc.IssueToken("user-1", models.RoleCoordinator, "Exam Committee")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleCoordinator, claims.Role)
	assert.Equal(t, "Exam Committee", claims.FullName)
}

func TestAuthServiceIssueTokenValidation(t *testing.T) {
	svc := newAuthServiceForTest()

	_, _, err := svc.IssueToken(" ", models.RoleAdmin, "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = svc.IssueToken("user-1", models.UserRole("JANITOR"), "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc := newAuthServiceForTest()

	other := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "other", Issuer: "school-idp"})
	token, _, err := other.IssueToken("user-1", models.RoleAdmin, "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer := NewAuthService(zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", Issuer: "elsewhere"})
	token, _, err = wrongIssuer.IssueToken("user-1", models.RoleAdmin, "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRejectsExpiredAndRoleless(t *testing.T) {
	svc := newAuthServiceForTest()
	past := time.Now().Add(-2 * time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "school-idp",
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	roleless := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "school-idp",
			Subject:   "user-2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = roleless.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
