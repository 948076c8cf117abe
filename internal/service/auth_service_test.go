package service

import (
	"testing"
	"time"

	"github.com/satforge/exam-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "unit-test-secret",
		JWTExpiry: time.Hour,
	}
}

func TestGenerateAndValidateStudentToken(t *testing.T) {
	svc := NewAuthService(testConfig())

	token, err := svc.GenerateStudentToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, TokenTypeStudent, claims.TokenType)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewAuthService(testConfig())
	token, err := issuer.GenerateStudentToken(1)
	require.NoError(t, err)

	verifier := NewAuthService(&config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour})
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "unit-test-secret", JWTExpiry: -time.Minute})
	token, err := svc.GenerateStudentToken(1)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewAuthService(testConfig())
	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
