package jwtauth

import (
	"context"
	"testing"
	"time"

	"pet-adoption/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerify_RoundTrip(t *testing.T) {
	tok, err := Sign(secret, auth.Claims{UserID: "u-1", Email: "a@b.c", Name: "Ana", Role: "ADMIN"}, time.Hour)
	require.NoError(t, err)

	c, err := NewVerifier(secret).Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, "a@b.c", c.Email)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "admin", c.Role)
}

func TestVerify_LegacyUserIDClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "legacy-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	c, err := NewVerifier(secret).Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", c.UserID)
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier(secret)

	expired, err := Sign(secret, auth.Claims{UserID: "u-1"}, -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.Error(t, err)

	wrongKey, err := Sign("other", auth.Claims{UserID: "u-1"}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), wrongKey)
	assert.Error(t, err)

	noSub, err := Sign(secret, auth.Claims{}, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSub)
	assert.ErrorIs(t, err, ErrMissingSubject)

	_, err = v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrTokenEmpty)

	_, err = NewVerifier("").Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(context.Background(), raw)
	assert.Error(t, err)
}
