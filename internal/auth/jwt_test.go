package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueParse(t *testing.T) {
	tok, err := Issue("user-1", "admin", secret, time.Hour)
	require.NoError(t, err)

	c, err := Parse(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	assert.Equal(t, "admin", c.Role)
}

func TestParseRejects(t *testing.T) {
	expired, err := Issue("user-1", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := Issue("user-1", "", "another", time.Hour)
	require.NoError(t, err)
	_, err = Parse(other, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = Parse(noSub, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "user-1",
	}}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = Parse(noExp, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("garbage", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFrom(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), Caller{ID: "u1"})
	c, ok := CallerFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", c.ID)

	_, ok = CallerFrom(WithCaller(context.Background(), Caller{}))
	assert.False(t, ok)
}
