package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessSecret  = "access-secret"
	refreshSecret = "refresh-secret"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := New(accessSecret, refreshSecret, 0, 0)
	require.NoError(t, err)

	return c
}

func TestIssueVerifyAccessRoundTrip(t *testing.T) {
	c := newCodec(t)

	for i := 0; i < 5; i++ {
		id := uuid.NewString()

		pair, err := c.Issue(id)
		require.NoError(t, err)

		got, err := c.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestIssueExpiries(t *testing.T) {
	c := newCodec(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	pair, err := c.Issue("acc-1")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(pair.AccessToken, access)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour).Unix(), access.ExpiresAt.Unix())
	assert.Equal(t, "acc-1", access.Subject)

	refresh, err := c.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", refresh.AccountID)
	assert.Equal(t, pair.RefreshTokenID, refresh.TokenID)
}

func TestVerifyAccessRejectsExpired(t *testing.T) {
	c := newCodec(t)
	c.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	pair, err := c.Issue("acc-1")
	require.NoError(t, err)

	c.now = time.Now

	_, err = c.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyAccessRejectsForeignSignature(t *testing.T) {
	c := newCodec(t)

	other, err := New("some-other-secret", refreshSecret, 0, 0)
	require.NoError(t, err)

	pair, err := other.Issue("acc-1")
	require.NoError(t, err)

	_, err = c.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	c := newCodec(t)

	pair, err := c.Issue("acc-1")
	require.NoError(t, err)

	_, err = c.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = c.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyAccessRejectsMalformedAndWrongAlg(t *testing.T) {
	c := newCodec(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := c.VerifyAccess(token)
		assert.ErrorIs(t, err, ErrUnauthenticated, token)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "acc-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(accessSecret))
	require.NoError(t, err)

	_, err = c.VerifyAccess(hs512)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "acc-1",
	}).SignedString([]byte(accessSecret))
	require.NoError(t, err)

	_, err = c.VerifyAccess(noExp)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewRequiresDistinctSecrets(t *testing.T) {
	tests := []struct {
		name            string
		access, refresh string
	}{
		{name: "missing access", refresh: refreshSecret},
		{name: "missing refresh", access: accessSecret},
		{name: "same secret", access: "same", refresh: "same"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.access, tt.refresh, 0, 0)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestIssueWithoutSecrets(t *testing.T) {
	_, err := (&Codec{}).Issue("acc-1")
	assert.ErrorIs(t, err, ErrConfiguration)
}
