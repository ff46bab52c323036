package authgate_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kairos/internal/lib/jwt"
	"kairos/internal/middleware/authgate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var publicPaths = []string{"/login", "/token/refresh", "/health_check"}

type counter struct {
	calls     int
	accountID string
}

func (c *counter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls++
	c.accountID, _ = authgate.AccountID(r.Context())
	w.WriteHeader(http.StatusOK)
}

func newGate(t *testing.T) (http.Handler, *counter, *jwt.Codec) {
	t.Helper()

	codec, err := jwt.New("access-secret", "refresh-secret", time.Hour, 0)
	require.NoError(t, err)

	next := &counter{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return authgate.New(log, codec, publicPaths)(next), next, codec
}

func TestGateRejects(t *testing.T) {
	other, err := jwt.New("other-access", "other-refresh", time.Hour, 0)
	require.NoError(t, err)
	foreign, err := other.Issue("acc-1")
	require.NoError(t, err)

	_, _, codec := newGate(t)
	own, err := codec.Issue("acc-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "scheme only", header: "Bearer"},
		{name: "empty token", header: "Bearer   "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "foreign secret", header: "Bearer " + foreign.AccessToken},
		{name: "refresh token", header: "Bearer " + own.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, next, _ := newGate(t)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			gate.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"status":"Error","error":"unauthorized"}`, rec.Body.String())
			assert.Zero(t, next.calls)
		})
	}
}

func TestGatePassesValidToken(t *testing.T) {
	gate, next, codec := newGate(t)

	pair, err := codec.Issue("acc-42")
	require.NoError(t, err)

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", scheme+" "+pair.AccessToken)
		rec := httptest.NewRecorder()

		gate.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acc-42", next.accountID)
	}

	assert.Equal(t, 3, next.calls)
}

func TestGatePublicPaths(t *testing.T) {
	tests := []struct {
		path   string
		public bool
	}{
		{path: "/login/google", public: true},
		{path: "/login", public: true},
		{path: "/token/refresh", public: true},
		{path: "/health_check", public: true},
		{path: "/loginx", public: false},
		{path: "/logout", public: false},
		{path: "/me", public: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			gate, next, _ := newGate(t)

			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			if tt.public {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, 1, next.calls)
				assert.Empty(t, next.accountID)
			} else {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Zero(t, next.calls)
			}
		})
	}
}

func TestAccountIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := authgate.AccountID(req.Context())
	assert.False(t, ok)

	_, ok = authgate.AccountID(authgate.WithAccountID(req.Context(), ""))
	assert.False(t, ok)
}
