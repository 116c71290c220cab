package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-session-secret"

func newTestSession(t *testing.T) SessionService {
	t.Helper()
	return NewSessionService(testLogger(), "", testSessionSecret, "https://id.wavenote.io", nil)
}

func signSessionToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = "https://id.wavenote.io"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSessionSecret))
	require.NoError(t, err)
	return signed
}

func TestPrincipalFromTokenValid(t *testing.T) {
	ss := newTestSession(t)
	token := signSessionToken(t, jwt.MapClaims{
		"sub":   "u1",
		"email": "a@x.com",
		"name":  "A B",
	})

	p, err := ss.PrincipalFromToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "u1", p.SubjectID)
	require.Equal(t, "a@x.com", p.Email)
	require.Equal(t, "A B", p.Name)
}

func TestPrincipalNameFromParts(t *testing.T) {
	ss := newTestSession(t)
	token := signSessionToken(t, jwt.MapClaims{
		"sub":        "u1",
		"first_name": "A",
		"last_name":  "B",
	})

	p, err := ss.PrincipalFromToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "A B", p.Name)
}

func TestPrincipalFromTokenRejected(t *testing.T) {
	ss := newTestSession(t)

	cases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: signSessionToken(t, jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{name: "wrong_issuer", token: signSessionToken(t, jwt.MapClaims{
			"sub": "u1",
			"iss": "https://somewhere-else.example",
		})},
		{name: "missing_sub", token: signSessionToken(t, jwt.MapClaims{
			"email": "a@x.com",
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ss.PrincipalFromToken(context.Background(), tc.token)
			require.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestPrincipalFromRequestSources(t *testing.T) {
	ss := newTestSession(t)
	token := signSessionToken(t, jwt.MapClaims{"sub": "u1"})

	t.Run("bearer_header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		p, err := ss.PrincipalFromRequest(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, "u1", p.SubjectID)
	})

	t.Run("session_cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "__session", Value: token})
		p, err := ss.PrincipalFromRequest(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, "u1", p.SubjectID)
	})

	t.Run("no_token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		_, err := ss.PrincipalFromRequest(context.Background(), r)
		require.True(t, errors.Is(err, ErrUnauthenticated))
	})
}
