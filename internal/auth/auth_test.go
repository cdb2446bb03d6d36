package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = Config{Secret: "s3cret", Issuer: "activity-tracker"}

func TestIssueAndParse(t *testing.T) {
	token, err := Issue(cfg, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestParseRejects(t *testing.T) {
	expired, err := Issue(cfg, "alice", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := Issue(Config{Secret: cfg.Secret, Issuer: "someone-else"}, "alice", time.Hour)
	require.NoError(t, err)
	wrongKey, err := Issue(Config{Secret: "other", Issuer: cfg.Issuer}, "alice", time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice", "iss": cfg.Issuer}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":     expired,
		"issuer":      otherIssuer,
		"signature":   wrongKey,
		"no expiry":   noExp,
		"not a token": "abc.def",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, cfg)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = Parse("  ", cfg)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := FromContext(r.Context()); ok {
			w.Header().Set("X-Subject", c.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(cfg, SkipPaths("/healthz"), next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	token, err := Issue(cfg, "alice", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-Subject"))
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Middleware(Config{}, nil, next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
