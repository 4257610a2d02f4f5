package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/unbox-labs/backend-unbox/internal/common"
)

const testSecret = "super-secret-signing-key"

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(subject).
		Audience([]string{"authenticated"}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expires).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(testSecret)))
	require.NoError(t, err)
	return string(signed)
}

func TestVerifyValidToken(t *testing.T) {
	v := NewTokenVerifier(testSecret, "authenticated", time.Second)
	token := signToken(t, "user-123", time.Now().Add(time.Hour))

	subject, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", subject)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewTokenVerifier(testSecret, "authenticated", 0)
	token := signToken(t, "user-123", time.Now().Add(-time.Minute))

	_, err := v.Verify(token)
	require.Error(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewTokenVerifier("a-different-secret", "authenticated", 0)
	token := signToken(t, "user-123", time.Now().Add(time.Hour))

	_, err := v.Verify(token)
	require.Error(t, err)
}

func TestVerifyMissingToken(t *testing.T) {
	v := NewTokenVerifier(testSecret, "authenticated", 0)

	_, err := v.Verify("")
	require.Error(t, err)
	appErr := common.AsAppError(err)
	require.Equal(t, common.CodeUnauthenticated, appErr.Code)
}

func TestVerifyAudienceMismatch(t *testing.T) {
	v := NewTokenVerifier(testSecret, "some-other-audience", 0)
	token := signToken(t, "user-123", time.Now().Add(time.Hour))

	_, err := v.Verify(token)
	require.Error(t, err)
}

func TestRequireAuthAttachesUserID(t *testing.T) {
	v := NewTokenVerifier(testSecret, "authenticated", time.Second)
	mw := Middleware{Verifier: v}

	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := common.UserID(r.Context())
		require.True(t, ok)
		gotUser = id
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-abc", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-abc", gotUser)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	mw := Middleware{Verifier: NewTokenVerifier(testSecret, "authenticated", 0)}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"missing or invalid token"}`, rec.Body.String())
}
