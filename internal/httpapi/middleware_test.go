package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/httpapi/authctx"
)

func callerEcho(t *testing.T) (http.Handler, *authctx.Caller) {
	t.Helper()
	var seen authctx.Caller
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := authctx.From(r.Context()); ok {
			seen = c
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return h, &seen
}

func TestAuthenticateStampsCaller(t *testing.T) {
	next, seen := callerEcho(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "manager")
	rec := httptest.NewRecorder()

	Authenticate(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, seen.UserID)
	assert.Equal(t, "manager", seen.Role)
}

func TestAuthenticateRejectsMalformedID(t *testing.T) {
	next, _ := callerEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()

	Authenticate(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatePassesAnonymousThrough(t *testing.T) {
	next, seen := callerEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	Authenticate(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uuid.Nil, seen.UserID)
}

func TestRequireRole(t *testing.T) {
	next, _ := callerEcho(t)
	gate := RequireRole("manager")(next)

	// No caller at all.
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong role.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authctx.WithCaller(req.Context(), authctx.Caller{UserID: uuid.New(), Role: "donor"}))
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Allowed role.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(authctx.WithCaller(req.Context(), authctx.Caller{UserID: uuid.New(), Role: "manager"}))
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
