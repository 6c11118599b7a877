// internal/httpapi/middleware.go
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bloodlink/internal/httpapi/authctx"
	"bloodlink/internal/httpapi/respond"
	"bloodlink/pkg/apperrors"
)

// Authenticate reads the caller stamped by the edge gateway. Requests
// without the headers pass through unauthenticated; role gates reject
// them downstream.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawID := r.Header.Get("X-User-ID")
		if rawID == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(rawID)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "invalid X-User-ID header"))
			return
		}
		ctx := authctx.WithCaller(r.Context(), authctx.Caller{
			UserID: userID,
			Role:   r.Header.Get("X-User-Role"),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits only authenticated callers holding one of the
// given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := authctx.From(r.Context())
			if !ok {
				respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := allowed[caller.Role]; !ok {
				respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
