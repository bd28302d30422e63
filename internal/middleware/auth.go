package middleware

import (
	"log/slog"
	"net/http"

	"github.com/readingjourney/readingjourney/internal/auth"
	"github.com/readingjourney/readingjourney/internal/store"
)

// SessionCookieName is the cookie that carries the opaque session token.
const SessionCookieName = "readingjourney_session"

// RequireAuth resolves the session cookie against the session store and
// attaches the authenticated user to the request context. Requests without a
// valid session get a 401 with a JSON body.
func RequireAuth(sessions *store.SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			session, err := sessions.GetByToken(cookie.Value)
			if err != nil {
				logger.Error("session lookup failed", "error", err)
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			if session == nil {
				// Expired or revoked. Clear the stale cookie so the
				// client stops sending it.
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				})
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{
				UserID:    session.UserID,
				SessionID: session.ID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}
