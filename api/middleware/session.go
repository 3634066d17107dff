package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionCookieName carries the anonymous cart session between visits.
	SessionCookieName = "gh_session"
	sessionHeader     = "X-Session-Id"

	sessionCookieMaxAge = 60 * 60 * 24 * 30
)

// AnonymousSession resolves the caller's cart session id from the cookie or
// header, minting a fresh one when absent, and seeds the request context.
func AnonymousSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := resolveSessionID(r)
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   sessionCookieMaxAge,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveSessionID(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id := strings.TrimSpace(cookie.Value); id != "" {
			return id
		}
	}
	return strings.TrimSpace(r.Header.Get(sessionHeader))
}
