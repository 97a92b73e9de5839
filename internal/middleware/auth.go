package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mailcraft/internal/auth"
	"mailcraft/internal/logs"
	"mailcraft/internal/models"
)

// Auth требует валидный JWT: "Authorization: Bearer <jwt>" или cookie cookieName.
func Auth(secret, cookieName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" && cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials", nil)
				return
			}
			claims, err := auth.Parse(token, secret)
			if err != nil {
				logs.For("auth").WithField("reqid", GetRequestID(r)).Debugf("rejected token: %v", err)
				models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token", nil)
				return
			}
			caller := auth.Caller{ID: claims.Subject, Role: claims.Role}
			if h := callerHolderFrom(r.Context()); h != nil {
				h.caller = caller
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	const p = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(p) || !strings.EqualFold(h[:len(p)], p) {
		return ""
	}
	return strings.TrimSpace(h[len(p):])
}
