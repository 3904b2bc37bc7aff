package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/praneethkvs/Memento/internal/auth"
	"github.com/praneethkvs/Memento/internal/model"
)

// SessionLookup resolves a session token; unknown or expired tokens give nil.
type SessionLookup interface {
	GetByToken(token string) (*model.Session, error)
}

// RequireAuth validates the session cookie and populates AuthContext.
// Requests without a valid session get a JSON 401.
func RequireAuth(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{
				UserID:    sess.UserID,
				SessionID: sess.ID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
