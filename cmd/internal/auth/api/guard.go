package authapi

import (
	"context"
	"net/http"
)

type userIDKey struct{}

// RequireUser protects routes owned by other packages with the admin session.
// Anonymous requests are sent to the login page; next can read the user id
// with UserID.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request, userID string) {
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

// UserID returns the id stored by RequireUser.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
