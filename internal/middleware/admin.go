package middleware

import (
	"context"
	"net/http"
)

// RoleStore resolves the stored role of a profile. The token role is only a hint;
// admin routes always consult the store.
type RoleStore interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

func RequireAdmin(roles RoleStore) func(http.Handler) http.Handler {
	return RequireRole(roles, "admin")
}

func RequireRole(roles RoleStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			stored, err := roles.RoleOf(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify role", http.StatusInternalServerError)
				return
			}
			if stored != role {
				http.Error(w, "missing required role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, stored)))
		})
	}
}
