package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/shared"
)

// Identity extracts the logged-in user ID and role claim from the session.
func Identity(ctx context.Context) (uuid.UUID, Role, bool) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(sess.User())
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, Role(sess.Role()), true
}

// RequireAuth rejects requests without a logged-in session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := Identity(r.Context()); !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only the named roles through. It implies RequireAuth.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, role, ok := Identity(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if _, found := allowed[role]; !found {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
