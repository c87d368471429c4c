package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/meridianhq/meridian/modules/core/domain/aggregates/user"
	"github.com/meridianhq/meridian/modules/core/domain/entities/session"
	"github.com/meridianhq/meridian/pkg/composables"
	"github.com/meridianhq/meridian/pkg/constants"
)

const authHeader = "Authorization"

// Authenticate resolves the bearer token to a session and loads the account
// into context. Requests without a valid session pass through
// unauthenticated; handlers that require identity enforce it themselves so
// public routes can share the chain.
func Authenticate(sessions session.Store, users user.Repository) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			sess, err := sessions.GetByToken(ctx, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetByID(ctx, sess.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = composables.WithUser(ctx, u)
			ctx = composables.WithTenantID(ctx, sess.TenantID)
			ctx = context.WithValue(ctx, constants.SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(authHeader)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
