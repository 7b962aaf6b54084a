package middleware

import (
	"net/http"
	"staybook/pkg/auth"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"strings"
)

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	Verify(token string) (auth.Actor, error)
}

// Authenticate attaches the bearer token's actor to the request context.
// Requests without an Authorization header pass through anonymously; a
// malformed or invalid token is rejected with 401.
func Authenticate(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Authorization header must be a bearer token"))
				return
			}

			actor, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestIDFrom(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}
