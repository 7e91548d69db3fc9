package middleware

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	apphttp "medbook/pkg/http"
	"medbook/pkg/logger"
)

type TokenValidator interface {
	Validate(token string) (auth.Principal, error)
}

// Authenticate resolves a Bearer token into a Principal on the request
// context. Requests without a token pass through unauthenticated; role
// enforcement happens per route via RequireRole.
func Authenticate(validator TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				requestID := ""
				if rid := r.Context().Value(RequestIDKey); rid != nil {
					requestID, _ = rid.(string)
				}
				log.Warn("Rejected request token",
					"request_id", requestID,
					"path", r.URL.Path,
				)
				_ = apphttp.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole guards a route, allowing only authenticated principals whose
// role is in the allow list.
func RequireRole(next httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			_ = apphttp.WriteError(w, apperrors.Unauthorized("authentication required"))
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				next(w, r, ps)
				return
			}
		}

		_ = apphttp.WriteError(w, apperrors.Forbidden("insufficient privileges"))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
