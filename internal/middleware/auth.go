package middleware

import (
	"net/http"

	"campus-eats-be/internal/auth"
	"campus-eats-be/internal/logger"
	"campus-eats-be/internal/utils"

	"go.uber.org/zap"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAdmin rejects requests without a valid admin token and stores the
// admin identity in the request context.
func RequireAdmin(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractAccessToken(r)
			if token == "" {
				utils.WriteJSONError(w, "authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.FromCtx(r.Context()).Warn("admin token rejected", zap.Error(err))
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetAdminContext(r.Context(), claims.Subject, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
