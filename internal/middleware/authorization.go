package middleware

import (
	"net/http"

	"gardem-catalog/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin middleware ensures the user has admin role. It must run after AuthMiddleware.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]domain.Role{domain.RoleAdmin}, logger)
}

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(allowedRoles []domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				logger.Warn("User not found in context")
				RespondWithError(w, http.StatusUnauthorized, "autenticación requerida")
				return
			}

			for _, allowedRole := range allowedRoles {
				if user.Role == allowedRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("User role not authorized",
				zap.String("user_id", user.ID.String()),
				zap.String("role", user.Role.String()),
			)
			RespondWithError(w, http.StatusForbidden, "permisos insuficientes")
		})
	}
}
