package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

// TokenAuthenticator is the part of the user service the middleware needs
type TokenAuthenticator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// AuthMiddleware validates the bearer token, reloads the account it names
// and attaches the sanitized user to the request context
func AuthMiddleware(users TokenAuthenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "token no proporcionado")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "formato de autorización inválido")
				return
			}

			claims, err := users.ValidateToken(parts[1])
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, service.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expirado")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "token inválido")
				}
				return
			}

			// The account may have been deleted or demoted since the token was issued.
			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				if apperror.Is(err, apperror.CodeNotFound) {
					logger.Debug("Token subject no longer exists", zap.String("user_id", claims.UserID.String()))
					RespondWithError(w, http.StatusUnauthorized, "usuario no encontrado")
					return
				}
				RespondWithAppError(w, r, err, logger)
				return
			}

			public := user.Public()
			ctx := context.WithValue(r.Context(), userKey, &public)

			logger.Debug("User authenticated",
				zap.String("user_id", public.ID.String()),
				zap.String("role", public.Role.String()),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *domain.PublicUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser extracts the authenticated user from request context
func GetUser(ctx context.Context) (*domain.PublicUser, bool) {
	user, ok := ctx.Value(userKey).(*domain.PublicUser)
	return user, ok && user != nil
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return "", false
	}
	return user.ID.String(), true
}

// GetActor returns the caller as seen by the services. Anonymous requests
// yield the zero Actor, which Authorize rejects.
func GetActor(ctx context.Context) domain.Actor {
	user, ok := GetUser(ctx)
	if !ok {
		return domain.Actor{}
	}
	return domain.Actor{UserID: user.ID, Role: user.Role}
}
