package service

import (
	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
)

// Authorize is the single capability check used by every use case.
// Administrators pass every check. When requiredRole is RoleAdmin nobody else
// passes. Otherwise the actor must own the resource; uuid.Nil as ownerID means
// the resource has no owner and any authenticated actor passes.
func Authorize(actor domain.Actor, ownerID uuid.UUID, requiredRole domain.Role) error {
	if actor.IsAdmin() {
		return nil
	}
	if requiredRole == domain.RoleAdmin {
		return apperror.Forbidden("se requieren permisos de administrador")
	}
	if actor.UserID == uuid.Nil {
		return apperror.Unauthorized("usuario no autenticado")
	}
	if ownerID != uuid.Nil && ownerID != actor.UserID {
		return apperror.Forbidden("no tiene permisos sobre este recurso")
	}
	return nil
}
