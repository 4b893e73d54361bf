package service

import (
	"errors"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/repository"
)

var repositoryErrors = []struct {
	target  error
	code    apperror.Code
	message string
}{
	{repository.ErrUserNotFound, apperror.CodeNotFound, "usuario no encontrado"},
	{repository.ErrUserAlreadyExists, apperror.CodeConflict, "el email ya está registrado"},
	{repository.ErrUserHasOrders, apperror.CodeConflict, "el usuario tiene pedidos asociados"},
	{repository.ErrCategoryNotFound, apperror.CodeNotFound, "categoría no encontrada"},
	{repository.ErrCategoryAlreadyExists, apperror.CodeConflict, "ya existe una categoría con ese nombre"},
	{repository.ErrCategoryInUse, apperror.CodeConflict, "la categoría tiene productos asociados"},
	{repository.ErrSizeNotFound, apperror.CodeNotFound, "talla no encontrada"},
	{repository.ErrSizeAlreadyExists, apperror.CodeConflict, "ya existe una talla con ese nombre"},
	{repository.ErrSizeInUse, apperror.CodeConflict, "la talla está en uso por variantes"},
	{repository.ErrColorNotFound, apperror.CodeNotFound, "color no encontrado"},
	{repository.ErrColorAlreadyExists, apperror.CodeConflict, "ya existe un color con ese nombre"},
	{repository.ErrColorInUse, apperror.CodeConflict, "el color está en uso por variantes"},
	{repository.ErrProductNotFound, apperror.CodeNotFound, "producto no encontrado"},
	{repository.ErrProductInUse, apperror.CodeConflict, "el producto tiene variantes asociadas"},
	{repository.ErrVariantNotFound, apperror.CodeNotFound, "variante no encontrada"},
	{repository.ErrVariantAlreadyExists, apperror.CodeConflict, "ya existe una variante con esa talla y color"},
	{repository.ErrVariantInUse, apperror.CodeConflict, "la variante está en cestas o pedidos"},
	{repository.ErrVariantReference, apperror.CodeValidation, "producto, talla o color inexistente"},
	{repository.ErrInsufficientStock, apperror.CodeConflict, "stock insuficiente"},
	{repository.ErrImageNotFound, apperror.CodeNotFound, "imagen no encontrada"},
	{repository.ErrCartNotFound, apperror.CodeNotFound, "cesta no encontrada"},
	{repository.ErrActiveCartExists, apperror.CodeConflict, "el usuario ya tiene una cesta activa"},
	{repository.ErrCartItemNotFound, apperror.CodeNotFound, "item de cesta no encontrado"},
	{repository.ErrCartItemExists, apperror.CodeConflict, "la variante ya está en la cesta"},
	{repository.ErrCartItemInvalidRef, apperror.CodeValidation, "cesta o variante inexistente"},
	{repository.ErrOrderNotFound, apperror.CodeNotFound, "pedido no encontrado"},
	{repository.ErrOrderNumberTaken, apperror.CodeSequenceConflict, "número de pedido duplicado"},
	{repository.ErrCartAlreadyOrdered, apperror.CodeConflict, "ya existe un pedido para esta cesta"},
	{repository.ErrOrderItemNotFound, apperror.CodeNotFound, "item de pedido no encontrado"},
	{repository.ErrStatusEventNotFound, apperror.CodeNotFound, "estado de pedido no encontrado"},
}

// translate maps repository sentinels onto typed application errors. Errors
// that are already typed pass through; anything else becomes internal.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperror.As(err) != nil {
		return err
	}
	for _, m := range repositoryErrors {
		if errors.Is(err, m.target) {
			return apperror.Wrap(m.code, err, m.message)
		}
	}
	return apperror.Internal(err, op)
}
