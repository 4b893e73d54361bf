package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrActiveCartExists   = errors.New("user already has an active cart")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrCartItemExists     = errors.New("variant already in cart")
	ErrCartItemInvalidRef = errors.New("cart or variant does not exist")
)

const cartColumns = `id, user_id, status, created_at, updated_at`

const cartItemSelect = `
	SELECT ci.id, ci.cart_id, ci.variant_id, ci.quantity, ci.created_at, ci.updated_at,
	       v.product_id, p.name AS product_name, p.base_price, v.additional_price,
	       s.name AS size_name, c.name AS color_name, c.hex_code AS color_hex, v.stock
	FROM cart_items ci
	JOIN product_variants v ON v.id = ci.variant_id
	JOIN products p ON p.id = v.product_id
	JOIN sizes s ON s.id = v.size_id
	JOIN colors c ON c.id = v.color_id
`

// CartRepository defines the interface for cart and cart line data access
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	// FindByIDForUpdate locks the cart row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	List(ctx context.Context) ([]*domain.Cart, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.CartStatus) error

	Items(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error)
	// ItemsForUpdate returns the lines and locks their variant rows in id order.
	ItemsForUpdate(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error)
	FindItemByVariant(ctx context.Context, cartID, variantID uuid.UUID) (*domain.CartItem, error)
	InsertItem(ctx context.Context, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) (int, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		cart.ID, cart.UserID, cart.Status, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_carts_one_active_per_user") {
			return ErrActiveCartExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Cart, error) {
	cart := &domain.Cart{}
	if err := r.db.GetContext(ctx, cart, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
}

func (r *cartRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, id)
}

func (r *cartRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1 AND status = $2`,
		userID, domain.CartStatusActive)
}

func (r *cartRepository) List(ctx context.Context) ([]*domain.Cart, error) {
	carts := []*domain.Cart{}
	if err := r.db.SelectContext(ctx, &carts, `SELECT `+cartColumns+` FROM carts ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}
	return carts, nil
}

func (r *cartRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.CartStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE carts SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update cart status: %w", err)
	}
	return expectOneRow(result, ErrCartNotFound)
}

func (r *cartRepository) Items(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	items := []*domain.CartItem{}
	if err := r.db.SelectContext(ctx, &items, cartItemSelect+` WHERE ci.cart_id = $1 ORDER BY ci.created_at ASC`, cartID); err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) ItemsForUpdate(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	items := []*domain.CartItem{}
	query := cartItemSelect + ` WHERE ci.cart_id = $1 ORDER BY v.id FOR UPDATE OF v`
	if err := r.db.SelectContext(ctx, &items, query, cartID); err != nil {
		return nil, fmt.Errorf("failed to lock cart items: %w", err)
	}
	return items, nil
}

func (r *cartRepository) findItem(ctx context.Context, query string, args ...interface{}) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	if err := r.db.GetContext(ctx, item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error) {
	return r.findItem(ctx, cartItemSelect+` WHERE ci.id = $1`, itemID)
}

func (r *cartRepository) FindItemByVariant(ctx context.Context, cartID, variantID uuid.UUID) (*domain.CartItem, error) {
	return r.findItem(ctx, cartItemSelect+` WHERE ci.cart_id = $1 AND ci.variant_id = $2`, cartID, variantID)
}

func (r *cartRepository) InsertItem(ctx context.Context, item *domain.CartItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, cart_id, variant_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.CartID, item.VariantID, item.Quantity, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "uq_cart_items_variant"):
			return ErrCartItemExists
		case isForeignKeyViolation(err):
			return ErrCartItemInvalidRef
		}
		return fmt.Errorf("failed to insert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return expectOneRow(result, ErrCartItemNotFound)
}

// Clear removes every line of the cart and returns how many were removed
func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(removed), nil
}
