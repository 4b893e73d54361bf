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
	ErrVariantNotFound      = errors.New("variant not found")
	ErrVariantAlreadyExists = errors.New("variant with this product, size and color already exists")
	ErrVariantInUse         = errors.New("variant is referenced by carts or orders")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrVariantReference     = errors.New("product, size or color does not exist")
)

const variantSelect = `
	SELECT v.id, v.product_id, v.size_id, v.color_id, v.stock, v.additional_price,
	       v.created_at, v.updated_at,
	       p.name AS product_name, p.base_price,
	       s.name AS size_name, c.name AS color_name, c.hex_code AS color_hex
	FROM product_variants v
	JOIN products p ON p.id = v.product_id
	JOIN sizes s ON s.id = v.size_id
	JOIN colors c ON c.id = v.color_id
`

// VariantRepository defines the interface for variant data access
type VariantRepository interface {
	Create(ctx context.Context, variant *domain.Variant) error
	Update(ctx context.Context, variant *domain.Variant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error)
	ListLowStock(ctx context.Context, threshold int) ([]*domain.Variant, error)
	// AdjustStock applies a signed delta and returns the resulting stock.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
	// DecrementStock removes quantity units only if that many are available.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type variantRepository struct {
	db DBTX
}

// NewVariantRepository creates a new instance of VariantRepository
func NewVariantRepository(db DBTX) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) Create(ctx context.Context, variant *domain.Variant) error {
	query := `
		INSERT INTO product_variants (id, product_id, size_id, color_id, stock, additional_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.ProductID,
		variant.SizeID,
		variant.ColorID,
		variant.Stock,
		variant.AdditionalPrice,
		variant.CreatedAt,
		variant.UpdatedAt,
	)

	if err != nil {
		return r.mapWriteError(err, "failed to create variant")
	}

	return nil
}

func (r *variantRepository) Update(ctx context.Context, variant *domain.Variant) error {
	query := `
		UPDATE product_variants
		SET size_id = $2, color_id = $3, stock = $4, additional_price = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		variant.ID,
		variant.SizeID,
		variant.ColorID,
		variant.Stock,
		variant.AdditionalPrice,
		variant.UpdatedAt,
	)

	if err != nil {
		return r.mapWriteError(err, "failed to update variant")
	}

	return expectOneRow(result, ErrVariantNotFound)
}

func (r *variantRepository) mapWriteError(err error, msg string) error {
	switch {
	case isUniqueViolation(err, "uq_variants_combination"):
		return ErrVariantAlreadyExists
	case isForeignKeyViolation(err):
		return ErrVariantReference
	case isCheckViolation(err):
		return ErrInsufficientStock
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (r *variantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrVariantInUse
		}
		return fmt.Errorf("failed to delete variant: %w", err)
	}

	return expectOneRow(result, ErrVariantNotFound)
}

func (r *variantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	variant := &domain.Variant{}
	if err := r.db.GetContext(ctx, variant, variantSelect+` WHERE v.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to find variant by ID: %w", err)
	}

	return variant, nil
}

func (r *variantRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error) {
	variants := []*domain.Variant{}
	err := r.db.SelectContext(ctx, &variants, variantSelect+` WHERE v.product_id = $1 ORDER BY s.name, c.name`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}

	return variants, nil
}

// ListLowStock returns variants whose stock is at or below threshold, lowest first
func (r *variantRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Variant, error) {
	variants := []*domain.Variant{}
	err := r.db.SelectContext(ctx, &variants, variantSelect+` WHERE v.stock <= $1 ORDER BY v.stock ASC, p.name ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock variants: %w", err)
	}

	return variants, nil
}

func (r *variantRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	query := `
		UPDATE product_variants
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`

	var stock int
	err := r.db.QueryRowxContext(ctx, query, id, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	// No row updated: either the variant is missing or the delta would go negative.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM product_variants WHERE id = $1)`, id); err != nil {
		return 0, fmt.Errorf("failed to check variant: %w", err)
	}
	if !exists {
		return 0, ErrVariantNotFound
	}
	return 0, ErrInsufficientStock
}

func (r *variantRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE product_variants SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	return expectOneRow(result, ErrInsufficientStock)
}
