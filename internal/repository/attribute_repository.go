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
	ErrSizeNotFound       = errors.New("size not found")
	ErrSizeAlreadyExists  = errors.New("size with this name already exists")
	ErrSizeInUse          = errors.New("size is used by variants")
	ErrColorNotFound      = errors.New("color not found")
	ErrColorAlreadyExists = errors.New("color with this name already exists")
	ErrColorInUse         = errors.New("color is used by variants")
)

// SizeRepository defines the interface for size data access
type SizeRepository interface {
	Create(ctx context.Context, size *domain.Size) error
	List(ctx context.Context) ([]*domain.Size, error)
	ListWithProductCount(ctx context.Context) ([]*domain.SizeWithCount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Size, error)
	Update(ctx context.Context, size *domain.Size) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ColorRepository defines the interface for color data access
type ColorRepository interface {
	Create(ctx context.Context, color *domain.Color) error
	List(ctx context.Context) ([]*domain.Color, error)
	ListWithProductCount(ctx context.Context) ([]*domain.ColorWithCount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Color, error)
	Update(ctx context.Context, color *domain.Color) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type sizeRepository struct {
	db DBTX
}

// NewSizeRepository creates a new instance of SizeRepository
func NewSizeRepository(db DBTX) SizeRepository {
	return &sizeRepository{db: db}
}

func (r *sizeRepository) Create(ctx context.Context, size *domain.Size) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sizes (id, name, created_at) VALUES ($1, $2, $3)`,
		size.ID, size.Name, size.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "sizes_name_key") {
			return ErrSizeAlreadyExists
		}
		return fmt.Errorf("failed to create size: %w", err)
	}
	return nil
}

func (r *sizeRepository) List(ctx context.Context) ([]*domain.Size, error) {
	sizes := []*domain.Size{}
	if err := r.db.SelectContext(ctx, &sizes, `SELECT id, name, created_at FROM sizes ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to list sizes: %w", err)
	}
	return sizes, nil
}

// ListWithProductCount counts the distinct products that have a variant in each size
func (r *sizeRepository) ListWithProductCount(ctx context.Context) ([]*domain.SizeWithCount, error) {
	sizes := []*domain.SizeWithCount{}
	err := r.db.SelectContext(ctx, &sizes, `
		SELECT s.id, s.name, s.created_at, COUNT(DISTINCT v.product_id) AS product_count
		FROM sizes s
		LEFT JOIN product_variants v ON v.size_id = s.id
		GROUP BY s.id
		ORDER BY s.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sizes with product count: %w", err)
	}
	return sizes, nil
}

func (r *sizeRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Size, error) {
	size := &domain.Size{}
	err := r.db.GetContext(ctx, size, `SELECT id, name, created_at FROM sizes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSizeNotFound
		}
		return nil, fmt.Errorf("failed to find size by ID: %w", err)
	}
	return size, nil
}

func (r *sizeRepository) Update(ctx context.Context, size *domain.Size) error {
	result, err := r.db.ExecContext(ctx, `UPDATE sizes SET name = $2 WHERE id = $1`, size.ID, size.Name)
	if err != nil {
		if isUniqueViolation(err, "sizes_name_key") {
			return ErrSizeAlreadyExists
		}
		return fmt.Errorf("failed to update size: %w", err)
	}
	return expectOneRow(result, ErrSizeNotFound)
}

func (r *sizeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sizes WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrSizeInUse
		}
		return fmt.Errorf("failed to delete size: %w", err)
	}
	return expectOneRow(result, ErrSizeNotFound)
}

type colorRepository struct {
	db DBTX
}

// NewColorRepository creates a new instance of ColorRepository
func NewColorRepository(db DBTX) ColorRepository {
	return &colorRepository{db: db}
}

func (r *colorRepository) Create(ctx context.Context, color *domain.Color) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO colors (id, name, hex_code, created_at) VALUES ($1, $2, $3, $4)`,
		color.ID, color.Name, color.HexCode, color.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "colors_name_key") {
			return ErrColorAlreadyExists
		}
		return fmt.Errorf("failed to create color: %w", err)
	}
	return nil
}

func (r *colorRepository) List(ctx context.Context) ([]*domain.Color, error) {
	colors := []*domain.Color{}
	if err := r.db.SelectContext(ctx, &colors, `SELECT id, name, hex_code, created_at FROM colors ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to list colors: %w", err)
	}
	return colors, nil
}

func (r *colorRepository) ListWithProductCount(ctx context.Context) ([]*domain.ColorWithCount, error) {
	colors := []*domain.ColorWithCount{}
	err := r.db.SelectContext(ctx, &colors, `
		SELECT c.id, c.name, c.hex_code, c.created_at, COUNT(DISTINCT v.product_id) AS product_count
		FROM colors c
		LEFT JOIN product_variants v ON v.color_id = c.id
		GROUP BY c.id
		ORDER BY c.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list colors with product count: %w", err)
	}
	return colors, nil
}

func (r *colorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Color, error) {
	color := &domain.Color{}
	err := r.db.GetContext(ctx, color, `SELECT id, name, hex_code, created_at FROM colors WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrColorNotFound
		}
		return nil, fmt.Errorf("failed to find color by ID: %w", err)
	}
	return color, nil
}

func (r *colorRepository) Update(ctx context.Context, color *domain.Color) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE colors SET name = $2, hex_code = $3 WHERE id = $1`, color.ID, color.Name, color.HexCode)
	if err != nil {
		if isUniqueViolation(err, "colors_name_key") {
			return ErrColorAlreadyExists
		}
		return fmt.Errorf("failed to update color: %w", err)
	}
	return expectOneRow(result, ErrColorNotFound)
}

func (r *colorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM colors WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrColorInUse
		}
		return fmt.Errorf("failed to delete color: %w", err)
	}
	return expectOneRow(result, ErrColorNotFound)
}
