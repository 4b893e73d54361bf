package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
)

var ErrImageNotFound = errors.New("image not found")

// ImageRepository defines the interface for product image data access
type ImageRepository interface {
	Create(ctx context.Context, image *domain.ProductImage) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductImage, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error)
	SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error
	Reorder(ctx context.Context, productID uuid.UUID, positions []domain.ImagePosition) error
	Stats(ctx context.Context) (*domain.ImageStats, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type imageRepository struct {
	db DBTX
}

func NewImageRepository(db DBTX) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (id, product_id, url, alt_text, position, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		image.ID, image.ProductID, image.URL, image.AltText, image.Position, image.IsPrimary, image.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (r *imageRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductImage, error) {
	image := &domain.ProductImage{}
	err := r.db.GetContext(ctx, image,
		`SELECT id, product_id, url, alt_text, position, is_primary, created_at FROM product_images WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to find image by ID: %w", err)
	}
	return image, nil
}

func (r *imageRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	images := []*domain.ProductImage{}
	err := r.db.SelectContext(ctx, &images, `
		SELECT id, product_id, url, alt_text, position, is_primary, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, position ASC, created_at ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// SetPrimary marks imageID as the only primary image of productID in one statement
func (r *imageRepository) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE product_images SET is_primary = (id = $2) WHERE product_id = $1`, productID, imageID)
	if err != nil {
		return fmt.Errorf("failed to set primary image: %w", err)
	}
	return expectOneRow(result, ErrImageNotFound)
}

// Reorder applies every position in one statement. Nothing moves and it
// fails with ErrImageNotFound unless each image belongs to productID.
func (r *imageRepository) Reorder(ctx context.Context, productID uuid.UUID, positions []domain.ImagePosition) error {
	ids := make([]string, 0, len(positions))
	orders := make([]int32, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.ImageID.String())
		orders = append(orders, int32(p.Position))
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE product_images pi
		SET position = v.position
		FROM unnest($2::text[], $3::int[]) AS v(id, position)
		WHERE pi.id = v.id::uuid AND pi.product_id = $1
		  AND (
		      SELECT COUNT(*) FROM product_images
		      WHERE product_id = $1 AND id = ANY($2::text[]::uuid[])
		  ) = cardinality($2::text[])
	`, productID, ids, orders)
	if err != nil {
		return fmt.Errorf("failed to reorder images: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if int(rowsAffected) != len(positions) {
		return ErrImageNotFound
	}
	return nil
}

func (r *imageRepository) Stats(ctx context.Context) (*domain.ImageStats, error) {
	stats := &domain.ImageStats{}
	err := r.db.GetContext(ctx, stats, `
		SELECT
			COUNT(*) AS total_images,
			COUNT(DISTINCT product_id) AS products_with_images,
			COUNT(*) FILTER (WHERE is_primary) AS primary_images,
			COUNT(*) FILTER (WHERE btrim(alt_text) = '') AS images_without_alt_text
		FROM product_images
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute image stats: %w", err)
	}
	return stats, nil
}

func (r *imageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM product_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return expectOneRow(result, ErrImageNotFound)
}
