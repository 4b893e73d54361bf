package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/repository"
	"gardem-catalog/internal/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductInput carries the fields of a product. Nil fields are left
// unchanged on update.
type ProductInput struct {
	Name        *string
	Description *string
	BasePrice   *decimal.Decimal
	CategoryID  *uuid.UUID
}

// ProductQuery describes a product listing request.
type ProductQuery struct {
	CategoryID *uuid.UUID
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []*domain.Product `json:"productos"`
	Total    int               `json:"total"`
	Page     int               `json:"pagina"`
	PageSize int               `json:"limite"`
}

// VariantInput carries the fields of a variant. ProductID is only read on create.
type VariantInput struct {
	ProductID       uuid.UUID
	SizeID          *uuid.UUID
	ColorID         *uuid.UUID
	Stock           *int
	AdditionalPrice *decimal.Decimal
}

// StockCheck answers whether a quantity of a variant can be sold right now.
type StockCheck struct {
	Available    bool `json:"disponible"`
	CurrentStock int  `json:"stock_actual"`
	Requested    int  `json:"cantidad_solicitada"`
}

// ImageInput carries the fields of a new product image.
type ImageInput struct {
	ProductID uuid.UUID
	URL       string
	AltText   string
	Position  int
	IsPrimary bool
}

// ProductService manages products together with their variants and images
type ProductService interface {
	CreateProduct(ctx context.Context, actor domain.Actor, input ProductInput) (*domain.Product, error)
	ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error)
	ListProductsWithVariantCount(ctx context.Context) ([]*domain.ProductWithCount, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	CreateVariant(ctx context.Context, actor domain.Actor, input VariantInput) (*domain.Variant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	UpdateVariant(ctx context.Context, actor domain.Actor, id uuid.UUID, input VariantInput) (*domain.Variant, error)
	DeleteVariant(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	CheckStock(ctx context.Context, id uuid.UUID, quantity int) (*StockCheck, error)
	AdjustStock(ctx context.Context, actor domain.Actor, id uuid.UUID, delta int) (*domain.Variant, error)
	LowStock(ctx context.Context, actor domain.Actor, threshold int) ([]*domain.Variant, error)

	AddImage(ctx context.Context, actor domain.Actor, input ImageInput) (*domain.ProductImage, error)
	ListImages(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error)
	PrimaryImage(ctx context.Context, productID uuid.UUID) (*domain.ProductImage, error)
	SetPrimaryImage(ctx context.Context, actor domain.Actor, imageID uuid.UUID) (*domain.ProductImage, error)
	ReorderImages(ctx context.Context, actor domain.Actor, productID uuid.UUID, positions []domain.ImagePosition) ([]*domain.ProductImage, error)
	DeleteImage(ctx context.Context, actor domain.Actor, imageID uuid.UUID) error
	ImageStats(ctx context.Context, actor domain.Actor) (*domain.ImageStats, error)
}

type productService struct {
	products          repository.ProductRepository
	variants          repository.VariantRepository
	images            repository.ImageRepository
	lowStockThreshold int
	logger            *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	variants repository.VariantRepository,
	images repository.ImageRepository,
	lowStockThreshold int,
	logger *zap.Logger,
) ProductService {
	return &productService{
		products:          products,
		variants:          variants,
		images:            images,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (s *productService) CreateProduct(ctx context.Context, actor domain.Actor, input ProductInput) (*domain.Product, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperror.Validation("el nombre del producto es obligatorio")
	}
	if input.BasePrice == nil || input.BasePrice.IsNegative() {
		return nil, apperror.Validation("el precio debe ser mayor o igual a cero")
	}
	if input.CategoryID == nil {
		return nil, apperror.Validation("la categoría es obligatoria")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(*input.Name),
		BasePrice:  input.BasePrice.Round(2),
		CategoryID: *input.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, translate(err, "failed to create product")
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	return s.GetProduct(ctx, product.ID)
}

func (s *productService) ListProducts(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	page, pageSize := normalizePage(query.Page, query.PageSize)

	var (
		products []*domain.Product
		total    int
		err      error
	)
	if search := strings.TrimSpace(query.Search); search != "" {
		products, total, err = s.products.Search(ctx, search, page, pageSize)
	} else {
		sortOrder := repository.SortOrderAsc
		if strings.EqualFold(query.SortOrder, string(repository.SortOrderDesc)) {
			sortOrder = repository.SortOrderDesc
		}
		products, total, err = s.products.List(ctx, repository.ProductFilter{
			CategoryID: query.CategoryID,
			Page:       page,
			PageSize:   pageSize,
			SortBy:     query.SortBy,
			SortOrder:  sortOrder,
		})
	}
	if err != nil {
		return nil, translate(err, "failed to list products")
	}

	return &ProductPage{Products: products, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *productService) ListProductsWithVariantCount(ctx context.Context) ([]*domain.ProductWithCount, error) {
	products, err := s.products.ListWithVariantCount(ctx)
	if err != nil {
		return nil, translate(err, "failed to list products with variant count")
	}
	return products, nil
}

// GetProduct loads the product with its variants and images
func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get product")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		variants, err := s.variants.ListByProduct(gctx, id)
		product.Variants = variants
		return err
	})
	g.Go(func() error {
		images, err := s.images.ListByProduct(gctx, id)
		product.Images = images
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, translate(err, "failed to load product details")
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get product")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.Validation("el nombre del producto es obligatorio")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, apperror.Validation("el precio debe ser mayor o igual a cero")
		}
		product.BasePrice = input.BasePrice.Round(2)
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, translate(err, "failed to update product")
	}
	return s.GetProduct(ctx, id)
}

func (s *productService) DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete product")
	}

	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *productService) CreateVariant(ctx context.Context, actor domain.Actor, input VariantInput) (*domain.Variant, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if input.SizeID == nil || input.ColorID == nil {
		return nil, apperror.Validation("la talla y el color son obligatorios")
	}

	now := time.Now().UTC()
	variant := &domain.Variant{
		ID:              uuid.New(),
		ProductID:       input.ProductID,
		SizeID:          *input.SizeID,
		ColorID:         *input.ColorID,
		AdditionalPrice: decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := applyVariantInput(variant, input); err != nil {
		return nil, err
	}

	if err := s.variants.Create(ctx, variant); err != nil {
		return nil, translate(err, "failed to create variant")
	}
	return s.GetVariant(ctx, variant.ID)
}

func (s *productService) ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.Variant, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, translate(err, "failed to get product")
	}

	variants, err := s.variants.ListByProduct(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to list variants")
	}
	return variants, nil
}

func (s *productService) GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get variant")
	}
	return variant, nil
}

func (s *productService) UpdateVariant(ctx context.Context, actor domain.Actor, id uuid.UUID, input VariantInput) (*domain.Variant, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get variant")
	}
	if input.SizeID != nil {
		variant.SizeID = *input.SizeID
	}
	if input.ColorID != nil {
		variant.ColorID = *input.ColorID
	}
	if err := applyVariantInput(variant, input); err != nil {
		return nil, err
	}
	variant.UpdatedAt = time.Now().UTC()

	if err := s.variants.Update(ctx, variant); err != nil {
		return nil, translate(err, "failed to update variant")
	}
	return s.GetVariant(ctx, id)
}

func applyVariantInput(variant *domain.Variant, input VariantInput) error {
	if input.Stock != nil {
		if *input.Stock < 0 {
			return apperror.Validation("el stock no puede ser negativo")
		}
		variant.Stock = *input.Stock
	}
	if input.AdditionalPrice != nil {
		if input.AdditionalPrice.IsNegative() {
			return apperror.Validation("el precio adicional no puede ser negativo")
		}
		variant.AdditionalPrice = input.AdditionalPrice.Round(2)
	}
	return nil
}

func (s *productService) DeleteVariant(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.variants.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete variant")
	}
	return nil
}

func (s *productService) CheckStock(ctx context.Context, id uuid.UUID, quantity int) (*StockCheck, error) {
	if quantity <= 0 {
		return nil, apperror.Validation("la cantidad debe ser mayor que cero")
	}

	variant, err := s.variants.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get variant")
	}

	return &StockCheck{
		Available:    variant.Stock >= quantity,
		CurrentStock: variant.Stock,
		Requested:    quantity,
	}, nil
}

// AdjustStock applies a signed delta; the resulting stock must stay non-negative
func (s *productService) AdjustStock(ctx context.Context, actor domain.Actor, id uuid.UUID, delta int) (*domain.Variant, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, apperror.Validation("el ajuste de stock no puede ser cero")
	}

	stock, err := s.variants.AdjustStock(ctx, id, delta)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			s.logger.Warn("Stock adjustment rejected",
				zap.String("variant_id", id.String()),
				zap.Int("delta", delta),
			)
		}
		return nil, translate(err, "failed to adjust stock")
	}
	telemetry.StockAdjustmentsTotal.WithLabelValues("manual").Inc()

	s.logger.Info("Stock adjusted",
		zap.String("variant_id", id.String()),
		zap.Int("delta", delta),
		zap.Int("stock", stock),
	)
	return s.GetVariant(ctx, id)
}

func (s *productService) LowStock(ctx context.Context, actor domain.Actor, threshold int) ([]*domain.Variant, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = s.lowStockThreshold
	}

	variants, err := s.variants.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, translate(err, "failed to list low stock variants")
	}
	return variants, nil
}

func (s *productService) AddImage(ctx context.Context, actor domain.Actor, input ImageInput) (*domain.ProductImage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperror.Validation("la url de la imagen es obligatoria")
	}
	if input.Position < 0 {
		return nil, apperror.Validation("el orden no puede ser negativo")
	}

	image := &domain.ProductImage{
		ID:        uuid.New(),
		ProductID: input.ProductID,
		URL:       strings.TrimSpace(input.URL),
		AltText:   strings.TrimSpace(input.AltText),
		Position:  input.Position,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.images.Create(ctx, image); err != nil {
		return nil, translate(err, "failed to add image")
	}

	if input.IsPrimary {
		if err := s.images.SetPrimary(ctx, image.ProductID, image.ID); err != nil {
			return nil, translate(err, "failed to set primary image")
		}
		image.IsPrimary = true
	}
	return image, nil
}

func (s *productService) ListImages(ctx context.Context, productID uuid.UUID) ([]*domain.ProductImage, error) {
	images, err := s.images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, translate(err, "failed to list images")
	}
	return images, nil
}

func (s *productService) PrimaryImage(ctx context.Context, productID uuid.UUID) (*domain.ProductImage, error) {
	images, err := s.ListImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, image := range images {
		if image.IsPrimary {
			return image, nil
		}
	}
	return nil, apperror.NotFound("el producto no tiene imagen principal")
}

// SetPrimaryImage makes imageID the only primary image of its product
func (s *productService) SetPrimaryImage(ctx context.Context, actor domain.Actor, imageID uuid.UUID) (*domain.ProductImage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return nil, translate(err, "failed to get image")
	}
	if err := s.images.SetPrimary(ctx, image.ProductID, image.ID); err != nil {
		return nil, translate(err, "failed to set primary image")
	}

	image.IsPrimary = true
	return image, nil
}

// ReorderImages sets the display position of the given images and returns
// the product's images in their new order
func (s *productService) ReorderImages(ctx context.Context, actor domain.Actor, productID uuid.UUID, positions []domain.ImagePosition) ([]*domain.ProductImage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, apperror.Validation("se requiere al menos una imagen")
	}
	seen := make(map[uuid.UUID]bool, len(positions))
	for _, p := range positions {
		if p.Position < 1 {
			return nil, apperror.Validation("el orden debe ser mayor o igual a 1").WithDetails("id_imagen", p.ImageID)
		}
		if seen[p.ImageID] {
			return nil, apperror.Validation("imagen repetida").WithDetails("id_imagen", p.ImageID)
		}
		seen[p.ImageID] = true
	}

	if err := s.images.Reorder(ctx, productID, positions); err != nil {
		return nil, translate(err, "failed to reorder images")
	}

	s.logger.Info("Product images reordered",
		zap.String("product_id", productID.String()),
		zap.Int("images", len(positions)),
	)
	return s.ListImages(ctx, productID)
}

func (s *productService) ImageStats(ctx context.Context, actor domain.Actor) (*domain.ImageStats, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	stats, err := s.images.Stats(ctx)
	if err != nil {
		return nil, translate(err, "failed to compute image stats")
	}
	return stats, nil
}

func (s *productService) DeleteImage(ctx context.Context, actor domain.Actor, imageID uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return translate(err, "failed to delete image")
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
