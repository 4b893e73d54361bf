package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
	Active      *bool
}

// ColorInput carries the writable fields of a color.
type ColorInput struct {
	Name    string
	HexCode string
}

// CatalogService manages the reference data products are classified by:
// categories, sizes and colors.
type CatalogService interface {
	CreateCategory(ctx context.Context, actor domain.Actor, input CategoryInput) (*domain.Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error)
	ListCategoriesWithCount(ctx context.Context) ([]*domain.CategoryWithCount, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, input CategoryInput) (*domain.Category, error)
	ActivateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Category, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	CreateSize(ctx context.Context, actor domain.Actor, name string) (*domain.Size, error)
	ListSizes(ctx context.Context) ([]*domain.Size, error)
	ListSizesWithCount(ctx context.Context) ([]*domain.SizeWithCount, error)
	GetSize(ctx context.Context, id uuid.UUID) (*domain.Size, error)
	UpdateSize(ctx context.Context, actor domain.Actor, id uuid.UUID, name string) (*domain.Size, error)
	DeleteSize(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	CreateColor(ctx context.Context, actor domain.Actor, input ColorInput) (*domain.Color, error)
	ListColors(ctx context.Context) ([]*domain.Color, error)
	ListColorsWithCount(ctx context.Context) ([]*domain.ColorWithCount, error)
	GetColor(ctx context.Context, id uuid.UUID) (*domain.Color, error)
	UpdateColor(ctx context.Context, actor domain.Actor, id uuid.UUID, input ColorInput) (*domain.Color, error)
	DeleteColor(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type catalogService struct {
	categories repository.CategoryRepository
	sizes      repository.SizeRepository
	colors     repository.ColorRepository
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categories repository.CategoryRepository,
	sizes repository.SizeRepository,
	colors repository.ColorRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categories: categories,
		sizes:      sizes,
		colors:     colors,
		logger:     logger,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, actor domain.Actor, input CategoryInput) (*domain.Category, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("el nombre de la categoría es obligatorio")
	}

	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if input.Active != nil {
		category.Active = *input.Active
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translate(err, "failed to create category")
	}

	s.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	categories, err := s.categories.List(ctx, activeOnly)
	if err != nil {
		return nil, translate(err, "failed to list categories")
	}
	return categories, nil
}

func (s *catalogService) ListCategoriesWithCount(ctx context.Context) ([]*domain.CategoryWithCount, error) {
	categories, err := s.categories.ListWithProductCount(ctx)
	if err != nil {
		return nil, translate(err, "failed to list categories with product count")
	}
	return categories, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get category")
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get category")
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		category.Name = name
	}
	if input.Description != "" {
		category.Description = strings.TrimSpace(input.Description)
	}
	if input.Active != nil {
		category.Active = *input.Active
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, translate(err, "failed to update category")
	}
	return category, nil
}

// ActivateCategory makes the category visible again; an active one is left as is
func (s *catalogService) ActivateCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Category, error) {
	active := true
	category, err := s.UpdateCategory(ctx, actor, id, CategoryInput{Active: &active})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Category activated", zap.String("category_id", id.String()))
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete category")
	}

	s.logger.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *catalogService) CreateSize(ctx context.Context, actor domain.Actor, name string) (*domain.Size, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("el nombre de la talla es obligatorio")
	}

	size := &domain.Size{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.sizes.Create(ctx, size); err != nil {
		return nil, translate(err, "failed to create size")
	}
	return size, nil
}

func (s *catalogService) ListSizes(ctx context.Context) ([]*domain.Size, error) {
	sizes, err := s.sizes.List(ctx)
	if err != nil {
		return nil, translate(err, "failed to list sizes")
	}
	return sizes, nil
}

func (s *catalogService) ListSizesWithCount(ctx context.Context) ([]*domain.SizeWithCount, error) {
	sizes, err := s.sizes.ListWithProductCount(ctx)
	if err != nil {
		return nil, translate(err, "failed to list sizes with product count")
	}
	return sizes, nil
}

func (s *catalogService) GetSize(ctx context.Context, id uuid.UUID) (*domain.Size, error) {
	size, err := s.sizes.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get size")
	}
	return size, nil
}

func (s *catalogService) UpdateSize(ctx context.Context, actor domain.Actor, id uuid.UUID, name string) (*domain.Size, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("el nombre de la talla es obligatorio")
	}

	size, err := s.sizes.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get size")
	}
	size.Name = name

	if err := s.sizes.Update(ctx, size); err != nil {
		return nil, translate(err, "failed to update size")
	}
	return size, nil
}

func (s *catalogService) DeleteSize(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.sizes.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete size")
	}
	return nil
}

func (s *catalogService) CreateColor(ctx context.Context, actor domain.Actor, input ColorInput) (*domain.Color, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("el nombre del color es obligatorio")
	}
	if !hexColorPattern.MatchString(input.HexCode) {
		return nil, apperror.Validation("el código hexadecimal debe tener el formato #RRGGBB").
			WithDetails("codigo_hex", input.HexCode)
	}

	color := &domain.Color{
		ID:        uuid.New(),
		Name:      name,
		HexCode:   strings.ToUpper(input.HexCode),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.colors.Create(ctx, color); err != nil {
		return nil, translate(err, "failed to create color")
	}
	return color, nil
}

func (s *catalogService) ListColors(ctx context.Context) ([]*domain.Color, error) {
	colors, err := s.colors.List(ctx)
	if err != nil {
		return nil, translate(err, "failed to list colors")
	}
	return colors, nil
}

func (s *catalogService) ListColorsWithCount(ctx context.Context) ([]*domain.ColorWithCount, error) {
	colors, err := s.colors.ListWithProductCount(ctx)
	if err != nil {
		return nil, translate(err, "failed to list colors with product count")
	}
	return colors, nil
}

func (s *catalogService) GetColor(ctx context.Context, id uuid.UUID) (*domain.Color, error) {
	color, err := s.colors.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get color")
	}
	return color, nil
}

func (s *catalogService) UpdateColor(ctx context.Context, actor domain.Actor, id uuid.UUID, input ColorInput) (*domain.Color, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if input.HexCode != "" && !hexColorPattern.MatchString(input.HexCode) {
		return nil, apperror.Validation("el código hexadecimal debe tener el formato #RRGGBB").
			WithDetails("codigo_hex", input.HexCode)
	}

	color, err := s.colors.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get color")
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		color.Name = name
	}
	if input.HexCode != "" {
		color.HexCode = strings.ToUpper(input.HexCode)
	}

	if err := s.colors.Update(ctx, color); err != nil {
		return nil, translate(err, "failed to update color")
	}
	return color, nil
}

func (s *catalogService) DeleteColor(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.colors.Delete(ctx, id); err != nil {
		return translate(err, "failed to delete color")
	}
	return nil
}
