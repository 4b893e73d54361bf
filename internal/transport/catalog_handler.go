package transport

import (
	"net/http"

	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CategoryRequest struct {
	Name        string `json:"nombre" validate:"required,max=100"`
	Description string `json:"descripcion" validate:"max=500"`
	Active      *bool  `json:"activa"`
}

type UpdateCategoryRequest struct {
	Name        string `json:"nombre" validate:"omitempty,max=100"`
	Description string `json:"descripcion" validate:"max=500"`
	Active      *bool  `json:"activa"`
}

type SizeRequest struct {
	Name string `json:"nombre" validate:"required,max=20"`
}

type ColorRequest struct {
	Name    string `json:"nombre" validate:"required,max=50"`
	HexCode string `json:"codigo_hex" validate:"required"`
}

type UpdateColorRequest struct {
	Name    string `json:"nombre" validate:"omitempty,max=50"`
	HexCode string `json:"codigo_hex"`
}

// CatalogHandler serves categories, sizes and colors
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts /api/categorias, /api/tallas and /api/colores.
// Reads are public and writes require an administrator.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	admin := func(r chi.Router) chi.Router { return r.With(authMiddleware, adminMiddleware) }

	r.Route("/api/categorias", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/con-conteo", h.ListCategoriesWithCount)
		r.Get("/{id}", h.GetCategory)
		admin(r).Post("/", h.CreateCategory)
		admin(r).Put("/{id}", h.UpdateCategory)
		admin(r).Put("/{id}/activar", h.ActivateCategory)
		admin(r).Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/api/tallas", func(r chi.Router) {
		r.Get("/", h.ListSizes)
		r.Get("/con-conteo", h.ListSizesWithCount)
		r.Get("/{id}", h.GetSize)
		admin(r).Post("/", h.CreateSize)
		admin(r).Put("/{id}", h.UpdateSize)
		admin(r).Delete("/{id}", h.DeleteSize)
	})

	r.Route("/api/colores", func(r chi.Router) {
		r.Get("/", h.ListColors)
		r.Get("/con-conteo", h.ListColorsWithCount)
		r.Get("/{id}", h.GetColor)
		admin(r).Post("/", h.CreateColor)
		admin(r).Put("/{id}", h.UpdateColor)
		admin(r).Delete("/{id}", h.DeleteColor)
	})
}

// ListCategories returns every category, or only active ones with ?activas=true
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("activas") == "true"
	categories, err := h.catalog.ListCategories(r.Context(), activeOnly)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categorías obtenidas exitosamente", envelope{"categorias": categories, "total": len(categories)})
}

// ListCategoriesWithCount adds the number of products in each category
func (h *CatalogHandler) ListCategoriesWithCount(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategoriesWithCount(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categorías obtenidas exitosamente", envelope{"categorias": categories, "total": len(categories)})
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categoría obtenida exitosamente", envelope{"categoria": category})
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), middleware.GetActor(r.Context()), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Categoría creada exitosamente", envelope{"categoria": category})
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req UpdateCategoryRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), middleware.GetActor(r.Context()), id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categoría actualizada exitosamente", envelope{"categoria": category})
}

func (h *CatalogHandler) ActivateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	category, err := h.catalog.ActivateCategory(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categoría activada exitosamente", envelope{"categoria": category})
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Categoría eliminada exitosamente", nil)
}

func (h *CatalogHandler) ListSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.catalog.ListSizes(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Tallas obtenidas exitosamente", envelope{"tallas": sizes, "total": len(sizes)})
}

func (h *CatalogHandler) ListSizesWithCount(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.catalog.ListSizesWithCount(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Tallas obtenidas exitosamente", envelope{"tallas": sizes, "total": len(sizes)})
}

func (h *CatalogHandler) GetSize(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	size, err := h.catalog.GetSize(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Talla obtenida exitosamente", envelope{"talla": size})
}

func (h *CatalogHandler) CreateSize(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	size, err := h.catalog.CreateSize(r.Context(), middleware.GetActor(r.Context()), req.Name)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Talla creada exitosamente", envelope{"talla": size})
}

func (h *CatalogHandler) UpdateSize(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req SizeRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	size, err := h.catalog.UpdateSize(r.Context(), middleware.GetActor(r.Context()), id, req.Name)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Talla actualizada exitosamente", envelope{"talla": size})
}

func (h *CatalogHandler) DeleteSize(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.catalog.DeleteSize(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Talla eliminada exitosamente", nil)
}

func (h *CatalogHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalog.ListColors(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Colores obtenidos exitosamente", envelope{"colores": colors, "total": len(colors)})
}

func (h *CatalogHandler) ListColorsWithCount(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalog.ListColorsWithCount(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Colores obtenidos exitosamente", envelope{"colores": colors, "total": len(colors)})
}

func (h *CatalogHandler) GetColor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	color, err := h.catalog.GetColor(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Color obtenido exitosamente", envelope{"color": color})
}

func (h *CatalogHandler) CreateColor(w http.ResponseWriter, r *http.Request) {
	var req ColorRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	color, err := h.catalog.CreateColor(r.Context(), middleware.GetActor(r.Context()), service.ColorInput{
		Name:    req.Name,
		HexCode: req.HexCode,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Color creado exitosamente", envelope{"color": color})
}

func (h *CatalogHandler) UpdateColor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req UpdateColorRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	color, err := h.catalog.UpdateColor(r.Context(), middleware.GetActor(r.Context()), id, service.ColorInput{
		Name:    req.Name,
		HexCode: req.HexCode,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Color actualizado exitosamente", envelope{"color": color})
}

func (h *CatalogHandler) DeleteColor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.catalog.DeleteColor(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Color eliminado exitosamente", nil)
}
