package transport

import (
	"net/http"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductRequest struct {
	Name        *string          `json:"nombre" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"descripcion"`
	BasePrice   *decimal.Decimal `json:"precio"`
	CategoryID  *uuid.UUID       `json:"id_categoria"`
}

type VariantRequest struct {
	ProductID       uuid.UUID        `json:"id_producto"`
	SizeID          *uuid.UUID       `json:"id_talla"`
	ColorID         *uuid.UUID       `json:"id_color"`
	Stock           *int             `json:"stock"`
	AdditionalPrice *decimal.Decimal `json:"precio_adicional"`
}

// StockAdjustmentRequest moves stock by a signed delta
type StockAdjustmentRequest struct {
	Delta int `json:"cantidad" validate:"required"`
}

type ImageRequest struct {
	ProductID uuid.UUID `json:"id_producto" validate:"required"`
	URL       string    `json:"url_imagen" validate:"required,url,max=500"`
	AltText   string    `json:"texto_alternativo" validate:"max=200"`
	Position  int       `json:"orden" validate:"gte=0"`
	IsPrimary bool      `json:"es_principal"`
}

type ImagePositionRequest struct {
	ImageID  uuid.UUID `json:"id_imagen" validate:"required"`
	Position int       `json:"orden" validate:"required,gte=1"`
}

// ReorderImagesRequest sets the display order of a product's images
type ReorderImagesRequest struct {
	Images []ImagePositionRequest `json:"ordenImagenes" validate:"required,min=1,dive"`
}

// ProductHandler serves products, their variants and their images
type ProductHandler struct {
	products service.ProductService
	logger   *zap.Logger
}

func NewProductHandler(products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/productos", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/con-conteo", h.ListProductsWithVariantCount)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/variantes-producto", func(r chi.Router) {
		r.With(authMiddleware, adminMiddleware).Get("/stock-bajo", h.LowStock)

		r.Get("/producto/{productoId}", h.ListVariants)
		r.Get("/{id}", h.GetVariant)
		r.Get("/{id}/verificar-stock", h.CheckStock)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Post("/", h.CreateVariant)
			r.Put("/{id}", h.UpdateVariant)
			r.Patch("/{id}/stock", h.AdjustStock)
			r.Delete("/{id}", h.DeleteVariant)
		})
	})

	r.Route("/api/imagenes-producto", func(r chi.Router) {
		r.Get("/producto/{productoId}", h.ListImages)
		r.Get("/producto/{productoId}/principal", h.PrimaryImage)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Get("/admin/estadisticas", h.ImageStats)
			r.Post("/", h.AddImage)
			r.Put("/producto/{productoId}/reordenar", h.ReorderImages)
			r.Patch("/{id}/principal", h.SetPrimaryImage)
			r.Delete("/{id}", h.DeleteImage)
		})
	})
}

// ListProducts supports ?categoria=, ?q=, ?pagina=, ?limite=, ?ordenar= and ?orden=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	query := service.ProductQuery{
		Search:    q.Get("q"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.Get("ordenar"),
		SortOrder: q.Get("orden"),
	}
	if raw := q.Get("categoria"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithAppError(w, r, apperror.Validation("categoría inválida").WithDetails("categoria", raw), h.logger)
			return
		}
		query.CategoryID = &categoryID
	}

	result, err := h.products.ListProducts(r.Context(), query)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Productos obtenidos exitosamente", envelope{
		"productos": result.Products,
		"total":     result.Total,
		"pagina":    result.Page,
		"limite":    result.PageSize,
	})
}

// ListProductsWithVariantCount lists every product with how many variants it has
func (h *ProductHandler) ListProductsWithVariantCount(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProductsWithVariantCount(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Productos obtenidos exitosamente", envelope{"productos": products, "total": len(products)})
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	product, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Producto obtenido exitosamente", envelope{"producto": product})
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	product, err := h.products.CreateProduct(r.Context(), middleware.GetActor(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Producto creado exitosamente", envelope{"producto": product})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req ProductRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	product, err := h.products.UpdateProduct(r.Context(), middleware.GetActor(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Producto actualizado exitosamente", envelope{"producto": product})
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.products.DeleteProduct(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Producto eliminado exitosamente", nil)
}

func (h *ProductHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	variants, err := h.products.ListVariants(r.Context(), productID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Variantes obtenidas exitosamente", envelope{"variantes": variants, "total": len(variants)})
}

func (h *ProductHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	variant, err := h.products.GetVariant(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Variante obtenida exitosamente", envelope{"variante": variant})
}

// CheckStock answers whether ?cantidad= units can be sold right now
func (h *ProductHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	quantity, err := queryInt(r, "cantidad", 1)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	check, err := h.products.CheckStock(r.Context(), id, quantity)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Stock verificado", envelope{
		"disponible":          check.Available,
		"stock_actual":        check.CurrentStock,
		"cantidad_solicitada": check.Requested,
	})
}

func (h *ProductHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req VariantRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	variant, err := h.products.CreateVariant(r.Context(), middleware.GetActor(r.Context()), req.input())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Variante creada exitosamente", envelope{"variante": variant})
}

func (h *ProductHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req VariantRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	variant, err := h.products.UpdateVariant(r.Context(), middleware.GetActor(r.Context()), id, req.input())
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Variante actualizada exitosamente", envelope{"variante": variant})
}

func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req StockAdjustmentRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	variant, err := h.products.AdjustStock(r.Context(), middleware.GetActor(r.Context()), id, req.Delta)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Stock actualizado exitosamente", envelope{"variante": variant})
}

// LowStock lists variants at or below ?limite=, or the configured threshold
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "limite", 0)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	variants, err := h.products.LowStock(r.Context(), middleware.GetActor(r.Context()), threshold)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Variantes con stock bajo obtenidas exitosamente", envelope{"variantes": variants, "total": len(variants)})
}

func (h *ProductHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.products.DeleteVariant(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Variante eliminada exitosamente", nil)
}

func (h *ProductHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	images, err := h.products.ListImages(r.Context(), productID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Imágenes obtenidas exitosamente", envelope{"imagenes": images, "total": len(images)})
}

func (h *ProductHandler) PrimaryImage(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	image, err := h.products.PrimaryImage(r.Context(), productID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Imagen principal obtenida exitosamente", envelope{"imagen": image})
}

func (h *ProductHandler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req ReorderImagesRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	positions := make([]domain.ImagePosition, 0, len(req.Images))
	for _, img := range req.Images {
		positions = append(positions, domain.ImagePosition{ImageID: img.ImageID, Position: img.Position})
	}

	images, err := h.products.ReorderImages(r.Context(), middleware.GetActor(r.Context()), productID, positions)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Orden de imágenes actualizado", envelope{"imagenes": images, "total": len(images)})
}

func (h *ProductHandler) ImageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.products.ImageStats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estadísticas obtenidas exitosamente", envelope{"estadisticas": stats})
}

func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	image, err := h.products.AddImage(r.Context(), middleware.GetActor(r.Context()), service.ImageInput{
		ProductID: req.ProductID,
		URL:       req.URL,
		AltText:   req.AltText,
		Position:  req.Position,
		IsPrimary: req.IsPrimary,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Imagen agregada exitosamente", envelope{"imagen": image})
}

func (h *ProductHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	image, err := h.products.SetPrimaryImage(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Imagen principal actualizada", envelope{"imagen": image})
}

func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.products.DeleteImage(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Imagen eliminada exitosamente", nil)
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		CategoryID:  req.CategoryID,
	}
}

func (req VariantRequest) input() service.VariantInput {
	return service.VariantInput{
		ProductID:       req.ProductID,
		SizeID:          req.SizeID,
		ColorID:         req.ColorID,
		Stock:           req.Stock,
		AdditionalPrice: req.AdditionalPrice,
	}
}
