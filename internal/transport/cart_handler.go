package transport

import (
	"net/http"

	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest puts units of a variant in a cart
type AddItemRequest struct {
	VariantID uuid.UUID `json:"id_variante" validate:"required"`
	Quantity  int       `json:"cantidad" validate:"required,gte=1"`
}

// AddItemsRequest adds several lines at once
type AddItemsRequest struct {
	Items []AddItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type UpdateItemRequest struct {
	Quantity int `json:"cantidad" validate:"required,gte=1"`
}

// CartHandler serves the shopping basket and its lines. Every route
// requires authentication; ownership is checked by the service.
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cesta-pedido", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(adminMiddleware).Get("/", h.ListCarts)
		r.Get("/mi-cesta", h.MyCart)
		r.Get("/{cestaId}", h.GetCart)
		r.Get("/{cestaId}/total", h.CartTotals)
		r.Delete("/{cestaId}/vaciar", h.ClearCart)
	})

	r.Route("/api/items-cesta", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/cesta/{cestaId}", h.AddItem)
		r.Post("/cesta/{cestaId}/multiples", h.AddItems)
		r.Get("/cesta/{cestaId}", h.ListItems)
		r.Put("/{itemId}", h.UpdateItem)
		r.Delete("/{itemId}", h.RemoveItem)
	})
}

// MyCart returns the caller's active cart, creating it on first use
func (h *CartHandler) MyCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetOrCreateActive(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Cesta obtenida exitosamente", envelope{"cesta": cart})
}

func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.carts.List(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Cestas obtenidas exitosamente", envelope{"cestas": carts, "total": len(carts)})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	cart, err := h.carts.Get(r.Context(), middleware.GetActor(r.Context()), cartID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Cesta obtenida exitosamente", envelope{"cesta": cart})
}

func (h *CartHandler) CartTotals(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	totals, err := h.carts.Totals(r.Context(), middleware.GetActor(r.Context()), cartID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Total calculado exitosamente", envelope{
		"total_items":  totals.TotalItems,
		"total_precio": totals.TotalPrice,
		"items_count":  totals.ItemsCount,
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	removed, err := h.carts.Clear(r.Context(), middleware.GetActor(r.Context()), cartID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Cesta vaciada exitosamente", envelope{"items_eliminados": removed})
}

// AddItems answers 201 with the stored lines and the reasons the rest were
// skipped
func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req AddItemsRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	lines := make([]service.CartLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.CartLineInput{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	result, err := h.carts.AddItems(r.Context(), middleware.GetActor(r.Context()), cartID, lines)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Items procesados", envelope{
		"items_agregados": result.Added,
		"total_agregados": len(result.Added),
		"errores":         result.Errors,
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req AddItemRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	item, err := h.carts.AddItem(r.Context(), middleware.GetActor(r.Context()), cartID, req.VariantID, req.Quantity)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusCreated, "Producto agregado a la cesta", envelope{"item": item})
}

func (h *CartHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	items, err := h.carts.Items(r.Context(), middleware.GetActor(r.Context()), cartID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Items obtenidos exitosamente", envelope{"items": items, "total": len(items)})
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req UpdateItemRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	item, err := h.carts.UpdateItemQuantity(r.Context(), middleware.GetActor(r.Context()), itemID, req.Quantity)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Cantidad actualizada exitosamente", envelope{"item": item})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	if err := h.carts.RemoveItem(r.Context(), middleware.GetActor(r.Context()), itemID); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Producto eliminado de la cesta", nil)
}
