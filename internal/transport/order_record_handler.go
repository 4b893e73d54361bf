package transport

import (
	"net/http"

	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderRecordHandler serves the read-only views over order lines and status
// history
type OrderRecordHandler struct {
	recordService service.OrderRecordService
	logger        *zap.Logger
}

func NewOrderRecordHandler(recordService service.OrderRecordService, logger *zap.Logger) *OrderRecordHandler {
	return &OrderRecordHandler{
		recordService: recordService,
		logger:        logger,
	}
}

// RegisterRoutes registers the order line and status history routes
func (h *OrderRecordHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/items-pedido", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(adminMiddleware).Get("/", h.ListItems)
		r.With(adminMiddleware).Get("/admin/estadisticas", h.GetItemStats)
		r.With(adminMiddleware).Get("/producto/{productoId}", h.ListItemsByProduct)
		r.With(adminMiddleware).Get("/variante/{varianteId}", h.ListItemsByVariant)

		r.Get("/mis-items", h.ListMyItems)
		r.Get("/pedido/{pedidoId}", h.ListOrderItems)
		r.Get("/pedido/{pedidoId}/resumen", h.GetOrderSummary)
		r.Get("/{itemId}", h.GetItem)
	})

	r.Route("/api/estados-pedido", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(adminMiddleware).Get("/", h.ListStatusEvents)
		r.With(adminMiddleware).Get("/admin/estadisticas", h.GetStatusStats)

		r.Get("/mis-estados", h.ListMyStatusEvents)
		r.Get("/estado/{estado}", h.ListStatusEventsByStatus)
		r.Get("/pedido/{pedidoId}/ultimo", h.GetLatestStatus)
		r.Get("/{estadoId}", h.GetStatusEvent)
	})
}

func (h *OrderRecordHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ListItems(r.Context(), middleware.GetActor(r.Context()), page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondItemPage(w, result)
}

func (h *OrderRecordHandler) ListMyItems(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ListMyItems(r.Context(), middleware.GetActor(r.Context()), page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondItemPage(w, result)
}

func (h *OrderRecordHandler) ListItemsByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ItemsByProduct(r.Context(), middleware.GetActor(r.Context()), productID, page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondItemPage(w, result)
}

func (h *OrderRecordHandler) ListItemsByVariant(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuidParam(r, "varianteId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ItemsByVariant(r.Context(), middleware.GetActor(r.Context()), variantID, page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondItemPage(w, result)
}

func (h *OrderRecordHandler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	items, err := h.recordService.OrderItems(r.Context(), middleware.GetActor(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Items del pedido obtenidos exitosamente", envelope{"items": items, "total": len(items)})
}

func (h *OrderRecordHandler) GetOrderSummary(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	summary, err := h.recordService.OrderSummary(r.Context(), middleware.GetActor(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Resumen del pedido obtenido exitosamente", envelope{"resumen": summary})
}

func (h *OrderRecordHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuidParam(r, "itemId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	item, err := h.recordService.GetItem(r.Context(), middleware.GetActor(r.Context()), itemID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Item del pedido obtenido exitosamente", envelope{"item": item})
}

func (h *OrderRecordHandler) GetItemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recordService.ItemStats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estadísticas obtenidas exitosamente", envelope{"estadisticas": stats})
}

func (h *OrderRecordHandler) ListStatusEvents(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ListStatusEvents(r.Context(), middleware.GetActor(r.Context()), page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondStatusPage(w, result)
}

func (h *OrderRecordHandler) ListMyStatusEvents(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.recordService.ListMyStatusEvents(r.Context(), middleware.GetActor(r.Context()), page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondStatusPage(w, result)
}

// ListStatusEventsByStatus shows admins every entry with that status and
// customers the entries of their own orders
func (h *OrderRecordHandler) ListStatusEventsByStatus(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	status := domain.OrderStatus(chi.URLParam(r, "estado"))
	result, err := h.recordService.StatusEventsByStatus(r.Context(), middleware.GetActor(r.Context()), status, page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respondStatusPage(w, result)
}

func (h *OrderRecordHandler) GetLatestStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	event, err := h.recordService.LatestStatus(r.Context(), middleware.GetActor(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Último estado obtenido exitosamente", envelope{"estado": event})
}

func (h *OrderRecordHandler) GetStatusEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuidParam(r, "estadoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	event, err := h.recordService.GetStatusEvent(r.Context(), middleware.GetActor(r.Context()), eventID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estado obtenido exitosamente", envelope{"estado": event})
}

func (h *OrderRecordHandler) GetStatusStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.recordService.StatusStats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estadísticas obtenidas exitosamente", envelope{"estadisticas": counts})
}

func respondItemPage(w http.ResponseWriter, page *service.OrderItemPage) {
	respond(w, http.StatusOK, "Items de pedido obtenidos exitosamente", envelope{
		"items":  page.Items,
		"total":  page.Total,
		"pagina": page.Page,
		"limite": page.PageSize,
	})
}

func respondStatusPage(w http.ResponseWriter, page *service.StatusEventPage) {
	respond(w, http.StatusOK, "Estados de pedido obtenidos exitosamente", envelope{
		"estados": page.Events,
		"total":   page.Total,
		"pagina":  page.Page,
		"limite":  page.PageSize,
	})
}
