package transport

import (
	"net/http"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	DeliveryAddress string  `json:"direccion_entrega" validate:"required,max=500"`
	ContactPhone    string  `json:"telefono_contacto" validate:"required,max=20"`
	Notes           *string `json:"notas" validate:"omitempty,max=1000"`
}

// UpdateStatusRequest represents the status change payload
type UpdateStatusRequest struct {
	Status  string `json:"estado" validate:"required"`
	Comment string `json:"comentario" validate:"max=500"`
}

type CancelOrderRequest struct {
	Reason string `json:"motivo" validate:"max=500"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/pedidos", func(r chi.Router) {
		r.Use(authMiddleware)

		r.With(adminMiddleware).Get("/", h.ListOrders)
		r.With(adminMiddleware).Get("/admin/estadisticas", h.GetStats)

		r.Post("/cesta/{cestaId}", h.CreateOrder)
		r.Get("/mis-pedidos", h.ListMyOrders)
		r.Get("/estado/{estado}", h.ListByStatus)
		r.Get("/{pedidoId}", h.GetOrder)
		r.Put("/{pedidoId}/estado", h.UpdateOrderStatus)
		r.Get("/{pedidoId}/estados", h.GetHistory)
		r.Put("/{pedidoId}/cancelar", h.CancelOrder)

		r.With(adminMiddleware).Delete("/{pedidoId}", h.DeleteOrder)
	})
}

// CreateOrder turns the cart into an order
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	cartID, err := uuidParam(r, "cestaId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req CreateOrderRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	actor := middleware.GetActor(r.Context())
	order, err := h.orderService.CreateFromCart(r.Context(), actor, cartID, service.CreateOrderInput{
		DeliveryAddress: req.DeliveryAddress,
		ContactPhone:    req.ContactPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("Order created successfully",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", actor.UserID.String()),
	)
	respond(w, http.StatusCreated, "Pedido creado exitosamente", envelope{"pedido": order})
}

// ListOrders returns every order, optionally filtered by ?estado=
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("estado"); raw != "" {
		s := domain.OrderStatus(raw)
		status = &s
	}

	result, err := h.orderService.ListAll(r.Context(), middleware.GetActor(r.Context()), status, page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	h.respondPage(w, result)
}

func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.orderService.ListMine(r.Context(), middleware.GetActor(r.Context()), page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	h.respondPage(w, result)
}

// ListByStatus shows admins every order in that status and customers their own
func (h *OrderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	status := domain.OrderStatus(chi.URLParam(r, "estado"))
	result, err := h.orderService.ListByStatus(r.Context(), middleware.GetActor(r.Context()), status, page, pageSize)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	h.respondPage(w, result)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	order, err := h.orderService.Get(r.Context(), middleware.GetActor(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Pedido obtenido exitosamente", envelope{"pedido": order})
}

// UpdateOrderStatus advances the order through its workflow
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req UpdateStatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		middleware.RespondWithAppError(w, r, apperror.Validation("estado de pedido inválido").WithDetails("estado", req.Status), h.logger)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), middleware.GetActor(r.Context()), orderID, status, req.Comment)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estado del pedido actualizado", envelope{"pedido": order})
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	history, err := h.orderService.History(r.Context(), middleware.GetActor(r.Context()), orderID)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Historial obtenido exitosamente", envelope{"estados": history, "total": len(history)})
}

// CancelOrder accepts an optional body with the cancellation reason
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	var req CancelOrderRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req, h.logger) {
		return
	}

	order, err := h.orderService.Cancel(r.Context(), middleware.GetActor(r.Context()), orderID, req.Reason)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Pedido cancelado exitosamente", envelope{"pedido": order})
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "pedidoId")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	if err := h.orderService.Delete(r.Context(), middleware.GetActor(r.Context()), orderID); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Pedido eliminado exitosamente", nil)
}

func (h *OrderHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orderService.Stats(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Estadísticas obtenidas exitosamente", envelope{"estadisticas": stats})
}

func (h *OrderHandler) respondPage(w http.ResponseWriter, page *service.OrderPage) {
	respond(w, http.StatusOK, "Pedidos obtenidos exitosamente", envelope{
		"pedidos": page.Orders,
		"total":   page.Total,
		"pagina":  page.Page,
		"limite":  page.PageSize,
	})
}
