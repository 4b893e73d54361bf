package service

import (
	"context"
	"strings"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/events"
	"gardem-catalog/internal/repository"
	"gardem-catalog/internal/telemetry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	orderCreatedComment   = "Pedido creado"
	customerCancelComment = "Pedido cancelado por el usuario"
	statsWindow           = 30 * 24 * time.Hour
	publishTimeout        = 5 * time.Second
)

// OrderSettings holds the pricing and delivery parameters of new orders.
type OrderSettings struct {
	TaxRate      decimal.Decimal
	DeliveryDays int
}

// CreateOrderInput is the checkout data supplied with a cart.
type CreateOrderInput struct {
	DeliveryAddress string
	ContactPhone    string
	Notes           *string
}

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders   []*domain.Order `json:"pedidos"`
	Total    int             `json:"total"`
	Page     int             `json:"pagina"`
	PageSize int             `json:"limite"`
}

// OrderService runs the order workflow: checkout of a cart, status
// transitions with their history, and the admin views over orders.
type OrderService interface {
	CreateFromCart(ctx context.Context, actor domain.Actor, cartID uuid.UUID, input CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error)
	ListMine(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderPage, error)
	ListAll(ctx context.Context, actor domain.Actor, status *domain.OrderStatus, page, pageSize int) (*OrderPage, error)
	ListByStatus(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int) (*OrderPage, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status domain.OrderStatus, comment string) (*domain.Order, error)
	Cancel(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error)
	History(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]*domain.OrderStatusEvent, error)
	Delete(ctx context.Context, actor domain.Actor, orderID uuid.UUID) error
	Stats(ctx context.Context, actor domain.Actor) (*domain.OrderStats, error)
}

type orderService struct {
	tx        repository.TxManager
	orders    repository.OrderRepository
	publisher events.Publisher
	settings  OrderSettings
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	tx repository.TxManager,
	orders repository.OrderRepository,
	publisher events.Publisher,
	settings OrderSettings,
	logger *zap.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &orderService{
		tx:        tx,
		orders:    orders,
		publisher: publisher,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFromCart turns the actor's active cart into a pending order. Pricing,
// stock decrement, cart finalization and the first history entry commit
// together or not at all.
func (s *orderService) CreateFromCart(ctx context.Context, actor domain.Actor, cartID uuid.UUID, input CreateOrderInput) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.CreateFromCart")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", cartID.String()))

	started := time.Now()
	orderID, err := s.createFromCart(ctx, actor, cartID, input)
	telemetry.OrderCreationLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		telemetry.OrdersFailedTotal.WithLabelValues(strings.ToLower(string(apperror.CodeOf(err)))).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")

		fields := []zap.Field{
			zap.String("cart_id", cartID.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
			telemetry.TraceField(ctx),
		}
		if apperror.CodeOf(err) == apperror.CodeInternal {
			s.logger.Error("Order creation failed", fields...)
		} else {
			s.logger.Warn("Order creation rejected", fields...)
		}
		return nil, err
	}
	telemetry.OrdersCreatedTotal.Inc()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", order.OrderNumber))

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
		telemetry.TraceField(ctx),
	)

	event := events.NewOrderEvent(events.EventTypeOrderCreated, order)
	event.ActorID = &actor.UserID
	s.publish(ctx, event)

	return order, nil
}

func (s *orderService) createFromCart(ctx context.Context, actor domain.Actor, cartID uuid.UUID, input CreateOrderInput) (uuid.UUID, error) {
	address := strings.TrimSpace(input.DeliveryAddress)
	phone := strings.TrimSpace(input.ContactPhone)
	if address == "" || phone == "" {
		return uuid.Nil, apperror.Validation("la dirección de entrega y el teléfono de contacto son obligatorios")
	}

	orderID := uuid.New()
	linesSold := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cart, err := repos.Carts.FindByIDForUpdate(ctx, cartID)
		if err != nil {
			return translate(err, "failed to lock cart")
		}
		if err := Authorize(actor, cart.UserID, domain.RoleCustomer); err != nil {
			return err
		}
		if !cart.IsActive() {
			return apperror.Validation("la cesta no está activa").WithDetails("estado", cart.Status)
		}

		items, err := repos.Carts.ItemsForUpdate(ctx, cartID)
		if err != nil {
			return translate(err, "failed to lock cart items")
		}
		if len(items) == 0 {
			return apperror.Validation("la cesta está vacía")
		}
		for _, item := range items {
			if item.Quantity > item.Stock {
				return apperror.Conflict("stock insuficiente").
					WithDetails("producto", item.ProductName).
					WithDetails("talla", item.SizeName).
					WithDetails("color", item.ColorName).
					WithDetails("stock_disponible", item.Stock).
					WithDetails("cantidad_solicitada", item.Quantity)
			}
		}

		totals := domain.ComputeOrderTotals(items, s.settings.TaxRate)
		now := s.now().UTC()

		sequence, err := repos.Orders.NextSequence(ctx, now)
		if err != nil {
			return translate(err, "failed to allocate order number")
		}

		order := &domain.Order{
			ID:                orderID,
			OrderNumber:       domain.FormatOrderNumber(now, sequence),
			UserID:            cart.UserID,
			CartID:            cart.ID,
			Status:            domain.OrderStatusPending,
			Subtotal:          totals.Subtotal,
			Tax:               totals.Tax,
			Discount:          totals.Discount,
			Total:             totals.Total,
			DeliveryAddress:   address,
			ContactPhone:      phone,
			Notes:             input.Notes,
			EstimatedDelivery: now.AddDate(0, 0, s.settings.DeliveryDays),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return translate(err, "failed to create order")
		}

		orderItems := make([]*domain.OrderItem, 0, len(items))
		for i, item := range items {
			orderItems = append(orderItems, &domain.OrderItem{
				ID:          uuid.New(),
				OrderID:     orderID,
				VariantID:   item.VariantID,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice(),
				Subtotal:    item.LineTotal(),
				ProductName: item.ProductName,
				SizeName:    item.SizeName,
				ColorName:   item.ColorName,
				ColorHex:    item.ColorHex,
				Position:    i,
			})
		}
		if err := repos.Orders.InsertItems(ctx, orderItems); err != nil {
			return translate(err, "failed to insert order items")
		}

		for _, item := range items {
			if err := repos.Variants.DecrementStock(ctx, item.VariantID, item.Quantity); err != nil {
				return translate(err, "failed to decrement stock")
			}
		}
		linesSold = len(items)

		if err := repos.Carts.SetStatus(ctx, cart.ID, domain.CartStatusFinalized); err != nil {
			return translate(err, "failed to finalize cart")
		}

		return appendStatus(ctx, repos, orderID, domain.OrderStatusPending, orderCreatedComment, actor, now)
	})
	if err != nil {
		return uuid.Nil, err
	}

	telemetry.StockAdjustmentsTotal.WithLabelValues("order").Add(float64(linesSold))
	return orderID, nil
}

func (s *orderService) Get(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, translate(err, "failed to get order")
	}
	if err := Authorize(actor, order.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderPage, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.list(ctx, repository.OrderFilter{UserID: &userID}, page, pageSize)
}

func (s *orderService) ListAll(ctx context.Context, actor domain.Actor, status *domain.OrderStatus, page, pageSize int) (*OrderPage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, apperror.Validation("estado de pedido inválido").WithDetails("estado", *status)
	}
	return s.list(ctx, repository.OrderFilter{Status: status}, page, pageSize)
}

// ListByStatus shows administrators every order in status and customers only their own
func (s *orderService) ListByStatus(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int) (*OrderPage, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperror.Validation("estado de pedido inválido").WithDetails("estado", status)
	}

	filter := repository.OrderFilter{Status: &status}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.list(ctx, filter, page, pageSize)
}

func (s *orderService) list(ctx context.Context, filter repository.OrderFilter, page, pageSize int) (*OrderPage, error) {
	filter.Page, filter.PageSize = normalizePage(page, pageSize)

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "failed to list orders")
	}
	return &OrderPage{Orders: orders, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// UpdateStatus moves the order to status. Customers may only cancel their own
// orders; every other target requires an administrator. Terminal orders and
// backward moves are rejected as conflicts.
func (s *orderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status domain.OrderStatus, comment string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.status", status.String()),
	)

	if !status.IsValid() {
		return nil, apperror.Validation("estado de pedido inválido").
			WithDetails("estado", status).
			WithDetails("estados_validos", domain.OrderStatuses())
	}

	requiredRole := domain.RoleCustomer
	if status.RequiresAdmin() {
		requiredRole = domain.RoleAdmin
	}

	var previous domain.OrderStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return translate(err, "failed to lock order")
		}
		if err := Authorize(actor, order.UserID, requiredRole); err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return apperror.Conflict("el pedido ya no puede modificarse").
				WithDetails("estado_actual", order.Status)
		}
		if !order.Status.CanTransitionTo(status) {
			return apperror.Conflict("transición de estado no permitida").
				WithDetails("estado_actual", order.Status).
				WithDetails("estado_solicitado", status)
		}
		previous = order.Status

		if err := appendStatus(ctx, repos, orderID, status, comment, actor, s.now().UTC()); err != nil {
			return err
		}
		if status == domain.OrderStatusCancelled {
			return restoreStock(ctx, repos, orderID)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if apperror.CodeOf(err) == apperror.CodeInternal {
			s.logger.Error("Order status update failed",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
				telemetry.TraceField(ctx),
			)
		}
		return nil, err
	}
	telemetry.OrderStatusTransitionsTotal.WithLabelValues(status.String()).Inc()

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", previous.String()),
		zap.String("to", status.String()),
		zap.String("actor_id", actor.UserID.String()),
		telemetry.TraceField(ctx),
	)

	event := events.NewOrderEvent(events.EventTypeOrderStatusChanged, order)
	event.PreviousStatus = previous
	event.ActorID = &actor.UserID
	event.Comment = comment
	s.publish(ctx, event)

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error) {
	comment := customerCancelComment
	if reason = strings.TrimSpace(reason); reason != "" {
		comment = "Cancelado: " + reason
	}
	return s.UpdateStatus(ctx, actor, orderID, domain.OrderStatusCancelled, comment)
}

func (s *orderService) History(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]*domain.OrderStatusEvent, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, translate(err, "failed to get order")
	}
	if err := Authorize(actor, order.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}

	history, err := s.orders.History(ctx, orderID)
	if err != nil {
		return nil, translate(err, "failed to get order history")
	}
	return history, nil
}

// Delete removes the order with its lines and history
func (s *orderService) Delete(ctx context.Context, actor domain.Actor, orderID uuid.UUID) error {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return err
	}

	var deleted *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return translate(err, "failed to lock order")
		}
		deleted = order
		return translate(repos.Orders.Delete(ctx, orderID), "failed to delete order")
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order deleted",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", deleted.OrderNumber),
		zap.String("admin_id", actor.UserID.String()),
	)

	event := events.NewOrderEvent(events.EventTypeOrderDeleted, deleted)
	event.ActorID = &actor.UserID
	s.publish(ctx, event)
	return nil
}

// Stats summarizes the orders of the last 30 days
func (s *orderService) Stats(ctx context.Context, actor domain.Actor) (*domain.OrderStats, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}

	stats, err := s.orders.Stats(ctx, s.now().UTC().Add(-statsWindow))
	if err != nil {
		return nil, translate(err, "failed to compute order stats")
	}
	return stats, nil
}

func (s *orderService) load(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, translate(err, "failed to load order")
	}
	if err := s.hydrate(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// hydrate loads lines and history concurrently
func (s *orderService) hydrate(ctx context.Context, order *domain.Order) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.orders.Items(gctx, order.ID)
		order.Items = items
		return err
	})
	g.Go(func() error {
		history, err := s.orders.History(gctx, order.ID)
		order.History = history
		return err
	})
	if err := g.Wait(); err != nil {
		return translate(err, "failed to load order details")
	}
	return nil
}

// publish runs after commit. The request may already be gone, so the event
// gets its own deadline.
func (s *orderService) publish(ctx context.Context, event *events.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		telemetry.EventsPublishFailedTotal.WithLabelValues(string(event.EventType)).Inc()
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", string(event.EventType)),
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
			telemetry.TraceField(ctx),
		)
	}
}

// appendStatus is the only place an order changes status: it records the
// history entry and updates the order row in the caller's transaction.
func appendStatus(
	ctx context.Context,
	repos repository.Repositories,
	orderID uuid.UUID,
	status domain.OrderStatus,
	comment string,
	actor domain.Actor,
	at time.Time,
) error {
	event := &domain.OrderStatusEvent{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		ChangedAt: at,
	}
	if comment = strings.TrimSpace(comment); comment != "" {
		event.Comment = &comment
	}
	if actor.UserID != uuid.Nil {
		changedBy := actor.UserID
		event.ChangedBy = &changedBy
	}

	return translate(repos.Orders.AppendStatus(ctx, event), "failed to append order status")
}

// restoreStock returns every ordered unit to its variant.
func restoreStock(ctx context.Context, repos repository.Repositories, orderID uuid.UUID) error {
	items, err := repos.Orders.Items(ctx, orderID)
	if err != nil {
		return translate(err, "failed to load order items")
	}
	for _, item := range items {
		if _, err := repos.Variants.AdjustStock(ctx, item.VariantID, item.Quantity); err != nil {
			return translate(err, "failed to restore stock")
		}
		telemetry.StockAdjustmentsTotal.WithLabelValues("cancellation").Inc()
	}
	return nil
}
