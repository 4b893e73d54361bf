package service

import (
	"context"
	"time"

	"gardem-catalog/internal/apperror"
	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemPage is one page of order lines across orders.
type OrderItemPage struct {
	Items    []*domain.OrderItemRecord `json:"items"`
	Total    int                       `json:"total"`
	Page     int                       `json:"pagina"`
	PageSize int                       `json:"limite"`
}

// StatusEventPage is one page of status history across orders.
type StatusEventPage struct {
	Events   []*domain.OrderStatusRecord `json:"estados"`
	Total    int                         `json:"total"`
	Page     int                         `json:"pagina"`
	PageSize int                         `json:"limite"`
}

// OrderSummary is the line summary of a single order.
type OrderSummary struct {
	OrderID     uuid.UUID          `json:"id_pedido"`
	OrderNumber string             `json:"numero_pedido"`
	Status      domain.OrderStatus `json:"estado"`
	domain.OrderItemSummary
}

// OrderRecordService exposes read-only views over order lines and status
// history. Lines are written at checkout and history by status changes, so
// nothing here mutates either.
type OrderRecordService interface {
	GetItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) (*domain.OrderItemRecord, error)
	ListItems(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderItemPage, error)
	ListMyItems(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderItemPage, error)
	ItemsByProduct(ctx context.Context, actor domain.Actor, productID uuid.UUID, page, pageSize int) (*OrderItemPage, error)
	ItemsByVariant(ctx context.Context, actor domain.Actor, variantID uuid.UUID, page, pageSize int) (*OrderItemPage, error)
	OrderItems(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]*domain.OrderItem, error)
	OrderSummary(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*OrderSummary, error)
	ItemStats(ctx context.Context, actor domain.Actor) (*domain.OrderItemStats, error)

	GetStatusEvent(ctx context.Context, actor domain.Actor, eventID uuid.UUID) (*domain.OrderStatusRecord, error)
	ListStatusEvents(ctx context.Context, actor domain.Actor, page, pageSize int) (*StatusEventPage, error)
	ListMyStatusEvents(ctx context.Context, actor domain.Actor, page, pageSize int) (*StatusEventPage, error)
	StatusEventsByStatus(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int) (*StatusEventPage, error)
	LatestStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.OrderStatusEvent, error)
	StatusStats(ctx context.Context, actor domain.Actor) ([]*domain.StatusDailyCount, error)
}

type orderRecordService struct {
	orders  repository.OrderRepository
	records repository.OrderRecordRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderRecordService(orders repository.OrderRepository, records repository.OrderRecordRepository, logger *zap.Logger) OrderRecordService {
	return &orderRecordService{
		orders:  orders,
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *orderRecordService) GetItem(ctx context.Context, actor domain.Actor, itemID uuid.UUID) (*domain.OrderItemRecord, error) {
	item, err := s.records.FindItem(ctx, itemID)
	if err != nil {
		return nil, translate(err, "failed to get order item")
	}
	if err := Authorize(actor, item.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *orderRecordService) ListItems(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderItemPage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.listItems(ctx, repository.OrderItemFilter{}, page, pageSize)
}

// ListMyItems returns the lines of every order the actor placed
func (s *orderRecordService) ListMyItems(ctx context.Context, actor domain.Actor, page, pageSize int) (*OrderItemPage, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.listItems(ctx, repository.OrderItemFilter{UserID: &userID}, page, pageSize)
}

func (s *orderRecordService) ItemsByProduct(ctx context.Context, actor domain.Actor, productID uuid.UUID, page, pageSize int) (*OrderItemPage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.listItems(ctx, repository.OrderItemFilter{ProductID: &productID}, page, pageSize)
}

func (s *orderRecordService) ItemsByVariant(ctx context.Context, actor domain.Actor, variantID uuid.UUID, page, pageSize int) (*OrderItemPage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.listItems(ctx, repository.OrderItemFilter{VariantID: &variantID}, page, pageSize)
}

func (s *orderRecordService) listItems(ctx context.Context, filter repository.OrderItemFilter, page, pageSize int) (*OrderItemPage, error) {
	filter.Page, filter.PageSize = normalizePage(page, pageSize)

	items, total, err := s.records.ListItems(ctx, filter)
	if err != nil {
		return nil, translate(err, "failed to list order items")
	}
	return &OrderItemPage{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *orderRecordService) OrderItems(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	_, items, err := s.ownedOrderItems(ctx, actor, orderID)
	return items, err
}

func (s *orderRecordService) OrderSummary(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*OrderSummary, error) {
	order, items, err := s.ownedOrderItems(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderSummary{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           order.Status,
		OrderItemSummary: domain.SummarizeOrderItems(items),
	}, nil
}

func (s *orderRecordService) ownedOrderItems(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, []*domain.OrderItem, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, translate(err, "failed to get order")
	}
	if err := Authorize(actor, order.UserID, domain.RoleCustomer); err != nil {
		return nil, nil, err
	}
	items, err := s.orders.Items(ctx, orderID)
	if err != nil {
		return nil, nil, translate(err, "failed to get order items")
	}
	return order, items, nil
}

// ItemStats covers the lines of orders placed in the last 30 days
func (s *orderRecordService) ItemStats(ctx context.Context, actor domain.Actor) (*domain.OrderItemStats, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	stats, err := s.records.ItemStats(ctx, s.now().UTC().Add(-statsWindow))
	if err != nil {
		return nil, translate(err, "failed to compute order item stats")
	}
	return stats, nil
}

func (s *orderRecordService) GetStatusEvent(ctx context.Context, actor domain.Actor, eventID uuid.UUID) (*domain.OrderStatusRecord, error) {
	event, err := s.records.FindStatusEvent(ctx, eventID)
	if err != nil {
		return nil, translate(err, "failed to get status event")
	}
	if err := Authorize(actor, event.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *orderRecordService) ListStatusEvents(ctx context.Context, actor domain.Actor, page, pageSize int) (*StatusEventPage, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.listStatusEvents(ctx, repository.StatusEventFilter{}, page, pageSize)
}

// ListMyStatusEvents returns the history of every order the actor placed
func (s *orderRecordService) ListMyStatusEvents(ctx context.Context, actor domain.Actor, page, pageSize int) (*StatusEventPage, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.listStatusEvents(ctx, repository.StatusEventFilter{UserID: &userID}, page, pageSize)
}

// StatusEventsByStatus lists entries with the given status. Customers only
// see entries of their own orders.
func (s *orderRecordService) StatusEventsByStatus(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int) (*StatusEventPage, error) {
	if err := Authorize(actor, actor.UserID, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, apperror.Validation("estado de pedido inválido").
			WithDetails("estado", status).
			WithDetails("estados_validos", domain.OrderStatuses())
	}

	filter := repository.StatusEventFilter{Status: &status}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	return s.listStatusEvents(ctx, filter, page, pageSize)
}

func (s *orderRecordService) listStatusEvents(ctx context.Context, filter repository.StatusEventFilter, page, pageSize int) (*StatusEventPage, error) {
	filter.Page, filter.PageSize = normalizePage(page, pageSize)

	events, total, err := s.records.ListStatusEvents(ctx, filter)
	if err != nil {
		return nil, translate(err, "failed to list status events")
	}
	return &StatusEventPage{Events: events, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *orderRecordService) LatestStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.OrderStatusEvent, error) {
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
	if len(history) == 0 {
		s.logger.Warn("Order without status history", zap.String("order_id", orderID.String()))
		return nil, apperror.NotFound("el pedido no tiene historial de estados")
	}
	return history[0], nil
}

// StatusStats counts status changes per day over the last 30 days
func (s *orderRecordService) StatusStats(ctx context.Context, actor domain.Actor) ([]*domain.StatusDailyCount, error) {
	if err := Authorize(actor, uuid.Nil, domain.RoleAdmin); err != nil {
		return nil, err
	}
	counts, err := s.records.StatusStats(ctx, s.now().UTC().Add(-statsWindow))
	if err != nil {
		return nil, translate(err, "failed to compute status stats")
	}
	return counts, nil
}
