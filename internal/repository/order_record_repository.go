package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gardem-catalog/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderItemNotFound   = errors.New("order item not found")
	ErrStatusEventNotFound = errors.New("order status event not found")
)

const orderItemRecordSelect = `
	SELECT oi.id, oi.order_id, oi.variant_id, oi.quantity, oi.unit_price, oi.subtotal,
	       oi.product_name, oi.size_name, oi.color_name, oi.color_hex, oi.position,
	       o.order_number, o.status AS order_status, o.user_id, o.created_at AS ordered_at
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	JOIN product_variants v ON v.id = oi.variant_id
`

const statusRecordSelect = `
	SELECT e.id, e.order_id, e.status, e.comment, e.changed_by, e.changed_at,
	       o.order_number, o.user_id, u.name AS changed_by_name
	FROM order_status_events e
	JOIN orders o ON o.id = e.order_id
	LEFT JOIN users u ON u.id = e.changed_by
`

// OrderItemFilter narrows an order line listing. Nil fields are not filtered on.
type OrderItemFilter struct {
	UserID    *uuid.UUID
	ProductID *uuid.UUID
	VariantID *uuid.UUID
	Page      int
	PageSize  int
}

// StatusEventFilter narrows a history listing. UserID is the order owner.
type StatusEventFilter struct {
	UserID   *uuid.UUID
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// OrderRecordRepository reads order lines and status history across orders.
// Both are written only by OrderRepository.
type OrderRecordRepository interface {
	FindItem(ctx context.Context, id uuid.UUID) (*domain.OrderItemRecord, error)
	ListItems(ctx context.Context, filter OrderItemFilter) ([]*domain.OrderItemRecord, int, error)
	ItemStats(ctx context.Context, since time.Time) (*domain.OrderItemStats, error)
	FindStatusEvent(ctx context.Context, id uuid.UUID) (*domain.OrderStatusRecord, error)
	ListStatusEvents(ctx context.Context, filter StatusEventFilter) ([]*domain.OrderStatusRecord, int, error)
	StatusStats(ctx context.Context, since time.Time) ([]*domain.StatusDailyCount, error)
}

type orderRecordRepository struct {
	db DBTX
}

func NewOrderRecordRepository(db DBTX) OrderRecordRepository {
	return &orderRecordRepository{db: db}
}

func (r *orderRecordRepository) FindItem(ctx context.Context, id uuid.UUID) (*domain.OrderItemRecord, error) {
	item := &domain.OrderItemRecord{}
	if err := r.db.GetContext(ctx, item, orderItemRecordSelect+` WHERE oi.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("failed to find order item: %w", err)
	}
	return item, nil
}

// ListItems returns lines of the newest orders first
func (r *orderRecordRepository) ListItems(ctx context.Context, filter OrderItemFilter) ([]*domain.OrderItemRecord, int, error) {
	whereClause := "WHERE 1 = 1"
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClause += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.ProductID != nil {
		whereClause += fmt.Sprintf(" AND v.product_id = $%d", argIndex)
		args = append(args, *filter.ProductID)
		argIndex++
	}
	if filter.VariantID != nil {
		whereClause += fmt.Sprintf(" AND oi.variant_id = $%d", argIndex)
		args = append(args, *filter.VariantID)
		argIndex++
	}

	var total int
	countQuery := `
		SELECT COUNT(*) FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN product_variants v ON v.id = oi.variant_id ` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count order items: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY o.created_at DESC, oi.position ASC LIMIT $%d OFFSET $%d`,
		orderItemRecordSelect, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PageSize, pageOffset(filter.Page, filter.PageSize))

	items := []*domain.OrderItemRecord{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list order items: %w", err)
	}
	return items, total, nil
}

func (r *orderRecordRepository) ItemStats(ctx context.Context, since time.Time) (*domain.OrderItemStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_items,
			COUNT(DISTINCT oi.order_id) AS orders_with_items,
			COUNT(DISTINCT oi.variant_id) AS variants_sold,
			COALESCE(SUM(oi.quantity), 0) AS units_sold,
			COALESCE(SUM(oi.subtotal), 0) AS sales,
			COALESCE(ROUND(AVG(oi.unit_price), 2), 0) AS average_unit_price,
			COALESCE(ROUND(AVG(oi.quantity), 2), 0) AS average_quantity
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelado'
	`

	stats := &domain.OrderItemStats{}
	if err := r.db.GetContext(ctx, stats, query, since); err != nil {
		return nil, fmt.Errorf("failed to compute order item stats: %w", err)
	}
	stats.WindowStartedAt = since
	return stats, nil
}

func (r *orderRecordRepository) FindStatusEvent(ctx context.Context, id uuid.UUID) (*domain.OrderStatusRecord, error) {
	event := &domain.OrderStatusRecord{}
	if err := r.db.GetContext(ctx, event, statusRecordSelect+` WHERE e.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusEventNotFound
		}
		return nil, fmt.Errorf("failed to find status event: %w", err)
	}
	return event, nil
}

// ListStatusEvents returns history entries newest first
func (r *orderRecordRepository) ListStatusEvents(ctx context.Context, filter StatusEventFilter) ([]*domain.OrderStatusRecord, int, error) {
	whereClause := "WHERE 1 = 1"
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClause += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND e.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM order_status_events e JOIN orders o ON o.id = e.order_id ` + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count status events: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY e.changed_at DESC, e.id DESC LIMIT $%d OFFSET $%d`,
		statusRecordSelect, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PageSize, pageOffset(filter.Page, filter.PageSize))

	events := []*domain.OrderStatusRecord{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list status events: %w", err)
	}
	return events, total, nil
}

// StatusStats counts history entries per status and day, newest day first
func (r *orderRecordRepository) StatusStats(ctx context.Context, since time.Time) ([]*domain.StatusDailyCount, error) {
	counts := []*domain.StatusDailyCount{}
	err := r.db.SelectContext(ctx, &counts, `
		SELECT status, changed_at::date AS day, COUNT(*) AS total
		FROM order_status_events
		WHERE changed_at >= $1
		GROUP BY status, changed_at::date
		ORDER BY day DESC, status ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to compute status stats: %w", err)
	}
	return counts, nil
}
