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
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNumberTaken   = errors.New("order number already used")
	ErrCartAlreadyOrdered = errors.New("an order already exists for this cart")
)

const orderColumns = `
	o.id, o.order_number, o.user_id, o.cart_id, o.status, o.subtotal, o.tax, o.discount, o.total,
	o.delivery_address, o.contact_phone, o.notes, o.estimated_delivery, o.created_at, o.updated_at
`

const orderSelect = `
	SELECT ` + orderColumns + `,
	       u.name AS customer_name, u.email AS customer_email,
	       (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count
	FROM orders o
	JOIN users u ON u.id = o.user_id
`

// OrderFilter narrows an order listing. Nil fields are not filtered on.
type OrderFilter struct {
	UserID   *uuid.UUID
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

// OrderRepository defines the interface for order, order line and status history data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	InsertItems(ctx context.Context, items []*domain.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIDForUpdate locks the order row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	History(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderStatusEvent, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
	// AppendStatus records event and copies its status onto the order row.
	// It is the only write path for an order's status.
	AppendStatus(ctx context.Context, event *domain.OrderStatusEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*domain.OrderStats, error)
	// NextSequence returns the next order sequence number for day, starting at 1.
	NextSequence(ctx context.Context, day time.Time) (int, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id, cart_id, status, subtotal, tax, discount, total,
			delivery_address, contact_phone, notes, estimated_delivery, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.CartID,
		order.Status,
		order.Subtotal,
		order.Tax,
		order.Discount,
		order.Total,
		order.DeliveryAddress,
		order.ContactPhone,
		order.Notes,
		order.EstimatedDelivery,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		switch {
		case isUniqueViolation(err, "uq_orders_number"):
			return ErrOrderNumberTaken
		case isUniqueViolation(err, "uq_orders_cart"):
			return ErrCartAlreadyOrdered
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *orderRepository) InsertItems(ctx context.Context, items []*domain.OrderItem) error {
	query := `
		INSERT INTO order_items (
			id, order_id, variant_id, quantity, unit_price, subtotal,
			product_name, size_name, color_name, color_hex, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, item := range items {
		_, err := r.db.ExecContext(ctx, query,
			item.ID, item.OrderID, item.VariantID, item.Quantity, item.UnitPrice, item.Subtotal,
			item.ProductName, item.SizeName, item.ColorName, item.ColorHex, item.Position)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}
	if err := r.db.GetContext(ctx, order, orderSelect+` WHERE o.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}
	if err := r.db.GetContext(ctx, order, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) Items(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	items := []*domain.OrderItem{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT id, order_id, variant_id, quantity, unit_price, subtotal,
		       product_name, size_name, color_name, color_hex, position
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return items, nil
}

// History returns the status events newest first
func (r *orderRepository) History(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderStatusEvent, error) {
	events := []*domain.OrderStatusEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, order_id, status, comment, changed_by, changed_at
		FROM order_status_events
		WHERE order_id = $1
		ORDER BY changed_at DESC, id DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order history: %w", err)
	}
	return events, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error) {
	whereClause := "WHERE 1 = 1"
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClause += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders o `+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`,
		orderSelect, whereClause, argIndex, argIndex+1)
	args = append(args, filter.PageSize, pageOffset(filter.Page, filter.PageSize))

	orders := []*domain.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepository) AppendStatus(ctx context.Context, event *domain.OrderStatusEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_status_events (id, order_id, status, comment, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.OrderID, event.Status, event.Comment, event.ChangedBy, event.ChangedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to append status event: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		event.OrderID, event.Status, event.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return expectOneRow(result, ErrOrderNotFound)
}

// Delete removes the history, the lines, then the order itself
func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_status_events WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order history: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	return expectOneRow(result, ErrOrderNotFound)
}

func (r *orderRepository) Stats(ctx context.Context, since time.Time) (*domain.OrderStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_orders,
			COUNT(*) FILTER (WHERE status = 'pendiente') AS pending,
			COUNT(*) FILTER (WHERE status = 'confirmado') AS confirmed,
			COUNT(*) FILTER (WHERE status = 'enviado') AS shipped,
			COUNT(*) FILTER (WHERE status = 'entregado') AS delivered,
			COUNT(*) FILTER (WHERE status = 'cancelado') AS cancelled,
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelado'), 0) AS total_sales,
			COALESCE(ROUND(AVG(total) FILTER (WHERE status <> 'cancelado'), 2), 0) AS average_ticket
		FROM orders
		WHERE created_at >= $1
	`

	stats := &domain.OrderStats{}
	if err := r.db.GetContext(ctx, stats, query, since); err != nil {
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}
	stats.WindowStartedAt = since

	return stats, nil
}

func (r *orderRepository) NextSequence(ctx context.Context, day time.Time) (int, error) {
	query := `
		INSERT INTO order_sequences (day, last_value)
		VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET last_value = order_sequences.last_value + 1
		RETURNING last_value
	`

	var next int
	if err := r.db.QueryRowxContext(ctx, query, day.Format("2006-01-02")).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to allocate order sequence: %w", err)
	}
	return next, nil
}
