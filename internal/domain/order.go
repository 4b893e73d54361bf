package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusConfirmed OrderStatus = "confirmado"
	OrderStatusShipped   OrderStatus = "enviado"
	OrderStatusDelivered OrderStatus = "entregado"
	OrderStatusCancelled OrderStatus = "cancelado"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// forwardRank orders the non-cancelled states along the delivery path.
var forwardRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s. Cancellation is
// allowed from any non-terminal state; otherwise the move must go forward.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return forwardRank[next] > forwardRank[s]
}

// RequiresAdmin reports whether only an administrator may move an order into s.
func (s OrderStatus) RequiresAdmin() bool {
	return s != OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// Order is created from exactly one cart. Monetary fields are fixed at creation.
type Order struct {
	ID                uuid.UUID       `json:"id_pedido" db:"id"`
	OrderNumber       string          `json:"numero_pedido" db:"order_number"`
	UserID            uuid.UUID       `json:"id_usuario" db:"user_id"`
	CartID            uuid.UUID       `json:"id_cesta" db:"cart_id"`
	Status            OrderStatus     `json:"estado" db:"status"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax               decimal.Decimal `json:"impuestos" db:"tax"`
	Discount          decimal.Decimal `json:"descuento" db:"discount"`
	Total             decimal.Decimal `json:"total_pedido" db:"total"`
	DeliveryAddress   string          `json:"direccion_entrega" db:"delivery_address"`
	ContactPhone      string          `json:"telefono_contacto" db:"contact_phone"`
	Notes             *string         `json:"notas,omitempty" db:"notes"`
	EstimatedDelivery time.Time       `json:"fecha_entrega_estimada" db:"estimated_delivery"`
	CreatedAt         time.Time       `json:"fecha_pedido" db:"created_at"`
	UpdatedAt         time.Time       `json:"fecha_actualizacion" db:"updated_at"`

	CustomerName  string `json:"nombre_usuario,omitempty" db:"customer_name"`
	CustomerEmail string `json:"email,omitempty" db:"customer_email"`
	ItemCount     int    `json:"total_items" db:"item_count"`

	Items   []*OrderItem        `json:"items,omitempty" db:"-"`
	History []*OrderStatusEvent `json:"estados,omitempty" db:"-"`
}

// OrderItem is an immutable price snapshot of one cart line.
type OrderItem struct {
	ID          uuid.UUID       `json:"id_item_pedido" db:"id"`
	OrderID     uuid.UUID       `json:"id_pedido" db:"order_id"`
	VariantID   uuid.UUID       `json:"id_variante" db:"variant_id"`
	Quantity    int             `json:"cantidad" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"precio_unitario" db:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
	ProductName string          `json:"nombre_producto" db:"product_name"`
	SizeName    string          `json:"talla" db:"size_name"`
	ColorName   string          `json:"color" db:"color_name"`
	ColorHex    string          `json:"codigo_color" db:"color_hex"`
	Position    int             `json:"-" db:"position"`
}

// OrderStatusEvent is one append-only entry of an order's history.
type OrderStatusEvent struct {
	ID        uuid.UUID   `json:"id_estado" db:"id"`
	OrderID   uuid.UUID   `json:"id_pedido" db:"order_id"`
	Status    OrderStatus `json:"estado" db:"status"`
	Comment   *string     `json:"comentario,omitempty" db:"comment"`
	ChangedBy *uuid.UUID  `json:"id_usuario_cambio,omitempty" db:"changed_by"`
	ChangedAt time.Time   `json:"fecha_cambio" db:"changed_at"`
}

// OrderTotals holds the amounts computed once when the order is created.
type OrderTotals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeOrderTotals prices cart lines at taxRate. Tax is rounded to cents,
// discount is always zero, and total = subtotal + tax - discount.
func ComputeOrderTotals(items []*CartItem, taxRate decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	discount := decimal.Zero

	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(tax).Sub(discount),
	}
}

// FormatOrderNumber renders PED + YYMMDD + a zero-padded daily sequence.
func FormatOrderNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("PED%s%04d", day.Format("060102"), sequence)
}

// OrderStats summarizes orders for the admin dashboard.
type OrderStats struct {
	TotalOrders     int             `json:"total_pedidos" db:"total_orders"`
	Pending         int             `json:"pedidos_pendientes" db:"pending"`
	Confirmed       int             `json:"pedidos_confirmados" db:"confirmed"`
	Shipped         int             `json:"pedidos_enviados" db:"shipped"`
	Delivered       int             `json:"pedidos_entregados" db:"delivered"`
	Cancelled       int             `json:"pedidos_cancelados" db:"cancelled"`
	TotalSales      decimal.Decimal `json:"total_ventas" db:"total_sales"`
	AverageTicket   decimal.Decimal `json:"promedio_venta" db:"average_ticket"`
	WindowStartedAt time.Time       `json:"desde" db:"-"`
}

// OrderItemRecord is an order line listed outside its order, carrying the
// order it belongs to.
type OrderItemRecord struct {
	OrderItem
	OrderNumber string      `json:"numero_pedido" db:"order_number"`
	OrderStatus OrderStatus `json:"estado_pedido" db:"order_status"`
	UserID      uuid.UUID   `json:"id_usuario" db:"user_id"`
	OrderedAt   time.Time   `json:"fecha_pedido" db:"ordered_at"`
}

// OrderItemSummary aggregates the lines of one order.
type OrderItemSummary struct {
	TotalItems     int             `json:"total_items"`
	TotalUnits     int             `json:"total_unidades"`
	TotalValue     decimal.Decimal `json:"total_valor"`
	UniqueProducts int             `json:"productos_unicos"`
	UniqueVariants int             `json:"variantes_unicas"`
}

// SummarizeOrderItems counts lines, units, value, and distinct products and
// variants. Products are told apart by their snapshotted name.
func SummarizeOrderItems(items []*OrderItem) OrderItemSummary {
	summary := OrderItemSummary{TotalItems: len(items), TotalValue: decimal.Zero}
	products := make(map[string]struct{})
	variants := make(map[uuid.UUID]struct{})
	for _, item := range items {
		summary.TotalUnits += item.Quantity
		summary.TotalValue = summary.TotalValue.Add(item.Subtotal)
		products[item.ProductName] = struct{}{}
		variants[item.VariantID] = struct{}{}
	}
	summary.UniqueProducts = len(products)
	summary.UniqueVariants = len(variants)
	return summary
}

// OrderItemStats summarizes the lines of non-cancelled orders placed since
// WindowStartedAt.
type OrderItemStats struct {
	TotalItems       int             `json:"total_items" db:"total_items"`
	OrdersWithItems  int             `json:"total_pedidos_con_items" db:"orders_with_items"`
	VariantsSold     int             `json:"total_variantes_vendidas" db:"variants_sold"`
	UnitsSold        int             `json:"total_unidades_vendidas" db:"units_sold"`
	Sales            decimal.Decimal `json:"total_ventas_items" db:"sales"`
	AverageUnitPrice decimal.Decimal `json:"precio_promedio" db:"average_unit_price"`
	AverageQuantity  decimal.Decimal `json:"cantidad_promedio_por_item" db:"average_quantity"`
	WindowStartedAt  time.Time       `json:"desde" db:"-"`
}

// OrderStatusRecord is a history entry listed outside its order.
type OrderStatusRecord struct {
	OrderStatusEvent
	OrderNumber   string    `json:"numero_pedido" db:"order_number"`
	UserID        uuid.UUID `json:"id_usuario" db:"user_id"`
	ChangedByName *string   `json:"nombre_usuario_cambio,omitempty" db:"changed_by_name"`
}

// StatusDailyCount is the number of history entries for one status on one day.
type StatusDailyCount struct {
	Status OrderStatus `json:"estado" db:"status"`
	Day    time.Time   `json:"fecha" db:"day"`
	Total  int         `json:"total" db:"total"`
}
