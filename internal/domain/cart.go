package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus tracks whether a cart is still editable or already ordered.
type CartStatus string

const (
	CartStatusActive    CartStatus = "activa"
	CartStatusFinalized CartStatus = "finalizada"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusFinalized,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}

// Cart is a user's basket. Only one active cart exists per user.
type Cart struct {
	ID        uuid.UUID  `json:"id_cesta" db:"id"`
	UserID    uuid.UUID  `json:"id_usuario" db:"user_id"`
	Status    CartStatus `json:"estado" db:"status"`
	CreatedAt time.Time  `json:"fecha_creacion" db:"created_at"`
	UpdatedAt time.Time  `json:"fecha_actualizacion" db:"updated_at"`

	Items  []*CartItem `json:"items,omitempty" db:"-"`
	Totals *CartTotals `json:"totales,omitempty" db:"-"`
}

// IsActive reports whether the cart still accepts changes.
func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// CartItem is one line of a cart, joined with the catalog data needed to price it.
type CartItem struct {
	ID        uuid.UUID `json:"id_item_cesta" db:"id"`
	CartID    uuid.UUID `json:"id_cesta" db:"cart_id"`
	VariantID uuid.UUID `json:"id_variante" db:"variant_id"`
	Quantity  int       `json:"cantidad" db:"quantity"`
	CreatedAt time.Time `json:"fecha_agregado" db:"created_at"`
	UpdatedAt time.Time `json:"fecha_actualizacion" db:"updated_at"`

	ProductID       uuid.UUID       `json:"id_producto" db:"product_id"`
	ProductName     string          `json:"nombre_producto" db:"product_name"`
	BasePrice       decimal.Decimal `json:"precio" db:"base_price"`
	AdditionalPrice decimal.Decimal `json:"precio_adicional" db:"additional_price"`
	SizeName        string          `json:"talla" db:"size_name"`
	ColorName       string          `json:"color" db:"color_name"`
	ColorHex        string          `json:"codigo_hex" db:"color_hex"`
	Stock           int             `json:"stock_disponible" db:"stock"`
}

// UnitPrice is the product base price plus the variant surcharge.
func (i *CartItem) UnitPrice() decimal.Decimal {
	return i.BasePrice.Add(i.AdditionalPrice)
}

// LineTotal is UnitPrice times quantity.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartTotals is derived on every read and never stored.
type CartTotals struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_precio"`
	ItemsCount int             `json:"items_count"`
}

// ComputeCartTotals sums quantities and line totals over items.
func ComputeCartTotals(items []*CartItem) CartTotals {
	totals := CartTotals{TotalPrice: decimal.Zero, ItemsCount: len(items)}
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(item.LineTotal())
	}
	return totals
}
