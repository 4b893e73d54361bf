package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products in the catalog.
type Category struct {
	ID          uuid.UUID `json:"id_categoria" db:"id"`
	Name        string    `json:"nombre" db:"name"`
	Description string    `json:"descripcion" db:"description"`
	Active      bool      `json:"activa" db:"active"`
	CreatedAt   time.Time `json:"fecha_creacion" db:"created_at"`
}

// CategoryWithCount is a category with the number of products filed under it.
type CategoryWithCount struct {
	Category
	ProductCount int `json:"total_productos" db:"product_count"`
}

// Size is a garment size such as S, M or 42.
type Size struct {
	ID        uuid.UUID `json:"id_talla" db:"id"`
	Name      string    `json:"nombre" db:"name"`
	CreatedAt time.Time `json:"fecha_creacion" db:"created_at"`
}

// SizeWithCount is a size with the number of distinct products offered in it.
type SizeWithCount struct {
	Size
	ProductCount int `json:"total_productos" db:"product_count"`
}

// Color carries a display name and a #RRGGBB code.
type Color struct {
	ID        uuid.UUID `json:"id_color" db:"id"`
	Name      string    `json:"nombre" db:"name"`
	HexCode   string    `json:"codigo_hex" db:"hex_code"`
	CreatedAt time.Time `json:"fecha_creacion" db:"created_at"`
}

type ColorWithCount struct {
	Color
	ProductCount int `json:"total_productos" db:"product_count"`
}

// Product is the priced catalog entry; stock lives on its variants.
type Product struct {
	ID           uuid.UUID       `json:"id_producto" db:"id"`
	Name         string          `json:"nombre" db:"name"`
	Description  string          `json:"descripcion" db:"description"`
	BasePrice    decimal.Decimal `json:"precio" db:"base_price"`
	CategoryID   uuid.UUID       `json:"id_categoria" db:"category_id"`
	CategoryName string          `json:"nombre_categoria,omitempty" db:"category_name"`
	CreatedAt    time.Time       `json:"fecha_creacion" db:"created_at"`
	UpdatedAt    time.Time       `json:"fecha_actualizacion" db:"updated_at"`

	Variants []*Variant      `json:"variantes,omitempty" db:"-"`
	Images   []*ProductImage `json:"imagenes,omitempty" db:"-"`
}

// ProductWithCount is a product with the number of its variants.
type ProductWithCount struct {
	Product
	VariantCount int `json:"total_variantes" db:"variant_count"`
}

// Variant is a product in a specific size and color with its own stock.
type Variant struct {
	ID              uuid.UUID       `json:"id_variante" db:"id"`
	ProductID       uuid.UUID       `json:"id_producto" db:"product_id"`
	SizeID          uuid.UUID       `json:"id_talla" db:"size_id"`
	ColorID         uuid.UUID       `json:"id_color" db:"color_id"`
	Stock           int             `json:"stock" db:"stock"`
	AdditionalPrice decimal.Decimal `json:"precio_adicional" db:"additional_price"`
	CreatedAt       time.Time       `json:"fecha_creacion" db:"created_at"`
	UpdatedAt       time.Time       `json:"fecha_actualizacion" db:"updated_at"`

	ProductName string          `json:"nombre_producto,omitempty" db:"product_name"`
	BasePrice   decimal.Decimal `json:"precio_base" db:"base_price"`
	SizeName    string          `json:"talla,omitempty" db:"size_name"`
	ColorName   string          `json:"color,omitempty" db:"color_name"`
	ColorHex    string          `json:"codigo_hex,omitempty" db:"color_hex"`
}

// UnitPrice is the base price of the product plus the variant surcharge.
func (v *Variant) UnitPrice() decimal.Decimal {
	return v.BasePrice.Add(v.AdditionalPrice)
}

// ProductImage is an image url attached to a product.
type ProductImage struct {
	ID        uuid.UUID `json:"id_imagen" db:"id"`
	ProductID uuid.UUID `json:"id_producto" db:"product_id"`
	URL       string    `json:"url_imagen" db:"url"`
	AltText   string    `json:"texto_alternativo" db:"alt_text"`
	Position  int       `json:"orden" db:"position"`
	IsPrimary bool      `json:"es_principal" db:"is_primary"`
	CreatedAt time.Time `json:"fecha_creacion" db:"created_at"`
}

// ImagePosition moves one image to a display position.
type ImagePosition struct {
	ImageID  uuid.UUID
	Position int
}

// ImageStats summarizes the image library.
type ImageStats struct {
	TotalImages          int `json:"total_imagenes" db:"total_images"`
	ProductsWithImages   int `json:"productos_con_imagenes" db:"products_with_images"`
	PrimaryImages        int `json:"imagenes_principales" db:"primary_images"`
	ImagesWithoutAltText int `json:"imagenes_sin_alt_text" db:"images_without_alt_text"`
}
