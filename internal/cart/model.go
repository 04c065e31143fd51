package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalogue snapshot a line was added with. Prices are whole
// currency units.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Available bool   `json:"available"`
}

type Line struct {
	ID         string  `json:"id"`
	Product    Product `json:"product"`
	VendorID   string  `json:"vendor_id"`
	VendorName string  `json:"vendor_name"`
	Quantity   int     `json:"quantity"`
}

func (l Line) Subtotal() int64 { return l.Product.Price * int64(l.Quantity) }

type VendorGroup struct {
	VendorID   string `json:"vendor_id"`
	VendorName string `json:"vendor_name"`
	Lines      []Line `json:"lines"`
	Subtotal   int64  `json:"subtotal"`
}

type Bill struct {
	ItemTotal   int64 `json:"item_total"`
	DeliveryFee int64 `json:"delivery_fee"`
	PlatformFee int64 `json:"platform_fee"`
	Taxes       int64 `json:"taxes"`
	GrandTotal  int64 `json:"grand_total"`
}

type Pricing struct {
	DeliveryFee int64
	PlatformFee int64
	TaxRate     decimal.Decimal
}

type Cart struct {
	CustomerID string    `json:"customer_id"`
	Lines      []Line    `json:"lines"`
	UpdatedAt  time.Time `json:"updated_at"`
}
