package orders

import (
	"slices"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/payment"
)

type CustomerDetails struct {
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark,omitempty"`
}

type LineItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	VendorID    string `json:"vendor_id"`
	VendorName  string `json:"vendor_name"`
}

type Order struct {
	ID                  string          `json:"id"`
	CustomerID          string          `json:"customer_id"`
	Customer            CustomerDetails `json:"customer"`
	Items               []LineItem      `json:"items"`
	VendorIDs           []string        `json:"vendor_ids"`
	TotalAmount         int64           `json:"total_amount"`
	Currency            string          `json:"currency"`
	Receipt             payment.Receipt `json:"payment"`
	DeliveryAddress     Address         `json:"delivery_address"`
	Status              Status          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	EstimatedDeliveryAt time.Time       `json:"estimated_delivery_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (o *Order) HasVendor(vendorID string) bool {
	return slices.Contains(o.VendorIDs, vendorID)
}

func (o *Order) clone() *Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	cp.VendorIDs = slices.Clone(o.VendorIDs)
	return &cp
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	CustomerID string
	VendorID   string
	Status     Status
}

func (f Filter) match(o *Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.VendorID != "" && !o.HasVendor(f.VendorID) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}
