package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("cart line not found")

func New(customerID string) *Cart {
	return &Cart{CustomerID: customerID}
}

// AddItem puts one unit of product from vendor into the cart. A line for the
// same product and vendor is incremented instead of duplicated.
func (c *Cart) AddItem(p Product, vendorID, vendorName string) Line {
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.Product.ID == p.ID && l.VendorID == vendorID {
			l.Quantity++
			return *l
		}
	}
	l := Line{
		ID:         uuid.NewString(),
		Product:    p,
		VendorID:   vendorID,
		VendorName: vendorName,
		Quantity:   1,
	}
	c.Lines = append(c.Lines, l)
	return l
}

// UpdateQuantity sets the quantity of a line. qty <= 0 removes the line and
// is a no-op when the line is already gone.
func (c *Cart) UpdateQuantity(lineID string, qty int) error {
	if qty <= 0 {
		c.RemoveItem(lineID)
		return nil
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = qty
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) RemoveItem(lineID string) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() { c.Lines = nil }

// RemovePurchased takes bought out of the cart. Units added to a line after
// the snapshot stay, as do lines the snapshot never saw.
func (c *Cart) RemovePurchased(bought []Line) {
	for _, b := range bought {
		for i := range c.Lines {
			if c.Lines[i].ID != b.ID {
				continue
			}
			if c.Lines[i].Quantity > b.Quantity {
				c.Lines[i].Quantity -= b.Quantity
			} else {
				c.RemoveItem(b.ID)
			}
			break
		}
	}
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Snapshot returns a copy of the lines that later cart edits cannot touch.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// GroupByVendor partitions lines by vendor id. Groups keep the order in which
// each vendor first appears.
func GroupByVendor(lines []Line) []VendorGroup {
	idx := map[string]int{}
	var groups []VendorGroup
	for _, l := range lines {
		i, ok := idx[l.VendorID]
		if !ok {
			i = len(groups)
			idx[l.VendorID] = i
			groups = append(groups, VendorGroup{VendorID: l.VendorID, VendorName: l.VendorName})
		}
		groups[i].Lines = append(groups[i].Lines, l)
		groups[i].Subtotal += l.Subtotal()
	}
	return groups
}

// ComputeBill prices a set of lines. Tax applies to items plus both fees and
// is rounded half away from zero to whole units. An empty set bills nothing.
func ComputeBill(lines []Line, p Pricing) Bill {
	if len(lines) == 0 {
		return Bill{}
	}
	var b Bill
	for _, l := range lines {
		b.ItemTotal += l.Subtotal()
	}
	b.DeliveryFee = p.DeliveryFee
	b.PlatformFee = p.PlatformFee

	base := decimal.NewFromInt(b.ItemTotal + b.DeliveryFee + b.PlatformFee)
	b.Taxes = base.Mul(p.TaxRate).Round(0).IntPart()

	b.GrandTotal = b.ItemTotal + b.DeliveryFee + b.PlatformFee + b.Taxes
	return b
}
