package entity

import "time"

type ServiceType string

const (
	ServiceUnknown  ServiceType = ""
	ServiceDineIn   ServiceType = "dine_in"
	ServiceDelivery ServiceType = "delivery"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const (
	MinQuantity = 1
	MaxQuantity = 50

	MinTableNumber = 1
	MaxTableNumber = 7
)

// OrderLine is one item-quantity entry in a cart. At most one line exists
// per (order, item); a repeated add replaces the quantity of the existing
// line.
type OrderLine struct {
	OrderID   string    `db:"order_id"`
	ItemID    string    `db:"item_id"`
	ItemName  string    `db:"item_name"`
	Quantity  int       `db:"quantity"`
	UnitPrice float64   `db:"unit_price"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
}

func (l OrderLine) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// Order is the open cart (status open) or its archived snapshot after
// confirm/cancel. It is keyed by the owning phone number and mutated only
// under the same per-user lock as the Session.
type Order struct {
	ID          string      `db:"id"`
	PhoneNumber string      `db:"phone_number"`
	ServiceType ServiceType `db:"service_type"`
	Location    string      `db:"location"`
	Status      OrderStatus `db:"status"`
	Lines       []OrderLine `db:"-"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (o *Order) Total() float64 {
	var total float64
	for _, line := range o.Lines {
		total += line.Subtotal()
	}
	return total
}

func (o *Order) FindLine(itemID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ItemID == itemID {
			return &o.Lines[i]
		}
	}
	return nil
}
