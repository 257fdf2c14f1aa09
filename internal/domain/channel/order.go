package channel

import (
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// roundingTolerance is the maximum allowed difference between the stated order
// total and the sum of its monetary parts.
var roundingTolerance = decimal.NewFromFloat(0.01)

// OrderStatus represents the fulfillment status of an order
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed but not processed
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is being prepared
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order has been handed to a carrier
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates the order was refunded
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the status is a terminal state
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// HasShipment returns true if the status implies a shipment exists
func (s OrderStatus) HasShipment() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

// Address is the shipping destination of an order
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// OrderLine is a single line item within an order. Lines are owned by their
// order and have no independent lifecycle.
type OrderLine struct {
	SKU          string          `json:"sku"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	VariantTitle string          `json:"variant_title,omitempty"`
}

// Validate checks the structural invariants of an order line
func (l *OrderLine) Validate() error {
	if l.SKU == "" {
		return shared.NewDomainError("INVALID_LINE", "Order line SKU is required")
	}
	if l.Quantity <= 0 {
		return shared.NewDomainError("INVALID_LINE", "Order line quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_LINE", "Order line unit price cannot be negative")
	}
	expected := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	if l.TotalPrice.Sub(expected).Abs().GreaterThan(roundingTolerance) {
		return shared.NewDomainError("INVALID_LINE", "Order line total does not match quantity * unit price")
	}
	return nil
}

// Order is a read-only view of an order on one sales channel. Orders are
// fetched on demand and never persisted locally; the channel remains the
// source of truth.
type Order struct {
	// ID is the channel-scoped order identifier
	ID string `json:"id"`
	// Channel identifies the sales channel this order came from
	Channel Code `json:"channel"`
	// OrderNumber is the channel-native human-facing order number
	OrderNumber string `json:"order_number"`
	// Status is the current fulfillment status
	Status OrderStatus `json:"status"`
	// OrderDate is when the order was placed on the channel
	OrderDate time.Time `json:"order_date"`

	CustomerName    string  `json:"customer_name"`
	CustomerEmail   string  `json:"customer_email,omitempty"`
	ShippingAddress Address `json:"shipping_address"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`

	// TrackingNumber and Carrier are set only for shipped/delivered orders
	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`

	Items []OrderLine `json:"items"`
}

// GlobalID returns an identifier that is unique across all channels.
// Channel-native IDs are only unique within their own channel.
func (o *Order) GlobalID() string {
	return string(o.Channel) + ":" + o.ID
}

// Validate checks the structural invariants of an order
func (o *Order) Validate() error {
	if o.ID == "" {
		return shared.NewDomainError("INVALID_ORDER", "Order ID is required")
	}
	if !o.Channel.IsValid() {
		return shared.NewDomainError("INVALID_ORDER", "Order channel is not a known channel")
	}
	if !o.Status.IsValid() {
		return shared.NewDomainError("INVALID_ORDER", "Order status is invalid")
	}
	if o.OrderDate.IsZero() {
		return shared.NewDomainError("INVALID_ORDER", "Order date is required")
	}
	if o.Subtotal.IsNegative() || o.Tax.IsNegative() || o.ShippingCost.IsNegative() || o.Total.IsNegative() {
		return shared.NewDomainError("INVALID_ORDER", "Order amounts cannot be negative")
	}
	expected := o.Subtotal.Add(o.Tax).Add(o.ShippingCost)
	if o.Total.Sub(expected).Abs().GreaterThan(roundingTolerance) {
		return shared.NewDomainError("INVALID_ORDER", "Order total does not reconcile with subtotal + tax + shipping")
	}
	if o.Status.HasShipment() != (o.TrackingNumber != "") {
		return shared.NewDomainError("INVALID_ORDER", "Tracking number must be present exactly for shipped or delivered orders")
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Less reports the aggregation ordering: newest order date first, ties broken
// by channel code then channel-native order ID ascending for determinism.
func (o *Order) Less(other *Order) bool {
	if !o.OrderDate.Equal(other.OrderDate) {
		return o.OrderDate.After(other.OrderDate)
	}
	if o.Channel != other.Channel {
		return o.Channel < other.Channel
	}
	return o.ID < other.ID
}
