package channels

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/shopspring/decimal"
)

// maxDemoOrders caps how many orders one simulated fetch fabricates
const maxDemoOrders = 20

// demoProduct is one entry of the fixed demo catalog
type demoProduct struct {
	sku   string
	name  string
	price decimal.Decimal
}

// demoCatalog is shared by every simulated channel so that SKUs line up with
// the seeded inventory ledger.
var demoCatalog = []demoProduct{
	{"WIDGET-001", "Premium Widget", decimal.NewFromFloat(29.99)},
	{"GADGET-042", "Smart Gadget Pro", decimal.NewFromFloat(149.99)},
	{"TOOL-123", "Professional Tool Set", decimal.NewFromFloat(89.99)},
	{"ACC-999", "Deluxe Accessory Kit", decimal.NewFromFloat(39.99)},
}

var demoStatuses = []channel.OrderStatus{
	channel.OrderStatusPending,
	channel.OrderStatusProcessing,
	channel.OrderStatusShipped,
	channel.OrderStatusDelivered,
}

var demoCities = []struct {
	city  string
	state string
}{
	{"New York", "NY"},
	{"Los Angeles", "CA"},
	{"Chicago", "IL"},
	{"Houston", "TX"},
	{"Phoenix", "AZ"},
}

// demoTaxRate approximates a combined sales tax
var demoTaxRate = decimal.NewFromFloat(0.0875)

// demoFreeShippingFloor is the subtotal above which shipping is free
var demoFreeShippingFloor = decimal.NewFromInt(50)

// demoShippingFee is the flat fee below the free-shipping floor
var demoShippingFee = decimal.NewFromFloat(5.99)

// demoProfile parameterizes the generator per channel: identifier formats and
// carrier differ, the structural invariants do not.
type demoProfile struct {
	code        channel.Code
	orderID     func(i int) string
	orderNumber func(i int) string
	tracking    func(i int) string
	carrier     string
}

// demoGenerator fabricates structurally valid orders for one channel in
// simulated mode. Generated data is pseudo-random but always satisfies the
// same invariants as live data: totals reconcile, line totals match
// quantity times unit price, and a tracking number is present exactly when
// the status implies a shipment.
type demoGenerator struct {
	profile demoProfile

	mu  sync.Mutex
	rng *rand.Rand
}

func newDemoGenerator(profile demoProfile) *demoGenerator {
	return &demoGenerator{
		profile: profile,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Orders fabricates up to limit orders, optionally only those placed after since
func (g *demoGenerator) Orders(limit int, since *time.Time) []channel.Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := limit
	if n > maxDemoOrders {
		n = maxDemoOrders
	}

	orders := make([]channel.Order, 0, n)
	for i := 0; i < n; i++ {
		order := g.order(i)
		if since != nil && !order.OrderDate.After(*since) {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

// Order fabricates a single order carrying the requested identifier
func (g *demoGenerator) Order(orderID string) channel.Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	order := g.order(0)
	order.ID = orderID
	return order
}

func (g *demoGenerator) order(i int) channel.Order {
	product := demoCatalog[g.rng.Intn(len(demoCatalog))]
	quantity := 1 + g.rng.Intn(3)
	status := demoStatuses[g.rng.Intn(len(demoStatuses))]
	placed := time.Now().Add(-time.Duration(g.rng.Intn(30*24)) * time.Hour).Truncate(time.Second)
	location := demoCities[g.rng.Intn(len(demoCities))]

	lineTotal := product.price.Mul(decimal.NewFromInt(int64(quantity)))
	tax := lineTotal.Mul(demoTaxRate).Round(2)
	shipping := decimal.Zero
	if lineTotal.LessThan(demoFreeShippingFloor) {
		shipping = demoShippingFee
	}

	order := channel.Order{
		ID:            g.profile.orderID(i),
		Channel:       g.profile.code,
		OrderNumber:   g.profile.orderNumber(i),
		Status:        status,
		OrderDate:     placed,
		CustomerName:  fmt.Sprintf("Customer %d", i+1),
		CustomerEmail: fmt.Sprintf("customer%d@example.com", i+1),
		ShippingAddress: channel.Address{
			Line1:      fmt.Sprintf("%d Main Street", 100+i),
			City:       location.city,
			State:      location.state,
			PostalCode: fmt.Sprintf("%d", 10000+i),
			Country:    "US",
		},
		Subtotal:     lineTotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        lineTotal.Add(tax).Add(shipping),
		Currency:     "USD",
		Items: []channel.OrderLine{
			{
				SKU:         product.sku,
				ProductName: product.name,
				Quantity:    quantity,
				UnitPrice:   product.price,
				TotalPrice:  lineTotal,
			},
		},
	}
	if i%3 == 0 {
		order.ShippingAddress.Line2 = fmt.Sprintf("Apt %d", i+1)
	}
	if status.HasShipment() {
		order.TrackingNumber = g.profile.tracking(i)
		order.Carrier = g.profile.carrier
	}
	return order
}
