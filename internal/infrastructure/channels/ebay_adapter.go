package channels

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

// EbayAdapter implements channel.Adapter for the eBay Sell Fulfillment API
type EbayAdapter struct {
	config   *config.EbayConfig
	client   *resty.Client
	logger   *zap.Logger
	demo     *demoGenerator
	demoMode bool
}

// NewEbayAdapter creates an eBay adapter. demoMode forces simulated mode even
// when credentials are present.
func NewEbayAdapter(cfg *config.EbayConfig, demoMode bool, timeout time.Duration, logger *zap.Logger) *EbayAdapter {
	a := &EbayAdapter{
		config:   cfg,
		logger:   logger.With(zap.String("channel", channel.CodeEbay.String())),
		demoMode: demoMode || !cfg.Configured(),
		demo: newDemoGenerator(demoProfile{
			code:        channel.CodeEbay,
			orderID:     func(i int) string { return fmt.Sprintf("%02d-%05d-%05d", 10+i%10, 10000+i, 20000+i) },
			orderNumber: func(i int) string { return fmt.Sprintf("%02d-%05d-%05d", 10+i%10, 10000+i, 20000+i) },
			tracking:    func(i int) string { return fmt.Sprintf("9400110200%012d", 100000000000+i) },
			carrier:     "USPS",
		}),
	}
	if !a.demoMode {
		baseURL := "https://api.ebay.com"
		if cfg.Environment == "sandbox" {
			baseURL = "https://api.sandbox.ebay.com"
		}
		a.client = resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(cfg.UserToken).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout)
	}
	return a
}

// Code returns the channel code this adapter handles
func (a *EbayAdapter) Code() channel.Code {
	return channel.CodeEbay
}

// FetchOrders returns at most limit orders, optionally created after since
func (a *EbayAdapter) FetchOrders(ctx context.Context, limit int, since *time.Time) ([]channel.Order, error) {
	if a.demoMode {
		return a.demo.Orders(limit, since), nil
	}

	req := a.client.R().SetContext(ctx).SetQueryParam("limit", fmt.Sprintf("%d", limit))
	if since != nil {
		req.SetQueryParam("filter",
			fmt.Sprintf("creationdate:[%s..]", since.UTC().Format("2006-01-02T15:04:05.000Z")))
	}

	var body ebayOrdersResponse
	resp, err := req.SetResult(&body).Get("/sell/fulfillment/v1/order")
	if err != nil {
		return nil, fmt.Errorf("%w: ebay orders fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if err := ebayCheckStatus(resp); err != nil {
		return nil, err
	}

	orders := make([]channel.Order, 0, len(body.Orders))
	for i := range body.Orders {
		order, err := mapEbayOrder(&body.Orders[i])
		if err != nil {
			a.logger.Warn("skipping unmappable ebay order",
				zap.String("ebay_order_id", body.Orders[i].OrderID),
				zap.Error(err))
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// FetchOrder returns a single order by its eBay order ID
func (a *EbayAdapter) FetchOrder(ctx context.Context, orderID string) (*channel.Order, error) {
	if a.demoMode {
		order := a.demo.Order(orderID)
		return &order, nil
	}

	var body ebayOrder
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/sell/fulfillment/v1/order/" + orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: ebay order fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, channel.ErrOrderNotFound
	}
	if err := ebayCheckStatus(resp); err != nil {
		return nil, err
	}
	return mapEbayOrder(&body)
}

// UpdateStatus creates a shipping fulfillment for shipment statuses. eBay has
// no seller-driven transitions for the remaining statuses, which report
// success without a remote call.
func (a *EbayAdapter) UpdateStatus(ctx context.Context, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	if a.demoMode {
		return true, nil
	}
	if !status.HasShipment() {
		return true, nil
	}

	payload := map[string]any{
		"trackingNumber":  trackingNumber,
		"shippingCarrierCode": "USPS",
		"shippedDate":     time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(fmt.Sprintf("/sell/fulfillment/v1/order/%s/shipping_fulfillment", orderID))
	if err != nil {
		return false, fmt.Errorf("%w: ebay fulfillment: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return false, channel.ErrOrderNotFound
	}
	if err := ebayCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// SyncInventory sets the absolute available quantity on the SKU's inventory item
func (a *EbayAdapter) SyncInventory(ctx context.Context, sku string, quantity int) (bool, error) {
	if a.demoMode {
		return true, nil
	}

	payload := map[string]any{
		"availability": map[string]any{
			"shipToLocationAvailability": map[string]any{"quantity": quantity},
		},
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Language", "en-US").
		SetBody(payload).
		Put("/sell/inventory/v1/inventory_item/" + sku)
	if err != nil {
		return false, fmt.Errorf("%w: ebay inventory update: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		a.logger.Warn("sku has no ebay inventory item", zap.String("sku", sku))
		return false, nil
	}
	if err := ebayCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck probes the orders endpoint with a minimal page size
func (a *EbayAdapter) HealthCheck(ctx context.Context) bool {
	if a.demoMode {
		return true
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		Get("/sell/fulfillment/v1/order")
	return err == nil && resp.IsSuccess()
}

func ebayCheckStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: ebay returned %d", channel.ErrChannelAuthFailed, resp.StatusCode())
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: ebay returned %d", channel.ErrChannelUnavailable, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: ebay returned %d: %s", channel.ErrChannelRequestFailed, resp.StatusCode(), resp.String())
	default:
		return nil
	}
}

// --- wire types -------------------------------------------------------------

type ebayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type ebayOrder struct {
	OrderID                 string `json:"orderId"`
	LegacyOrderID           string `json:"legacyOrderId"`
	CreationDate            time.Time `json:"creationDate"`
	OrderFulfillmentStatus  string `json:"orderFulfillmentStatus"`
	OrderPaymentStatus      string `json:"orderPaymentStatus"`
	CancelState             string `json:"cancelStatus.cancelState"`
	Buyer                   struct {
		Username string `json:"username"`
	} `json:"buyer"`
	PricingSummary struct {
		PriceSubtotal ebayAmount `json:"priceSubtotal"`
		DeliveryCost  ebayAmount `json:"deliveryCost"`
		Tax           ebayAmount `json:"tax"`
		Total         ebayAmount `json:"total"`
	} `json:"pricingSummary"`
	FulfillmentStartInstructions []struct {
		ShippingStep struct {
			ShipTo struct {
				FullName        string `json:"fullName"`
				Email           string `json:"email"`
				ContactAddress  struct {
					AddressLine1    string `json:"addressLine1"`
					AddressLine2    string `json:"addressLine2"`
					City            string `json:"city"`
					StateOrProvince string `json:"stateOrProvince"`
					PostalCode      string `json:"postalCode"`
					CountryCode     string `json:"countryCode"`
				} `json:"contactAddress"`
			} `json:"shipTo"`
		} `json:"shippingStep"`
	} `json:"fulfillmentStartInstructions"`
	LineItems []struct {
		SKU       string     `json:"sku"`
		Title     string     `json:"title"`
		Quantity  int        `json:"quantity"`
		LineItemCost ebayAmount `json:"lineItemCost"`
		Total     ebayAmount `json:"total"`
	} `json:"lineItems"`
	Fulfillments []struct {
		ShipmentTrackingNumber string `json:"shipmentTrackingNumber"`
		ShippingCarrierCode    string `json:"shippingCarrierCode"`
	} `json:"fulfillments"`
}

type ebayOrdersResponse struct {
	Orders []ebayOrder `json:"orders"`
}

// mapEbayOrder converts a Fulfillment API order into the uniform domain shape
func mapEbayOrder(o *ebayOrder) (*channel.Order, error) {
	subtotal, err := parseMoney(o.PricingSummary.PriceSubtotal.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: subtotal %q", channel.ErrChannelInvalidResponse, o.PricingSummary.PriceSubtotal.Value)
	}
	tax, err := parseMoney(o.PricingSummary.Tax.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: tax %q", channel.ErrChannelInvalidResponse, o.PricingSummary.Tax.Value)
	}
	shipping, err := parseMoney(o.PricingSummary.DeliveryCost.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: delivery cost %q", channel.ErrChannelInvalidResponse, o.PricingSummary.DeliveryCost.Value)
	}
	total, err := parseMoney(o.PricingSummary.Total.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: total %q", channel.ErrChannelInvalidResponse, o.PricingSummary.Total.Value)
	}

	order := &channel.Order{
		ID:           o.OrderID,
		Channel:      channel.CodeEbay,
		OrderNumber:  o.LegacyOrderID,
		Status:       mapEbayStatus(o),
		OrderDate:    o.CreationDate,
		CustomerName: o.Buyer.Username,
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        total,
		Currency:     o.PricingSummary.Total.Currency,
	}
	if order.OrderNumber == "" {
		order.OrderNumber = o.OrderID
	}

	if len(o.FulfillmentStartInstructions) > 0 {
		shipTo := o.FulfillmentStartInstructions[0].ShippingStep.ShipTo
		if shipTo.FullName != "" {
			order.CustomerName = shipTo.FullName
		}
		order.CustomerEmail = shipTo.Email
		order.ShippingAddress = channel.Address{
			Line1:      shipTo.ContactAddress.AddressLine1,
			Line2:      shipTo.ContactAddress.AddressLine2,
			City:       shipTo.ContactAddress.City,
			State:      shipTo.ContactAddress.StateOrProvince,
			PostalCode: shipTo.ContactAddress.PostalCode,
			Country:    shipTo.ContactAddress.CountryCode,
		}
	}

	if len(o.Fulfillments) > 0 {
		order.TrackingNumber = o.Fulfillments[0].ShipmentTrackingNumber
		order.Carrier = o.Fulfillments[0].ShippingCarrierCode
	}

	for _, item := range o.LineItems {
		lineTotal, err := parseMoney(item.Total.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line total %q", channel.ErrChannelInvalidResponse, item.Total.Value)
		}
		unit := lineTotal
		if item.Quantity > 0 {
			unit = lineTotal.Div(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		}
		order.Items = append(order.Items, channel.OrderLine{
			SKU:         item.SKU,
			ProductName: item.Title,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			TotalPrice:  unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return order, nil
}

// mapEbayStatus maps fulfillment and payment state to the uniform status set
func mapEbayStatus(o *ebayOrder) channel.OrderStatus {
	switch o.OrderFulfillmentStatus {
	case "FULFILLED":
		return channel.OrderStatusDelivered
	case "IN_PROGRESS":
		return channel.OrderStatusShipped
	}
	switch o.OrderPaymentStatus {
	case "FULLY_REFUNDED", "PARTIALLY_REFUNDED":
		return channel.OrderStatusRefunded
	case "PAID":
		return channel.OrderStatusProcessing
	}
	if o.CancelState == "CANCELED" {
		return channel.OrderStatusCancelled
	}
	return channel.OrderStatusPending
}
