package channels

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

// ShopifyAdapter implements channel.Adapter for the Shopify Admin REST API.
// Without usable credentials (or with demo mode forced on) it serves
// simulated data and all write operations succeed without side effects.
type ShopifyAdapter struct {
	config   *config.ShopifyConfig
	client   *resty.Client
	logger   *zap.Logger
	demo     *demoGenerator
	demoMode bool
}

// NewShopifyAdapter creates a Shopify adapter. demoMode forces simulated mode
// even when credentials are present.
func NewShopifyAdapter(cfg *config.ShopifyConfig, demoMode bool, timeout time.Duration, logger *zap.Logger) *ShopifyAdapter {
	a := &ShopifyAdapter{
		config:   cfg,
		logger:   logger.With(zap.String("channel", channel.CodeShopify.String())),
		demoMode: demoMode || !cfg.Configured(),
		demo: newDemoGenerator(demoProfile{
			code:        channel.CodeShopify,
			orderID:     func(i int) string { return fmt.Sprintf("shopify-%d", 5000001+i) },
			orderNumber: func(i int) string { return fmt.Sprintf("#%d", 1001+i) },
			tracking:    func(i int) string { return fmt.Sprintf("1Z999AA1%08d", 10000000+i) },
			carrier:     "UPS",
		}),
	}
	if !a.demoMode {
		a.client = resty.New().
			SetBaseURL(fmt.Sprintf("https://%s/admin/api/%s", cfg.ShopURL, cfg.APIVersion)).
			SetHeader("X-Shopify-Access-Token", cfg.AccessToken).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout)
	}
	return a
}

// Code returns the channel code this adapter handles
func (a *ShopifyAdapter) Code() channel.Code {
	return channel.CodeShopify
}

// FetchOrders returns at most limit orders, newest first per Shopify default
func (a *ShopifyAdapter) FetchOrders(ctx context.Context, limit int, since *time.Time) ([]channel.Order, error) {
	if a.demoMode {
		return a.demo.Orders(limit, since), nil
	}

	params := map[string]string{
		"limit":  strconv.Itoa(limit),
		"status": "any",
	}
	if since != nil {
		params["created_at_min"] = since.Format(time.RFC3339)
	}

	var body shopifyOrdersResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("/orders.json")
	if err != nil {
		return nil, fmt.Errorf("%w: shopify orders fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if err := shopifyCheckStatus(resp); err != nil {
		return nil, err
	}

	orders := make([]channel.Order, 0, len(body.Orders))
	for i := range body.Orders {
		order, err := mapShopifyOrder(&body.Orders[i])
		if err != nil {
			a.logger.Warn("skipping unmappable shopify order",
				zap.Int64("shopify_order_id", body.Orders[i].ID),
				zap.Error(err))
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// FetchOrder returns a single order by its Shopify numeric ID
func (a *ShopifyAdapter) FetchOrder(ctx context.Context, orderID string) (*channel.Order, error) {
	if a.demoMode {
		order := a.demo.Order(orderID)
		return &order, nil
	}

	var body shopifyOrderResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/orders/%s.json", orderID))
	if err != nil {
		return nil, fmt.Errorf("%w: shopify order fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, channel.ErrOrderNotFound
	}
	if err := shopifyCheckStatus(resp); err != nil {
		return nil, err
	}
	return mapShopifyOrder(&body.Order)
}

// UpdateStatus pushes a fulfillment to Shopify for shipment statuses and a
// cancellation for cancelled orders. Other statuses have no Shopify-side
// representation and report success without a remote call.
func (a *ShopifyAdapter) UpdateStatus(ctx context.Context, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	if a.demoMode {
		return true, nil
	}

	switch {
	case status.HasShipment():
		payload := map[string]any{
			"fulfillment": map[string]any{
				"tracking_info": map[string]string{"number": trackingNumber},
				"notify_customer": true,
			},
		}
		resp, err := a.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post(fmt.Sprintf("/orders/%s/fulfillments.json", orderID))
		if err != nil {
			return false, fmt.Errorf("%w: shopify fulfillment: %v", channel.ErrChannelUnavailable, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return false, channel.ErrOrderNotFound
		}
		if err := shopifyCheckStatus(resp); err != nil {
			return false, err
		}
		return true, nil

	case status == channel.OrderStatusCancelled:
		resp, err := a.client.R().
			SetContext(ctx).
			Post(fmt.Sprintf("/orders/%s/cancel.json", orderID))
		if err != nil {
			return false, fmt.Errorf("%w: shopify cancel: %v", channel.ErrChannelUnavailable, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return false, channel.ErrOrderNotFound
		}
		if err := shopifyCheckStatus(resp); err != nil {
			return false, err
		}
		return true, nil

	default:
		return true, nil
	}
}

// SyncInventory sets the absolute available quantity for a SKU's inventory level
func (a *ShopifyAdapter) SyncInventory(ctx context.Context, sku string, quantity int) (bool, error) {
	if a.demoMode {
		return true, nil
	}

	// Shopify keys inventory by inventory_item_id, not SKU, so resolve first
	var lookup shopifyVariantLookupResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("sku", sku).
		SetResult(&lookup).
		Get("/variants.json")
	if err != nil {
		return false, fmt.Errorf("%w: shopify variant lookup: %v", channel.ErrChannelUnavailable, err)
	}
	if err := shopifyCheckStatus(resp); err != nil {
		return false, err
	}
	if len(lookup.Variants) == 0 {
		a.logger.Warn("sku has no shopify variant", zap.String("sku", sku))
		return false, nil
	}

	payload := map[string]any{
		"inventory_item_id": lookup.Variants[0].InventoryItemID,
		"available":         quantity,
	}
	resp, err = a.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/inventory_levels/set.json")
	if err != nil {
		return false, fmt.Errorf("%w: shopify inventory set: %v", channel.ErrChannelUnavailable, err)
	}
	if err := shopifyCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck probes the shop endpoint; demo mode is always healthy
func (a *ShopifyAdapter) HealthCheck(ctx context.Context) bool {
	if a.demoMode {
		return true
	}
	resp, err := a.client.R().SetContext(ctx).Get("/shop.json")
	return err == nil && resp.IsSuccess()
}

func shopifyCheckStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: shopify returned %d", channel.ErrChannelAuthFailed, resp.StatusCode())
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: shopify returned %d", channel.ErrChannelUnavailable, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: shopify returned %d: %s", channel.ErrChannelRequestFailed, resp.StatusCode(), resp.String())
	default:
		return nil
	}
}

// --- wire types -------------------------------------------------------------

type shopifyOrdersResponse struct {
	Orders []shopifyOrder `json:"orders"`
}

type shopifyOrderResponse struct {
	Order shopifyOrder `json:"order"`
}

type shopifyOrder struct {
	ID                int64              `json:"id"`
	Name              string             `json:"name"`
	CreatedAt         time.Time          `json:"created_at"`
	FinancialStatus   string             `json:"financial_status"`
	FulfillmentStatus string             `json:"fulfillment_status"`
	CancelledAt       *time.Time         `json:"cancelled_at"`
	Currency          string             `json:"currency"`
	SubtotalPrice     string             `json:"subtotal_price"`
	TotalTax          string             `json:"total_tax"`
	TotalPrice        string             `json:"total_price"`
	Customer          shopifyCustomer    `json:"customer"`
	ShippingAddress   shopifyAddress     `json:"shipping_address"`
	ShippingLines     []shopifyPriceLine `json:"shipping_lines"`
	LineItems         []shopifyLineItem  `json:"line_items"`
	Fulfillments      []shopifyFulfillment `json:"fulfillments"`
}

type shopifyCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type shopifyAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Province string `json:"province_code"`
	Zip      string `json:"zip"`
	Country  string `json:"country_code"`
}

type shopifyPriceLine struct {
	Price string `json:"price"`
}

type shopifyLineItem struct {
	SKU          string `json:"sku"`
	Title        string `json:"title"`
	VariantTitle string `json:"variant_title"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

type shopifyFulfillment struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
}

type shopifyVariantLookupResponse struct {
	Variants []struct {
		InventoryItemID int64 `json:"inventory_item_id"`
	} `json:"variants"`
}

// mapShopifyOrder converts a Shopify wire order into the uniform domain shape
func mapShopifyOrder(o *shopifyOrder) (*channel.Order, error) {
	subtotal, err := parseMoney(o.SubtotalPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: subtotal %q", channel.ErrChannelInvalidResponse, o.SubtotalPrice)
	}
	tax, err := parseMoney(o.TotalTax)
	if err != nil {
		return nil, fmt.Errorf("%w: tax %q", channel.ErrChannelInvalidResponse, o.TotalTax)
	}
	total, err := parseMoney(o.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: total %q", channel.ErrChannelInvalidResponse, o.TotalPrice)
	}

	shipping := decimal.Zero
	for _, line := range o.ShippingLines {
		price, err := parseMoney(line.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: shipping line %q", channel.ErrChannelInvalidResponse, line.Price)
		}
		shipping = shipping.Add(price)
	}

	order := &channel.Order{
		ID:            strconv.FormatInt(o.ID, 10),
		Channel:       channel.CodeShopify,
		OrderNumber:   o.Name,
		Status:        mapShopifyStatus(o),
		OrderDate:     o.CreatedAt,
		CustomerName:  trimJoin(o.Customer.FirstName, o.Customer.LastName),
		CustomerEmail: o.Customer.Email,
		ShippingAddress: channel.Address{
			Line1:      o.ShippingAddress.Address1,
			Line2:      o.ShippingAddress.Address2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.Province,
			PostalCode: o.ShippingAddress.Zip,
			Country:    o.ShippingAddress.Country,
		},
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        total,
		Currency:     o.Currency,
	}

	if len(o.Fulfillments) > 0 {
		order.TrackingNumber = o.Fulfillments[0].TrackingNumber
		order.Carrier = o.Fulfillments[0].TrackingCompany
	}

	for _, item := range o.LineItems {
		unit, err := parseMoney(item.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: line price %q", channel.ErrChannelInvalidResponse, item.Price)
		}
		order.Items = append(order.Items, channel.OrderLine{
			SKU:          item.SKU,
			ProductName:  item.Title,
			VariantTitle: item.VariantTitle,
			Quantity:     item.Quantity,
			UnitPrice:    unit,
			TotalPrice:   unit.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return order, nil
}

// mapShopifyStatus reduces Shopify's two-axis status to the uniform status set
func mapShopifyStatus(o *shopifyOrder) channel.OrderStatus {
	switch {
	case o.CancelledAt != nil:
		return channel.OrderStatusCancelled
	case o.FinancialStatus == "refunded" || o.FinancialStatus == "partially_refunded":
		return channel.OrderStatusRefunded
	case o.FulfillmentStatus == "fulfilled":
		return channel.OrderStatusDelivered
	case o.FulfillmentStatus == "partial":
		return channel.OrderStatusShipped
	case o.FinancialStatus == "paid":
		return channel.OrderStatusProcessing
	default:
		return channel.OrderStatusPending
	}
}
