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

// EtsyAdapter implements channel.Adapter for the Etsy Open API v3. Etsy
// reports money as integer minor units plus a divisor rather than decimal
// strings like the other channels.
type EtsyAdapter struct {
	config   *config.EtsyConfig
	client   *resty.Client
	logger   *zap.Logger
	demo     *demoGenerator
	demoMode bool
}

// NewEtsyAdapter creates an Etsy adapter. demoMode forces simulated mode even
// when credentials are present.
func NewEtsyAdapter(cfg *config.EtsyConfig, demoMode bool, timeout time.Duration, logger *zap.Logger) *EtsyAdapter {
	a := &EtsyAdapter{
		config:   cfg,
		logger:   logger.With(zap.String("channel", channel.CodeEtsy.String())),
		demoMode: demoMode || !cfg.Configured(),
		demo: newDemoGenerator(demoProfile{
			code:        channel.CodeEtsy,
			orderID:     func(i int) string { return strconv.Itoa(3000000001 + i) },
			orderNumber: func(i int) string { return strconv.Itoa(3000000001 + i) },
			tracking:    func(i int) string { return fmt.Sprintf("9205590100%012d", 200000000000+i) },
			carrier:     "USPS",
		}),
	}
	if !a.demoMode {
		a.client = resty.New().
			SetBaseURL("https://openapi.etsy.com/v3/application").
			SetHeader("x-api-key", cfg.APIKey).
			SetAuthToken(cfg.AccessToken).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout)
	}
	return a
}

// Code returns the channel code this adapter handles
func (a *EtsyAdapter) Code() channel.Code {
	return channel.CodeEtsy
}

// FetchOrders returns at most limit receipts for the configured shop
func (a *EtsyAdapter) FetchOrders(ctx context.Context, limit int, since *time.Time) ([]channel.Order, error) {
	if a.demoMode {
		return a.demo.Orders(limit, since), nil
	}

	req := a.client.R().SetContext(ctx).SetQueryParam("limit", strconv.Itoa(limit))
	if since != nil {
		req.SetQueryParam("min_created", strconv.FormatInt(since.Unix(), 10))
	}

	var body etsyReceiptsResponse
	resp, err := req.
		SetResult(&body).
		Get(fmt.Sprintf("/shops/%s/receipts", a.config.ShopID))
	if err != nil {
		return nil, fmt.Errorf("%w: etsy receipts fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if err := etsyCheckStatus(resp); err != nil {
		return nil, err
	}

	orders := make([]channel.Order, 0, len(body.Results))
	for i := range body.Results {
		orders = append(orders, *mapEtsyReceipt(&body.Results[i]))
	}
	return orders, nil
}

// FetchOrder returns a single receipt by its Etsy receipt ID
func (a *EtsyAdapter) FetchOrder(ctx context.Context, orderID string) (*channel.Order, error) {
	if a.demoMode {
		order := a.demo.Order(orderID)
		return &order, nil
	}

	var body etsyReceipt
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/shops/%s/receipts/%s", a.config.ShopID, orderID))
	if err != nil {
		return nil, fmt.Errorf("%w: etsy receipt fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, channel.ErrOrderNotFound
	}
	if err := etsyCheckStatus(resp); err != nil {
		return nil, err
	}
	return mapEtsyReceipt(&body), nil
}

// UpdateStatus creates a receipt shipment for shipment statuses. Etsy exposes
// no seller-driven transitions for the remaining statuses, which report
// success without a remote call.
func (a *EtsyAdapter) UpdateStatus(ctx context.Context, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	if a.demoMode {
		return true, nil
	}
	if !status.HasShipment() {
		return true, nil
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"tracking_code": trackingNumber,
			"carrier_name":  "usps",
			"send_bcc":      false,
		}).
		Post(fmt.Sprintf("/shops/%s/receipts/%s/tracking", a.config.ShopID, orderID))
	if err != nil {
		return false, fmt.Errorf("%w: etsy tracking submit: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return false, channel.ErrOrderNotFound
	}
	if err := etsyCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// SyncInventory sets the absolute quantity on the SKU's listing offering.
// Etsy keys inventory by listing, resolved through the SKU-mapped listing ID.
func (a *EtsyAdapter) SyncInventory(ctx context.Context, sku string, quantity int) (bool, error) {
	if a.demoMode {
		return true, nil
	}

	var listings etsyListingsResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("sku", sku).
		SetResult(&listings).
		Get(fmt.Sprintf("/shops/%s/listings", a.config.ShopID))
	if err != nil {
		return false, fmt.Errorf("%w: etsy listing lookup: %v", channel.ErrChannelUnavailable, err)
	}
	if err := etsyCheckStatus(resp); err != nil {
		return false, err
	}
	if len(listings.Results) == 0 {
		a.logger.Warn("sku has no etsy listing", zap.String("sku", sku))
		return false, nil
	}

	resp, err = a.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"products": []map[string]any{
				{
					"sku": sku,
					"offerings": []map[string]any{
						{"quantity": quantity, "is_enabled": quantity > 0},
					},
				},
			},
		}).
		Put(fmt.Sprintf("/listings/%d/inventory", listings.Results[0].ListingID))
	if err != nil {
		return false, fmt.Errorf("%w: etsy inventory update: %v", channel.ErrChannelUnavailable, err)
	}
	if err := etsyCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck probes the public ping endpoint
func (a *EtsyAdapter) HealthCheck(ctx context.Context) bool {
	if a.demoMode {
		return true
	}
	resp, err := a.client.R().SetContext(ctx).Get("/openapi-ping")
	return err == nil && resp.IsSuccess()
}

func etsyCheckStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: etsy returned %d", channel.ErrChannelAuthFailed, resp.StatusCode())
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: etsy returned %d", channel.ErrChannelUnavailable, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: etsy returned %d: %s", channel.ErrChannelRequestFailed, resp.StatusCode(), resp.String())
	default:
		return nil
	}
}

// --- wire types -------------------------------------------------------------

type etsyMoney struct {
	Amount  int64 `json:"amount"`
	Divisor int64 `json:"divisor"`
}

// Decimal converts Etsy's minor-unit money representation to a decimal
func (m etsyMoney) Decimal() decimal.Decimal {
	if m.Divisor == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.Amount).Div(decimal.NewFromInt(m.Divisor))
}

type etsyReceipt struct {
	ReceiptID      int64     `json:"receipt_id"`
	Status         string    `json:"status"`
	CreateTimestamp int64    `json:"create_timestamp"`
	Name           string    `json:"name"`
	BuyerEmail     string    `json:"buyer_email"`
	FirstLine      string    `json:"first_line"`
	SecondLine     string    `json:"second_line"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Zip            string    `json:"zip"`
	CountryISO     string    `json:"country_iso"`
	Subtotal       etsyMoney `json:"subtotal"`
	TotalTaxCost   etsyMoney `json:"total_tax_cost"`
	TotalShippingCost etsyMoney `json:"total_shipping_cost"`
	GrandTotal     etsyMoney `json:"grandtotal"`
	Transactions   []struct {
		SKU          string    `json:"sku"`
		Title        string    `json:"title"`
		Quantity     int       `json:"quantity"`
		Price        etsyMoney `json:"price"`
		Variations   []struct {
			FormattedName  string `json:"formatted_name"`
			FormattedValue string `json:"formatted_value"`
		} `json:"variations"`
	} `json:"transactions"`
	Shipments []struct {
		TrackingCode string `json:"tracking_code"`
		CarrierName  string `json:"carrier_name"`
	} `json:"shipments"`
}

type etsyReceiptsResponse struct {
	Results []etsyReceipt `json:"results"`
}

type etsyListingsResponse struct {
	Results []struct {
		ListingID int64 `json:"listing_id"`
	} `json:"results"`
}

// mapEtsyReceipt converts an Etsy receipt into the uniform domain shape.
// Etsy money is integer based so there is nothing to fail parsing.
func mapEtsyReceipt(r *etsyReceipt) *channel.Order {
	currency := "USD"
	order := &channel.Order{
		ID:            strconv.FormatInt(r.ReceiptID, 10),
		Channel:       channel.CodeEtsy,
		OrderNumber:   strconv.FormatInt(r.ReceiptID, 10),
		Status:        mapEtsyStatus(r.Status),
		OrderDate:     time.Unix(r.CreateTimestamp, 0).UTC(),
		CustomerName:  r.Name,
		CustomerEmail: r.BuyerEmail,
		ShippingAddress: channel.Address{
			Line1:      r.FirstLine,
			Line2:      r.SecondLine,
			City:       r.City,
			State:      r.State,
			PostalCode: r.Zip,
			Country:    r.CountryISO,
		},
		Subtotal:     r.Subtotal.Decimal(),
		Tax:          r.TotalTaxCost.Decimal(),
		ShippingCost: r.TotalShippingCost.Decimal(),
		Total:        r.GrandTotal.Decimal(),
		Currency:     currency,
	}

	if len(r.Shipments) > 0 {
		order.TrackingNumber = r.Shipments[0].TrackingCode
		order.Carrier = r.Shipments[0].CarrierName
	}

	for _, tx := range r.Transactions {
		unit := tx.Price.Decimal()
		variant := ""
		if len(tx.Variations) > 0 {
			variant = tx.Variations[0].FormattedValue
		}
		order.Items = append(order.Items, channel.OrderLine{
			SKU:          tx.SKU,
			ProductName:  tx.Title,
			VariantTitle: variant,
			Quantity:     tx.Quantity,
			UnitPrice:    unit,
			TotalPrice:   unit.Mul(decimal.NewFromInt(int64(tx.Quantity))),
		})
	}
	return order
}

// mapEtsyStatus maps Etsy receipt statuses to the uniform status set
func mapEtsyStatus(s string) channel.OrderStatus {
	switch s {
	case "paid":
		return channel.OrderStatusProcessing
	case "completed":
		// completed means shipped on Etsy
		return channel.OrderStatusShipped
	case "fully refunded", "partially refunded":
		return channel.OrderStatusRefunded
	case "canceled":
		return channel.OrderStatusCancelled
	case "open":
		return channel.OrderStatusPending
	default:
		return channel.OrderStatusPending
	}
}
