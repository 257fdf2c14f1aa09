package channels

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

// lwaTokenURL is the Login-with-Amazon token exchange endpoint
const lwaTokenURL = "https://api.amazon.com/auth/o2/token"

// amazonTokenSlack is subtracted from the advertised token lifetime so a
// token is never used right at its expiry boundary.
const amazonTokenSlack = 60 * time.Second

// AmazonAdapter implements channel.Adapter for the Amazon Selling Partner API.
// SP-API access tokens are short-lived; the adapter refreshes them lazily via
// the LWA refresh token and caches the result until shortly before expiry.
type AmazonAdapter struct {
	config   *config.AmazonConfig
	client   *resty.Client
	auth     *resty.Client
	logger   *zap.Logger
	demo     *demoGenerator
	demoMode bool

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAmazonAdapter creates an Amazon adapter. demoMode forces simulated mode
// even when credentials are present.
func NewAmazonAdapter(cfg *config.AmazonConfig, demoMode bool, timeout time.Duration, logger *zap.Logger) *AmazonAdapter {
	a := &AmazonAdapter{
		config:   cfg,
		logger:   logger.With(zap.String("channel", channel.CodeAmazon.String())),
		demoMode: demoMode || !cfg.Configured(),
		demo: newDemoGenerator(demoProfile{
			code:        channel.CodeAmazon,
			orderID:     func(i int) string { return fmt.Sprintf("113-%07d-%07d", 1000000+i, 2000000+i) },
			orderNumber: func(i int) string { return fmt.Sprintf("113-%07d-%07d", 1000000+i, 2000000+i) },
			tracking:    func(i int) string { return fmt.Sprintf("TBA%012d", 100000000000+i) },
			carrier:     "Amazon Logistics",
		}),
	}
	if !a.demoMode {
		a.client = resty.New().
			SetBaseURL(spAPIEndpoint(cfg.Region)).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout)
		a.auth = resty.New().SetTimeout(timeout)
	}
	return a
}

// spAPIEndpoint maps an AWS region to its SP-API endpoint
func spAPIEndpoint(region string) string {
	switch region {
	case "eu-west-1":
		return "https://sellingpartnerapi-eu.amazon.com"
	case "us-west-2":
		return "https://sellingpartnerapi-fe.amazon.com"
	default:
		return "https://sellingpartnerapi-na.amazon.com"
	}
}

// Code returns the channel code this adapter handles
func (a *AmazonAdapter) Code() channel.Code {
	return channel.CodeAmazon
}

// getAccessToken returns a valid LWA access token, refreshing if needed
func (a *AmazonAdapter) getAccessToken(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := a.auth.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": a.config.RefreshToken,
			"client_id":     a.config.ClientID,
			"client_secret": a.config.ClientSecret,
		}).
		SetResult(&body).
		Post(lwaTokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: lwa token exchange: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: lwa token exchange returned %d", channel.ErrChannelAuthFailed, resp.StatusCode())
	}

	a.accessToken = body.AccessToken
	a.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - amazonTokenSlack)
	return a.accessToken, nil
}

func (a *AmazonAdapter) request(ctx context.Context) (*resty.Request, error) {
	token, err := a.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.R().SetContext(ctx).SetHeader("x-amz-access-token", token), nil
}

// FetchOrders returns at most limit orders from the configured marketplace
func (a *AmazonAdapter) FetchOrders(ctx context.Context, limit int, since *time.Time) ([]channel.Order, error) {
	if a.demoMode {
		return a.demo.Orders(limit, since), nil
	}

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	createdAfter := time.Now().Add(-30 * 24 * time.Hour)
	if since != nil {
		createdAfter = *since
	}

	var body amazonOrdersResponse
	resp, err := req.
		SetQueryParams(map[string]string{
			"MarketplaceIds": a.config.MarketplaceID,
			"CreatedAfter":   createdAfter.UTC().Format(time.RFC3339),
			"MaxResultsPerPage": fmt.Sprintf("%d", limit),
		}).
		SetResult(&body).
		Get("/orders/v0/orders")
	if err != nil {
		return nil, fmt.Errorf("%w: amazon orders fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if err := amazonCheckStatus(resp); err != nil {
		return nil, err
	}

	orders := make([]channel.Order, 0, len(body.Payload.Orders))
	for i := range body.Payload.Orders {
		wire := &body.Payload.Orders[i]
		order, err := a.mapOrder(ctx, wire)
		if err != nil {
			a.logger.Warn("skipping unmappable amazon order",
				zap.String("amazon_order_id", wire.AmazonOrderID),
				zap.Error(err))
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// FetchOrder returns a single order by its Amazon order ID
func (a *AmazonAdapter) FetchOrder(ctx context.Context, orderID string) (*channel.Order, error) {
	if a.demoMode {
		order := a.demo.Order(orderID)
		return &order, nil
	}

	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}

	var body amazonOrderResponse
	resp, err := req.SetResult(&body).Get("/orders/v0/orders/" + orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: amazon order fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, channel.ErrOrderNotFound
	}
	if err := amazonCheckStatus(resp); err != nil {
		return nil, err
	}
	return a.mapOrder(ctx, &body.Payload)
}

// UpdateStatus confirms shipment via the shipment confirmation operation.
// Amazon controls its own order lifecycle, so only shipment statuses have a
// remote representation; all other statuses report success locally.
func (a *AmazonAdapter) UpdateStatus(ctx context.Context, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	if a.demoMode {
		return true, nil
	}
	if !status.HasShipment() {
		return true, nil
	}

	req, err := a.request(ctx)
	if err != nil {
		return false, err
	}

	payload := map[string]any{
		"marketplaceId": a.config.MarketplaceID,
		"packageDetail": map[string]any{
			"packageReferenceId": "1",
			"carrierCode":        "Other",
			"trackingNumber":     trackingNumber,
			"shipDate":           time.Now().UTC().Format(time.RFC3339),
		},
	}
	resp, err := req.SetBody(payload).Post(fmt.Sprintf("/orders/v0/orders/%s/shipmentConfirmation", orderID))
	if err != nil {
		return false, fmt.Errorf("%w: amazon shipment confirmation: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return false, channel.ErrOrderNotFound
	}
	if err := amazonCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// SyncInventory submits an inventory availability update for an FBM listing
func (a *AmazonAdapter) SyncInventory(ctx context.Context, sku string, quantity int) (bool, error) {
	if a.demoMode {
		return true, nil
	}

	req, err := a.request(ctx)
	if err != nil {
		return false, err
	}

	payload := map[string]any{
		"productType": "PRODUCT",
		"patches": []map[string]any{
			{
				"op":   "replace",
				"path": "/attributes/fulfillment_availability",
				"value": []map[string]any{
					{"fulfillment_channel_code": "DEFAULT", "quantity": quantity},
				},
			},
		},
	}
	resp, err := req.
		SetQueryParam("marketplaceIds", a.config.MarketplaceID).
		SetBody(payload).
		Patch(fmt.Sprintf("/listings/2021-08-01/items/%s/%s", a.config.ClientID, sku))
	if err != nil {
		return false, fmt.Errorf("%w: amazon listing patch: %v", channel.ErrChannelUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		a.logger.Warn("sku has no amazon listing", zap.String("sku", sku))
		return false, nil
	}
	if err := amazonCheckStatus(resp); err != nil {
		return false, err
	}
	return true, nil
}

// HealthCheck verifies a token can be obtained; demo mode is always healthy
func (a *AmazonAdapter) HealthCheck(ctx context.Context) bool {
	if a.demoMode {
		return true
	}
	_, err := a.getAccessToken(ctx)
	return err == nil
}

func amazonCheckStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: amazon returned %d", channel.ErrChannelAuthFailed, resp.StatusCode())
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: amazon returned %d", channel.ErrChannelUnavailable, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: amazon returned %d: %s", channel.ErrChannelRequestFailed, resp.StatusCode(), resp.String())
	default:
		return nil
	}
}

// mapOrder converts an SP-API order plus its line items into the domain shape
func (a *AmazonAdapter) mapOrder(ctx context.Context, o *amazonOrder) (*channel.Order, error) {
	orderDate, err := time.Parse(time.RFC3339, o.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase date %q", channel.ErrChannelInvalidResponse, o.PurchaseDate)
	}
	total, err := parseMoney(o.OrderTotal.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: order total %q", channel.ErrChannelInvalidResponse, o.OrderTotal.Amount)
	}

	order := &channel.Order{
		ID:           o.AmazonOrderID,
		Channel:      channel.CodeAmazon,
		OrderNumber:  o.AmazonOrderID,
		Status:       mapAmazonStatus(o.OrderStatus),
		OrderDate:    orderDate,
		CustomerName: o.BuyerInfo.BuyerName,
		CustomerEmail: o.BuyerInfo.BuyerEmail,
		ShippingAddress: channel.Address{
			Line1:      o.ShippingAddress.AddressLine1,
			Line2:      o.ShippingAddress.AddressLine2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.StateOrRegion,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.CountryCode,
		},
		Total:    total,
		Currency: o.OrderTotal.CurrencyCode,
	}

	// SP-API reports line items through a separate endpoint
	req, err := a.request(ctx)
	if err != nil {
		return nil, err
	}
	var items amazonOrderItemsResponse
	resp, err := req.SetResult(&items).Get(fmt.Sprintf("/orders/v0/orders/%s/orderItems", o.AmazonOrderID))
	if err != nil {
		return nil, fmt.Errorf("%w: amazon order items fetch: %v", channel.ErrChannelUnavailable, err)
	}
	if err := amazonCheckStatus(resp); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	tax := decimal.Zero
	shipping := decimal.Zero
	for _, item := range items.Payload.OrderItems {
		itemPrice, err := parseMoney(item.ItemPrice.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: item price %q", channel.ErrChannelInvalidResponse, item.ItemPrice.Amount)
		}
		itemTax, err := parseMoney(item.ItemTax.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: item tax %q", channel.ErrChannelInvalidResponse, item.ItemTax.Amount)
		}
		shippingPrice, err := parseMoney(item.ShippingPrice.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: shipping price %q", channel.ErrChannelInvalidResponse, item.ShippingPrice.Amount)
		}

		subtotal = subtotal.Add(itemPrice)
		tax = tax.Add(itemTax)
		shipping = shipping.Add(shippingPrice)

		unit := itemPrice
		if item.QuantityOrdered > 0 {
			unit = itemPrice.Div(decimal.NewFromInt(int64(item.QuantityOrdered))).Round(2)
		}
		order.Items = append(order.Items, channel.OrderLine{
			SKU:         item.SellerSKU,
			ProductName: item.Title,
			Quantity:    item.QuantityOrdered,
			UnitPrice:   unit,
			TotalPrice:  unit.Mul(decimal.NewFromInt(int64(item.QuantityOrdered))),
		})
	}
	order.Subtotal = subtotal
	order.Tax = tax
	order.ShippingCost = shipping

	if order.Status.HasShipment() {
		order.TrackingNumber = o.AmazonOrderID
		order.Carrier = "Amazon Logistics"
	}
	return order, nil
}

// mapAmazonStatus maps SP-API order states to the uniform status set
func mapAmazonStatus(s string) channel.OrderStatus {
	switch s {
	case "Pending", "PendingAvailability":
		return channel.OrderStatusPending
	case "Unshipped", "PartiallyShipped":
		return channel.OrderStatusProcessing
	case "Shipped", "InvoiceUnconfirmed":
		return channel.OrderStatusShipped
	case "Canceled":
		return channel.OrderStatusCancelled
	default:
		return channel.OrderStatusPending
	}
}

// --- wire types -------------------------------------------------------------

type amazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

type amazonOrder struct {
	AmazonOrderID string      `json:"AmazonOrderId"`
	PurchaseDate  string      `json:"PurchaseDate"`
	OrderStatus   string      `json:"OrderStatus"`
	OrderTotal    amazonMoney `json:"OrderTotal"`
	BuyerInfo     struct {
		BuyerName  string `json:"BuyerName"`
		BuyerEmail string `json:"BuyerEmail"`
	} `json:"BuyerInfo"`
	ShippingAddress struct {
		AddressLine1  string `json:"AddressLine1"`
		AddressLine2  string `json:"AddressLine2"`
		City          string `json:"City"`
		StateOrRegion string `json:"StateOrRegion"`
		PostalCode    string `json:"PostalCode"`
		CountryCode   string `json:"CountryCode"`
	} `json:"ShippingAddress"`
}

type amazonOrdersResponse struct {
	Payload struct {
		Orders []amazonOrder `json:"Orders"`
	} `json:"payload"`
}

type amazonOrderResponse struct {
	Payload amazonOrder `json:"payload"`
}

type amazonOrderItemsResponse struct {
	Payload struct {
		OrderItems []struct {
			SellerSKU       string      `json:"SellerSKU"`
			Title           string      `json:"Title"`
			QuantityOrdered int         `json:"QuantityOrdered"`
			ItemPrice       amazonMoney `json:"ItemPrice"`
			ItemTax         amazonMoney `json:"ItemTax"`
			ShippingPrice   amazonMoney `json:"ShippingPrice"`
		} `json:"OrderItems"`
	} `json:"payload"`
}
