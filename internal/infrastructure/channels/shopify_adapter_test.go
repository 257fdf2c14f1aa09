package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

func liveShopifyAdapter(t *testing.T, handler http.Handler) (*ShopifyAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := NewShopifyAdapter(&config.ShopifyConfig{
		ShopURL:     "example.myshopify.com",
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
	}, false, 5*time.Second, zap.NewNop())
	adapter.client.SetBaseURL(server.URL)
	return adapter, server
}

func TestShopifyFetchOrdersLive(t *testing.T) {
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "any", r.URL.Query().Get("status"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(shopifyOrdersResponse{Orders: []shopifyOrder{
			{
				ID:                5001,
				Name:              "#1001",
				CreatedAt:         time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
				FinancialStatus:   "paid",
				FulfillmentStatus: "fulfilled",
				Currency:          "USD",
				SubtotalPrice:     "59.98",
				TotalTax:          "5.25",
				TotalPrice:        "65.23",
				Customer:          shopifyCustomer{FirstName: "Jamie", LastName: "Rivera", Email: "jamie@example.com"},
				LineItems: []shopifyLineItem{
					{SKU: "WIDGET-001", Title: "Premium Widget", Quantity: 2, Price: "29.99"},
				},
				Fulfillments: []shopifyFulfillment{{TrackingNumber: "1Z999", TrackingCompany: "UPS"}},
			},
		}})
	}))

	orders, err := adapter.FetchOrders(context.Background(), 25, nil)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "5001", order.ID)
	assert.Equal(t, channel.CodeShopify, order.Channel)
	assert.Equal(t, "#1001", order.OrderNumber)
	assert.Equal(t, channel.OrderStatusDelivered, order.Status)
	assert.Equal(t, "Jamie Rivera", order.CustomerName)
	assert.Equal(t, "1Z999", order.TrackingNumber)
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Tax).Add(order.ShippingCost)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "WIDGET-001", order.Items[0].SKU)
	assert.Equal(t, "59.98", order.Items[0].TotalPrice.StringFixed(2))
}

func TestShopifyFetchOrderNotFound(t *testing.T) {
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := adapter.FetchOrder(context.Background(), "999")
	assert.ErrorIs(t, err, channel.ErrOrderNotFound)
}

func TestShopifyAuthFailure(t *testing.T) {
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := adapter.FetchOrders(context.Background(), 10, nil)
	assert.ErrorIs(t, err, channel.ErrChannelAuthFailed)
}

func TestShopifyServerErrorIsUnavailable(t *testing.T) {
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := adapter.FetchOrders(context.Background(), 10, nil)
	assert.ErrorIs(t, err, channel.ErrChannelUnavailable)
}

func TestShopifyUpdateStatusShipped(t *testing.T) {
	var gotPath string
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))

	ok, err := adapter.UpdateStatus(context.Background(), "5001", channel.OrderStatusShipped, "1Z999")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/orders/5001/fulfillments.json", gotPath)
}

func TestShopifyUpdateStatusWithoutRemoteRepresentation(t *testing.T) {
	// No remote call should happen for statuses Shopify cannot represent
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected remote call")
	}))

	ok, err := adapter.UpdateStatus(context.Background(), "5001", channel.OrderStatusProcessing, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShopifySyncInventoryResolvesVariant(t *testing.T) {
	var inventorySet map[string]any
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/variants.json":
			assert.Equal(t, "WIDGET-001", r.URL.Query().Get("sku"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"variants":[{"inventory_item_id":777}]}`))
		case "/inventory_levels/set.json":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&inventorySet))
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	ok, err := adapter.SyncInventory(context.Background(), "WIDGET-001", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 777, inventorySet["inventory_item_id"])
	assert.EqualValues(t, 42, inventorySet["available"])
}

func TestShopifySyncInventoryUnknownSKU(t *testing.T) {
	adapter, _ := liveShopifyAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"variants":[]}`))
	}))

	ok, err := adapter.SyncInventory(context.Background(), "NOPE-000", 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapShopifyStatus(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		order shopifyOrder
		want  channel.OrderStatus
	}{
		{"cancelled wins", shopifyOrder{CancelledAt: &now, FinancialStatus: "paid"}, channel.OrderStatusCancelled},
		{"refunded", shopifyOrder{FinancialStatus: "refunded"}, channel.OrderStatusRefunded},
		{"fulfilled", shopifyOrder{FinancialStatus: "paid", FulfillmentStatus: "fulfilled"}, channel.OrderStatusDelivered},
		{"partial", shopifyOrder{FinancialStatus: "paid", FulfillmentStatus: "partial"}, channel.OrderStatusShipped},
		{"paid unfulfilled", shopifyOrder{FinancialStatus: "paid"}, channel.OrderStatusProcessing},
		{"fresh", shopifyOrder{FinancialStatus: "pending"}, channel.OrderStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapShopifyStatus(&tt.order))
		})
	}
}
