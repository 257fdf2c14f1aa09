package channels

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

func demoAdapters(t *testing.T) []channel.Adapter {
	t.Helper()
	logger := zap.NewNop()
	timeout := 5 * time.Second
	return []channel.Adapter{
		NewShopifyAdapter(&config.ShopifyConfig{}, false, timeout, logger),
		NewAmazonAdapter(&config.AmazonConfig{}, false, timeout, logger),
		NewEbayAdapter(&config.EbayConfig{}, false, timeout, logger),
		NewEtsyAdapter(&config.EtsyConfig{}, false, timeout, logger),
	}
}

func TestDemoOrdersAreStructurallyValid(t *testing.T) {
	for _, adapter := range demoAdapters(t) {
		t.Run(adapter.Code().String(), func(t *testing.T) {
			orders, err := adapter.FetchOrders(context.Background(), 15, nil)
			require.NoError(t, err)
			require.Len(t, orders, 15)

			for i := range orders {
				order := &orders[i]
				assert.NoError(t, order.Validate())
				assert.Equal(t, adapter.Code(), order.Channel)
				assert.NotEmpty(t, order.ID)
				require.Len(t, order.Items, 1)

				line := order.Items[0]
				assert.True(t, line.TotalPrice.Equal(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))))
				assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Tax).Add(order.ShippingCost)))

				if order.Status.HasShipment() {
					assert.NotEmpty(t, order.TrackingNumber)
					assert.NotEmpty(t, order.Carrier)
				} else {
					assert.Empty(t, order.TrackingNumber)
				}

				assert.True(t, order.OrderDate.After(time.Now().Add(-31*24*time.Hour)))
				assert.False(t, order.OrderDate.After(time.Now()))
			}
		})
	}
}

func TestDemoOrdersRespectLimitCap(t *testing.T) {
	adapter := NewShopifyAdapter(&config.ShopifyConfig{}, false, time.Second, zap.NewNop())

	orders, err := adapter.FetchOrders(context.Background(), 100, nil)
	require.NoError(t, err)
	assert.Len(t, orders, maxDemoOrders)

	orders, err = adapter.FetchOrders(context.Background(), 3, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestDemoOrdersSinceFilter(t *testing.T) {
	adapter := NewEtsyAdapter(&config.EtsyConfig{}, false, time.Second, zap.NewNop())

	since := time.Now().Add(-7 * 24 * time.Hour)
	orders, err := adapter.FetchOrders(context.Background(), maxDemoOrders, &since)
	require.NoError(t, err)
	for i := range orders {
		assert.True(t, orders[i].OrderDate.After(since))
	}
}

func TestDemoFetchOrderCarriesRequestedID(t *testing.T) {
	for _, adapter := range demoAdapters(t) {
		t.Run(adapter.Code().String(), func(t *testing.T) {
			order, err := adapter.FetchOrder(context.Background(), "requested-42")
			require.NoError(t, err)
			assert.Equal(t, "requested-42", order.ID)
			assert.Equal(t, adapter.Code(), order.Channel)
		})
	}
}

func TestDemoWritesSucceedWithoutSideEffects(t *testing.T) {
	for _, adapter := range demoAdapters(t) {
		t.Run(adapter.Code().String(), func(t *testing.T) {
			ok, err := adapter.UpdateStatus(context.Background(), "any", channel.OrderStatusShipped, "TRACK-1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = adapter.SyncInventory(context.Background(), "WIDGET-001", 50)
			require.NoError(t, err)
			assert.True(t, ok)

			assert.True(t, adapter.HealthCheck(context.Background()))
		})
	}
}

func TestCredentialsActivateLiveMode(t *testing.T) {
	logger := zap.NewNop()
	shopify := NewShopifyAdapter(&config.ShopifyConfig{
		ShopURL:     "example.myshopify.com",
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
	}, false, time.Second, logger)
	assert.False(t, shopify.demoMode)

	// Demo mode flag overrides credentials
	forced := NewShopifyAdapter(&config.ShopifyConfig{
		ShopURL:     "example.myshopify.com",
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
	}, true, time.Second, logger)
	assert.True(t, forced.demoMode)
}
