package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/infrastructure/channels"
)

// fakeAdapter is a scriptable channel.Adapter for aggregation tests
type fakeAdapter struct {
	code     channel.Code
	orders   []channel.Order
	fetchErr error
	delay    time.Duration
	healthy  bool

	updateOK  bool
	updateErr error
	syncOK    bool
	syncErr   error

	lastSyncSKU string
	lastSyncQty int
	lastStatus  channel.OrderStatus
}

func (f *fakeAdapter) Code() channel.Code { return f.code }

func (f *fakeAdapter) FetchOrders(ctx context.Context, limit int, since *time.Time) ([]channel.Order, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit < len(f.orders) {
		return f.orders[:limit], nil
	}
	return f.orders, nil
}

func (f *fakeAdapter) FetchOrder(ctx context.Context, orderID string) (*channel.Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			return &f.orders[i], nil
		}
	}
	return nil, channel.ErrOrderNotFound
}

func (f *fakeAdapter) UpdateStatus(ctx context.Context, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	f.lastStatus = status
	return f.updateOK, f.updateErr
}

func (f *fakeAdapter) SyncInventory(ctx context.Context, sku string, quantity int) (bool, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	f.lastSyncSKU = sku
	f.lastSyncQty = quantity
	return f.syncOK, f.syncErr
}

func (f *fakeAdapter) HealthCheck(ctx context.Context) bool { return f.healthy }

func testOrder(code channel.Code, id string, placed time.Time, status channel.OrderStatus, total string) channel.Order {
	amount, _ := decimal.NewFromString(total)
	return channel.Order{
		ID:        id,
		Channel:   code,
		Status:    status,
		OrderDate: placed,
		Total:     amount,
	}
}

func newTestAggregator(t *testing.T, statsCache cache.StatsCache, adapters ...channel.Adapter) *Aggregator {
	t.Helper()
	registry := channels.NewRegistryWithAdapters(adapters...)
	return NewAggregator(registry, 200*time.Millisecond, statsCache, time.Minute, zap.NewNop())
}

func TestGetAllOrdersMergesNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	shopify := &fakeAdapter{code: channel.CodeShopify, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeShopify, "s1", base.Add(2*time.Hour), channel.OrderStatusPending, "10"),
		testOrder(channel.CodeShopify, "s2", base, channel.OrderStatusShipped, "20"),
	}}
	amazon := &fakeAdapter{code: channel.CodeAmazon, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeAmazon, "a1", base.Add(time.Hour), channel.OrderStatusPending, "30"),
	}}

	agg := newTestAggregator(t, nil, shopify, amazon)
	result, err := agg.GetAllOrders(context.Background(), 50, nil, "")
	require.NoError(t, err)

	require.Len(t, result.Orders, 3)
	assert.Equal(t, "s1", result.Orders[0].ID)
	assert.Equal(t, "a1", result.Orders[1].ID)
	assert.Equal(t, "s2", result.Orders[2].ID)
	assert.Equal(t, 2, result.ChannelsQueried)
	assert.Equal(t, 2, result.ChannelsSucceeded)
	assert.Empty(t, result.Failures)
}

func TestGetAllOrdersTieBreaksByChannelThenID(t *testing.T) {
	when := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	ebay := &fakeAdapter{code: channel.CodeEbay, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeEbay, "e2", when, channel.OrderStatusPending, "10"),
		testOrder(channel.CodeEbay, "e1", when, channel.OrderStatusPending, "10"),
	}}
	amazon := &fakeAdapter{code: channel.CodeAmazon, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeAmazon, "a1", when, channel.OrderStatusPending, "10"),
	}}

	agg := newTestAggregator(t, nil, ebay, amazon)
	result, err := agg.GetAllOrders(context.Background(), 50, nil, "")
	require.NoError(t, err)

	require.Len(t, result.Orders, 3)
	assert.Equal(t, "a1", result.Orders[0].ID)
	assert.Equal(t, "e1", result.Orders[1].ID)
	assert.Equal(t, "e2", result.Orders[2].ID)
}

func TestGetAllOrdersIsolatesFailingChannel(t *testing.T) {
	base := time.Now()
	healthy := &fakeAdapter{code: channel.CodeShopify, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeShopify, "s1", base, channel.OrderStatusPending, "10"),
	}}
	broken := &fakeAdapter{code: channel.CodeAmazon, fetchErr: channel.ErrChannelUnavailable}

	agg := newTestAggregator(t, nil, healthy, broken)
	result, err := agg.GetAllOrders(context.Background(), 50, nil, "")
	require.NoError(t, err)

	require.Len(t, result.Orders, 1)
	assert.Equal(t, 2, result.ChannelsQueried)
	assert.Equal(t, 1, result.ChannelsSucceeded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, channel.CodeAmazon, result.Failures[0].Channel)
}

func TestGetAllOrdersTimesOutSlowChannel(t *testing.T) {
	base := time.Now()
	fast := &fakeAdapter{code: channel.CodeShopify, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeShopify, "s1", base, channel.OrderStatusPending, "10"),
	}}
	slow := &fakeAdapter{code: channel.CodeEtsy, healthy: true, delay: 5 * time.Second, orders: []channel.Order{
		testOrder(channel.CodeEtsy, "e1", base, channel.OrderStatusPending, "10"),
	}}

	agg := newTestAggregator(t, nil, fast, slow)

	start := time.Now()
	result, err := agg.GetAllOrders(context.Background(), 50, nil, "")
	require.NoError(t, err)

	// Bounded by the per-channel timeout, not the slow channel's delay
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, result.Orders, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, channel.CodeEtsy, result.Failures[0].Channel)
}

func TestGetAllOrdersStatusFilter(t *testing.T) {
	base := time.Now()
	adapter := &fakeAdapter{code: channel.CodeShopify, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeShopify, "s1", base, channel.OrderStatusPending, "10"),
		testOrder(channel.CodeShopify, "s2", base.Add(-time.Hour), channel.OrderStatusShipped, "20"),
	}}

	agg := newTestAggregator(t, nil, adapter)
	result, err := agg.GetAllOrders(context.Background(), 50, nil, channel.OrderStatusShipped)
	require.NoError(t, err)

	require.Len(t, result.Orders, 1)
	assert.Equal(t, "s2", result.Orders[0].ID)
}

func TestGetOrderUnknownChannel(t *testing.T) {
	agg := newTestAggregator(t, nil)

	_, err := agg.GetOrder(context.Background(), channel.Code("walmart"), "1")
	assert.ErrorIs(t, err, channel.ErrUnknownChannel)
}

func TestSyncOrderStatusTargetsSingleChannel(t *testing.T) {
	shopify := &fakeAdapter{code: channel.CodeShopify, updateOK: true}
	amazon := &fakeAdapter{code: channel.CodeAmazon, updateOK: true}

	agg := newTestAggregator(t, nil, shopify, amazon)
	ok, err := agg.SyncOrderStatus(context.Background(), channel.CodeShopify, "s1", channel.OrderStatusShipped, "TRK-1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, channel.OrderStatusShipped, shopify.lastStatus)
	assert.Empty(t, amazon.lastStatus)
}

func TestSyncInventoryAcrossChannelsReportsPerChannel(t *testing.T) {
	shopify := &fakeAdapter{code: channel.CodeShopify, syncOK: true}
	amazon := &fakeAdapter{code: channel.CodeAmazon, syncErr: channel.ErrChannelUnavailable}
	ebay := &fakeAdapter{code: channel.CodeEbay, syncOK: false}

	agg := newTestAggregator(t, nil, shopify, amazon, ebay)
	results := agg.SyncInventoryAcrossChannels(context.Background(), "WIDGET-001", 42)

	assert.True(t, results[channel.CodeShopify])
	assert.False(t, results[channel.CodeAmazon])
	assert.False(t, results[channel.CodeEbay])
	assert.Equal(t, "WIDGET-001", shopify.lastSyncSKU)
	assert.Equal(t, 42, shopify.lastSyncQty)
}

func TestGetChannelStatsAggregatesAndCaches(t *testing.T) {
	base := time.Now()
	shopify := &fakeAdapter{code: channel.CodeShopify, healthy: true, orders: []channel.Order{
		testOrder(channel.CodeShopify, "s1", base, channel.OrderStatusPending, "10.50"),
		testOrder(channel.CodeShopify, "s2", base, channel.OrderStatusShipped, "20.00"),
	}}
	amazon := &fakeAdapter{code: channel.CodeAmazon, healthy: false, fetchErr: channel.ErrChannelUnavailable}

	statsCache := cache.NewInMemoryStatsCache()
	defer statsCache.Close()

	agg := newTestAggregator(t, statsCache, shopify, amazon)
	stats, err := agg.GetChannelStats(context.Background(), 50)
	require.NoError(t, err)
	assert.False(t, stats.FromCache)

	require.Len(t, stats.Channels, 2)
	assert.Equal(t, channel.CodeAmazon, stats.Channels[0].Channel)
	assert.False(t, stats.Channels[0].Healthy)

	shopifyStats := stats.Channels[1]
	assert.Equal(t, channel.CodeShopify, shopifyStats.Channel)
	assert.True(t, shopifyStats.Healthy)
	assert.Equal(t, 2, shopifyStats.OrderCount)
	assert.Equal(t, "30.50", shopifyStats.TotalRevenue.StringFixed(2))
	assert.Equal(t, 1, shopifyStats.ByStatus["pending"])
	assert.Equal(t, 1, shopifyStats.ByStatus["shipped"])
	assert.Equal(t, 2, stats.TotalOrders)

	// Second call is served from cache
	again, err := agg.GetChannelStats(context.Background(), 50)
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, stats.TotalOrders, again.TotalOrders)
}

func TestHealthCheckProbesAllChannels(t *testing.T) {
	up := &fakeAdapter{code: channel.CodeShopify, healthy: true}
	down := &fakeAdapter{code: channel.CodeEbay, healthy: false}

	agg := newTestAggregator(t, nil, up, down)
	results := agg.HealthCheck(context.Background())

	assert.True(t, results[channel.CodeShopify])
	assert.False(t, results[channel.CodeEbay])
}
