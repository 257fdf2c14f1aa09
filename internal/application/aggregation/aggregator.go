package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/infrastructure/telemetry"
)

// statsCacheKey is the cache key for the aggregated stats snapshot
const statsCacheKey = "channel_stats"

// ChannelFailure describes one channel that failed during a fan-out. Failures
// are reported alongside the merged result instead of failing the whole
// aggregation.
type ChannelFailure struct {
	Channel channel.Code `json:"channel"`
	Reason  string       `json:"reason"`
}

// OrdersResult is the merged outcome of a cross-channel order fetch
type OrdersResult struct {
	// Orders is the merged list, newest first
	Orders []channel.Order `json:"orders"`
	// Failures lists channels that contributed nothing
	Failures []ChannelFailure `json:"failures,omitempty"`
	// ChannelsQueried is how many channels were asked
	ChannelsQueried int `json:"channels_queried"`
	// ChannelsSucceeded is how many channels answered
	ChannelsSucceeded int `json:"channels_succeeded"`
	// ChannelsOK lists the channels that answered, in code order
	ChannelsOK []channel.Code `json:"channels_ok,omitempty"`
}

// ChannelStats is the per-channel order summary
type ChannelStats struct {
	Channel      channel.Code    `json:"channel"`
	DisplayName  string          `json:"display_name"`
	Healthy      bool            `json:"healthy"`
	OrderCount   int             `json:"order_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	ByStatus     map[string]int  `json:"by_status"`
}

// StatsResult is the cross-channel stats snapshot
type StatsResult struct {
	Channels    []ChannelStats  `json:"channels"`
	TotalOrders int             `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	GeneratedAt time.Time       `json:"generated_at"`
	FromCache   bool            `json:"from_cache"`
}

// Aggregator fans order reads and targeted writes out across every configured
// channel. Each channel call runs under its own deadline so one slow or dead
// channel delays the merged result by at most the per-channel timeout and
// never poisons the other channels.
type Aggregator struct {
	registry channel.Registry
	timeout  time.Duration
	cache    cache.StatsCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAggregator creates an Aggregator. cache may be nil to disable stats caching.
func NewAggregator(
	registry channel.Registry,
	timeout time.Duration,
	statsCache cache.StatsCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		registry: registry,
		timeout:  timeout,
		cache:    statsCache,
		cacheTTL: cacheTTL,
		logger:   logger.Named("aggregator"),
	}
}

// channelOutcome is one channel's contribution to a fan-out
type channelOutcome struct {
	code   channel.Code
	orders []channel.Order
	err    error
}

// fanOut runs fn against every adapter concurrently, each under the
// per-channel timeout, and returns the outcomes in completion order.
func (a *Aggregator) fanOut(ctx context.Context, fn func(ctx context.Context, adapter channel.Adapter) ([]channel.Order, error)) []channelOutcome {
	adapters := a.registry.List()
	outcomes := make(chan channelOutcome, len(adapters))

	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter channel.Adapter) {
			defer wg.Done()
			channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			orders, err := fn(channelCtx, adapter)
			if errors.Is(channelCtx.Err(), context.DeadlineExceeded) {
				err = channel.ErrChannelUnavailable
			}
			outcomes <- channelOutcome{code: adapter.Code(), orders: orders, err: err}
		}(adapter)
	}
	wg.Wait()
	close(outcomes)

	collected := make([]channelOutcome, 0, len(adapters))
	for outcome := range outcomes {
		collected = append(collected, outcome)
	}
	return collected
}

// GetAllOrders fetches orders from every channel concurrently and merges them
// newest first. A failing channel contributes a failure entry, not an error.
func (a *Aggregator) GetAllOrders(ctx context.Context, limit int, since *time.Time, status channel.OrderStatus) (*OrdersResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "get_all_orders",
		attribute.Int("limit", limit))
	defer span.End()

	outcomes := a.fanOut(ctx, func(ctx context.Context, adapter channel.Adapter) ([]channel.Order, error) {
		return adapter.FetchOrders(ctx, limit, since)
	})

	result := &OrdersResult{ChannelsQueried: len(outcomes)}
	for _, outcome := range outcomes {
		if outcome.err != nil {
			a.logger.Warn("channel fetch failed",
				zap.String("channel", outcome.code.String()),
				zap.Error(outcome.err))
			result.Failures = append(result.Failures, ChannelFailure{
				Channel: outcome.code,
				Reason:  outcome.err.Error(),
			})
			continue
		}
		result.ChannelsSucceeded++
		result.ChannelsOK = append(result.ChannelsOK, outcome.code)
		for i := range outcome.orders {
			order := outcome.orders[i]
			if status != "" && order.Status != status {
				continue
			}
			result.Orders = append(result.Orders, order)
		}
	}

	sort.Slice(result.Orders, func(i, j int) bool {
		return result.Orders[i].Less(&result.Orders[j])
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Channel < result.Failures[j].Channel
	})
	sort.Slice(result.ChannelsOK, func(i, j int) bool {
		return result.ChannelsOK[i] < result.ChannelsOK[j]
	})

	a.logger.Info("orders aggregated",
		zap.Int("orders", len(result.Orders)),
		zap.Int("channels_queried", result.ChannelsQueried),
		zap.Int("channels_succeeded", result.ChannelsSucceeded))
	return result, nil
}

// GetChannelOrders fetches orders from a single channel
func (a *Aggregator) GetChannelOrders(ctx context.Context, code channel.Code, limit int, since *time.Time) ([]channel.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "get_channel_orders",
		attribute.String("channel", code.String()))
	defer span.End()

	adapter, err := a.registry.Get(code)
	if err != nil {
		return nil, err
	}

	channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	orders, err := adapter.FetchOrders(channelCtx, limit, since)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].Less(&orders[j]) })
	return orders, nil
}

// GetOrder fetches a single order from a single channel
func (a *Aggregator) GetOrder(ctx context.Context, code channel.Code, orderID string) (*channel.Order, error) {
	adapter, err := a.registry.Get(code)
	if err != nil {
		return nil, err
	}

	channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return adapter.FetchOrder(channelCtx, orderID)
}

// SyncOrderStatus pushes a status change to the order's channel. The write is
// targeted: it goes only to the named channel, never fanned out.
func (a *Aggregator) SyncOrderStatus(ctx context.Context, code channel.Code, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "sync_order_status",
		attribute.String("channel", code.String()),
		attribute.String("status", status.String()))
	defer span.End()

	adapter, err := a.registry.Get(code)
	if err != nil {
		return false, err
	}

	channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ok, err := adapter.UpdateStatus(channelCtx, orderID, status, trackingNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	a.logger.Info("order status pushed",
		zap.String("channel", code.String()),
		zap.String("order_id", orderID),
		zap.String("status", status.String()),
		zap.Bool("accepted", ok))
	return ok, nil
}

// SyncInventoryAcrossChannels pushes an absolute quantity for one SKU to
// every channel concurrently. The result maps each channel to whether its
// push was accepted; errors count as a false without aborting the others.
func (a *Aggregator) SyncInventoryAcrossChannels(ctx context.Context, sku string, quantity int) map[channel.Code]bool {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "sync_inventory",
		attribute.String("sku", sku), attribute.Int("quantity", quantity))
	defer span.End()

	adapters := a.registry.List()
	results := make(map[channel.Code]bool, len(adapters))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter channel.Adapter) {
			defer wg.Done()
			channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			ok, err := adapter.SyncInventory(channelCtx, sku, quantity)
			if err != nil {
				a.logger.Warn("inventory push failed",
					zap.String("channel", adapter.Code().String()),
					zap.String("sku", sku),
					zap.Error(err))
				ok = false
			}
			mu.Lock()
			results[adapter.Code()] = ok
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()
	return results
}

// HealthCheck probes every channel concurrently
func (a *Aggregator) HealthCheck(ctx context.Context) map[channel.Code]bool {
	adapters := a.registry.List()
	results := make(map[channel.Code]bool, len(adapters))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter channel.Adapter) {
			defer wg.Done()
			channelCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			healthy := adapter.HealthCheck(channelCtx)
			mu.Lock()
			results[adapter.Code()] = healthy
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()
	return results
}

// GetChannelStats aggregates order counts and revenue per channel. A snapshot
// no older than the cache TTL may be served instead of re-aggregating.
func (a *Aggregator) GetChannelStats(ctx context.Context, limit int) (*StatsResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "get_channel_stats")
	defer span.End()

	if a.cache != nil {
		if raw, hit, err := a.cache.Get(ctx, statsCacheKey); err == nil && hit {
			var cached StatsResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	outcomes := a.fanOut(ctx, func(ctx context.Context, adapter channel.Adapter) ([]channel.Order, error) {
		return adapter.FetchOrders(ctx, limit, nil)
	})

	health := a.HealthCheck(ctx)

	result := &StatsResult{
		TotalRevenue: decimal.Zero,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, outcome := range outcomes {
		stats := ChannelStats{
			Channel:      outcome.code,
			DisplayName:  outcome.code.DisplayName(),
			Healthy:      health[outcome.code] && outcome.err == nil,
			TotalRevenue: decimal.Zero,
			ByStatus:     make(map[string]int),
		}
		for i := range outcome.orders {
			order := &outcome.orders[i]
			stats.OrderCount++
			stats.TotalRevenue = stats.TotalRevenue.Add(order.Total)
			stats.ByStatus[order.Status.String()]++
		}
		result.TotalOrders += stats.OrderCount
		result.TotalRevenue = result.TotalRevenue.Add(stats.TotalRevenue)
		result.Channels = append(result.Channels, stats)
	}
	sort.Slice(result.Channels, func(i, j int) bool {
		return result.Channels[i].Channel < result.Channels[j].Channel
	})

	if a.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := a.cache.Set(ctx, statsCacheKey, raw, a.cacheTTL); err != nil {
				a.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return result, nil
}
