// Package sync coordinates writes that span the local ledger and the external
// channels. The ledger is the source of truth: it commits first, and only a
// committed value is propagated outward.
package sync

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/application/aggregation"
	appinv "github.com/orderhub/backend/internal/application/inventory"
	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/telemetry"
)

// PushResult is the outcome of one ledger-then-propagate inventory push
type PushResult struct {
	// Product is the committed ledger state
	Product *inventory.Product `json:"product"`
	// Channels maps each channel to whether its push was accepted
	Channels map[channel.Code]bool `json:"channels"`
}

// AllAccepted returns true when every channel accepted the push
func (r *PushResult) AllAccepted() bool {
	for _, ok := range r.Channels {
		if !ok {
			return false
		}
	}
	return true
}

// Orchestrator sequences cross-boundary writes. Inventory pushes commit to
// the ledger before any channel sees the value; a ledger failure stops the
// operation before anything leaks outward. Channel pushes are best-effort
// and reported per channel.
type Orchestrator struct {
	ledger      *appinv.LedgerService
	aggregator  *aggregation.Aggregator
	connections channel.ConnectionRepository
	logger      *zap.Logger
}

// NewOrchestrator creates an Orchestrator. connections may be nil to disable
// sync bookkeeping.
func NewOrchestrator(
	ledger *appinv.LedgerService,
	aggregator *aggregation.Aggregator,
	connections channel.ConnectionRepository,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		aggregator:  aggregator,
		connections: connections,
		logger:      logger.Named("orchestrator"),
	}
}

// PushInventory sets a SKU's ledger quantity and propagates the committed
// value to every channel. The ledger write happens first; on ledger failure
// nothing is propagated.
func (o *Orchestrator) PushInventory(ctx context.Context, sku string, quantity int, cctx inventory.ChangeContext) (*PushResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "push_inventory",
		attribute.String("sku", sku), attribute.Int("quantity", quantity))
	defer span.End()

	product, err := o.ledger.SetQuantity(ctx, sku, quantity, inventory.ChangeTypeSync, cctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := o.aggregator.SyncInventoryAcrossChannels(ctx, sku, product.QuantityAvailable)

	if allAccepted(results) {
		if err := o.ledger.MarkSynced(ctx, sku); err != nil {
			o.logger.Warn("failed to stamp sync time", zap.String("sku", sku), zap.Error(err))
		}
	}

	o.logger.Info("inventory pushed",
		zap.String("sku", sku),
		zap.Int("quantity", product.QuantityAvailable),
		zap.Bool("all_accepted", allAccepted(results)))
	return &PushResult{Product: product, Channels: results}, nil
}

// PropagateStatus pushes an order status change to its channel and records
// the outcome on the channel's connection record.
func (o *Orchestrator) PropagateStatus(ctx context.Context, code channel.Code, orderID string, status channel.OrderStatus, trackingNumber string) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "propagate_status",
		attribute.String("channel", code.String()),
		attribute.String("order_id", orderID))
	defer span.End()

	ok, err := o.aggregator.SyncOrderStatus(ctx, code, orderID, status, trackingNumber)
	if err != nil {
		if !errors.Is(err, channel.ErrUnknownChannel) {
			o.recordOutcome(ctx, code, func(conn *channel.Connection) {
				conn.RecordSyncFailure(err.Error())
			})
		}
		telemetry.RecordError(span, err)
		return false, err
	}

	o.recordOutcome(ctx, code, func(conn *channel.Connection) {
		if ok {
			conn.RecordSyncSuccess(1)
		} else {
			conn.RecordSyncFailure("status push rejected")
		}
	})
	return ok, nil
}

// RunSyncCycle fetches recent orders from every channel and records per
// channel sync bookkeeping. It is the body of the background sync loop.
func (o *Orchestrator) RunSyncCycle(ctx context.Context, limit int, since *time.Time) (*aggregation.OrdersResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "run_sync_cycle")
	defer span.End()

	result, err := o.aggregator.GetAllOrders(ctx, limit, since, "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	counts := make(map[channel.Code]int64)
	for i := range result.Orders {
		counts[result.Orders[i].Channel]++
	}

	for _, failure := range result.Failures {
		failure := failure
		o.recordOutcome(ctx, failure.Channel, func(conn *channel.Connection) {
			conn.RecordSyncFailure(failure.Reason)
		})
	}
	for _, code := range result.ChannelsOK {
		code := code
		o.recordOutcome(ctx, code, func(conn *channel.Connection) {
			conn.RecordSyncSuccess(counts[code])
		})
	}
	return result, nil
}

// Start runs the background sync loop until the context is cancelled
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration, limit int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.Info("background sync started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("background sync stopped")
			return
		case <-ticker.C:
			since := time.Now().Add(-interval * 2)
			if _, err := o.RunSyncCycle(ctx, limit, &since); err != nil {
				o.logger.Error("sync cycle failed", zap.Error(err))
			}
		}
	}
}

// recordOutcome applies a mutation to a channel's connection record, creating
// the record on first use. Bookkeeping failures are logged, never surfaced.
func (o *Orchestrator) recordOutcome(ctx context.Context, code channel.Code, mutate func(conn *channel.Connection)) {
	if o.connections == nil {
		return
	}

	conn, err := o.connections.FindByChannel(ctx, code)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			o.logger.Warn("connection lookup failed", zap.String("channel", code.String()), zap.Error(err))
			return
		}
		conn, err = channel.NewConnection(code, "")
		if err != nil {
			return
		}
	}

	mutate(conn)
	if err := o.connections.Save(ctx, conn); err != nil {
		o.logger.Warn("connection bookkeeping failed", zap.String("channel", code.String()), zap.Error(err))
	}
}

func allAccepted(results map[channel.Code]bool) bool {
	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}
