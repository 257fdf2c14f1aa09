package inventory

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/telemetry"
)

// skuMutex hands out one mutex per SKU so ledger mutations for the same SKU
// serialize in-process while different SKUs proceed concurrently. The map
// only grows; the SKU universe is small and bounded by the catalog.
type skuMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSkuMutex() *skuMutex {
	return &skuMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for sku and returns its unlock function
func (m *skuMutex) Lock(sku string) func() {
	m.mu.Lock()
	lock, ok := m.locks[sku]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sku] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// LedgerService owns every mutation of the inventory counters. Each mutation
// runs in its own transaction under a per-SKU critical section and commits
// together with exactly one change log entry, so the audit trail replays to
// the stored counter values. Reads go through the service too so callers
// never touch repositories directly.
type LedgerService struct {
	scope    TransactionScope
	products inventory.ProductRepository
	logs     inventory.ChangeLogRepository
	logger   *zap.Logger
	locks    *skuMutex
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	products inventory.ProductRepository,
	logs inventory.ChangeLogRepository,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		scope:    scope,
		products: products,
		logs:     logs,
		logger:   logger.Named("ledger"),
		locks:    newSkuMutex(),
	}
}

// CreateProduct registers a new SKU with empty counters
func (s *LedgerService) CreateProduct(ctx context.Context, product *inventory.Product) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_product",
		attribute.String("sku", product.SKU))
	defer span.End()

	exists, err := s.products.ExistsBySKU(ctx, product.SKU)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if exists {
		return shared.ErrAlreadyExists
	}
	if err := s.products.Save(ctx, product); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("product created", zap.String("sku", product.SKU))
	return nil
}

// GetProduct returns a product by SKU, or shared.ErrNotFound
func (s *LedgerService) GetProduct(ctx context.Context, sku string) (*inventory.Product, error) {
	return s.products.FindBySKU(ctx, sku)
}

// ListProducts returns a page of products
func (s *LedgerService) ListProducts(ctx context.Context, filter shared.Filter) (*shared.Paginated[inventory.Product], error) {
	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(products, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListBelowReorderPoint returns products whose available stock is at or below
// their reorder point
func (s *LedgerService) ListBelowReorderPoint(ctx context.Context, filter shared.Filter) ([]inventory.Product, error) {
	return s.products.FindBelowReorderPoint(ctx, filter)
}

// AdjustQuantity applies a signed delta to a SKU's available counter. The
// stored value clamps at zero; the change log records the requested delta and
// the stored before/after values, which diverge exactly when clamping fired.
// A zero delta is a no-op and writes no log entry.
func (s *LedgerService) AdjustQuantity(ctx context.Context, sku string, delta int, changeType inventory.ChangeType, cctx inventory.ChangeContext) (*inventory.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "adjust_quantity",
		attribute.String("sku", sku), attribute.Int("delta", delta))
	defer span.End()

	if !changeType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANGE_TYPE", "Change type is not valid")
	}

	unlock := s.locks.Lock(sku)
	defer unlock()

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Products().FindBySKUForUpdate(ctx, sku)
		if err != nil {
			return err
		}
		if delta == 0 {
			product = p
			return nil
		}
		before, after := p.ApplyDelta(delta)
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		entry := inventory.NewChangeLog(sku, changeType, before, after, delta, cctx)
		if err := repos.ChangeLogs().Append(ctx, entry); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("quantity adjusted",
		zap.String("sku", sku),
		zap.Int("delta", delta),
		zap.Int("available", product.QuantityAvailable),
		zap.String("change_type", changeType.String()))
	return product, nil
}

// SetQuantity sets a SKU's available counter to an absolute value. The delta
// is computed inside the per-SKU critical section against the stored value,
// so concurrent setters cannot interleave a stale read with the write. An
// equal value is a no-op and writes no log entry.
func (s *LedgerService) SetQuantity(ctx context.Context, sku string, quantity int, changeType inventory.ChangeType, cctx inventory.ChangeContext) (*inventory.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "set_quantity",
		attribute.String("sku", sku), attribute.Int("quantity", quantity))
	defer span.End()

	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if !changeType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANGE_TYPE", "Change type is not valid")
	}

	unlock := s.locks.Lock(sku)
	defer unlock()

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Products().FindBySKUForUpdate(ctx, sku)
		if err != nil {
			return err
		}
		delta := quantity - p.QuantityAvailable
		if delta == 0 {
			product = p
			return nil
		}
		before, after := p.ApplyDelta(delta)
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		entry := inventory.NewChangeLog(sku, changeType, before, after, delta, cctx)
		if err := repos.ChangeLogs().Append(ctx, entry); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("quantity set",
		zap.String("sku", sku),
		zap.Int("quantity", quantity))
	return product, nil
}

// Reserve moves quantity from available to reserved. On insufficient stock it
// fails without mutating counters and without writing a log entry, which is
// what prevents overselling under concurrent reservations.
func (s *LedgerService) Reserve(ctx context.Context, sku string, quantity int, cctx inventory.ChangeContext) (*inventory.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reserve",
		attribute.String("sku", sku), attribute.Int("quantity", quantity))
	defer span.End()

	unlock := s.locks.Lock(sku)
	defer unlock()

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Products().FindBySKUForUpdate(ctx, sku)
		if err != nil {
			return err
		}
		before, after, err := p.Reserve(quantity)
		if err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		entry := inventory.NewChangeLog(sku, inventory.ChangeTypeReservation, before, after, -quantity, cctx)
		if err := repos.ChangeLogs().Append(ctx, entry); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if !shared.IsDomainError(err) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	s.logger.Info("stock reserved",
		zap.String("sku", sku),
		zap.Int("quantity", quantity),
		zap.Int("available", product.QuantityAvailable),
		zap.Int("reserved", product.QuantityReserved))
	return product, nil
}

// Release moves quantity from reserved back to available. Releasing more than
// is reserved clamps the reserved counter at zero; the log still records the
// requested delta.
func (s *LedgerService) Release(ctx context.Context, sku string, quantity int, cctx inventory.ChangeContext) (*inventory.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "release",
		attribute.String("sku", sku), attribute.Int("quantity", quantity))
	defer span.End()

	unlock := s.locks.Lock(sku)
	defer unlock()

	var product *inventory.Product
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Products().FindBySKUForUpdate(ctx, sku)
		if err != nil {
			return err
		}
		before, after, err := p.Release(quantity)
		if err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		entry := inventory.NewChangeLog(sku, inventory.ChangeTypeRelease, before, after, quantity, cctx)
		if err := repos.ChangeLogs().Append(ctx, entry); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if !shared.IsDomainError(err) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	s.logger.Info("stock released",
		zap.String("sku", sku),
		zap.Int("quantity", quantity),
		zap.Int("available", product.QuantityAvailable),
		zap.Int("reserved", product.QuantityReserved))
	return product, nil
}

// History returns up to limit change log entries for a SKU, newest first.
// An unknown SKU is an error rather than an empty history.
func (s *LedgerService) History(ctx context.Context, sku string, limit int) ([]inventory.ChangeLog, error) {
	exists, err := s.products.ExistsBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrNotFound
	}
	return s.logs.FindBySKU(ctx, sku, limit)
}

// MarkSynced stamps the product's last successful channel sync time
func (s *LedgerService) MarkSynced(ctx context.Context, sku string) error {
	unlock := s.locks.Lock(sku)
	defer unlock()

	product, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		return err
	}
	product.MarkSynced(time.Now())
	return s.products.Save(ctx, product)
}
