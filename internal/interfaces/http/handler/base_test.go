package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/application/aggregation"
	appinv "github.com/orderhub/backend/internal/application/inventory"
	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/infrastructure/cache"
	"github.com/orderhub/backend/internal/infrastructure/channels"
	"github.com/orderhub/backend/internal/infrastructure/config"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
	"github.com/orderhub/backend/internal/interfaces/http/middleware"
	"github.com/orderhub/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// envelope mirrors dto.Response with raw data for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func performRequest(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// newTestEngine builds a gin engine with the common middleware and the given
// registrars mounted under /api/v1
func newTestEngine(registrars ...router.RouteRegistrar) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := router.NewRouter(engine)
	for _, reg := range registrars {
		r.Register(reg)
	}
	r.Setup()
	return engine
}

// demoRegistry builds a registry with every adapter in simulated mode
func demoRegistry(t *testing.T) (aggregator *aggregation.Aggregator) {
	t.Helper()
	logger := zap.NewNop()
	registry := channels.NewRegistryWithAdapters(
		channels.NewShopifyAdapter(&config.ShopifyConfig{}, true, time.Second, logger),
		channels.NewAmazonAdapter(&config.AmazonConfig{}, true, time.Second, logger),
		channels.NewEbayAdapter(&config.EbayConfig{}, true, time.Second, logger),
		channels.NewEtsyAdapter(&config.EtsyConfig{}, true, time.Second, logger),
	)
	return aggregation.NewAggregator(registry, time.Second, cache.NewInMemoryStatsCache(), time.Minute, logger)
}

// In-memory ledger fakes. Handler tests exercise request decoding, routing,
// and error mapping; transactional behavior is covered by the service tests.

type memProducts struct {
	mu    sync.Mutex
	items map[string]*inventory.Product
}

func newMemProducts() *memProducts {
	return &memProducts{items: make(map[string]*inventory.Product)}
}

func (r *memProducts) FindBySKU(_ context.Context, sku string) (*inventory.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[sku]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProducts) FindBySKUForUpdate(ctx context.Context, sku string) (*inventory.Product, error) {
	return r.FindBySKU(ctx, sku)
}

func (r *memProducts) FindAll(_ context.Context, _ shared.Filter) ([]inventory.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *memProducts) FindBelowReorderPoint(_ context.Context, _ shared.Filter) ([]inventory.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Product, 0)
	for _, p := range r.items {
		if p.QuantityAvailable <= p.ReorderPoint {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *memProducts) Save(_ context.Context, product *inventory.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *product
	r.items[product.SKU] = &cp
	return nil
}

func (r *memProducts) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *memProducts) ExistsBySKU(_ context.Context, sku string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[sku]
	return ok, nil
}

type memLogs struct {
	mu      sync.Mutex
	entries []inventory.ChangeLog
}

func (r *memLogs) Append(_ context.Context, entry *inventory.ChangeLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memLogs) FindBySKU(_ context.Context, sku string, limit int) ([]inventory.ChangeLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.ChangeLog, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].SKU == sku {
			out = append(out, r.entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memLogs) CountBySKU(_ context.Context, sku string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.entries {
		if r.entries[i].SKU == sku {
			n++
		}
	}
	return n, nil
}

type memRepos struct {
	products *memProducts
	logs     *memLogs
}

func (r *memRepos) Products() appinv.LockingProductRepository { return r.products }
func (r *memRepos) ChangeLogs() inventory.ChangeLogRepository { return r.logs }

type memScope struct {
	repos *memRepos
}

func (s *memScope) Execute(_ context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return fn(s.repos)
}

func newTestLedger() (*appinv.LedgerService, *memRepos) {
	repos := &memRepos{products: newMemProducts(), logs: &memLogs{}}
	scope := &memScope{repos: repos}
	return appinv.NewLedgerService(scope, repos.products, repos.logs, zap.NewNop()), repos
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}
