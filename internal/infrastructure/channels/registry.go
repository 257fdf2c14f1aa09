package channels

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/infrastructure/config"
)

// registry is the concrete channel.Registry over a fixed adapter set. The
// adapter set is assembled once at startup and never mutated, so lookups
// need no locking.
type registry struct {
	adapters map[channel.Code]channel.Adapter
	ordered  []channel.Adapter
}

// NewRegistry builds the registry holding every supported channel adapter.
// Adapters without credentials run in simulated mode rather than being
// omitted, so the registry always covers all channel codes.
func NewRegistry(cfg *config.ChannelsConfig, syncCfg *config.SyncConfig, logger *zap.Logger) channel.Registry {
	adapters := []channel.Adapter{
		NewShopifyAdapter(&cfg.Shopify, cfg.DemoMode, syncCfg.ChannelTimeout, logger),
		NewAmazonAdapter(&cfg.Amazon, cfg.DemoMode, syncCfg.ChannelTimeout, logger),
		NewEbayAdapter(&cfg.Ebay, cfg.DemoMode, syncCfg.ChannelTimeout, logger),
		NewEtsyAdapter(&cfg.Etsy, cfg.DemoMode, syncCfg.ChannelTimeout, logger),
	}
	return NewRegistryWithAdapters(adapters...)
}

// NewRegistryWithAdapters builds a registry over an explicit adapter set
func NewRegistryWithAdapters(adapters ...channel.Adapter) channel.Registry {
	r := &registry{
		adapters: make(map[channel.Code]channel.Adapter, len(adapters)),
		ordered:  make([]channel.Adapter, 0, len(adapters)),
	}
	for _, a := range adapters {
		r.adapters[a.Code()] = a
		r.ordered = append(r.ordered, a)
	}
	return r
}

// Get returns the adapter for the given code, or channel.ErrUnknownChannel
func (r *registry) Get(code channel.Code) (channel.Adapter, error) {
	a, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("%w: %q", channel.ErrUnknownChannel, code)
	}
	return a, nil
}

// List returns all adapters in registration order
func (r *registry) List() []channel.Adapter {
	out := make([]channel.Adapter, len(r.ordered))
	copy(out, r.ordered)
	return out
}
