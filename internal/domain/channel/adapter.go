package channel

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChannelNotConfigured indicates the channel has no usable credentials
	ErrChannelNotConfigured = errors.New("channel: channel not configured")
	// ErrChannelUnavailable indicates a transient failure talking to the channel
	ErrChannelUnavailable = errors.New("channel: channel temporarily unavailable")
	// ErrChannelRequestFailed indicates the channel rejected a request
	ErrChannelRequestFailed = errors.New("channel: channel request failed")
	// ErrChannelInvalidResponse indicates an unparseable channel response
	ErrChannelInvalidResponse = errors.New("channel: invalid channel response")
	// ErrChannelAuthFailed indicates the channel rejected our credentials
	ErrChannelAuthFailed = errors.New("channel: channel authentication failed")
	// ErrUnknownChannel indicates a caller named a channel that is not configured.
	// This is a caller programming error and is surfaced distinctly from
	// ErrChannelUnavailable so it is never silently swallowed.
	ErrUnknownChannel = errors.New("channel: unknown channel")
	// ErrOrderNotFound indicates the order does not exist on the channel
	ErrOrderNotFound = errors.New("channel: order not found")
)

// Code identifies one external sales channel
type Code string

const (
	// CodeShopify is the Shopify storefront
	CodeShopify Code = "shopify"
	// CodeAmazon is the Amazon marketplace
	CodeAmazon Code = "amazon"
	// CodeEbay is the eBay marketplace
	CodeEbay Code = "ebay"
	// CodeEtsy is the Etsy marketplace
	CodeEtsy Code = "etsy"
)

// AllCodes returns every supported channel code in stable order
func AllCodes() []Code {
	return []Code{CodeShopify, CodeAmazon, CodeEbay, CodeEtsy}
}

// IsValid returns true if the code names a supported channel
func (c Code) IsValid() bool {
	switch c {
	case CodeShopify, CodeAmazon, CodeEbay, CodeEtsy:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the channel
func (c Code) DisplayName() string {
	switch c {
	case CodeShopify:
		return "Shopify"
	case CodeAmazon:
		return "Amazon"
	case CodeEbay:
		return "eBay"
	case CodeEtsy:
		return "Etsy"
	default:
		return string(c)
	}
}

// Adapter is the port interface for one external sales channel. Concrete
// implementations (Shopify, Amazon, eBay, Etsy) live in the infrastructure
// layer; adding a channel means adding one implementation, not touching the
// aggregation engine.
//
// All methods take a context with a bounded deadline; a timed-out call is
// treated the same as an unavailable channel. FetchOrders must not fail for
// transient unavailability in simulated mode; in live mode it returns an error
// the caller can distinguish from "no orders exist".
type Adapter interface {
	// Code returns the channel code this adapter handles
	Code() Code

	// FetchOrders returns at most limit orders, optionally only those placed
	// after since. Ordering within one channel's result is unspecified.
	FetchOrders(ctx context.Context, limit int, since *time.Time) ([]Order, error)

	// FetchOrder returns a single order, or ErrOrderNotFound
	FetchOrder(ctx context.Context, orderID string) (*Order, error)

	// UpdateStatus pushes a fulfillment status change to the channel.
	// Best-effort: a false result carries no compensating action.
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus, trackingNumber string) (bool, error)

	// SyncInventory pushes an absolute (not delta) quantity for a SKU
	SyncInventory(ctx context.Context, sku string, quantity int) (bool, error)

	// HealthCheck is a cheap, side-effect-free liveness probe. It never panics
	// and reports the same result for repeated calls absent state changes.
	HealthCheck(ctx context.Context) bool
}

// Registry provides access to the configured channel adapters
type Registry interface {
	// Get returns the adapter for the given code, or ErrUnknownChannel
	Get(code Code) (Adapter, error)

	// List returns all configured adapters in stable code order
	List() []Adapter
}
