package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appinv "github.com/orderhub/backend/internal/application/inventory"
	syncapp "github.com/orderhub/backend/internal/application/sync"
	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/inventory"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// InventoryHandler serves the inventory ledger API
type InventoryHandler struct {
	BaseHandler
	ledger       *appinv.LedgerService
	orchestrator *syncapp.Orchestrator
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(ledger *appinv.LedgerService, orchestrator *syncapp.Orchestrator) *InventoryHandler {
	return &InventoryHandler{
		ledger:       ledger,
		orchestrator: orchestrator,
	}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/products", h.CreateProduct)
		inv.GET("/products", h.ListProducts)
		inv.GET("/low-stock", h.ListLowStock)
		inv.GET("/products/:sku", h.GetProduct)
		inv.GET("/products/:sku/history", h.History)
		inv.POST("/products/:sku/adjust", h.Adjust)
		inv.PUT("/products/:sku/quantity", h.SetQuantity)
		inv.POST("/products/:sku/reserve", h.Reserve)
		inv.POST("/products/:sku/release", h.Release)
		inv.POST("/products/:sku/sync", h.Push)
	}
}

// CreateProductRequest is the body for product creation
type CreateProductRequest struct {
	SKU             string   `json:"sku" binding:"required,max=100"`
	Name            string   `json:"name" binding:"required,max=255"`
	Description     string   `json:"description"`
	Quantity        int      `json:"quantity" binding:"omitempty,min=0"`
	ReorderPoint    *int     `json:"reorder_point" binding:"omitempty,min=0"`
	ReorderQuantity *int     `json:"reorder_quantity" binding:"omitempty,min=0"`
	Cost            *float64 `json:"cost" binding:"omitempty,gte=0"`
	Price           *float64 `json:"price" binding:"omitempty,gte=0"`

	ShopifyProductID string `json:"shopify_product_id"`
	AmazonASIN       string `json:"amazon_asin"`
	EbayItemID       string `json:"ebay_item_id"`
	EtsyListingID    string `json:"etsy_listing_id"`
}

// MutationRequest is the shared body shape for ledger mutations
type MutationRequest struct {
	Channel  string `json:"channel" binding:"omitempty,channelcode"`
	OrderRef string `json:"order_ref"`
	Reason   string `json:"reason"`
	Notes    string `json:"notes"`
}

func (r *MutationRequest) changeContext() inventory.ChangeContext {
	return inventory.ChangeContext{
		Channel:  channel.Code(r.Channel),
		OrderRef: r.OrderRef,
		Reason:   r.Reason,
		Notes:    r.Notes,
	}
}

// AdjustQuantityRequest is the body for a relative quantity change
type AdjustQuantityRequest struct {
	MutationRequest
	Delta      int    `json:"delta" binding:"required"`
	ChangeType string `json:"change_type" binding:"required,oneof=sale restock adjustment sync"`
}

// SetQuantityRequest is the body for an absolute quantity write
type SetQuantityRequest struct {
	MutationRequest
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// ReservationRequest is the body for reserve and release operations
type ReservationRequest struct {
	MutationRequest
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// PushInventoryRequest is the body for a cross-channel inventory push
type PushInventoryRequest struct {
	MutationRequest
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// ProductResponse is the API shape of a ledger product
type ProductResponse struct {
	ID                string     `json:"id"`
	SKU               string     `json:"sku"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	QuantityAvailable int        `json:"quantity_available"`
	QuantityReserved  int        `json:"quantity_reserved"`
	QuantityTotal     int        `json:"quantity_total"`
	ReorderPoint      int        `json:"reorder_point"`
	ReorderQuantity   int        `json:"reorder_quantity"`
	NeedsReorder      bool       `json:"needs_reorder"`
	Cost              *float64   `json:"cost,omitempty"`
	Price             *float64   `json:"price,omitempty"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toProductResponse(p *inventory.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID.String(),
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		QuantityAvailable: p.QuantityAvailable,
		QuantityReserved:  p.QuantityReserved,
		QuantityTotal:     p.TotalQuantity(),
		ReorderPoint:      p.ReorderPoint,
		ReorderQuantity:   p.ReorderQuantity,
		NeedsReorder:      p.NeedsReorder(),
		Cost:              fromDecimalPtr(p.Cost),
		Price:             fromDecimalPtr(p.Price),
		LastSyncedAt:      p.LastSyncedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// ChangeLogResponse is the API shape of one audit trail entry
type ChangeLogResponse struct {
	ID             string       `json:"id"`
	SKU            string       `json:"sku"`
	ChangeType     string       `json:"change_type"`
	QuantityBefore int          `json:"quantity_before"`
	QuantityAfter  int          `json:"quantity_after"`
	QuantityChange int          `json:"quantity_change"`
	Channel        channel.Code `json:"channel,omitempty"`
	OrderRef       string       `json:"order_ref,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func toChangeLogResponse(l *inventory.ChangeLog) ChangeLogResponse {
	return ChangeLogResponse{
		ID:             l.ID.String(),
		SKU:            l.SKU,
		ChangeType:     l.ChangeType.String(),
		QuantityBefore: l.QuantityBefore,
		QuantityAfter:  l.QuantityAfter,
		QuantityChange: l.QuantityChange,
		Channel:        l.Channel,
		OrderRef:       l.OrderRef,
		Reason:         l.Reason,
		Notes:          l.Notes,
		CreatedAt:      l.CreatedAt,
	}
}

// PushResponse is the API shape of a cross-channel inventory push outcome
type PushResponse struct {
	Product      ProductResponse       `json:"product"`
	Channels     map[channel.Code]bool `json:"channels"`
	AllAccepted  bool                  `json:"all_accepted"`
}

// CreateProduct registers a new SKU in the ledger
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	product, err := inventory.NewProduct(req.SKU, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	product.Description = req.Description
	product.QuantityAvailable = req.Quantity
	if req.ReorderPoint != nil {
		product.ReorderPoint = *req.ReorderPoint
	}
	if req.ReorderQuantity != nil {
		product.ReorderQuantity = *req.ReorderQuantity
	}
	product.Cost = toDecimalPtr(req.Cost)
	product.Price = toDecimalPtr(req.Price)
	product.ShopifyProductID = req.ShopifyProductID
	product.AmazonASIN = req.AmazonASIN
	product.EbayItemID = req.EbayItemID
	product.EtsyListingID = req.EtsyListingID

	if err := h.ledger.CreateProduct(c.Request.Context(), product); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProductResponse(product))
}

// ListProducts returns a paginated product listing
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	page, err := h.ledger.ListProducts(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ProductResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toProductResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize)
}

// ListLowStock returns products at or below their reorder point
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	products, err := h.ledger.ListBelowReorderPoint(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	h.Success(c, items)
}

// GetProduct returns one product by SKU
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	product, err := h.ledger.GetProduct(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// Adjust applies a relative quantity change to a SKU
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	product, err := h.ledger.AdjustQuantity(c.Request.Context(), c.Param("sku"),
		req.Delta, inventory.ChangeType(req.ChangeType), req.changeContext())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// SetQuantity writes an absolute available quantity for a SKU
func (h *InventoryHandler) SetQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	product, err := h.ledger.SetQuantity(c.Request.Context(), c.Param("sku"),
		*req.Quantity, inventory.ChangeTypeAdjustment, req.changeContext())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// Reserve moves stock from available to reserved
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	product, err := h.ledger.Reserve(c.Request.Context(), c.Param("sku"), req.Quantity, req.changeContext())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// Release moves stock from reserved back to available
func (h *InventoryHandler) Release(c *gin.Context) {
	var req ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	product, err := h.ledger.Release(c.Request.Context(), c.Param("sku"), req.Quantity, req.changeContext())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProductResponse(product))
}

// History returns the change log for a SKU, newest first
func (h *InventoryHandler) History(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"), 0)
	if !ok {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}

	logs, err := h.ledger.History(c.Request.Context(), c.Param("sku"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entries := make([]ChangeLogResponse, 0, len(logs))
	for i := range logs {
		entries = append(entries, toChangeLogResponse(&logs[i]))
	}
	h.Success(c, entries)
}

// Push commits an absolute quantity to the ledger and propagates the
// committed value to every channel
func (h *InventoryHandler) Push(c *gin.Context) {
	var req PushInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	result, err := h.orchestrator.PushInventory(c.Request.Context(), c.Param("sku"), *req.Quantity, req.changeContext())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PushResponse{
		Product:     toProductResponse(result.Product),
		Channels:    result.Channels,
		AllAccepted: result.AllAccepted(),
	})
}
