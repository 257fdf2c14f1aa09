package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderhub/backend/internal/application/aggregation"
	syncapp "github.com/orderhub/backend/internal/application/sync"
	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// OrderHandler serves the cross-channel order read API
type OrderHandler struct {
	BaseHandler
	aggregator   *aggregation.Aggregator
	orchestrator *syncapp.Orchestrator
	defaultLimit int
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(aggregator *aggregation.Aggregator, orchestrator *syncapp.Orchestrator, defaultLimit int) *OrderHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &OrderHandler{
		aggregator:   aggregator,
		orchestrator: orchestrator,
		defaultLimit: defaultLimit,
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.List)
		orders.GET("/stats", h.Stats)
		orders.GET("/:channel/:id", h.Get)
		orders.POST("/:channel/:id/status", h.UpdateStatus)
	}
}

// ChannelOrdersResponse wraps a single channel's order list
type ChannelOrdersResponse struct {
	Channel channel.Code    `json:"channel"`
	Orders  []channel.Order `json:"orders"`
	Count   int             `json:"count"`
}

// UpdateOrderStatusRequest is the body for a status push
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required,orderstatus"`
	TrackingNumber string `json:"tracking_number"`
}

// UpdateOrderStatusResponse reports the channel's answer to a status push
type UpdateOrderStatusResponse struct {
	Channel  channel.Code       `json:"channel"`
	OrderID  string             `json:"order_id"`
	Status   channel.OrderStatus `json:"status"`
	Accepted bool               `json:"accepted"`
}

// List returns orders merged across all channels, newest first. Passing
// ?channel= restricts the fetch to one channel; ?status= filters the merged
// result; ?since= bounds the order date; ?limit= caps the per-channel fetch.
func (h *OrderHandler) List(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"), h.defaultLimit)
	if !ok {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}

	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := parseDateTime(raw)
		if err != nil {
			h.BadRequest(c, "since must be an RFC3339 timestamp or YYYY-MM-DD date")
			return
		}
		since = &t
	}

	var status channel.OrderStatus
	if raw := c.Query("status"); raw != "" {
		status = channel.OrderStatus(raw)
		if !status.IsValid() {
			h.BadRequest(c, "status is not a known order status")
			return
		}
	}

	if raw := c.Query("channel"); raw != "" {
		code := channel.Code(raw)
		orders, err := h.aggregator.GetChannelOrders(c.Request.Context(), code, limit, since)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		if status != "" {
			filtered := orders[:0]
			for _, o := range orders {
				if o.Status == status {
					filtered = append(filtered, o)
				}
			}
			orders = filtered
		}
		h.Success(c, ChannelOrdersResponse{Channel: code, Orders: orders, Count: len(orders)})
		return
	}

	result, err := h.aggregator.GetAllOrders(c.Request.Context(), limit, since, status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Get returns a single order from one channel
func (h *OrderHandler) Get(c *gin.Context) {
	code := channel.Code(c.Param("channel"))
	orderID := c.Param("id")

	order, err := h.aggregator.GetOrder(c.Request.Context(), code, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// UpdateStatus pushes a fulfillment status change to the owning channel and
// records the sync outcome on the channel connection
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	code := channel.Code(c.Param("channel"))
	orderID := c.Param("id")

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeValidation), dto.ErrCodeValidation, err.Error())
		return
	}

	status := channel.OrderStatus(req.Status)
	accepted, err := h.orchestrator.PropagateStatus(c.Request.Context(), code, orderID, status, req.TrackingNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, UpdateOrderStatusResponse{
		Channel:  code,
		OrderID:  orderID,
		Status:   status,
		Accepted: accepted,
	})
}

// Stats returns the per-channel order summary, served from cache when fresh
func (h *OrderHandler) Stats(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"), h.defaultLimit)
	if !ok {
		h.BadRequest(c, "limit must be a positive integer")
		return
	}

	stats, err := h.aggregator.GetChannelStats(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
