package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderhub/backend/internal/application/aggregation"
	syncapp "github.com/orderhub/backend/internal/application/sync"
	"github.com/orderhub/backend/internal/domain/channel"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// ChannelHandler serves channel status and sync administration
type ChannelHandler struct {
	BaseHandler
	registry     channel.Registry
	aggregator   *aggregation.Aggregator
	orchestrator *syncapp.Orchestrator
	connections  channel.ConnectionRepository
	defaultLimit int
}

// NewChannelHandler creates a new ChannelHandler. connections may be nil when
// no connection bookkeeping is configured.
func NewChannelHandler(
	registry channel.Registry,
	aggregator *aggregation.Aggregator,
	orchestrator *syncapp.Orchestrator,
	connections channel.ConnectionRepository,
	defaultLimit int,
) *ChannelHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &ChannelHandler{
		registry:     registry,
		aggregator:   aggregator,
		orchestrator: orchestrator,
		connections:  connections,
		defaultLimit: defaultLimit,
	}
}

// RegisterRoutes registers channel routes
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	channels := rg.Group("/channels")
	{
		channels.GET("", h.List)
		channels.GET("/health", h.Health)
		channels.POST("/sync", h.RunSync)
	}
}

// ChannelInfoResponse describes one configured channel
type ChannelInfoResponse struct {
	Channel      channel.Code `json:"channel"`
	DisplayName  string       `json:"display_name"`
	Active       bool         `json:"active"`
	LastSyncAt   *time.Time   `json:"last_sync_at,omitempty"`
	LastStatus   string       `json:"last_status,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
	OrdersSynced int64        `json:"orders_synced"`
}

// RunSyncRequest is the body for a manual sync cycle
type RunSyncRequest struct {
	Limit int    `json:"limit" binding:"omitempty,gt=0"`
	Since string `json:"since"`
}

// List returns every configured channel with its connection bookkeeping
func (h *ChannelHandler) List(c *gin.Context) {
	infos := make([]ChannelInfoResponse, 0, len(h.registry.List()))
	for _, adapter := range h.registry.List() {
		info := ChannelInfoResponse{
			Channel:     adapter.Code(),
			DisplayName: adapter.Code().DisplayName(),
			Active:      true,
		}
		if h.connections != nil {
			conn, err := h.connections.FindByChannel(c.Request.Context(), adapter.Code())
			switch {
			case err == nil:
				info.Active = conn.IsActive
				info.LastSyncAt = conn.LastSyncAt
				info.LastStatus = conn.LastSyncStatus
				info.LastError = conn.LastError
				info.OrdersSynced = conn.OrdersSynced
			case !errors.Is(err, shared.ErrNotFound):
				h.HandleError(c, err)
				return
			}
		}
		infos = append(infos, info)
	}
	h.Success(c, infos)
}

// Health probes every channel and reports per-channel liveness
func (h *ChannelHandler) Health(c *gin.Context) {
	h.Success(c, h.aggregator.HealthCheck(c.Request.Context()))
}

// RunSync triggers one sync cycle across all channels and returns the merged
// result with per-channel outcomes
func (h *ChannelHandler) RunSync(c *gin.Context) {
	req := RunSyncRequest{Limit: h.defaultLimit}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = h.defaultLimit
	}

	var since *time.Time
	if req.Since != "" {
		t, err := parseDateTime(req.Since)
		if err != nil {
			h.BadRequest(c, "since must be an RFC3339 timestamp or YYYY-MM-DD date")
			return
		}
		since = &t
	}

	result, err := h.orchestrator.RunSyncCycle(c.Request.Context(), req.Limit, since)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
