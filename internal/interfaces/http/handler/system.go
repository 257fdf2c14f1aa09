package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// Pinger is the minimal dependency probe used by the health endpoint
type Pinger interface {
	Ping() error
}

// SystemHandler serves liveness and system info endpoints
type SystemHandler struct {
	BaseHandler
	appName   string
	version   string
	db        Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. db may be nil when no
// database is wired, in which case health reports only process liveness.
func NewSystemHandler(appName, version string, db Pinger) *SystemHandler {
	return &SystemHandler{
		appName:   appName,
		version:   version,
		db:        db,
		startTime: time.Now(),
	}
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status   string `json:"status"`
	App      string `json:"app"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
}

// RegisterRoutes registers system routes under the API group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/health", h.Health)
		system.GET("/ping", h.Ping)
	}
}

// Health reports process liveness and database reachability. A down
// database yields 503 so load balancers stop routing here.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:  "ok",
		App:     h.appName,
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
			return
		}
		resp.Database = "ok"
	}

	h.Success(c, resp)
}

// Ping is a trivial liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong"})
}
