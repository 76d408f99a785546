package broadcastlogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Lister reads broadcast log entries.
type Lister interface {
	List(ctx context.Context, channel string, limit int) ([]models.BroadcastLog, error)
}

// Handler handles broadcast log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates a broadcast logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/broadcasts?channel=&limit=. Newest first.
func (h *Handler) List(c *gin.Context) {
	channel := ""
	if v := c.Query("channel"); v != "" {
		ch, err := broadcast.ParseChannel(v)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		channel = string(ch)
	}
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLimit)
	}
	logs, err := h.repo.List(c.Request.Context(), channel, limit)
	if err != nil {
		response.Internal(c, "failed to load broadcast logs")
		return
	}
	response.OK(c, logs)
}
