package broadcast

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/middleware"
	"github.com/aura-workshop/backend/pkg/queue"
	"github.com/aura-workshop/backend/pkg/response"
)

// Runner is what the handler needs from Service.
type Runner interface {
	Broadcast(ctx context.Context, ch Channel) (Result, error)
	Preview(ctx context.Context, ch Channel) (Preview, error)
}

// Enqueuer hands a broadcast to the background worker.
type Enqueuer interface {
	EnqueueBroadcast(ctx context.Context, payload queue.BroadcastPayload) (string, error)
}

// SendRequest is the body for POST /admin/broadcasts/:channel.
type SendRequest struct {
	Confirm bool `json:"confirm"`
}

// SendResponse is the body returned after a synchronous run.
type SendResponse struct {
	Result
	Outcome    Outcome `json:"outcome"`
	LogWritten bool    `json:"log_written"`
	Warning    string  `json:"warning,omitempty"`
}

// Handler handles broadcast HTTP endpoints.
type Handler struct {
	runner Runner
	queue  Enqueuer
	logger *zap.Logger
}

// NewHandler creates a broadcast handler. A nil queue disables ?async=true.
func NewHandler(runner Runner, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, queue: q, logger: logger}
}

// Send handles POST /admin/broadcasts/:channel. The caller must confirm
// explicitly; nothing is read or sent otherwise.
func (h *Handler) Send(c *gin.Context) {
	ch, err := ParseChannel(c.Param("channel"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		response.BadRequest(c, "broadcast must be confirmed with {\"confirm\": true}")
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		h.enqueue(c, ch)
		return
	}

	// A confirmed run goes to completion even if the admin disconnects.
	res, err := h.runner.Broadcast(context.WithoutCancel(c.Request.Context()), ch)
	if err != nil && !errors.Is(err, ErrLogWrite) {
		h.writeError(c, ch, err)
		return
	}
	out := SendResponse{Result: res, Outcome: res.Outcome(), LogWritten: err == nil}
	if err != nil {
		out.Warning = "messages were sent but the broadcast could not be recorded"
	}
	response.OK(c, out)
}

func (h *Handler) enqueue(c *gin.Context, ch Channel) {
	if h.queue == nil {
		response.ServiceUnavailable(c, "background broadcasts are not available")
		return
	}
	jobID, err := h.queue.EnqueueBroadcast(c.Request.Context(), queue.BroadcastPayload{
		Channel:     string(ch),
		RequestedBy: requesterID(c),
	})
	if err != nil {
		h.logger.Error("enqueue broadcast failed", zap.String("channel", string(ch)), zap.Error(err))
		response.Internal(c, "failed to queue broadcast")
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "channel": ch})
}

func (h *Handler) writeError(c *gin.Context, ch Channel, err error) {
	var ce *ConfigurationError
	switch {
	case errors.As(err, &ce):
		response.Fail(c, http.StatusBadRequest, err.Error(), gin.H{"channel": ch, "missing": ce.Missing})
	case errors.Is(err, ErrEmptyAudience):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, ErrBroadcastInProgress):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrUnknownChannel):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("broadcast failed", zap.String("channel", string(ch)), zap.Error(err))
		response.Internal(c, "broadcast failed")
	}
}

// Preview handles GET /admin/broadcasts/:channel/preview.
func (h *Handler) Preview(c *gin.Context) {
	ch, err := ParseChannel(c.Param("channel"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.runner.Preview(c.Request.Context(), ch)
	if err != nil {
		h.logger.Error("broadcast preview failed", zap.String("channel", string(ch)), zap.Error(err))
		response.Internal(c, "failed to build preview")
		return
	}
	response.OK(c, p)
}

func requesterID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(middleware.ContextAdminID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
