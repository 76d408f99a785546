// Package dashboard serves the admin overview: audience size, reach per
// channel and the last broadcast on each channel.
package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/response"
)

// RegistrantCounter counts registrants and their reach.
type RegistrantCounter interface {
	CountReach(ctx context.Context) (total, withEmail, withWhatsApp int, err error)
}

// LatestLogs returns the most recent broadcast on a channel.
type LatestLogs interface {
	Latest(ctx context.Context, channel string) (*models.BroadcastLog, error)
}

// ChannelPreviewer reports whether a channel is configured.
type ChannelPreviewer interface {
	Preview(ctx context.Context, ch broadcast.Channel) (broadcast.Preview, error)
}

// ChannelOverview is the status of one broadcast channel.
type ChannelOverview struct {
	Reachable     int                  `json:"reachable"`
	Configured    bool                 `json:"configured"`
	Missing       []string             `json:"missing,omitempty"`
	LastBroadcast *models.BroadcastLog `json:"last_broadcast"`
}

// Overview is the JSON shape of GET /admin/overview.
type Overview struct {
	TotalRegistrants int                                    `json:"total_registrants"`
	Channels         map[broadcast.Channel]*ChannelOverview `json:"channels"`
}

// Handler handles GET /admin/overview.
type Handler struct {
	registrants RegistrantCounter
	logs        LatestLogs
	previews    ChannelPreviewer
	logger      *zap.Logger
}

// NewHandler creates a dashboard handler.
func NewHandler(registrants RegistrantCounter, logs LatestLogs, previews ChannelPreviewer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registrants: registrants, logs: logs, previews: previews, logger: logger}
}

// Get handles GET /admin/overview.
func (h *Handler) Get(c *gin.Context) {
	ov, err := h.Build(c.Request.Context())
	if err != nil {
		h.logger.Error("build overview failed", zap.Error(err))
		response.Internal(c, "failed to load overview")
		return
	}
	response.OK(c, ov)
}

// Build gathers the overview. Lookups run concurrently.
func (h *Handler) Build(ctx context.Context) (*Overview, error) {
	email := &ChannelOverview{}
	wa := &ChannelOverview{}
	ov := &Overview{Channels: map[broadcast.Channel]*ChannelOverview{
		broadcast.ChannelEmail:    email,
		broadcast.ChannelWhatsApp: wa,
	}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.TotalRegistrants, email.Reachable, wa.Reachable, err = h.registrants.CountReach(gctx)
		return err
	})
	for ch, co := range ov.Channels {
		g.Go(func() error {
			last, err := h.logs.Latest(gctx, string(ch))
			if err != nil {
				return err
			}
			co.LastBroadcast = last
			return nil
		})
		g.Go(func() error {
			p, err := h.previews.Preview(gctx, ch)
			if err != nil {
				return err
			}
			co.Configured, co.Missing = p.Configured, p.Missing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}
