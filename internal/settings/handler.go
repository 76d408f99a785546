package settings

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/middleware"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/response"
	"github.com/aura-workshop/backend/pkg/storage"
	"github.com/aura-workshop/backend/pkg/utils"
)

// Store reads and writes the settings documents.
type Store interface {
	Workshop(ctx context.Context) (models.WorkshopSettings, error)
	Email(ctx context.Context) (models.EmailSettings, error)
	WhatsApp(ctx context.Context) (models.WhatsAppSettings, error)
	SaveWorkshop(ctx context.Context, s *models.WorkshopSettings) error
	SaveEmail(ctx context.Context, s *models.EmailSettings) error
	SaveWhatsApp(ctx context.Context, s *models.WhatsAppSettings) error
}

// BannerStorage signs direct uploads of banner images.
type BannerStorage interface {
	AssetsBucket() string
	PresignExpire() time.Duration
	GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	PublicObjectURL(bucket, key string) string
}

// BannerUploadRequest is the body for POST /admin/settings/workshop/banner.
type BannerUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Handler handles settings HTTP endpoints.
type Handler struct {
	store   Store
	banners BannerStorage
	logger  *zap.Logger
}

// NewHandler creates a settings handler. A nil banners disables banner uploads.
func NewHandler(store Store, banners BannerStorage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, banners: banners, logger: logger}
}

// PublicWorkshop handles GET /workshop.
func (h *Handler) PublicWorkshop(c *gin.Context) {
	ws, err := h.store.Workshop(c.Request.Context())
	if err != nil {
		h.logger.Error("load workshop settings failed", zap.Error(err))
		response.Internal(c, "failed to load workshop")
		return
	}
	response.OK(c, ws.Public())
}

// GetWorkshop handles GET /admin/settings/workshop.
func (h *Handler) GetWorkshop(c *gin.Context) {
	ws, err := h.store.Workshop(c.Request.Context())
	if err != nil {
		h.logger.Error("load workshop settings failed", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, ws)
}

// PutWorkshop handles PUT /admin/settings/workshop.
func (h *Handler) PutWorkshop(c *gin.Context) {
	var ws models.WorkshopSettings
	if err := c.ShouldBindJSON(&ws); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.store.SaveWorkshop(c.Request.Context(), &ws); err != nil {
		h.logger.Error("save workshop settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	response.OK(c, ws)
}

// GetEmail handles GET /admin/settings/email. Secrets are masked.
func (h *Handler) GetEmail(c *gin.Context) {
	es, err := h.store.Email(c.Request.Context())
	if err != nil {
		h.logger.Error("load email settings failed", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, maskEmail(es))
}

// PutEmail handles PUT /admin/settings/email. Blank or masked secrets keep
// the stored value.
func (h *Handler) PutEmail(c *gin.Context) {
	var in models.EmailSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	switch in.Provider {
	case "", models.EmailProviderEmailJS, models.EmailProviderSES:
	default:
		response.BadRequest(c, "provider must be emailjs or ses")
		return
	}
	ctx := c.Request.Context()
	cur, err := h.store.Email(ctx)
	if err != nil {
		h.logger.Error("load email settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	in.PrivateKey = keepSecret(in.PrivateKey, cur.PrivateKey)
	in.SecretAccessKey = keepSecret(in.SecretAccessKey, cur.SecretAccessKey)
	if err := h.store.SaveEmail(ctx, &in); err != nil {
		h.logger.Error("save email settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	h.logger.Info("email settings updated", zap.String("provider", in.Provider), zap.String("by", adminID(c)))
	response.OK(c, maskEmail(in))
}

// GetWhatsApp handles GET /admin/settings/whatsapp. The API token is masked.
func (h *Handler) GetWhatsApp(c *gin.Context) {
	wa, err := h.store.WhatsApp(c.Request.Context())
	if err != nil {
		h.logger.Error("load whatsapp settings failed", zap.Error(err))
		response.Internal(c, "failed to load settings")
		return
	}
	response.OK(c, maskWhatsApp(wa))
}

// PutWhatsApp handles PUT /admin/settings/whatsapp.
func (h *Handler) PutWhatsApp(c *gin.Context) {
	var in models.WhatsAppSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	cur, err := h.store.WhatsApp(ctx)
	if err != nil {
		h.logger.Error("load whatsapp settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	in.APIToken = keepSecret(in.APIToken, cur.APIToken)
	if err := h.store.SaveWhatsApp(ctx, &in); err != nil {
		h.logger.Error("save whatsapp settings failed", zap.Error(err))
		response.Internal(c, "failed to save settings")
		return
	}
	h.logger.Info("whatsapp settings updated", zap.String("by", adminID(c)))
	response.OK(c, maskWhatsApp(in))
}

// BannerUploadURL handles POST /admin/settings/workshop/banner. It returns a
// presigned PUT URL and the public URL to store as banner_url afterwards.
func (h *Handler) BannerUploadURL(c *gin.Context) {
	if h.banners == nil || h.banners.AssetsBucket() == "" {
		response.ServiceUnavailable(c, "banner storage is not configured")
		return
	}
	var req BannerUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateBannerType(req.ContentType, req.Filename) {
		response.BadRequest(c, "banner must be a jpeg, png, webp or gif image")
		return
	}
	bucket := h.banners.AssetsBucket()
	key := storage.BannerKey(uuid.New().String(), req.Filename)
	url, err := h.banners.GeneratePresignedUploadURL(c.Request.Context(), bucket, key, req.ContentType, h.banners.PresignExpire())
	if err != nil {
		h.logger.Error("presign banner upload failed", zap.Error(err))
		response.Internal(c, "failed to sign upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url": url,
		"banner_url": h.banners.PublicObjectURL(bucket, key),
		"key":        key,
	})
}

func keepSecret(in, stored string) string {
	if utils.IsMasked(in) {
		return stored
	}
	return strings.TrimSpace(in)
}

func maskEmail(es models.EmailSettings) models.EmailSettings {
	es.PrivateKey = utils.MaskSecret(es.PrivateKey)
	es.SecretAccessKey = utils.MaskSecret(es.SecretAccessKey)
	return es
}

func maskWhatsApp(wa models.WhatsAppSettings) models.WhatsAppSettings {
	wa.APIToken = utils.MaskSecret(wa.APIToken)
	return wa
}

func adminID(c *gin.Context) string {
	if v, ok := c.Get(middleware.ContextAdminID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id.String()
		}
	}
	return ""
}
