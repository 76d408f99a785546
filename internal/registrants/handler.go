package registrants

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/response"
	"github.com/aura-workshop/backend/pkg/storage"
	"github.com/aura-workshop/backend/pkg/utils"
)

// ExportFilename is the download name of the CSV export.
const ExportFilename = "workshop_registrants.csv"

// ExportHeader is the first CSV row.
var ExportHeader = []string{"Full Name", "WhatsApp", "Email", "Organization", "Date Registered"}

// Store is the registrant persistence the handler needs.
type Store interface {
	Create(ctx context.Context, reg *models.Registrant) error
	Search(ctx context.Context, term string) ([]models.Registrant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registrant, error)
	Update(ctx context.Context, id uuid.UUID, u models.RegistrantUpdate) (*models.Registrant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExportStorage uploads exports and signs download links for them.
type ExportStorage interface {
	ExportsBucket() string
	PresignExpire() time.Duration
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// RegisterRequest is the body for POST /register.
type RegisterRequest struct {
	FullName       string `json:"full_name" binding:"required"`
	WhatsAppNumber string `json:"whatsapp_number" binding:"required"`
	Organization   string `json:"organization" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
}

// UpdateRequest is the body for PATCH /admin/registrants/:id. The id is not editable.
type UpdateRequest struct {
	FullName       *string `json:"full_name"`
	Email          *string `json:"email" binding:"omitempty,email"`
	WhatsAppNumber *string `json:"whatsapp_number"`
	Organization   *string `json:"organization"`
}

// Handler handles registrant HTTP endpoints.
type Handler struct {
	store   Store
	exports ExportStorage
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a registrants handler. A nil exports disables S3 export.
func NewHandler(store Store, exports ExportStorage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, exports: exports, logger: logger, now: time.Now}
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg := &models.Registrant{
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.TrimSpace(req.Email),
		WhatsAppNumber: strings.TrimSpace(req.WhatsAppNumber),
		Organization:   strings.TrimSpace(req.Organization),
	}
	if reg.FullName == "" || reg.WhatsAppNumber == "" || reg.Organization == "" {
		response.BadRequest(c, "full_name, whatsapp_number and organization must not be blank")
		return
	}
	if err := h.store.Create(c.Request.Context(), reg); err != nil {
		h.logger.Error("create registrant failed", zap.Error(err), zap.String("email", utils.RedactEmail(reg.Email)))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// List handles GET /admin/registrants?q=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.logger.Error("list registrants failed", zap.Error(err))
		response.Internal(c, "failed to list registrants")
		return
	}
	response.OK(c, gin.H{"registrants": list, "total": len(list)})
}

// Get handles GET /admin/registrants/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	reg, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load registrant")
		return
	}
	response.OK(c, reg)
}

// Update handles PATCH /admin/registrants/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u := models.RegistrantUpdate{
		FullName:       trimPtr(req.FullName),
		Email:          trimPtr(req.Email),
		WhatsAppNumber: trimPtr(req.WhatsAppNumber),
		Organization:   trimPtr(req.Organization),
	}
	if u.Empty() {
		response.BadRequest(c, "nothing to update")
		return
	}
	if blank := blankFields(u); len(blank) > 0 {
		response.BadRequest(c, strings.Join(blank, ", ")+" must not be blank")
		return
	}
	reg, err := h.store.Update(c.Request.Context(), id, u)
	if err != nil {
		h.writeError(c, err, "failed to update registrant")
		return
	}
	response.OK(c, reg)
}

// Delete handles DELETE /admin/registrants/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete registrant")
		return
	}
	response.NoContent(c)
}

// ExportCSV handles GET /admin/registrants/export.
func (h *Handler) ExportCSV(c *gin.Context) {
	list, err := h.store.Search(c.Request.Context(), "")
	if err != nil {
		h.logger.Error("export registrants failed", zap.Error(err))
		response.Internal(c, "failed to export registrants")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := WriteCSV(c.Writer, list); err != nil {
		h.logger.Error("write csv failed", zap.Error(err))
	}
}

// ExportToS3 handles POST /admin/registrants/export. It uploads the CSV to
// the exports bucket and returns a presigned download URL.
func (h *Handler) ExportToS3(c *gin.Context) {
	if h.exports == nil || h.exports.ExportsBucket() == "" {
		response.ServiceUnavailable(c, "export storage is not configured")
		return
	}
	ctx := c.Request.Context()
	list, err := h.store.Search(ctx, "")
	if err != nil {
		h.logger.Error("export registrants failed", zap.Error(err))
		response.Internal(c, "failed to export registrants")
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, list); err != nil {
		response.Internal(c, "failed to build export")
		return
	}
	bucket := h.exports.ExportsBucket()
	key := storage.ExportKey(h.now())
	if err := h.exports.Upload(ctx, bucket, key, storage.ContentTypeCSV, &buf); err != nil {
		h.logger.Error("upload export failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload export")
		return
	}
	expires := h.exports.PresignExpire()
	url, err := h.exports.GeneratePresignedDownloadURL(ctx, bucket, key, expires)
	if err != nil {
		h.logger.Error("presign export failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to sign export url")
		return
	}
	response.OK(c, gin.H{
		"url":        url,
		"key":        key,
		"rows":       len(list),
		"expires_at": h.now().Add(expires).UTC(),
	})
}

// WriteCSV writes the export header and one row per registrant.
func WriteCSV(w io.Writer, list []models.Registrant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range list {
		registered := "N/A"
		if !r.CreatedAt.IsZero() {
			registered = r.CreatedAt.Format("2006-01-02")
		}
		if err := cw.Write([]string{r.FullName, r.WhatsAppNumber, r.Email, r.Organization, registered}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	h.logger.Error(msg, zap.Error(err))
	response.Internal(c, msg)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registrant id")
		return uuid.Nil, false
	}
	return id, true
}

// blankFields lists the fields present in u that are empty. Every field is
// required at registration, so an edit may change a value but not clear it.
func blankFields(u models.RegistrantUpdate) []string {
	var blank []string
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"full_name", u.FullName},
		{"email", u.Email},
		{"whatsapp_number", u.WhatsAppNumber},
		{"organization", u.Organization},
	} {
		if f.v != nil && *f.v == "" {
			blank = append(blank, f.name)
		}
	}
	return blank
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
