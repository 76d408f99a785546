package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-workshop/backend/internal/models"
)

type memStore struct {
	workshop models.WorkshopSettings
	email    models.EmailSettings
	whatsapp models.WhatsAppSettings
}

func (m *memStore) Workshop(context.Context) (models.WorkshopSettings, error) { return m.workshop, nil }
func (m *memStore) Email(context.Context) (models.EmailSettings, error)       { return m.email, nil }
func (m *memStore) WhatsApp(context.Context) (models.WhatsAppSettings, error) { return m.whatsapp, nil }

func (m *memStore) SaveWorkshop(_ context.Context, s *models.WorkshopSettings) error {
	m.workshop = *s
	return nil
}

func (m *memStore) SaveEmail(_ context.Context, s *models.EmailSettings) error {
	m.email = *s
	return nil
}

func (m *memStore) SaveWhatsApp(_ context.Context, s *models.WhatsAppSettings) error {
	m.whatsapp = *s
	return nil
}

type fakeBanners struct{ bucket string }

func (f fakeBanners) AssetsBucket() string         { return f.bucket }
func (f fakeBanners) PresignExpire() time.Duration { return time.Minute }
func (f fakeBanners) PublicObjectURL(bucket, key string) string {
	return "https://" + bucket + ".s3.example/" + key
}

func (f fakeBanners) GeneratePresignedUploadURL(_ context.Context, bucket, key, _ string, _ time.Duration) (string, error) {
	return "https://" + bucket + ".s3.example/" + key + "?X-Amz-Signature=1", nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/workshop", h.PublicWorkshop)
	r.GET("/admin/settings/workshop", h.GetWorkshop)
	r.PUT("/admin/settings/workshop", h.PutWorkshop)
	r.POST("/admin/settings/workshop/banner", h.BannerUploadURL)
	r.GET("/admin/settings/email", h.GetEmail)
	r.PUT("/admin/settings/email", h.PutEmail)
	r.GET("/admin/settings/whatsapp", h.GetWhatsApp)
	r.PUT("/admin/settings/whatsapp", h.PutWhatsApp)
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPublicWorkshop_HidesMeetingLink(t *testing.T) {
	store := &memStore{workshop: models.WorkshopSettings{Title: "Aura", Date: "2025-01-24", MeetingLink: "https://meet.example/secret", EmailBody: "x"}}
	r := setupRouter(NewHandler(store, nil, nil))

	w, env := do(r, http.MethodGet, "/workshop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Aura")
	assert.NotContains(t, string(env.Data), "meet.example")
	assert.NotContains(t, string(env.Data), "email_body")
}

func TestPutWorkshop(t *testing.T) {
	store := &memStore{}
	r := setupRouter(NewHandler(store, nil, nil))

	w, _ := do(r, http.MethodPut, "/admin/settings/workshop", `{"title":"Aura","date":"2025-01-24","time":"10:00","meeting_link":"https://meet.example/x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://meet.example/x", store.workshop.MeetingLink)
}

func TestEmailSettings_MaskAndKeepSecret(t *testing.T) {
	store := &memStore{email: models.EmailSettings{Provider: "emailjs", ServiceID: "svc", PublicKey: "pub", PrivateKey: "private-key-1234"}}
	r := setupRouter(NewHandler(store, nil, nil))

	_, env := do(r, http.MethodGet, "/admin/settings/email", "")
	var got models.EmailSettings
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "****1234", got.PrivateKey)
	assert.Equal(t, "pub", got.PublicKey)

	// Round-tripping the masked value keeps the stored secret.
	w, _ := do(r, http.MethodPut, "/admin/settings/email", `{"provider":"EmailJS","service_id":"svc2","template_id":"tpl","public_key":"pub","private_key":"****1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "private-key-1234", store.email.PrivateKey)
	assert.Equal(t, "svc2", store.email.ServiceID)
	assert.Equal(t, "emailjs", store.email.Provider)

	w, _ = do(r, http.MethodPut, "/admin/settings/email", `{"provider":"emailjs","private_key":"new-private-key-9999"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new-private-key-9999", store.email.PrivateKey)
}

func TestEmailSettings_RejectsUnknownProvider(t *testing.T) {
	r := setupRouter(NewHandler(&memStore{}, nil, nil))
	w, _ := do(r, http.MethodPut, "/admin/settings/email", `{"provider":"mailgun"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWhatsAppSettings_BlankTokenKeepsStored(t *testing.T) {
	store := &memStore{whatsapp: models.WhatsAppSettings{APIToken: "EAAG-long-token-abcd", PhoneNumberID: "1"}}
	r := setupRouter(NewHandler(store, nil, nil))

	w, env := do(r, http.MethodPut, "/admin/settings/whatsapp", `{"api_token":"","phone_number_id":"2","message_template":"Hi {{name}}"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EAAG-long-token-abcd", store.whatsapp.APIToken)
	assert.Equal(t, "2", store.whatsapp.PhoneNumberID)
	assert.NotContains(t, string(env.Data), "EAAG-long-token-abcd")
}

func TestBannerUploadURL(t *testing.T) {
	r := setupRouter(NewHandler(&memStore{}, fakeBanners{bucket: "aura-assets"}, nil))

	w, env := do(r, http.MethodPost, "/admin/settings/workshop/banner", `{"filename":"hero.png","content_type":"image/png"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		UploadURL string `json:"upload_url"`
		BannerURL string `json:"banner_url"`
		Key       string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.True(t, strings.HasPrefix(out.Key, "banners/"))
	assert.True(t, strings.HasSuffix(out.Key, ".png"))
	assert.Contains(t, out.UploadURL, out.Key)
	assert.Equal(t, "https://aura-assets.s3.example/"+out.Key, out.BannerURL)

	w, _ = do(r, http.MethodPost, "/admin/settings/workshop/banner", `{"filename":"clip.mp4","content_type":"video/mp4"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBannerUploadURL_NotConfigured(t *testing.T) {
	r := setupRouter(NewHandler(&memStore{}, nil, nil))
	w, _ := do(r, http.MethodPost, "/admin/settings/workshop/banner", `{"filename":"hero.png","content_type":"image/png"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
