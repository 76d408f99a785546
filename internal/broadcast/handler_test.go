package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-workshop/backend/internal/middleware"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/queue"
)

type fakeRunner struct {
	res   Result
	err   error
	calls int
}

func (f *fakeRunner) Broadcast(_ context.Context, ch Channel) (Result, error) {
	f.calls++
	f.res.Channel = ch
	return f.res, f.err
}

func (f *fakeRunner) Preview(_ context.Context, ch Channel) (Preview, error) {
	return Preview{Channel: ch, Configured: true, Body: "Hi [Participant Name]"}, nil
}

type fakeEnqueuer struct {
	payloads []queue.BroadcastPayload
}

func (f *fakeEnqueuer) EnqueueBroadcast(_ context.Context, p queue.BroadcastPayload) (string, error) {
	f.payloads = append(f.payloads, p)
	return "job-42", nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(h *Handler, admin uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextAdminID, admin)
		c.Next()
	})
	r.POST("/admin/broadcasts/:channel", h.Send)
	r.GET("/admin/broadcasts/:channel/preview", h.Preview)
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

func TestHandler_SendRequiresConfirmation(t *testing.T) {
	runner := &fakeRunner{}
	r := setupRouter(NewHandler(runner, nil, nil), uuid.New())

	for _, body := range []string{``, `{}`, `{"confirm":false}`} {
		w, _ := do(r, http.MethodPost, "/admin/broadcasts/email", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Equal(t, 0, runner.calls)
}

func TestHandler_SendReturnsResult(t *testing.T) {
	runner := &fakeRunner{res: Result{SuccessCount: 2, Attempted: 3, Skipped: 2, LastError: "invalid recipient"}}
	r := setupRouter(NewHandler(runner, nil, nil), uuid.New())

	w, env := do(r, http.MethodPost, "/admin/broadcasts/dm", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out SendResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, ChannelWhatsApp, out.Channel)
	assert.Equal(t, 2, out.SuccessCount)
	assert.Equal(t, OutcomePartialSuccess, out.Outcome)
	assert.True(t, out.LogWritten)
}

func TestHandler_SendErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unconfigured", &ConfigurationError{Channel: ChannelEmail, Missing: []string{"public_key"}}, http.StatusBadRequest},
		{"empty audience", ErrEmptyAudience, http.StatusUnprocessableEntity},
		{"in progress", ErrBroadcastInProgress, http.StatusConflict},
		{"store outage", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(NewHandler(&fakeRunner{err: tt.err}, nil, nil), uuid.New())
			w, env := do(r, http.MethodPost, "/admin/broadcasts/email", `{"confirm":true}`)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestHandler_SendConfigurationErrorListsMissing(t *testing.T) {
	runner := &fakeRunner{err: &ConfigurationError{Channel: ChannelEmail, Missing: []string{"service_id", "public_key"}}}
	r := setupRouter(NewHandler(runner, nil, nil), uuid.New())

	_, env := do(r, http.MethodPost, "/admin/broadcasts/email", `{"confirm":true}`)
	var data struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []string{"service_id", "public_key"}, data.Missing)
}

func TestHandler_SendLogWriteFailureStillReportsResult(t *testing.T) {
	runner := &fakeRunner{res: Result{SuccessCount: 1, Attempted: 1}, err: &LogWriteError{Err: errors.New("timeout")}}
	r := setupRouter(NewHandler(runner, nil, nil), uuid.New())

	w, env := do(r, http.MethodPost, "/admin/broadcasts/email", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out SendResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.SuccessCount)
	assert.False(t, out.LogWritten)
	assert.NotEmpty(t, out.Warning)
}

func TestHandler_SendAsync(t *testing.T) {
	admin := uuid.New()
	runner := &fakeRunner{}
	q := &fakeEnqueuer{}
	r := setupRouter(NewHandler(runner, q, nil), admin)

	w, env := do(r, http.MethodPost, "/admin/broadcasts/whatsapp?async=true", `{"confirm":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(env.Data), "job-42")
	assert.Equal(t, 0, runner.calls)
	require.Len(t, q.payloads, 1)
	assert.Equal(t, "whatsapp", q.payloads[0].Channel)
	assert.Equal(t, admin, q.payloads[0].RequestedBy)
}

func TestHandler_SendAsyncWithoutQueue(t *testing.T) {
	r := setupRouter(NewHandler(&fakeRunner{}, nil, nil), uuid.New())
	w, _ := do(r, http.MethodPost, "/admin/broadcasts/email?async=1", `{"confirm":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_UnknownChannel(t *testing.T) {
	r := setupRouter(NewHandler(&fakeRunner{}, nil, nil), uuid.New())
	w, _ := do(r, http.MethodPost, "/admin/broadcasts/sms", `{"confirm":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Preview(t *testing.T) {
	r := setupRouter(NewHandler(&fakeRunner{}, nil, nil), uuid.New())
	w, env := do(r, http.MethodGet, "/admin/broadcasts/email/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	var p Preview
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, ChannelEmail, p.Channel)
	assert.Equal(t, "Hi [Participant Name]", p.Body)
}

func TestHandler_SendSurvivesClientDisconnect(t *testing.T) {
	email, wa := serviceTransports()
	wa.honorCtx = true
	logs := &fakeLogStore{}
	orch := NewOrchestrator(logs, nil, []Transport{email, wa})
	lister := &fakeLister{registrants: []models.Registrant{
		reg("Asha", "a@example.com", "15550001000"),
		reg("Ben", "b@example.com", "15550002000"),
		reg("Chidi", "c@example.com", "15550003000"),
	}}
	svc := NewService(orch, configuredSettings(), lister, nil, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin/broadcasts/:channel", func(c *gin.Context) {
		ctx, cancel := context.WithCancel(c.Request.Context())
		cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, NewHandler(svc, nil, nil).Send)

	w, env := do(r, http.MethodPost, "/admin/broadcasts/whatsapp", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out SendResponse
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 3, out.Attempted)
	assert.Equal(t, 3, out.SuccessCount)
	assert.Empty(t, out.LastError)
	assert.Equal(t, OutcomeFullSuccess, out.Outcome)
	assert.Len(t, wa.sent(), 3)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, 3, logs.entries[0].SuccessCount)
}
