// Package emailjs sends broadcast email through the EmailJS REST API.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/utils"
)

// DefaultBaseURL is the public EmailJS API.
const DefaultBaseURL = "https://api.emailjs.com"

const sendPath = "/api/v1.0/email/send"

// maxErrorBody caps how much of an error response ends up in the error text.
const maxErrorBody = 512

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Transport implements broadcast.Transport for EmailJS.
type Transport struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New creates an EmailJS transport. An empty baseURL means DefaultBaseURL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Transport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (t *Transport) Name() string { return models.EmailProviderEmailJS }

func (t *Transport) Channel() broadcast.Channel { return broadcast.ChannelEmail }

// RequiredCredentials are the keys EmailJS cannot send without. The private
// key is only needed when the account enforces it.
func (t *Transport) RequiredCredentials() []string {
	return []string{broadcast.CredServiceID, broadcast.CredTemplateID, broadcast.CredPublicKey}
}

// Send posts one email. The EmailJS template receives every render variable
// plus to_email, to_name, subject and message.
func (t *Transport) Send(ctx context.Context, msg broadcast.Message) error {
	params := make(map[string]string, len(msg.Vars)+4)
	for k, v := range msg.Vars {
		params[k] = v
	}
	params["to_email"] = msg.To
	params["to_name"] = msg.Name
	params["subject"] = msg.Subject
	params["message"] = msg.Body

	payload, err := json.Marshal(sendRequest{
		ServiceID:      msg.Credentials[broadcast.CredServiceID],
		TemplateID:     msg.Credentials[broadcast.CredTemplateID],
		UserID:         msg.Credentials[broadcast.CredPublicKey],
		AccessToken:    msg.Credentials[broadcast.CredPrivateKey],
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+sendPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("emailjs error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	t.logger.Debug("emailjs sent", zap.String("to", utils.RedactEmail(msg.To)))
	return nil
}
