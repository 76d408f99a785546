// Package whatsapp sends broadcast messages through the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aura-workshop/backend/internal/broadcast"
	"github.com/aura-workshop/backend/pkg/utils"
)

const (
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.facebook.com"
	// DefaultAPIVersion is the Graph API version messages are sent with.
	DefaultAPIVersion = "v17.0"
	// DefaultRatePerSecond bounds sends across a whole broadcast.
	DefaultRatePerSecond = 20
)

// Options configures the transport.
type Options struct {
	BaseURL       string
	APIVersion    string
	RatePerSecond int
	Timeout       time.Duration
}

type textBody struct {
	Body string `json:"body"`
}

type messageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Transport implements broadcast.Transport for WhatsApp text messages.
type Transport struct {
	baseURL    string
	apiVersion string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a WhatsApp Cloud API transport.
func New(opts Options, logger *zap.Logger) *Transport {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = DefaultRatePerSecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiVersion: opts.APIVersion,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		logger:     logger,
	}
}

func (t *Transport) Name() string { return string(broadcast.ChannelWhatsApp) }

func (t *Transport) Channel() broadcast.Channel { return broadcast.ChannelWhatsApp }

func (t *Transport) RequiredCredentials() []string {
	return []string{broadcast.CredAPIToken, broadcast.CredPhoneNumberID}
}

// Send posts one text message. It waits for the rate limiter first, so a
// cancelled ctx fails the dispatch without calling the API.
func (t *Transport) Send(ctx context.Context, msg broadcast.Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	payload, err := json.Marshal(messageRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "text",
		Text:             textBody{Body: msg.Body},
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", t.baseURL, t.apiVersion, url.PathEscape(msg.Credentials[broadcast.CredPhoneNumberID]))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+msg.Credentials[broadcast.CredAPIToken])
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("whatsapp error %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("whatsapp error %d: failed to send WhatsApp message", resp.StatusCode)
	}
	t.logger.Debug("whatsapp sent", zap.String("to", utils.RedactPhone(msg.To)))
	return nil
}
