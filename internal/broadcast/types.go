package broadcast

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/aura-workshop/backend/internal/models"
)

// Channel identifies an outbound transport.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// ParseChannel maps a path or payload value to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelWhatsApp, "direct-message", "dm":
		return ChannelWhatsApp, nil
	}
	return "", ErrUnknownChannel
}

// ContactFor returns the registrant's contact field for the channel, trimmed.
// An empty result means the registrant is not eligible.
func ContactFor(ch Channel, r models.Registrant) string {
	switch ch {
	case ChannelEmail:
		return strings.TrimSpace(r.Email)
	case ChannelWhatsApp:
		return strings.TrimSpace(r.WhatsAppNumber)
	}
	return ""
}

// Credentials are opaque provider secrets keyed by name.
type Credentials map[string]string

// Missing returns the required keys that are absent or blank, in the order given.
func (c Credentials) Missing(required []string) []string {
	var missing []string
	for _, k := range required {
		if strings.TrimSpace(c[k]) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Config is the snapshot of channel settings a run renders and sends with.
type Config struct {
	Channel Channel
	// Provider selects the transport; empty means the channel name.
	Provider     string
	Credentials  Credentials
	Subject      string
	Template     string
	Context      map[string]string
	FallbackName string
	// EventDate is stored on the log entry.
	EventDate string
}

// Message is one rendered, addressed dispatch.
type Message struct {
	RecipientID uuid.UUID
	To          string
	Name        string
	Subject     string
	Body        string
	Vars        map[string]string
	Credentials Credentials
}

func (c Config) provider() string {
	if c.Provider != "" {
		return c.Provider
	}
	return string(c.Channel)
}

// Transport delivers a single message on one channel.
type Transport interface {
	// Name is the provider key a Config selects the transport by.
	Name() string
	Channel() Channel
	RequiredCredentials() []string
	Send(ctx context.Context, msg Message) error
}

// LogStore persists broadcast summaries.
type LogStore interface {
	Append(ctx context.Context, entry *models.BroadcastLog) error
}

// Failure is a recipient whose dispatch failed.
type Failure struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Error       string    `json:"error"`
}

// Outcome classifies a Result for presentation.
type Outcome string

const (
	OutcomeFullSuccess    Outcome = "full_success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeTotalFailure   Outcome = "total_failure"
	OutcomeNoneAttempted  Outcome = "none_attempted"
)

// Result is the aggregate of one broadcast run.
type Result struct {
	Channel      Channel   `json:"channel"`
	SuccessCount int       `json:"success_count"`
	Attempted    int       `json:"attempted"`
	Skipped      int       `json:"skipped"`
	LastError    string    `json:"last_error,omitempty"`
	Failures     []Failure `json:"failures,omitempty"`
	LogID        uuid.UUID `json:"log_id"`
}

// Failed is the number of attempted recipients that were not notified.
func (r Result) Failed() int { return r.Attempted - r.SuccessCount }

// Outcome reports full, partial or total success.
func (r Result) Outcome() Outcome {
	switch {
	case r.Attempted == 0:
		return OutcomeNoneAttempted
	case r.SuccessCount == r.Attempted:
		return OutcomeFullSuccess
	case r.SuccessCount == 0:
		return OutcomeTotalFailure
	default:
		return OutcomePartialSuccess
	}
}
