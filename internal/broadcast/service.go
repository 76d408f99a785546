package broadcast

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/distlock"
)

// RegistrantLister reads the full registrant set.
type RegistrantLister interface {
	ListAll(ctx context.Context) ([]models.Registrant, error)
}

// SettingsSource reads the settings documents a broadcast is configured by.
type SettingsSource interface {
	Workshop(ctx context.Context) (models.WorkshopSettings, error)
	Email(ctx context.Context) (models.EmailSettings, error)
	WhatsApp(ctx context.Context) (models.WhatsAppSettings, error)
}

// Service loads settings and registrants for a channel, holds the channel
// lock for the duration of the run and hands off to the Orchestrator.
type Service struct {
	orch        *Orchestrator
	settings    SettingsSource
	registrants RegistrantLister
	locks       distlock.Factory
	logger      *zap.Logger
}

// NewService creates a broadcast service. A nil locks factory disables
// cross-run serialization.
func NewService(orch *Orchestrator, settings SettingsSource, registrants RegistrantLister, locks distlock.Factory, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orch: orch, settings: settings, registrants: registrants, locks: locks, logger: logger}
}

// LockKey is the lock name guarding runs on ch.
func LockKey(ch Channel) string { return "broadcast:" + string(ch) }

// LoadConfig snapshots the channel configuration from the settings store.
func (s *Service) LoadConfig(ctx context.Context, ch Channel) (Config, error) {
	ws, err := s.settings.Workshop(ctx)
	if err != nil {
		return Config{}, fmt.Errorf("load workshop settings: %w", err)
	}
	switch ch {
	case ChannelEmail:
		es, err := s.settings.Email(ctx)
		if err != nil {
			return Config{}, fmt.Errorf("load email settings: %w", err)
		}
		return EmailConfig(ws, es), nil
	case ChannelWhatsApp:
		wa, err := s.settings.WhatsApp(ctx)
		if err != nil {
			return Config{}, fmt.Errorf("load whatsapp settings: %w", err)
		}
		return WhatsAppConfig(ws, wa), nil
	}
	return Config{}, ErrUnknownChannel
}

// Broadcast runs one broadcast on ch. The configuration is checked before
// any registrant is read. A concurrent run on the same channel fails with
// ErrBroadcastInProgress.
func (s *Service) Broadcast(ctx context.Context, ch Channel) (Result, error) {
	if _, err := ParseChannel(string(ch)); err != nil {
		return Result{}, err
	}
	if s.locks != nil {
		lock := s.locks(LockKey(ch))
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("acquire broadcast lock: %w", err)
		}
		if !ok {
			return Result{}, ErrBroadcastInProgress
		}
		stop := distlock.KeepAlive(ctx, lock, func(err error) {
			s.logger.Error("extend broadcast lock", zap.String("channel", string(ch)), zap.Error(err))
		})
		defer func() {
			stop()
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release broadcast lock", zap.String("channel", string(ch)), zap.Error(err))
			}
		}()
	}

	cfg, err := s.LoadConfig(ctx, ch)
	if err != nil {
		return Result{}, err
	}
	if err := s.orch.CheckConfig(cfg); err != nil {
		return Result{}, err
	}
	recipients, err := s.registrants.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list registrants: %w", err)
	}
	return s.orch.Run(ctx, cfg, recipients)
}

// Preview is the rendered message for a placeholder recipient plus the
// configuration status of the channel.
type Preview struct {
	Channel    Channel  `json:"channel"`
	Configured bool     `json:"configured"`
	Missing    []string `json:"missing,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body"`
}

// PreviewName stands in for the recipient name in previews.
const PreviewName = "[Participant Name]"

// Preview renders the channel template without sending anything.
func (s *Service) Preview(ctx context.Context, ch Channel) (Preview, error) {
	cfg, err := s.LoadConfig(ctx, ch)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{Channel: ch, Configured: true}
	if err := s.orch.CheckConfig(cfg); err != nil {
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			return Preview{}, err
		}
		p.Configured = false
		p.Missing = ce.Missing
	}
	vars := recipientVars(cfg, PreviewName, "")
	p.Subject = Render(cfg.Subject, vars)
	p.Body = Render(cfg.Template, vars)
	return p, nil
}
