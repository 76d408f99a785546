package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/utils"
)

// Orchestrator fans a rendered message out to every eligible registrant on one
// channel and records a single summary log entry per run.
type Orchestrator struct {
	transports  map[string]Transport
	logs        LogStore
	reporter    ErrorReporter
	logger      *zap.Logger
	maxParallel int
	now         func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMaxParallel bounds in-flight dispatches. Zero or less means no bound.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) { o.maxParallel = n }
}

// WithClock overrides time.Now for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithReporter sets the sink for operational failures.
func WithReporter(r ErrorReporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// NewOrchestrator creates an orchestrator over the given transports. A later
// transport with the same name replaces an earlier one.
func NewOrchestrator(logs LogStore, logger *zap.Logger, transports []Transport, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		transports: make(map[string]Transport, len(transports)),
		logs:       logs,
		logger:     logger,
		now:        time.Now,
	}
	for _, t := range transports {
		if t != nil {
			o.transports[t.Name()] = t
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.reporter == nil {
		o.reporter = NewZapReporter(logger)
	}
	return o
}

// CheckConfig fails with a *ConfigurationError when cfg cannot be sent with.
// It touches no store and no transport.
func (o *Orchestrator) CheckConfig(cfg Config) error {
	t, ok := o.transports[cfg.provider()]
	if !ok || t.Channel() != cfg.Channel {
		return &ConfigurationError{Channel: cfg.Channel, Reason: fmt.Sprintf("no %q transport registered", cfg.provider())}
	}
	if missing := cfg.Credentials.Missing(t.RequiredCredentials()); len(missing) > 0 {
		return &ConfigurationError{Channel: cfg.Channel, Missing: missing}
	}
	return nil
}

type dispatch struct {
	recipient models.Registrant
	contact   string
}

// Run broadcasts to recipients. It only fails for an unusable configuration
// or an empty audience; per-recipient failures are counted in the Result.
// When the final log append fails the Result is still returned, together with
// a *LogWriteError.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, recipients []models.Registrant) (Result, error) {
	if err := o.CheckConfig(cfg); err != nil {
		return Result{}, err
	}
	if len(recipients) == 0 {
		return Result{}, ErrEmptyAudience
	}
	transport := o.transports[cfg.provider()]

	res := Result{Channel: cfg.Channel}
	eligible := make([]dispatch, 0, len(recipients))
	for _, r := range recipients {
		contact := ContactFor(cfg.Channel, r)
		if contact == "" {
			res.Skipped++
			continue
		}
		eligible = append(eligible, dispatch{recipient: r, contact: contact})
	}
	res.Attempted = len(eligible)

	o.logger.Info("broadcast started",
		zap.String("channel", string(cfg.Channel)),
		zap.Int("recipients", len(recipients)),
		zap.Int("eligible", res.Attempted),
		zap.Int("skipped", res.Skipped),
	)
	start := time.Now()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if o.maxParallel > 0 {
		g.SetLimit(o.maxParallel)
	}
	for _, d := range eligible {
		g.Go(func() error {
			err := o.dispatchOne(ctx, transport, cfg, d)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.LastError = err.Error()
				res.Failures = append(res.Failures, Failure{RecipientID: d.recipient.ID, Error: err.Error()})
				return nil
			}
			res.SuccessCount++
			return nil
		})
	}
	_ = g.Wait()

	entry := &models.BroadcastLog{
		ID:           uuid.New(),
		Channel:      string(cfg.Channel),
		Type:         models.BroadcastTypeBulk,
		SentAt:       o.now().UTC(),
		SuccessCount: res.SuccessCount,
		Attempted:    res.Attempted,
		Skipped:      res.Skipped,
		EventDate:    cfg.EventDate,
		LastError:    res.LastError,
	}
	fields := []zap.Field{
		zap.String("channel", string(cfg.Channel)),
		zap.Int("success", res.SuccessCount),
		zap.Int("attempted", res.Attempted),
		zap.Int("skipped", res.Skipped),
		zap.String("outcome", string(res.Outcome())),
		zap.Duration("duration", time.Since(start)),
	}
	if err := o.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		lwErr := &LogWriteError{Err: err}
		o.reporter.Report(ctx, "broadcast_log_write_failed", lwErr, fields...)
		return res, lwErr
	}
	res.LogID = entry.ID

	if res.Failed() > 0 {
		o.logger.Warn("broadcast finished with failures", append(fields, zap.String("last_error", res.LastError))...)
	} else {
		o.logger.Info("broadcast finished", fields...)
	}
	return res, nil
}

func (o *Orchestrator) dispatchOne(ctx context.Context, t Transport, cfg Config, d dispatch) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("transport panic: %v", p)
		}
	}()
	vars := recipientVars(cfg, d.recipient.FullName, d.contact)
	msg := Message{
		RecipientID: d.recipient.ID,
		To:          d.contact,
		Name:        vars["name"],
		Subject:     Render(cfg.Subject, vars),
		Body:        Render(cfg.Template, vars),
		Vars:        vars,
		Credentials: cfg.Credentials,
	}
	if err := t.Send(ctx, msg); err != nil {
		o.logger.Debug("broadcast dispatch failed",
			zap.String("channel", string(cfg.Channel)),
			zap.String("recipient_id", d.recipient.ID.String()),
			zap.String("to", redactContact(cfg.Channel, d.contact)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func redactContact(ch Channel, contact string) string {
	if ch == ChannelEmail {
		return utils.RedactEmail(contact)
	}
	return utils.RedactPhone(contact)
}
