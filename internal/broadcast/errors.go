package broadcast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is wrapped by ConfigurationError.
	ErrConfiguration = errors.New("broadcast channel not configured")
	// ErrEmptyAudience is returned when there are no registrants to notify.
	ErrEmptyAudience = errors.New("no registrants to notify")
	// ErrLogWrite is wrapped by LogWriteError.
	ErrLogWrite = errors.New("broadcast log write failed")
	// ErrBroadcastInProgress is returned when another run holds the channel lock.
	ErrBroadcastInProgress = errors.New("a broadcast is already running on this channel")
	// ErrUnknownChannel is returned for a channel name that is neither email nor whatsapp.
	ErrUnknownChannel = errors.New("unknown broadcast channel")
)

// ConfigurationError lists the credentials a channel is missing.
type ConfigurationError struct {
	Channel Channel
	Missing []string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Channel, e.Reason)
	}
	return fmt.Sprintf("%s: %s: missing %s", ErrConfiguration, e.Channel, strings.Join(e.Missing, ", "))
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// LogWriteError means every dispatch settled but the run left no durable record.
type LogWriteError struct {
	Err error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("%s: %v", ErrLogWrite, e.Err)
}

// Is matches ErrLogWrite so callers can use errors.Is without a type assertion.
func (e *LogWriteError) Is(target error) bool { return target == ErrLogWrite }

func (e *LogWriteError) Unwrap() error { return e.Err }
