package activity

import (
	"context"
	"strings"
)

// Config holds the emission defaults usually supplied by application
// configuration.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter is the push side of activity delivery: it owns a hook set and the
// defaults applied to every event before fan-out.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter builds an emitter over the given hooks. Nil hooks are dropped
// up front; an emitter with no surviving hooks stays disabled regardless of
// configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}

	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "settings"
	}

	return &Emitter{
		hooks:   kept,
		enabled: cfg.Enabled && len(kept) > 0,
		channel: channel,
	}
}

// Enabled reports whether Emit will attempt delivery.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit fills in the default channel when the event has none, then fans the
// event out. Disabled emitters drop events without error.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
