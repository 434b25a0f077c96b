// Package activity fans settings lifecycle events out to pluggable hooks:
// view resolution, derivation, layer replacement, and key reads can all be
// observed without coupling the resolver to any particular audit backend.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes a settings activity occurrence. Identifiers are plain
// strings so call sites stay decoupled from any particular ID scheme; sinks
// that need typed IDs parse them at the edge.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// deliverable reports whether the event carries the minimum identity a sink
// needs. Events that fail this check are silently dropped.
func (e Event) deliverable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a plain function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls the underlying function. A nil HookFunc is a no-op.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans one event out to every registered hook.
type Hooks []ActivityHook

// Enabled reports whether any hooks are registered.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event and delivers it to each hook in order. Every
// hook is attempted even when earlier ones fail; failures come back as a
// single joined error. Incomplete events are dropped without error.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if !normalized.deliverable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identity fields, copies the mutable parts so hooks
// cannot alias caller state, and stamps the current time when OccurredAt is
// zero.
func NormalizeEvent(event Event) Event {
	out := event
	out.Verb = strings.TrimSpace(event.Verb)
	out.ActorID = strings.TrimSpace(event.ActorID)
	out.UserID = strings.TrimSpace(event.UserID)
	out.TenantID = strings.TrimSpace(event.TenantID)
	out.ObjectType = strings.TrimSpace(event.ObjectType)
	out.ObjectID = strings.TrimSpace(event.ObjectID)
	out.Channel = strings.TrimSpace(event.Channel)
	out.DefinitionCode = strings.TrimSpace(event.DefinitionCode)

	out.Metadata = cloneMap(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = append([]string{}, event.Recipients...)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
