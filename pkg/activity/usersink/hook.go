// Package usersink bridges settings activity events into a go-users
// ActivitySink so configuration changes land in the same audit trail as the
// rest of the application.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-settings/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Events missing a verb, object type, or object ID are dropped, matching the
// fan-out behaviour of activity.Hooks.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       recordData(normalized),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	return h.Sink.Log(ctx, record)
}

// recordData folds the event metadata plus the fields ActivityRecord has no
// column for into the record's data payload.
func recordData(event activity.Event) map[string]any {
	var data map[string]any
	if len(event.Metadata) > 0 {
		data = make(map[string]any, len(event.Metadata)+2)
		for key, value := range event.Metadata {
			data[key] = value
		}
	}
	if event.DefinitionCode != "" {
		if data == nil {
			data = map[string]any{}
		}
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		if data == nil {
			data = map[string]any{}
		}
		data["recipients"] = append([]string{}, event.Recipients...)
	}
	return data
}

// parseUUID tolerates non-UUID identifiers by mapping them to uuid.Nil;
// settings events frequently carry human-readable actor names.
func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
