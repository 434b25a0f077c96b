package activity

import (
	"strings"
	"time"
)

// LayerContext captures the layer a settings event relates to. Position is
// the layer's precedence slot counted from the weakest layer.
type LayerContext struct {
	Name     string
	Position int
	Metadata map[string]any
}

// ViewEventInput describes the common fields for settings lifecycle events.
type ViewEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Key            string
	ViewID         string
	OldValue       any
	NewValue       any
	Layer          LayerContext
	OccurredAt     time.Time
}

// BuildViewResolvedEvent constructs a normalized event for a store being
// resolved into a view.
func BuildViewResolvedEvent(input ViewEventInput) Event {
	return buildViewEvent("settings.view.resolved", "settings.view", input)
}

// BuildViewDerivedEvent constructs a normalized event for a view derivation.
func BuildViewDerivedEvent(input ViewEventInput) Event {
	return buildViewEvent("settings.view.derived", "settings.view", input)
}

// BuildLayerReplacedEvent constructs an event describing a layer replacing
// an existing slot or landing on top of the store.
func BuildLayerReplacedEvent(input ViewEventInput) Event {
	return buildViewEvent("settings.layer.replaced", "settings.layer", input)
}

// BuildKeyUpdatedEvent constructs an event describing a key write through
// an unfrozen view.
func BuildKeyUpdatedEvent(input ViewEventInput) Event {
	return buildViewEvent("settings.key.updated", "settings.key", input)
}

func buildViewEvent(verb, objectType string, input ViewEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Key != "" {
		metadata = ensureMetadata(metadata)
		metadata["key"] = input.Key
	}
	if input.Layer.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["layer_name"] = input.Layer.Name
		metadata["layer_position"] = input.Layer.Position
		if len(input.Layer.Metadata) > 0 {
			metadata["layer_metadata"] = cloneMap(input.Layer.Metadata)
		}
	}
	if input.ViewID != "" {
		metadata = ensureMetadata(metadata)
		metadata["view_id"] = input.ViewID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Key)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Layer.Name)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.ViewID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
