package settings

import (
	"encoding/json"
)

// Inspection captures provenance for one key: the resolution outcome plus a
// per-layer breakdown ordered from the strongest layer to the weakest.
type Inspection struct {
	Key      string        `json:"key"`
	Resolved Resolved      `json:"resolved"`
	Layers   []LayerReport `json:"layers"`
}

// Resolved identifies the winning layer and the value it carries for the
// inspected key. Source names the strongest layer that satisfies the whole
// path on its own.
type Resolved struct {
	Value  any    `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
	Found  bool   `json:"found"`
}

// LayerReport details how a single layer contributes to an inspected key.
// Present means the key resolves inside that layer alone under the view's
// policy; Active marks the strongest present layer.
type LayerReport struct {
	Layer   string `json:"layer"`
	Value   any    `json:"value,omitempty"`
	Present bool   `json:"present"`
	Active  bool   `json:"active"`
}

// Inspect reports how key resolves across every layer. Each layer is probed
// on its own: Present means the full path resolves inside that single layer
// under the view's policy, and the strongest present layer is Active and
// supplies Resolved. Unlike Get, Inspect never merges partial objects across
// layers, so for nested keys it answers which one layer owns the nearest
// complete match.
func (v *View) Inspect(key string) Inspection {
	segments := SplitKey(key)
	inspection := Inspection{
		Key:    key,
		Layers: make([]LayerReport, 0, len(v.store.layers)),
	}
	for i := len(v.store.layers) - 1; i >= 0; i-- {
		layer := v.store.layers[i]
		report := LayerReport{Layer: layer.Name}
		raw, ok := walkPath(layer.Fragment, segments)
		if ok && v.cfg.accepts(raw) {
			report.Present = true
			report.Value = v.guard(raw)
			if !inspection.Resolved.Found {
				report.Active = true
				inspection.Resolved = Resolved{
					Value:  report.Value,
					Source: layer.Name,
					Found:  true,
				}
			}
		}
		inspection.Layers = append(inspection.Layers, report)
	}
	return inspection
}

// ToJSON serialises the inspection into JSON for logging or transport
// helpers.
func (i Inspection) ToJSON() ([]byte, error) {
	type alias Inspection
	return json.Marshal(alias(i))
}

// InspectionFromJSON deserialises a JSON payload that was previously
// generated via ToJSON.
func InspectionFromJSON(payload []byte) (Inspection, error) {
	type alias Inspection
	var inspection alias
	if err := json.Unmarshal(payload, &inspection); err != nil {
		return Inspection{}, err
	}
	return Inspection(inspection), nil
}

// Origin pairs a flattened snapshot path with the layer that supplied its
// value.
type Origin struct {
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// FlattenWithProvenance enumerates every leaf path of the flattened
// snapshot together with the layer that won it, sorted by path. Paths use
// JoinKey escaping, so they feed straight back into Get or Inspect.
func (v *View) FlattenWithProvenance() []Origin {
	descriptors := deriveFieldDescriptors(v.snapshot, nil)
	if len(descriptors) == 0 {
		return nil
	}
	out := make([]Origin, 0, len(descriptors))
	for _, descriptor := range descriptors {
		inspection := v.Inspect(descriptor.Path)
		out = append(out, Origin{
			Path:   descriptor.Path,
			Source: inspection.Resolved.Source,
			Value:  inspection.Resolved.Value,
		})
	}
	return out
}
