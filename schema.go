package settings

import (
	"fmt"
	"sort"
)

// SchemaFormat identifies the representation a schema document carries.
type SchemaFormat string

const (
	// SchemaFormatDescriptors marks documents holding []FieldDescriptor.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI marks documents holding an OpenAPI payload.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument is a generated description of a resolved snapshot, stamped
// with the layer lineup it was derived from.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Layers   []SchemaLayer
}

// SchemaLayer describes one store layer included in a schema document.
// Position counts from the weakest layer, so the strongest layer has the
// highest position.
type SchemaLayer struct {
	Name     string         `json:"name"`
	Position int            `json:"position"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SchemaGenerator transforms a resolved snapshot into a schema document.
type SchemaGenerator interface {
	Generate(value any) (SchemaDocument, error)
}

// WithSchemaGenerator overrides the generator used by View.Schema.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *config) {
		cfg.schemaGenerator = generator
	}
}

// Schema describes the flattened snapshot using the configured generator,
// falling back to the descriptor generator.
func (v *View) Schema() (SchemaDocument, error) {
	generator := v.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	doc, err := generator.Generate(v.Snapshot())
	if err != nil {
		return SchemaDocument{}, err
	}
	doc.Layers = v.schemaLayers()
	return doc, nil
}

func (v *View) schemaLayers() []SchemaLayer {
	if len(v.store.layers) == 0 {
		return nil
	}
	out := make([]SchemaLayer, 0, len(v.store.layers))
	for at, layer := range v.store.layers {
		out = append(out, SchemaLayer{
			Name:     layer.Name,
			Position: at,
			Metadata: copyMetadata(layer.Metadata),
		})
	}
	return out
}

// FieldDescriptor describes a snapshot path and the inferred type.
type FieldDescriptor struct {
	Path string
	Type string
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema
// generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(value any) (SchemaDocument, error) {
	descriptors := deriveFieldDescriptors(value, nil)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// deriveFieldDescriptors walks a snapshot depth first, emitting one
// descriptor per leaf. Paths use JoinKey escaping so keys containing
// literal dots survive the round trip through Get and Inspect.
func deriveFieldDescriptors(value any, prefix []string) []FieldDescriptor {
	if value == nil {
		return nil
	}

	switch typed := value.(type) {
	case Fragment:
		if len(typed) == 0 {
			if len(prefix) == 0 {
				return nil
			}
			return []FieldDescriptor{{
				Path: JoinKey(prefix...),
				Type: "map[string]any",
			}}
		}
		keys := sortedKeys(typed)
		var fields []FieldDescriptor
		for _, key := range keys {
			next := make([]string, len(prefix)+1)
			copy(next, prefix)
			next[len(prefix)] = key
			fields = append(fields, deriveFieldDescriptors(typed[key], next)...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: JoinKey(prefix...),
			Type: "[]" + elementType,
		}}
	default:
		if len(prefix) == 0 {
			return nil
		}
		return []FieldDescriptor{{
			Path: JoinKey(prefix...),
			Type: typeName(typed),
		}}
	}
}

func sortedKeys(fragment Fragment) []string {
	keys := make([]string, 0, len(fragment))
	for key := range fragment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "nil"
	case unsetValue:
		return "unset"
	}
	return fmt.Sprintf("%T", value)
}
