package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// schemaNode is one vertex of the schema graph built from a snapshot or a
// hydration target type. It carries the OpenAPI scalar facets directly;
// composition happens through Properties and Items.
type schemaNode struct {
	Type             string
	Format           string
	Properties       map[string]*schemaNode
	Required         []string
	Items            *schemaNode
	Enum             []any
	Default          any
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MinLength        *int
	MaxLength        *int
	Pattern          string
}

func newObjectNode() *schemaNode {
	return &schemaNode{Type: "object", Properties: map[string]*schemaNode{}}
}

// scalarMap emits the node's non-structural facets.
func (n *schemaNode) scalarMap() map[string]any {
	out := map[string]any{}
	if n.Type != "" {
		out["type"] = n.Type
	}
	if n.Format != "" {
		out["format"] = n.Format
	}
	if n.Default != nil {
		out["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		out["enum"] = n.Enum
	}
	if n.Minimum != nil {
		out["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		out["maximum"] = *n.Maximum
	}
	if n.ExclusiveMinimum != nil {
		out["exclusiveMinimum"] = *n.ExclusiveMinimum
	}
	if n.ExclusiveMaximum != nil {
		out["exclusiveMaximum"] = *n.ExclusiveMaximum
	}
	if n.MinLength != nil {
		out["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		out["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		out["pattern"] = n.Pattern
	}
	return out
}

// inlineOpenAPI renders the node and everything under it as a plain schema
// payload without $ref indirection. Property and required names come out
// sorted so the payload is deterministic.
func (n *schemaNode) inlineOpenAPI() map[string]any {
	out := n.scalarMap()
	if n.Type == "object" || len(n.Properties) > 0 {
		props := make(map[string]any, len(n.Properties))
		for _, name := range sortedPropertyNames(n.Properties) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		out["properties"] = props
	}
	if len(n.Required) > 0 {
		required := append([]string{}, n.Required...)
		sort.Strings(required)
		out["required"] = required
	}
	if n.Items != nil {
		out["items"] = n.Items.inlineOpenAPI()
	}
	return out
}

// Digest fingerprints the rendered schema. Equivalent subtrees digest
// identically, which is what component promotion keys on.
func (n *schemaNode) Digest() string {
	data, err := json.Marshal(n.inlineOpenAPI())
	if err != nil {
		// The payload is maps, slices, and scalars only, so marshalling
		// cannot fail. Return an empty digest rather than panic.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedPropertyNames(props map[string]*schemaNode) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildSchemaGraph derives the schema graph for value, following both the
// runtime shape (map snapshots) and the static type (hydration structs,
// where tags carry constraint metadata).
func buildSchemaGraph(value any) (*schemaNode, error) {
	walker := &typeWalker{active: map[reflect.Type]bool{}}
	rv := reflect.ValueOf(value)
	var rt reflect.Type
	if rv.IsValid() {
		rt = rv.Type()
	}
	node, err := walker.walk(rv, rt)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return newObjectNode(), nil
	}
	if node.Type == "" {
		node.Type = "object"
	}
	if node.Type == "object" && node.Properties == nil {
		node.Properties = map[string]*schemaNode{}
	}
	return node, nil
}

// typeWalker tracks the struct types currently on the walk stack so
// self-referential types collapse to a bare object instead of recursing
// forever.
type typeWalker struct {
	active map[reflect.Type]bool
}

func (w *typeWalker) walk(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rt == nil {
		if !rv.IsValid() {
			return newObjectNode(), nil
		}
		rt = rv.Type()
	}

	// Unwrap pointers; a nil pointer still contributes its element type.
	for rt.Kind() == reflect.Pointer {
		if rv.IsValid() {
			if rv.IsNil() {
				rv = reflect.Value{}
			} else {
				rv = rv.Elem()
			}
		}
		rt = rt.Elem()
	}

	if rt.Kind() == reflect.Interface {
		if rv.IsValid() && !rv.IsNil() {
			elem := rv.Elem()
			return w.walk(elem, elem.Type())
		}
		return newObjectNode(), nil
	}

	if rt == reflect.TypeOf(time.Time{}) {
		return &schemaNode{Type: "string", Format: "date-time"}, nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return &schemaNode{Type: "boolean"}, nil
	case reflect.String:
		return &schemaNode{Type: "string"}, nil
	case reflect.Float32, reflect.Float64:
		return &schemaNode{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &schemaNode{Type: "integer"}, nil
	case reflect.Struct:
		return w.structNode(rv, rt)
	case reflect.Map:
		return w.mapNode(rv, rt)
	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
			return &schemaNode{Type: "string", Format: "byte"}, nil
		}
		return w.listNode(rv, rt)
	default:
		return &schemaNode{Type: "string", Format: "go:" + rt.String()}, nil
	}
}

func (w *typeWalker) structNode(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if w.active[rt] {
		return newObjectNode(), nil
	}
	w.active[rt] = true
	defer delete(w.active, rt)

	if !rv.IsValid() {
		rv = reflect.Zero(rt)
	}

	node := newObjectNode()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := parseFieldTag(field)
		if tag.skip {
			continue
		}

		var fieldValue reflect.Value
		if rv.IsValid() {
			fieldValue = rv.Field(i)
		}
		child, err := w.walk(fieldValue, field.Type)
		if err != nil {
			return nil, err
		}
		if err := decorateNode(child, field); err != nil {
			return nil, err
		}

		node.Properties[tag.name] = child
		if tag.required(field) {
			node.Required = append(node.Required, tag.name)
		}
	}
	return node, nil
}

func (w *typeWalker) mapNode(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rt.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rt.Key())
	}

	node := newObjectNode()
	if !rv.IsValid() || rv.Len() == 0 {
		return node, nil
	}

	keys := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		if key.Kind() != reflect.String {
			return nil, fmt.Errorf("openapi: map key kind %s unsupported", key.Kind())
		}
		keys = append(keys, key.String())
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := rv.MapIndex(reflect.ValueOf(key))
		child, err := w.walk(value, value.Type())
		if err != nil {
			return nil, err
		}
		node.Properties[key] = child
	}
	return node, nil
}

func (w *typeWalker) listNode(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	var elem reflect.Value
	if rv.IsValid() && rv.Len() > 0 {
		elem = rv.Index(0)
	} else {
		elem = reflect.Zero(rt.Elem())
	}
	items, err := w.walk(elem, rt.Elem())
	if err != nil {
		return nil, err
	}
	return &schemaNode{Type: "array", Items: items}, nil
}

type fieldTag struct {
	name      string
	omitEmpty bool
	skip      bool
}

func parseFieldTag(field reflect.StructField) fieldTag {
	tag := field.Tag.Get("json")
	if tag == "" {
		return fieldTag{name: field.Name}
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		return fieldTag{skip: true}
	}
	out := fieldTag{name: parts[0]}
	if out.name == "" {
		out.name = field.Name
	}
	for _, part := range parts[1:] {
		if part == "omitempty" {
			out.omitEmpty = true
		}
	}
	return out
}

// required reports whether the field belongs in the parent's required
// list. Pointers and omitempty fields are optional, everything else is
// required.
func (t fieldTag) required(field reflect.StructField) bool {
	if t.omitEmpty {
		return false
	}
	return field.Type.Kind() != reflect.Pointer
}

// decorateNode applies constraint tags to a field's node. Defaults and
// enums are coerced to the field's base type so the emitted document
// carries typed values, not strings.
func decorateNode(node *schemaNode, field reflect.StructField) error {
	base := field.Type
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	if format := field.Tag.Get("format"); format != "" {
		node.Format = format
	}
	if raw := field.Tag.Get("default"); raw != "" {
		value, err := coerceLiteral(base, raw)
		if err != nil {
			return fmt.Errorf("openapi: parse default for field %s: %w", field.Name, err)
		}
		node.Default = value
	}
	if raw := field.Tag.Get("enum"); raw != "" {
		values, err := coerceEnum(base, raw)
		if err != nil {
			return fmt.Errorf("openapi: parse enum for field %s: %w", field.Name, err)
		}
		node.Enum = values
	}

	if isNumericKind(base.Kind()) {
		bounds := []struct {
			tag    string
			target **float64
		}{
			{"minimum", &node.Minimum},
			{"maximum", &node.Maximum},
			{"exclusiveMinimum", &node.ExclusiveMinimum},
			{"exclusiveMaximum", &node.ExclusiveMaximum},
		}
		for _, bound := range bounds {
			raw := field.Tag.Get(bound.tag)
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("openapi: parse %s for field %s: %w", bound.tag, field.Name, err)
			}
			*bound.target = &value
		}
	}

	if base.Kind() == reflect.String {
		lengths := []struct {
			tag    string
			target **int
		}{
			{"minLength", &node.MinLength},
			{"maxLength", &node.MaxLength},
		}
		for _, bound := range lengths {
			raw := field.Tag.Get(bound.tag)
			if raw == "" {
				continue
			}
			value, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("openapi: parse %s for field %s: %w", bound.tag, field.Name, err)
			}
			*bound.target = &value
		}
		if pattern := field.Tag.Get("pattern"); pattern != "" {
			node.Pattern = pattern
		}
	}

	return nil
}

func coerceLiteral(t reflect.Type, raw string) (any, error) {
	switch t.Kind() {
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.ParseUint(raw, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, t.Bits())
	default:
		return raw, nil
	}
}

func coerceEnum(t reflect.Type, raw string) ([]any, error) {
	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := coerceLiteral(t, part)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func isNumericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
