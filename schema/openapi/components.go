package openapi

import (
	"regexp"
	"strconv"
	"strings"
)

// componentRegistry deduplicates schema payloads by digest. A subtree is
// promoted to components/schemas once it is seen twice, or immediately when
// forced; until then callers inline it.
type componentRegistry struct {
	byDigest map[string]*componentEntry
	taken    map[string]struct{}
}

// componentEntry tracks one distinct schema payload. The name is fixed at
// first sighting; later hints for the same digest are ignored.
type componentEntry struct {
	name      string
	schema    map[string]any
	sightings int
	forced    bool
}

func (e *componentEntry) promoted() bool {
	return e.forced || e.sightings >= 2
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byDigest: map[string]*componentEntry{},
		taken:    map[string]struct{}{},
	}
}

// register records one sighting of node and returns a $ref target once the
// node has been promoted, or "" while it should still be inlined.
func (r *componentRegistry) register(nameHint string, node *schemaNode) string {
	return r.record(nameHint, node, false)
}

// forceReference promotes node unconditionally, reserving name on first use.
func (r *componentRegistry) forceReference(name string, node *schemaNode) string {
	return r.record(name, node, true)
}

func (r *componentRegistry) record(nameHint string, node *schemaNode, force bool) string {
	if node == nil {
		return ""
	}
	digest := node.Digest()
	if digest == "" {
		return ""
	}

	entry := r.byDigest[digest]
	if entry == nil {
		entry = &componentEntry{name: r.claimName(nameHint)}
		r.byDigest[digest] = entry
	}
	entry.sightings++
	entry.forced = entry.forced || force

	if !entry.promoted() {
		return ""
	}
	if entry.schema == nil {
		entry.schema = node.inlineOpenAPI()
	}
	return "#/components/schemas/" + entry.name
}

// claimName sanitizes the hint and appends a numeric suffix until the name
// is unused.
func (r *componentRegistry) claimName(hint string) string {
	base := sanitizeComponentName(hint)
	if base == "" {
		base = "Schema"
	}
	name := base
	for suffix := 1; ; suffix++ {
		if _, exists := r.taken[name]; !exists {
			r.taken[name] = struct{}{}
			return name
		}
		name = base + strconv.Itoa(suffix)
	}
}

// componentsMap returns the promoted components, or nil when nothing was
// promoted so the document can omit its components section.
func (r *componentRegistry) componentsMap() map[string]any {
	out := map[string]any{}
	for _, entry := range r.byDigest {
		if !entry.promoted() {
			continue
		}
		schema := entry.schema
		if schema == nil {
			schema = map[string]any{}
		}
		out[entry.name] = schema
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var componentNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// sanitizeComponentName rewrites name into the character set OpenAPI allows
// for component keys, prefixing an underscore when it would start with a
// digit.
func sanitizeComponentName(name string) string {
	name = componentNamePattern.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
