package openapi

import (
	"fmt"
	"sort"
	"strings"
)

// documentAssembler turns a schema graph into a complete OpenAPI document:
// info block, a single request-body operation, and a components section fed
// by the registry's promotion decisions.
type documentAssembler struct {
	config   generatorConfig
	registry *componentRegistry
	root     *schemaNode
}

func newDocumentAssembler(config generatorConfig, registry *componentRegistry, root *schemaNode) *documentAssembler {
	return &documentAssembler{config: config, registry: registry, root: root}
}

func (a *documentAssembler) assemble() (map[string]any, error) {
	if a.root == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}

	schema := a.rootSchema()

	document := map[string]any{
		"openapi": a.config.openAPIVersion,
		"info":    a.infoBlock(),
		"paths":   a.pathsBlock(schema),
	}
	if components := a.registry.componentsMap(); components != nil {
		document["components"] = map[string]any{"schemas": components}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

// rootSchema renders the root either as a forced named component or as an
// inline payload whose shared subtrees may still be promoted.
func (a *documentAssembler) rootSchema() map[string]any {
	if name := a.config.rootComponent; name != "" {
		ref := a.registry.forceReference(name, a.root)
		a.promoteChildren(name, a.root)
		return map[string]any{"$ref": ref}
	}
	return a.render(a.root, "Root")
}

func (a *documentAssembler) infoBlock() map[string]any {
	info := map[string]any{
		"title":   a.config.info.Title,
		"version": a.config.info.Version,
	}
	if a.config.info.Description != "" {
		info["description"] = a.config.info.Description
	}
	return info
}

func (a *documentAssembler) pathsBlock(schema map[string]any) map[string]any {
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	responses := make(map[string]any, len(a.config.responses))
	for _, status := range sortedMapKeys(a.config.responses) {
		responses[status] = map[string]any{
			"description": a.config.responses[status].Description,
		}
	}

	operation := map[string]any{
		"operationId": a.operationID(),
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				a.config.contentType: map[string]any{"schema": schema},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(a.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}

	return map[string]any{
		a.config.operation.Path: map[string]any{
			a.method(): operation,
		},
	}
}

func (a *documentAssembler) method() string {
	if method := strings.ToLower(a.config.operation.Method); method != "" {
		return method
	}
	return "post"
}

func (a *documentAssembler) operationID() string {
	if a.config.operation.OperationID != "" {
		return a.config.operation.OperationID
	}
	return a.method() + ":" + a.config.operation.Path
}

// render emits the schema payload for node, replacing it with a $ref when
// the registry has promoted (or will promote) the subtree. Children are
// always visited so their occurrence counts accumulate.
func (a *documentAssembler) render(node *schemaNode, nameHint string) map[string]any {
	if node == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}

	if node.Type == "object" || node.Type == "array" {
		if ref := a.registry.register(nameHint, node); ref != "" {
			return map[string]any{"$ref": ref}
		}
	}

	out := node.scalarMap()
	if node.Type == "object" || len(node.Properties) > 0 {
		props := make(map[string]any, len(node.Properties))
		for _, key := range sortedPropertyNames(node.Properties) {
			props[key] = a.render(node.Properties[key], childComponentName(nameHint, key))
		}
		out["properties"] = props
	}
	if len(node.Required) > 0 {
		required := append([]string{}, node.Required...)
		sort.Strings(required)
		out["required"] = required
	}
	if node.Items != nil {
		out["items"] = a.render(node.Items, childComponentName(nameHint, "item"))
	}
	return out
}

// promoteChildren walks below a forced root component so shared subtrees
// under it still get their own component entries.
func (a *documentAssembler) promoteChildren(nameHint string, node *schemaNode) {
	if node == nil {
		return
	}
	for _, key := range sortedPropertyNames(node.Properties) {
		a.render(node.Properties[key], childComponentName(nameHint, key))
	}
	if node.Items != nil {
		a.render(node.Items, childComponentName(nameHint, "item"))
	}
}

func childComponentName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "Schema"
	}
	return strings.Join(kept, "_")
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// validateDocument checks the structural minimum an OpenAPI consumer needs:
// a version, a titled info block, and at least one operation with an id,
// request body content, and responses.
func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}

	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}

	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for path, raw := range paths {
		item, _ := raw.(map[string]any)
		if len(item) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", path)
		}
		for method, rawOp := range item {
			if err := validateOperation(method, path, rawOp); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOperation(method, path string, raw any) error {
	operation, _ := raw.(map[string]any)
	if operation == nil {
		return fmt.Errorf("openapi: operation %s %s invalid payload", method, path)
	}
	if _, ok := operation["operationId"].(string); !ok {
		return fmt.Errorf("openapi: operation %s %s missing operationId", method, path)
	}
	requestBody, _ := operation["requestBody"].(map[string]any)
	if requestBody == nil {
		return fmt.Errorf("openapi: operation %s %s missing requestBody", method, path)
	}
	if content, _ := requestBody["content"].(map[string]any); len(content) == 0 {
		return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, path)
	}
	if _, ok := operation["responses"].(map[string]any); !ok {
		return fmt.Errorf("openapi: operation %s %s missing responses", method, path)
	}
	return nil
}
