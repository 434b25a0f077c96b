// Package openapi renders resolved settings snapshots as OpenAPI 3 schema
// payloads, either as a bare schema or as a complete document with info,
// paths, and reusable components.
package openapi

import (
	settings "github.com/goliatone/go-settings"
)

type generator struct{}

// NewGenerator constructs a generator that emits the snapshot schema on its
// own, without the surrounding document scaffolding.
func NewGenerator() settings.SchemaGenerator {
	return generator{}
}

// Option wires the OpenAPI schema generator into a resolved view.
func Option() settings.Option {
	return settings.WithSchemaGenerator(NewGenerator())
}

func (generator) Generate(value any) (settings.SchemaDocument, error) {
	root, err := buildSchemaGraph(value)
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	return settings.SchemaDocument{
		Format:   settings.SchemaFormatOpenAPI,
		Document: root.inlineOpenAPI(),
	}, nil
}

type documentGenerator struct {
	config generatorConfig
}

// NewDocumentGenerator constructs a generator that emits a complete OpenAPI
// document describing the snapshot as a request body, with shared subtrees
// promoted to components/schemas.
func NewDocumentGenerator(opts ...GeneratorOption) settings.SchemaGenerator {
	config := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}
	return documentGenerator{config: config}
}

// DocumentOption wires a document-emitting generator into a resolved view.
func DocumentOption(opts ...GeneratorOption) settings.Option {
	return settings.WithSchemaGenerator(NewDocumentGenerator(opts...))
}

func (g documentGenerator) Generate(value any) (settings.SchemaDocument, error) {
	root, err := buildSchemaGraph(value)
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	document, err := newDocumentAssembler(g.config, newComponentRegistry(), root).assemble()
	if err != nil {
		return settings.SchemaDocument{}, err
	}
	return settings.SchemaDocument{
		Format:   settings.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
