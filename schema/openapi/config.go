package openapi

import (
	"strings"
)

// generatorConfig carries everything the document generator needs beyond the
// snapshot itself: the info block, the single operation the schema hangs off,
// and the response templates.
type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      operationConfig
	contentType    string
	responses      map[string]responseConfig
	rootComponent  string
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Settings Schema",
			Version: "1.0.0",
		},
		operation: operationConfig{
			Path:        "/settings",
			Method:      "post",
			OperationID: "post:/settings",
		},
		contentType: "application/json",
		responses: map[string]responseConfig{
			"204": {Description: "OK"},
		},
	}
}

// GeneratorOption adjusts how the OpenAPI document generator renders its
// output. All options ignore empty inputs so callers can pass values straight
// from their own configuration.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the emitted OpenAPI version string. The
// default is 3.0.3.
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version != "" {
			cfg.openAPIVersion = version
		}
	}
}

// InfoOption sets optional fields on the info block.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the info block's description.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo sets the document title and version. Empty strings keep the
// current values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// OperationOption sets optional fields on the generated operation.
type OperationOption func(*operationConfig)

// WithOperationSummary sets the operation summary.
func WithOperationSummary(summary string) OperationOption {
	return func(operation *operationConfig) {
		operation.Summary = summary
	}
}

// WithOperation sets the path, method, and operationId for the generated
// document. The method is lowercased; empty strings keep the defaults.
func WithOperation(path, method, operationID string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path != "" {
			cfg.operation.Path = path
		}
		if method != "" {
			cfg.operation.Method = strings.ToLower(method)
		}
		if operationID != "" {
			cfg.operation.OperationID = operationID
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.operation)
			}
		}
	}
}

// WithContentType sets the request body content type.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType != "" {
			cfg.contentType = contentType
		}
	}
}

// ResponseOption sets optional fields on a response template.
type ResponseOption func(*responseConfig)

// WithResponse adds or updates the response template for a status code.
// Existing templates, including the default 204, are kept unless overridden.
func WithResponse(status, description string, opts ...ResponseOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		resp := cfg.responses[status]
		if description != "" {
			resp.Description = description
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&resp)
			}
		}
		cfg.responses[status] = resp
	}
}

// WithRootComponent publishes the root schema under components/schemas with
// the given name and references it from the request body.
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.rootComponent = name
	}
}
