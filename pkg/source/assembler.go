package source

import (
	"context"
	"fmt"

	settings "github.com/goliatone/go-settings"
)

// Assembler builds layer sets by loading named fragments in precedence
// order.
type Assembler struct {
	Provider Provider
}

// Assemble loads names listed weakest first, skipping names the provider
// does not know, and returns layers ready for settings.NewStore. Provider
// metadata lands on each layer via WithLayerMetadata.
func (a Assembler) Assemble(ctx context.Context, names ...string) ([]settings.Layer, error) {
	if a.Provider == nil {
		return nil, ErrProviderRequired
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("source: at least one layer name is required")
	}

	layers := make([]settings.Layer, 0, len(names))
	for _, name := range names {
		fragment, meta, ok, err := a.Provider.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("source: load %q: %w", name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, settings.NewLayer(name, fragment,
			settings.WithLayerMetadata(meta.asLayerMetadata())))
	}

	if len(layers) == 0 {
		return nil, fmt.Errorf("source: no fragments found for %v", names)
	}
	return layers, nil
}

// View assembles names and resolves them into a view in one step.
func (a Assembler) View(ctx context.Context, names []string, opts ...settings.Option) (*settings.View, error) {
	layers, err := a.Assemble(ctx, names...)
	if err != nil {
		return nil, err
	}
	return settings.New(layers, opts...)
}
