// Package source assembles settings layers from named fragment providers,
// keeping the resolver itself free of any loading or persistence concerns.
package source

import (
	"context"
	"errors"
	"sync"

	settings "github.com/goliatone/go-settings"
)

// ErrProviderRequired signals an assembler without a provider.
var ErrProviderRequired = errors.New("source: provider is required")

// Meta describes where a fragment came from. Origin is free-form: a file
// path, an environment name, a URL.
type Meta struct {
	Origin string
	Extra  map[string]any
}

func (m Meta) asLayerMetadata() map[string]any {
	if m.Origin == "" && len(m.Extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(m.Extra)+1)
	for key, value := range m.Extra {
		out[key] = value
	}
	if m.Origin != "" {
		out["origin"] = m.Origin
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]any, len(meta.Extra))
	for key, value := range meta.Extra {
		out.Extra[key] = value
	}
	return out
}

// Provider supplies named configuration fragments. ok reports whether the
// provider knows the name at all; a nil fragment with ok true is a valid,
// empty contribution.
type Provider interface {
	Load(ctx context.Context, name string) (fragment settings.Fragment, meta Meta, ok bool, err error)
}

// MemoryProvider is a minimal in-memory Provider intended for tests and
// examples. Fragments are stored as given; cloning happens downstream when
// layers are constructed, so callers must not mutate a fragment after
// registering it.
type MemoryProvider struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	fragment settings.Fragment
	meta     Meta
}

// NewMemoryProvider constructs an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: map[string]memoryEntry{}}
}

// Register stores fragment under name, replacing any previous entry.
func (p *MemoryProvider) Register(name string, fragment settings.Fragment, meta Meta) {
	p.mu.Lock()
	p.entries[name] = memoryEntry{fragment: fragment, meta: cloneMeta(meta)}
	p.mu.Unlock()
}

// Load implements Provider.
func (p *MemoryProvider) Load(_ context.Context, name string) (settings.Fragment, Meta, bool, error) {
	p.mu.RLock()
	entry, ok := p.entries[name]
	p.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return entry.fragment, cloneMeta(entry.meta), true, nil
}
