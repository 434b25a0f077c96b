package settings

import (
	"errors"
	"fmt"
	"sort"
)

// ErrKeyNotFound is wrapped by the default not-found handler.
var ErrKeyNotFound = errors.New("settings: key not found")

// ErrNoLayers signals a write against a view with no layers to hold it.
var ErrNoLayers = errors.New("settings: store has no layers")

// View is a resolved, queryable window over a layer store. Reads consult a
// flattened snapshot for plain keys and walk the layers for dotted paths.
// Views are safe for concurrent readers; an unfrozen view being written
// with Set must not be read concurrently.
type View struct {
	store    *Store
	cfg      config
	snapshot Fragment
}

// New assembles a store from layers listed weakest first and resolves it.
func New(layers []Layer, opts ...Option) (*View, error) {
	store, err := NewStore(layers...)
	if err != nil {
		return nil, err
	}
	return store.Resolve(opts...)
}

// Resolve produces a view of the store under the supplied options. The view
// copies the store's layer table, so later derivations or writes never leak
// back into s.
func (s *Store) Resolve(opts ...Option) (*View, error) {
	if s == nil {
		return nil, fmt.Errorf("settings: store must not be nil")
	}
	view := &View{
		store: s.clone(),
		cfg:   applyOptions(defaultConfig(), opts),
	}
	view.snapshot = buildSnapshot(view.store, view.cfg)
	return view, nil
}

// Get resolves key, consulting the not-found handler when no layer
// satisfies it.
func (v *View) Get(key string) (any, error) {
	if value, ok := v.lookup(key); ok {
		return value, nil
	}
	return v.cfg.notFound(key)
}

// GetOr resolves key, returning fallback instead of engaging the
// not-found handler.
func (v *View) GetOr(key string, fallback any) any {
	if value, ok := v.lookup(key); ok {
		return value
	}
	return fallback
}

// Lookup probes key without fallback or handler. It reports absence the way
// a map read does, so callers can distinguish "unresolved" from "resolved
// to nil" before reaching for Get.
func (v *View) Lookup(key string) (any, bool) {
	return v.lookup(key)
}

func (v *View) lookup(key string) (any, bool) {
	segments := SplitKey(key)
	if len(segments) == 1 {
		value, ok := v.snapshot[segments[0]]
		if !ok {
			return nil, false
		}
		return v.guard(value), true
	}
	value, ok := resolveNested(v.store, v.cfg, segments)
	if !ok {
		return nil, false
	}
	return v.guard(value), true
}

// Keys lists the top-level keys that resolve under the current policy.
// Order is deterministic: layers strongest first, keys sorted within each
// layer, duplicates dropped on first sight.
func (v *View) Keys() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := len(v.store.layers) - 1; i >= 0; i-- {
		layer := v.store.layers[i]
		for _, name := range sortedKeys(layer.Fragment) {
			if _, dup := seen[name]; dup {
				continue
			}
			if !v.cfg.accepts(layer.Fragment[name]) {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// Len reports the number of layers behind the view.
func (v *View) Len() int {
	return v.store.Len()
}

// LayerNames lists the view's layer names from strongest to weakest.
func (v *View) LayerNames() []string {
	return v.store.Names()
}

// Snapshot returns the flattened object backing plain-key reads. Frozen
// views return a deep copy.
func (v *View) Snapshot() Fragment {
	if v.cfg.freeze {
		return cloneFragment(v.snapshot)
	}
	return v.snapshot
}

// Set writes value at key into the strongest layer of an unfrozen view.
// The write is copy-on-write: the touched layer is replaced with a copy, so
// views sharing layers with v, including those it derived, never observe
// the change. Frozen views refuse with ErrViewFrozen.
func (v *View) Set(key string, value any) error {
	if v.cfg.freeze {
		return fmt.Errorf("%w: cannot set %q", ErrViewFrozen, key)
	}
	if len(v.store.layers) == 0 {
		return ErrNoLayers
	}
	top := len(v.store.layers) - 1
	layer := cloneLayer(v.store.layers[top])
	if layer.Fragment == nil {
		layer.Fragment = Fragment{}
	}
	writePath(layer.Fragment, SplitKey(key), value)
	v.store.layers[top] = layer
	v.snapshot = buildSnapshot(v.store, v.cfg)
	return nil
}

// reservedNames are view operations that keep their meaning no matter what
// keys the layers define. Get, GetOr, and Lookup always treat their
// argument as a literal key, so configuration fields named after an
// operation stay reachable; the names themselves never resolve as fields
// of the view. "then" is reserved so promise-style probes of the view
// observe a plain absence instead of a callable.
var reservedNames = map[string]struct{}{
	"inspect": {},
	"derive":  {},
	"getAll":  {},
	"then":    {},
}

// Reserved reports whether name is claimed by a view operation.
func Reserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// ReservedNames lists the reserved operation names, sorted.
func ReservedNames() []string {
	out := make([]string, 0, len(reservedNames))
	for name := range reservedNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
