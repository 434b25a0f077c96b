package settings

import "errors"

// ErrDeriveNoChanges signals that Derive was called without any effective
// change.
var ErrDeriveNoChanges = errors.New("settings: derive requires at least one layer or option change")

// Derivation describes one change applied while deriving a view: either an
// options patch (any Option qualifies) or a layer insert or replace via
// WithLayer.
type Derivation interface {
	applyDerivation(*derivation)
}

type derivation struct {
	layers []Layer
	opts   []Option
}

// applyDerivation lets every Option double as a Derivation.
func (o Option) applyDerivation(d *derivation) {
	d.opts = append(d.opts, o)
}

type layerDerivation struct {
	layer Layer
}

func (l layerDerivation) applyDerivation(d *derivation) {
	d.layers = append(d.layers, l.layer)
}

// WithLayer adds a layer while deriving. A new name lands on top as the
// strongest layer; an existing name replaces that layer's fragment while
// keeping its precedence slot.
func WithLayer(name string, fragment Fragment, opts ...LayerOption) Derivation {
	return layerDerivation{layer: NewLayer(name, fragment, opts...)}
}

// Derive produces an independent view from v plus the given changes.
// Options patch the source view's configuration; unspecified options keep
// their current values, so a frozen parent derives a frozen child unless
// WithFreeze(false) is part of the changes. The receiver, its layers, and
// its configuration are never mutated.
func (v *View) Derive(changes ...Derivation) (*View, error) {
	var d derivation
	for _, change := range changes {
		if change == nil {
			continue
		}
		change.applyDerivation(&d)
	}
	if len(d.layers) == 0 && len(d.opts) == 0 {
		return nil, ErrDeriveNoChanges
	}
	store := v.store.clone()
	for _, layer := range d.layers {
		if err := store.insertOrReplace(layer); err != nil {
			return nil, err
		}
	}
	derived := &View{
		store: store,
		cfg:   applyOptions(v.cfg, d.opts),
	}
	derived.snapshot = buildSnapshot(derived.store, derived.cfg)
	return derived, nil
}
