package settings

import "errors"

// Fragment is a partial configuration object contributed by one layer.
// Nested objects are plain map[string]any values, matching what
// encoding/json produces for JSON objects.
type Fragment = map[string]any

// Layer pairs a named source with the fragment it contributes. Construct
// layers with NewLayer so fragments are copied on the way in; a Layer never
// shares memory with caller-held maps.
type Layer struct {
	Name     string
	Fragment Fragment
	Metadata map[string]any
}

// LayerOption configures optional layer attributes.
type LayerOption func(*Layer)

// WithLayerMetadata annotates the layer with descriptive metadata such as
// the file or environment it was loaded from. The map is copied.
func WithLayerMetadata(metadata map[string]any) LayerOption {
	return func(layer *Layer) {
		if len(metadata) == 0 {
			return
		}
		layer.Metadata = copyMetadata(metadata)
	}
}

// NewLayer builds a layer around a deep copy of fragment. A nil fragment is
// valid and contributes nothing.
func NewLayer(name string, fragment Fragment, opts ...LayerOption) Layer {
	layer := Layer{
		Name:     name,
		Fragment: cloneFragment(fragment),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&layer)
	}
	return layer
}

func cloneLayer(layer Layer) Layer {
	return Layer{
		Name:     layer.Name,
		Fragment: cloneFragment(layer.Fragment),
		Metadata: copyMetadata(layer.Metadata),
	}
}

// ErrLayerNameRequired signals a layer with an empty name.
var ErrLayerNameRequired = errors.New("layer: name must be provided")

// Store is an ordered collection of named layers. Order is precedence:
// the first layer is the weakest, the last the strongest. Adding a layer
// whose name is already present replaces that layer's fragment in place,
// keeping its precedence slot; a new name appends on top.
type Store struct {
	layers []Layer
	index  map[string]int
}

// NewStore assembles a store from layers listed weakest first.
func NewStore(layers ...Layer) (*Store, error) {
	store := &Store{index: make(map[string]int, len(layers))}
	for _, layer := range layers {
		if err := store.insertOrReplace(layer); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *Store) insertOrReplace(layer Layer) error {
	if layer.Name == "" {
		return ErrLayerNameRequired
	}
	copied := cloneLayer(layer)
	if at, ok := s.index[layer.Name]; ok {
		s.layers[at] = copied
		return nil
	}
	s.index[layer.Name] = len(s.layers)
	s.layers = append(s.layers, copied)
	return nil
}

// clone duplicates the slot table while sharing layer fragments. Layers are
// value-immutable once inside a store, so sharing them is safe; callers that
// replace a slot assign a fresh Layer rather than mutating the shared one.
func (s *Store) clone() *Store {
	out := &Store{
		layers: make([]Layer, len(s.layers)),
		index:  make(map[string]int, len(s.index)),
	}
	copy(out.layers, s.layers)
	for name, at := range s.index {
		out.index[name] = at
	}
	return out
}

// Len reports the number of layers.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Names lists layer names from strongest to weakest, the order resolution
// consults them.
func (s *Store) Names() []string {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.layers))
	for i := len(s.layers) - 1; i >= 0; i-- {
		out = append(out, s.layers[i].Name)
	}
	return out
}

// Layers returns deep copies of the layers from strongest to weakest.
func (s *Store) Layers() []Layer {
	if s == nil || len(s.layers) == 0 {
		return nil
	}
	out := make([]Layer, 0, len(s.layers))
	for i := len(s.layers) - 1; i >= 0; i-- {
		out = append(out, cloneLayer(s.layers[i]))
	}
	return out
}
