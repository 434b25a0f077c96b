package settings

// LayerValue pairs a layer name with that layer's own value for a key.
type LayerValue struct {
	Layer string `json:"layer"`
	Value any    `json:"value"`
}

// GetAll collects every layer's value for key, strongest layer first,
// without merging and without stopping at the first match. Layers where the
// key does not resolve, or whose value the policy rejects, are omitted. An
// unsatisfied key yields an empty slice rather than an error.
func (v *View) GetAll(key string) []LayerValue {
	segments := SplitKey(key)
	out := make([]LayerValue, 0, len(v.store.layers))
	for i := len(v.store.layers) - 1; i >= 0; i-- {
		layer := v.store.layers[i]
		value, ok := walkPath(layer.Fragment, segments)
		if !ok || !v.cfg.accepts(value) {
			continue
		}
		out = append(out, LayerValue{Layer: layer.Name, Value: v.guard(value)})
	}
	return out
}
