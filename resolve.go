package settings

// buildSnapshot folds the store's layers from weakest to strongest into a
// single flattened object. Nested maps deep-merge key by key; any other
// value, slices included, replaces the slot wholesale. Values the policy
// rejects are transparent at every depth. The snapshot owns all of its
// memory: nothing in it aliases a layer fragment.
func buildSnapshot(store *Store, cfg config) Fragment {
	snapshot := Fragment{}
	for _, layer := range store.layers {
		mergeFragment(snapshot, layer.Fragment, cfg)
	}
	return snapshot
}

func mergeFragment(dst, src Fragment, cfg config) {
	for key, value := range src {
		if !cfg.accepts(value) {
			continue
		}
		if srcMap, ok := value.(Fragment); ok {
			dstMap, ok := dst[key].(Fragment)
			if !ok {
				dstMap = Fragment{}
				dst[key] = dstMap
			}
			mergeFragment(dstMap, srcMap, cfg)
			continue
		}
		dst[key] = cloneAny(value)
	}
}

// walkPath follows segments through a single fragment. The walk fails when
// any intermediate value is not an object or a segment is missing.
func walkPath(fragment Fragment, segments []string) (any, bool) {
	var current any = fragment
	for _, segment := range segments {
		node, ok := current.(Fragment)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// resolveNested merges one nested key across layers at read time, walking
// from the strongest layer down. A layer whose terminal value is an object
// contributes its top-level fields, first seen wins; the first terminal
// that is not an object resolves immediately, even when stronger layers
// already contributed object fields. Layers where the walk fails or the
// terminal is rejected by policy are skipped.
func resolveNested(store *Store, cfg config, segments []string) (any, bool) {
	var merged Fragment
	for i := len(store.layers) - 1; i >= 0; i-- {
		value, ok := walkPath(store.layers[i].Fragment, segments)
		if !ok || !cfg.accepts(value) {
			continue
		}
		if node, ok := value.(Fragment); ok {
			if merged == nil {
				merged = Fragment{}
			}
			for key, field := range node {
				if _, seen := merged[key]; seen {
					continue
				}
				merged[key] = cloneAny(field)
			}
			continue
		}
		return value, true
	}
	if len(merged) > 0 {
		return merged, true
	}
	return nil, false
}

// writePath stores value at segments inside fragment, creating intermediate
// objects and replacing non-object intermediates along the way.
func writePath(fragment Fragment, segments []string, value any) {
	node := fragment
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(Fragment)
		if !ok {
			next = Fragment{}
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = cloneAny(value)
}
