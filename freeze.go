package settings

import "errors"

// ErrViewFrozen signals a mutation attempt against a frozen view.
var ErrViewFrozen = errors.New("settings: view is frozen")

// Frozen reports whether the immutability guard is active.
func (v *View) Frozen() bool {
	return v.cfg.freeze
}

// guard keeps frozen views opaque: compound values cross the API boundary
// as deep copies so callers can never reach a layer fragment or the
// flattened snapshot by reference. Unfrozen views hand out live values.
func (v *View) guard(value any) any {
	if !v.cfg.freeze {
		return value
	}
	return cloneAny(value)
}
