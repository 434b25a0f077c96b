package settings

import "github.com/goliatone/go-settings/pkg/activity"

// WithActivityHooks attaches activity hooks to the view configuration.
// Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// ActivityHooks returns a cloned slice of the activity hooks configured on
// the view. The returned slice can be safely mutated by the caller.
func (v *View) ActivityHooks() activity.Hooks {
	if v == nil {
		return nil
	}
	return cloneActivityHooks(v.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
