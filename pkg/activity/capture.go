package activity

import (
	"context"
	"sync"
)

// CaptureHook is an in-memory hook for tests: it appends every normalized
// event to Events and returns Err, so failure paths can be exercised too.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}
