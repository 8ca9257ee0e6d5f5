// Package navguard stops the user from leaving an editor with unsaved
// changes.
//
// One edit surface at a time holds the Registry through the Handle returned by
// Register. Registering again replaces the holder, and every call on the
// replaced Handle is ignored.
package navguard

import (
	"sync"

	"github.com/rs/zerolog"
)

var guardLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	guardLogger = l
}

// Attempt describes a navigation the user started.
type Attempt struct {
	Kind   Kind
	Target string
}

type Kind int

const (
	// KindLink is an in-app link or command.
	KindLink Kind = iota
	// KindBack is a history back or forward step.
	KindBack
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindBack:
		return "back"
	default:
		return "unknown"
	}
}

// Callback is asked what to do about an intercepted attempt. It should end
// in Handle.AllowLeave once the user decided to go.
type Callback func(Attempt)

type Registry struct {
	mu      sync.Mutex
	current *Handle
	history *History
}

func NewRegistry(history *History) *Registry {
	if history == nil {
		history = NewHistory()
	}
	return &Registry{history: history}
}

func (r *Registry) History() *History {
	return r.history
}

type Handle struct {
	registry *Registry
	callback Callback

	dirty     bool
	allowed   bool
	synthetic bool
}

// Register makes cb the active guard, replacing any previous one.
func (r *Registry) Register(cb Callback) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		guardLogger.Debug().Msg("Replacing active navigation guard")
		r.dropSyntheticLocked(r.current)
	}
	h := &Handle{registry: r, callback: cb}
	r.current = h
	return h
}

// SetDirty arms or disarms the guard. Arming pushes a synthetic history
// entry so the next back step lands on it instead of leaving. Disarming drops
// it again.
func (h *Handle) SetDirty(dirty bool) {
	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != h {
		return
	}
	h.dirty = dirty
	if dirty {
		h.allowed = false
		if !h.synthetic {
			r.history.pushSynthetic()
			h.synthetic = true
		}
		return
	}
	r.dropSyntheticLocked(h)
}

// AllowLeave stops interception until the guard is armed again.
func (h *Handle) AllowLeave() {
	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != h {
		return
	}
	h.allowed = true
	r.dropSyntheticLocked(h)
}

// Release clears the registration. It is a no-op on a replaced handle.
func (h *Handle) Release() {
	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != h {
		return
	}
	r.dropSyntheticLocked(h)
	r.current = nil
}

// Active reports whether h still holds the registry.
func (h *Handle) Active() bool {
	r := h.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == h
}

func (r *Registry) dropSyntheticLocked(h *Handle) {
	if h.synthetic {
		r.history.popSynthetic()
		h.synthetic = false
	}
}

func (r *Registry) armedLocked() *Handle {
	h := r.current
	if h == nil || !h.dirty || h.allowed {
		return nil
	}
	return h
}

// Navigate reports whether the attempt was intercepted. Intercepted attempts
// go to the guard's callback and must not be carried out. A back step that is
// let through moves the history.
func (r *Registry) Navigate(a Attempt) bool {
	r.mu.Lock()
	h := r.armedLocked()
	if h == nil {
		if a.Kind == KindBack {
			r.history.Back()
		}
		r.mu.Unlock()
		return false
	}

	if a.Kind == KindBack && h.synthetic {
		// The back step consumed the synthetic entry; put it back so the
		// next one is caught too.
		r.history.Back()
		r.history.pushSynthetic()
	}
	cb := h.callback
	r.mu.Unlock()

	guardLogger.Debug().Str("kind", a.Kind.String()).Str("target", a.Target).Msg("Navigation intercepted")
	if cb != nil {
		cb(a)
	}
	return true
}

// BeforeUnload reports whether closing the program must be confirmed.
func (r *Registry) BeforeUnload() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armedLocked() != nil
}
