package navguard

import "sync"

// History is a stack of visited locations. Synthetic entries duplicate the
// current location and only exist to absorb a back step.
type History struct {
	mu      sync.Mutex
	entries []entry
}

type entry struct {
	location  string
	synthetic bool
}

func NewHistory(locations ...string) *History {
	h := &History{}
	for _, loc := range locations {
		h.Push(loc)
	}
	return h
}

func (h *History) Push(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry{location: location})
}

// Current is the location on top of the stack.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1].location
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Back pops the top entry and returns the new current location.
func (h *History) Back() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 0 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1].location
}

func (h *History) pushSynthetic() {
	h.mu.Lock()
	defer h.mu.Unlock()
	loc := ""
	if len(h.entries) > 0 {
		loc = h.entries[len(h.entries)-1].location
	}
	h.entries = append(h.entries, entry{location: loc, synthetic: true})
}

// popSynthetic removes the topmost synthetic entry, if any.
func (h *History) popSynthetic() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].synthetic {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}
