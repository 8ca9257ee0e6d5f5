package upload

import (
	"context"
	"sync"
)

// Slot holds the upload of one editor node (an image block, a cover field).
// Starting a new upload cancels the previous one, and a sequence number keeps
// a superseded session from reporting into the slot after it was replaced.
type Slot struct {
	uploader *Uploader

	mu      sync.Mutex
	seq     uint64
	current *Session
	cancel  context.CancelCauseFunc
}

func NewSlot(u *Uploader) *Slot {
	return &Slot{uploader: u}
}

func (s *Slot) Start(ctx context.Context, f File, opts Options) *Session {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	s.seq++
	seq := s.seq
	uctx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel

	onChange := opts.OnChange
	opts.OnChange = func(snap Snapshot) {
		if onChange != nil && s.isCurrent(seq) {
			onChange(snap)
		}
	}

	session := s.uploader.Start(uctx, f, opts)
	s.current = session
	s.mu.Unlock()

	go func() {
		<-session.Done()
		cancel(nil)
	}()

	return session
}

func (s *Slot) isCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

// Current is the latest session, nil before the first Start.
func (s *Slot) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Cancel stops the current upload, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrCanceled)
	}
}
