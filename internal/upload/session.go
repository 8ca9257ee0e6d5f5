package upload

import (
	"context"
	"sync"
)

// Snapshot is a consistent view of a Session.
type Snapshot struct {
	Status     Status
	Progress   int
	BytesSent  int64
	BytesTotal int64
	Key        string
	PreviewURL string
	PublicURL  string
	Error      string
}

// Session is one file transfer. It is owned by whoever started it.
type Session struct {
	mu   sync.Mutex
	snap Snapshot
	err  error

	onChange func(Snapshot)
	done     chan struct{}
}

func newSession(total int64, onChange func(Snapshot)) *Session {
	return &Session{
		snap:     Snapshot{Status: StatusIdle, BytesTotal: total},
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

var transitions = map[Status][]Status{
	StatusIdle:       {StatusPresigning, StatusError},
	StatusPresigning: {StatusUploading, StatusError},
	StatusUploading:  {StatusCompleting, StatusError},
	StatusCompleting: {StatusCompleted, StatusError},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// update applies fn under the lock when from → to is legal and notifies
// listeners. Illegal transitions are dropped.
func (s *Session) update(to Status, fn func(*Snapshot)) bool {
	s.mu.Lock()
	from := s.snap.Status
	if from != to && !canTransition(from, to) {
		s.mu.Unlock()
		uploadLogger.Warn().Str("from", string(from)).Str("to", string(to)).Msg("Ignoring illegal upload transition")
		return false
	}
	s.snap.Status = to
	if fn != nil {
		fn(&s.snap)
	}
	snap := s.snap
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap)
	}
	if to.Terminal() && from != to {
		close(s.done)
	}
	return true
}

func (s *Session) progress(sent int64) {
	s.mu.Lock()
	if s.snap.Status != StatusUploading {
		s.mu.Unlock()
		return
	}
	prev := s.snap.Progress
	s.snap.BytesSent = sent
	if s.snap.BytesTotal > 0 {
		s.snap.Progress = int(sent * 100 / s.snap.BytesTotal)
	}
	if s.snap.Progress > 99 {
		// 100 is reserved for completed.
		s.snap.Progress = 99
	}
	snap := s.snap
	s.mu.Unlock()

	if snap.Progress != prev && s.onChange != nil {
		s.onChange(snap)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.update(StatusError, func(snap *Snapshot) {
		snap.Error = err.Error()
	})
}

func (s *Session) complete(publicURL string) {
	s.update(StatusCompleted, func(snap *Snapshot) {
		snap.PublicURL = publicURL
		snap.Progress = 100
		snap.BytesSent = snap.BytesTotal
	})
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Session) Status() Status {
	return s.Snapshot().Status
}

func (s *Session) PublicURL() string {
	return s.Snapshot().PublicURL
}

// Err is the failure that ended the session, nil unless Status is error.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session is terminal or ctx ends.
func (s *Session) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-s.done:
		return s.Snapshot(), s.Err()
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}
