package dashboard

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status reports the refresh state for the read API.
type Status struct {
	Loading   bool      `json:"loading"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	FailedAt  time.Time `json:"failed_at,omitempty"`
}

// State holds the latest snapshot. Readers always see a complete snapshot.
type State struct {
	snapshot atomic.Pointer[Snapshot]

	mu     sync.RWMutex
	status Status
	subs   map[chan *Snapshot]struct{}
}

func NewState() *State {
	return &State{subs: make(map[chan *Snapshot]struct{})}
}

// Snapshot returns the latest snapshot, or nil before the first successful refresh.
func (s *State) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Status returns a copy of the current status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetLoading marks a refresh as started.
func (s *State) SetLoading() {
	s.mu.Lock()
	s.status.Loading = true
	s.mu.Unlock()
}

// ClearLoading drops the loading flag without touching the rest of the status.
func (s *State) ClearLoading() {
	s.mu.Lock()
	s.status.Loading = false
	s.mu.Unlock()
}

// Fail records a failed refresh. The previous snapshot stays visible.
func (s *State) Fail(err error, at time.Time) {
	s.mu.Lock()
	s.status.Loading = false
	s.status.LastError = err.Error()
	s.status.FailedAt = at
	s.mu.Unlock()
}

// Publish replaces the snapshot and notifies subscribers. Slow subscribers miss updates.
func (s *State) Publish(snap *Snapshot, at time.Time) {
	s.snapshot.Store(snap)

	s.mu.Lock()
	s.status.Loading = false
	s.status.LastError = ""
	s.status.UpdatedAt = at
	subs := make([]chan *Snapshot, 0, len(s.subs))
	for ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe returns a channel receiving every published snapshot and a cancel func.
func (s *State) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}
