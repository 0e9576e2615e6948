package discovery

import (
	"sync"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	// SessionRunning accepts announcements
	SessionRunning SessionState = iota
	// SessionStopped ignores further announcements
	SessionStopped
)

// String returns the state name
func (s SessionState) String() string {
	if s == SessionStopped {
		return "stopped"
	}
	return "running"
}

// Session accumulates the unique devices seen during one scan.
type Session struct {
	filter Filter

	mu      sync.Mutex
	state   SessionState
	entries []string
	seen    map[string]struct{}
}

// NewSession creates a running session for filter.
func NewSession(filter Filter) *Session {
	return &Session{
		filter: filter,
		state:  SessionRunning,
		seen:   make(map[string]struct{}),
	}
}

// Filter returns the filter the session was created with.
func (s *Session) Filter() Filter {
	return s.filter
}

// Ingest folds one announcement into the result set. Announcements without
// a usable address are dropped silently, as are exact duplicates and
// anything arriving after the session stopped. It reports whether the
// entry was added.
func (s *Session) Ingest(a Announcement) bool {
	entry, ok := a.Entry(s.filter.PortType)
	if !ok {
		logging.LogAnnouncement(a.Target, a.IPAddress, a.DeviceName, "", false)
		return false
	}

	s.mu.Lock()
	added := s.add(entry)
	s.mu.Unlock()

	logging.LogAnnouncement(a.Target, a.IPAddress, a.DeviceName, entry, added)
	return added
}

// add must be called with s.mu held.
func (s *Session) add(entry string) bool {
	if s.state != SessionRunning {
		return false
	}
	if _, dup := s.seen[entry]; dup {
		return false
	}
	s.seen[entry] = struct{}{}
	s.entries = append(s.entries, entry)
	return true
}

// OnDiscovered implements Listener.
func (s *Session) OnDiscovered(a Announcement) {
	s.Ingest(a)
}

// Snapshot returns a copy of the entries in insertion order. The result
// is never nil.
func (s *Session) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of unique entries collected so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// close stops the session and returns the final snapshot.
func (s *Session) close() []string {
	s.mu.Lock()
	s.state = SessionStopped
	s.mu.Unlock()
	return s.Snapshot()
}
