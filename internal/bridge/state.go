package bridge

import "sync/atomic"

// ConnectionState is the process-wide printer connection flag. It starts
// false and nothing in the bridge sets it yet: connect is not implemented.
type ConnectionState struct {
	connected atomic.Bool
}

var defaultState ConnectionState

// DefaultConnectionState returns the process-wide instance.
func DefaultConnectionState() *ConnectionState {
	return &defaultState
}

// IsConnected reports the flag.
func (s *ConnectionState) IsConnected() bool {
	return s.connected.Load()
}

// SetConnected updates the flag.
func (s *ConnectionState) SetConnected(v bool) {
	s.connected.Store(v)
}
