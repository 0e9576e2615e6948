package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// DefaultSettleTimeout is how long Stop waits for in-flight callbacks to
// drain before reporting ErrStopBusy.
const DefaultSettleTimeout = 50 * time.Millisecond

// Listener receives announcements while a transport is running. It may be
// called from any goroutine.
type Listener interface {
	OnDiscovered(a Announcement)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(a Announcement)

// OnDiscovered calls f(a).
func (f ListenerFunc) OnDiscovered(a Announcement) {
	f(a)
}

// Transport is a network facility that can look for devices.
//
// Start begins a scan and returns once the scan is running; announcements
// are delivered to listener until Stop succeeds. Stop returns ErrStopBusy
// (or an error wrapping it) while callbacks are still in flight; any other
// non-nil error is treated as fatal.
type Transport interface {
	Start(ctx context.Context, filter Filter, listener Listener) error
	Stop() error
}

// worker runs a transport's background loop and implements the busy-stop
// contract shared by the built-in transports.
type worker struct {
	settle time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (w *worker) start(parent context.Context, run func(ctx context.Context)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return NewStartError(errors.New("transport already running"))
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	w.cancel, w.done = cancel, done

	go func() {
		run(ctx)
		close(done)

		// A loop ended by its parent context leaves the worker idle.
		if ctx.Err() == nil {
			return
		}
		w.mu.Lock()
		if w.done == done {
			w.cancel()
			w.cancel, w.done = nil, nil
		}
		w.mu.Unlock()
	}()
	return nil
}

// stop cancels the loop and waits briefly for it to return. Stopping an
// idle worker is a no-op.
func (w *worker) stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done == nil {
		return nil
	}
	w.cancel()

	settle := w.settle
	if settle <= 0 {
		settle = DefaultSettleTimeout
	}

	select {
	case <-w.done:
		w.cancel, w.done = nil, nil
		return nil
	case <-time.After(settle):
		return ErrStopBusy
	}
}

// MultiTransport runs several transports as one. Start succeeds if at
// least one child starts.
type MultiTransport struct {
	children []Transport

	mu      sync.Mutex
	running []Transport
	fatal   []error
}

// NewMultiTransport combines transports.
func NewMultiTransport(children ...Transport) *MultiTransport {
	return &MultiTransport{children: children}
}

// Start starts every child.
func (m *MultiTransport) Start(ctx context.Context, filter Filter, listener Listener) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.running) > 0 {
		return NewStartError(errors.New("transport already running"))
	}
	m.fatal = nil

	var errs []error
	for i, t := range m.children {
		if err := t.Start(ctx, filter, listener); err != nil {
			logging.Warn("Discovery transport failed to start",
				zap.Int("transport", i),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		m.running = append(m.running, t)
	}

	if len(m.running) == 0 {
		if len(errs) == 0 {
			return NewStartError(errors.New("no transports configured"))
		}
		return NewStartError(errors.Join(errs...))
	}
	return nil
}

// Stop stops every running child. Children that report busy stay in the
// running set and ErrStopBusy is returned so the caller retries; fatal
// failures are reported once every child has settled.
func (m *MultiTransport) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var busy []Transport
	for _, t := range m.running {
		err := t.Stop()
		switch {
		case err == nil:
		case IsTransientStopError(err):
			busy = append(busy, t)
		default:
			m.fatal = append(m.fatal, err)
		}
	}
	m.running = busy

	if len(busy) > 0 {
		return ErrStopBusy
	}
	if len(m.fatal) > 0 {
		err := NewStopError(fmt.Errorf("%d transport(s) failed to stop: %w", len(m.fatal), errors.Join(m.fatal...)), false)
		m.fatal = nil
		return err
	}
	return nil
}
