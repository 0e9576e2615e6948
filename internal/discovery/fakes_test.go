package discovery

import (
	"context"
	"sync"
)

// fakeTransport records calls and lets tests push announcements.
type fakeTransport struct {
	mu        sync.Mutex
	startErr  error
	stopErrs  []error
	starts    int
	stopCalls int
	listener  Listener
	filter    Filter
	started   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{started: make(chan struct{}, 1)}
}

func (f *fakeTransport) Start(ctx context.Context, filter Filter, listener Listener) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.listener = listener
	f.filter = filter
	select {
	case f.started <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if len(f.stopErrs) > 0 {
		err := f.stopErrs[0]
		f.stopErrs = f.stopErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) announce(a Announcement) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	l.OnDiscovered(a)
}

func (f *fakeTransport) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}
