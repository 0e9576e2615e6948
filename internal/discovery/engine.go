package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// DefaultWindow is the scan duration used by the bridge.
const DefaultWindow = 5 * time.Second

// Engine drives one transport and allows a single scan at a time.
type Engine struct {
	transport Transport
	policy    StopPolicy

	mu     sync.Mutex
	active *Scan
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStopPolicy overrides DefaultStopPolicy.
func WithStopPolicy(p StopPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// NewEngine creates an engine for transport.
func NewEngine(transport Transport, opts ...EngineOption) *Engine {
	e := &Engine{
		transport: transport,
		policy:    DefaultStopPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scan is one running discovery. It finishes exactly once: when its window
// elapses, when Cancel is called, or when the context passed to StartScan
// is done.
type Scan struct {
	engine  *Engine
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc

	started time.Time

	// ready is closed once transport.Start has returned.
	ready    chan struct{}
	startErr error

	once sync.Once
	done chan struct{}

	mu         sync.Mutex
	timer      *time.Timer
	onComplete func([]string)
	finished   bool
	result     []string
}

// StartScan creates a session and starts the transport with the session
// as listener. A transport that fails to start does not fail the scan: the
// scan simply finishes with no results. The only error is
// ErrScanInProgress.
func (e *Engine) StartScan(ctx context.Context, filter Filter) (*Scan, error) {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, ErrScanInProgress
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s := &Scan{
		engine:  e,
		session: NewSession(filter),
		ctx:     scanCtx,
		cancel:  cancel,
		started: time.Now(),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	e.active = s
	e.mu.Unlock()

	err := e.transport.Start(scanCtx, filter, s.session)
	s.mu.Lock()
	s.startErr = err
	s.mu.Unlock()
	close(s.ready)

	if err != nil {
		logging.Warn("Discovery scan could not start, reporting no devices",
			zap.String("filter", filter.String()),
			zap.Error(err),
		)
		return s, nil
	}

	logging.Info("Discovery scan started", zap.String("filter", filter.String()))
	return s, nil
}

// StopAfter arranges for scan to finish after window and for onComplete to
// receive the snapshot exactly once. A scan whose transport never started
// completes immediately with an empty result.
func (e *Engine) StopAfter(s *Scan, window time.Duration, onComplete func([]string)) {
	s.mu.Lock()
	if s.finished {
		result := s.result
		s.mu.Unlock()
		if onComplete != nil {
			onComplete(result)
		}
		return
	}
	s.onComplete = onComplete
	startErr := s.startErr
	if startErr == nil {
		s.timer = time.AfterFunc(window, func() { s.finish() })
	}
	s.mu.Unlock()

	if startErr != nil {
		s.finish()
		return
	}

	go func() {
		select {
		case <-s.ctx.Done():
			s.finish()
		case <-s.done:
		}
	}()
}

// Discover is StartScan followed by StopAfter.
func (e *Engine) Discover(ctx context.Context, filter Filter, window time.Duration, onComplete func([]string)) (*Scan, error) {
	s, err := e.StartScan(ctx, filter)
	if err != nil {
		return nil, err
	}
	e.StopAfter(s, window, onComplete)
	return s, nil
}

// Active returns the running scan, or nil.
func (e *Engine) Active() *Scan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Busy reports whether a scan is running.
func (e *Engine) Busy() bool {
	return e.Active() != nil
}

// Cancel finishes the running scan early. It reports whether a scan was
// cancelled.
func (e *Engine) Cancel() bool {
	s := e.Active()
	if s == nil {
		return false
	}
	return s.Cancel()
}

func (e *Engine) release(s *Scan) {
	e.mu.Lock()
	if e.active == s {
		e.active = nil
	}
	e.mu.Unlock()
}

// Session returns the scan's session.
func (s *Scan) Session() *Session {
	return s.session
}

// StartErr returns the transport start failure, if any.
func (s *Scan) StartErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startErr
}

// Done is closed once the scan has finished and its result is final.
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the scan finishes and returns its result.
func (s *Scan) Wait() []string {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Snapshot returns the entries collected so far.
func (s *Scan) Snapshot() []string {
	return s.session.Snapshot()
}

// Result returns the final entries, or nil while the scan is running.
func (s *Scan) Result() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Cancel finishes the scan now. It reports whether this call finished it.
// A scan whose transport is still starting finishes once Start returns.
func (s *Scan) Cancel() bool {
	return s.finish()
}

func (s *Scan) finish() bool {
	ran := false
	s.once.Do(func() {
		ran = true
		s.complete()
	})
	return ran
}

func (s *Scan) complete() {
	<-s.ready

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	startErr := s.startErr
	s.mu.Unlock()

	if startErr == nil {
		attempts, err := s.engine.policy.Stop(s.engine.transport)
		if err != nil {
			logging.Warn("Discovery transport did not stop cleanly, returning partial results",
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		} else {
			logging.Debug("Discovery transport stopped", zap.Int("attempts", attempts))
		}
	}
	s.cancel()

	result := s.session.close()
	s.engine.release(s)

	s.mu.Lock()
	s.result = result
	s.finished = true
	cb := s.onComplete
	s.mu.Unlock()
	close(s.done)

	logging.Info("Discovery scan finished",
		zap.Int("devices", len(result)),
		zap.Duration("elapsed", time.Since(s.started)),
	)

	if cb != nil {
		cb(result)
	}
}
