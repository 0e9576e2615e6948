package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

// Error codes reported by the bridge.
const (
	// CodeUnimplemented marks a known command whose behaviour is not built
	CodeUnimplemented = "UNIMPLEMENTED"

	// CodeBusy is returned when discovery is requested during another scan
	CodeBusy = "BUSY"

	// CodeInternal wraps unexpected failures
	CodeInternal = "INTERNAL"
)

// Status is the kind of terminal response.
type Status int

const (
	// StatusSuccess carries a result value
	StatusSuccess Status = iota
	// StatusError carries a code, message and optional details
	StatusError
	// StatusNotImplemented answers a command the bridge does not know
	StatusNotImplemented
)

// String returns the wire name of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNotImplemented:
		return "notImplemented"
	default:
		return "unknown"
	}
}

// Result receives the terminal response of one command. Exactly one of
// its methods is called per command.
type Result interface {
	Success(value any)
	Error(code, message string, details any)
	NotImplemented()
}

// Response is a terminal response as a value.
type Response struct {
	Status  Status
	Value   any
	Code    string
	Message string
	Details any
}

// ResultFunc adapts a function taking a Response to the Result interface.
type ResultFunc func(Response)

// Success implements Result.
func (f ResultFunc) Success(value any) {
	f(Response{Status: StatusSuccess, Value: value})
}

// Error implements Result.
func (f ResultFunc) Error(code, message string, details any) {
	f(Response{Status: StatusError, Code: code, Message: message, Details: details})
}

// NotImplemented implements Result.
func (f ResultFunc) NotImplemented() {
	f(Response{Status: StatusNotImplemented})
}

// onceResult forwards the first response and drops the rest.
type onceResult struct {
	id     uint64
	method string
	next   Result

	mu       sync.Mutex
	answered bool
}

func newOnceResult(id uint64, method string, next Result) *onceResult {
	return &onceResult{id: id, method: method, next: next}
}

func (r *onceResult) claim(outcome string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.answered {
		logging.Warn("Dropping duplicate response",
			zap.Uint64("id", r.id),
			zap.String("method", r.method),
			zap.String("outcome", outcome),
		)
		return false
	}
	r.answered = true
	logging.LogCommand(r.id, r.method, outcome)
	return true
}

func (r *onceResult) Success(value any) {
	if r.claim("success") {
		r.next.Success(value)
	}
}

func (r *onceResult) Error(code, message string, details any) {
	if r.claim("error:" + code) {
		r.next.Error(code, message, details)
	}
}

func (r *onceResult) NotImplemented() {
	if r.claim("not_implemented") {
		r.next.NotImplemented()
	}
}
