package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/discovery"
	"github.com/eljam3239/flutter-epson/internal/logging"
)

// Call is one command addressed to the dispatcher.
type Call struct {
	ID     uint64
	Method Method
	Args   json.RawMessage // ignored by every current command
}

// Options configures a Dispatcher.
type Options struct {
	// Window is the discoverPrinters scan duration (default discovery.DefaultWindow)
	Window time.Duration

	// Vendor restricts discoverPrinters results; the zero value keeps all vendors
	Vendor discovery.VendorFilter

	// State is the connection flag (default DefaultConnectionState)
	State *ConnectionState
}

// Dispatcher routes calls to discovery or to placeholder handlers.
type Dispatcher struct {
	engine *discovery.Engine
	window time.Duration
	vendor discovery.VendorFilter
	state  *ConnectionState
}

// NewDispatcher creates a dispatcher backed by engine.
func NewDispatcher(engine *discovery.Engine, opts Options) *Dispatcher {
	if opts.Window <= 0 {
		opts.Window = discovery.DefaultWindow
	}
	if opts.State == nil {
		opts.State = DefaultConnectionState()
	}
	return &Dispatcher{
		engine: engine,
		window: opts.Window,
		vendor: opts.Vendor,
		state:  opts.State,
	}
}

// State returns the connection flag the dispatcher was built with.
func (d *Dispatcher) State() *ConnectionState {
	return d.state
}

// Scanning reports whether a discovery scan is running.
func (d *Dispatcher) Scanning() bool {
	return d.engine.Busy()
}

// HandleName parses name and handles the call. Unknown names get the
// not-implemented signal.
func (d *Dispatcher) HandleName(ctx context.Context, id uint64, name string, args json.RawMessage, result Result) {
	m, ok := ParseMethod(name)
	if !ok {
		newOnceResult(id, name, result).NotImplemented()
		return
	}
	d.Handle(ctx, Call{ID: id, Method: m, Args: args}, result)
}

// Handle routes call and answers through result exactly once.
// discoverPrinters answers when its scan finishes; everything else answers
// before Handle returns.
func (d *Dispatcher) Handle(ctx context.Context, call Call, result Result) {
	r := newOnceResult(call.ID, call.Method.String(), result)

	switch call.Method {
	case MethodDiscoverPrinters:
		d.discoverPrinters(ctx, r)

	case MethodDiscoverBluetoothPrinters,
		MethodDiscoverUsbPrinters,
		MethodFindPairedBluetoothPrinters:
		r.Success([]string{})

	case MethodPairBluetoothDevice:
		r.Success(map[string]any{
			"target":     nil,
			"resultCode": -1,
		})

	case MethodConnect:
		r.Error(CodeUnimplemented, "connect not implemented on Android yet", nil)

	case MethodDisconnect:
		r.Success(nil)

	case MethodPrintReceipt:
		r.Error(CodeUnimplemented, "printReceipt not implemented on Android yet", nil)

	case MethodGetStatus:
		r.Success(map[string]any{
			"isOnline": false,
			"status":   "unknown",
		})

	case MethodOpenCashDrawer:
		r.Error(CodeUnimplemented, "openCashDrawer not implemented on Android yet", nil)

	case MethodIsConnected:
		r.Success(false)

	case MethodUsbDiagnostics:
		r.Success(map[string]any{
			"status":  "not_implemented",
			"message": "USB diagnostics not yet implemented",
		})

	case MethodCancelDiscovery:
		r.Success(d.engine.Cancel())

	default:
		r.NotImplemented()
	}
}

func (d *Dispatcher) discoverPrinters(ctx context.Context, r Result) {
	filter := discovery.TCPPrinterFilter(d.vendor)

	_, err := d.engine.Discover(ctx, filter, d.window, func(entries []string) {
		r.Success(entries)
	})
	switch {
	case err == nil:
	case errors.Is(err, discovery.ErrScanInProgress):
		r.Error(CodeBusy, "discovery already in progress", nil)
	default:
		logging.Error("Discovery failed to start", zap.Error(err))
		r.Error(CodeInternal, err.Error(), nil)
	}
}
