package bridge

import "sort"

// Method is a command the bridge understands.
type Method int

const (
	// MethodDiscoverPrinters scans the LAN for TCP printers
	MethodDiscoverPrinters Method = iota + 1
	// MethodDiscoverBluetoothPrinters always answers an empty list
	MethodDiscoverBluetoothPrinters
	// MethodDiscoverUsbPrinters always answers an empty list
	MethodDiscoverUsbPrinters
	// MethodFindPairedBluetoothPrinters always answers an empty list
	MethodFindPairedBluetoothPrinters
	// MethodPairBluetoothDevice reports a failed pairing
	MethodPairBluetoothDevice
	// MethodConnect is not built yet
	MethodConnect
	// MethodDisconnect succeeds without touching connection state
	MethodDisconnect
	// MethodPrintReceipt is not built yet
	MethodPrintReceipt
	// MethodGetStatus answers a fixed offline status
	MethodGetStatus
	// MethodOpenCashDrawer is not built yet
	MethodOpenCashDrawer
	// MethodIsConnected always answers false
	MethodIsConnected
	// MethodUsbDiagnostics answers a not_implemented report
	MethodUsbDiagnostics
	// MethodCancelDiscovery ends the running scan early
	MethodCancelDiscovery
)

var methodNames = map[Method]string{
	MethodDiscoverPrinters:            "discoverPrinters",
	MethodDiscoverBluetoothPrinters:   "discoverBluetoothPrinters",
	MethodDiscoverUsbPrinters:         "discoverUsbPrinters",
	MethodFindPairedBluetoothPrinters: "findPairedBluetoothPrinters",
	MethodPairBluetoothDevice:         "pairBluetoothDevice",
	MethodConnect:                     "connect",
	MethodDisconnect:                  "disconnect",
	MethodPrintReceipt:                "printReceipt",
	MethodGetStatus:                   "getStatus",
	MethodOpenCashDrawer:              "openCashDrawer",
	MethodIsConnected:                 "isConnected",
	MethodUsbDiagnostics:              "usbDiagnostics",
	MethodCancelDiscovery:             "cancelDiscovery",
}

var methodsByName = func() map[string]Method {
	m := make(map[string]Method, len(methodNames))
	for method, name := range methodNames {
		m[name] = method
	}
	return m
}()

// String returns the wire name of the method.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMethod maps a wire name to a Method. Names are case-sensitive.
func ParseMethod(name string) (Method, bool) {
	m, ok := methodsByName[name]
	return m, ok
}

// Methods returns every known method in declaration order.
func Methods() []Method {
	out := make([]Method, 0, len(methodNames))
	for m := range methodNames {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
