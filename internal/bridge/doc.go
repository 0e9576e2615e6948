// Package bridge routes printer-management commands to their handlers.
//
// A calling application sends a command name plus optional JSON arguments
// and receives exactly one terminal response per command: a success value,
// an error with a code and message, or a "not implemented" signal for
// names the bridge does not know.
//
// # Commands
//
// Only LAN printer discovery does real work. The remaining commands are
// named capabilities with placeholder answers so that callers can code
// against the full surface:
//
//	discoverPrinters            []string of "TCP:<host>:<name>" entries
//	discoverBluetoothPrinters   []
//	discoverUsbPrinters         []
//	findPairedBluetoothPrinters []
//	pairBluetoothDevice         {"target": null, "resultCode": -1}
//	connect                     error UNIMPLEMENTED
//	disconnect                  null
//	printReceipt                error UNIMPLEMENTED
//	getStatus                   {"isOnline": false, "status": "unknown"}
//	openCashDrawer              error UNIMPLEMENTED
//	isConnected                 false
//	usbDiagnostics              {"status": "not_implemented", ...}
//	cancelDiscovery             true if a scan was cancelled
//
// # Usage
//
//	engine := discovery.NewEngine(transport)
//	d := bridge.NewDispatcher(engine, bridge.Options{})
//	d.HandleName(ctx, 1, "discoverPrinters", nil, bridge.ResultFunc(func(r bridge.Response) {
//	    fmt.Println(r.Value)
//	}))
//
// discoverPrinters answers asynchronously once the scan window closes;
// every other command answers before Handle returns.
package bridge
