// Package server carries bridge commands over websocket.
//
// A caller opens a websocket to the configured path (default "/rpc") and
// sends one JSON envelope per command:
//
//	{"id": 1, "method": "discoverPrinters", "args": {}}
//
// Every command gets exactly one response envelope with the same id:
//
//	{"id": 1, "status": "success", "result": ["TCP:192.168.1.20:TM-m30III"]}
//	{"id": 2, "status": "error", "result": null,
//	 "error": {"code": "UNIMPLEMENTED", "message": "connect not implemented on Android yet"}}
//	{"id": 3, "status": "notImplemented", "result": null}
//
// Responses may arrive out of order: discoverPrinters answers when its scan
// window closes while later commands answer immediately. The id is echoed
// verbatim and may be any JSON value.
//
// GET /healthz reports the connection flag, whether a scan is running and
// the number of open websocket connections.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Host: "127.0.0.1", Port: 8765}, dispatcher)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// Client is the matching caller:
//
//	c, err := server.Dial(ctx, "ws://127.0.0.1:8765/rpc")
//	resp, err := c.Call(ctx, "getStatus", nil)
//
// # Graceful Shutdown
//
// On shutdown the listener closes first, then open websocket connections
// are closed, which cancels any scan they started. Shutdown waits for the
// connection goroutines until its context expires.
package server
