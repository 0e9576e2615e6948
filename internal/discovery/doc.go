// Package discovery finds printers reachable over the local network.
//
// A discovery scan is time-bounded and asynchronous. The Engine starts a
// Transport with a Filter, the transport reports each device it sees as an
// Announcement, and a Session folds those announcements into an ordered,
// deduplicated list of entry strings of the form
//
//	TCP:<host>:<displayName>
//
// When the scan window elapses (or the scan is cancelled) the engine stops
// the transport, retrying while the transport reports that it is still
// busy, and hands the session snapshot to the completion callback exactly
// once.
//
// # Failure Handling
//
// Discovery never fails loudly. A transport that cannot start yields an
// empty result; a transport that cannot be stopped cleanly still yields
// whatever was collected. The only error a caller sees is
// ErrScanInProgress, returned when a second scan is requested while one is
// already running on the same engine.
//
// # Transports
//
//   - MDNSTransport browses DNS-SD service types such as _pdl-datastream._tcp
//   - ProbeTransport sweeps local subnets for an open raw-print port (9100)
//   - MultiTransport runs several transports as one
//
// # Usage Example
//
//	engine := discovery.NewEngine(discovery.NewMDNSTransport(discovery.MDNSOptions{}))
//	scan, err := engine.Discover(ctx, discovery.TCPPrinterFilter(discovery.VendorEpson),
//	    5*time.Second, func(entries []string) {
//	        fmt.Println(entries)
//	    })
//
// # Thread Safety
//
// Sessions guard their result set with a mutex: transports may deliver
// announcements from any goroutine while the timer goroutine finalizes.
package discovery
