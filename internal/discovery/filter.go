package discovery

import (
	"fmt"
	"strings"
)

// DeviceType is the class of device a scan looks for.
type DeviceType int

const (
	// DeviceTypeAll matches every device class
	DeviceTypeAll DeviceType = iota
	// DeviceTypePrinter matches printers only
	DeviceTypePrinter
	// DeviceTypeDisplay matches customer displays
	DeviceTypeDisplay
)

// String returns the device type name
func (d DeviceType) String() string {
	switch d {
	case DeviceTypeAll:
		return "all"
	case DeviceTypePrinter:
		return "printer"
	case DeviceTypeDisplay:
		return "display"
	default:
		return fmt.Sprintf("DeviceType(%d)", int(d))
	}
}

// PortType is the transport a device is reached over.
type PortType int

const (
	// PortTCP is a LAN (TCP/IP) device
	PortTCP PortType = iota
	// PortBluetooth is a Bluetooth device
	PortBluetooth
	// PortUSB is a USB device
	PortUSB
)

// String returns the port type name
func (p PortType) String() string {
	switch p {
	case PortTCP:
		return "tcp"
	case PortBluetooth:
		return "bluetooth"
	case PortUSB:
		return "usb"
	default:
		return fmt.Sprintf("PortType(%d)", int(p))
	}
}

// Prefix returns the canonical address-token prefix for the port type,
// e.g. "TCP:".
func (p PortType) Prefix() string {
	switch p {
	case PortTCP:
		return "TCP:"
	case PortBluetooth:
		return "BT:"
	case PortUSB:
		return "USB:"
	default:
		return ""
	}
}

// VendorFilter restricts which vendors' devices are reported.
type VendorFilter int

const (
	// VendorAny reports devices from any vendor
	VendorAny VendorFilter = iota
	// VendorEpson reports only devices identifying as Epson
	VendorEpson
)

// String returns the vendor filter name
func (v VendorFilter) String() string {
	switch v {
	case VendorAny:
		return "any"
	case VendorEpson:
		return "epson"
	default:
		return fmt.Sprintf("VendorFilter(%d)", int(v))
	}
}

// ParseVendorFilter maps a configuration value onto a VendorFilter.
func ParseVendorFilter(s string) (VendorFilter, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return VendorAny, nil
	case "epson":
		return VendorEpson, nil
	default:
		return VendorAny, fmt.Errorf("unknown vendor filter %q", s)
	}
}

// Filter describes what a scan searches for. It is a value type and is
// never modified after construction.
type Filter struct {
	DeviceType DeviceType
	PortType   PortType
	Vendor     VendorFilter
}

// TCPPrinterFilter is the filter used for LAN printer discovery.
func TCPPrinterFilter(vendor VendorFilter) Filter {
	return Filter{
		DeviceType: DeviceTypePrinter,
		PortType:   PortTCP,
		Vendor:     vendor,
	}
}

// String returns a compact description for logging
func (f Filter) String() string {
	return fmt.Sprintf("%s/%s/%s", f.DeviceType, f.PortType, f.Vendor)
}

// MatchesVendor reports whether a device identified by any of the given
// strings (name, TXT records, hostname) passes the vendor filter.
func (f Filter) MatchesVendor(idents ...string) bool {
	if f.Vendor != VendorEpson {
		return true
	}
	for _, s := range idents {
		if strings.Contains(strings.ToUpper(s), "EPSON") {
			return true
		}
	}
	return false
}
