package discovery

import "strings"

// DefaultDisplayName is used when an announcement carries no device name.
const DefaultDisplayName = "Printer"

// Announcement is a single device-found event delivered by a transport.
// Empty strings mean the field was not reported.
type Announcement struct {
	// Target is the raw target string, e.g. "TCP:192.168.1.20" or a bare host
	Target string

	// IPAddress is the device's IP address
	IPAddress string

	// DeviceName is the name the device advertises (e.g. "TM-m30III")
	DeviceName string
}

// AddressToken derives the canonical address token for a port type.
// Precedence: a target already carrying the prefix is used verbatim, then
// prefix+IP, then prefix+target. ok is false when the announcement has no
// usable address.
func (a Announcement) AddressToken(p PortType) (token string, ok bool) {
	prefix := p.Prefix()

	switch {
	case a.Target != "" && strings.HasPrefix(a.Target, prefix):
		return a.Target, true
	case a.IPAddress != "":
		return prefix + a.IPAddress, true
	case a.Target != "":
		return prefix + a.Target, true
	default:
		return "", false
	}
}

// DisplayName returns the device name or DefaultDisplayName.
func (a Announcement) DisplayName() string {
	if a.DeviceName == "" {
		return DefaultDisplayName
	}
	return a.DeviceName
}

// Entry builds the entry string "<token>:<displayName>" reported to callers.
func (a Announcement) Entry(p PortType) (string, bool) {
	token, ok := a.AddressToken(p)
	if !ok {
		return "", false
	}
	return token + ":" + a.DisplayName(), true
}
