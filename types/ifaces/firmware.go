package ifaces

import (
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Firmware is the negotiation layer that puts frames on the air.
//
// Calls are made from the link manager's loop and must not block; results come back
// through the manager's delivery methods (DiscoveryResponse, SetupResult, TeardownAck).
type Firmware interface {
	SendDiscovery(peer hwaddr.HWAddr) error
	SendSetup(peer hwaddr.HWAddr) error
	SendTeardown(peer hwaddr.HWAddr, reason link.TeardownReason) error
}

// PolicySource is the read-only view on the global connection policy component.
type PolicySource interface {
	// ScanInProgress reports whether any radio scan is running.
	ScanInProgress() bool

	// ConcurrentSessions is the number of radio connections on the device, our own association included.
	ConcurrentSessions() int

	// CoexRestricted reports an active coexistence restriction (e.g. bluetooth).
	CoexRestricted() bool

	// AntennaRestricted reports an antenna configuration that can't carry direct links.
	AntennaRestricted() bool
}
