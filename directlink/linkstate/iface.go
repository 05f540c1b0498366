package linkstate

import (
	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/ifaces"
	"github.com/edup2p/directlink/types/link"
)

// LinkState is the state of one peer's direct link.
//
// Every handler returns the next state, or nil to stay in the current one.
type LinkState interface {
	OnTick() LinkState

	// OnDiscover starts discovery; the caller has already made the peer the current candidate.
	OnDiscover(explicit bool) LinkState
	OnDiscoveryResponse(rssi int) LinkState
	OnDiscoveryTimeout() LinkState
	// OnAbandon gives up an in-flight handshake, so a scan can go ahead.
	OnAbandon() LinkState
	OnSetupResult(reason link.Reason) LinkState
	// OnTeardown requests a teardown. explicit is set for administrative requests.
	OnTeardown(reason link.TeardownReason, explicit bool) LinkState
	OnTeardownAck() LinkState

	// Name returns a lower-case name to be used in logging.
	Name() string

	Status() link.Status

	// Peer returns the peer for which this state is being managed for.
	Peer() hwaddr.HWAddr
}

// Manager is what states need from the link manager that owns them.
type Manager interface {
	Record(h peers.Handle) *peers.Record
	Config() *config.Config
	Firmware() ifaces.Firmware

	// MayConnect re-checks the concurrency policy right before setup is attempted.
	MayConnect(rec *peers.Record) bool

	Poke()
}
