package msgactor

import (
	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Messages

// ======================================================================================================
// LinkManager msgs: traffic path

type LManRecordTx struct {
	Peer hwaddr.HWAddr
}

type LManRecordRx struct {
	Peer hwaddr.HWAddr
}

// ======================================================================================================
// LinkManager msgs: negotiation layer

type LManDiscoveryResponse struct {
	Peer hwaddr.HWAddr
	RSSI int
}

// LManSetupResult reports negotiation completion (ReasonSuccess) or failure.
type LManSetupResult struct {
	Peer   hwaddr.HWAddr
	Reason link.Reason
}

type LManTeardownAck struct {
	Peer hwaddr.HWAddr
}

type LManPeerCapabilities struct {
	Peer hwaddr.HWAddr
	Caps peers.Caps
}

type LManRSSIUpdate struct {
	Peer hwaddr.HWAddr
	RSSI int
}

// ======================================================================================================
// LinkManager msgs: timers

type LManDiscoveryTimeout struct {
	Seq uint64
}

type LManIdleExpired struct {
	Peer hwaddr.HWAddr
	Gen  uint64
}

// ======================================================================================================
// LinkManager msgs: global policy

type LManScanRequest struct {
	Reply chan<- discovery.ScanVerdict
}

type LManScanDone struct{}

type LManConcurrencyChanged struct{}

type LManCoexChanged struct{}

type LManAntennaSwitch struct{}

type LManAssociationLost struct{}

type LManSetLowThroughput struct {
	Low bool
}

// ======================================================================================================
// LinkManager msgs: administration
//
// Every request carries a reply channel, which must be buffered.

type LManSetMode struct {
	Mode  link.Mode
	Reply chan<- error
}

type LManSetThresholds struct {
	Update config.ThresholdUpdate
	Reply  chan<- error
}

// PeerConfig is the administrative configuration of a forced peer.
type PeerConfig = peers.Config

type LManForce struct {
	Peer   hwaddr.HWAddr
	Config PeerConfig
	Reply  chan<- error
}

type LManUnforce struct {
	Peer  hwaddr.HWAddr
	Reply chan<- error
}

type LManConnect struct {
	Peer  hwaddr.HWAddr
	Reply chan<- error
}

type LManDisconnect struct {
	Peer  hwaddr.HWAddr
	Reply chan<- error
}

type LManAddPeer struct {
	Peer  hwaddr.HWAddr
	Reply chan<- error
}

type LManRemovePeer struct {
	Peer  hwaddr.HWAddr
	Reply chan<- error
}

type LManListPeers struct {
	Reply chan<- []peers.Snapshot
}

// ======================================================================================================
// Notifier msgs

type NotifyStateChange struct {
	Change link.StateChange

	// PeerCallback is the per-peer callback registered at the time of the change, if any.
	PeerCallback func(link.StateChange)
}
