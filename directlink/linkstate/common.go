package linkstate

import (
	"log/slog"

	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

type StateCommon struct {
	m    Manager
	h    peers.Handle
	peer hwaddr.HWAddr
}

// Initial returns the idle state for a freshly registered peer.
func Initial(m Manager, h peers.Handle, peer hwaddr.HWAddr) LinkState {
	return &Idle{StateCommon: &StateCommon{m: m, h: h, peer: peer}}
}

func (sc *StateCommon) Peer() hwaddr.HWAddr {
	return sc.peer
}

// rec resolves the peer's record. It is never nil while the state is installed,
// since the link manager drops states together with their records.
func (sc *StateCommon) rec() *peers.Record {
	return sc.m.Record(sc.h)
}

func (sc *StateCommon) ignore(event string) LinkState {
	slog.Debug("ignoring event in current link state",
		"peer", sc.peer.String(),
		"status", sc.rec().Status.String(),
		"event", event,
	)
	return nil
}

func (sc *StateCommon) OnTick() LinkState {
	return nil
}

func (sc *StateCommon) OnDiscover(bool) LinkState {
	return sc.ignore("discover")
}

func (sc *StateCommon) OnDiscoveryResponse(rssi int) LinkState {
	// Keep what we learned, even if it comes too late to matter.
	rec := sc.rec()
	rec.SetRSSI(rssi)
	rec.Capability = link.CapSupported

	return sc.ignore("discovery-response")
}

func (sc *StateCommon) OnDiscoveryTimeout() LinkState {
	return sc.ignore("discovery-timeout")
}

func (sc *StateCommon) OnAbandon() LinkState {
	return nil
}

func (sc *StateCommon) OnSetupResult(link.Reason) LinkState {
	return sc.ignore("setup-result")
}

func (sc *StateCommon) OnTeardown(link.TeardownReason, bool) LinkState {
	return nil
}

func (sc *StateCommon) OnTeardownAck() LinkState {
	return sc.ignore("teardown-ack")
}

// toIdle returns the peer to idle with a reason.
func (sc *StateCommon) toIdle(reason link.Reason) *Idle {
	sc.rec().Reason = reason
	return &Idle{StateCommon: sc}
}
