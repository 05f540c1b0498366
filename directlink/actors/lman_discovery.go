package actors

import (
	"slices"

	"github.com/edup2p/directlink/directlink/linkstate"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
)

func (lm *LinkManager) onDiscoveryResponse(m *msgactor.LManDiscoveryResponse) {
	lm.metrics.ObserveDiscoveryResponse()

	current := lm.disc.OnResponse(m.Peer)

	// Responses from peers we aren't discovering are kept for future candidacy.
	rec, err := lm.upsert(m.Peer)
	if err != nil {
		L(lm).Warn("could not record discovery response", "peer", m.Peer.String(), "err", err)
		return
	}

	if !current {
		rec.SetRSSI(m.RSSI)
		rec.Capability = link.CapSupported
		lm.dirty = true
		return
	}

	lm.forState(m.Peer, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnDiscoveryResponse(m.RSSI)
	})
}

func (lm *LinkManager) onDiscoveryTimeout(m *msgactor.LManDiscoveryTimeout) {
	peer, ok := lm.disc.OnTimeout(m.Seq)
	if !ok {
		return
	}

	L(lm).Debug("discovery timed out", "peer", peer.String())
	lm.metrics.ObserveDiscoveryTimeout()

	lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnDiscoveryTimeout()
	})
}

func (lm *LinkManager) onSetupResult(m *msgactor.LManSetupResult) {
	if _, ok := lm.registry.Find(m.Peer); !ok {
		lm.warnUnknown("setup-result", m.Peer)
		return
	}

	lm.forState(m.Peer, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnSetupResult(m.Reason)
	})
}

func (lm *LinkManager) onTeardownAck(m *msgactor.LManTeardownAck) {
	if _, ok := lm.registry.Find(m.Peer); !ok {
		lm.warnUnknown("teardown-ack", m.Peer)
		return
	}

	lm.forState(m.Peer, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnTeardownAck()
	})
}

func (lm *LinkManager) onPeerCapabilities(m *msgactor.LManPeerCapabilities) {
	rec, ok := lm.registry.Find(m.Peer)
	if !ok {
		lm.warnUnknown("capabilities", m.Peer)
		return
	}

	caps := m.Caps
	caps.SupportedChannels = slices.Clone(caps.SupportedChannels)
	caps.SupportedOpClasses = slices.Clone(caps.SupportedOpClasses)

	rec.Caps = caps
	lm.dirty = true
}

func (lm *LinkManager) onRSSIUpdate(m *msgactor.LManRSSIUpdate) {
	rec, ok := lm.registry.Find(m.Peer)
	if !ok {
		lm.warnUnknown("rssi", m.Peer)
		return
	}

	rec.SetRSSI(m.RSSI)
	lm.dirty = true
}
