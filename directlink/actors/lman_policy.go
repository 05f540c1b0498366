package actors

import (
	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/directlink/linkstate"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
)

func (lm *LinkManager) onScanRequest(m *msgactor.LManScanRequest) {
	busy := lm.registry.CountInState(handshaking) > 0

	tear := lm.linksToTearForScan()
	linksUp := len(tear) + lm.registry.CountInState(peers.InStatus(link.Tearing))

	v, abandon := lm.scan.Request(discovery.ScanRequest{
		CandidateBusy: busy,
		LinksUp:       linksUp,
		DelayPerLink:  lm.cfg.ScanDelayPerLink,
	})

	if abandon {
		L(lm).Info("scan reject budget exhausted, abandoning handshakes")
		lm.abandonHandshakes()
	}

	if v.Kind == discovery.Defer {
		lm.suspendForScan()
		for _, peer := range tear {
			lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
				return s.OnTeardown(link.TeardownScan, false)
			})
		}
	}

	L(lm).Debug("scan request", "verdict", v.String(), "links", linksUp)
	lm.metrics.ObserveScanVerdict(v.Kind.String())

	m.Reply <- v
}

// linksToTearForScan lists the connected peers that have to go before a scan.
func (lm *LinkManager) linksToTearForScan() []hwaddr.HWAddr {
	if lm.cfg.ScanWithLinks {
		return nil
	}

	var connected []*peers.Record
	lm.registry.Each(func(rec *peers.Record) {
		if rec.Status == link.Connected {
			connected = append(connected, rec)
		}
	})

	// A single buffer-STA peer can sleep through the scan.
	if len(connected) == 1 && lm.cfg.SleepSTACapable && connected[0].BufferSTA {
		return nil
	}

	out := make([]hwaddr.HWAddr, 0, len(connected))
	for _, rec := range connected {
		out = append(out, rec.Addr)
	}
	return out
}

// suspendForScan disables links until the scan is done, remembering the mode to go back to.
func (lm *LinkManager) suspendForScan() {
	if lm.scanSuspended {
		return
	}

	lm.savedMode = lm.mode
	lm.scanSuspended = true
	lm.mode = link.ModeDisabled
	lm.dirty = true
}

func (lm *LinkManager) onScanDone() {
	lm.scan.Done()

	if lm.scanSuspended {
		lm.scanSuspended = false
		lm.setMode(lm.savedMode)
	}
}

func handshaking(rec *peers.Record) bool {
	return rec.Status == link.Discovering || rec.Status == link.Connecting
}

// abandonHandshakes gives up on the discovery candidate and every setup still in flight.
func (lm *LinkManager) abandonHandshakes() {
	lm.disc.Abandon()

	var addrs []hwaddr.HWAddr
	lm.registry.Each(func(rec *peers.Record) {
		if handshaking(rec) {
			addrs = append(addrs, rec.Addr)
		}
	})

	for _, peer := range addrs {
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnAbandon()
		})
	}
}

func (lm *LinkManager) onConcurrencyChanged() {
	if n := lm.ps.ConcurrentSessions(); n > 1 {
		L(lm).Info("concurrent sessions active, dropping links", "sessions", n)
		lm.teardownAll(link.TeardownConcurrency)
	}
}

func (lm *LinkManager) onCoexChanged() {
	if lm.ps.CoexRestricted() {
		lm.teardownAll(link.TeardownBTCoex)
	}
}

// teardownAll tears down every link that is up or being set up.
func (lm *LinkManager) teardownAll(reason link.TeardownReason) {
	var addrs []hwaddr.HWAddr
	lm.registry.Each(func(rec *peers.Record) {
		if rec.Status == link.Connected || rec.Status == link.Connecting {
			addrs = append(addrs, rec.Addr)
		}
	})

	for _, peer := range addrs {
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnTeardown(reason, false)
		})
	}
}

// onAssociationLost drops everything: without the access point, no peer is reachable.
func (lm *LinkManager) onAssociationLost() {
	L(lm).Info("association lost, dropping all peers", "peers", lm.registry.Count())

	var addrs []hwaddr.HWAddr
	lm.registry.Each(func(rec *peers.Record) {
		addrs = append(addrs, rec.Addr)
	})

	for _, peer := range addrs {
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnTeardown(link.TeardownBSSDisconnect, false)
		})
		// Nothing will acknowledge the teardown.
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			if s.Status() == link.Tearing {
				return s.OnTeardownAck()
			}
			return nil
		})
	}

	lm.disc.Reset()
	lm.tracker.Reset()
	lm.scan.Reset()
	lm.registry.Clear()
	clear(lm.peerState)

	if lm.scanSuspended {
		lm.scanSuspended = false
		lm.mode = lm.savedMode
	}

	lm.dirty = true
}
