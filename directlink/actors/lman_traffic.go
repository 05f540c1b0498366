package actors

import (
	"fmt"
	"time"

	"github.com/edup2p/directlink/directlink/linkstate"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/directlink/policy"
	"github.com/edup2p/directlink/directlink/tracker"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
)

func (lm *LinkManager) recordTraffic(peer hwaddr.HWAddr, tx bool) {
	rec, known := lm.registry.Find(peer)

	if tx {
		lm.tracker.RecordTx(peer)
		if known {
			rec.TxPackets++
		}
	} else {
		lm.tracker.RecordRx(peer)
		if known {
			rec.RxPackets++
		}
	}
}

func (lm *LinkManager) thresholds() tracker.Thresholds {
	return tracker.Thresholds{
		TriggerPackets: lm.cfg.TriggerPackets,
		IdlePackets:    lm.cfg.IdlePackets,
		IdlePeriods:    lm.cfg.IdlePeriods(),
		RSSITeardown:   lm.cfg.RSSITeardown,
		RSSIDelta:      lm.cfg.RSSIDelta,
	}
}

func (lm *LinkManager) observe(peer hwaddr.HWAddr) tracker.Observation {
	var obs tracker.Observation

	if rec, ok := lm.registry.Find(peer); ok {
		obs = observationOf(rec)
	}

	obs.MayTrigger = policy.MayTriggerImplicit(lm.policyInputs(obs.Forced))

	return obs
}

func observationOf(rec *peers.Record) tracker.Observation {
	return tracker.Observation{
		Known:    true,
		Status:   rec.Status,
		Forced:   rec.Forced,
		HasRSSI:  rec.HasRSSI,
		RSSI:     rec.RSSI,
		PrevRSSI: rec.PrevRSSI,
	}
}

// DoSampling closes a sampling period: the tracker is evaluated and its recommendations acted upon.
func (lm *LinkManager) DoSampling() {
	for _, r := range lm.tracker.Evaluate(time.Now(), lm.thresholds(), lm.observe) {
		switch r.Kind {
		case tracker.Trigger:
			lm.implicitTrigger(r.Addr)
		case tracker.Teardown:
			L(lm).Info("tearing down link", "peer", r.Addr.String(), "reason", r.Reason.String())
			lm.forState(r.Addr, func(s linkstate.LinkState) linkstate.LinkState {
				return s.OnTeardown(r.Reason, false)
			})
		case tracker.Hold:
			if r.PolicyDenied {
				forced := false
				if rec, ok := lm.registry.Find(r.Addr); ok {
					forced = rec.Forced
				}
				lm.metrics.ObservePolicyDenied(policy.CheckImplicit(lm.policyInputs(forced)).String())
			}
		}
	}
}

// implicitTrigger starts discovery with a peer that crossed the traffic threshold.
func (lm *LinkManager) implicitTrigger(peer hwaddr.HWAddr) {
	if cur, busy := lm.disc.Current(); busy {
		L(lm).Debug("not triggering, discovery busy", "peer", peer.String(), "current", cur.String())
		return
	}

	rec, err := lm.upsert(peer)
	if err != nil {
		L(lm).Warn("could not register trigger candidate", "peer", peer.String(), "err", err)
		return
	}

	if rec.Status != link.Idle || rec.Capability == link.CapNotSupported {
		return
	}

	if !rec.Forced && rec.DiscoveryAttempts >= lm.cfg.MaxDiscoveryAttempts {
		L(lm).Info("giving up on peer after too many discovery attempts",
			"peer", peer.String(), "attempts", rec.DiscoveryAttempts)
		rec.Capability = link.CapNotSupported
		lm.dirty = true
		return
	}

	if err := lm.startDiscovery(rec, false); err != nil {
		L(lm).Debug("could not start discovery", "peer", peer.String(), "err", err)
	}
}

// startDiscovery makes rec the current candidate and sends it a discovery request.
func (lm *LinkManager) startDiscovery(rec *peers.Record, explicit bool) error {
	if err := lm.disc.StartDiscovery(rec.Addr); err != nil {
		return err
	}

	lm.forState(rec.Addr, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnDiscover(explicit)
	})

	if rec.Status != link.Discovering {
		lm.disc.Release(rec.Addr)
		return fmt.Errorf("discovery request for %s was not sent", rec.Addr)
	}

	lm.metrics.ObserveDiscovery()
	return nil
}

// onIdleExpired backs up the tracker for connected peers it has no entry for, such as
// when its table was full.
func (lm *LinkManager) onIdleExpired(m *msgactor.LManIdleExpired) {
	rec, ok := lm.registry.Find(m.Peer)
	if !ok || !rec.IdleCurrent(m.Gen) || rec.Status != link.Connected {
		return
	}

	if _, tracked := lm.tracker.Get(m.Peer); tracked {
		rec.ArmIdle(lm.cfg.IdleTimeout, lm.idleFire)
		return
	}

	reason := link.TeardownNone
	switch {
	case rec.TxPackets+rec.RxPackets < uint64(lm.cfg.IdlePackets):
		reason = link.TeardownTxRxThreshold
	case tracker.RSSIDegraded(observationOf(rec), lm.thresholds()):
		reason = link.TeardownRSSIThreshold
	}
	rec.ResetCounters()

	if reason != link.TeardownNone {
		lm.forState(m.Peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnTeardown(reason, false)
		})
	}

	if rec.Status == link.Connected {
		rec.ArmIdle(lm.cfg.IdleTimeout, lm.idleFire)
	}
}
