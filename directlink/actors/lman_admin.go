package actors

import (
	"fmt"

	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/linkstate"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/directlink/policy"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
)

func (lm *LinkManager) onSetMode(mode link.Mode) error {
	if mode > link.ModeExternalControl {
		return fmt.Errorf("unknown mode %d", mode)
	}

	// A scan has us disabled, the new mode takes over once it is done.
	if lm.scanSuspended {
		lm.savedMode = mode
		return nil
	}

	lm.setMode(mode)
	return nil
}

func (lm *LinkManager) setMode(mode link.Mode) {
	prev := lm.mode
	if prev == mode {
		return
	}

	L(lm).Info("changing mode", "from", prev.String(), "to", mode.String())

	lm.mode = mode
	lm.dirty = true

	switch {
	case mode.Implicit() && !prev.Implicit():
		lm.implicitEnable()
	case !mode.Implicit() && prev.Implicit():
		lm.implicitDisable()
	}

	if !mode.Active() {
		lm.teardownAll(link.TeardownExtCtrl)
		lm.abandonHandshakes()
	}
}

// implicitEnable starts traffic sampling from a clean slate.
func (lm *LinkManager) implicitEnable() {
	lm.tracker.Reset()

	lm.registry.Each(func(rec *peers.Record) {
		rec.DiscoveryProcessed = false
		rec.ResetCounters()

		if rec.Status == link.Idle {
			rec.DiscoveryAttempts = 0
			if rec.Capability == link.CapNotSupported {
				rec.Capability = link.CapUnknown
			}
		}
	})
}

// implicitDisable stops an implicit discovery that is still waiting for its response.
func (lm *LinkManager) implicitDisable() {
	cur, ok := lm.disc.Current()
	if !ok {
		return
	}

	rec, ok := lm.registry.Find(cur)
	if !ok || rec.Explicit || rec.Status != link.Discovering {
		return
	}

	lm.disc.Abandon()
	lm.forState(cur, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnAbandon()
	})
}

func (lm *LinkManager) onSetThresholds(u config.ThresholdUpdate) error {
	cfg, err := lm.cfg.Apply(u)
	if err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	if cfg.TxPeriod != lm.cfg.TxPeriod {
		lm.sampler.Reset(cfg.TxPeriod)
	}

	lm.cfg = cfg
	lm.disc.SetTimeout(cfg.DiscoveryTimeout())

	return nil
}

func (lm *LinkManager) onForce(peer hwaddr.HWAddr, pc msgactor.PeerConfig) error {
	if lm.mode != link.ModeExternalControl {
		return fmt.Errorf("force %s: %w", peer, link.ErrNotPermitted)
	}

	rec, err := lm.upsert(peer)
	if err != nil {
		return fmt.Errorf("force %s: %w", peer, err)
	}

	ch := lm.cfg.PreferredOffChannel
	if pc.OffChannel.Valid {
		ch = pc.OffChannel.Val
	}
	op := lm.cfg.OffChannelOpClass
	if pc.OffChannelOpClass.Valid {
		op = pc.OffChannelOpClass.Val
	}

	if config.IsDFSChannel(ch) {
		L(lm).Warn("preferred off-channel is a DFS channel, using default",
			"peer", peer.String(), "channel", ch)
		ch, op = config.DefaultPreferredOffChannel, config.DefaultOffChannelOpClass
	}

	rec.Forced = true
	rec.OffChannel = ch
	rec.OffChannelOpClass = op
	rec.Callback = pc.Callback

	lm.dirty = true
	lm.Poke()

	return nil
}

func (lm *LinkManager) onUnforce(peer hwaddr.HWAddr) error {
	rec, ok := lm.registry.Find(peer)
	if !ok {
		return fmt.Errorf("unforce %s: %w", peer, link.ErrNotFound)
	}

	if rec.Status == link.Connected || rec.Status == link.Connecting {
		// The callback still gets to hear about this teardown.
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnTeardown(link.TeardownExtCtrl, true)
		})
	}

	rec.Forced = false
	rec.OffChannel = 0
	rec.OffChannelOpClass = 0
	rec.Callback = nil

	lm.dirty = true

	return nil
}

func (lm *LinkManager) onConnect(peer hwaddr.HWAddr) error {
	if !lm.mode.Active() {
		return fmt.Errorf("connect %s: %w", peer, link.ErrNotPermitted)
	}

	rec, err := lm.upsert(peer)
	if err != nil {
		return fmt.Errorf("connect %s: %w", peer, err)
	}

	if rec.Status != link.Idle {
		return fmt.Errorf("connect %s (%s): %w", peer, rec.Status, link.ErrInvalidState)
	}

	if v := policy.CheckExplicit(lm.policyInputs(rec.Forced)); v != policy.Permitted {
		lm.metrics.ObservePolicyDenied(v.String())
		return fmt.Errorf("connect %s (%s): %w", peer, v, link.ErrNotPermitted)
	}

	if err := lm.startDiscovery(rec, true); err != nil {
		return fmt.Errorf("connect %s: %w", peer, err)
	}

	return nil
}

func (lm *LinkManager) onDisconnect(peer hwaddr.HWAddr) error {
	rec, ok := lm.registry.Find(peer)
	if !ok {
		return fmt.Errorf("disconnect %s: %w", peer, link.ErrNotFound)
	}

	if rec.Status != link.Connected && rec.Status != link.Connecting {
		return fmt.Errorf("disconnect %s (%s): %w", peer, rec.Status, link.ErrInvalidState)
	}

	lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
		return s.OnTeardown(link.TeardownExtCtrl, true)
	})

	return nil
}

func (lm *LinkManager) onAddPeer(peer hwaddr.HWAddr) error {
	if _, err := lm.upsert(peer); err != nil {
		return fmt.Errorf("add %s: %w", peer, err)
	}
	return nil
}

func (lm *LinkManager) onRemovePeer(peer hwaddr.HWAddr) error {
	rec, ok := lm.registry.Find(peer)
	if !ok {
		return nil
	}

	if rec.Status == link.Connected || rec.Status == link.Connecting {
		return fmt.Errorf("remove %s (%s): %w", peer, rec.Status, link.ErrPeerActive)
	}

	lm.removePeer(peer)
	return nil
}
