package actors

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/directlink/linkstate"
	"github.com/edup2p/directlink/directlink/metrics"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/directlink/policy"
	"github.com/edup2p/directlink/directlink/tracker"
	"github.com/edup2p/directlink/types"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/ifaces"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"
)

// LinkManager owns all direct-link state of one radio interface.
//
// Every mutation happens on its Run loop: traffic samples, firmware deliveries, timers and
// administrative requests all arrive as messages in its inbox.
type LinkManager struct {
	*ActorCommon
	s *Stage

	cfg     config.Config
	fw      ifaces.Firmware
	ps      ifaces.PolicySource
	metrics *metrics.Recorder

	registry *peers.Registry
	tracker  *tracker.Tracker
	disc     *discovery.Coordinator
	scan     *discovery.ScanArbiter

	peerState map[hwaddr.HWAddr]linkstate.LinkState

	mode link.Mode
	// mode to restore once a scan that suspended us is done
	savedMode     link.Mode
	scanSuspended bool
	lowThroughput bool

	sampler *time.Ticker // TxPeriod
	ticker  *time.Ticker // LManStateTickInterval
	poke    chan interface{}

	rlStore limiter.Store

	view  atomic.Pointer[View]
	dirty bool
}

func (s *Stage) makeLM(cfg config.Config, fw ifaces.Firmware, ps ifaces.PolicySource, rec *metrics.Recorder) *LinkManager {
	store, err := memorystore.New(&memorystore.Config{
		// Number of tokens allowed per interval.
		Tokens: 1,

		// Interval until tokens reset.
		Interval: UnknownPeerWarnInterval,

		SweepInterval: 1 * time.Minute,
		SweepMinTTL:   1 * time.Minute,
	})
	if err != nil {
		panic(err)
	}

	lm := &LinkManager{
		ActorCommon: MakeCommon(s.Ctx, LinkManInboxChLen),
		s:           s,

		cfg:     cfg,
		fw:      fw,
		ps:      ps,
		metrics: rec,

		registry: peers.NewRegistry(cfg.MaxPeers),
		tracker:  tracker.New(cfg.TrackerCapacity, cfg.TrackerAgeOut),
		scan:     discovery.NewScanArbiter(cfg.MaxScanRejects, cfg.MaxScanSchedules),

		peerState: make(map[hwaddr.HWAddr]linkstate.LinkState),

		mode: cfg.Mode,

		sampler: time.NewTicker(cfg.TxPeriod),
		ticker:  time.NewTicker(LManStateTickInterval),
		poke:    make(chan interface{}, 1),

		rlStore: store,
	}

	lm.disc = discovery.NewCoordinator(cfg.DiscoveryTimeout(), func(seq uint64) {
		lm.sendSelf(&msgactor.LManDiscoveryTimeout{Seq: seq})
	})

	lm.tracker.OnDrop = func(hwaddr.HWAddr) {
		lm.metrics.ObserveTrackerDrop()
	}
	lm.tracker.OnEvict = func(hwaddr.HWAddr) {
		lm.metrics.ObserveTrackerEviction()
	}

	lm.dirty = true
	lm.publish()

	return lm
}

func (lm *LinkManager) Run() {
	defer func() {
		if v := recover(); v != nil {
			L(lm).Error("panicked", "panic", v, "stack", string(debug.Stack()))
			lm.Cancel()
			lm.Close()
		}
	}()

	if !lm.running.CheckOrMark() {
		L(lm).Warn("tried to run agent, while already running")
		return
	}

	for {
		select {
		case <-lm.ctx.Done():
			lm.Close()
			return
		case <-lm.sampler.C:
			// Sample before the inbox, so a backed-up inbox doesn't stretch the sampling window.
			lm.DoSampling()
		case <-lm.ticker.C:
			lm.DoStateTick()
		case m := <-lm.inbox:
			lm.Handle(m)
		case <-lm.poke:
			lm.DoStateTick()
		}

		lm.publish()
	}
}

func (lm *LinkManager) Handle(m msgactor.ActorMessage) {
	switch m := m.(type) {
	case *msgactor.LManRecordTx:
		lm.recordTraffic(m.Peer, true)
	case *msgactor.LManRecordRx:
		lm.recordTraffic(m.Peer, false)

	case *msgactor.LManDiscoveryResponse:
		lm.onDiscoveryResponse(m)
	case *msgactor.LManSetupResult:
		lm.onSetupResult(m)
	case *msgactor.LManTeardownAck:
		lm.onTeardownAck(m)
	case *msgactor.LManPeerCapabilities:
		lm.onPeerCapabilities(m)
	case *msgactor.LManRSSIUpdate:
		lm.onRSSIUpdate(m)

	case *msgactor.LManDiscoveryTimeout:
		lm.onDiscoveryTimeout(m)
	case *msgactor.LManIdleExpired:
		lm.onIdleExpired(m)

	case *msgactor.LManScanRequest:
		lm.onScanRequest(m)
	case *msgactor.LManScanDone:
		lm.onScanDone()
	case *msgactor.LManConcurrencyChanged:
		lm.onConcurrencyChanged()
	case *msgactor.LManCoexChanged:
		lm.onCoexChanged()
	case *msgactor.LManAntennaSwitch:
		lm.teardownAll(link.TeardownAntennaSwitch)
	case *msgactor.LManAssociationLost:
		lm.onAssociationLost()
	case *msgactor.LManSetLowThroughput:
		lm.lowThroughput = m.Low

	case *msgactor.LManSetMode:
		reply(m.Reply, lm.onSetMode(m.Mode))
	case *msgactor.LManSetThresholds:
		reply(m.Reply, lm.onSetThresholds(m.Update))
	case *msgactor.LManForce:
		reply(m.Reply, lm.onForce(m.Peer, m.Config))
	case *msgactor.LManUnforce:
		reply(m.Reply, lm.onUnforce(m.Peer))
	case *msgactor.LManConnect:
		reply(m.Reply, lm.onConnect(m.Peer))
	case *msgactor.LManDisconnect:
		reply(m.Reply, lm.onDisconnect(m.Peer))
	case *msgactor.LManAddPeer:
		reply(m.Reply, lm.onAddPeer(m.Peer))
	case *msgactor.LManRemovePeer:
		reply(m.Reply, lm.onRemovePeer(m.Peer))
	case *msgactor.LManListPeers:
		m.Reply <- lm.registry.Snapshots()

	default:
		lm.logUnknownMessage(m)
	}
}

func reply(ch chan<- error, err error) {
	if ch != nil {
		ch <- err
	}
}

// sendSelf queues a message from a timer goroutine.
func (lm *LinkManager) sendSelf(msg msgactor.ActorMessage) {
	select {
	case lm.inbox <- msg:
	case <-lm.ctx.Done():
	}
}

func (lm *LinkManager) DoStateTick() {
	// Range over a copy of the keys, states may get removed while ticking.
	for _, peer := range types.SortedKeysFunc(lm.peerState, hwaddr.HWAddr.Compare) {
		lm.forState(peer, func(s linkstate.LinkState) linkstate.LinkState {
			return s.OnTick()
		})
	}
}

// Poke is a convenience method to have LMan poke OnTick for states ASAP
// (after message queues get cleared).
func (lm *LinkManager) Poke() {
	// Non-blocking channel send
	select {
	case lm.poke <- nil:
	default:
	}
}

type StateForState func(state linkstate.LinkState) linkstate.LinkState

func (lm *LinkManager) forState(peer hwaddr.HWAddr, fn StateForState) {
	state, ok := lm.peerState[peer]
	if !ok {
		return
	}

	if state == nil {
		// !! this should never happen, but we recover regardless
		L(lm).Error("peer has nil state, resetting", "peer", peer.String())
		if rec, ok := lm.registry.Find(peer); ok {
			rec.Status = link.Idle
			lm.peerState[peer] = linkstate.Initial(lm, rec.Handle(), peer)
		} else {
			delete(lm.peerState, peer)
		}
		return
	}

	if newState := fn(state); newState != nil {
		lm.transition(state, newState)
	}
}

// transition installs a new state and runs everything that hangs off a status change.
func (lm *LinkManager) transition(from, to linkstate.LinkState) {
	peer := from.Peer()

	rec, ok := lm.registry.Find(peer)
	if !ok {
		L(lm).Error("transition for peer without record", "peer", peer.String())
		return
	}

	if !link.CanTransition(from.Status(), to.Status()) {
		L(lm).Error("refusing invalid link state transition",
			"peer", peer.String(), "from", from.Name(), "to", to.Name())
		return
	}

	lm.peerState[peer] = to
	rec.Status = to.Status()
	lm.dirty = true

	lm.metrics.ObserveTransition(from.Name(), to.Name())

	switch to.Status() {
	case link.Discovered:
		// Discovery is done; setup may wait on the policy gate for a long time.
		lm.disc.Release(peer)
	case link.Connected:
		lm.disc.Release(peer)
		rec.ArmIdle(lm.cfg.IdleTimeout, lm.idleFire)
	case link.Tearing:
		rec.DisarmIdle()
		lm.metrics.ObserveTeardown(rec.TeardownReason.String())
	case link.Idle:
		lm.disc.Release(peer)
		rec.DisarmIdle()
	}

	lm.notify(rec, from.Status())
}

func (lm *LinkManager) idleFire(peer hwaddr.HWAddr, gen uint64) {
	lm.sendSelf(&msgactor.LManIdleExpired{Peer: peer, Gen: gen})
}

// notify hands a state change to the notifier, with the peer's callback as it is right now.
func (lm *LinkManager) notify(rec *peers.Record, prev link.Status) {
	c := link.StateChange{
		Addr:    rec.Addr,
		Channel: lm.cfg.OperatingChannel,
		State:   link.NotifyStateFor(rec.Status, lm.cfg.OffChannelEnabled),
		Status:  rec.Status,
		Reason:  rec.Reason,
	}

	if lm.cfg.OffChannelEnabled {
		c.Channel, c.OpClass = lm.offChannelFor(rec)
	}

	switch {
	case rec.Status == link.Tearing:
		c.Teardown = rec.TeardownReason
	case rec.Status == link.Idle && prev == link.Tearing:
		c.Teardown = rec.TeardownReason
		if !lm.mode.Active() {
			c.State = link.NotifyDisabled
		}
	case rec.Status == link.Idle && prev == link.Connecting && rec.Reason != link.ReasonSuccess:
		c.State = link.NotifyFailed
	case !lm.mode.Active():
		c.State = link.NotifyDisabled
	}

	msg := &msgactor.NotifyStateChange{Change: c, PeerCallback: rec.Callback}

	select {
	case lm.s.Notifier.Inbox() <- msg:
	case <-lm.s.Notifier.Ctx().Done():
	case <-lm.ctx.Done():
	}
}

func (lm *LinkManager) offChannelFor(rec *peers.Record) (channel, opClass uint8) {
	if rec.Forced && rec.OffChannel != 0 {
		return rec.OffChannel, rec.OffChannelOpClass
	}
	return lm.cfg.PreferredOffChannel, lm.cfg.OffChannelOpClass
}

// ensurePeerState makes sure a registered peer has a state object.
func (lm *LinkManager) ensurePeerState(rec *peers.Record) {
	if s, ok := lm.peerState[rec.Addr]; ok && s != nil {
		return
	}

	lm.peerState[rec.Addr] = linkstate.Initial(lm, rec.Handle(), rec.Addr)
	lm.dirty = true
}

// upsert registers a peer, and gives it a state.
func (lm *LinkManager) upsert(peer hwaddr.HWAddr) (*peers.Record, error) {
	h, err := lm.registry.Upsert(peer)
	if err != nil {
		return nil, err
	}

	rec := lm.registry.Get(h)
	lm.ensurePeerState(rec)

	return rec, nil
}

func (lm *LinkManager) removePeer(peer hwaddr.HWAddr) {
	lm.disc.Release(peer)
	lm.tracker.Remove(peer)
	lm.registry.Remove(peer)
	delete(lm.peerState, peer)

	lm.dirty = true
}

// Record, Config, Firmware, MayConnect and Poke make up linkstate.Manager.

func (lm *LinkManager) Record(h peers.Handle) *peers.Record {
	return lm.registry.Get(h)
}

func (lm *LinkManager) Config() *config.Config {
	return &lm.cfg
}

func (lm *LinkManager) Firmware() ifaces.Firmware {
	return lm.fw
}

func (lm *LinkManager) MayConnect(rec *peers.Record) bool {
	in := lm.policyInputs(rec.Forced)

	var v policy.Verdict
	if rec.Explicit {
		v = policy.CheckExplicit(in)
	} else {
		v = policy.CheckImplicit(in)
	}

	if v != policy.Permitted {
		L(lm).Log(context.Background(), types.LevelTrace, "setup held back by policy",
			"peer", rec.Addr.String(), "verdict", v.String())
		lm.metrics.ObservePolicyDenied(v.String())
		return false
	}

	return true
}

// policyInputs gathers the gate's inputs fresh from the policy source and our own state.
func (lm *LinkManager) policyInputs(forced bool) policy.Inputs {
	return policy.Inputs{
		Mode:               lm.mode,
		PeerForced:         forced,
		ConcurrentSessions: lm.ps.ConcurrentSessions(),
		ConnectedLinks:     lm.registry.CountInState(peers.InStatus(link.Connected)),
		MaxLinks:           lm.cfg.MaxLinks,
		ScanInProgress:     lm.scan.InProgress() || lm.ps.ScanInProgress(),
		CoexRestricted:     lm.ps.CoexRestricted(),
		AntennaRestricted:  lm.ps.AntennaRestricted(),
		LowThroughput:      lm.lowThroughput,
	}
}

// warnUnknown logs an event for an address we have no record of, at most once per
// interval per event kind and address.
func (lm *LinkManager) warnUnknown(event string, peer hwaddr.HWAddr) {
	lm.metrics.ObserveUnknownPeer(event)

	if _, _, _, ok, _ := lm.rlStore.Take(context.Background(), event+"/"+peer.String()); !ok {
		return
	}

	L(lm).Warn("ignoring event for unknown peer", "event", event, "peer", peer.String())
}

// View returns the most recently published snapshot.
func (lm *LinkManager) View() *View {
	return lm.view.Load()
}

func (lm *LinkManager) publish() {
	if !lm.dirty {
		return
	}
	lm.dirty = false

	v := &View{
		Mode:      lm.mode,
		Peers:     lm.registry.Count(),
		connected: make(map[hwaddr.HWAddr]struct{}),
	}
	lm.registry.Each(func(rec *peers.Record) {
		if rec.Status == link.Connected {
			v.connected[rec.Addr] = struct{}{}
		}
	})

	lm.view.Store(v)

	lm.metrics.SetPeers(v.Peers)
	lm.metrics.SetLinks(len(v.connected))
}

func (lm *LinkManager) Close() {
	lm.sampler.Stop()
	lm.ticker.Stop()
	lm.disc.Reset()
	lm.registry.Each(func(rec *peers.Record) {
		rec.DisarmIdle()
	})

	if err := lm.rlStore.Close(context.Background()); err != nil {
		L(lm).Warn("could not close rate limiter", "err", err)
	}
}
