// Package directlink manages direct peer-to-peer links between stations associated to
// the same access point.
//
// One Manager runs per radio interface. It samples traffic, discovers capable peers,
// sets up and tears down links through the negotiation layer (Firmware), and asks the
// global connection policy (PolicySource) whether new links are allowed.
package directlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/edup2p/directlink/directlink/actors"
	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/directlink/metrics"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/ifaces"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
)

type (
	Config          = config.Config
	ThresholdUpdate = config.ThresholdUpdate
	PeerConfig      = peers.Config
	PeerCaps        = peers.Caps
	PeerSnapshot    = peers.Snapshot
	ScanVerdict     = discovery.ScanVerdict
)

// DefaultConfig returns a config with every field at its default, and links enabled.
func DefaultConfig() Config {
	return config.Default()
}

type Manager struct {
	stage *actors.Stage
	lman  *actors.LinkManager
}

// New creates a manager for one interface. cfg is best built from DefaultConfig; fields
// whose zero value is invalid get their defaults, everything else is taken as-is.
func New(ctx context.Context, cfg Config, fw ifaces.Firmware, ps ifaces.PolicySource, opts ...Option) (*Manager, error) {
	if fw == nil || ps == nil {
		return nil, errors.New("firmware and policy source are required")
	}

	o := options{iface: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var rec *metrics.Recorder
	if o.registerer != nil {
		rec = metrics.NewRecorder(o.registerer, o.iface)
	}

	s := actors.MakeStage(ctx, cfg, fw, ps, rec)

	return &Manager{
		stage: s,
		lman:  s.LMan,
	}, nil
}

func (m *Manager) Start() {
	m.stage.Start()
}

// Stop tears the manager down. Links are not torn down first; the caller is expected
// to be bringing the interface down.
func (m *Manager) Stop() {
	m.stage.Stop()
}

// RecordTx accounts a packet sent to peer. It never blocks; samples are dropped when
// the manager can't keep up.
func (m *Manager) RecordTx(peer hwaddr.HWAddr) {
	actors.TrySendMessage(m.lman.Inbox(), &msgactor.LManRecordTx{Peer: peer})
}

// RecordRx accounts a packet received from peer. See RecordTx.
func (m *Manager) RecordRx(peer hwaddr.HWAddr) {
	actors.TrySendMessage(m.lman.Inbox(), &msgactor.LManRecordRx{Peer: peer})
}

// send delivers an event, unless the manager has stopped.
func (m *Manager) send(msg msgactor.ActorMessage) {
	select {
	case m.lman.Inbox() <- msg:
	case <-m.lman.Ctx().Done():
	}
}

func (m *Manager) DiscoveryResponse(peer hwaddr.HWAddr, rssi int) {
	m.send(&msgactor.LManDiscoveryResponse{Peer: peer, RSSI: rssi})
}

// SetupResult reports the outcome of a setup request; link.ReasonSuccess for an established link.
func (m *Manager) SetupResult(peer hwaddr.HWAddr, reason link.Reason) {
	m.send(&msgactor.LManSetupResult{Peer: peer, Reason: reason})
}

func (m *Manager) TeardownAck(peer hwaddr.HWAddr) {
	m.send(&msgactor.LManTeardownAck{Peer: peer})
}

func (m *Manager) PeerCapabilities(peer hwaddr.HWAddr, caps PeerCaps) {
	m.send(&msgactor.LManPeerCapabilities{Peer: peer, Caps: caps})
}

func (m *Manager) UpdateRSSI(peer hwaddr.HWAddr, rssi int) {
	m.send(&msgactor.LManRSSIUpdate{Peer: peer, RSSI: rssi})
}

// RequestScan asks whether a scan may start now.
//
// A Reject verdict means a link is being set up; ask again later. A Defer verdict means
// links are being torn down for the scan; ask again after the verdict's delay. Once the
// answer is Allow, ScanDone must be called when the scan finishes.
func (m *Manager) RequestScan(ctx context.Context) (ScanVerdict, error) {
	reply := make(chan discovery.ScanVerdict, 1)

	if err := m.deliver(ctx, &msgactor.LManScanRequest{Reply: reply}); err != nil {
		return ScanVerdict{}, err
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return ScanVerdict{}, ctx.Err()
	case <-m.lman.Ctx().Done():
		return ScanVerdict{}, link.ErrStopped
	}
}

func (m *Manager) ScanDone() {
	m.send(&msgactor.LManScanDone{})
}

// ConcurrencyChanged tells the manager to re-check the number of concurrent sessions.
func (m *Manager) ConcurrencyChanged() {
	m.send(&msgactor.LManConcurrencyChanged{})
}

func (m *Manager) CoexChanged() {
	m.send(&msgactor.LManCoexChanged{})
}

func (m *Manager) AntennaSwitch() {
	m.send(&msgactor.LManAntennaSwitch{})
}

// AssociationLost drops all links and forgets every peer.
func (m *Manager) AssociationLost() {
	m.send(&msgactor.LManAssociationLost{})
}

// SetLowThroughput holds back automatic links while set.
func (m *Manager) SetLowThroughput(low bool) {
	m.send(&msgactor.LManSetLowThroughput{Low: low})
}

func (m *Manager) SetMode(ctx context.Context, mode link.Mode) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManSetMode{Mode: mode, Reply: reply}
	})
}

func (m *Manager) SetThresholds(ctx context.Context, u ThresholdUpdate) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManSetThresholds{Update: u, Reply: reply}
	})
}

// Force pins peer for direct-link use. Only permitted in external control mode.
func (m *Manager) Force(ctx context.Context, peer hwaddr.HWAddr, pc PeerConfig) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManForce{Peer: peer, Config: pc, Reply: reply}
	})
}

func (m *Manager) Unforce(ctx context.Context, peer hwaddr.HWAddr) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManUnforce{Peer: peer, Reply: reply}
	})
}

// Connect starts discovery with peer. It returns once the request is sent; the outcome
// is reported to state change listeners.
func (m *Manager) Connect(ctx context.Context, peer hwaddr.HWAddr) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManConnect{Peer: peer, Reply: reply}
	})
}

func (m *Manager) Disconnect(ctx context.Context, peer hwaddr.HWAddr) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManDisconnect{Peer: peer, Reply: reply}
	})
}

func (m *Manager) AddPeer(ctx context.Context, peer hwaddr.HWAddr) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManAddPeer{Peer: peer, Reply: reply}
	})
}

// RemovePeer forgets peer. Peers with a link up or being set up can't be removed.
func (m *Manager) RemovePeer(ctx context.Context, peer hwaddr.HWAddr) error {
	return m.request(ctx, func(reply chan<- error) msgactor.ActorMessage {
		return &msgactor.LManRemovePeer{Peer: peer, Reply: reply}
	})
}

// Peers returns a snapshot of every known peer.
func (m *Manager) Peers(ctx context.Context) ([]PeerSnapshot, error) {
	reply := make(chan []peers.Snapshot, 1)

	if err := m.deliver(ctx, &msgactor.LManListPeers{Reply: reply}); err != nil {
		return nil, err
	}

	select {
	case l := <-reply:
		return l, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.lman.Ctx().Done():
		return nil, link.ErrStopped
	}
}

// IsConnected reports whether peer has a link up. It does not wait for the manager.
func (m *Manager) IsConnected(peer hwaddr.HWAddr) bool {
	return m.lman.View().IsConnected(peer)
}

// ConnectedCount is the number of links up. It does not wait for the manager.
func (m *Manager) ConnectedCount() int {
	return m.lman.View().ConnectedCount()
}

// Mode is the mode in effect, which is disabled while a scan holds links back.
func (m *Manager) Mode() link.Mode {
	return m.lman.View().Mode
}

func (m *Manager) deliver(ctx context.Context, msg msgactor.ActorMessage) error {
	select {
	case m.lman.Inbox() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.lman.Ctx().Done():
		return link.ErrStopped
	}
}

func (m *Manager) request(ctx context.Context, mk func(reply chan<- error) msgactor.ActorMessage) error {
	reply := make(chan error, 1)

	if err := m.deliver(ctx, mk(reply)); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.lman.Ctx().Done():
		return link.ErrStopped
	}
}
