package directlink

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assertEventuallyTick = 5 * time.Millisecond
const assertEventuallyTimeout = 2 * time.Second

var peerA = hwaddr.MustParse("02:00:00:00:00:0a")

// echoFirmware answers every request the way a cooperative peer would.
type echoFirmware struct {
	m *Manager

	mu        sync.Mutex
	teardowns []link.TeardownReason
}

func (f *echoFirmware) SendDiscovery(peer hwaddr.HWAddr) error {
	go f.m.DiscoveryResponse(peer, -40)
	return nil
}

func (f *echoFirmware) SendSetup(peer hwaddr.HWAddr) error {
	go f.m.SetupResult(peer, link.ReasonSuccess)
	return nil
}

func (f *echoFirmware) SendTeardown(peer hwaddr.HWAddr, reason link.TeardownReason) error {
	f.mu.Lock()
	f.teardowns = append(f.teardowns, reason)
	f.mu.Unlock()

	go f.m.TeardownAck(peer)
	return nil
}

type quietPolicy struct{}

func (quietPolicy) ScanInProgress() bool    { return false }
func (quietPolicy) ConcurrentSessions() int { return 1 }
func (quietPolicy) CoexRestricted() bool    { return false }
func (quietPolicy) AntennaRestricted() bool { return false }

func startManager(t *testing.T, cfg Config) (*Manager, *echoFirmware) {
	fw := &echoFirmware{}

	m, err := New(context.Background(), cfg, fw, quietPolicy{},
		WithMetrics(prometheus.NewRegistry()), WithInterface("wlan0"))
	require.NoError(t, err)

	fw.m = m
	m.Start()
	t.Cleanup(m.Stop)

	return m, fw
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RSSIDelta = 10

	_, err := New(context.Background(), cfg, &echoFirmware{}, quietPolicy{})
	assert.Error(t, err)

	_, err = New(context.Background(), DefaultConfig(), nil, quietPolicy{})
	assert.Error(t, err)
}

func TestManagerExplicitLink(t *testing.T) {
	m, fw := startManager(t, DefaultConfig())
	ctx := context.Background()

	var mu sync.Mutex
	var states []link.NotifyState
	m.RegisterStateChangeListener(func(sc link.StateChange) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, sc.State)
	})

	require.NoError(t, m.Connect(ctx, peerA))

	assert.Eventually(t, func() bool {
		return m.IsConnected(peerA)
	}, assertEventuallyTimeout, assertEventuallyTick)
	assert.Equal(t, 1, m.ConnectedCount())

	list, err := m.Peers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, link.Connected, list[0].Status)
	assert.Equal(t, -40, list[0].RSSI.Val)

	assert.ErrorIs(t, m.RemovePeer(ctx, peerA), link.ErrPeerActive)

	require.NoError(t, m.Disconnect(ctx, peerA))
	assert.Eventually(t, func() bool {
		list, err := m.Peers(ctx)
		return err == nil && len(list) == 1 && list[0].Status == link.Idle
	}, assertEventuallyTimeout, assertEventuallyTick)
	assert.False(t, m.IsConnected(peerA))

	fw.mu.Lock()
	assert.Equal(t, []link.TeardownReason{link.TeardownExtCtrl}, fw.teardowns)
	fw.mu.Unlock()

	require.NoError(t, m.RemovePeer(ctx, peerA))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(states, link.NotifyEstablished) && slices.Contains(states, link.NotifyDropped)
	}, assertEventuallyTimeout, assertEventuallyTick)
}

func TestManagerScan(t *testing.T) {
	m, _ := startManager(t, DefaultConfig())

	v, err := m.RequestScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, discovery.Allow, v.Kind)

	m.ScanDone()
}

func TestManagerModes(t *testing.T) {
	m, _ := startManager(t, DefaultConfig())
	ctx := context.Background()

	assert.ErrorIs(t, m.Force(ctx, peerA, PeerConfig{}), link.ErrNotPermitted)

	require.NoError(t, m.SetMode(ctx, link.ModeExternalControl))
	assert.Eventually(t, func() bool {
		return m.Mode() == link.ModeExternalControl
	}, assertEventuallyTimeout, assertEventuallyTick)

	require.NoError(t, m.Force(ctx, peerA, PeerConfig{}))
	require.NoError(t, m.Unforce(ctx, peerA))

	require.NoError(t, m.SetMode(ctx, link.ModeDisabled))
	assert.ErrorIs(t, m.Connect(ctx, peerA), link.ErrNotPermitted)
}

func TestManagerStopped(t *testing.T) {
	m, _ := startManager(t, DefaultConfig())

	m.Stop()

	assert.Eventually(t, func() bool {
		return errors.Is(m.AddPeer(context.Background(), peerA), link.ErrStopped)
	}, assertEventuallyTimeout, assertEventuallyTick)
}
