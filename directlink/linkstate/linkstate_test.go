package linkstate

import (
	"errors"
	"testing"
	"time"

	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/peers"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/ifaces"
	"github.com/edup2p/directlink/types/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyPeer = hwaddr.HWAddr{0x02, 0, 0, 0, 0, 0x01}

type fakeFirmware struct {
	discoveries []hwaddr.HWAddr
	setups      []hwaddr.HWAddr
	teardowns   []link.TeardownReason

	fail error
}

func (f *fakeFirmware) SendDiscovery(peer hwaddr.HWAddr) error {
	if f.fail != nil {
		return f.fail
	}
	f.discoveries = append(f.discoveries, peer)
	return nil
}

func (f *fakeFirmware) SendSetup(peer hwaddr.HWAddr) error {
	if f.fail != nil {
		return f.fail
	}
	f.setups = append(f.setups, peer)
	return nil
}

func (f *fakeFirmware) SendTeardown(_ hwaddr.HWAddr, reason link.TeardownReason) error {
	f.teardowns = append(f.teardowns, reason)
	return f.fail
}

type fakeManager struct {
	reg *peers.Registry
	cfg config.Config
	fw  *fakeFirmware

	mayConnect bool
	pokes      int
}

func (m *fakeManager) Record(h peers.Handle) *peers.Record { return m.reg.Get(h) }
func (m *fakeManager) Config() *config.Config              { return &m.cfg }
func (m *fakeManager) Firmware() ifaces.Firmware           { return m.fw }
func (m *fakeManager) MayConnect(*peers.Record) bool       { return m.mayConnect }
func (m *fakeManager) Poke()                               { m.pokes++ }

func setup(t *testing.T) (*fakeManager, *peers.Record, LinkState) {
	m := &fakeManager{
		reg:        peers.NewRegistry(4),
		cfg:        config.Default(),
		fw:         &fakeFirmware{},
		mayConnect: true,
	}

	h, err := m.reg.Upsert(dummyPeer)
	require.NoError(t, err)

	return m, m.reg.Get(h), Initial(m, h, dummyPeer)
}

// step applies a handler result the way the link manager does, and checks the edge.
func step(t *testing.T, rec *peers.Record, s LinkState, next LinkState) LinkState {
	t.Helper()

	if next == nil {
		return s
	}

	require.True(t, link.CanTransition(s.Status(), next.Status()), "%s -> %s", s.Name(), next.Name())
	rec.Status = next.Status()
	return next
}

func connect(t *testing.T, m *fakeManager, rec *peers.Record, s LinkState) LinkState {
	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryResponse(-40))
	s = step(t, rec, s, s.OnTick())
	s = step(t, rec, s, s.OnSetupResult(link.ReasonSuccess))
	require.Equal(t, link.Connected, s.Status())
	return s
}

func TestHappyPath(t *testing.T) {
	m, rec, s := setup(t)

	s = step(t, rec, s, s.OnDiscover(false))
	assert.Equal(t, link.Discovering, s.Status())
	assert.Equal(t, 1, rec.DiscoveryAttempts)
	assert.Equal(t, []hwaddr.HWAddr{dummyPeer}, m.fw.discoveries)

	s = step(t, rec, s, s.OnDiscoveryResponse(-40))
	assert.Equal(t, link.Discovered, s.Status())
	assert.Equal(t, link.CapSupported, rec.Capability)
	assert.True(t, rec.DiscoveryProcessed)
	assert.Equal(t, 1, m.pokes)

	s = step(t, rec, s, s.OnTick())
	assert.Equal(t, link.Connecting, s.Status())
	assert.Equal(t, []hwaddr.HWAddr{dummyPeer}, m.fw.setups)

	s = step(t, rec, s, s.OnSetupResult(link.ReasonSuccess))
	assert.Equal(t, link.Connected, s.Status())
	assert.Equal(t, 0, rec.DiscoveryAttempts, "attempts reset on successful connect")

	s = step(t, rec, s, s.OnTeardown(link.TeardownTxRxThreshold, false))
	assert.Equal(t, link.Tearing, s.Status())
	assert.Equal(t, []link.TeardownReason{link.TeardownTxRxThreshold}, m.fw.teardowns)

	rec.Capability = link.CapSupported
	s = step(t, rec, s, s.OnTeardownAck())
	assert.Equal(t, link.Idle, s.Status())
	assert.Equal(t, link.CapUnknown, rec.Capability, "capability reset for re-discovery")
	assert.Equal(t, link.TeardownTxRxThreshold, rec.TeardownReason)
}

func TestDiscoveryTimeout(t *testing.T) {
	_, rec, s := setup(t)

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryTimeout())

	assert.Equal(t, link.Idle, s.Status())
	assert.Equal(t, link.ReasonNotSupported, rec.Reason)
	assert.Equal(t, 1, rec.DiscoveryAttempts)
}

func TestWeakDiscoveryResponse(t *testing.T) {
	m, rec, s := setup(t)

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryResponse(m.cfg.RSSITrigger))

	assert.Equal(t, link.Idle, s.Status())
	assert.Equal(t, link.ReasonUnspecified, rec.Reason)
	assert.Equal(t, link.CapSupported, rec.Capability)
}

func TestDiscoverSendFailure(t *testing.T) {
	m, rec, s := setup(t)
	m.fw.fail = errors.New("radio off")

	assert.Nil(t, s.OnDiscover(true))
	assert.Equal(t, 0, rec.DiscoveryAttempts)
}

func TestDiscoveredWaitsForPolicy(t *testing.T) {
	m, rec, s := setup(t)
	m.mayConnect = false

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryResponse(-40))

	for i := 0; i < 3; i++ {
		assert.Nil(t, s.OnTick())
	}
	assert.Empty(t, m.fw.setups)

	m.mayConnect = true
	s = step(t, rec, s, s.OnTick())
	assert.Equal(t, link.Connecting, s.Status())
}

func TestNegotiationFailure(t *testing.T) {
	_, rec, s := setup(t)

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryResponse(-40))
	s = step(t, rec, s, s.OnTick())
	s = step(t, rec, s, s.OnSetupResult(link.ReasonUnsupportedBand))

	assert.Equal(t, link.Idle, s.Status())
	assert.Equal(t, link.ReasonUnsupportedBand, rec.Reason)
	assert.Equal(t, link.CapNotSupported, rec.Capability)
}

func TestNegotiationTimeout(t *testing.T) {
	m, rec, s := setup(t)
	m.cfg.NegotiationTimeout = time.Millisecond

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnDiscoveryResponse(-40))
	s = step(t, rec, s, s.OnTick())

	time.Sleep(5 * time.Millisecond)

	s = step(t, rec, s, s.OnTick())
	assert.Equal(t, link.Idle, s.Status())
}

func TestForcedGuard(t *testing.T) {
	m, rec, s := setup(t)
	s = connect(t, m, rec, s)
	rec.Forced = true

	assert.Nil(t, s.OnTeardown(link.TeardownTxRxThreshold, false))
	assert.Nil(t, s.OnTeardown(link.TeardownRSSIThreshold, false))
	assert.Empty(t, m.fw.teardowns)

	s = step(t, rec, s, s.OnTeardown(link.TeardownExtCtrl, true))
	assert.Equal(t, link.Tearing, s.Status())
}

// Only the traffic and signal based teardowns spare a forced peer; policy events still apply.
func TestForcedPolicyTeardown(t *testing.T) {
	m, rec, s := setup(t)
	s = connect(t, m, rec, s)
	rec.Forced = true

	s = step(t, rec, s, s.OnTeardown(link.TeardownScan, false))
	assert.Equal(t, link.Tearing, s.Status())
	assert.Equal(t, link.TeardownScan, rec.TeardownReason)
	assert.Equal(t, []link.TeardownReason{link.TeardownScan}, m.fw.teardowns)
}

func TestForcedAssociationLoss(t *testing.T) {
	m, rec, s := setup(t)
	s = connect(t, m, rec, s)
	rec.Forced = true

	s = step(t, rec, s, s.OnTeardown(link.TeardownBSSDisconnect, false))
	assert.Equal(t, link.Tearing, s.Status())
	assert.Empty(t, m.fw.teardowns, "no frame is sent once the association is gone")
}

func TestTeardownAckTimeout(t *testing.T) {
	m, rec, s := setup(t)
	m.cfg.TeardownAckTimeout = time.Millisecond
	s = connect(t, m, rec, s)

	s = step(t, rec, s, s.OnTeardown(link.TeardownScan, false))
	assert.Nil(t, s.OnTick())

	time.Sleep(5 * time.Millisecond)

	s = step(t, rec, s, s.OnTick())
	assert.Equal(t, link.Idle, s.Status())
}

func TestAbandon(t *testing.T) {
	_, rec, s := setup(t)

	assert.Nil(t, s.OnAbandon(), "idle peers have nothing to abandon")

	s = step(t, rec, s, s.OnDiscover(false))
	s = step(t, rec, s, s.OnAbandon())
	assert.Equal(t, link.Idle, s.Status())
}

func TestIgnoredEvents(t *testing.T) {
	m, rec, s := setup(t)

	assert.Nil(t, s.OnSetupResult(link.ReasonSuccess))
	assert.Nil(t, s.OnTeardownAck())
	assert.Nil(t, s.OnDiscoveryTimeout())
	assert.Nil(t, s.OnTeardown(link.TeardownExtCtrl, true))

	s = connect(t, m, rec, s)
	assert.Nil(t, s.OnDiscover(true), "connected peers are never rediscovered")
	assert.Nil(t, s.OnDiscoveryResponse(-30))
}
