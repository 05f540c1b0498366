package actors

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/discovery"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
	"github.com/stretchr/testify/require"
)

// Test constants
const assertEventuallyTick time.Duration = 1 * time.Millisecond
const assertEventuallyTimeout time.Duration = 100 * assertEventuallyTick

// Test variables
var peerX = hwaddr.HWAddr{0x02, 0, 0, 0, 0, 0x0a}
var peerY = hwaddr.HWAddr{0x02, 0, 0, 0, 0, 0x0b}

type fakeFirmware struct {
	discoveries []hwaddr.HWAddr
	setups      []hwaddr.HWAddr
	teardowns   []link.TeardownReason
}

func (f *fakeFirmware) SendDiscovery(peer hwaddr.HWAddr) error {
	f.discoveries = append(f.discoveries, peer)
	return nil
}

func (f *fakeFirmware) SendSetup(peer hwaddr.HWAddr) error {
	f.setups = append(f.setups, peer)
	return nil
}

func (f *fakeFirmware) SendTeardown(_ hwaddr.HWAddr, reason link.TeardownReason) error {
	f.teardowns = append(f.teardowns, reason)
	return nil
}

type fakePolicy struct {
	scanning bool
	sessions int
	coex     bool
	antenna  bool
}

func (p *fakePolicy) ScanInProgress() bool    { return p.scanning }
func (p *fakePolicy) ConcurrentSessions() int { return p.sessions }
func (p *fakePolicy) CoexRestricted() bool    { return p.coex }
func (p *fakePolicy) AntennaRestricted() bool { return p.antenna }

// changeLog collects state changes delivered by the notifier.
type changeLog struct {
	mu      sync.Mutex
	changes []link.StateChange
}

func (c *changeLog) add(sc link.StateChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.changes = append(c.changes, sc)
}

func (c *changeLog) states(peer hwaddr.HWAddr) []link.NotifyState {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []link.NotifyState
	for _, sc := range c.changes {
		if sc.Addr == peer {
			out = append(out, sc.State)
		}
	}
	return out
}

func (c *changeLog) last(peer hwaddr.HWAddr) (link.StateChange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.changes) - 1; i >= 0; i-- {
		if c.changes[i].Addr == peer {
			return c.changes[i], true
		}
	}
	return link.StateChange{}, false
}

type testEnv struct {
	s  *Stage
	lm *LinkManager
	fw *fakeFirmware
	ps *fakePolicy
	cl *changeLog
}

// newTestEnv makes a stage with a running notifier. The link manager is driven by hand.
func newTestEnv(t *testing.T, mod func(c *config.Config)) *testEnv {
	cfg := config.Default()
	cfg.TriggerPackets = 10
	if mod != nil {
		mod(&cfg)
	}
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := &testEnv{
		fw: &fakeFirmware{},
		ps: &fakePolicy{sessions: 1},
		cl: &changeLog{},
	}

	env.s = MakeStage(ctx, cfg, env.fw, env.ps, nil)
	env.lm = env.s.LMan
	env.s.Notifier.Register(env.cl.add)

	go env.s.Notifier.Run()

	return env
}

func (e *testEnv) traffic(peer hwaddr.HWAddr, n int) {
	for i := 0; i < n; i++ {
		e.lm.Handle(&msgactor.LManRecordTx{Peer: peer})
	}
}

func (e *testEnv) status(peer hwaddr.HWAddr) (link.Status, bool) {
	rec, ok := e.lm.registry.Find(peer)
	if !ok {
		return link.Idle, false
	}
	return rec.Status, true
}

func (e *testEnv) requireStatus(t *testing.T, peer hwaddr.HWAddr, want link.Status) {
	t.Helper()

	got, ok := e.status(peer)
	require.True(t, ok, "peer %s is not registered", peer)
	require.Equal(t, want, got, "status of %s", peer)
}

// connect walks peer from traffic to a connected link.
func (e *testEnv) connect(t *testing.T, peer hwaddr.HWAddr) {
	t.Helper()

	e.traffic(peer, 11)
	e.lm.DoSampling()
	e.requireStatus(t, peer, link.Discovering)

	e.lm.Handle(&msgactor.LManDiscoveryResponse{Peer: peer, RSSI: -40})
	e.requireStatus(t, peer, link.Discovered)

	e.lm.DoStateTick()
	e.requireStatus(t, peer, link.Connecting)

	e.lm.Handle(&msgactor.LManSetupResult{Peer: peer, Reason: link.ReasonSuccess})
	e.requireStatus(t, peer, link.Connected)
}

// request runs an administrative message and returns its reply.
func (e *testEnv) request(mk func(reply chan<- error) msgactor.ActorMessage) error {
	ch := make(chan error, 1)
	e.lm.Handle(mk(ch))
	return <-ch
}

func (e *testEnv) scan() discovery.ScanVerdict {
	ch := make(chan discovery.ScanVerdict, 1)
	e.lm.Handle(&msgactor.LManScanRequest{Reply: ch})
	return <-ch
}
