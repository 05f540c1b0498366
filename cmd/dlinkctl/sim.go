package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/edup2p/directlink/directlink"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// simFirmware stands in for the negotiation layer. Peers answer after a short delay,
// unless they were marked unreachable.
type simFirmware struct {
	m *directlink.Manager

	mu          sync.Mutex
	rssi        map[hwaddr.HWAddr]int
	unreachable map[hwaddr.HWAddr]bool
	setupResult map[hwaddr.HWAddr]link.Reason
	delay       time.Duration
}

func newSimFirmware() *simFirmware {
	return &simFirmware{
		rssi:        make(map[hwaddr.HWAddr]int),
		unreachable: make(map[hwaddr.HWAddr]bool),
		setupResult: make(map[hwaddr.HWAddr]link.Reason),
		delay:       50 * time.Millisecond,
	}
}

const simDefaultRSSI = -45

func (f *simFirmware) later(fn func()) {
	f.mu.Lock()
	d := f.delay
	f.mu.Unlock()

	time.AfterFunc(d, fn)
}

func (f *simFirmware) SendDiscovery(peer hwaddr.HWAddr) error {
	f.mu.Lock()
	rssi, ok := f.rssi[peer]
	if !ok {
		rssi = simDefaultRSSI
	}
	gone := f.unreachable[peer]
	f.mu.Unlock()

	slog.Debug("sim: discovery request", "peer", peer.String())

	if !gone {
		f.later(func() { f.m.DiscoveryResponse(peer, rssi) })
	}
	return nil
}

func (f *simFirmware) SendSetup(peer hwaddr.HWAddr) error {
	f.mu.Lock()
	reason := f.setupResult[peer]
	gone := f.unreachable[peer]
	f.mu.Unlock()

	slog.Debug("sim: setup request", "peer", peer.String())

	if !gone {
		f.later(func() { f.m.SetupResult(peer, reason) })
	}
	return nil
}

func (f *simFirmware) SendTeardown(peer hwaddr.HWAddr, reason link.TeardownReason) error {
	slog.Debug("sim: teardown", "peer", peer.String(), "reason", reason.String())

	f.later(func() { f.m.TeardownAck(peer) })
	return nil
}

func (f *simFirmware) setRSSI(peer hwaddr.HWAddr, rssi int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rssi[peer] = rssi
}

func (f *simFirmware) setReachable(peer hwaddr.HWAddr, reachable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if reachable {
		delete(f.unreachable, peer)
	} else {
		f.unreachable[peer] = true
	}
}

func (f *simFirmware) setSetupResult(peer hwaddr.HWAddr, r link.Reason) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setupResult[peer] = r
}

// simPolicy is a settable global connection policy.
type simPolicy struct {
	mu       sync.RWMutex
	scanning bool
	sessions int
	coex     bool
	antenna  bool
}

func (p *simPolicy) ScanInProgress() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scanning
}

func (p *simPolicy) ConcurrentSessions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessions
}

func (p *simPolicy) CoexRestricted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coex
}

func (p *simPolicy) AntennaRestricted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.antenna
}

func (p *simPolicy) update(fn func(p *simPolicy)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}
