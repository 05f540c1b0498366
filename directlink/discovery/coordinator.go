package discovery

import (
	"time"

	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Coordinator tracks the single peer currently being discovered.
//
// A candidate stays current from StartDiscovery until it is released, which the owner
// does once the peer answered (discovered) or went back to idle.
type Coordinator struct {
	current    hwaddr.HWAddr
	hasCurrent bool

	sentCount int
	peerCount int

	timeout time.Duration
	timer   *time.Timer
	seq     uint64

	// fire is called from the timer goroutine; the owner feeds seq back into OnTimeout.
	fire func(seq uint64)
}

func NewCoordinator(timeout time.Duration, fire func(seq uint64)) *Coordinator {
	return &Coordinator{
		timeout: timeout,
		fire:    fire,
	}
}

func (c *Coordinator) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Coordinator) Current() (hwaddr.HWAddr, bool) {
	return c.current, c.hasCurrent
}

func (c *Coordinator) IsCurrent(addr hwaddr.HWAddr) bool {
	return c.hasCurrent && c.current == addr
}

// SentCount is the number of discovery requests awaiting a response.
func (c *Coordinator) SentCount() int {
	return c.sentCount
}

// PeerCount is the total number of discovery responses seen.
func (c *Coordinator) PeerCount() int {
	return c.peerCount
}

// TimerArmed reports whether a discovery timeout is pending.
func (c *Coordinator) TimerArmed() bool {
	return c.timer != nil
}

// StartDiscovery makes addr the current candidate and arms the discovery timeout.
// It fails with link.ErrBusy if there already is a current candidate.
func (c *Coordinator) StartDiscovery(addr hwaddr.HWAddr) error {
	if c.hasCurrent {
		return link.ErrBusy
	}

	c.current = addr
	c.hasCurrent = true
	c.sentCount++
	c.arm()

	return nil
}

func (c *Coordinator) arm() {
	c.stopTimer()

	c.seq++
	seq := c.seq
	c.timer = time.AfterFunc(c.timeout, func() {
		c.fire(seq)
	})
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// OnResponse accounts for a discovery response, and reports whether it came from the current candidate.
func (c *Coordinator) OnResponse(addr hwaddr.HWAddr) bool {
	c.peerCount++

	if !c.IsCurrent(addr) {
		return false
	}

	if c.sentCount > 0 {
		c.sentCount--
	}
	if c.sentCount == 0 {
		c.stopTimer()
	}

	return true
}

// OnTimeout handles a fired discovery timer. Stale timers (re-armed or stopped since) are
// ignored; otherwise the current candidate is cleared and returned.
func (c *Coordinator) OnTimeout(seq uint64) (hwaddr.HWAddr, bool) {
	if c.timer == nil || seq != c.seq {
		return hwaddr.HWAddr{}, false
	}

	c.timer = nil
	c.sentCount = 0

	addr, ok := c.current, c.hasCurrent
	c.clear()

	return addr, ok
}

// Release clears the current candidate if it is addr.
func (c *Coordinator) Release(addr hwaddr.HWAddr) bool {
	if !c.IsCurrent(addr) {
		return false
	}

	c.Abandon()
	return true
}

// Abandon clears the current candidate, whoever it is, and stops the timer.
func (c *Coordinator) Abandon() (hwaddr.HWAddr, bool) {
	addr, ok := c.current, c.hasCurrent

	c.stopTimer()
	c.sentCount = 0
	c.clear()

	return addr, ok
}

func (c *Coordinator) clear() {
	c.current = hwaddr.HWAddr{}
	c.hasCurrent = false
}

// Reset is Abandon, plus zeroing the response count.
func (c *Coordinator) Reset() {
	c.Abandon()
	c.peerCount = 0
}
