package peers

import (
	"time"

	"github.com/LukaGiorgadze/gonull"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Caps is what the negotiation layer reports about a peer's direct-link abilities.
type Caps struct {
	Responder          bool
	SupportedChannels  []uint8
	SupportedOpClasses []uint8
	SpatialStreams     uint8
	QoS                bool
	BufferSTA          bool
	OffChannel         bool
}

// Record is everything known about one peer. Records live inside a Registry,
// and are only reachable through it.
type Record struct {
	handle Handle

	Addr hwaddr.HWAddr

	Capability     link.Capability
	Status         link.Status
	Reason         link.Reason
	TeardownReason link.TeardownReason

	// RSSI is in dBm; HasRSSI is unset until a first measurement arrives.
	RSSI     int
	PrevRSSI int
	HasRSSI  bool

	Caps

	DiscoveryAttempts  int
	DiscoveryProcessed bool

	// Packets seen within the current idle window.
	TxPackets uint64
	RxPackets uint64

	Forced            bool
	OffChannel        uint8
	OffChannelOpClass uint8

	// Callback gets this peer's state changes, in addition to the global observers.
	Callback func(link.StateChange)

	// Explicit marks a handshake started by an administrative request rather than traffic.
	Explicit bool

	idle    *time.Timer
	idleGen uint64
}

func (r *Record) Handle() Handle {
	return r.handle
}

// SetRSSI records a new signal measurement, keeping the previous one for hysteresis.
func (r *Record) SetRSSI(rssi int) {
	if r.HasRSSI {
		r.PrevRSSI = r.RSSI
	} else {
		r.PrevRSSI = rssi
	}
	r.RSSI = rssi
	r.HasRSSI = true
}

// ResetCounters zeroes the idle window.
func (r *Record) ResetCounters() {
	r.TxPackets = 0
	r.RxPackets = 0
}

// ResetForRediscovery is applied when a link has been torn down, so the peer can be discovered again.
func (r *Record) ResetForRediscovery() {
	r.ResetCounters()
	r.Capability = link.CapUnknown
	r.DiscoveryAttempts = 0
	r.DiscoveryProcessed = false
	r.Explicit = false
}

// ArmIdle (re)starts the idle timer. fire is called from the timer goroutine with the
// generation it was armed with, so the receiver can ignore stale expiries.
func (r *Record) ArmIdle(d time.Duration, fire func(peer hwaddr.HWAddr, gen uint64)) {
	r.DisarmIdle()

	r.idleGen++
	gen, peer := r.idleGen, r.Addr
	r.idle = time.AfterFunc(d, func() {
		fire(peer, gen)
	})
}

func (r *Record) DisarmIdle() {
	if r.idle != nil {
		r.idle.Stop()
		r.idle = nil
	}
}

func (r *Record) IdleArmed() bool {
	return r.idle != nil
}

// IdleCurrent reports whether gen belongs to the currently armed idle timer.
func (r *Record) IdleCurrent(gen uint64) bool {
	return r.idle != nil && r.idleGen == gen
}

// Config is the administrative configuration of a forced peer.
type Config struct {
	OffChannel        gonull.Nullable[uint8]
	OffChannelOpClass gonull.Nullable[uint8]

	Callback func(link.StateChange)
}
