package tracker

import (
	"time"

	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Entry is the per-address sample of one sampling period.
type Entry struct {
	Addr       hwaddr.HWAddr
	Tx         uint32
	Rx         uint32
	LastUpdate time.Time

	// consecutive periods a connected peer stayed under the idle threshold
	idleStreak int
}

func (e *Entry) Packets() uint32 {
	return e.Tx + e.Rx
}

// Thresholds are the knobs Evaluate judges entries by.
type Thresholds struct {
	TriggerPackets uint32
	IdlePackets    uint32
	IdlePeriods    int
	RSSITeardown   int
	RSSIDelta      int
}

// Observation is what the owner of the tracker knows about an address at evaluation time.
type Observation struct {
	Known  bool
	Status link.Status
	Forced bool

	HasRSSI  bool
	RSSI     int
	PrevRSSI int

	// MayTrigger is the concurrency policy verdict for starting an implicit link with this peer.
	MayTrigger bool
}

type Observer func(addr hwaddr.HWAddr) Observation

type Kind byte

const (
	Hold Kind = iota
	Trigger
	Teardown
)

func (k Kind) String() string {
	switch k {
	case Trigger:
		return "trigger"
	case Teardown:
		return "teardown"
	default:
		return "hold"
	}
}

type Recommendation struct {
	Addr   hwaddr.HWAddr
	Kind   Kind
	Reason link.TeardownReason

	// PolicyDenied is set when a trigger was downgraded to hold by the policy gate.
	PolicyDenied bool
}

// Tracker is a fixed-capacity traffic sampling table.
//
// Entries age out after a period of inactivity, judged by their LastUpdate; nothing expires
// behind the owner's back. When the table is full, observations for new addresses are dropped.
type Tracker struct {
	capacity int
	ageOut   time.Duration

	entries *simplelru.LRU[hwaddr.HWAddr, *Entry]

	now func() time.Time

	// OnDrop is called when an observation is dropped for lack of room.
	OnDrop func(addr hwaddr.HWAddr)
	// OnEvict is called when an entry leaves the table.
	OnEvict func(addr hwaddr.HWAddr)
}

func New(capacity int, ageOut time.Duration) *Tracker {
	t := &Tracker{
		capacity: capacity,
		ageOut:   ageOut,
		now:      time.Now,
	}

	entries, err := simplelru.NewLRU[hwaddr.HWAddr, *Entry](capacity, func(addr hwaddr.HWAddr, _ *Entry) {
		if t.OnEvict != nil {
			t.OnEvict(addr)
		}
	})
	if err != nil {
		// only for a non-positive capacity, which config validation rules out
		panic(err)
	}
	t.entries = entries

	return t
}

func (t *Tracker) Capacity() int {
	return t.capacity
}

func (t *Tracker) Len() int {
	return t.entries.Len()
}

func (t *Tracker) RecordTx(addr hwaddr.HWAddr) {
	if e := t.touch(addr); e != nil {
		e.Tx++
	}
}

func (t *Tracker) RecordRx(addr hwaddr.HWAddr) {
	if e := t.touch(addr); e != nil {
		e.Rx++
	}
}

func (t *Tracker) touch(addr hwaddr.HWAddr) *Entry {
	now := t.now()

	e, ok := t.entries.Get(addr)
	if !ok {
		if t.entries.Len() >= t.capacity {
			t.expire(now)
		}
		if t.entries.Len() >= t.capacity {
			if t.OnDrop != nil {
				t.OnDrop(addr)
			}
			return nil
		}
		e = &Entry{Addr: addr}
		t.entries.Add(addr, e)
	}

	e.LastUpdate = now

	return e
}

// expire removes every entry that saw no traffic within the age-out interval before now.
func (t *Tracker) expire(now time.Time) {
	for _, addr := range t.entries.Keys() {
		e, ok := t.entries.Peek(addr)
		if !ok || e == nil || now.Sub(e.LastUpdate) > t.ageOut {
			t.entries.Remove(addr)
		}
	}
}

// Get returns a copy of the entry for addr.
func (t *Tracker) Get(addr hwaddr.HWAddr) (Entry, bool) {
	e, ok := t.entries.Peek(addr)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Remove evicts addr, if present.
func (t *Tracker) Remove(addr hwaddr.HWAddr) {
	t.entries.Remove(addr)
}

// Reset empties the table.
func (t *Tracker) Reset() {
	t.entries.Purge()
}

// Evaluate judges every entry against th, then zeroes all counters.
//
// Entries that saw no traffic within the age-out interval before now are removed.
func (t *Tracker) Evaluate(now time.Time, th Thresholds, observe Observer) []Recommendation {
	var recs []Recommendation

	t.expire(now)

	for _, addr := range t.entries.Keys() {
		e, ok := t.entries.Peek(addr)
		if !ok || e == nil {
			continue
		}

		obs := observe(e.Addr)
		r := judge(e, th, obs)
		if r.Kind != Hold || r.PolicyDenied {
			recs = append(recs, r)
		}

		e.Tx, e.Rx = 0, 0
	}

	return recs
}

func judge(e *Entry, th Thresholds, obs Observation) Recommendation {
	r := Recommendation{Addr: e.Addr, Kind: Hold}

	switch {
	case !obs.Known || obs.Status == link.Idle:
		e.idleStreak = 0

		if e.Packets() > th.TriggerPackets {
			if obs.MayTrigger {
				r.Kind = Trigger
			} else {
				r.PolicyDenied = true
			}
		}
	case obs.Status == link.Connected:
		if e.Packets() < th.IdlePackets {
			e.idleStreak++
		} else {
			e.idleStreak = 0
		}

		if obs.Forced {
			return r
		}

		if e.idleStreak >= th.IdlePeriods {
			r.Kind = Teardown
			r.Reason = link.TeardownTxRxThreshold
		} else if RSSIDegraded(obs, th) {
			r.Kind = Teardown
			r.Reason = link.TeardownRSSIThreshold
		}
	default:
		e.idleStreak = 0
	}

	return r
}

// RSSIDegraded reports whether the signal is both below the teardown threshold and has
// dropped by at least the configured delta since the previous sample.
func RSSIDegraded(obs Observation, th Thresholds) bool {
	if !obs.HasRSSI {
		return false
	}

	below := obs.RSSI < th.RSSITeardown
	dropped := obs.PrevRSSI-obs.RSSI >= -th.RSSIDelta

	return below && dropped
}
