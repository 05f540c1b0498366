package peers

import (
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Handle refers to a Record inside a Registry. Handles can only be obtained from the
// registry; a handle to a removed record resolves to nil, even if its slot is reused.
type Handle struct {
	idx uint32
	gen uint32
}

func (h Handle) IsZero() bool {
	return h == Handle{}
}

// ID is a short numeric id of the handle's slot, for display.
func (h Handle) ID() int {
	return int(h.idx)
}

type slot struct {
	rec  Record
	gen  uint32
	used bool
}

// Registry is a bounded collection of peer records, keyed by address.
//
// It is not safe for concurrent use; the owning link manager serializes access.
type Registry struct {
	slots []slot
	index map[hwaddr.HWAddr]uint32
	free  []uint32
}

func NewRegistry(capacity int) *Registry {
	return &Registry{
		// Records are handed out by pointer; the slice must never reallocate.
		slots: make([]slot, 0, capacity),
		index: make(map[hwaddr.HWAddr]uint32, capacity),
	}
}

func (r *Registry) Capacity() int {
	return cap(r.slots)
}

func (r *Registry) Count() int {
	return len(r.index)
}

// Upsert returns the handle for addr, creating an idle record if it does not exist yet.
func (r *Registry) Upsert(addr hwaddr.HWAddr) (Handle, error) {
	if i, ok := r.index[addr]; ok {
		return r.slots[i].rec.handle, nil
	}

	var i uint32
	switch {
	case len(r.free) > 0:
		i = r.free[len(r.free)-1]
		r.free = r.free[:len(r.free)-1]
	case len(r.slots) < cap(r.slots):
		r.slots = append(r.slots, slot{})
		i = uint32(len(r.slots) - 1)
	default:
		return Handle{}, link.ErrCapacity
	}

	s := &r.slots[i]
	s.gen++
	s.used = true

	h := Handle{idx: i, gen: s.gen}
	s.rec = Record{
		handle:     h,
		Addr:       addr,
		Capability: link.CapUnknown,
		Status:     link.Idle,
		Reason:     link.ReasonSuccess,
	}
	r.index[addr] = i

	return h, nil
}

// Get resolves a handle, returning nil if the record it pointed to is gone.
func (r *Registry) Get(h Handle) *Record {
	if h.IsZero() || int(h.idx) >= len(r.slots) {
		return nil
	}

	s := &r.slots[h.idx]
	if !s.used || s.gen != h.gen {
		return nil
	}
	return &s.rec
}

func (r *Registry) Find(addr hwaddr.HWAddr) (*Record, bool) {
	i, ok := r.index[addr]
	if !ok {
		return nil, false
	}
	return &r.slots[i].rec, true
}

// FindInState returns the first record, in slot order, that satisfies pred.
func (r *Registry) FindInState(pred func(*Record) bool) (*Record, bool) {
	for i := range r.slots {
		if s := &r.slots[i]; s.used && pred(&s.rec) {
			return &s.rec, true
		}
	}
	return nil, false
}

// InStatus is a FindInState predicate for a status, optionally excluding one address.
func InStatus(status link.Status, except ...hwaddr.HWAddr) func(*Record) bool {
	return func(rec *Record) bool {
		if rec.Status != status {
			return false
		}
		for _, e := range except {
			if rec.Addr == e {
				return false
			}
		}
		return true
	}
}

// CountInState counts the records that satisfy pred.
func (r *Registry) CountInState(pred func(*Record) bool) int {
	n := 0
	r.Each(func(rec *Record) {
		if pred(rec) {
			n++
		}
	})
	return n
}

// Each calls fn for every record in slot order.
func (r *Registry) Each(fn func(*Record)) {
	for i := range r.slots {
		if s := &r.slots[i]; s.used {
			fn(&s.rec)
		}
	}
}

// Remove deletes the record for addr, stopping its timers. Removing an unknown address is a no-op.
func (r *Registry) Remove(addr hwaddr.HWAddr) {
	i, ok := r.index[addr]
	if !ok {
		return
	}

	s := &r.slots[i]
	s.rec.DisarmIdle()
	s.rec = Record{}
	s.used = false

	delete(r.index, addr)
	r.free = append(r.free, i)
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.Each(func(rec *Record) {
		r.Remove(rec.Addr)
	})
}
