package peers

import (
	"testing"
	"time"

	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(b byte) hwaddr.HWAddr {
	return hwaddr.HWAddr{0x02, 0, 0, 0, 0, b}
}

func TestUpsertFind(t *testing.T) {
	r := NewRegistry(4)

	h, err := r.Upsert(addr(1))
	require.NoError(t, err)
	assert.False(t, h.IsZero())

	rec, ok := r.Find(addr(1))
	require.True(t, ok)
	assert.Equal(t, addr(1), rec.Addr)
	assert.Equal(t, link.Idle, rec.Status)
	assert.Equal(t, link.CapUnknown, rec.Capability)
	assert.Same(t, rec, r.Get(h))

	h2, err := r.Upsert(addr(1))
	require.NoError(t, err)
	assert.Equal(t, h, h2, "upsert of a known address returns the existing handle")
	assert.Equal(t, 1, r.Count())

	_, ok = r.Find(addr(2))
	assert.False(t, ok)
}

func TestCapacity(t *testing.T) {
	r := NewRegistry(2)

	_, err := r.Upsert(addr(1))
	require.NoError(t, err)
	_, err = r.Upsert(addr(2))
	require.NoError(t, err)

	_, err = r.Upsert(addr(3))
	assert.ErrorIs(t, err, link.ErrCapacity)
	assert.Equal(t, 2, r.Count())

	_, err = r.Upsert(addr(2))
	assert.NoError(t, err, "known addresses are still admitted when full")

	r.Remove(addr(1))
	_, err = r.Upsert(addr(3))
	assert.NoError(t, err, "removal frees a slot")
}

func TestRemoveIdempotent(t *testing.T) {
	r := NewRegistry(4)

	_, err := r.Upsert(addr(1))
	require.NoError(t, err)
	_, err = r.Upsert(addr(2))
	require.NoError(t, err)

	r.Remove(addr(1))
	assert.Equal(t, 1, r.Count())

	r.Remove(addr(1))
	assert.Equal(t, 1, r.Count())
}

func TestStaleHandle(t *testing.T) {
	r := NewRegistry(1)

	h, err := r.Upsert(addr(1))
	require.NoError(t, err)

	r.Remove(addr(1))
	assert.Nil(t, r.Get(h))

	h2, err := r.Upsert(addr(2))
	require.NoError(t, err)
	assert.Equal(t, h.ID(), h2.ID(), "slot is reused")
	assert.Nil(t, r.Get(h), "old handle does not resolve to the new occupant")
	assert.Equal(t, addr(2), r.Get(h2).Addr)

	assert.Nil(t, r.Get(Handle{}))
}

func TestFindInState(t *testing.T) {
	r := NewRegistry(8)

	for i := byte(1); i <= 4; i++ {
		_, err := r.Upsert(addr(i))
		require.NoError(t, err)
	}

	rec, _ := r.Find(addr(2))
	rec.Status = link.Connected
	rec, _ = r.Find(addr(3))
	rec.Status = link.Connecting
	rec, _ = r.Find(addr(4))
	rec.Status = link.Connected

	first, ok := r.FindInState(InStatus(link.Connected))
	require.True(t, ok)
	assert.Equal(t, addr(2), first.Addr)

	other, ok := r.FindInState(InStatus(link.Connected, addr(2)))
	require.True(t, ok)
	assert.Equal(t, addr(4), other.Addr)

	_, ok = r.FindInState(InStatus(link.Connecting, addr(3)))
	assert.False(t, ok)

	assert.Equal(t, 2, r.CountInState(InStatus(link.Connected)))
}

func TestClearStopsTimers(t *testing.T) {
	r := NewRegistry(2)

	h, err := r.Upsert(addr(1))
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	r.Get(h).ArmIdle(10*time.Millisecond, func(hwaddr.HWAddr, uint64) { fired <- struct{}{} })
	assert.True(t, r.Get(h).IdleArmed())

	r.Clear()
	assert.Equal(t, 0, r.Count())

	select {
	case <-fired:
		t.Fatal("idle timer fired after its record was removed")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestRSSIHistory(t *testing.T) {
	var rec Record

	rec.SetRSSI(-60)
	assert.Equal(t, -60, rec.PrevRSSI)

	rec.SetRSSI(-70)
	assert.Equal(t, -60, rec.PrevRSSI)
	assert.Equal(t, -70, rec.RSSI)
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry(2)

	h, err := r.Upsert(addr(1))
	require.NoError(t, err)

	rec := r.Get(h)
	rec.SupportedChannels = []uint8{36, 40}

	s := rec.Snapshot()
	assert.False(t, s.RSSI.Valid)
	assert.False(t, s.OffChannel.Valid)

	rec.SupportedChannels[0] = 1
	assert.Equal(t, uint8(36), s.SupportedChannels[0], "snapshot does not alias the record")

	rec.SetRSSI(-50)
	rec.Forced = true
	rec.OffChannel = 44

	s = rec.Snapshot()
	assert.Equal(t, -50, s.RSSI.Val)
	assert.Equal(t, uint8(44), s.OffChannel.Val)
	assert.Len(t, r.Snapshots(), 1)
}
