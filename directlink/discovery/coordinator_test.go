package discovery

import (
	"testing"
	"time"

	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	assertEventuallyTick    = time.Millisecond
	assertEventuallyTimeout = 50 * assertEventuallyTick
)

var (
	peerX = hwaddr.HWAddr{0x02, 0, 0, 0, 0, 0x0a}
	peerY = hwaddr.HWAddr{0x02, 0, 0, 0, 0, 0x0b}
)

func TestBusyUntilTimeout(t *testing.T) {
	fired := make(chan uint64, 4)
	c := NewCoordinator(5*time.Millisecond, func(seq uint64) { fired <- seq })

	require.NoError(t, c.StartDiscovery(peerX))
	assert.Equal(t, 1, c.SentCount())
	assert.True(t, c.TimerArmed())

	assert.ErrorIs(t, c.StartDiscovery(peerY), link.ErrBusy)
	assert.ErrorIs(t, c.StartDiscovery(peerX), link.ErrBusy)

	var seq uint64
	select {
	case seq = <-fired:
	case <-time.After(time.Second):
		t.Fatal("discovery timer did not fire")
	}

	addr, ok := c.OnTimeout(seq)
	require.True(t, ok)
	assert.Equal(t, peerX, addr)
	assert.Equal(t, 0, c.SentCount())

	_, ok = c.Current()
	assert.False(t, ok)

	assert.NoError(t, c.StartDiscovery(peerY))
	cur, _ := c.Current()
	assert.Equal(t, peerY, cur)

	c.Abandon()
}

func TestResponse(t *testing.T) {
	c := NewCoordinator(time.Hour, func(uint64) {})

	require.NoError(t, c.StartDiscovery(peerX))

	assert.False(t, c.OnResponse(peerY), "responses from others do not advance the candidate")
	assert.Equal(t, 1, c.SentCount())
	assert.True(t, c.TimerArmed())

	assert.True(t, c.OnResponse(peerX))
	assert.Equal(t, 0, c.SentCount())
	assert.False(t, c.TimerArmed())
	assert.Equal(t, 2, c.PeerCount())

	assert.True(t, c.IsCurrent(peerX), "candidate stays current until released")
	assert.ErrorIs(t, c.StartDiscovery(peerY), link.ErrBusy)

	assert.False(t, c.Release(peerY))
	assert.True(t, c.Release(peerX))
	assert.NoError(t, c.StartDiscovery(peerY))

	c.Reset()
	assert.Equal(t, 0, c.PeerCount())
}

func TestStaleTimeout(t *testing.T) {
	c := NewCoordinator(time.Hour, func(uint64) {})

	require.NoError(t, c.StartDiscovery(peerX))
	stale := c.seq
	c.Release(peerX)

	require.NoError(t, c.StartDiscovery(peerY))

	_, ok := c.OnTimeout(stale)
	assert.False(t, ok)
	assert.True(t, c.IsCurrent(peerY))

	_, ok = c.OnTimeout(c.seq)
	assert.True(t, ok)

	_, ok = c.OnTimeout(c.seq)
	assert.False(t, ok, "a timeout is only handled once")
}
