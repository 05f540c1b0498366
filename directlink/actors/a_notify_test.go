package actors

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
	"github.com/stretchr/testify/assert"
)

func TestNotifier(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Stage{Ctx: ctx}
	n := s.makeNotifier()
	go n.Run()

	var peerCalls, listenerCalls, removedCalls atomic.Int32

	n.Register(func(link.StateChange) {
		panic("listener blew up")
	})
	n.Register(func(sc link.StateChange) {
		if sc.Addr == peerX {
			listenerCalls.Add(1)
		}
	})
	removed := n.Register(func(link.StateChange) {
		removedCalls.Add(1)
	})
	n.Unregister(removed)

	n.Inbox() <- &msgactor.NotifyStateChange{
		Change: link.StateChange{Addr: peerX, State: link.NotifyEstablished, Status: link.Connected},
		PeerCallback: func(sc link.StateChange) {
			assert.Equal(t, link.NotifyEstablished, sc.State)
			peerCalls.Add(1)
		},
	}
	n.Inbox() <- &msgactor.NotifyStateChange{
		Change: link.StateChange{Addr: peerX, State: link.NotifyDropped, Status: link.Tearing},
	}

	assert.Eventually(t, func() bool {
		return listenerCalls.Load() == 2
	}, assertEventuallyTimeout, assertEventuallyTick)

	assert.Equal(t, int32(1), peerCalls.Load())
	assert.Equal(t, int32(0), removedCalls.Load())
}

func TestNotifierRunsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Stage{Ctx: ctx}
	n := s.makeNotifier()

	assert.True(t, n.running.CheckOrMark())

	// A second Run returns right away instead of competing for the inbox.
	n.Run()
}
