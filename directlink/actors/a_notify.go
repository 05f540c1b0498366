package actors

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/edup2p/directlink/types"
	"github.com/edup2p/directlink/types/link"
	"github.com/edup2p/directlink/types/msgactor"
	"github.com/google/uuid"
)

// Notifier delivers state changes to observers, outside the link manager's loop.
type Notifier struct {
	*ActorCommon

	mu        sync.RWMutex
	listeners map[uuid.UUID]func(link.StateChange)
}

func (s *Stage) makeNotifier() *Notifier {
	return &Notifier{
		ActorCommon: MakeCommon(s.Ctx, NotifierInboxChLen),
		listeners:   make(map[uuid.UUID]func(link.StateChange)),
	}
}

func (n *Notifier) Register(fn func(link.StateChange)) uuid.UUID {
	id := uuid.New()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.listeners[id] = fn
	return id
}

func (n *Notifier) Unregister(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.listeners, id)
}

func (n *Notifier) Run() {
	defer func() {
		if v := recover(); v != nil {
			L(n).Error("panicked", "panic", v, "stack", string(debug.Stack()))
			n.Cancel()
			n.Close()
		}
	}()

	if !n.running.CheckOrMark() {
		L(n).Warn("tried to run agent, while already running")
		return
	}

	for {
		select {
		case <-n.ctx.Done():
			n.Close()
			return
		case m := <-n.inbox:
			switch m := m.(type) {
			case *msgactor.NotifyStateChange:
				n.deliver(m)
			default:
				n.logUnknownMessage(m)
			}
		}
	}
}

func (n *Notifier) deliver(m *msgactor.NotifyStateChange) {
	L(n).Log(context.Background(), types.LevelTrace, "delivering state change",
		"peer", m.Change.Addr.String(),
		"state", m.Change.State.String(),
		"reason", m.Change.Reason.String(),
	)

	if m.PeerCallback != nil {
		n.call(m.PeerCallback, m.Change)
	}

	n.mu.RLock()
	fns := make([]func(link.StateChange), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		n.call(fn, m.Change)
	}
}

// call runs a listener; a panicking listener is logged and does not take the notifier down.
func (n *Notifier) call(fn func(link.StateChange), c link.StateChange) {
	defer func() {
		if v := recover(); v != nil {
			L(n).Error("state change listener panicked", "panic", v)
		}
	}()

	fn(c)
}

func (n *Notifier) Close() {}
