package directlink

import (
	"github.com/edup2p/directlink/types/link"
	"github.com/google/uuid"
)

// RegisterStateChangeListener calls fn for every link state change, on the manager's
// notifier goroutine. fn should not block.
func (m *Manager) RegisterStateChangeListener(fn func(link.StateChange)) uuid.UUID {
	return m.stage.Notifier.Register(fn)
}

func (m *Manager) UnregisterStateChangeListener(id uuid.UUID) {
	m.stage.Notifier.Unregister(id)
}
