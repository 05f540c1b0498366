package actors

import (
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// View is an immutable snapshot of a link manager, published after every change,
// so queries from other goroutines don't have to go through the inbox.
type View struct {
	Mode  link.Mode
	Peers int

	connected map[hwaddr.HWAddr]struct{}
}

func (v *View) IsConnected(peer hwaddr.HWAddr) bool {
	_, ok := v.connected[peer]
	return ok
}

func (v *View) ConnectedCount() int {
	return len(v.connected)
}
