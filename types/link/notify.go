package link

import (
	"github.com/edup2p/directlink/types/hwaddr"
)

// NotifyState is the abstracted link state handed to observers.
type NotifyState byte

const (
	NotifyDisabled NotifyState = iota + 1
	NotifyEnabled
	NotifyEstablished
	NotifyEstablishedOffChannel
	NotifyDropped
	NotifyFailed
)

var notifyNames = [...]string{"", "disabled", "enabled", "established", "established-off-channel", "dropped", "failed"}

func (n NotifyState) String() string {
	if n > 0 && int(n) < len(notifyNames) {
		return notifyNames[n]
	}
	return "unknown"
}

// NotifyStateFor maps a link status to its notification state.
func NotifyStateFor(s Status, offChannel bool) NotifyState {
	switch s {
	case Connected:
		if offChannel {
			return NotifyEstablishedOffChannel
		}
		return NotifyEstablished
	case Tearing:
		return NotifyDropped
	default:
		return NotifyEnabled
	}
}

// StateChange is the payload delivered to state-change observers.
type StateChange struct {
	Addr    hwaddr.HWAddr
	OpClass uint8
	Channel uint8

	State  NotifyState
	Status Status
	Reason Reason

	// Teardown is set when State is NotifyDropped, or when returning to idle afterwards.
	Teardown TeardownReason
}
