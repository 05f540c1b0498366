package linkstate

import (
	"github.com/edup2p/directlink/types/link"
)

type Idle struct {
	*StateCommon
}

func (i *Idle) Name() string {
	return "idle"
}

func (i *Idle) Status() link.Status {
	return link.Idle
}

func (i *Idle) OnDiscover(explicit bool) LinkState {
	rec := i.rec()

	if err := i.m.Firmware().SendDiscovery(i.peer); err != nil {
		L(i).Warn("could not send discovery request", "err", err)
		return nil
	}

	rec.DiscoveryAttempts++
	rec.DiscoveryProcessed = false
	rec.Explicit = explicit
	rec.Reason = link.ReasonSuccess

	return LogTransition(i, &Discovering{StateCommon: i.StateCommon})
}
