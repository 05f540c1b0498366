package linkstate

import (
	"time"

	"github.com/edup2p/directlink/types/link"
)

type Discovered struct {
	*StateCommon
}

func (d *Discovered) Name() string {
	return "discovered"
}

func (d *Discovered) Status() link.Status {
	return link.Discovered
}

// OnTick attempts setup, once the policy gate allows it.
func (d *Discovered) OnTick() LinkState {
	rec := d.rec()

	if rec.Capability != link.CapSupported {
		return nil
	}

	if !d.m.MayConnect(rec) {
		return nil
	}

	if err := d.m.Firmware().SendSetup(d.peer); err != nil {
		L(d).Warn("could not send setup request", "err", err)
		return nil
	}

	return LogTransition(d, &Connecting{
		StateCommon: d.StateCommon,
		deadline:    time.Now().Add(d.m.Config().NegotiationTimeout),
	})
}
