package linkstate

import (
	"github.com/edup2p/directlink/types/link"
)

type Discovering struct {
	*StateCommon
}

func (d *Discovering) Name() string {
	return "discovering"
}

func (d *Discovering) Status() link.Status {
	return link.Discovering
}

func (d *Discovering) OnDiscoveryResponse(rssi int) LinkState {
	rec := d.rec()

	rec.SetRSSI(rssi)
	rec.Capability = link.CapSupported
	rec.DiscoveryProcessed = true

	if rssi <= d.m.Config().RSSITrigger && !rec.Forced {
		L(d).Debug("discovery response below rssi trigger threshold", "rssi", rssi)
		return LogTransition(d, d.toIdle(link.ReasonUnspecified))
	}

	// Setup is attempted on the next tick, which re-checks the policy gate.
	d.m.Poke()

	return LogTransition(d, &Discovered{StateCommon: d.StateCommon})
}

func (d *Discovering) OnDiscoveryTimeout() LinkState {
	return LogTransition(d, d.toIdle(link.ReasonNotSupported))
}

func (d *Discovering) OnAbandon() LinkState {
	return LogTransition(d, d.toIdle(link.ReasonUnspecified))
}

func (d *Discovering) OnTeardown(reason link.TeardownReason, _ bool) LinkState {
	if reason == link.TeardownBSSDisconnect {
		return d.OnAbandon()
	}
	return nil
}
