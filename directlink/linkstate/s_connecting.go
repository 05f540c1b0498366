package linkstate

import (
	"time"

	"github.com/edup2p/directlink/types/link"
)

type Connecting struct {
	*StateCommon

	deadline time.Time
}

func (c *Connecting) Name() string {
	return "connecting"
}

func (c *Connecting) Status() link.Status {
	return link.Connecting
}

func (c *Connecting) OnTick() LinkState {
	if time.Now().After(c.deadline) {
		L(c).Info("negotiation timed out")
		return LogTransition(c, c.toIdle(link.ReasonUnspecified))
	}

	return nil
}

func (c *Connecting) OnSetupResult(reason link.Reason) LinkState {
	rec := c.rec()

	if reason == link.ReasonSuccess {
		rec.Reason = link.ReasonSuccess
		rec.TeardownReason = link.TeardownNone
		rec.DiscoveryAttempts = 0
		rec.ResetCounters()

		return LogTransition(c, &Connected{StateCommon: c.StateCommon})
	}

	if reason.CapabilityMismatch() {
		rec.Capability = link.CapNotSupported
	}

	L(c).Info("negotiation failed", "reason", reason.String())

	return LogTransition(c, c.toIdle(reason))
}

func (c *Connecting) OnAbandon() LinkState {
	return LogTransition(c, c.toIdle(link.ReasonUnspecified))
}

func (c *Connecting) OnTeardown(reason link.TeardownReason, explicit bool) LinkState {
	rec := c.rec()

	if rec.Forced && reason.Automatic() && !explicit {
		return nil
	}

	rec.TeardownReason = reason
	if reason != link.TeardownBSSDisconnect {
		if err := c.m.Firmware().SendTeardown(c.peer, reason); err != nil {
			L(c).Warn("could not send teardown", "err", err)
		}
	}

	return LogTransition(c, c.toIdle(link.ReasonUnspecified))
}
