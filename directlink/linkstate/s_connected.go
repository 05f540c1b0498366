package linkstate

import (
	"time"

	"github.com/edup2p/directlink/types/link"
)

type Connected struct {
	*StateCommon
}

func (c *Connected) Name() string {
	return "connected"
}

func (c *Connected) Status() link.Status {
	return link.Connected
}

func (c *Connected) OnTeardown(reason link.TeardownReason, explicit bool) LinkState {
	rec := c.rec()

	if rec.Forced && reason.Automatic() && !explicit {
		L(c).Debug("not tearing down forced peer", "reason", reason.String())
		return nil
	}

	rec.TeardownReason = reason

	if reason != link.TeardownBSSDisconnect {
		if err := c.m.Firmware().SendTeardown(c.peer, reason); err != nil {
			L(c).Warn("could not send teardown", "err", err)
		}
	}

	return LogTransition(c, &Tearing{
		StateCommon: c.StateCommon,
		deadline:    time.Now().Add(c.m.Config().TeardownAckTimeout),
	})
}
