package linkstate

import (
	"time"

	"github.com/edup2p/directlink/types/link"
)

type Tearing struct {
	*StateCommon

	deadline time.Time
}

func (t *Tearing) Name() string {
	return "tearing"
}

func (t *Tearing) Status() link.Status {
	return link.Tearing
}

func (t *Tearing) OnTick() LinkState {
	if time.Now().After(t.deadline) {
		L(t).Warn("teardown was never acknowledged, assuming link is gone")
		return t.done()
	}

	return nil
}

func (t *Tearing) OnTeardownAck() LinkState {
	return t.done()
}

func (t *Tearing) done() LinkState {
	t.rec().ResetForRediscovery()
	return LogTransition(t, t.toIdle(link.ReasonSuccess))
}
