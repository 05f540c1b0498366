package actors

import (
	"context"

	"github.com/edup2p/directlink/directlink/config"
	"github.com/edup2p/directlink/directlink/metrics"
	"github.com/edup2p/directlink/types/ifaces"
)

// Stage for the Actors of one radio interface.
type Stage struct {
	// The parent context of the stage that all actors must parent
	Ctx context.Context

	// The LinkManager, which owns all peer state
	LMan *LinkManager
	// The Notifier, which runs observers
	Notifier *Notifier

	ctxCan  context.CancelFunc
	started bool
}

func MakeStage(
	pCtx context.Context,
	cfg config.Config,
	fw ifaces.Firmware,
	ps ifaces.PolicySource,
	rec *metrics.Recorder,
) *Stage {
	ctx, ctxCan := context.WithCancel(pCtx)

	s := &Stage{
		Ctx:    ctx,
		ctxCan: ctxCan,
	}

	s.Notifier = s.makeNotifier()
	s.LMan = s.makeLM(cfg, fw, ps, rec)

	return s
}

// Start kicks off goroutines for the stage and returns
func (s *Stage) Start() {
	if s.started {
		return
	}

	go s.Notifier.Run()
	go s.LMan.Run()

	s.started = true
}

// Stop cancels all actors.
func (s *Stage) Stop() {
	s.ctxCan()
}
