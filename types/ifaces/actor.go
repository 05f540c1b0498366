package ifaces

import (
	"context"

	"github.com/edup2p/directlink/types/msgactor"
)

type Actor interface {
	Run()

	Inbox() chan<- msgactor.ActorMessage

	Ctx() context.Context

	// Cancel this actor's context.
	Cancel()

	// Close is called by the Run loop to clean up once the context is done.
	Close()
}
