package linkstate

import (
	"context"
	"log/slog"

	"github.com/edup2p/directlink/types"
)

// L stands for Log
func L(s LinkState) *slog.Logger {
	return slog.With("peer", s.Peer().String(), "state", s.Name())
}

func LogTransition(from LinkState, to LinkState) LinkState {
	L(from).Log(context.Background(), types.LevelTrace, "transitioning state", "to-state", to.Name())

	return to
}
