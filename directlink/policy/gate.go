package policy

import (
	"github.com/edup2p/directlink/types/link"
)

// Inputs is the global state the gate decides on. It is gathered fresh at every decision point.
type Inputs struct {
	Mode link.Mode

	// PeerForced is set when the decision is about an administratively pinned peer.
	PeerForced bool

	// ConcurrentSessions counts radio connections on the device, our own association included.
	ConcurrentSessions int
	// ConnectedLinks and MaxLinks bound the number of direct links.
	ConnectedLinks int
	MaxLinks       int

	ScanInProgress    bool
	CoexRestricted    bool
	AntennaRestricted bool

	// LowThroughput force-disables automatic links.
	LowThroughput bool
}

// Verdict explains a gate decision, for logging and metrics.
type Verdict byte

const (
	Permitted Verdict = iota
	DeniedMode
	DeniedNotForced
	DeniedConcurrency
	DeniedLinkLimit
	DeniedScan
	DeniedCoex
	DeniedAntenna
	DeniedLowThroughput
)

var verdictNames = [...]string{
	"permitted", "mode", "not-forced", "concurrency", "link-limit",
	"scan", "coex", "antenna", "low-throughput",
}

func (v Verdict) String() string {
	if int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "unknown"
}

// MayTriggerImplicit decides whether an automatic link may be started right now.
func MayTriggerImplicit(in Inputs) bool {
	return CheckImplicit(in) == Permitted
}

// CheckImplicit is MayTriggerImplicit, with the reason for a denial.
func CheckImplicit(in Inputs) Verdict {
	switch in.Mode {
	case link.ModeEnabled:
	case link.ModeExternalControl:
		if !in.PeerForced {
			return DeniedNotForced
		}
	default:
		return DeniedMode
	}

	if in.LowThroughput {
		return DeniedLowThroughput
	}

	return checkRadio(in)
}

// CheckExplicit decides whether an administratively requested link may be started.
// Scans and low throughput don't hold it back.
func CheckExplicit(in Inputs) Verdict {
	if !in.Mode.Active() {
		return DeniedMode
	}

	in.ScanInProgress = false
	return checkRadio(in)
}

func checkRadio(in Inputs) Verdict {
	switch {
	case in.ConcurrentSessions > 1:
		return DeniedConcurrency
	case in.ConnectedLinks >= in.MaxLinks:
		return DeniedLinkLimit
	case in.ScanInProgress:
		return DeniedScan
	case in.CoexRestricted:
		return DeniedCoex
	case in.AntennaRestricted:
		return DeniedAntenna
	default:
		return Permitted
	}
}
