package link

// Status is the direct-link status of a single peer.
type Status byte

const (
	Idle Status = iota
	Discovering
	Discovered
	Connecting
	Connected
	Tearing
)

var statusNames = [...]string{"idle", "discovering", "discovered", "connecting", "connected", "tearing"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Transitional reports whether a peer in this status is mid-handshake.
func (s Status) Transitional() bool {
	return s == Discovering || s == Discovered || s == Connecting
}

// validEdges lists every permitted status change, self-edges excluded.
var validEdges = map[Status][]Status{
	Idle:        {Discovering},
	Discovering: {Discovered, Idle},
	Discovered:  {Connecting},
	Connecting:  {Connected, Idle},
	Connected:   {Tearing},
	Tearing:     {Idle},
}

// CanTransition reports whether from -> to is an edge of the link state machine.
func CanTransition(from, to Status) bool {
	for _, s := range validEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Capability is what is known about a peer's direct-link support.
type Capability int8

const (
	CapNotSupported Capability = -1
	CapUnknown      Capability = 0
	CapSupported    Capability = 1
)

func (c Capability) String() string {
	switch c {
	case CapNotSupported:
		return "not-supported"
	case CapUnknown:
		return "unknown"
	case CapSupported:
		return "supported"
	default:
		return "invalid"
	}
}

// Reason is the signed reason code attached to a status change.
type Reason int32

const (
	ReasonSuccess         Reason = 0
	ReasonUnspecified     Reason = -1
	ReasonNotSupported    Reason = -2
	ReasonUnsupportedBand Reason = -3
	ReasonNotBeneficial   Reason = -4
	ReasonDroppedByRemote Reason = -5
)

func (r Reason) String() string {
	switch r {
	case ReasonSuccess:
		return "success"
	case ReasonUnspecified:
		return "unspecified"
	case ReasonNotSupported:
		return "not-supported"
	case ReasonUnsupportedBand:
		return "unsupported-band"
	case ReasonNotBeneficial:
		return "not-beneficial"
	case ReasonDroppedByRemote:
		return "dropped-by-remote"
	default:
		return "unknown"
	}
}

// CapabilityMismatch reports whether a negotiation failure means the peer can't do direct links with us.
func (r Reason) CapabilityMismatch() bool {
	return r == ReasonNotSupported || r == ReasonUnsupportedBand || r == ReasonNotBeneficial
}

// TeardownReason is why a connected link was torn down.
type TeardownReason byte

const (
	TeardownNone TeardownReason = iota
	TeardownExtCtrl
	TeardownConcurrency
	TeardownRSSIThreshold
	TeardownTxRxThreshold
	TeardownBTCoex
	TeardownScan
	TeardownBSSDisconnect
	TeardownAntennaSwitch
)

var teardownNames = [...]string{
	"none", "ext-ctrl", "concurrency", "rssi-threshold", "txrx-threshold",
	"bt-coex", "scan", "bss-disconnect", "antenna-switch",
}

func (t TeardownReason) String() string {
	if int(t) < len(teardownNames) {
		return teardownNames[t]
	}
	return "unknown"
}

// Automatic reports whether the reason comes from the traffic/signal heuristics.
// Forced peers are exempt from automatic teardowns.
func (t TeardownReason) Automatic() bool {
	return t == TeardownRSSIThreshold || t == TeardownTxRxThreshold
}
