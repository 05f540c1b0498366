package discovery

import (
	"fmt"
	"time"
)

type VerdictKind byte

const (
	Allow VerdictKind = iota
	Reject
	Defer
)

func (k VerdictKind) String() string {
	switch k {
	case Reject:
		return "reject"
	case Defer:
		return "defer"
	default:
		return "allow"
	}
}

// ScanVerdict is the answer to a scan request.
type ScanVerdict struct {
	Kind VerdictKind

	// Rejects is the number of consecutive rejections so far, for Reject.
	Rejects int

	// Delay is how long the caller should wait before asking again, for Defer.
	Delay time.Duration
}

func (v ScanVerdict) String() string {
	switch v.Kind {
	case Reject:
		return fmt.Sprintf("reject(%d)", v.Rejects)
	case Defer:
		return fmt.Sprintf("defer(%s)", v.Delay)
	default:
		return "allow"
	}
}

// ScanRequest describes the link state at the moment a scan is requested.
type ScanRequest struct {
	// CandidateBusy is set while the current candidate is discovering or connecting.
	CandidateBusy bool

	// LinksUp is the number of links that still have to come down before the scan.
	LinksUp      int
	DelayPerLink time.Duration
}

// ScanArbiter holds scans back while link setup is in progress, for a bounded number of requests.
type ScanArbiter struct {
	maxRejects   int
	maxSchedules int

	rejects    int
	schedules  int
	inProgress bool
}

func NewScanArbiter(maxRejects, maxSchedules int) *ScanArbiter {
	return &ScanArbiter{
		maxRejects:   maxRejects,
		maxSchedules: maxSchedules,
	}
}

func (s *ScanArbiter) InProgress() bool {
	return s.inProgress
}

func (s *ScanArbiter) Rejects() int {
	return s.rejects
}

// Request decides on a scan request. abandon is set when the reject budget ran out, and
// the current candidate must be given up so the scan can proceed.
func (s *ScanArbiter) Request(req ScanRequest) (v ScanVerdict, abandon bool) {
	if req.CandidateBusy {
		if s.rejects < s.maxRejects {
			s.rejects++
			return ScanVerdict{Kind: Reject, Rejects: s.rejects}, false
		}

		s.rejects = 0
		abandon = true
	}

	if req.LinksUp > 0 && s.schedules < s.maxSchedules {
		s.schedules++
		return ScanVerdict{Kind: Defer, Delay: time.Duration(req.LinksUp) * req.DelayPerLink}, abandon
	}

	s.rejects = 0
	s.schedules = 0
	s.inProgress = true

	return ScanVerdict{Kind: Allow}, abandon
}

// Done marks the end of a scan.
func (s *ScanArbiter) Done() {
	s.inProgress = false
	s.schedules = 0
}

// Reset forgets all counters.
func (s *ScanArbiter) Reset() {
	s.rejects = 0
	s.schedules = 0
	s.inProgress = false
}
