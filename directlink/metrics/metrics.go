package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "directlink"

// Recorder exposes Prometheus metrics for one link manager. A nil *Recorder records nothing.
type Recorder struct {
	transitions      *prometheus.CounterVec
	teardowns        *prometheus.CounterVec
	discoveries      prometheus.Counter
	discoveryTimeout prometheus.Counter
	responses        prometheus.Counter
	policyDenied     *prometheus.CounterVec
	scanVerdicts     *prometheus.CounterVec
	trackerDrops     prometheus.Counter
	trackerEvictions prometheus.Counter
	unknownEvents    *prometheus.CounterVec
	peers            prometheus.Gauge
	links            prometheus.Gauge
}

// NewRecorder registers metrics with the provided registry, labelled with the interface name.
func NewRecorder(reg prometheus.Registerer, iface string) *Recorder {
	labels := prometheus.Labels{"iface": iface}

	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "transitions_total",
			Help:        "Link state transitions grouped by source and target state",
			ConstLabels: labels,
		}, []string{"from", "to"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "teardowns_total",
			Help:        "Link teardowns grouped by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		discoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "discoveries_total",
			Help:        "Discovery requests sent",
			ConstLabels: labels,
		}),
		discoveryTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "discovery_timeouts_total",
			Help:        "Discovery requests that went unanswered",
			ConstLabels: labels,
		}),
		responses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "discovery_responses_total",
			Help:        "Discovery responses received, from any peer",
			ConstLabels: labels,
		}),
		policyDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "policy_denied_total",
			Help:        "Link attempts held back by the concurrency policy, grouped by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		scanVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "scan_verdicts_total",
			Help:        "Scan requests grouped by verdict",
			ConstLabels: labels,
		}, []string{"verdict"}),
		trackerDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tracker_dropped_total",
			Help:        "Traffic observations dropped because the tracker table was full",
			ConstLabels: labels,
		}),
		trackerEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tracker_evicted_total",
			Help:        "Tracker entries that aged out or were removed",
			ConstLabels: labels,
		}),
		unknownEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "unknown_peer_events_total",
			Help:        "Events ignored because they referenced an unknown peer",
			ConstLabels: labels,
		}, []string{"event"}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "peers",
			Help:        "Peers in the registry",
			ConstLabels: labels,
		}),
		links: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "links",
			Help:        "Connected direct links",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		r.transitions,
		r.teardowns,
		r.discoveries,
		r.discoveryTimeout,
		r.responses,
		r.policyDenied,
		r.scanVerdicts,
		r.trackerDrops,
		r.trackerEvictions,
		r.unknownEvents,
		r.peers,
		r.links,
	)
	return r
}

// Handler returns HTTP handler serving /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (r *Recorder) ObserveTransition(from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *Recorder) ObserveTeardown(reason string) {
	if r == nil {
		return
	}
	r.teardowns.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveDiscovery() {
	if r == nil {
		return
	}
	r.discoveries.Inc()
}

func (r *Recorder) ObserveDiscoveryTimeout() {
	if r == nil {
		return
	}
	r.discoveryTimeout.Inc()
}

func (r *Recorder) ObserveDiscoveryResponse() {
	if r == nil {
		return
	}
	r.responses.Inc()
}

func (r *Recorder) ObservePolicyDenied(reason string) {
	if r == nil {
		return
	}
	r.policyDenied.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveScanVerdict(verdict string) {
	if r == nil {
		return
	}
	r.scanVerdicts.WithLabelValues(verdict).Inc()
}

func (r *Recorder) ObserveTrackerDrop() {
	if r == nil {
		return
	}
	r.trackerDrops.Inc()
}

func (r *Recorder) ObserveTrackerEviction() {
	if r == nil {
		return
	}
	r.trackerEvictions.Inc()
}

func (r *Recorder) ObserveUnknownPeer(event string) {
	if r == nil {
		return
	}
	r.unknownEvents.WithLabelValues(event).Inc()
}

func (r *Recorder) SetPeers(n int) {
	if r == nil {
		return
	}
	r.peers.Set(float64(n))
}

func (r *Recorder) SetLinks(n int) {
	if r == nil {
		return
	}
	r.links.Set(float64(n))
}
