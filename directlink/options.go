package directlink

import "github.com/prometheus/client_golang/prometheus"

type options struct {
	registerer prometheus.Registerer
	iface      string
}

type Option func(o *options)

// WithMetrics registers the manager's metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithInterface names the radio interface, for logs and metric labels.
func WithInterface(name string) Option {
	return func(o *options) {
		o.iface = name
	}
}
