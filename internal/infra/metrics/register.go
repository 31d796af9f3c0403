package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors for the payment, reconciliation, notification and campaign
// series are built by init() in their own files and queued here; nothing
// touches the default registry until the process opts in.
var (
	once    sync.Once
	pending []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every queued collector into the default Prometheus
// registry. Safe to call more than once; only the first call registers, so
// tests that never scrape can skip it entirely.
func MustRegister() {
	once.Do(func() {
		if len(pending) > 0 {
			prometheus.MustRegister(pending...)
		}
	})
}
