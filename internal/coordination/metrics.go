package coordination

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the counters and histograms spec.md §4.10 names for a
// worker's coordination loop, grounded on the throughput-counter idiom
// the pack's storage-system example registers per shard: one
// Prometheus registry, a handful of named instruments, a rank label
// distinguishing this worker's series from its peers'. Metrics is
// optional — a nil *Metrics disables every observe call.
type Metrics struct {
	ticksProcessed    prometheus.Counter
	haloSyncSeconds   prometheus.Histogram
	transporterBytes  prometheus.Counter
	rebalanceWindow   prometheus.Histogram
}

// NewMetrics builds and registers a Metrics for rank against reg.
func NewMetrics(reg prometheus.Registerer, rank int) *Metrics {
	labels := prometheus.Labels{"rank": strconv.Itoa(rank)}
	m := &Metrics{
		ticksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "toroidal_sim_ticks_processed_total",
			Help:        "Coordination ticks this worker has completed.",
			ConstLabels: labels,
		}),
		haloSyncSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "toroidal_sim_halo_sync_seconds",
			Help:        "Wall time spent syncing all registered fields' halos, per tick.",
			ConstLabels: labels,
		}),
		transporterBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "toroidal_sim_transporter_bytes_sent_total",
			Help:        "Bytes the transporter has sent across all neighbor exchanges.",
			ConstLabels: labels,
		}),
		rebalanceWindow: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "toroidal_sim_tick_duration_seconds",
			Help:        "Per-tick duration, as measured by the rebalance rolling-window timer.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.ticksProcessed, m.haloSyncSeconds, m.transporterBytes, m.rebalanceWindow)
	return m
}

func (m *Metrics) observeTick() {
	if m == nil {
		return
	}
	m.ticksProcessed.Inc()
}

func (m *Metrics) observeHaloSync(d time.Duration) {
	if m == nil {
		return
	}
	m.haloSyncSeconds.Observe(d.Seconds())
}

func (m *Metrics) observeTickDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.rebalanceWindow.Observe(d.Seconds())
}

func (m *Metrics) addTransporterBytes(n uint64) {
	if m == nil {
		return
	}
	m.transporterBytes.Add(float64(n))
}
