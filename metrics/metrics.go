/*package metrics collects statistics about neighbor queries and writes them
in the Prometheus text format, so that batch runs can be picked up by a
node_exporter textfile collector.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phil-mansfield/neighbors/locality"
)

// Recorder owns a private registry, so separate runs in the same process
// never share counters.
type Recorder struct {
	reg *prometheus.Registry

	queries *prometheus.CounterVec
	bonds *prometheus.CounterVec
	passes prometheus.Histogram
	neighbors prometheus.Histogram
	duration *prometheus.HistogramVec
	points prometheus.Gauge
}

// NewRecorder creates a Recorder with an empty registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_queries_total",
			Help: "Reference points queried",
		}, []string{"mode"}),
		bonds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neighbors_bonds_total",
			Help: "Bonds found",
		}, []string{"mode"}),
		passes: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "neighbors_nearest_passes",
			Help: "Ball searches needed per nearest neighbor query",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		neighbors: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "neighbors_bonds_per_query",
			Help: "Bonds found per reference point",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "neighbors_stage_duration_seconds",
			Help: "Time spent in each stage of a run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}), // Bounded: "read", "build", "query", "write"
		points: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neighbors_points",
			Help: "Points in the spatial index",
		}),
	}
}

// Registry returns the registry that all metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// SetPoints records the size of the spatial index.
func (r *Recorder) SetPoints(n int) { r.points.Set(float64(n)) }

// ObserveStage records the time elapsed since start for the named stage.
func (r *Recorder) ObserveStage(stage string, start time.Time) {
	r.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveList records the per-reference statistics of a neighbor list.
func (r *Recorder) ObserveList(mode locality.Mode, nl *locality.NeighborList) {
	label := mode.String()
	r.queries.WithLabelValues(label).Add(float64(nl.NumRefs))
	r.bonds.WithLabelValues(label).Add(float64(nl.Len()))

	for _, n := range nl.Counts() { r.neighbors.Observe(float64(n)) }
	if mode == locality.ModeNearest {
		for _, p := range nl.Passes { r.passes.Observe(float64(p)) }
	}
}

// WriteTextfile writes every metric to fname. The file is replaced
// atomically.
func (r *Recorder) WriteTextfile(fname string) error {
	return prometheus.WriteToTextfile(fname, r.reg)
}
