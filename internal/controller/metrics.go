package controller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suxatcode/gravity-sim/nbody"
)

type Metrics struct {
	StepDuration   prometheus.Histogram
	Steps          *prometheus.CounterVec
	Particles      prometheus.Gauge
	TreeNodes      prometheus.Gauge
	Dropped        prometheus.Counter
	Approximations prometheus.Counter
}

// NewMetrics registers the runner metrics with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gravitysim_step_duration_seconds",
			Help:    "Duration of one simulation step in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		Steps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gravitysim_steps_total",
			Help: "Total number of simulation steps",
		}, []string{"status"}), // status: success, failed
		Particles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gravitysim_particles",
			Help: "Number of particles in the last step",
		}),
		TreeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gravitysim_tree_nodes",
			Help: "Number of quadtree nodes in the last step",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gravitysim_dropped_particles_total",
			Help: "Total number of particles left out of the tree for lying outside its boundary",
		}),
		Approximations: factory.NewCounter(prometheus.CounterOpts{
			Name: "gravitysim_approximations_total",
			Help: "Total number of tree nodes treated as a single body",
		}),
	}
}

func (m *Metrics) observe(stats nbody.Stats, elapsed time.Duration) {
	m.StepDuration.Observe(elapsed.Seconds())
	m.Steps.WithLabelValues("success").Inc()
	m.Particles.Set(float64(stats.Particles))
	m.TreeNodes.Set(float64(stats.Nodes))
	m.Dropped.Add(float64(stats.Dropped))
	m.Approximations.Add(float64(stats.Approximations))
}

func (m *Metrics) observeFailure() {
	m.Steps.WithLabelValues("failed").Inc()
}
