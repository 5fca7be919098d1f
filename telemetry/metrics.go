package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"picswarm/swarm"
)

// Metrics exposes owner-update activity as Prometheus collectors.
type Metrics struct {
	OwnerUpdates      prometheus.Counter
	ParticlesMigrated prometheus.Counter
	ParticlesEscaped  prometheus.Counter
	ParticlesLocal    prometheus.Gauge
}

// NewMetrics registers the swarm metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OwnerUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarm_owner_updates_total",
			Help: "Completed owner-update cycles on this rank.",
		}),
		ParticlesMigrated: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarm_particles_migrated_total",
			Help: "Particles sent to other ranks during owner updates.",
		}),
		ParticlesEscaped: factory.NewCounter(prometheus.CounterOpts{
			Name: "swarm_particles_escaped_total",
			Help: "Particles evicted as outside every rank's partition.",
		}),
		ParticlesLocal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swarm_particles_local",
			Help: "Live particles on this rank after the last owner update.",
		}),
	}
}

func (m *Metrics) observe(s swarm.OwnerUpdateStats) {
	m.OwnerUpdates.Inc()
	m.ParticlesMigrated.Add(float64(s.Sent))
	m.ParticlesEscaped.Add(float64(s.Escaped))
	m.ParticlesLocal.Set(float64(s.LocalAfter))
}
