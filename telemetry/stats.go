// Package telemetry collects owner-update statistics from a swarm and
// exposes them as CSV records and Prometheus metrics.
package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"picswarm/swarm"
)

// CycleRecord is the CSV form of one owner-update cycle.
type CycleRecord struct {
	Cycle       int64   `csv:"cycle"`
	LocalBefore int     `csv:"local_before"`
	LocalAfter  int     `csv:"local_after"`
	Relocated   int     `csv:"relocated"`
	Sent        int     `csv:"sent"`
	Received    int     `csv:"received"`
	Escaped     int     `csv:"escaped"`
	DurationMS  float64 `csv:"duration_ms"`
}

// Summary aggregates the recorded cycles.
type Summary struct {
	Cycles         int
	TotalSent      int
	TotalReceived  int
	TotalEscaped   int
	DurationMeanMS float64
	DurationStdMS  float64
	EscapedMean    float64
}

// Collector implements swarm.Recorder. It keeps every cycle's statistics,
// optionally mirrors them to an OutputManager and a Metrics set.
type Collector struct {
	out     *OutputManager
	metrics *Metrics
	cycles  []swarm.OwnerUpdateStats
}

// NewCollector creates a collector. Both out and metrics may be nil.
func NewCollector(out *OutputManager, metrics *Metrics) *Collector {
	return &Collector{out: out, metrics: metrics}
}

// RecordOwnerUpdate records one cycle's statistics.
func (c *Collector) RecordOwnerUpdate(s swarm.OwnerUpdateStats) {
	c.cycles = append(c.cycles, s)
	if c.metrics != nil {
		c.metrics.observe(s)
	}
	if c.out != nil {
		// Output failures must not disturb the simulation loop.
		_ = c.out.WriteCycle(toRecord(s))
	}
}

// Cycles returns the number of recorded cycles.
func (c *Collector) Cycles() int { return len(c.cycles) }

// Summarize computes aggregate statistics over all recorded cycles.
func (c *Collector) Summarize() Summary {
	s := Summary{Cycles: len(c.cycles)}
	if s.Cycles == 0 {
		return s
	}
	durations := make([]float64, len(c.cycles))
	escaped := make([]float64, len(c.cycles))
	for i, cy := range c.cycles {
		s.TotalSent += cy.Sent
		s.TotalReceived += cy.Received
		s.TotalEscaped += cy.Escaped
		durations[i] = float64(cy.Duration.Microseconds()) / 1e3
		escaped[i] = float64(cy.Escaped)
	}
	s.DurationMeanMS = stat.Mean(durations, nil)
	if len(durations) > 1 {
		s.DurationStdMS = stat.StdDev(durations, nil)
	}
	s.EscapedMean = stat.Mean(escaped, nil)
	return s
}

func toRecord(s swarm.OwnerUpdateStats) CycleRecord {
	return CycleRecord{
		Cycle:       s.Cycle,
		LocalBefore: s.LocalBefore,
		LocalAfter:  s.LocalAfter,
		Relocated:   s.Relocated,
		Sent:        s.Sent,
		Received:    s.Received,
		Escaped:     s.Escaped,
		DurationMS:  float64(s.Duration.Microseconds()) / 1e3,
	}
}
