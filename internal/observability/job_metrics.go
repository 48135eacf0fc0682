package observability

import (
	"sync/atomic"
	"time"
)

// MailMetrics is a registry-free counter set for the mail worker. The
// worker health endpoint reads a snapshot; Prometheus export is wired
// separately via Prom.
type MailMetrics struct {
	claimed      atomic.Uint64
	done         atomic.Uint64
	failed       atomic.Uint64
	retried      atomic.Uint64
	deadLettered atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewMailMetrics() *MailMetrics {
	return &MailMetrics{}
}

func (m *MailMetrics) IncClaimed() { m.claimed.Add(1) }
func (m *MailMetrics) IncDone()    { m.done.Add(1) }
func (m *MailMetrics) IncFailed()  { m.failed.Add(1) }
func (m *MailMetrics) IncRetried() { m.retried.Add(1) }

func (m *MailMetrics) IncDeadLettered() { m.deadLettered.Add(1) }

func (m *MailMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	// max update
	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type MailMetricsSnapshot struct {
	Claimed         uint64        `json:"claimed"`
	Done            uint64        `json:"done"`
	Failed          uint64        `json:"failed"`
	Retried         uint64        `json:"retried"`
	DeadLettered    uint64        `json:"deadLettered"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDuration"`
	MaxDuration     time.Duration `json:"maxDuration"`
}

func (m *MailMetrics) Snapshot() MailMetricsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return MailMetricsSnapshot{
		Claimed:         m.claimed.Load(),
		Done:            m.done.Load(),
		Failed:          m.failed.Load(),
		Retried:         m.retried.Load(),
		DeadLettered:    m.deadLettered.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}
}
