package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations      map[string]uint64
	Logins             map[string]uint64
	AuthzDecisions     map[string]uint64
	CampaignsCreated   uint64
	TargetsAdded       uint64
	TrackingPublished  map[string]uint64
	TrackingProcessed  map[string]uint64
	TrackingBatches    uint64
	TrackingQueueDepth int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu       sync.Mutex
	counters map[string]map[string]uint64

	campaignsCreated uint64
	targetsAdded     uint64
	batches          uint64
	queueDepth       int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{counters: make(map[string]map[string]uint64)}
}

func (m *InMemoryRecorder) inc(name, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		c = make(map[string]uint64)
		m.counters[name] = c
	}
	c[label]++
}

func (m *InMemoryRecorder) copyOf(name string) map[string]uint64 {
	out := make(map[string]uint64, len(m.counters[name]))
	for k, v := range m.counters[name] {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Registrations:      m.copyOf("registrations"),
		Logins:             m.copyOf("logins"),
		AuthzDecisions:     m.copyOf("authz"),
		CampaignsCreated:   atomic.LoadUint64(&m.campaignsCreated),
		TargetsAdded:       atomic.LoadUint64(&m.targetsAdded),
		TrackingPublished:  m.copyOf("tracking_published"),
		TrackingProcessed:  m.copyOf("tracking_processed"),
		TrackingBatches:    atomic.LoadUint64(&m.batches),
		TrackingQueueDepth: atomic.LoadInt64(&m.queueDepth),
	}
}

func (m *InMemoryRecorder) IncRegistration(status string) { m.inc("registrations", status) }

func (m *InMemoryRecorder) IncLogin(status string) { m.inc("logins", status) }

func (m *InMemoryRecorder) IncAuthzDecision(decision string) { m.inc("authz", decision) }

func (m *InMemoryRecorder) IncCampaignCreated() { atomic.AddUint64(&m.campaignsCreated, 1) }

func (m *InMemoryRecorder) IncTargetAdded() { atomic.AddUint64(&m.targetsAdded, 1) }

func (m *InMemoryRecorder) IncTrackingEventPublished(status string) {
	m.inc("tracking_published", status)
}

func (m *InMemoryRecorder) IncTrackingEventProcessed(status string) {
	m.inc("tracking_processed", status)
}

func (m *InMemoryRecorder) ObserveTrackingBatchSize(int) {}

func (m *InMemoryRecorder) ObserveTrackingBatchDuration(time.Duration) {
	atomic.AddUint64(&m.batches, 1)
}

func (m *InMemoryRecorder) SetTrackingQueueDepth(depth int64) {
	atomic.StoreInt64(&m.queueDepth, depth)
}
