package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter names used across the service.
const (
	CounterDealsCreated        = "deals_created_total"
	CounterStagesAdvanced      = "stages_advanced_total"
	CounterStagesBlocked       = "stages_blocked_total"
	CounterTasksCompleted      = "tasks_completed_total"
	CounterCPsSatisfied        = "cps_satisfied_total"
	CounterRequisitionsRaised  = "requisitions_raised_total"
	CounterDrawdownsRequested  = "drawdowns_requested_total"
	CounterDrawdownsApproved   = "drawdowns_approved_total"
	CounterNotificationsFailed = "notifications_failed_total"
	CounterAuditEventsIndexed  = "audit_events_indexed_total"
	CounterDBQueries           = "db_queries_total"
	CounterDBErrors            = "db_queries_error_total"
)

// TimerStats summarizes a timer for the metrics endpoint.
type TimerStats struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

// Metrics is the in-process metrics collector.
type Metrics struct {
	mu        sync.RWMutex
	counters  map[string]*int64
	gauges    map[string]*int64
	timers    map[string]*timer
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:  make(map[string]*int64),
		gauges:    make(map[string]*int64),
		timers:    make(map[string]*timer),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if counter, exists = m.counters[name]; !exists {
			var c int64
			counter = &c
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(counter, value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if gauge, exists = m.gauges[name]; !exists {
			var g int64
			gauge = &g
			m.gauges[name] = gauge
		}
		m.mu.Unlock()
	}

	atomic.StoreInt64(gauge, value)
}

// RecordTimer records a timing measurement in milliseconds
func (m *Metrics) RecordTimer(name string, durationMs int64) {
	m.mu.RLock()
	t, exists := m.timers[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if t, exists = m.timers[name]; !exists {
			t = &timer{minTimeMs: int64(^uint64(0) >> 1)}
			m.timers[name] = t
		}
		m.mu.Unlock()
	}

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, durationMs)

	for {
		currentMin := atomic.LoadInt64(&t.minTimeMs)
		if durationMs >= currentMin {
			break
		}
		if atomic.CompareAndSwapInt64(&t.minTimeMs, currentMin, durationMs) {
			break
		}
	}

	for {
		currentMax := atomic.LoadInt64(&t.maxTimeMs)
		if durationMs <= currentMax {
			break
		}
		if atomic.CompareAndSwapInt64(&t.maxTimeMs, currentMax, durationMs) {
			break
		}
	}
}

// RecordDatabaseQuery records a database query outcome and duration.
func (m *Metrics) RecordDatabaseQuery(queryType string, success bool, duration time.Duration) {
	m.IncrementCounter(CounterDBQueries)
	if !success {
		m.IncrementCounter(CounterDBErrors)
	}
	m.RecordTimer("db_"+queryType+"_ms", duration.Milliseconds())
}

// Snapshot returns a point-in-time copy of all metrics for the
// /metrics endpoint.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, c := range m.counters {
		counters[name] = atomic.LoadInt64(c)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, g := range m.gauges {
		gauges[name] = atomic.LoadInt64(g)
	}

	timers := make(map[string]TimerStats, len(m.timers))
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalTimeMs)
		stats := TimerStats{
			Count:       count,
			TotalTimeMs: total,
			MinTimeMs:   atomic.LoadInt64(&t.minTimeMs),
			MaxTimeMs:   atomic.LoadInt64(&t.maxTimeMs),
		}
		if count > 0 {
			stats.AverageTimeMs = float64(total) / float64(count)
		}
		timers[name] = stats
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"counters":       counters,
		"gauges":         gauges,
		"timers":         timers,
	}
}

var (
	defaultCollector     *Metrics
	defaultCollectorOnce sync.Once
)

// GetMetricsCollector returns the process-wide collector, used by the
// database hooks which have no injection point.
func GetMetricsCollector() *Metrics {
	defaultCollectorOnce.Do(func() {
		defaultCollector = NewMetrics()
	})
	return defaultCollector
}
