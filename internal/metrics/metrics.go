package metrics

import (
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalLatency       int64
	RequestCount       int64

	// Stabilization run metrics
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64

	// Generation attempt metrics
	AttemptsSucceeded int64
	AttemptsFailed    int64

	// Outlier metrics
	OutliersRemoved int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesOut int64

	// Per-endpoint metrics
	endpoints map[string]*EndpointMetrics

	startTime time.Time
}

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64 `json:"requests"`
	Errors       int64 `json:"errors"`
	TotalLatency int64 `json:"total_latency_ms"`
}

var (
	instance *Metrics
	once     sync.Once
)

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		instance = &Metrics{
			endpoints: make(map[string]*EndpointMetrics),
			startTime: time.Now(),
		}
	})
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return instance
}

// IncrementRequests records a completed HTTP request
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
	atomic.AddInt64(&m.TotalLatency, latencyMs)
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementRunStarted records the start of a stabilization run
func (m *Metrics) IncrementRunStarted() {
	atomic.AddInt64(&m.RunsStarted, 1)
}

// IncrementRunCompleted records a finished stabilization run
func (m *Metrics) IncrementRunCompleted(outliersRemoved int) {
	atomic.AddInt64(&m.RunsCompleted, 1)
	atomic.AddInt64(&m.OutliersRemoved, int64(outliersRemoved))
}

// IncrementRunFailed records a failed stabilization run
func (m *Metrics) IncrementRunFailed() {
	atomic.AddInt64(&m.RunsFailed, 1)
}

// IncrementAttempt records one generation attempt outcome
func (m *Metrics) IncrementAttempt(success bool) {
	if success {
		atomic.AddInt64(&m.AttemptsSucceeded, 1)
	} else {
		atomic.AddInt64(&m.AttemptsFailed, 1)
	}
}

// IncrementWSConnection records a new WebSocket connection
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection records a closed WebSocket connection
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageOut records an outbound WebSocket message
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// TrackEndpoint records a request against a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	ep, exists := m.endpoints[key]
	if !exists {
		ep = &EndpointMetrics{}
		m.endpoints[key] = ep
	}

	ep.Requests++
	ep.TotalLatency += latencyMs
	if statusCode >= 400 {
		ep.Errors++
	}
}

// Snapshot is a point-in-time view of all metrics
type Snapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Runs struct {
		Started         int64 `json:"started"`
		Completed       int64 `json:"completed"`
		Failed          int64 `json:"failed"`
		OutliersRemoved int64 `json:"outliers_removed"`
	} `json:"runs"`

	Attempts struct {
		Succeeded int64 `json:"succeeded"`
		Failed    int64 `json:"failed"`
	} `json:"attempts"`

	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	System struct {
		Goroutines  int    `json:"goroutines"`
		HeapAllocMB uint64 `json:"heap_alloc_mb"`
		HeapInUseMB uint64 `json:"heap_inuse_mb"`
	} `json:"system"`

	Endpoints map[string]EndpointMetrics `json:"endpoints"`
}

// GetSnapshot returns a consistent view of all metrics
func (m *Metrics) GetSnapshot() Snapshot {
	var snap Snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()

	snap.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snap.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snap.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	if count := atomic.LoadInt64(&m.RequestCount); count > 0 {
		snap.Requests.AvgLatencyMs = float64(atomic.LoadInt64(&m.TotalLatency)) / float64(count)
	}

	snap.Runs.Started = atomic.LoadInt64(&m.RunsStarted)
	snap.Runs.Completed = atomic.LoadInt64(&m.RunsCompleted)
	snap.Runs.Failed = atomic.LoadInt64(&m.RunsFailed)
	snap.Runs.OutliersRemoved = atomic.LoadInt64(&m.OutliersRemoved)

	snap.Attempts.Succeeded = atomic.LoadInt64(&m.AttemptsSucceeded)
	snap.Attempts.Failed = atomic.LoadInt64(&m.AttemptsFailed)

	snap.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	snap.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap.System.Goroutines = runtime.NumGoroutine()
	snap.System.HeapAllocMB = mem.HeapAlloc / 1024 / 1024
	snap.System.HeapInUseMB = mem.HeapInuse / 1024 / 1024

	snap.Endpoints = make(map[string]EndpointMetrics)
	m.mu.RLock()
	for key, ep := range m.endpoints {
		snap.Endpoints[key] = *ep
	}
	m.mu.RUnlock()

	return snap
}

// HealthStatus describes the health of one component
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheck is the aggregate health report
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// CheckDatabaseHealth pings the database; a nil handle means the
// optional history store is simply disabled.
func CheckDatabaseHealth(db *sql.DB) HealthStatus {
	if db == nil {
		return HealthStatus{Status: "disabled", Message: "history store not configured"}
	}
	if err := db.Ping(); err != nil {
		return HealthStatus{Status: "unhealthy", Message: err.Error()}
	}
	return HealthStatus{Status: "healthy"}
}

// CheckMemoryHealth flags heap usage above the given limit
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	heapMB := mem.HeapAlloc / 1024 / 1024
	if heapMB > maxHeapMB {
		return HealthStatus{Status: "degraded", Message: "heap usage above limit"}
	}
	return HealthStatus{Status: "healthy"}
}

// DetermineOverallStatus folds component statuses into one verdict
func DetermineOverallStatus(components map[string]HealthStatus) string {
	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			return "unhealthy"
		case "degraded":
			overall = "degraded"
		}
	}
	return overall
}
