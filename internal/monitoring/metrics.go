package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	mu              sync.RWMutex
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ms"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
	totalDuration   time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		StatusCodes: make(map[string]int64),
		Endpoints:   make(map[string]int64),
		StartTime:   time.Now(),
	}
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.ActiveRequests++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			endpoint = c.Request.Method + " unmatched"
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.RequestCount++
		m.ActiveRequests--
		m.totalDuration += duration
		m.RequestDuration = m.totalDuration / time.Duration(m.RequestCount)
		m.LastRequest = time.Now()

		if statusCode >= 400 {
			m.ErrorCount++
		}
		m.StatusCodes[http.StatusText(statusCode)]++
		m.Endpoints[endpoint]++
	}
}

// Snapshot returns a copy that is safe to serialize while requests continue.
func (m *Metrics) Snapshot() *Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := &Metrics{
		RequestCount:    m.RequestCount,
		RequestDuration: m.RequestDuration,
		ActiveRequests:  m.ActiveRequests,
		ErrorCount:      m.ErrorCount,
		StatusCodes:     make(map[string]int64, len(m.StatusCodes)),
		Endpoints:       make(map[string]int64, len(m.Endpoints)),
		StartTime:       m.StartTime,
		LastRequest:     m.LastRequest,
	}

	for k, v := range m.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range m.Endpoints {
		snapshot.Endpoints[k] = v
	}

	return snapshot
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.StartTime)
}

type SystemMetrics struct {
	Uptime         time.Duration `json:"uptime"`
	MemoryUsage    MemoryStats   `json:"memory"`
	GoroutineCount int           `json:"goroutine_count"`
	CPUCount       int           `json:"cpu_count"`
	GoVersion      string        `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	LastGC       string `json:"last_gc"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func GetSystemMetrics(uptime time.Duration) SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime: uptime,
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(m.Alloc),
			TotalAlloc:   bToMb(m.TotalAlloc),
			Sys:          bToMb(m.Sys),
			NumGC:        m.NumGC,
			NextGC:       bToMb(m.NextGC),
			LastGC:       time.Unix(0, int64(m.LastGC)).Format(time.RFC3339),
			GCPauseTotal: time.Duration(m.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// StatsFunc reports component statistics, such as a database pool or cache.
type StatsFunc func() map[string]interface{}

func MetricsHandler(metrics *Metrics, components map[string]StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		componentStats := make(map[string]interface{}, len(components))
		for name, stats := range components {
			componentStats[name] = stats()
		}

		c.JSON(http.StatusOK, gin.H{
			"application": metrics.Snapshot(),
			"system":      GetSystemMetrics(metrics.Uptime()),
			"components":  componentStats,
			"timestamp":   time.Now(),
		})
	}
}

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthCheckFunc func(ctx context.Context) error

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker runs every registered check on each request.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheckFunc
	timeout time.Duration
}

func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		checks:  make(map[string]HealthCheckFunc),
		timeout: timeout,
	}
}

func (h *HealthChecker) Register(name string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) Run(ctx context.Context) (map[string]HealthCheck, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]HealthCheck, len(names))
	healthy := true
	for _, name := range names {
		result := HealthCheck{Name: name, Status: StatusHealthy, LastRun: time.Now()}

		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		if err := checks[name](checkCtx); err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			healthy = false
		}
		cancel()

		results[name] = result
	}
	return results, healthy
}

func HealthHandler(checker *HealthChecker, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks, healthy := checker.Run(c.Request.Context())

		overallStatus := StatusHealthy
		status := http.StatusOK
		if !healthy {
			overallStatus = StatusUnhealthy
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now(),
			"checks":    checks,
			"uptime":    metrics.Uptime().String(),
		})
	}
}

func ReadinessHandler(checker *HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, healthy := checker.Run(c.Request.Context()); !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": time.Now(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now(),
		})
	}
}

func LivenessHandler(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
			"uptime":    metrics.Uptime().String(),
		})
	}
}
