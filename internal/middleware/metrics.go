package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters
type Metrics struct {
	RequestsTotal   uint64
	RequestsFailed  uint64
	RunsStarted     uint64
	RunsCompleted   uint64
	RunsFailed      uint64
	RunsCancelled   uint64
	RecordsExported uint64
	StartTime       time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

func IncrementRequests()      { atomic.AddUint64(&globalMetrics.RequestsTotal, 1) }
func IncrementFailed()        { atomic.AddUint64(&globalMetrics.RequestsFailed, 1) }
func IncrementRunsStarted()   { atomic.AddUint64(&globalMetrics.RunsStarted, 1) }
func IncrementRunsDone()      { atomic.AddUint64(&globalMetrics.RunsCompleted, 1) }
func IncrementRunsFailed()    { atomic.AddUint64(&globalMetrics.RunsFailed, 1) }
func IncrementRunsCancelled() { atomic.AddUint64(&globalMetrics.RunsCancelled, 1) }

func AddRecordsExported(n int) {
	if n > 0 {
		atomic.AddUint64(&globalMetrics.RecordsExported, uint64(n))
	}
}

// MetricsMiddleware counts requests and failures
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if wrapped.statusCode >= 500 {
			IncrementFailed()
		}
	})
}

// MetricsHandler exposes the counters as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	out := map[string]any{
		"requests_total":   atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_failed":  atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"runs_started":     atomic.LoadUint64(&globalMetrics.RunsStarted),
		"runs_completed":   atomic.LoadUint64(&globalMetrics.RunsCompleted),
		"runs_failed":      atomic.LoadUint64(&globalMetrics.RunsFailed),
		"runs_cancelled":   atomic.LoadUint64(&globalMetrics.RunsCancelled),
		"records_exported": atomic.LoadUint64(&globalMetrics.RecordsExported),
		"uptime_seconds":   time.Since(globalMetrics.StartTime).Seconds(),
		"goroutines":       runtime.NumGoroutine(),
		"heap_alloc_bytes": mem.HeapAlloc,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
