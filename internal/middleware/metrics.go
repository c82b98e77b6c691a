package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal       uint64
	RequestsInProgress  uint64
	RequestsFailed      uint64
	AnalysesTotal       uint64
	EnrichmentsTotal    uint64
	EnrichmentsFellBack uint64
	StartTime           time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementAnalyses counts persisted analyses
func IncrementAnalyses() {
	atomic.AddUint64(&globalMetrics.AnalysesTotal, 1)
}

// IncrementEnrichments counts enrichment attempts
func IncrementEnrichments() {
	atomic.AddUint64(&globalMetrics.EnrichmentsTotal, 1)
}

// IncrementEnrichmentFallbacks counts enrichments that used the fallback payload
func IncrementEnrichmentFallbacks() {
	atomic.AddUint64(&globalMetrics.EnrichmentsFellBack, 1)
}

// MetricsMiddleware tracks request counters
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
		atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
		defer atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= http.StatusInternalServerError {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}

// MetricsHandler exposes the counters as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	out := map[string]any{
		"requests_total":        atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress":  atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_failed":       atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses_total":        atomic.LoadUint64(&globalMetrics.AnalysesTotal),
		"enrichments_total":     atomic.LoadUint64(&globalMetrics.EnrichmentsTotal),
		"enrichments_fell_back": atomic.LoadUint64(&globalMetrics.EnrichmentsFellBack),
		"uptime_seconds":        time.Since(globalMetrics.StartTime).Seconds(),
		"goroutines":            runtime.NumGoroutine(),
		"heap_alloc_bytes":      mem.HeapAlloc,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
