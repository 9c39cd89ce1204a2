package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth reports that the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"database": "ok"}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
			checks["database"] = "failed"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "http_last_request_duration_microseconds", "gauge", "Duration of the last request", traceMetrics.LastDurationUs)
	writeMetric(w, "rate_limit_allowed_total", "counter", "Requests admitted by the rate limiter", rateLimitMetrics.Allowed)
	writeMetric(w, "rate_limit_limited_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Limited)
	writeMetric(w, "rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	writeMetric(w, "security_suspicious_requests_total", "counter", "Requests matching a probing pattern", securityMetrics.SuspiciousRequests)
	writeMetric(w, "security_blocked_requests_total", "counter", "Requests rejected by the detector", securityMetrics.BlockedRequests)

	if s.cacheStats != nil {
		stats := s.cacheStats()
		writeMetric(w, "goal_cache_hits_total", "counter", "Goal cache hits", int64(stats.Hits))
		writeMetric(w, "goal_cache_misses_total", "counter", "Goal cache misses", int64(stats.Misses))
		writeMetric(w, "goal_cache_evictions_total", "counter", "Goal cache evictions", int64(stats.Evictions))
	}

	writeMetric(w, "uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.started).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}
