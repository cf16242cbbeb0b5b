package protocol

import "time"

// PerformanceStats summarises router and service activity.
type PerformanceStats struct {
	TotalRequests          int64   `json:"total_requests"`
	SuccessfulRequests     int64   `json:"successful_requests"`
	FailedRequests         int64   `json:"failed_requests"`
	CacheHits              int64   `json:"cache_hits"`
	CacheMisses            int64   `json:"cache_misses"`
	CacheHitRate           float64 `json:"cache_hit_rate"` // percent
	CacheSize              int     `json:"cache_size"`
	AvgProcessingTimeMs    float64 `json:"avg_processing_time_ms"`
	P95ProcessingTimeMs    float64 `json:"p95_processing_time_ms"`
	P99ProcessingTimeMs    float64 `json:"p99_processing_time_ms"`
	LatencySamplesRetained int     `json:"latency_samples_retained"`
}

// CacheStats describes the suggestion cache.
type CacheStats struct {
	Size        int     `json:"cache_size"`
	MaxSize     int     `json:"cache_max_size"`
	TTLSeconds  float64 `json:"cache_ttl"`
	HitRate     float64 `json:"cache_hit_rate"`
	Hits        int64   `json:"cache_hits"`
	Misses      int64   `json:"cache_misses"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
}

// ToolUsage accumulates execution statistics for one tool.
type ToolUsage struct {
	UsageCount     int64     `json:"usage_count"`
	SuccessCount   int64     `json:"success_count"`
	FailureCount   int64     `json:"failure_count"`
	AvgExecutionMs float64   `json:"avg_execution_time_ms"`
	LastUsed       time.Time `json:"last_used"`
}

// Health status values.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
	HealthDisabled  = "disabled"
)

// HealthStatus reports whether the service can answer suggestions.
type HealthStatus struct {
	Status                string     `json:"status"`
	Enabled               bool       `json:"enabled"`
	ConnectionState       string     `json:"connection_state"`
	ConnectionAttempts    int        `json:"connection_attempts"`
	LastOKTimestamp       *time.Time `json:"last_ok_timestamp,omitempty"`
	BaseURL               string     `json:"base_url,omitempty"`
	CanaryEnabled         bool       `json:"canary_enabled"`
	CanaryPercentage      float64    `json:"canary_percentage"`
	RollbackEnabled       bool       `json:"rollback_enabled"`
	PerformanceMonitoring bool       `json:"performance_monitoring"`
}

// RollbackRequest toggles emergency rollback.
type RollbackRequest struct {
	Enable bool   `json:"enable"`
	Reason string `json:"reason"`
}

// RollbackResponse acknowledges a rollback toggle.
type RollbackResponse struct {
	Success         bool      `json:"success"`
	RollbackEnabled bool      `json:"rollback_enabled"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
}

// Verification check status values.
const (
	CheckPass = "pass"
	CheckWarn = "warn"
	CheckFail = "fail"
	CheckInfo = "info"
)

// VerificationCheck is one rollout checklist item.
type VerificationCheck struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Value       any    `json:"value"`
	Threshold   string `json:"threshold"`
}

// VerificationResponse is the rollout checklist.
type VerificationResponse struct {
	ServiceAvailable bool                `json:"service_available"`
	ConfigLoaded     bool                `json:"config_loaded"`
	Checks           []VerificationCheck `json:"checks"`
	OverallStatus    string              `json:"overall_status"`
}
