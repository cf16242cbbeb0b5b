package service

import (
	"fmt"

	"github.com/reynard/nlweb/pkg/protocol"
)

// Rollout thresholds checked by Verification.
const (
	maxP95LatencyMs     = 1500.0
	minCacheHitRate     = 20.0
	minVerifiedRequests = 10
)

// Health reports whether the service can answer suggestions.
func (s *Service) Health() protocol.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status string
	switch {
	case !s.cfg.Enabled:
		status = protocol.HealthDisabled
	case !s.initialized:
		status = protocol.HealthUnhealthy
	case s.cfg.RollbackEnabled:
		status = protocol.HealthDegraded
	case s.connectionState == StateConnected:
		status = protocol.HealthHealthy
	default:
		status = protocol.HealthUnhealthy
	}

	lastOK := s.lastOK
	if lastOK != nil {
		t := *lastOK
		lastOK = &t
	}

	return protocol.HealthStatus{
		Status:                status,
		Enabled:               s.cfg.Enabled,
		ConnectionState:       s.connectionState,
		ConnectionAttempts:    s.connectionAttempts,
		LastOKTimestamp:       lastOK,
		BaseURL:               s.cfg.BaseURL,
		CanaryEnabled:         s.cfg.CanaryEnabled,
		CanaryPercentage:      s.cfg.CanaryPercentage,
		RollbackEnabled:       s.cfg.RollbackEnabled,
		PerformanceMonitoring: s.cfg.PerformanceMonitoringEnabled,
	}
}

// SetRollback turns emergency rollback on or off. While on, Suggest returns
// empty responses without consulting the router.
func (s *Service) SetRollback(req protocol.RollbackRequest) protocol.RollbackResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.RollbackEnabled = req.Enable
	s.rollbackReason = req.Reason

	if req.Enable {
		s.logger.Warn().Str("reason", req.Reason).Msg("emergency rollback enabled")
	} else {
		s.logger.Info().Str("reason", req.Reason).Msg("emergency rollback disabled")
	}

	return protocol.RollbackResponse{
		Success:         true,
		RollbackEnabled: req.Enable,
		Reason:          req.Reason,
		Timestamp:       s.now(),
	}
}

// Verification returns the rollout checklist.
func (s *Service) Verification() protocol.VerificationResponse {
	ps := s.PerformanceStats()

	s.mu.RLock()
	cfg := s.cfg
	initialized := s.initialized
	s.mu.RUnlock()

	checks := []protocol.VerificationCheck{
		{
			Name:        "service_available",
			Description: "NLWeb service is available and initialized",
			Status:      passOr(initialized, protocol.CheckFail),
			Value:       initialized,
			Threshold:   "true",
		},
		{
			Name:        "configuration_loaded",
			Description: "NLWeb configuration is loaded",
			Status:      protocol.CheckPass,
			Value:       true,
			Threshold:   "true",
		},
	}

	if cfg.PerformanceMonitoringEnabled {
		checks = append(checks,
			protocol.VerificationCheck{
				Name:        "suggestion_latency_p95",
				Description: "P95 suggestion latency under 1.5s",
				Status:      passOr(ps.P95ProcessingTimeMs <= maxP95LatencyMs, protocol.CheckFail),
				Value:       fmt.Sprintf("%.1fms", ps.P95ProcessingTimeMs),
				Threshold:   "1500ms",
			},
			protocol.VerificationCheck{
				Name:        "cache_hit_rate",
				Description: "Cache hit rate above 20%",
				Status:      passOr(ps.CacheHitRate >= minCacheHitRate, protocol.CheckFail),
				Value:       fmt.Sprintf("%.1f%%", ps.CacheHitRate),
				Threshold:   "20%",
			},
			protocol.VerificationCheck{
				Name:        "total_requests",
				Description: "At least 10 requests processed",
				Status:      passOr(ps.TotalRequests >= minVerifiedRequests, protocol.CheckWarn),
				Value:       ps.TotalRequests,
				Threshold:   "10",
			},
		)
	}

	checks = append(checks,
		protocol.VerificationCheck{
			Name:        "nlweb_enabled",
			Description: "NLWeb integration enabled",
			Status:      passOr(cfg.Enabled, protocol.CheckInfo),
			Value:       cfg.Enabled,
			Threshold:   "true",
		},
		protocol.VerificationCheck{
			Name:        "canary_enabled",
			Description: "Canary rollout enabled",
			Status:      passOr(cfg.CanaryEnabled, protocol.CheckInfo),
			Value:       cfg.CanaryEnabled,
			Threshold:   "true",
		},
		protocol.VerificationCheck{
			Name:        "rollback_enabled",
			Description: "Emergency rollback enabled",
			Status:      passOr(!cfg.RollbackEnabled, protocol.CheckWarn),
			Value:       cfg.RollbackEnabled,
			Threshold:   "false",
		},
	)

	return protocol.VerificationResponse{
		ServiceAvailable: initialized,
		ConfigLoaded:     true,
		Checks:           checks,
		OverallStatus:    overallStatus(checks),
	}
}

func passOr(ok bool, otherwise string) string {
	if ok {
		return protocol.CheckPass
	}
	return otherwise
}

// overallStatus is fail if any check failed, else warn if any warned.
func overallStatus(checks []protocol.VerificationCheck) string {
	status := protocol.CheckPass
	for _, c := range checks {
		switch c.Status {
		case protocol.CheckFail:
			return protocol.CheckFail
		case protocol.CheckWarn:
			status = protocol.CheckWarn
		}
	}
	return status
}
