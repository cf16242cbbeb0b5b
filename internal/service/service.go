// Package service composes the tool registry and router into the NLWeb
// suggestion service.
//
// The service owns availability gating (enabled, initialised, rollback),
// request validation, health and rollout verification, and runtime
// configuration updates. It is the boundary where registry and router
// results become AppErrors.
package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/reynard/nlweb/internal/cache"
	"github.com/reynard/nlweb/internal/catalog"
	"github.com/reynard/nlweb/internal/classifier"
	"github.com/reynard/nlweb/internal/config"
	apperrors "github.com/reynard/nlweb/internal/errors"
	"github.com/reynard/nlweb/internal/logging"
	"github.com/reynard/nlweb/internal/registry"
	"github.com/reynard/nlweb/internal/router"
	"github.com/reynard/nlweb/internal/stats"
	"github.com/reynard/nlweb/pkg/protocol"
)

// Connection states reported by Health.
const (
	StateDisconnected = "disconnected"
	StateConnected    = "connected"
	StateError        = "error"
)

// DefaultBatchConcurrency bounds SuggestBatch.
const DefaultBatchConcurrency = 4

// CachePruneInterval is how often serve drops expired cached suggestions.
const CachePruneInterval = 30 * time.Second

// Service is the NLWeb suggestion service.
type Service struct {
	mu sync.RWMutex

	cfg     config.NLWebConfig
	catalog config.CatalogConfig
	server  config.ServerConfig

	registry   *registry.ToolRegistry
	classifier *classifier.Classifier
	router     *router.Router
	stats      *stats.Collector

	// Tools as registered by each source, used to restore a name another
	// source still provides when a catalog file drops it.
	builtinTools []protocol.Tool
	catalogTools map[string][]protocol.Tool
	runtimeTools map[string]protocol.Tool

	initialized        bool
	connectionState    string
	connectionAttempts int
	lastOK             *time.Time
	rollbackReason     string

	batchConcurrency int
	now              func() time.Time
	logger           zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps and the stats window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBatchConcurrency sets how many batch requests run at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New creates a service from configuration. Call Initialize before Suggest.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		cfg:              cfg.NLWeb,
		catalog:          cfg.Catalog,
		server:           cfg.Server,
		connectionState:  StateDisconnected,
		catalogTools:     make(map[string][]protocol.Tool),
		runtimeTools:     make(map[string]protocol.Tool),
		batchConcurrency: DefaultBatchConcurrency,
		now:              time.Now,
		logger:           logging.Component(logger, "service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stats = stats.NewCollector(stats.WithClock(s.now))
	s.registry = registry.New(logger)
	s.classifier = newClassifier(cfg.Classifier)
	s.router = router.New(s.registry, logger,
		router.WithCache(cache.New(cfg.NLWeb.CacheTTL(), cfg.NLWeb.CacheMaxEntries, cache.WithClock(s.now))),
		router.WithCollector(s.stats),
		router.WithClassifier(s.classifier),
		router.WithClock(s.now),
	)
	return s
}

// newClassifier adds the configured pattern groups to the built-in ones.
// Patterns are compiled by config validation before they get here.
func newClassifier(cfg config.ClassifierConfig) *classifier.Classifier {
	opts := make([]classifier.Option, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		opts = append(opts, classifier.WithGroup(g.Name, g.Weight, g.Patterns...))
	}
	return classifier.New(opts...)
}

// Initialize registers the built-in and catalog tools and marks the service
// connected. It is a no-op when already initialised or disabled.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if !s.cfg.Enabled {
		s.logger.Info().Msg("NLWeb service disabled in configuration")
		return nil
	}

	s.connectionAttempts++

	var tools []protocol.Tool
	if !s.catalog.SkipBuiltinTools {
		tools = append(tools, catalog.DefaultTools()...)
	}
	loaded := make(map[string][]protocol.Tool, len(s.catalog.Files))
	for _, path := range s.catalog.Files {
		if err := ctx.Err(); err != nil {
			s.connectionState = StateError
			return err
		}
		fileTools, err := catalog.Load(path)
		if err != nil {
			s.connectionState = StateError
			s.logger.Error().Err(err).Str("path", path).Msg("failed to initialize NLWeb service")
			return err
		}
		loaded[path] = fileTools
	}

	s.builtinTools = s.registerLocked(tools)
	registered := len(s.builtinTools)
	for _, path := range s.catalog.Files {
		accepted := s.registerLocked(loaded[path])
		s.catalogTools[path] = accepted
		registered += len(accepted)
		tools = append(tools, loaded[path]...)
	}

	now := s.now()
	s.initialized = true
	s.connectionState = StateConnected
	s.lastOK = &now

	s.logger.Info().
		Int("tools", registered).
		Int("rejected", len(tools)-registered).
		Msg("NLWeb service initialized")
	return nil
}

// ReloadCatalog replaces the tools that came from a catalog file with a
// fresh load of it and clears the suggestion cache. A name the file no longer
// provides is restored from the next source that does (runtime
// registrations, other catalog files, built-ins) or unregistered when none
// does. A load error leaves the current tools in place.
func (s *Service) ReloadCatalog(path string, tools []protocol.Tool, err error) {
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("catalog reload skipped")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.catalogTools[path]
	accepted := s.registerLocked(tools)
	s.catalogTools[path] = accepted

	kept := make(map[string]bool, len(accepted))
	for _, t := range accepted {
		kept[t.Name] = true
	}
	removed, restored := 0, 0
	for _, old := range previous {
		if kept[old.Name] {
			continue
		}
		if owner, ok := s.ownerLocked(old.Name); ok {
			if s.registry.Register(owner) {
				restored++
			}
			continue
		}
		if s.registry.Unregister(old.Name) {
			removed++
		}
	}
	s.router.ClearCache()

	s.logger.Info().
		Str("path", path).
		Int("tools", len(accepted)).
		Int("removed", removed).
		Int("restored", restored).
		Msg("catalog tools replaced")
}

// ownerLocked finds the definition of name from the source with the highest
// precedence: runtime registrations, then catalog files from last to first,
// then built-ins. Caller must hold s.mu.
func (s *Service) ownerLocked(name string) (protocol.Tool, bool) {
	if t, ok := s.runtimeTools[name]; ok {
		return t, true
	}
	for i := len(s.catalog.Files) - 1; i >= 0; i-- {
		for _, t := range s.catalogTools[s.catalog.Files[i]] {
			if t.Name == name {
				return t, true
			}
		}
	}
	for _, t := range s.builtinTools {
		if t.Name == name {
			return t, true
		}
	}
	return protocol.Tool{}, false
}

// WatchCatalogs reloads catalog files as they change until ctx is done.
func (s *Service) WatchCatalogs(ctx context.Context, opts ...catalog.WatchOption) error {
	s.mu.RLock()
	files := slices.Clone(s.catalog.Files)
	s.mu.RUnlock()

	if len(files) == 0 {
		return nil
	}
	w, err := catalog.NewWatcher(files, s.ReloadCatalog, s.logger, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// registerLocked registers tools and returns the ones the registry accepted.
func (s *Service) registerLocked(tools []protocol.Tool) []protocol.Tool {
	accepted := make([]protocol.Tool, 0, len(tools))
	for _, tool := range tools {
		if s.registry.Register(tool) {
			accepted = append(accepted, tool)
		}
	}
	return accepted
}

// Shutdown marks the service uninitialised and disconnected. The configured
// enabled flag is untouched, so a later Initialize brings the service back.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	s.connectionState = StateDisconnected

	s.logger.Info().Msg("NLWeb service shut down")
	return nil
}

// Suggest validates the request and returns ranked tool suggestions.
func (s *Service) Suggest(ctx context.Context, req protocol.SuggestionRequest) (protocol.SuggestionResponse, error) {
	if err := ValidateRequest(req); err != nil {
		s.stats.RecordError()
		return protocol.SuggestionResponse{}, err
	}

	s.mu.RLock()
	available := s.cfg.Enabled && s.initialized
	rollback := s.cfg.RollbackEnabled
	s.mu.RUnlock()

	if !available {
		s.stats.RecordError()
		return protocol.SuggestionResponse{}, apperrors.ErrUnavailable
	}

	requestID := uuid.NewString()
	logger := s.logger.With().Str("request_id", requestID).Logger()

	if rollback {
		logger.Warn().Str("query", req.Query).Msg("rollback enabled, suggestions disabled")
		resp := protocol.EmptyResponse(req.Query)
		resp.RequestID = requestID
		return resp, nil
	}

	resp, ok := s.router.Route(logger.WithContext(ctx), req)
	resp.RequestID = requestID
	if !ok {
		// the router logged and counted the failure; callers still get the
		// empty response
		return resp, nil
	}
	s.stats.RecordSuccess()

	now := s.now()
	s.mu.Lock()
	s.lastOK = &now
	s.mu.Unlock()

	return resp, nil
}

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Response protocol.SuggestionResponse
	Err      error
}

// SuggestBatch runs several suggestions concurrently. Results keep the order
// of reqs.
func (s *Service) SuggestBatch(ctx context.Context, reqs []protocol.SuggestionRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))

	p := pool.New().WithMaxGoroutines(s.batchConcurrency)
	for i, req := range reqs {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Response, results[i].Err = s.Suggest(ctx, req)
		})
	}
	p.Wait()

	return results
}

// RegisterTool adds or replaces a tool. Invalid tools are rejected.
func (s *Service) RegisterTool(tool protocol.Tool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Register(tool) {
		return false
	}
	s.runtimeTools[tool.Name] = tool
	return true
}

// UnregisterTool removes a tool.
func (s *Service) UnregisterTool(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runtimeTools, name)
	return s.registry.Unregister(name)
}

// EnableTool enables a tool.
func (s *Service) EnableTool(name string) bool {
	return s.registry.Enable(name)
}

// DisableTool disables a tool.
func (s *Service) DisableTool(name string) bool {
	return s.registry.Disable(name)
}

// Tool returns a registered tool.
func (s *Service) Tool(name string) (protocol.Tool, error) {
	tool, ok := s.registry.Get(name)
	if !ok {
		return protocol.Tool{}, apperrors.NotFound(apperrors.CodeToolNotFound, name)
	}
	return tool, nil
}

// ListTools returns the tools in category when given, otherwise the union of
// the tools carrying any of tags, otherwise every enabled tool.
func (s *Service) ListTools(category string, tags []string) []protocol.Tool {
	if category != "" {
		return s.registry.GetByCategory(category)
	}
	if len(tags) == 0 {
		return s.registry.GetEnabled()
	}

	seen := make(map[string]bool)
	var out []protocol.Tool
	for _, tag := range tags {
		for _, tool := range s.registry.GetByTag(tag) {
			if seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true
			out = append(out, tool)
		}
	}
	return out
}

// SearchTools ranks registered tools by keyword relevance.
func (s *Service) SearchTools(query, category string, tags []string) []protocol.Tool {
	return s.registry.Search(query, category, tags)
}

// RegistryStats returns tool, category and tag counts.
func (s *Service) RegistryStats() registry.Stats {
	return s.registry.Stats()
}

// RecordUsage records one execution of a tool by the caller.
func (s *Service) RecordUsage(name string, success bool, executionTime time.Duration) bool {
	return s.registry.RecordUsage(name, success, executionTime)
}

// Usage returns execution statistics for a tool.
func (s *Service) Usage(name string) (protocol.ToolUsage, bool) {
	return s.registry.Usage(name)
}

// ClearCache drops every cached suggestion.
func (s *Service) ClearCache() bool {
	s.router.ClearCache()
	return true
}

// PruneCache drops expired cached suggestions and returns how many were
// removed.
func (s *Service) PruneCache() int {
	return s.router.PruneCache()
}

// RunCachePruner calls PruneCache every interval until ctx is done.
func (s *Service) RunCachePruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PruneCache()
		}
	}
}

// CacheStats returns cache counters and limits.
func (s *Service) CacheStats() protocol.CacheStats {
	return s.router.CacheStats()
}

// PerformanceStats returns request counters and latency percentiles.
func (s *Service) PerformanceStats() protocol.PerformanceStats {
	return s.router.PerformanceStats()
}

// UpdateConfiguration applies a partial configuration change. Cache limits
// take effect immediately; enabled and rollback_enabled gate the next call.
func (s *Service) UpdateConfiguration(u config.Update) error {
	if u.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := u.ApplyTo(s.cfg)
	if err != nil {
		return err
	}
	s.cfg = next

	if u.TouchesCache() {
		s.router.Configure(next.CacheTTL(), next.CacheMaxEntries)
	}

	s.logger.Info().Stringer("config", next).Msg("NLWeb configuration updated")
	return nil
}

// Config returns the current NLWeb configuration.
func (s *Service) Config() config.NLWebConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// IsAvailable reports whether Suggest would route the request.
func (s *Service) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Enabled && s.initialized && !s.cfg.RollbackEnabled
}

// Info describes the service.
type Info struct {
	Name               string  `json:"name"`
	Version            string  `json:"version"`
	Enabled            bool    `json:"enabled"`
	Initialized        bool    `json:"initialized"`
	ConnectionState    string  `json:"connection_state"`
	ConnectionAttempts int     `json:"connection_attempts"`
	BaseURL            string  `json:"base_url"`
	RollbackEnabled    bool    `json:"rollback_enabled"`
	RollbackReason     string  `json:"rollback_reason,omitempty"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	Tools              int     `json:"tools"`

	Registry      registry.Stats `json:"registry"`
	PatternGroups []string       `json:"pattern_groups"`
}

// Info returns service identity, state and request counters.
func (s *Service) Info() Info {
	ps := s.PerformanceStats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		Name:               s.server.Name,
		Version:            s.server.Version,
		Enabled:            s.cfg.Enabled,
		Initialized:        s.initialized,
		ConnectionState:    s.connectionState,
		ConnectionAttempts: s.connectionAttempts,
		BaseURL:            s.cfg.BaseURL,
		RollbackEnabled:    s.cfg.RollbackEnabled,
		RollbackReason:     s.rollbackReason,
		UptimeSeconds:      s.now().Sub(s.stats.StartTime()).Seconds(),
		TotalRequests:      ps.TotalRequests,
		SuccessfulRequests: ps.SuccessfulRequests,
		FailedRequests:     ps.FailedRequests,
		Tools:              s.registry.Len(),
		Registry:           s.RegistryStats(),
		PatternGroups:      s.classifier.Groups(),
	}
}
