// Package router ranks registered tools against a natural-language query.
//
// SuggestTools runs a fixed pipeline: cache lookup, candidate selection,
// scoring, filtering and ranking, parameter extraction, hints and reasoning.
// Results are memoised in a FIFO + TTL cache keyed by the request. The call
// never fails: an internal panic is logged and turned into an empty
// response.
package router

import (
	"context"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reynard/nlweb/internal/cache"
	"github.com/reynard/nlweb/internal/classifier"
	"github.com/reynard/nlweb/internal/stats"
	"github.com/reynard/nlweb/pkg/protocol"
)

// ToolSource supplies the tools eligible for suggestion.
type ToolSource interface {
	GetEnabled() []protocol.Tool
}

// Router ranks tools for queries.
type Router struct {
	tools      ToolSource
	classifier *classifier.Classifier
	cache      *cache.SuggestionCache
	stats      *stats.Collector
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithCache sets the response cache.
func WithCache(c *cache.SuggestionCache) Option {
	return func(r *Router) { r.cache = c }
}

// WithCollector sets the statistics collector, so the owner can share it.
func WithCollector(c *stats.Collector) Option {
	return func(r *Router) { r.stats = c }
}

// WithClassifier sets the query pattern classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(r *Router) { r.classifier = c }
}

// WithClock replaces time.Now for processing-time measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a router over the given tool source.
func New(tools ToolSource, logger zerolog.Logger, opts ...Option) *Router {
	r := &Router{
		tools:  tools,
		now:    time.Now,
		logger: logger.With().Str("component", "router").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.classifier == nil {
		r.classifier = classifier.New()
	}
	if r.cache == nil {
		r.cache = cache.New(cache.DefaultTTL, cache.DefaultMaxSize)
	}
	if r.stats == nil {
		r.stats = stats.NewCollector()
	}
	return r
}

// SuggestTools returns ranked tool suggestions for the request.
// The request is assumed validated; see protocol limits.
func (r *Router) SuggestTools(ctx context.Context, req protocol.SuggestionRequest) protocol.SuggestionResponse {
	resp, _ := r.Route(ctx, req)
	return resp
}

// Route is SuggestTools reporting whether the pipeline completed. When it
// did not, resp is the empty fallback response and the failure has been
// logged and counted as a failed request.
func (r *Router) Route(ctx context.Context, req protocol.SuggestionRequest) (resp protocol.SuggestionResponse, ok bool) {
	start := r.now()
	cacheHit := false

	defer func() {
		if rec := recover(); rec != nil {
			r.loggerFor(ctx).Error().
				Interface("panic", rec).
				Str("query", req.Query).
				Bytes("stack", debug.Stack()).
				Msg("suggestion pipeline failed, returning empty response")
			resp = protocol.EmptyResponse(req.Query)
			resp.ProcessingTimeMs = msSince(r.now(), start)
			ok = false
			cacheHit = false
			r.stats.RecordError()
		}
		r.stats.RecordRequest(r.now().Sub(start), cacheHit)
	}()

	key := CacheKey(req)
	if cached, age, ok := r.cache.Get(key); ok {
		cacheHit = true
		cached.CacheHit = true
		cached.ProcessingTimeMs = msSince(r.now(), start)
		if !req.WantsReasoning() {
			stripReasoning(&cached)
		}
		r.loggerFor(ctx).Debug().
			Str("query", req.Query).
			Dur("age", age).
			Msg("suggestion cache hit")
		return cached, true
	}

	query := strings.ToLower(req.Query)
	matched := r.classifier.Match(query)
	candidates := selectCandidates(r.tools.GetEnabled(), matched)

	type scored struct {
		tool  protocol.Tool
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, t := range candidates {
		s := scoreTool(query, t, matched, req.Context)
		if s < req.MinScore {
			continue
		}
		ranked = append(ranked, scored{t, s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if n := req.EffectiveMaxSuggestions(); len(ranked) > n {
		ranked = ranked[:n]
	}

	suggestions := make([]protocol.Suggestion, len(ranked))
	for i, s := range ranked {
		suggestions[i] = protocol.Suggestion{
			Tool:           s.tool,
			Score:          s.score,
			Parameters:     classifier.ExtractParameters(req.Query, s.tool.Parameters),
			Reasoning:      reasoning(query, s.tool, req.Context),
			ParameterHints: parameterHints(s.tool, req.Context),
		}
	}

	resp = protocol.SuggestionResponse{
		Suggestions:          suggestions,
		Query:                req.Query,
		ProcessingTimeMs:     msSince(r.now(), start),
		TotalToolsConsidered: len(candidates),
	}
	r.cache.Put(key, resp)

	r.loggerFor(ctx).Debug().
		Str("query", req.Query).
		Int("candidates", len(candidates)).
		Int("suggestions", len(suggestions)).
		Float64("processing_ms", resp.ProcessingTimeMs).
		Msg("suggested tools")

	if !req.WantsReasoning() {
		resp = resp.Clone()
		stripReasoning(&resp)
	}
	return resp, true
}

// ClearCache drops every cached response.
func (r *Router) ClearCache() {
	r.cache.Clear()
	r.logger.Info().Msg("suggestion cache cleared")
}

// PruneCache drops expired cache entries and returns how many were removed.
func (r *Router) PruneCache() int {
	n := r.cache.PruneExpired()
	if n > 0 {
		r.logger.Debug().Int("removed", n).Msg("expired suggestions pruned")
	}
	return n
}

// Configure changes the cache TTL and capacity. Non-positive values keep
// the current setting.
func (r *Router) Configure(ttl time.Duration, maxSize int) {
	r.cache.Configure(ttl, maxSize)
	r.logger.Info().Dur("ttl", ttl).Int("max_size", maxSize).Msg("suggestion cache reconfigured")
}

// CacheStats returns cache counters and limits.
func (r *Router) CacheStats() protocol.CacheStats {
	return r.cache.Stats()
}

// PerformanceStats returns request counters and latency percentiles.
func (r *Router) PerformanceStats() protocol.PerformanceStats {
	return r.stats.Snapshot(r.cache.Len())
}

// loggerFor prefers a request-scoped logger carried by ctx.
func (r *Router) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &r.logger
}

func stripReasoning(resp *protocol.SuggestionResponse) {
	for i := range resp.Suggestions {
		resp.Suggestions[i].Reasoning = ""
	}
}

func msSince(now, start time.Time) float64 {
	return float64(now.Sub(start)) / float64(time.Millisecond)
}
