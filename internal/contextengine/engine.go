package contextengine

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tempohq/tempo/internal/intent"
	"github.com/tempohq/tempo/internal/task"
)

// Engine builds enriched contexts over the task store, with caching.
type Engine struct {
	store    task.Store
	patterns PatternSource
	cache    *contextCache
	now      func() time.Time
}

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Patterns  PatternSource
	Now       func() time.Time
}

// NewEngine creates a context engine over the given store.
func NewEngine(store task.Store, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		patterns: opts.Patterns,
		cache:    newContextCache(opts.CacheSize, opts.CacheTTL, now),
		now:      now,
	}
}

// facetNames in build order; data_sources_used and warnings follow it.
var facetNames = [5]string{
	"workflow_state",
	"productivity_metrics",
	"recent_patterns",
	"contextual_insights",
	"environmental_factors",
}

// Build assembles the enriched context for one message. It never returns
// an error: a usable context always comes back, degraded to defaults and
// annotated with warnings when data sources fail. On a cache hit the
// stored context is reused but relevance is always recomputed, because
// intent shifts with every message.
func (e *Engine) Build(ctx context.Context, base BaseContext, message string, history []string) *BuildResult {
	start := e.now()
	it := intent.Extract(message)
	key := cacheKey(base, message, start)

	if entry, ok := e.cache.get(key); ok {
		return &BuildResult{
			Context:          entry.context,
			Relevance:        Score(entry.context, it),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			DataSourcesUsed:  entry.sources,
			CacheHit:         true,
		}
	}

	ec, sources, warnings := e.assemble(ctx, base, message, history, start)
	e.cache.put(key, ec, sources)

	return &BuildResult{
		Context:          ec,
		Relevance:        Score(ec, it),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		DataSourcesUsed:  sources,
		CacheHit:         false,
		Warnings:         warnings,
	}
}

// assemble runs the five facet builders concurrently. Each failure is
// contained to its facet; a panic or missing store degrades the whole
// context to defaults instead of surfacing.
func (e *Engine) assemble(ctx context.Context, base BaseContext, message string, history []string, now time.Time) (EnhancedContext, []string, []string) {
	ec := EnhancedContext{
		CurrentTask:   base.CurrentTask,
		ActiveSession: base.ActiveSession,
		Preferences:   base.Preferences,
		Timestamp:     now,
		Workflow:      defaultWorkflowState(),
		Productivity:  defaultProductivityMetrics(),
		Patterns:      []UserPattern{},
		Insights:      []ContextualInsight{},
		Environment:   buildEnvironment(now, base.Preferences),
	}

	if e.store == nil {
		warning := "context aggregation unavailable: no task store configured"
		log.Printf("contextengine: %s", warning)
		return ec, []string{facetNames[4]}, []string{warning}
	}

	var failures [5]error
	g, gctx := errgroup.WithContext(ctx)

	run := func(idx int, build func() error) {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failures[idx] = fmt.Errorf("panic: %v", r)
				}
			}()
			failures[idx] = build()
			return nil
		})
	}

	run(0, func() error {
		ws, err := e.buildWorkflowState(gctx, base, now)
		if err != nil {
			return err
		}
		ec.Workflow = ws
		return nil
	})
	run(1, func() error {
		pm, err := e.buildProductivityMetrics(gctx, now)
		if err != nil {
			return err
		}
		ec.Productivity = pm
		return nil
	})
	run(2, func() error {
		patterns, err := e.buildPatterns(gctx, message, history)
		if err != nil {
			return err
		}
		ec.Patterns = patterns
		return nil
	})
	run(3, func() error {
		insights, err := e.buildInsights(gctx, base, now)
		if err != nil {
			return err
		}
		ec.Insights = insights
		return nil
	})
	run(4, func() error {
		ec.Environment = buildEnvironment(now, base.Preferences)
		return nil
	})

	// Builders report through the failures array, never the group.
	_ = g.Wait()

	sources := make([]string, 0, len(facetNames))
	var warnings []string
	for i, name := range facetNames {
		if failures[i] != nil {
			warnings = append(warnings, fmt.Sprintf("%s unavailable, using defaults: %v", name, failures[i]))
			log.Printf("contextengine: facet %s failed: %v", name, failures[i])
			continue
		}
		sources = append(sources, name)
	}
	return ec, sources, warnings
}
