package sources

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"bdresolve/internal/logging"
	"bdresolve/internal/services"
)

const defaultMaxParallel = 5

// Coordinator fans queries out to an ordered collection of sources and
// aggregates their results. Sources are sorted by ascending priority once
// at construction and that order is preserved everywhere a priority-based
// decision is made.
type Coordinator struct {
	sources     []Source
	maxParallel int
	logger      *slog.Logger
}

// CoordinatorOption configures optional Coordinator behavior.
type CoordinatorOption func(*Coordinator)

// WithMaxParallel bounds the number of sources queried concurrently.
func WithMaxParallel(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxParallel = n
		}
	}
}

// NewCoordinator constructs a coordinator over the given sources.
func NewCoordinator(logger *slog.Logger, srcs []Source, opts ...CoordinatorOption) *Coordinator {
	ordered := make([]Source, len(srcs))
	copy(ordered, srcs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	c := &Coordinator{
		sources:     ordered,
		maxParallel: defaultMaxParallel,
		logger:      logging.NewComponentLogger(logger, "sources"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the priority-ordered source list.
func (c *Coordinator) Sources() []Source {
	cp := make([]Source, len(c.sources))
	copy(cp, c.sources)
	return cp
}

// PriorityMap returns source name to priority, for the priority merge
// strategy.
func (c *Coordinator) PriorityMap() map[string]int {
	m := make(map[string]int, len(c.sources))
	for _, src := range c.sources {
		m[src.Name()] = src.Priority()
	}
	return m
}

// SearchAll fans the query out to every source concurrently (bounded by
// the parallelism cap) and returns a per-source result list. A source
// failure is isolated: it is logged and yields a nil entry for that
// source, never aborting the others. Sources that succeed with no
// matches yield a non-nil empty list.
func (c *Coordinator) SearchAll(ctx context.Context, q Query) map[string][]Result {
	results := make(map[string][]Result, len(c.sources))
	if len(c.sources) == 0 {
		return results
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.maxParallel)
	)
	for _, src := range c.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			found, err := src.Search(ctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("source search failed",
					logging.String(logging.FieldSource, src.Name()),
					logging.Error(err),
				)
				results[src.Name()] = nil
				return
			}
			if found == nil {
				found = []Result{}
			}
			results[src.Name()] = found
			c.logger.Debug("source search completed",
				logging.String(logging.FieldSource, src.Name()),
				logging.Int("results", len(found)),
			)
		}(src)
	}
	wg.Wait()
	return results
}

// AllFailed reports whether every source in a SearchAll response failed.
// An empty response (no sources) counts as failed.
func (c *Coordinator) AllFailed(results map[string][]Result) bool {
	if len(results) == 0 {
		return true
	}
	for _, found := range results {
		if found != nil {
			return false
		}
	}
	return true
}

// Flatten folds a SearchAll response into one list: entries below the
// minimum confidence are dropped and the remainder is sorted by
// confidence descending, capped at limit (0 means no cap).
func (c *Coordinator) Flatten(results map[string][]Result, minConfidence float64, limit int) []Result {
	// Walk in priority order so equal-confidence results from a
	// preferred source sort ahead under the stable sort.
	merged := make([]Result, 0, len(c.sources)*4)
	for _, src := range c.sources {
		for _, res := range results[src.Name()] {
			if res.Confidence >= minConfidence {
				merged = append(merged, res)
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// SearchBest runs SearchAll and flattens the response.
func (c *Coordinator) SearchBest(ctx context.Context, q Query, minConfidence float64, limit int) []Result {
	return c.Flatten(c.SearchAll(ctx, q), minConfidence, limit)
}

// Details fetches full metadata for an album URL. When sourceName is
// empty the URL is routed to the first source (in priority order) whose
// name appears in the URL.
func (c *Coordinator) Details(ctx context.Context, url, sourceName string) (*Result, error) {
	if sourceName != "" {
		for _, src := range c.sources {
			if src.Name() == sourceName {
				return src.Details(ctx, url)
			}
		}
		return nil, services.Wrap(services.ErrNotFound, "sources", "details", "unknown source "+sourceName, nil)
	}

	lowered := strings.ToLower(url)
	for _, src := range c.sources {
		name := strings.ToLower(src.Name())
		if strings.Contains(lowered, name) || strings.Contains(lowered, strings.ReplaceAll(name, "_", "")) {
			return src.Details(ctx, url)
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "sources", "details", "no source matches url "+url, nil)
}
