// Package resolve runs the per-file resolution pipeline: extract filename
// evidence, fan the query out to every source, group and merge the
// candidates, score them against the evidence, and decide the outcome.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bdresolve/internal/config"
	"bdresolve/internal/evidence"
	"bdresolve/internal/logging"
	"bdresolve/internal/merge"
	"bdresolve/internal/scoring"
	"bdresolve/internal/services"
	"bdresolve/internal/sources"
)

// Decision is the pipeline's verdict for one archive.
type Decision string

const (
	// DecisionSuccess means the best candidate cleared the accept
	// threshold and its metadata may be applied.
	DecisionSuccess Decision = "success"
	// DecisionManual means candidates exist but none is trustworthy
	// enough to apply unattended.
	DecisionManual Decision = "manual"
	// DecisionFailed means resolution produced nothing usable.
	DecisionFailed Decision = "failed"
)

// SimilarityFunc compares an archive's first page against a candidate's
// cover image and returns a 0-100 similarity. A nil func disables the
// cover criterion (every candidate scores zero on it).
type SimilarityFunc func(ctx context.Context, archivePath, coverURL string) (float64, error)

// MetadataWriter applies resolved metadata to the archive, typically as
// an embedded ComicInfo document. Implementations live with the caller.
type MetadataWriter interface {
	Write(ctx context.Context, archivePath string, result sources.Result) error
}

// AlbumCacher persists accepted albums for future cache hits.
type AlbumCacher interface {
	CacheAlbum(ctx context.Context, result sources.Result, ttl time.Duration) error
}

// Resolution is the full pipeline output for one archive.
type Resolution struct {
	FilePath   string
	Evidence   evidence.Evidence
	Decision   Decision
	Best       *scoring.ScoredCandidate
	Candidates []scoring.ScoredCandidate
	Reason     string
}

// Options tunes one resolver instance; zero values fall back to the
// configuration defaults.
type Options struct {
	MinConfidence   float64
	Limit           int
	GroupThreshold  float64
	AcceptThreshold float64
	StrictMode      bool
	CacheTTL        time.Duration
}

// OptionsFromConfig derives resolver options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinConfidence:   cfg.Search.MinConfidence,
		Limit:           cfg.Search.Limit,
		GroupThreshold:  cfg.Merge.GroupThreshold,
		AcceptThreshold: cfg.Batch.AcceptThreshold,
		StrictMode:      cfg.Batch.StrictMode,
		CacheTTL:        time.Duration(cfg.Cache.AlbumTTLHours) * time.Hour,
	}
}

// Resolver wires the pipeline stages together. Collaborators are fixed at
// construction; Resolve is safe for concurrent use.
type Resolver struct {
	coordinator *sources.Coordinator
	merger      *merge.Merger
	similarity  SimilarityFunc
	writer      MetadataWriter
	cacher      AlbumCacher
	opts        Options
	logger      *slog.Logger
}

// ResolverOption configures optional collaborators.
type ResolverOption func(*Resolver)

// WithSimilarity installs the cover comparison collaborator.
func WithSimilarity(fn SimilarityFunc) ResolverOption {
	return func(r *Resolver) { r.similarity = fn }
}

// WithMetadataWriter installs the metadata application collaborator.
func WithMetadataWriter(w MetadataWriter) ResolverOption {
	return func(r *Resolver) { r.writer = w }
}

// WithAlbumCacher installs the accepted-album cache.
func WithAlbumCacher(c AlbumCacher) ResolverOption {
	return func(r *Resolver) { r.cacher = c }
}

// New constructs a resolver.
func New(logger *slog.Logger, coordinator *sources.Coordinator, merger *merge.Merger, opts Options, ropts ...ResolverOption) *Resolver {
	r := &Resolver{
		coordinator: coordinator,
		merger:      merger,
		opts:        opts,
		logger:      logging.NewComponentLogger(logger, "resolve"),
	}
	for _, opt := range ropts {
		opt(r)
	}
	return r
}

// Resolve runs the full pipeline for one archive path.
func (r *Resolver) Resolve(ctx context.Context, filePath string) (*Resolution, error) {
	ctx = services.WithFilePath(ctx, filePath)
	ev := evidence.Extract(filePath)

	res := &Resolution{FilePath: filePath, Evidence: ev}
	if !ev.HasTitle() {
		res.Decision = DecisionFailed
		res.Reason = "filename yields no searchable title"
		return res, nil
	}

	query := sources.Query{
		Text:   ev.Title,
		Volume: ev.Volume,
		Limit:  r.opts.Limit,
	}
	if ev.HasYear() {
		query.Year = ev.Year
	}

	responses := r.coordinator.SearchAll(ctx, query)
	if r.coordinator.AllFailed(responses) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "resolve", "search",
			"every source failed for "+filePath, nil)
	}

	raw := r.coordinator.Flatten(responses, r.opts.MinConfidence, r.opts.Limit)
	valid := make([]sources.Result, 0, len(raw))
	for _, candidate := range raw {
		if err := candidate.Validate(); err != nil {
			r.logger.DebugContext(ctx, "dropping invalid candidate", logging.Error(err))
			continue
		}
		valid = append(valid, candidate)
	}
	if len(valid) == 0 {
		res.Decision = DecisionFailed
		res.Reason = "no candidates from any source"
		return res, nil
	}

	groups := merge.GroupByAlbum(valid, r.opts.GroupThreshold)
	merged := r.merger.MergeGroups(groups)

	similarities := make([]float64, len(merged))
	for i, candidate := range merged {
		similarities[i] = r.coverSimilarity(ctx, filePath, candidate.CoverURL)
	}

	res.Candidates = scoring.ScoreAll(ev, merged, similarities)
	res.Best = &res.Candidates[0]
	return res, r.decide(ctx, res)
}

func (r *Resolver) coverSimilarity(ctx context.Context, archivePath, coverURL string) float64 {
	if r.similarity == nil || coverURL == "" {
		return 0
	}
	sim, err := r.similarity(ctx, archivePath, coverURL)
	if err != nil {
		r.logger.WarnContext(ctx, "cover comparison failed", logging.Error(err))
		return 0
	}
	return sim
}

// decide applies the accept threshold and, on success, the side effects:
// metadata write and album caching. A failed metadata write downgrades
// the outcome to failed; a failed cache write is only logged.
func (r *Resolver) decide(ctx context.Context, res *Resolution) error {
	best := res.Best

	if best.Score < r.opts.AcceptThreshold {
		if r.opts.StrictMode {
			res.Decision = DecisionFailed
			res.Reason = fmt.Sprintf("best score %.3f below threshold %.2f", best.Score, r.opts.AcceptThreshold)
			return nil
		}
		res.Decision = DecisionManual
		res.Reason = fmt.Sprintf("best score %.3f needs review", best.Score)
		return nil
	}

	if r.writer != nil {
		if err := r.writer.Write(ctx, res.FilePath, best.Candidate.Result); err != nil {
			res.Decision = DecisionFailed
			res.Reason = "metadata write failed: " + err.Error()
			return nil
		}
	}
	if r.cacher != nil && r.opts.CacheTTL > 0 {
		if err := r.cacher.CacheAlbum(ctx, best.Candidate.Result, r.opts.CacheTTL); err != nil {
			r.logger.WarnContext(ctx, "album cache write failed", logging.Error(err))
		}
	}

	res.Decision = DecisionSuccess
	r.logger.InfoContext(ctx, "resolved",
		logging.String("title", best.Candidate.Title),
		logging.Float64("score", best.Score),
	)
	return nil
}
