// Package batch drives resolution over whole directories: discovery, a
// bounded worker pool, per-file retries, session bookkeeping, and the
// run summary. Cancellation pauses the session; a paused session resumes
// where it stopped.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bdresolve/internal/config"
	"bdresolve/internal/fileutil"
	"bdresolve/internal/logging"
	"bdresolve/internal/resolve"
	"bdresolve/internal/services"
	"bdresolve/internal/store"
)

// Outcome is one file's terminal result within a run.
type Outcome struct {
	FilePath   string           `json:"file_path"`
	Status     store.FileStatus `json:"status"`
	Score      float64          `json:"score"`
	Title      string           `json:"title,omitempty"`
	Series     string           `json:"series,omitempty"`
	Volume     int              `json:"volume,omitempty"`
	Year       int              `json:"year,omitempty"`
	Publisher  string           `json:"publisher,omitempty"`
	Source     string           `json:"source,omitempty"`
	AlbumURL   string           `json:"album_url,omitempty"`
	Attempts   int              `json:"attempts"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// Orchestrator runs the resolution pipeline over a directory. A nil
// store puts the run in degraded mode: files are still resolved and
// summarized, but nothing is persisted and the run cannot be resumed.
type Orchestrator struct {
	cfg      *config.Config
	store    *store.Store
	resolver *resolve.Resolver
	policy   Policy
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p.normalized() }
}

// New constructs an orchestrator. st may be nil for degraded runs.
func New(logger *slog.Logger, cfg *config.Config, st *store.Store, resolver *resolve.Resolver, opts ...Option) *Orchestrator {
	policy := DefaultPolicy()
	if cfg.Batch.MaxRetries > 0 {
		policy.MaxAttempts = cfg.Batch.MaxRetries
	}
	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		policy:   policy.normalized(),
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every archive under dir and returns the run summary.
// Cancellation stops the pool between files, pauses the session, and
// still returns a summary covering the work that finished.
func (o *Orchestrator) Run(ctx context.Context, dir string) (*RunSummary, error) {
	normalized, err := fileutil.NormalizePath(dir)
	if err != nil {
		return nil, fmt.Errorf("normalize directory: %w", err)
	}

	files, err := DiscoverArchives(normalized)
	if err != nil {
		return nil, err
	}

	var session *store.Session
	if o.store != nil {
		configJSON, _ := json.Marshal(o.cfg.Batch)
		session, err = o.store.StartSession(ctx, store.SessionParams{
			Directory:  normalized,
			ConfigJSON: string(configJSON),
			Workers:    o.workers(),
			BatchMode:  o.cfg.Batch.BatchMode,
			StrictMode: o.cfg.Batch.StrictMode,
			TotalFiles: len(files),
		})
		if err != nil {
			return nil, err
		}
	} else {
		o.logger.Warn("running without a store; outcomes will not be persisted")
	}

	return o.run(ctx, session, normalized, files, o.cfg.Batch.SkipProcessed)
}

// Resume forks a paused or failed session and processes the files it
// never settled. Resume requires a store.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*RunSummary, error) {
	if o.store == nil {
		return nil, fmt.Errorf("resume requires a database")
	}

	fork, err := o.store.ResumeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	files, err := DiscoverArchives(fork.Directory)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, fork, fork.Directory, files, true)
}

func (o *Orchestrator) run(ctx context.Context, session *store.Session, dir string, files []string, skipProcessed bool) (*RunSummary, error) {
	summary := newRunSummary(session, dir, len(files))
	ctx = services.WithRunID(ctx, summary.RunID)

	pending := make([]string, 0, len(files))
	for _, file := range files {
		path, err := fileutil.NormalizePath(file)
		if err != nil {
			path = file
		}
		if skipProcessed && o.store != nil {
			done, err := o.store.IsProcessed(ctx, path)
			if err != nil {
				return nil, err
			}
			if done {
				summary.Skipped++
				o.logger.Debug("skipping settled file", logging.String(logging.FieldFile, path))
				continue
			}
		}
		pending = append(pending, path)
	}

	sessionID := ""
	if session != nil {
		sessionID = session.ID
	}
	ctx = services.WithSessionID(ctx, sessionID)
	o.logger.InfoContext(ctx, "batch starting",
		logging.Int("files", len(pending)),
		logging.Int("workers", o.workers()),
	)

	outcomes := o.processAll(ctx, sessionID, pending)
	for _, outcome := range outcomes {
		summary.add(outcome)
		if session != nil {
			if err := o.store.UpdateSessionCounters(ctx, session.ID,
				summary.Processed, summary.Successful, summary.Failed, summary.Manual, summary.Skipped); err != nil {
				o.logger.Warn("counter update failed", logging.Error(err))
			}
		}
	}

	summary.finish(ctx.Err() != nil)
	if session != nil {
		if summary.Interrupted {
			if err := o.store.PauseSession(context.WithoutCancel(ctx), session.ID); err != nil {
				o.logger.Warn("pause session failed", logging.Error(err))
			}
		} else if err := o.store.CompleteSession(ctx, session.ID); err != nil {
			o.logger.Warn("complete session failed", logging.Error(err))
		}
	}

	if path, err := summary.Write(o.cfg.Paths.SummaryDir); err != nil {
		o.logger.Warn("summary write failed", logging.Error(err))
	} else {
		o.logger.Info("summary written", logging.String("path", path))
	}
	return summary, nil
}

func (o *Orchestrator) workers() int {
	if !o.cfg.Batch.BatchMode {
		return 1
	}
	workers := o.cfg.Batch.Workers
	if workers < config.MinWorkers {
		workers = config.MinWorkers
	}
	if workers > config.MaxWorkers {
		workers = config.MaxWorkers
	}
	return workers
}

// processAll runs the pool and returns outcomes in completion order. A
// canceled context drains the job queue without starting new files.
func (o *Orchestrator) processAll(ctx context.Context, sessionID string, files []string) []Outcome {
	if len(files) == 0 {
		return nil
	}

	jobs := make(chan string)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < o.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if ctx.Err() != nil {
					continue
				}
				results <- o.processFile(ctx, sessionID, path)
			}
		}()
	}

	go func() {
		for _, path := range files {
			jobs <- path
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	outcomes := make([]Outcome, 0, len(files))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// processFile resolves one archive with retries and records the outcome.
func (o *Orchestrator) processFile(ctx context.Context, sessionID, path string) Outcome {
	ctx = services.WithSessionID(ctx, sessionID)
	ctx = services.WithFilePath(ctx, path)

	started := time.Now()
	var (
		resolution *resolve.Resolution
		lastErr    error
		attempts   int
	)
	for attempt := 0; attempt < o.policy.MaxAttempts; attempt++ {
		attempts = attempt + 1
		resolution, lastErr = o.resolver.Resolve(ctx, path)
		if lastErr == nil {
			break
		}
		if !retryable(lastErr) || attempt == o.policy.MaxAttempts-1 {
			break
		}
		o.logger.WarnContext(ctx, "resolution attempt failed",
			logging.Int("attempt", attempts),
			logging.Error(lastErr),
		)
		if err := o.policy.Sleep(ctx, o.policy.Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	outcome := o.buildOutcome(path, resolution, lastErr, attempts)
	outcome.DurationMS = time.Since(started).Milliseconds()
	o.record(ctx, sessionID, path, outcome)
	return outcome
}

func (o *Orchestrator) buildOutcome(path string, resolution *resolve.Resolution, err error, attempts int) Outcome {
	outcome := Outcome{FilePath: path, Attempts: attempts}
	if err != nil {
		outcome.Status = store.FileFailed
		outcome.Error = err.Error()
		return outcome
	}

	switch resolution.Decision {
	case resolve.DecisionSuccess:
		outcome.Status = store.FileSuccess
	case resolve.DecisionManual:
		outcome.Status = store.FileManual
	default:
		outcome.Status = store.FileFailed
	}
	outcome.Error = resolution.Reason

	if best := resolution.Best; best != nil {
		result := best.Candidate.Result
		outcome.Score = best.Score
		outcome.Title = result.Title
		outcome.Series = result.Series
		outcome.Volume = result.Volume
		outcome.Year = result.Year
		outcome.Publisher = result.Publisher
		outcome.Source = result.Source
		outcome.AlbumURL = result.URL
	}
	return outcome
}

func (o *Orchestrator) record(ctx context.Context, sessionID, path string, outcome Outcome) {
	if o.store == nil || sessionID == "" {
		return
	}

	hash, err := fileutil.HashFile(path)
	if err != nil {
		hash = ""
	}
	rec := store.FileRecord{
		SessionID:    sessionID,
		FilePath:     path,
		FileHash:     hash,
		FileSize:     fileutil.FileSize(path),
		Status:       outcome.Status,
		Score:        outcome.Score,
		Title:        outcome.Title,
		Series:       outcome.Series,
		Volume:       outcome.Volume,
		Year:         outcome.Year,
		Publisher:    outcome.Publisher,
		Source:       outcome.Source,
		AlbumURL:     outcome.AlbumURL,
		ErrorMessage: outcome.Error,
		Attempts:     outcome.Attempts,
		Duration:     time.Duration(outcome.DurationMS) * time.Millisecond,
	}
	stored, applied, err := o.store.RecordOutcome(context.WithoutCancel(ctx), rec)
	if err != nil {
		o.logger.WarnContext(ctx, "record outcome failed", logging.Error(err))
		return
	}
	if !applied {
		o.logger.InfoContext(ctx, "keeping earlier settled outcome",
			logging.String("status", string(stored.Status)),
		)
	}
}
