package resolve

import (
	"context"
	"errors"
	"testing"

	"bdresolve/internal/logging"
	"bdresolve/internal/merge"
	"bdresolve/internal/services"
	"bdresolve/internal/sources"
)

// echoSource answers every query with one candidate mirroring the query
// hints, which scores highly against the originating filename.
type echoSource struct {
	name string
	err  error
}

func (e *echoSource) Name() string  { return e.name }
func (e *echoSource) Priority() int { return 50 }

func (e *echoSource) Search(ctx context.Context, q sources.Query) ([]sources.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []sources.Result{{
		Source:     e.name,
		URL:        "http://" + e.name + "/album",
		Confidence: 95,
		Title:      q.Text,
		Volume:     q.Volume,
		Year:       q.Year,
		CoverURL:   "http://" + e.name + "/cover.jpg",
	}}, nil
}

func (e *echoSource) Details(ctx context.Context, url string) (*sources.Result, error) {
	return nil, nil
}

type recordingWriter struct {
	calls int
	err   error
}

func (w *recordingWriter) Write(ctx context.Context, archivePath string, result sources.Result) error {
	w.calls++
	return w.err
}

func testOptions() Options {
	return Options{
		MinConfidence:   50,
		Limit:           10,
		GroupThreshold:  0.8,
		AcceptThreshold: 0.70,
	}
}

func newTestResolver(srcs []sources.Source, opts Options, ropts ...ResolverOption) *Resolver {
	coordinator := sources.NewCoordinator(logging.NewNop(), srcs)
	merger := merge.NewMerger(logging.NewNop(), merge.StrategyBestConfidence,
		merge.WithPriorities(coordinator.PriorityMap()))
	return New(logging.NewNop(), coordinator, merger, opts, ropts...)
}

func fullSimilarity(ctx context.Context, archivePath, coverURL string) (float64, error) {
	return 100, nil
}

func noSimilarity(ctx context.Context, archivePath, coverURL string) (float64, error) {
	return 0, nil
}

func TestResolveAcceptsHighScore(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha"}}, testOptions(),
		WithSimilarity(fullSimilarity), WithMetadataWriter(writer))

	res, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionSuccess {
		t.Fatalf("decision = %q (%s)", res.Decision, res.Reason)
	}
	if res.Best == nil || res.Best.Score < 0.70 {
		t.Fatalf("unexpected best candidate: %+v", res.Best)
	}
	if writer.calls != 1 {
		t.Fatalf("metadata writer called %d times", writer.calls)
	}
	if res.Evidence.Title != "Asterix" || res.Evidence.Volume != 12 {
		t.Fatalf("evidence not extracted: %+v", res.Evidence)
	}
}

func TestResolveLowScoreGoesToReview(t *testing.T) {
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha"}}, testOptions(),
		WithSimilarity(noSimilarity))

	res, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionManual {
		t.Fatalf("decision = %q, want manual", res.Decision)
	}
}

func TestResolveStrictModeFailsLowScore(t *testing.T) {
	opts := testOptions()
	opts.StrictMode = true
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha"}}, opts,
		WithSimilarity(noSimilarity))

	res, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionFailed {
		t.Fatalf("decision = %q, want failed", res.Decision)
	}
}

func TestResolveNoCandidatesFails(t *testing.T) {
	empty := &emptySource{}
	r := newTestResolver([]sources.Source{empty}, testOptions())

	res, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionFailed || res.Reason == "" {
		t.Fatalf("decision = %q (%s)", res.Decision, res.Reason)
	}
}

func TestResolveAllSourcesFailedIsRetryable(t *testing.T) {
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha", err: errors.New("down")}}, testOptions())

	_, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err == nil {
		t.Fatal("total source failure must surface an error")
	}
	if !services.IsRetryable(err) {
		t.Fatalf("total source failure must be retryable: %v", err)
	}
}

func TestResolveUnsearchableFilename(t *testing.T) {
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha"}}, testOptions())

	res, err := r.Resolve(context.Background(), "T12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionFailed {
		t.Fatalf("decision = %q, want failed for unsearchable name", res.Decision)
	}
}

func TestResolveMetadataWriteFailureFails(t *testing.T) {
	writer := &recordingWriter{err: errors.New("disk full")}
	r := newTestResolver([]sources.Source{&echoSource{name: "alpha"}}, testOptions(),
		WithSimilarity(fullSimilarity), WithMetadataWriter(writer))

	res, err := r.Resolve(context.Background(), "Asterix Tome 12.cbz")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Decision != DecisionFailed {
		t.Fatalf("decision = %q, want failed on write error", res.Decision)
	}
}

type emptySource struct{}

func (emptySource) Name() string  { return "empty" }
func (emptySource) Priority() int { return 50 }
func (emptySource) Search(ctx context.Context, q sources.Query) ([]sources.Result, error) {
	return nil, nil
}
func (emptySource) Details(ctx context.Context, url string) (*sources.Result, error) {
	return nil, nil
}