package sources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"bdresolve/internal/logging"
)

type fakeSource struct {
	name     string
	priority int
	results  []Result
	err      error
	calls    atomic.Int32
}

func (f *fakeSource) Name() string   { return f.name }
func (f *fakeSource) Priority() int  { return f.priority }
func (f *fakeSource) Search(ctx context.Context, q Query) ([]Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
func (f *fakeSource) Details(ctx context.Context, url string) (*Result, error) {
	for _, r := range f.results {
		if r.URL == url {
			clone := r.Clone()
			return &clone, nil
		}
	}
	return nil, nil
}

func result(source string, confidence float64, title string) Result {
	return Result{Source: source, Confidence: confidence, Title: title, URL: "http://" + source + "/" + title}
}

func TestSearchAllQueriesEverySource(t *testing.T) {
	a := &fakeSource{name: "alpha", priority: 10, results: []Result{result("alpha", 90, "x")}}
	b := &fakeSource{name: "beta", priority: 20, results: []Result{result("beta", 70, "y")}}
	c := NewCoordinator(logging.NewNop(), []Source{a, b})

	all := c.SearchAll(context.Background(), Query{Text: "x"})
	if len(all) != 2 {
		t.Fatalf("expected entries for both sources, got %d", len(all))
	}
	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Fatalf("each source must be queried once: alpha=%d beta=%d", a.calls.Load(), b.calls.Load())
	}
}

func TestSearchAllIsolatesFailures(t *testing.T) {
	broken := &fakeSource{name: "broken", priority: 10, err: errors.New("boom")}
	healthy := &fakeSource{name: "healthy", priority: 20, results: []Result{result("healthy", 80, "x")}}
	c := NewCoordinator(logging.NewNop(), []Source{broken, healthy})

	all := c.SearchAll(context.Background(), Query{Text: "x"})
	if all["broken"] != nil {
		t.Fatal("failed source must yield a nil entry")
	}
	if len(all["healthy"]) != 1 {
		t.Fatalf("healthy source results lost: %v", all["healthy"])
	}
	if c.AllFailed(all) {
		t.Fatal("one healthy source means not all failed")
	}
}

func TestAllFailed(t *testing.T) {
	broken := &fakeSource{name: "broken", priority: 10, err: errors.New("boom")}
	c := NewCoordinator(logging.NewNop(), []Source{broken})

	all := c.SearchAll(context.Background(), Query{Text: "x"})
	if !c.AllFailed(all) {
		t.Fatal("expected all sources failed")
	}

	// No matches is a success, not a failure.
	empty := &fakeSource{name: "empty", priority: 10}
	c = NewCoordinator(logging.NewNop(), []Source{empty})
	if c.AllFailed(c.SearchAll(context.Background(), Query{Text: "x"})) {
		t.Fatal("an empty result set is not a failure")
	}
}

func TestSearchBestFiltersSortsAndCaps(t *testing.T) {
	a := &fakeSource{name: "alpha", priority: 10, results: []Result{
		result("alpha", 60, "low"),
		result("alpha", 95, "high"),
	}}
	b := &fakeSource{name: "beta", priority: 20, results: []Result{
		result("beta", 95, "tied"),
		result("beta", 40, "noise"),
	}}
	c := NewCoordinator(logging.NewNop(), []Source{b, a})

	best := c.SearchBest(context.Background(), Query{Text: "x"}, 50, 2)
	if len(best) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(best))
	}
	// alpha outranks beta on priority, so the alpha 95 sorts ahead of the
	// tied beta 95.
	if best[0].Source != "alpha" || best[0].Title != "high" {
		t.Fatalf("unexpected first result: %+v", best[0])
	}
	if best[1].Source != "beta" || best[1].Title != "tied" {
		t.Fatalf("unexpected second result: %+v", best[1])
	}
}

func TestDetailsRoutesByNameThenURL(t *testing.T) {
	target := result("alpha", 90, "x")
	a := &fakeSource{name: "alpha", priority: 10, results: []Result{target}}
	c := NewCoordinator(logging.NewNop(), []Source{a})

	got, err := c.Details(context.Background(), target.URL, "alpha")
	if err != nil || got == nil || got.Title != "x" {
		t.Fatalf("named routing failed: %v %v", got, err)
	}

	got, err = c.Details(context.Background(), target.URL, "")
	if err != nil || got == nil {
		t.Fatalf("url routing failed: %v %v", got, err)
	}

	if _, err := c.Details(context.Background(), "http://nowhere/x", "missing"); err == nil {
		t.Fatal("unknown source name should fail")
	}
}

func TestCoordinatorOrdersSourcesByPriority(t *testing.T) {
	a := &fakeSource{name: "last", priority: 90}
	b := &fakeSource{name: "first", priority: 5}
	c := NewCoordinator(logging.NewNop(), []Source{a, b})

	ordered := c.Sources()
	if ordered[0].Name() != "first" || ordered[1].Name() != "last" {
		t.Fatalf("sources not priority ordered: %s, %s", ordered[0].Name(), ordered[1].Name())
	}
	if c.PriorityMap()["first"] != 5 {
		t.Fatalf("priority map wrong: %v", c.PriorityMap())
	}
}
