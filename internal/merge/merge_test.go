package merge

import (
	"testing"

	"bdresolve/internal/logging"
	"bdresolve/internal/sources"
)

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"best_confidence", "Priority", " CONSENSUS "} {
		if _, err := ParseStrategy(name); err != nil {
			t.Fatalf("ParseStrategy(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseStrategy("majority"); err == nil {
		t.Fatal("unknown strategy should fail")
	}
}

func TestMergeSingleResultKeepsSourceName(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyBestConfidence)
	merged := m.Merge([]sources.Result{{Source: "bedetheque", Title: "Asterix", Confidence: 80, URL: "http://x"}})
	if merged == nil {
		t.Fatal("expected a merged candidate")
	}
	if merged.Source != "bedetheque" {
		t.Fatalf("single-result group must keep its source, got %q", merged.Source)
	}
	if len(merged.ContributingSources) != 1 {
		t.Fatalf("expected one contributing source, got %v", merged.ContributingSources)
	}
}

func TestMergeEmptyGroup(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyBestConfidence)
	if merged := m.Merge(nil); merged != nil {
		t.Fatal("empty group should merge to nil")
	}
}

func TestMergeBestConfidenceFillsMissingWithoutOverwriting(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyBestConfidence)
	group := []sources.Result{
		{Source: "a", Title: "Asterix le Gaulois", Confidence: 90, Year: 1961},
		{Source: "b", Title: "Asterix", Confidence: 70, Publisher: "Dargaud", Year: 1999, Volume: 1, ISBN: "123"},
	}
	// Absent volumes carry the sentinel.
	group[0].Volume = sources.VolumeUnknown

	merged := m.Merge(group)
	if merged.Title != "Asterix le Gaulois" {
		t.Fatalf("base title must win, got %q", merged.Title)
	}
	if merged.Year != 1961 {
		t.Fatalf("base year must not be overwritten, got %d", merged.Year)
	}
	if merged.Publisher != "Dargaud" || merged.Volume != 1 || merged.ISBN != "123" {
		t.Fatalf("missing fields should fill from other results: %+v", merged.Result)
	}
	if merged.Source != "merged_a" {
		t.Fatalf("multi-result merge should relabel source, got %q", merged.Source)
	}
}

func TestMergeFillsFromStrongestDonorFirst(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyBestConfidence)
	// Donors arrive weakest first; the gap must still fill from the
	// next-highest confidence, not from input order.
	group := []sources.Result{
		{Source: "a", Title: "Le Grand Duc", Confidence: 90},
		{Source: "b", Title: "Le Grand Duc", Confidence: 50, Publisher: "Soleil"},
		{Source: "c", Title: "Le Grand Duc", Confidence: 70, Publisher: "Paquet"},
	}
	merged := m.Merge(group)
	if merged.Publisher != "Paquet" {
		t.Fatalf("fill must draw from the strongest donor, got %q", merged.Publisher)
	}
}

func TestMergePriorityFillsByRank(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyPriority,
		WithPriorities(map[string]int{"primary": 1, "secondary": 2, "tertiary": 3}))
	group := []sources.Result{
		{Source: "primary", Title: "Okko", Confidence: 40},
		{Source: "tertiary", Title: "Okko", Confidence: 99, Year: 2005},
		{Source: "secondary", Title: "Okko", Confidence: 50, Year: 2006},
	}
	merged := m.Merge(group)
	if merged.Year != 2006 {
		t.Fatalf("priority fill must draw from the higher-ranked source, got %d", merged.Year)
	}
}

func TestMergePriorityStrategy(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyPriority,
		WithPriorities(map[string]int{"preferred": 10, "fallback": 90}))
	group := []sources.Result{
		{Source: "fallback", Title: "Wrong Title", Confidence: 95},
		{Source: "preferred", Title: "Right Title", Confidence: 60},
	}
	merged := m.Merge(group)
	if merged.Title != "Right Title" {
		t.Fatalf("priority strategy must prefer the ranked source, got %q", merged.Title)
	}
}

func TestMergeConsensusVoting(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyConsensus, WithMinAgreement(2))
	group := []sources.Result{
		{Source: "a", Title: "Asterix le Gaulois", Volume: 1, Year: 1961, Confidence: 95},
		{Source: "b", Title: "Astérix le Gaulois", Volume: 1, Year: 1961, Confidence: 60},
		{Source: "c", Title: "Asterix Gaul", Volume: 2, Year: 1961, Confidence: 70},
	}
	merged := m.Merge(group)

	// Two sources agree on the title modulo accents; the first spelling wins.
	if merged.Title != "Asterix le Gaulois" {
		t.Fatalf("consensus title = %q", merged.Title)
	}
	if merged.Volume != 1 {
		t.Fatalf("consensus volume = %d, want 1", merged.Volume)
	}
	if merged.Year != 1961 {
		t.Fatalf("consensus year = %d, want 1961", merged.Year)
	}
}

func TestMergeConsensusFallsBackToBestConfidence(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyConsensus, WithMinAgreement(2))
	group := []sources.Result{
		{Source: "a", Title: "One", Confidence: 50},
		{Source: "b", Title: "Two", Confidence: 90},
		{Source: "c", Title: "Three", Confidence: 70},
	}
	merged := m.Merge(group)
	if merged.Title != "Two" {
		t.Fatalf("without agreement the best-confidence value must win, got %q", merged.Title)
	}
}

func TestMergeGroupsPreservesOrder(t *testing.T) {
	m := NewMerger(logging.NewNop(), StrategyBestConfidence)
	groups := [][]sources.Result{
		{{Source: "a", Title: "First", Confidence: 10}},
		{{Source: "a", Title: "Second", Confidence: 99}},
	}
	merged := m.MergeGroups(groups)
	if len(merged) != 2 || merged[0].Title != "First" || merged[1].Title != "Second" {
		t.Fatalf("group order must be preserved: %+v", merged)
	}
}
