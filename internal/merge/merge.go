package merge

import (
	"log/slog"
	"sort"
	"strings"

	"bdresolve/internal/logging"
	"bdresolve/internal/sources"
	"bdresolve/internal/textutil"
)

// Merged is a consolidated candidate produced from one album group. The
// embedded result carries the reconciled fields; ContributingSources
// records every source that fed the group, in group order.
type Merged struct {
	sources.Result

	ContributingSources []string
	Strategy            Strategy
}

// Merger reconciles album groups under a configured strategy.
type Merger struct {
	strategy     Strategy
	priorities   map[string]int
	minAgreement int
	logger       *slog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithPriorities supplies source priorities for the priority strategy;
// unknown sources sort last.
func WithPriorities(p map[string]int) MergerOption {
	return func(m *Merger) { m.priorities = p }
}

// WithMinAgreement sets how many sources must agree on a field value for
// the consensus strategy to adopt it.
func WithMinAgreement(n int) MergerOption {
	return func(m *Merger) {
		if n > 1 {
			m.minAgreement = n
		}
	}
}

// NewMerger constructs a merger for the given strategy.
func NewMerger(logger *slog.Logger, strategy Strategy, opts ...MergerOption) *Merger {
	m := &Merger{
		strategy:     strategy,
		minAgreement: 2,
		logger:       logging.NewComponentLogger(logger, "merge"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge consolidates one album group into a single candidate. A group of
// one is returned unchanged apart from the merged-source labeling. Empty
// groups yield nil.
func (m *Merger) Merge(group []sources.Result) *Merged {
	if len(group) == 0 {
		return nil
	}

	contributing := make([]string, 0, len(group))
	for _, r := range group {
		contributing = append(contributing, r.Source)
	}

	var base sources.Result
	switch m.strategy {
	case StrategyPriority:
		base = m.priorityBase(group)
	case StrategyConsensus:
		base = m.consensusBase(group)
	default:
		base = bestConfidenceBase(group)
	}

	merged := base.Clone()
	for _, r := range m.fillOrder(group) {
		fillMissing(&merged, r)
	}
	if len(group) > 1 {
		merged.Source = "merged_" + base.Source
	}

	m.logger.Debug("merged album group",
		logging.Int("results", len(group)),
		logging.String("strategy", string(m.strategy)),
		logging.String("title", merged.Title),
	)
	return &Merged{
		Result:              merged,
		ContributingSources: contributing,
		Strategy:            m.strategy,
	}
}

// MergeGroups consolidates every group, preserving group order.
func (m *Merger) MergeGroups(groups [][]sources.Result) []Merged {
	out := make([]Merged, 0, len(groups))
	for _, group := range groups {
		if merged := m.Merge(group); merged != nil {
			out = append(out, *merged)
		}
	}
	return out
}

// bestConfidenceBase picks the highest-confidence result; group order
// breaks ties.
func bestConfidenceBase(group []sources.Result) sources.Result {
	best := group[0]
	for _, r := range group[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return best
}

// fillOrder returns the group sorted so gap filling draws from the most
// trusted donors first: by source priority under the priority strategy,
// by confidence descending otherwise. The sort is stable, so group order
// breaks ties.
func (m *Merger) fillOrder(group []sources.Result) []sources.Result {
	donors := make([]sources.Result, len(group))
	copy(donors, group)
	if m.strategy == StrategyPriority {
		sort.SliceStable(donors, func(i, j int) bool {
			return m.rank(donors[i]) < m.rank(donors[j])
		})
		return donors
	}
	sort.SliceStable(donors, func(i, j int) bool {
		return donors[i].Confidence > donors[j].Confidence
	})
	return donors
}

// rank maps a result to its source priority; sources without a priority
// sort last.
func (m *Merger) rank(r sources.Result) int {
	if p, ok := m.priorities[r.Source]; ok {
		return p
	}
	return 1 << 20
}

// priorityBase picks the result from the lowest-numbered priority source;
// group order breaks ties.
func (m *Merger) priorityBase(group []sources.Result) sources.Result {
	best := group[0]
	for _, r := range group[1:] {
		if m.rank(r) < m.rank(best) {
			best = r
		}
	}
	return best
}

// consensusBase builds a result whose title, series, volume, year, and
// publisher each take the value at least minAgreement sources report.
// Fields without sufficient agreement keep the best-confidence value.
// Ties go to the value seen first in group order.
func (m *Merger) consensusBase(group []sources.Result) sources.Result {
	base := bestConfidenceBase(group).Clone()
	if len(group) < m.minAgreement {
		return base
	}

	if v, ok := voteString(group, func(r sources.Result) string { return r.Title }, m.minAgreement); ok {
		base.Title = v
	}
	if v, ok := voteString(group, func(r sources.Result) string { return r.Series }, m.minAgreement); ok {
		base.Series = v
	}
	if v, ok := voteString(group, func(r sources.Result) string { return r.Publisher }, m.minAgreement); ok {
		base.Publisher = v
	}
	if v, ok := voteInt(group, func(r sources.Result) int { return r.Volume }, sources.VolumeUnknown, m.minAgreement); ok {
		base.Volume = v
	}
	if v, ok := voteInt(group, func(r sources.Result) int { return r.Year }, 0, m.minAgreement); ok {
		base.Year = v
	}
	return base
}

// voteString tallies a string field, normalized for comparison, and
// returns the first-seen spelling of the winning value when it reaches
// the agreement floor.
func voteString(group []sources.Result, field func(sources.Result) string, floor int) (string, bool) {
	counts := make(map[string]int)
	firstSpelling := make(map[string]string)
	order := make([]string, 0, len(group))

	for _, r := range group {
		raw := strings.TrimSpace(field(r))
		if raw == "" {
			continue
		}
		key := textutil.Normalize(raw)
		if _, seen := counts[key]; !seen {
			firstSpelling[key] = raw
			order = append(order, key)
		}
		counts[key]++
	}

	winner, winning := "", 0
	for _, key := range order {
		if counts[key] > winning {
			winner, winning = key, counts[key]
		}
	}
	if winning < floor {
		return "", false
	}
	return firstSpelling[winner], true
}

// voteInt tallies an int field, skipping the unknown sentinel.
func voteInt(group []sources.Result, field func(sources.Result) int, unknown, floor int) (int, bool) {
	counts := make(map[int]int)
	var order []int

	for _, r := range group {
		v := field(r)
		if v == unknown {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	winner, winning := unknown, 0
	for _, v := range order {
		if counts[v] > winning {
			winner, winning = v, counts[v]
		}
	}
	if winning < floor {
		return unknown, false
	}
	return winner, true
}

// fillMissing copies fields from donor into dst only where dst has no
// value. The base result's fields always win.
func fillMissing(dst *sources.Result, donor sources.Result) {
	if dst.Title == "" {
		dst.Title = donor.Title
	}
	if dst.Series == "" {
		dst.Series = donor.Series
	}
	if dst.Publisher == "" {
		dst.Publisher = donor.Publisher
	}
	if dst.Volume == sources.VolumeUnknown && donor.Volume != sources.VolumeUnknown {
		dst.Volume = donor.Volume
	}
	if dst.Year == 0 {
		dst.Year = donor.Year
	}
	if dst.Pages == 0 {
		dst.Pages = donor.Pages
	}
	if dst.ISBN == "" {
		dst.ISBN = donor.ISBN
	}
	if dst.CoverURL == "" {
		dst.CoverURL = donor.CoverURL
	}
	for k, v := range donor.Extra {
		if dst.Extra == nil {
			dst.Extra = make(map[string]string)
		}
		if _, ok := dst.Extra[k]; !ok {
			dst.Extra[k] = v
		}
	}
}

// SortByConfidence orders merged candidates by confidence descending,
// stable so earlier groups keep their rank on ties.
func SortByConfidence(merged []Merged) {
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
}
