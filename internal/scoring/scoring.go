// Package scoring ranks merged candidates against filename evidence with
// a weighted multi-criteria score. Cover similarity dominates; volume,
// publisher, and year refine; fuzzy title agreement nudges the total by
// at most a tenth in either direction.
package scoring

import (
	"math"
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"bdresolve/internal/evidence"
	"bdresolve/internal/merge"
	"bdresolve/internal/sources"
	"bdresolve/internal/textutil"
)

// Criterion weights. They sum to 1; the title nudge sits outside the
// weighted sum and the final score is clamped back into [0,1].
const (
	WeightCover     = 0.40
	WeightVolume    = 0.30
	WeightPublisher = 0.15
	WeightYear      = 0.15
)

// neutral is the criterion score when the filename offers no hint to
// compare against. Unknown evidence must neither reward nor punish.
const neutral = 0.5

// Breakdown exposes the per-criterion scores behind a total, for
// summaries and interactive review.
type Breakdown struct {
	Cover       float64 `json:"cover"`
	Volume      float64 `json:"volume"`
	Publisher   float64 `json:"publisher"`
	Year        float64 `json:"year"`
	TitleAdjust float64 `json:"title_adjust"`
}

// ScoredCandidate pairs a merged candidate with its final score.
type ScoredCandidate struct {
	Candidate       merge.Merged
	CoverSimilarity float64 // raw 0-100 similarity fed to the cover criterion
	Score           float64
	Breakdown       Breakdown
}

// Score computes the weighted total for one candidate. coverSimilarity
// is the 0-100 perceptual similarity between the archive's first page
// and the candidate's cover; pass 0 when no comparison was possible.
func Score(ev evidence.Evidence, candidate merge.Merged, coverSimilarity float64) ScoredCandidate {
	breakdown := Breakdown{
		Cover:       CoverScore(coverSimilarity),
		Volume:      VolumeScore(ev, candidate.Result),
		Publisher:   PublisherScore(ev, candidate.Result),
		Year:        YearScore(ev, candidate.Result),
		TitleAdjust: TitleAdjustment(ev, candidate.Result),
	}

	total := WeightCover*breakdown.Cover +
		WeightVolume*breakdown.Volume +
		WeightPublisher*breakdown.Publisher +
		WeightYear*breakdown.Year +
		breakdown.TitleAdjust

	return ScoredCandidate{
		Candidate:       candidate,
		CoverSimilarity: coverSimilarity,
		Score:           round3(clamp01(total)),
		Breakdown:       breakdown,
	}
}

// ScoreAll scores every candidate and returns them ordered by score
// descending. The sort is stable so candidates keep their merge-rank
// order on exact ties.
func ScoreAll(ev evidence.Evidence, candidates []merge.Merged, similarities []float64) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for i, candidate := range candidates {
		var sim float64
		if i < len(similarities) {
			sim = similarities[i]
		}
		scored = append(scored, Score(ev, candidate, sim))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// CoverScore maps a 0-100 perceptual similarity onto [0,1]. Below 30 the
// match is treated as noise and scores zero; 100 maps to 1.
func CoverScore(similarity float64) float64 {
	if similarity < 30 {
		return 0
	}
	return math.Min(1, (similarity-30)/70)
}

// VolumeScore is binary when both sides report a volume, neutral when
// the filename offers none, and zero when the filename demands a volume
// the candidate lacks.
func VolumeScore(ev evidence.Evidence, r sources.Result) float64 {
	if !ev.HasVolume() {
		return neutral
	}
	if !r.HasVolume() {
		return 0
	}
	if ev.Volume == r.Volume {
		return 1
	}
	return 0
}

// PublisherScore compares normalized publisher names; neutral when the
// filename carries no publisher hint.
func PublisherScore(ev evidence.Evidence, r sources.Result) float64 {
	if !ev.HasPublisher() {
		return neutral
	}
	if r.Publisher == "" {
		return 0
	}
	if textutil.EqualFold(ev.Publisher, r.Publisher) {
		return 1
	}
	return 0
}

// YearScore decays linearly with the year gap; more than two years apart
// scores zero, and a filename without a year is neutral.
func YearScore(ev evidence.Evidence, r sources.Result) float64 {
	if !ev.HasYear() {
		return neutral
	}
	if r.Year == 0 {
		return 0
	}
	delta := math.Abs(float64(ev.Year - r.Year))
	if delta > 2 {
		return 0
	}
	return 1 - delta/2*0.3
}

// TitleAdjustment nudges the total by up to ±0.1 from fuzzy token-set
// agreement between the filename title fragment and the candidate's full
// title. Zero when either side lacks a title.
func TitleAdjustment(ev evidence.Evidence, r sources.Result) float64 {
	if !ev.HasTitle() {
		return 0
	}
	full := r.FullTitle()
	if full == "" {
		return 0
	}
	ratio := fuzzy.TokenSetRatio(textutil.Normalize(ev.Title), textutil.Normalize(full))
	return 0.2 * (float64(ratio)/100 - 0.5)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
