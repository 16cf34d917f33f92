package merge

import (
	"bdresolve/internal/sources"
	"bdresolve/internal/textutil"
)

// Field weights for the album-identity similarity. Only fields both
// results carry participate; the score is normalized over the weights
// actually considered so sparse results are not penalized.
const (
	weightSeries    = 0.30
	weightVolume    = 0.25
	weightTitle     = 0.25
	weightTitleSub  = 0.15
	weightYear      = 0.10
	weightPublisher = 0.10
)

// GroupByAlbum partitions results into groups that describe the same
// album. Clustering is greedy in input order: each result joins the
// best-matching existing group whose representative (the group's first
// member) it resembles at or above threshold, otherwise it founds a new
// group.
func GroupByAlbum(results []sources.Result, threshold float64) [][]sources.Result {
	var groups [][]sources.Result
	for _, r := range results {
		bestIdx, bestSim := -1, 0.0
		for i := range groups {
			sim := AlbumSimilarity(groups[i][0], r)
			if sim >= threshold && sim > bestSim {
				bestIdx, bestSim = i, sim
			}
		}
		if bestIdx >= 0 {
			groups[bestIdx] = append(groups[bestIdx], r)
		} else {
			groups = append(groups, []sources.Result{r})
		}
	}
	return groups
}

// AlbumSimilarity scores how likely two results describe the same album,
// in [0,1]. Fields missing on either side are skipped and their weight
// excluded from the normalization.
func AlbumSimilarity(a, b sources.Result) float64 {
	var score, considered float64

	if a.Series != "" && b.Series != "" {
		considered += weightSeries
		if textutil.EqualFold(a.Series, b.Series) {
			score += weightSeries
		}
	}

	if a.HasVolume() && b.HasVolume() {
		considered += weightVolume
		if a.Volume == b.Volume {
			score += weightVolume
		}
	}

	if a.Title != "" && b.Title != "" {
		considered += weightTitle
		switch {
		case textutil.EqualFold(a.Title, b.Title):
			score += weightTitle
		case textutil.ContainsFold(a.Title, b.Title):
			score += weightTitleSub
		}
	}

	if a.Year != 0 && b.Year != 0 {
		considered += weightYear
		delta := a.Year - b.Year
		if delta < 0 {
			delta = -delta
		}
		switch {
		case delta <= 1:
			score += weightYear
		case delta <= 2:
			score += weightYear / 2
		}
	}

	if a.Publisher != "" && b.Publisher != "" {
		considered += weightPublisher
		if textutil.EqualFold(a.Publisher, b.Publisher) {
			score += weightPublisher
		}
	}

	if considered == 0 {
		return 0
	}
	return score / considered
}
