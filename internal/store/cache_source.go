package store

import (
	"context"
	"time"

	"bdresolve/internal/sources"
	"bdresolve/internal/textutil"
)

// Cache-hit confidences: an exact key hit is near-certain, a substring
// hit is only a lead.
const (
	cacheSourceName       = "local_cache"
	cacheExactConfidence  = 90
	cacheFuzzyConfidence  = 65
	cacheSourcePriority   = 10
	cacheSearchMultiplier = 2
)

// CacheSource serves previously resolved albums straight from the local
// cache, ahead of any network source. It implements sources.Source.
type CacheSource struct {
	store *Store
}

// NewCacheSource wraps the store's album cache as a source.
func NewCacheSource(s *Store) *CacheSource {
	return &CacheSource{store: s}
}

// Name implements sources.Source.
func (c *CacheSource) Name() string { return cacheSourceName }

// Priority implements sources.Source. The cache outranks every network
// source.
func (c *CacheSource) Priority() int { return cacheSourcePriority }

// Search implements sources.Source. An exact key hit is returned alone at
// high confidence; otherwise substring hits are returned at a reduced one.
func (c *CacheSource) Search(ctx context.Context, q sources.Query) ([]sources.Result, error) {
	if hit, ok, err := c.store.CachedAlbum(ctx, AlbumKey(q.Series, q.Text, q.Volume)); err != nil {
		return nil, err
	} else if ok {
		return []sources.Result{c.asCacheResult(*hit, cacheExactConfidence)}, nil
	}

	limit := q.Limit
	if limit > 0 {
		limit *= cacheSearchMultiplier
	}
	hits, err := c.store.SearchCachedAlbums(ctx, q.Text, limit)
	if err != nil {
		return nil, err
	}

	results := make([]sources.Result, 0, len(hits))
	for _, hit := range hits {
		if q.Volume != sources.VolumeUnknown && hit.HasVolume() && hit.Volume != q.Volume {
			continue
		}
		if q.Series != "" && hit.Series != "" && !textutil.ContainsFold(q.Series, hit.Series) {
			continue
		}
		results = append(results, c.asCacheResult(hit, cacheFuzzyConfidence))
	}
	return results, nil
}

// Details implements sources.Source. The cache has no page URLs of its
// own; it answers only for URLs it has cached payloads for.
func (c *CacheSource) Details(ctx context.Context, url string) (*sources.Result, error) {
	hit, ok, err := c.store.CachedAlbumByURL(ctx, url)
	if err != nil || !ok {
		return nil, err
	}
	result := c.asCacheResult(*hit, cacheExactConfidence)
	return &result, nil
}

// asCacheResult relabels a cached payload as a cache answer, keeping the
// original source name in Extra for provenance.
func (c *CacheSource) asCacheResult(r sources.Result, confidence float64) sources.Result {
	out := r.Clone()
	if out.Extra == nil {
		out.Extra = make(map[string]string, 1)
	}
	out.Extra["cached_from"] = r.Source
	out.Source = cacheSourceName
	out.Confidence = confidence
	out.RetrievedAt = time.Now().UTC()
	return out
}
