package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bdresolve/internal/sources"
	"bdresolve/internal/textutil"
)

// CacheStats summarizes the album cache for the cli.
type CacheStats struct {
	Entries int
	Expired int
	Oldest  time.Time
	Newest  time.Time
}

// AlbumKey derives the cache identity for an album: normalized series and
// title plus the volume number when known.
func AlbumKey(series, title string, volume int) string {
	key := textutil.Normalize(series + " " + title)
	if volume != sources.VolumeUnknown {
		key += " #" + strconv.Itoa(volume)
	}
	return key
}

// CacheAlbum stores one album result under its key with the given TTL.
// Re-caching refreshes both payload and expiry.
func (s *Store) CacheAlbum(ctx context.Context, result sources.Result, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode album payload: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.execWithRetry(ensureContext(ctx),
		`INSERT INTO album_cache (cache_key, source, payload_json, cached_at, expires_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(cache_key) DO UPDATE SET
             source = excluded.source,
             payload_json = excluded.payload_json,
             cached_at = excluded.cached_at,
             expires_at = excluded.expires_at`,
		AlbumKey(result.Series, result.Title, result.Volume), result.Source,
		string(payload), formatTime(now), formatTime(now.Add(ttl)),
	)
	if err != nil {
		return fmt.Errorf("cache album: %w", err)
	}
	return nil
}

// CachedAlbum fetches one unexpired album by key; ok is false on a miss
// or an expired entry.
func (s *Store) CachedAlbum(ctx context.Context, key string) (*sources.Result, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT payload_json FROM album_cache WHERE cache_key = ? AND expires_at > ?",
		key, formatTime(time.Now()),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cached album: %w", err)
	}

	var result sources.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached album: %w", err)
	}
	return &result, true, nil
}

// SearchCachedAlbums returns unexpired albums whose key contains the
// normalized query text, newest first.
func (s *Store) SearchCachedAlbums(ctx context.Context, text string, limit int) ([]sources.Result, error) {
	needle := textutil.Normalize(text)
	if needle == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT cache_key, payload_json FROM album_cache
         WHERE expires_at > ? AND cache_key LIKE '%' || ? || '%'
         ORDER BY cached_at DESC LIMIT ?`,
		formatTime(time.Now()), needle, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search cached albums: %w", err)
	}
	defer rows.Close()

	var results []sources.Result
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("scan cached album: %w", err)
		}
		var result sources.Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			continue
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// CachedAlbumByURL fetches one unexpired album by its page URL.
func (s *Store) CachedAlbumByURL(ctx context.Context, url string) (*sources.Result, bool, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT payload_json FROM album_cache WHERE expires_at > ?", formatTime(time.Now()))
	if err != nil {
		return nil, false, fmt.Errorf("cached album by url: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, false, fmt.Errorf("scan cached album: %w", err)
		}
		var result sources.Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			continue
		}
		if result.URL == url {
			return &result, true, nil
		}
	}
	return nil, false, rows.Err()
}

// PurgeExpiredAlbums removes expired cache rows and returns how many.
func (s *Store) PurgeExpiredAlbums(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx),
		"DELETE FROM album_cache WHERE expires_at <= ?", formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("purge expired albums: %w", err)
	}
	return res.RowsAffected()
}

// AlbumCacheStats reports cache size and age bounds.
func (s *Store) AlbumCacheStats(ctx context.Context) (CacheStats, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	var (
		stats     CacheStats
		oldestRaw sql.NullString
		newestRaw sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
                MIN(cached_at), MAX(cached_at)
         FROM album_cache`, now,
	).Scan(&stats.Entries, &stats.Expired, &oldestRaw, &newestRaw)
	if err != nil {
		return CacheStats{}, fmt.Errorf("album cache stats: %w", err)
	}
	stats.Oldest = parseTime(oldestRaw)
	stats.Newest = parseTime(newestRaw)
	return stats, nil
}
