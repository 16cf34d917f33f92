package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bdresolve/internal/fileutil"
)

const fileColumns = "id, session_id, file_path, file_hash, file_size, status, score, title, series, volume, year, publisher, source, album_url, error_message, attempts, processing_time_ms, processed_at, updated_at"

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		id           int64
		sessionID    string
		filePath     string
		fileHash     sql.NullString
		fileSize     int64
		status       string
		score        float64
		title        sql.NullString
		series       sql.NullString
		volume       int
		year         int
		publisher    sql.NullString
		source       sql.NullString
		albumURL     sql.NullString
		errorMessage sql.NullString
		attempts     int
		durationMS   int64
		processedRaw sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&sessionID,
		&filePath,
		&fileHash,
		&fileSize,
		&status,
		&score,
		&title,
		&series,
		&volume,
		&year,
		&publisher,
		&source,
		&albumURL,
		&errorMessage,
		&attempts,
		&durationMS,
		&processedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	return &FileRecord{
		ID:           id,
		SessionID:    sessionID,
		FilePath:     filePath,
		FileHash:     fileHash.String,
		FileSize:     fileSize,
		Status:       FileStatus(status),
		Score:        score,
		Title:        title.String,
		Series:       series.String,
		Volume:       volume,
		Year:         year,
		Publisher:    publisher.String,
		Source:       source.String,
		AlbumURL:     albumURL.String,
		ErrorMessage: errorMessage.String,
		Attempts:     attempts,
		Duration:     time.Duration(durationMS) * time.Millisecond,
		ProcessedAt:  parseTime(processedRaw),
		UpdatedAt:    parseTime(updatedRaw),
	}, nil
}

// canonicalPath normalizes a path into the store's identity key so that
// every spelling of the same file collides on the UNIQUE column.
func canonicalPath(path string) string {
	if normalized, err := fileutil.NormalizePath(path); err == nil {
		return normalized
	}
	return path
}

// RecordOutcome persists one file's outcome idempotently. The normalized
// file_path is the identity: recording the same path again updates the
// existing row unless that row is already settled (success or manual),
// in which case the settled row is kept and returned untouched. The bool
// reports whether the write was applied.
func (s *Store) RecordOutcome(ctx context.Context, rec FileRecord) (*FileRecord, bool, error) {
	ctx = ensureContext(ctx)
	rec.FilePath = canonicalPath(rec.FilePath)

	existing, err := s.FileByPath(ctx, rec.FilePath)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.Status.Settled() {
		return existing, false, nil
	}

	now := formatTime(time.Now())
	_, err = s.execWithRetry(ctx,
		`INSERT INTO processed_files
             (session_id, file_path, file_hash, file_size, status, score, title, series, volume, year,
              publisher, source, album_url, error_message, attempts, processing_time_ms, processed_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(file_path) DO UPDATE SET
             session_id = excluded.session_id,
             file_hash = excluded.file_hash,
             file_size = excluded.file_size,
             status = excluded.status,
             score = excluded.score,
             title = excluded.title,
             series = excluded.series,
             volume = excluded.volume,
             year = excluded.year,
             publisher = excluded.publisher,
             source = excluded.source,
             album_url = excluded.album_url,
             error_message = excluded.error_message,
             attempts = excluded.attempts,
             processing_time_ms = excluded.processing_time_ms,
             updated_at = excluded.updated_at
         WHERE processed_files.status NOT IN ('success', 'manual')`,
		rec.SessionID, rec.FilePath, nullableString(rec.FileHash), rec.FileSize,
		string(rec.Status), rec.Score, nullableString(rec.Title), nullableString(rec.Series),
		rec.Volume, rec.Year, nullableString(rec.Publisher), nullableString(rec.Source),
		nullableString(rec.AlbumURL), nullableString(rec.ErrorMessage), rec.Attempts,
		rec.Duration.Milliseconds(), now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("record outcome for %s: %w", rec.FilePath, err)
	}

	stored, err := s.FileByPath(ctx, rec.FilePath)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("record outcome for %s: row vanished after upsert", rec.FilePath)
	}
	return stored, true, nil
}

// FileByPath fetches the outcome row for one path, nil when absent. The
// path is normalized before the lookup.
func (s *Store) FileByPath(ctx context.Context, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+fileColumns+" FROM processed_files WHERE file_path = ?", canonicalPath(path))
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return rec, nil
}

// IsProcessed reports whether the path already has a settled outcome.
func (s *Store) IsProcessed(ctx context.Context, path string) (bool, error) {
	rec, err := s.FileByPath(ctx, path)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Status.Settled(), nil
}

// SessionFiles returns every outcome row recorded under the session, in
// processing order.
func (s *Store) SessionFiles(ctx context.Context, sessionID string) ([]*FileRecord, error) {
	return s.queryFiles(ctx,
		"SELECT "+fileColumns+" FROM processed_files WHERE session_id = ? ORDER BY id", sessionID)
}

// UnfinishedFiles returns the session's rows that a resumed run should
// revisit: failed and skipped outcomes.
func (s *Store) UnfinishedFiles(ctx context.Context, sessionID string) ([]*FileRecord, error) {
	return s.queryFiles(ctx,
		"SELECT "+fileColumns+" FROM processed_files WHERE session_id = ? AND status IN ('failed', 'skipped') ORDER BY id",
		sessionID)
}

func (s *Store) queryFiles(ctx context.Context, query string, args ...any) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, rec)
	}
	return files, rows.Err()
}
