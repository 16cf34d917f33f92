package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bdresolve/internal/services"
)

const sessionColumns = "id, status, directory, config_json, num_workers, batch_mode, strict_mode, total_files, processed_files, successful_files, failed_files, manual_files, skipped_files, parent_session_id, started_at, updated_at, completed_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id          string
		status      string
		directory   string
		configJSON  sql.NullString
		workers     int
		batchMode   bool
		strictMode  bool
		total       int
		processed   int
		successful  int
		failed      int
		manual      int
		skipped     int
		parent      sql.NullString
		startedRaw  sql.NullString
		updatedRaw  sql.NullString
		completeRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&status,
		&directory,
		&configJSON,
		&workers,
		&batchMode,
		&strictMode,
		&total,
		&processed,
		&successful,
		&failed,
		&manual,
		&skipped,
		&parent,
		&startedRaw,
		&updatedRaw,
		&completeRaw,
	); err != nil {
		return nil, err
	}

	return &Session{
		ID:              id,
		Status:          SessionStatus(status),
		Directory:       directory,
		ConfigJSON:      configJSON.String,
		Workers:         workers,
		BatchMode:       batchMode,
		StrictMode:      strictMode,
		TotalFiles:      total,
		ProcessedFiles:  processed,
		SuccessfulFiles: successful,
		FailedFiles:     failed,
		ManualFiles:     manual,
		SkippedFiles:    skipped,
		ParentSessionID: parent.String,
		StartedAt:       parseTime(startedRaw),
		UpdatedAt:       parseTime(updatedRaw),
		CompletedAt:     parseTime(completeRaw),
	}, nil
}

// SessionParams describes a new batch run. ConfigJSON snapshots the full
// effective batch settings; the mode fields are broken out as columns so
// sessions can be inspected and filtered with plain SQL.
type SessionParams struct {
	Directory  string
	ConfigJSON string
	Workers    int
	BatchMode  bool
	StrictMode bool
	TotalFiles int
}

// StartSession creates a new running session and returns it.
func (s *Store) StartSession(ctx context.Context, params SessionParams) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:         uuid.NewString(),
		Status:     SessionRunning,
		Directory:  params.Directory,
		ConfigJSON: params.ConfigJSON,
		Workers:    params.Workers,
		BatchMode:  params.BatchMode,
		StrictMode: params.StrictMode,
		TotalFiles: params.TotalFiles,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.execWithRetry(ensureContext(ctx),
		`INSERT INTO processing_sessions (id, status, directory, config_json, num_workers, batch_mode, strict_mode, total_files, started_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, string(session.Status), session.Directory, session.ConfigJSON,
		session.Workers, session.BatchMode, session.StrictMode,
		session.TotalFiles, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return session, nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+sessionColumns+" FROM processing_sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get session", "session "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions newest first, capped at limit (0 means
// no cap).
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := "SELECT " + sessionColumns + " FROM processing_sessions ORDER BY rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSessionCounters writes absolute counter values. The orchestrator
// is the only writer of its session row, so absolute writes cannot race.
func (s *Store) UpdateSessionCounters(ctx context.Context, id string, processed, successful, failed, manual, skipped int) error {
	_, err := s.execWithRetry(ensureContext(ctx),
		`UPDATE processing_sessions
         SET processed_files = ?, successful_files = ?, failed_files = ?, manual_files = ?, skipped_files = ?, updated_at = ?
         WHERE id = ?`,
		processed, successful, failed, manual, skipped, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	return nil
}

// PauseSession marks a running session paused so it can be resumed later.
func (s *Store) PauseSession(ctx context.Context, id string) error {
	return s.setSessionStatus(ctx, id, SessionPaused, false)
}

// FailSession marks a session failed. Failed sessions may still be
// resumed; the fork retries the unfinished files.
func (s *Store) FailSession(ctx context.Context, id string) error {
	return s.setSessionStatus(ctx, id, SessionFailed, true)
}

// CompleteSession marks the session completed and reconciles its counters
// from the processed_files rows, which are the ground truth.
func (s *Store) CompleteSession(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var processed, successful, failed, manual, skipped int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN status = 'manual' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0)
         FROM processed_files WHERE session_id = ?`, id,
	).Scan(&processed, &successful, &failed, &manual, &skipped)
	if err != nil {
		return fmt.Errorf("reconcile session counters: %w", err)
	}

	now := formatTime(time.Now())
	_, err = s.execWithRetry(ctx,
		`UPDATE processing_sessions
         SET status = ?, processed_files = ?, successful_files = ?, failed_files = ?, manual_files = ?, skipped_files = ?,
             updated_at = ?, completed_at = ?
         WHERE id = ?`,
		string(SessionCompleted), processed, successful, failed, manual, skipped, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// ResumeSession forks a paused or failed session: the original is marked
// resumed and a fresh running session is created carrying the same
// directory and configuration. Completed sessions cannot be resumed.
func (s *Store) ResumeSession(ctx context.Context, id string) (*Session, error) {
	ctx = ensureContext(ctx)

	original, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	switch original.Status {
	case SessionPaused, SessionFailed:
	case SessionCompleted:
		return nil, services.Wrap(services.ErrValidation, "store", "resume session",
			fmt.Sprintf("session %s already completed; start a new run instead", id), nil)
	default:
		return nil, services.Wrap(services.ErrValidation, "store", "resume session",
			fmt.Sprintf("session %s is %s and cannot be resumed", id, original.Status), nil)
	}

	now := time.Now().UTC()
	fork := &Session{
		ID:              uuid.NewString(),
		Status:          SessionRunning,
		Directory:       original.Directory,
		ConfigJSON:      original.ConfigJSON,
		Workers:         original.Workers,
		BatchMode:       original.BatchMode,
		StrictMode:      original.StrictMode,
		TotalFiles:      original.TotalFiles,
		ParentSessionID: original.ID,
		StartedAt:       now,
		UpdatedAt:       now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin resume tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO processing_sessions (id, status, directory, config_json, num_workers, batch_mode, strict_mode, total_files, parent_session_id, started_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fork.ID, string(fork.Status), fork.Directory, fork.ConfigJSON,
		fork.Workers, fork.BatchMode, fork.StrictMode,
		fork.TotalFiles, fork.ParentSessionID, formatTime(now), formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert resumed session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE processing_sessions SET status = ?, updated_at = ? WHERE id = ?",
		string(SessionResumed), formatTime(now), original.ID,
	); err != nil {
		return nil, fmt.Errorf("mark session resumed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resume: %w", err)
	}
	return fork, nil
}

func (s *Store) setSessionStatus(ctx context.Context, id string, status SessionStatus, terminal bool) error {
	now := formatTime(time.Now())
	completed := nullableTime(time.Time{})
	if terminal {
		completed = now
	}
	res, err := s.execWithRetry(ensureContext(ctx),
		"UPDATE processing_sessions SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?",
		string(status), now, completed, id,
	)
	if err != nil {
		return fmt.Errorf("set session status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "set session status", "session "+id, nil)
	}
	return nil
}
