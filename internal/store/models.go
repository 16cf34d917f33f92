package store

import "time"

// SessionStatus is the lifecycle state of a processing session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	// SessionResumed marks a session that was forked by a resume; the
	// fork carries the work forward.
	SessionResumed SessionStatus = "resumed"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionResumed
}

// Session is one batch run over a directory.
type Session struct {
	ID              string
	Status          SessionStatus
	Directory       string
	ConfigJSON      string
	Workers         int
	BatchMode       bool
	StrictMode      bool
	TotalFiles      int
	ProcessedFiles  int
	SuccessfulFiles int
	FailedFiles     int
	ManualFiles     int
	SkippedFiles    int
	ParentSessionID string
	StartedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     time.Time // zero until the session ends
}

// FileStatus is the terminal disposition of one archive within a session.
type FileStatus string

const (
	FileSuccess FileStatus = "success"
	FileFailed  FileStatus = "failed"
	FileManual  FileStatus = "manual"
	FileSkipped FileStatus = "skipped"
)

// Settled reports whether the file needs no further processing in any
// later session.
func (s FileStatus) Settled() bool {
	return s == FileSuccess || s == FileManual
}

// FileRecord is one archive's outcome row. file_path is unique across
// sessions; re-recording an unsettled path updates the row in place.
type FileRecord struct {
	ID           int64
	SessionID    string
	FilePath     string
	FileHash     string
	FileSize     int64
	Status       FileStatus
	Score        float64
	Title        string
	Series       string
	Volume       int
	Year         int
	Publisher    string
	Source       string
	AlbumURL     string
	ErrorMessage string
	Attempts     int
	Duration     time.Duration // wall time spent resolving, stored as milliseconds
	ProcessedAt  time.Time
	UpdatedAt    time.Time
}
