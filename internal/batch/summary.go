package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bdresolve/internal/store"
)

// lowConfidenceCutoff flags successful and manual outcomes whose score
// still deserves a human glance.
const lowConfidenceCutoff = 0.70

// LowConfidence is one summary entry for a file resolved below the
// review cutoff.
type LowConfidence struct {
	FilePath string  `json:"file_path"`
	Score    float64 `json:"score"`
	Title    string  `json:"title,omitempty"`
}

// RunSummary is the JSON document written at the end of every run.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Directory     string          `json:"directory"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	TotalFiles    int             `json:"total_files"`
	Processed     int             `json:"processed"`
	Successful    int             `json:"successful"`
	Failed        int             `json:"failed"`
	Manual        int             `json:"manual"`
	Skipped       int             `json:"skipped"`
	Interrupted   bool            `json:"interrupted"`
	LowConfidence []LowConfidence `json:"low_confidence,omitempty"`
	Outcomes      []Outcome       `json:"outcomes"`
}

func newRunSummary(session *store.Session, dir string, totalFiles int) *RunSummary {
	summary := &RunSummary{
		RunID:      uuid.NewString(),
		Directory:  dir,
		StartedAt:  time.Now().UTC(),
		TotalFiles: totalFiles,
	}
	if session != nil {
		summary.SessionID = session.ID
	}
	return summary
}

func (s *RunSummary) add(outcome Outcome) {
	s.Processed++
	s.Outcomes = append(s.Outcomes, outcome)

	switch outcome.Status {
	case store.FileSuccess:
		s.Successful++
	case store.FileManual:
		s.Manual++
	case store.FileSkipped:
		s.Skipped++
	default:
		s.Failed++
	}

	if outcome.Status != store.FileFailed && outcome.Status != store.FileSkipped && outcome.Score < lowConfidenceCutoff {
		s.LowConfidence = append(s.LowConfidence, LowConfidence{
			FilePath: outcome.FilePath,
			Score:    outcome.Score,
			Title:    outcome.Title,
		})
	}
}

func (s *RunSummary) finish(interrupted bool) {
	s.FinishedAt = time.Now().UTC()
	s.Interrupted = interrupted
}

// Write renders the summary as indented JSON under dir and returns the
// written path.
func (s *RunSummary) Write(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("no summary directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}

	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("run_%s.json", s.StartedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
