// Package sources defines the metadata source plugin capability and the
// coordinator that fans a query out to every registered source in
// parallel.
//
// Sources are registered explicitly by the host application (see
// registry.go); the package never discovers plugins by reflection. Each
// source produces Results that the merge and scoring packages consume.
package sources

import (
	"fmt"
	"strings"
	"time"
)

// VolumeUnknown marks a result (or query) without a volume number.
// Zero is a valid volume, so absence has its own sentinel.
const VolumeUnknown = -1

// Result is one source's answer to a query. Immutable once produced.
type Result struct {
	Source      string
	URL         string
	Confidence  float64 // 0-100, declared by the source
	Title       string
	Series      string
	Volume      int // VolumeUnknown when the source did not report one
	Publisher   string
	Year        int // 0 when unknown
	Pages       int
	ISBN        string
	CoverURL    string
	Extra       map[string]string
	RetrievedAt time.Time
}

// Validate checks the minimum contract a result must satisfy before it
// may be scored: a title, a source name, a confidence inside [0,100],
// and an http(s) URL.
func (r Result) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("result from %q missing title", r.Source)
	}
	if strings.TrimSpace(r.Source) == "" {
		return fmt.Errorf("result %q missing source", r.Title)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("result %q confidence %.1f outside [0,100]", r.Title, r.Confidence)
	}
	if !strings.HasPrefix(r.URL, "http") {
		return fmt.Errorf("result %q has invalid url %q", r.Title, r.URL)
	}
	return nil
}

// FullTitle joins series and title for fuzzy comparison against filename
// evidence; sources disagree on whether the series belongs in the title.
func (r Result) FullTitle() string {
	full := strings.TrimSpace(strings.TrimSpace(r.Series) + " " + strings.TrimSpace(r.Title))
	if full == "" {
		return r.Title
	}
	return full
}

// HasVolume reports whether the source reported a volume number.
func (r Result) HasVolume() bool { return r.Volume != VolumeUnknown }

// Clone returns a deep copy; merging mutates its working copy and must
// never touch the raw per-source results.
func (r Result) Clone() Result {
	clone := r
	if r.Extra != nil {
		clone.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			clone.Extra[k] = v
		}
	}
	return clone
}

// Query describes one search request fanned out to every source.
type Query struct {
	Text   string
	Series string
	Volume int // VolumeUnknown when no hint
	Year   int // 0 when no hint
	Limit  int
}
