// Package evidence extracts structured matching hints from comic archive
// filenames. Extraction is a pure function: no I/O, and absence of a hint
// is signaled through sentinels, never errors.
package evidence

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// VolumeUnknown marks a filename with no recognizable volume token.
// Zero is a valid volume number, so absence needs its own sentinel.
const VolumeUnknown = -1

// YearUnknown marks a filename with no recognizable publication year.
const YearUnknown = -1

// Evidence holds the hints parsed from one filename. Immutable once
// computed; recomputed per file and never persisted.
type Evidence struct {
	Title     string
	Volume    int
	Publisher string // empty when unknown
	Year      int
}

// Volume token grammar, tried in order; the first match wins.
// Handles "Tome 1", "Vol 1", "T1", "V 1", "#1" and the trailing form
// "1 tome".
var (
	volumePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:tome|tom|vol|v|t|#)\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s*(?:tome|tom|vol|v|t)$`),
	}
	volumeSuffix  = regexp.MustCompile(`(?i)\s*(?:tome|tom|vol|v|t|#)\s*\d+.*$`)
	volumeTrailer = regexp.MustCompile(`(?i)\s*\d+\s*(?:tome|tom|vol|v|t)$`)
	yearPattern   = regexp.MustCompile(`\((19|20)\d{2}\)`)
)

// Extract derives Evidence from a filename (base name, extension
// included or not).
func Extract(filename string) Evidence {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	ev := Evidence{
		Volume: extractVolume(name),
		Title:  extractTitle(name),
		Year:   extractYear(name),
	}
	return ev
}

func extractVolume(name string) int {
	for _, pattern := range volumePatterns {
		if m := pattern.FindStringSubmatch(name); m != nil {
			volume, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return volume
		}
	}
	return VolumeUnknown
}

func extractTitle(name string) string {
	title := volumeSuffix.ReplaceAllString(name, "")
	title = volumeTrailer.ReplaceAllString(title, "")
	title = yearPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func extractYear(name string) int {
	if m := yearPattern.FindString(name); m != "" {
		year, err := strconv.Atoi(strings.Trim(m, "()"))
		if err == nil {
			return year
		}
	}
	return YearUnknown
}

// HasVolume reports whether a volume hint was found.
func (e Evidence) HasVolume() bool { return e.Volume != VolumeUnknown }

// HasYear reports whether a year hint was found.
func (e Evidence) HasYear() bool { return e.Year != YearUnknown }

// HasPublisher reports whether a publisher hint is available.
func (e Evidence) HasPublisher() bool {
	return e.Publisher != "" && !strings.EqualFold(e.Publisher, "unknown")
}

// HasTitle reports whether the title fragment is usable for fuzzy matching.
func (e Evidence) HasTitle() bool {
	return e.Title != "" && !strings.EqualFold(e.Title, "unknown")
}
