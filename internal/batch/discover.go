package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// archiveExtensions lists the comic archive formats the pipeline accepts.
var archiveExtensions = map[string]bool{
	".cbz": true,
	".cbr": true,
	".cb7": true,
	".cbt": true,
	".pdf": true,
}

// IsArchive reports whether the path looks like a supported comic archive.
func IsArchive(path string) bool {
	return archiveExtensions[strings.ToLower(filepath.Ext(path))]
}

// DiscoverArchives walks dir recursively and returns every supported
// archive in sorted order. Hidden directories are skipped.
func DiscoverArchives(dir string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsArchive(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}
