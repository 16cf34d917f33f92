package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsNumericColumnsRight(t *testing.T) {
	out := renderTable(
		[]column{{name: "File"}, {name: "Score", numeric: true}},
		[][]string{
			{"tintin_t01.cbz", "0.912"},
			{"asterix.cbz", "0.400"},
		},
	)

	lines := strings.Split(out, "\n")
	var fileLine string
	for _, line := range lines {
		if strings.Contains(line, "tintin_t01.cbz") {
			fileLine = line
		}
	}
	if fileLine == "" {
		t.Fatalf("row missing from output:\n%s", out)
	}
	// Left column hugs the left border, numeric column hugs the right.
	if !strings.Contains(fileLine, "│ tintin_t01.cbz") {
		t.Errorf("file column not left-aligned: %q", fileLine)
	}
	if !strings.Contains(fileLine, "0.912 │") {
		t.Errorf("score column not right-aligned: %q", fileLine)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]column{{name: "ID"}, {name: "Status"}, {name: "Detail"}},
		[][]string{{"abc123", "failed"}},
	)
	if !strings.Contains(out, "abc123") || !strings.Contains(out, "failed") {
		t.Fatalf("row cells missing:\n%s", out)
	}
	if strings.Contains(out, "<nil>") {
		t.Fatalf("missing cells must render empty:\n%s", out)
	}
}

func TestRenderTableEmptyColumns(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
