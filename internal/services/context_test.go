package services

import (
	"context"
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := SessionIDFromContext(ctx); ok {
		t.Fatal("bare context must carry no session id")
	}

	ctx = WithSessionID(ctx, "3f1c9a2e-resume")
	id, ok := SessionIDFromContext(ctx)
	if !ok || id != "3f1c9a2e-resume" {
		t.Fatalf("session id lost: %q, %v", id, ok)
	}

	// Empty ids are not annotations.
	if _, ok := SessionIDFromContext(WithSessionID(context.Background(), "")); ok {
		t.Fatal("empty session id must not annotate")
	}
}

func TestFilePathAndRunIDRoundTrip(t *testing.T) {
	ctx := WithFilePath(context.Background(), "/comics/a.cbz")
	ctx = WithRunID(ctx, "run-42")

	if path, ok := FilePathFromContext(ctx); !ok || path != "/comics/a.cbz" {
		t.Fatalf("file path lost: %q, %v", path, ok)
	}
	if id, ok := RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("run id lost: %q, %v", id, ok)
	}
}
