package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := Wrap(ErrTransient, "sources", "search", "bedetheque", base)

	if !errors.Is(err, ErrTransient) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, base) {
		t.Fatal("cause lost")
	}
	msg := err.Error()
	for _, part := range []string{"sources", "search", "bedetheque", "connection reset"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("message %q missing %q", msg, part)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	if !errors.Is(Wrap(nil, "c", "o", "m", nil), ErrTransient) {
		t.Fatal("nil marker must default to transient")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{Wrap(ErrValidation, "c", "o", "", nil), false},
		{Wrap(ErrConfiguration, "c", "o", "", nil), false},
		{Wrap(ErrNotFound, "c", "o", "", nil), false},
		{Wrap(ErrTransient, "c", "o", "", nil), true},
		{Wrap(ErrTimeout, "c", "o", "", nil), true},
		{errors.New("anything else"), true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
