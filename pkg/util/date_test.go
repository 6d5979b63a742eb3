package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateUnix(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got, ok := ParseDate(strconv.FormatInt(want.Unix(), 10))
	if !ok || !got.Equal(want) {
		t.Fatalf("ParseDate(unix) = %v, %v", got, ok)
	}
	if _, ok := ParseDate("20240101"); ok {
		t.Fatalf("short integers are not unix timestamps")
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2023-01-02", " 2023-01-02 ", "2023/01/02", "2023-01-02 00:00:00", "2023-01-02T00:00:00Z"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", s)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if _, ok := ParseDate("Q1 2023"); ok {
		t.Fatalf("expected failure for non-date")
	}
	if _, ok := ParseDate(""); ok {
		t.Fatalf("expected failure for empty")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)); got != "2023-05-01" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDate(time.Date(2023, 5, 1, 9, 30, 0, 0, time.UTC)); got != "2023-05-01 09:30:00" {
		t.Fatalf("got %q", got)
	}
}
