package report

import (
	"testing"
	"time"
)

func TestParseWeekKeyRejectsBareYYYYWW(t *testing.T) {
	if _, _, err := ParseWeekKey("2025-03"); err == nil {
		t.Fatal("expected bare YYYY-WW (no literal W) to be rejected")
	}
}

func TestParseWeekKeyAcceptsValid(t *testing.T) {
	year, week, err := ParseWeekKey("2025-W03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year != 2025 || week != 3 {
		t.Fatalf("got year=%d week=%d", year, week)
	}
}

func TestParseWeekKeyRejectsOutOfRangeWeek(t *testing.T) {
	if _, _, err := ParseWeekKey("2025-W54"); err == nil {
		t.Fatal("expected week 54 to be rejected")
	}
}

func TestParseWeekKeyRejectsOutOfRangeYear(t *testing.T) {
	if _, _, err := ParseWeekKey("1999-W01"); err == nil {
		t.Fatal("expected year 1999 to be rejected")
	}
}

func TestISOWeekRangeMatchesStdlibISOWeek(t *testing.T) {
	start, end := ISOWeekRange(2025, 3)
	if start.Weekday() != time.Monday {
		t.Fatalf("expected range to start on Monday, got %v", start.Weekday())
	}
	if end.Sub(start) != 7*24*time.Hour {
		t.Fatalf("expected a 7-day range, got %v", end.Sub(start))
	}

	gotYear, gotWeek := start.ISOWeek()
	if gotYear != 2025 || gotWeek != 3 {
		t.Fatalf("range start does not fall in ISO week 2025-W03, got %d-W%02d", gotYear, gotWeek)
	}
}

func TestPreviousWeekKeyCrossesYearBoundary(t *testing.T) {
	y, w := PreviousWeekKey(2025, 1)
	if y != 2024 {
		t.Fatalf("expected previous week to land in 2024, got %d", y)
	}
	if w < 52 {
		t.Fatalf("expected previous week to be 52 or 53, got %d", w)
	}
}

func TestFormatWeekKeyRoundTrips(t *testing.T) {
	if got := FormatWeekKey(2025, 3); got != "2025-W03" {
		t.Fatalf("got %q", got)
	}
	year, week, err := ParseWeekKey(FormatWeekKey(2025, 3))
	if err != nil || year != 2025 || week != 3 {
		t.Fatalf("round trip failed: year=%d week=%d err=%v", year, week, err)
	}
}
