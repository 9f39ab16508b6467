package syncx

import (
	"testing"
	"time"
)

func TestEncodeDecodeCheckpointRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	cp := EncodeCheckpoint(now)

	parsed, ok := ParseCheckpoint(cp)
	if !ok {
		t.Fatalf("ParseCheckpoint(%q) failed", cp)
	}
	if !parsed.Equal(now) {
		t.Fatalf("got %v, want %v", parsed, now)
	}
}

func TestParseCheckpointEmptyIsValid(t *testing.T) {
	parsed, ok := ParseCheckpoint(NoCheckpoint)
	if !ok {
		t.Fatal("empty checkpoint should parse")
	}
	if !parsed.IsZero() {
		t.Fatalf("expected zero time, got %v", parsed)
	}
}

func TestParseCheckpointMalformed(t *testing.T) {
	if _, ok := ParseCheckpoint("not-a-timestamp"); ok {
		t.Fatal("expected malformed checkpoint to fail parsing")
	}
}

func TestMaxCheckpoint(t *testing.T) {
	earlier := EncodeCheckpoint(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	later := EncodeCheckpoint(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	if got := MaxCheckpoint(earlier, later); got != later {
		t.Fatalf("got %q, want %q", got, later)
	}
	if got := MaxCheckpoint(later, earlier); got != later {
		t.Fatalf("got %q, want %q", got, later)
	}
	if got := MaxCheckpoint(NoCheckpoint, later); got != later {
		t.Fatalf("got %q, want %q", got, later)
	}
	if got := MaxCheckpoint(earlier, NoCheckpoint); got != earlier {
		t.Fatalf("got %q, want %q", got, earlier)
	}
}
