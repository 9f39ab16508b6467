// Package syncx provides checkpoint handling and tagged-variant payload
// parsing shared by the sync engine.
package syncx

import "time"

// Checkpoint is an opaque string totally ordering server-visible write
// events (SPEC_FULL.md §4.1). Implementations use an RFC3339Nano UTC
// timestamp, but callers must treat it as opaque.
type Checkpoint = string

// NoCheckpoint is the sentinel meaning "initial sync: return everything".
const NoCheckpoint Checkpoint = ""

// EncodeCheckpoint renders a server timestamp as an opaque checkpoint string.
func EncodeCheckpoint(t time.Time) Checkpoint {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseCheckpoint parses an opaque checkpoint string back to a time.
// An empty checkpoint is valid and represents "the beginning of time".
func ParseCheckpoint(c Checkpoint) (time.Time, bool) {
	if c == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339Nano, c)
	if err != nil {
		t, err = time.Parse(time.RFC3339, c)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t.UTC(), true
}

// MaxCheckpoint returns the later of two checkpoints, treating NoCheckpoint
// as earlier than any concrete timestamp.
func MaxCheckpoint(a, b Checkpoint) Checkpoint {
	at, aok := ParseCheckpoint(a)
	bt, bok := ParseCheckpoint(b)
	if !aok || a == NoCheckpoint {
		return b
	}
	if !bok || b == NoCheckpoint {
		return a
	}
	if bt.After(at) {
		return b
	}
	return a
}
