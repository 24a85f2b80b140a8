// Package history records finished compositions. Entries are keyed by
// fingerprint: regenerating the same text moves its entry to the front
// instead of duplicating it, and the list is capped at MaxEntries.
package history

import (
	"context"
	"time"
)

// MaxEntries caps the history list.
const MaxEntries = 10

// Entry is a single finished composition.
type Entry struct {
	Text        string    `json:"text"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}

// Recorder is the boundary the pipeline records into. Implementations
// must keep entries most-recent-first, deduplicated by fingerprint and
// capped at MaxEntries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}

// prepend inserts e at the front of entries, dropping any existing entry
// with the same fingerprint and truncating to MaxEntries.
func prepend(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, e)
	for _, old := range entries {
		if old.Fingerprint == e.Fingerprint {
			continue
		}
		out = append(out, old)
	}
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}
