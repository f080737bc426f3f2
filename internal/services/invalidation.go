package services

import (
	"context"
	"sync"
	"time"
)

// Invalidation tells UI-layer caches which subjects (and, when known, which
// goal) need a refetch after a completion or undo. Transport past this
// interface is an external concern.
type Invalidation struct {
	GoalID     string    `json:"goal_id,omitempty"`
	SubjectIDs []string  `json:"subject_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

type InvalidationSink interface {
	Publish(ctx context.Context, invalidation Invalidation) error
}

// MemoryInvalidationSink buffers invalidations in order with a monotonic
// cursor so pollers can fetch everything since their last read.
type MemoryInvalidationSink struct {
	mu      sync.Mutex
	entries []Invalidation
}

func NewMemoryInvalidationSink() *MemoryInvalidationSink {
	return &MemoryInvalidationSink{}
}

func (sink *MemoryInvalidationSink) Publish(_ context.Context, invalidation Invalidation) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.entries = append(sink.entries, invalidation)
	return nil
}

// Since returns all invalidations recorded after cursor, plus the new
// cursor to poll from.
func (sink *MemoryInvalidationSink) Since(cursor int) ([]Invalidation, int) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(sink.entries) {
		return nil, len(sink.entries)
	}
	entries := make([]Invalidation, len(sink.entries)-cursor)
	copy(entries, sink.entries[cursor:])
	return entries, len(sink.entries)
}
