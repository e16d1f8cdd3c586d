// Package storage defines the persistence interface for the dedup identity
// set and its implementations.
package storage

import (
	"context"
	"time"
)

// Storage is the durable set of item ids considered in previous runs.
type Storage interface {
	// SeenIDs returns every retained id as a set.
	SeenIDs(ctx context.Context) (map[string]struct{}, error)
	// MarkSeen adds ids to the set; already-present ids are ignored.
	MarkSeen(ctx context.Context, ids []string) error
	// PruneSeen removes ids recorded before the cutoff and reports how
	// many were dropped.
	PruneSeen(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
