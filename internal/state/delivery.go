package state

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"
)

// deliveryFile is the on-disk shape of the delivery state. Sent ids carry
// their delivery time so old entries can be expired instead of growing
// without bound.
type deliveryFile struct {
	SentIDs   map[string]time.Time `json:"sent_ids"`
	LastIndex *int                 `json:"last_index"`
}

// Tracker records which items have already been delivered. It is loaded at
// poster start and persisted after every mutation; delivered is terminal for
// the life of the retained state.
type Tracker struct {
	path      string
	log       *slog.Logger
	sent      map[string]time.Time
	lastIndex *int
	now       func() time.Time
}

// LoadTracker reads the delivery state from path. A missing file starts
// empty; a corrupt file is logged as a warning and treated as empty, never
// as a fatal error. Entries older than retention are dropped.
func LoadTracker(path string, retention time.Duration, log *slog.Logger) *Tracker {
	t := &Tracker{
		path: path,
		log:  log,
		sent: make(map[string]time.Time),
		now:  time.Now,
	}

	df, err := Load[deliveryFile](path)
	switch {
	case err == nil:
		if df.SentIDs != nil {
			t.sent = df.SentIDs
		}
		t.lastIndex = df.LastIndex
	case errors.Is(err, fs.ErrNotExist):
		// First run.
	default:
		log.Warn("delivery state unreadable, starting empty", "path", path, "error", err)
	}

	if retention > 0 {
		cutoff := t.now().Add(-retention)
		for id, sentAt := range t.sent {
			if sentAt.Before(cutoff) {
				delete(t.sent, id)
			}
		}
	}

	return t
}

// IsDelivered reports whether the item has already been sent.
func (t *Tracker) IsDelivered(id string) bool {
	_, ok := t.sent[id]
	return ok
}

// RecordDelivered marks an item as sent and persists immediately, so a
// crash after a delivery never causes a re-send.
func (t *Tracker) RecordDelivered(id string) error {
	t.sent[id] = t.now().UTC()
	return t.save()
}

// SentCount returns the number of retained delivered ids.
func (t *Tracker) SentCount() int {
	return len(t.sent)
}

// LastIndex returns the sequential-mode cursor, or -1 when unset.
func (t *Tracker) LastIndex() int {
	if t.lastIndex == nil {
		return -1
	}
	return *t.lastIndex
}

// SetLastIndex advances the sequential-mode cursor and persists.
func (t *Tracker) SetLastIndex(i int) error {
	t.lastIndex = &i
	return t.save()
}

func (t *Tracker) save() error {
	return Save(t.path, deliveryFile{SentIDs: t.sent, LastIndex: t.lastIndex})
}
