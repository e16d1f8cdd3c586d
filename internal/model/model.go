// Package model defines the domain types used across the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Item is a single unit of content collected from a feed.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	ImagePath   string    `json:"image_path,omitempty"`
	CharCount   int       `json:"char_count"`
}

// ItemID derives a stable fixed-width fingerprint from the item's URL.
// Two items with the same URL always produce the same id.
func ItemID(url string) string {
	h := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", h[:5])
}

// Selection is the ordered list of items chosen for publication in one run.
type Selection []Item

// IDs returns the item ids in selection order.
func (s Selection) IDs() []string {
	ids := make([]string, len(s))
	for i, it := range s {
		ids[i] = it.ID
	}
	return ids
}

// ByID indexes the selection by item id.
func (s Selection) ByID() map[string]Item {
	m := make(map[string]Item, len(s))
	for _, it := range s {
		m[it.ID] = it
	}
	return m
}

// ScheduleEntry assigns a publication time to a selected item.
type ScheduleEntry struct {
	ItemID        string    `json:"item_id"`
	Source        string    `json:"source"`
	Title         string    `json:"title"`
	ScheduledTime time.Time `json:"scheduled_time"`
}
