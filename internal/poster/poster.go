// Package poster executes the publication plan with at-most-once delivery.
package poster

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/captaintwin/itnews-portal/internal/model"
	"github.com/captaintwin/itnews-portal/internal/state"
)

// Sender is the outbound delivery channel for a single item.
type Sender interface {
	SendPost(item model.Item) error
}

// Poster walks the schedule and delivers every due, not-yet-sent item.
// Deliveries are strictly sequential; each success is recorded in the
// delivery state before the next attempt, so a crash never re-sends.
type Poster struct {
	selection model.Selection
	schedule  []model.ScheduleEntry
	tracker   *state.Tracker
	sender    Sender
	log       *slog.Logger

	tick  time.Duration
	pause time.Duration
	now   func() time.Time
}

// New creates a Poster over a selection, its schedule and the delivery state.
func New(selection model.Selection, entries []model.ScheduleEntry, tracker *state.Tracker, sender Sender, log *slog.Logger) *Poster {
	// Due entries are attempted in scheduled order regardless of how the
	// snapshot was ordered on disk.
	sorted := make([]model.ScheduleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ScheduledTime.Before(sorted[j].ScheduledTime)
	})

	return &Poster{
		selection: selection,
		schedule:  sorted,
		tracker:   tracker,
		sender:    sender,
		log:       log,
		tick:      time.Minute,
		pause:     2 * time.Second,
		now:       time.Now,
	}
}

// SetTickInterval overrides the default 1-minute poll interval.
func (p *Poster) SetTickInterval(d time.Duration) { p.tick = d }

// SetPause overrides the pause between back-to-back instant-mode sends.
func (p *Poster) SetPause(d time.Duration) { p.pause = d }

// SetNow overrides the clock (useful for testing).
func (p *Poster) SetNow(now func() time.Time) { p.now = now }

// Run polls the schedule until every entry is delivered or ctx is cancelled.
// Cancellation is observed between ticks, never mid-delivery.
func (p *Poster) Run(ctx context.Context) {
	for {
		pending := p.deliverDue(ctx)
		if pending == 0 {
			p.log.Info("all scheduled items delivered")
			return
		}

		select {
		case <-ctx.Done():
			p.log.Info("poster stopped", "pending", pending)
			return
		case <-time.After(p.tick):
		}
	}
}

// deliverDue attempts every due, unsent entry once and returns how many
// entries are still pending. A failed delivery stays pending and is retried
// on the next tick.
func (p *Poster) deliverDue(ctx context.Context) int {
	byID := p.selection.ByID()
	now := p.now()
	pending := 0
	halted := false

	for _, entry := range p.schedule {
		if p.tracker.IsDelivered(entry.ItemID) {
			continue
		}
		if halted || ctx.Err() != nil || now.Before(entry.ScheduledTime) {
			pending++
			continue
		}

		item, ok := byID[entry.ItemID]
		if !ok {
			p.log.Warn("scheduled item missing from selection, skipping", "id", entry.ItemID)
			continue
		}

		if err := p.sender.SendPost(item); err != nil {
			p.log.Error("deliver item", "id", item.ID, "title", item.Title, "error", err)
			pending++
			continue
		}
		p.log.Info("published", "id", item.ID, "title", item.Title)

		if err := p.tracker.RecordDelivered(item.ID); err != nil {
			// A send without a durable record could repeat after a crash.
			// Halt further sends this cycle but keep counting, so the
			// caller never mistakes an aborted cycle for a finished one.
			p.log.Error("record delivery", "id", item.ID, "error", err)
			pending++
			halted = true
		}
	}

	return pending
}

// Instant delivers every not-yet-sent selection item back to back with a
// short pause between sends. It shares the delivery-state gate with the
// windowed mode, so the two can never double-send.
func (p *Poster) Instant(ctx context.Context) {
	for i, item := range p.selection {
		if p.tracker.IsDelivered(item.ID) {
			continue
		}
		if ctx.Err() != nil {
			p.log.Info("instant posting stopped")
			return
		}

		if err := p.sender.SendPost(item); err != nil {
			p.log.Error("deliver item", "id", item.ID, "title", item.Title, "error", err)
			continue
		}
		p.log.Info("published", "id", item.ID, "title", item.Title)

		if err := p.tracker.RecordDelivered(item.ID); err != nil {
			p.log.Error("record delivery", "id", item.ID, "error", err)
			return
		}
		if err := p.tracker.SetLastIndex(i); err != nil {
			p.log.Warn("record cursor", "index", i, "error", err)
		}

		if !p.sleep(ctx, p.pause) {
			return
		}
	}
}

// Half delivers the first half of the selection before cutoffHour and the
// second half after it, spacing sends evenly across span. The same
// delivery-state gate applies.
func (p *Poster) Half(ctx context.Context, cutoffHour int, span time.Duration) {
	half := len(p.selection) / 2
	subset := p.selection[:half]
	if p.now().Hour() >= cutoffHour {
		subset = p.selection[half:]
	}
	if len(subset) == 0 {
		p.log.Warn("no items in this half")
		return
	}

	gap := span / time.Duration(len(subset))
	p.log.Info("posting half batch", "count", len(subset), "gap", gap)

	for _, item := range subset {
		if p.tracker.IsDelivered(item.ID) {
			continue
		}
		if ctx.Err() != nil {
			p.log.Info("half posting stopped")
			return
		}

		if err := p.sender.SendPost(item); err != nil {
			p.log.Error("deliver item", "id", item.ID, "title", item.Title, "error", err)
			continue
		}
		p.log.Info("published", "id", item.ID, "title", item.Title)

		if err := p.tracker.RecordDelivered(item.ID); err != nil {
			p.log.Error("record delivery", "id", item.ID, "error", err)
			return
		}

		if !p.sleep(ctx, gap) {
			return
		}
	}
}

// sleep waits for d or until cancellation; it reports false when cancelled.
func (p *Poster) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
