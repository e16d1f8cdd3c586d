// Package schedule maps a selection onto evenly spaced publication times
// inside a daily window.
package schedule

import (
	"time"

	"github.com/captaintwin/itnews-portal/internal/model"
)

// minSpan guards the interval computation when a very late run leaves
// (almost) no window: spacing falls back to a one-minute span instead of a
// non-positive interval.
const minSpan = time.Minute

// Window configures the daily publication window.
type Window struct {
	StartHour    int
	EndHour      int
	Grace        time.Duration
	PerSourceCap int
	DailyCap     int
}

// Build assigns one publication time per selected item, evenly spaced across
// [window start, window end). A run that starts after the window opened is
// shifted forward by the grace period; a run past the window's close rolls
// to the next day. An empty selection yields an empty schedule.
func Build(selection model.Selection, w Window, now time.Time) []model.ScheduleEntry {
	capped := applyCaps(selection, w.PerSourceCap, w.DailyCap)
	if len(capped) == 0 {
		return nil
	}

	day := now
	windowEnd := at(day, w.EndHour)
	if !now.Add(w.Grace).Before(windowEnd) {
		day = day.AddDate(0, 0, 1)
		windowEnd = at(day, w.EndHour)
	}

	effectiveStart := at(day, w.StartHour)
	if shifted := now.Add(w.Grace); shifted.After(effectiveStart) {
		effectiveStart = shifted
	}

	span := windowEnd.Sub(effectiveStart)
	if span < minSpan {
		span = minSpan
	}
	interval := span / time.Duration(len(capped))

	entries := make([]model.ScheduleEntry, len(capped))
	for i, item := range capped {
		entries[i] = model.ScheduleEntry{
			ItemID:        item.ID,
			Source:        item.Source,
			Title:         item.Title,
			ScheduledTime: effectiveStart.Add(time.Duration(i) * interval),
		}
	}
	return entries
}

// applyCaps re-applies the per-source cap and truncates to the daily cap,
// preserving selection order. Selections loaded from disk may predate the
// current cap configuration.
func applyCaps(selection model.Selection, perSource, daily int) model.Selection {
	var capped model.Selection
	perSourceCount := make(map[string]int)

	for _, item := range selection {
		if daily > 0 && len(capped) >= daily {
			break
		}
		if perSource > 0 && perSourceCount[item.Source] >= perSource {
			continue
		}
		perSourceCount[item.Source]++
		capped = append(capped, item)
	}
	return capped
}

func at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}
