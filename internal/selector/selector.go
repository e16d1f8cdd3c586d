// Package selector ranks candidate items and picks the publication set.
package selector

import (
	"sort"

	"github.com/captaintwin/itnews-portal/internal/model"
)

// Select partitions candidates by source, ranks each partition by extracted
// text length, and keeps the topN longest per source. Items whose body
// extraction failed (char_count 0) are dropped. Partitions are concatenated
// in first-seen-source order, so identical input always yields an identical
// selection.
func Select(candidates []model.Item, topN int) model.Selection {
	var order []string
	bySource := make(map[string][]model.Item)

	for _, item := range candidates {
		if item.CharCount == 0 {
			continue
		}
		if _, ok := bySource[item.Source]; !ok {
			order = append(order, item.Source)
		}
		bySource[item.Source] = append(bySource[item.Source], item)
	}

	var selection model.Selection
	for _, source := range order {
		items := bySource[source]
		// Stable keeps input order among equal lengths.
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CharCount > items[j].CharCount
		})
		if len(items) > topN {
			items = items[:topN]
		}
		selection = append(selection, items...)
	}

	return selection
}
