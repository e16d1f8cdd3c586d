// Package dedup filters out items already seen in previous runs.
package dedup

import "github.com/captaintwin/itnews-portal/internal/model"

// Filter returns the candidates whose id is not in the prior seen set,
// plus the ids the caller should add to it. The prior set is not modified.
// An empty or nil prior set passes everything through (first run).
func Filter(seen map[string]struct{}, candidates []model.Item) (fresh []model.Item, newIDs []string) {
	for _, item := range candidates {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		fresh = append(fresh, item)
		newIDs = append(newIDs, item.ID)
	}
	return fresh, newIDs
}
