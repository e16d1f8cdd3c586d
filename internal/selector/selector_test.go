package selector

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/captaintwin/itnews-portal/internal/model"
)

func item(source string, n, chars int) model.Item {
	return model.Item{
		ID:        fmt.Sprintf("%s-%d", source, n),
		Title:     fmt.Sprintf("%s article %d", source, n),
		Source:    source,
		CharCount: chars,
	}
}

func TestSelectTopPerSource(t *testing.T) {
	// Three sources with 5, 4 and 6 candidates each.
	var candidates []model.Item
	for n, chars := range []int{900, 4200, 100, 3800, 2500} {
		candidates = append(candidates, item("alpha", n, chars))
	}
	for n, chars := range []int{700, 800, 600, 500} {
		candidates = append(candidates, item("beta", n, chars))
	}
	for n, chars := range []int{50, 60, 9000, 8000, 7000, 40} {
		candidates = append(candidates, item("gamma", n, chars))
	}

	got := Select(candidates, 3)

	want := []string{
		"alpha-1", "alpha-3", "alpha-4",
		"beta-1", "beta-0", "beta-2",
		"gamma-2", "gamma-3", "gamma-4",
	}
	if diff := cmp.Diff(want, got.IDs()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		candidates []model.Item
		topN       int
		wantIDs    []string
	}{
		{
			name: "zero char count items are dropped",
			candidates: []model.Item{
				item("a", 0, 0),
				item("a", 1, 500),
				item("a", 2, 0),
			},
			topN:    3,
			wantIDs: []string{"a-1"},
		},
		{
			name: "source with only failed extractions contributes nothing",
			candidates: []model.Item{
				item("a", 0, 0),
				item("b", 0, 300),
			},
			topN:    3,
			wantIDs: []string{"b-0"},
		},
		{
			name: "ties keep input order",
			candidates: []model.Item{
				item("a", 0, 500),
				item("a", 1, 500),
				item("a", 2, 500),
			},
			topN:    2,
			wantIDs: []string{"a-0", "a-1"},
		},
		{
			name: "sources concatenate in first-seen order",
			candidates: []model.Item{
				item("b", 0, 100),
				item("a", 0, 9000),
				item("b", 1, 200),
			},
			topN:    3,
			wantIDs: []string{"b-0", "b-1", "a-0"},
		},
		{
			name:       "empty input yields empty selection",
			candidates: nil,
			topN:       3,
			wantIDs:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.candidates, tt.topN)

			var gotIDs []string
			for _, it := range got {
				gotIDs = append(gotIDs, it.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, gotIDs); diff != "" {
				t.Errorf("selection mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectDeterministic(t *testing.T) {
	candidates := []model.Item{
		item("a", 0, 500), item("b", 0, 500), item("a", 1, 500),
		item("c", 0, 700), item("b", 1, 900),
	}

	first := Select(candidates, 2)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Select(candidates, 2)); diff != "" {
			t.Fatalf("selection differs between runs (-first +later):\n%s", diff)
		}
	}
}
