package checklist

import "testing"

func TestProgress(t *testing.T) {
	cases := []struct {
		name       string
		steps      []Step
		completed  int
		total      int
		percentage int
		complete   bool
	}{
		{name: "empty", steps: nil, percentage: 0},
		{
			name:  "none done",
			steps: []Step{{}, {}, {}},
			total: 3,
		},
		{
			name:       "partial rounds to nearest",
			steps:      []Step{{Completed: true}, {}, {}},
			completed:  1,
			total:      3,
			percentage: 33,
		},
		{
			name:       "two thirds",
			steps:      []Step{{Completed: true}, {Completed: true}, {}},
			completed:  2,
			total:      3,
			percentage: 67,
		},
		{
			name:       "all done",
			steps:      []Step{{Completed: true}, {Completed: true}},
			completed:  2,
			total:      2,
			percentage: 100,
			complete:   true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Progress(tc.steps)
			if got.Completed != tc.completed || got.Total != tc.total {
				t.Fatalf("counts: got %d/%d, want %d/%d", got.Completed, got.Total, tc.completed, tc.total)
			}
			if got.Percentage != tc.percentage {
				t.Fatalf("percentage: got %d, want %d", got.Percentage, tc.percentage)
			}
			if got.Complete != tc.complete {
				t.Fatalf("complete: got %v, want %v", got.Complete, tc.complete)
			}
		})
	}
}
