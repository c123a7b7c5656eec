package checklist

import "math"

// Report summarizes completion progress for a step list.
type Report struct {
	Completed  int  `json:"completed"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	Complete   bool `json:"complete"`
}

// Progress derives a progress report from a step list. The divisor is
// floored to 1 so an empty list yields zero percent instead of dividing by
// zero; empty lists should not occur but the calculator must not panic on
// them.
func Progress(steps []Step) Report {
	completed := 0
	for _, s := range steps {
		if s.Completed {
			completed++
		}
	}
	total := len(steps)
	divisor := total
	if divisor < 1 {
		divisor = 1
	}
	return Report{
		Completed:  completed,
		Total:      total,
		Percentage: int(math.Round(float64(completed) / float64(divisor) * 100)),
		Complete:   total > 0 && completed == total,
	}
}
