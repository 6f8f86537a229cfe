package scale

import (
	"math"
	"time"
)

// NumberExtent returns the min and max of vals, ignoring NaN. ok is false
// when no finite value exists.
func NumberExtent(vals []float64) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// ZeroExtent widens [min,max] to include zero. Bar lengths are measured from
// zero, so value axes for bars always start there.
func ZeroExtent(vals []float64) (float64, float64) {
	min, max, ok := NumberExtent(vals)
	if !ok {
		return 0, 0
	}
	return math.Min(0, min), math.Max(0, max)
}

// TimeExtent returns the earliest and latest non-zero time.
func TimeExtent(vals []time.Time) (start, end time.Time, ok bool) {
	for _, t := range vals {
		if t.IsZero() {
			continue
		}
		if !ok || t.Before(start) {
			start = t
		}
		if !ok || t.After(end) {
			end = t
		}
		ok = true
	}
	return start, end, ok
}

// DistinctLabels returns labels in first-seen order with duplicates removed.
func DistinctLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
