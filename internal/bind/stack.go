package bind

import "github.com/verte-zerg/chartpipe/internal/model"

// Segment is one series slice of a stacked row.
type Segment struct {
	Series string
	Value  float64
	Lower  float64
	Upper  float64
}

// Stack accumulates the row's series values in the given order. The Upper of
// the last segment equals the sum of every present series value. Missing
// series are skipped with a warning and do not contribute to the sum.
func Stack(row model.Row, series []string) ([]Segment, []model.Warning) {
	var warnings []model.Warning
	segs := make([]Segment, 0, len(series))
	cum := 0.0
	for _, s := range series {
		v, ok := row.Number(s)
		if !ok {
			warnings = append(warnings, missingField(row, s))
			continue
		}
		segs = append(segs, Segment{Series: s, Value: v, Lower: cum, Upper: cum + v})
		cum += v
	}
	return segs, warnings
}

// Total returns the cumulative value of a stack.
func Total(segs []Segment) float64 {
	if len(segs) == 0 {
		return 0
	}
	return segs[len(segs)-1].Upper
}
