package bind

import (
	"sort"

	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// SortStable orders rows by value, largest first. Rows with equal values keep
// their dataset order.
func SortStable(rows []model.Row, value func(model.Row) float64) []model.Row {
	out := append([]model.Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return value(out[i]) > value(out[j])
	})
	return out
}

// Ranking lays out horizontal bars sorted by value, one per category.
func Ranking(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error) {
	catField := spec.Field(model.ChannelCategory)
	valField := spec.Field(model.ChannelValue)
	if catField == "" || valField == "" {
		return Plan{}, errNoFields(spec.Kind, "category and value fields")
	}

	kept, _, warnings := categoryRows(rows, catField)
	valued := make([]model.Row, 0, len(kept))
	var vals []float64
	for _, row := range kept {
		v, ok := row.Number(valField)
		if !ok {
			warnings = append(warnings, missingField(row, valField))
			continue
		}
		valued = append(valued, row)
		vals = append(vals, v)
	}
	sorted := SortStable(valued, func(r model.Row) float64 {
		v, _ := r.Number(valField)
		return v
	})

	labels := make([]string, 0, len(sorted))
	for _, row := range sorted {
		l, _ := row.Text(catField)
		labels = append(labels, l)
	}
	band, err := scale.NewBand(labels, 0, area.Height, spec.Padding)
	if err != nil {
		return Plan{}, err
	}
	x := valueScale(vals, 0, area.Width)
	base := x.Map(0)
	fill := palette(spec)[0]

	var plan Plan
	for i, row := range sorted {
		y, ok := band.Position(labels[i])
		if !ok {
			continue
		}
		v, _ := row.Number(valField)
		el := &model.VisualElement{
			Key:      labels[i],
			Label:    labels[i],
			Value:    v,
			Geometry: spanRect(true, y, band.Bandwidth(), base, x.Map(v)),
			Fill:     fill,
			Datum:    row,
		}
		if spec.Transition {
			from := model.RectGeometry(base, y, 0, band.Bandwidth())
			el.From = &from
		}
		plan.Elements = append(plan.Elements, el)
	}
	plan.Axes = []model.Axis{linearAxis(model.AxisBottom, x), bandAxis(model.AxisLeft, band)}
	plan.Warnings = warnings
	return plan, nil
}
