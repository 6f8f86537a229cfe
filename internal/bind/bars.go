package bind

import (
	"errors"

	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// ErrMissingChannel reports a chart spec without a required field mapping.
var ErrMissingChannel = errors.New("missing channel mapping")

// Grouped lays out one bar per (category, series) pair. Categories sit on the
// outer band and series on an inner band inside each category.
func Grouped(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error) {
	catField := spec.Field(model.ChannelCategory)
	series := SeriesFields(spec)
	if catField == "" || len(series) == 0 {
		return Plan{}, errNoFields(spec.Kind, "category and value or series fields")
	}

	kept, labels, warnings := categoryRows(rows, catField)
	outer, err := scale.NewBand(labels, 0, area.Width, spec.Padding)
	if err != nil {
		return Plan{}, err
	}
	inner, err := scale.NewBand(series, 0, outer.Bandwidth(), spec.InnerPadding)
	if err != nil {
		return Plan{}, err
	}
	colors, err := scale.NewOrdinal(series, palette(spec), scale.FallbackColor)
	if err != nil {
		return Plan{}, err
	}

	var vals []float64
	for _, row := range kept {
		for _, s := range series {
			if v, ok := row.Number(s); ok {
				vals = append(vals, v)
			}
		}
	}
	y := valueScale(vals, area.Height, 0)
	base := y.Map(0)

	plan := Plan{Colors: colors}
	for i, row := range kept {
		cat := labels[i]
		x0, ok := outer.Position(cat)
		if !ok {
			continue
		}
		for _, s := range series {
			v, ok := row.Number(s)
			if !ok {
				warnings = append(warnings, missingField(row, s))
				continue
			}
			dx, _ := inner.Position(s)
			el := &model.VisualElement{
				Key:      SeriesKey(cat, s),
				Label:    cat,
				Series:   s,
				Value:    v,
				Geometry: spanRect(false, x0+dx, inner.Bandwidth(), base, y.Map(v)),
				Fill:     colors.Color(s),
				Datum:    row,
			}
			if spec.Transition {
				from := model.RectGeometry(x0+dx, base, inner.Bandwidth(), 0)
				el.From = &from
			}
			plan.Elements = append(plan.Elements, el)
		}
	}
	plan.Axes = []model.Axis{bandAxis(model.AxisBottom, outer), linearAxis(model.AxisLeft, y)}
	plan.Warnings = warnings
	return plan, nil
}

// Stacked lays out series segments on top of each other within each
// category, accumulated in the configured series order.
func Stacked(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error) {
	catField := spec.Field(model.ChannelCategory)
	series := SeriesFields(spec)
	if catField == "" || len(series) == 0 {
		return Plan{}, errNoFields(spec.Kind, "category and series fields")
	}

	kept, labels, warnings := categoryRows(rows, catField)
	band, err := scale.NewBand(labels, 0, area.Width, spec.Padding)
	if err != nil {
		return Plan{}, err
	}
	colors, err := scale.NewOrdinal(series, palette(spec), scale.FallbackColor)
	if err != nil {
		return Plan{}, err
	}

	stacks := make([][]Segment, len(kept))
	var bounds []float64
	for i, row := range kept {
		segs, ws := Stack(row, series)
		warnings = append(warnings, ws...)
		stacks[i] = segs
		for _, sg := range segs {
			bounds = append(bounds, sg.Lower, sg.Upper)
		}
	}
	y := valueScale(bounds, area.Height, 0)
	base := y.Map(0)

	plan := Plan{Colors: colors}
	for i, row := range kept {
		cat := labels[i]
		x, ok := band.Position(cat)
		if !ok {
			continue
		}
		for _, sg := range stacks[i] {
			el := &model.VisualElement{
				Key:      SeriesKey(cat, sg.Series),
				Label:    cat,
				Series:   sg.Series,
				Value:    sg.Value,
				Geometry: spanRect(false, x, band.Bandwidth(), y.Map(sg.Lower), y.Map(sg.Upper)),
				Fill:     colors.Color(sg.Series),
				Datum:    row,
			}
			if spec.Transition {
				from := model.RectGeometry(x, base, band.Bandwidth(), 0)
				el.From = &from
			}
			plan.Elements = append(plan.Elements, el)
		}
	}
	plan.Axes = []model.Axis{bandAxis(model.AxisBottom, band), linearAxis(model.AxisLeft, y)}
	plan.Warnings = warnings
	return plan, nil
}
