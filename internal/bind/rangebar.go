package bind

import (
	"time"

	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// Range lays out one horizontal span per category, from the low field to the
// high field. When the low field holds dates the span axis is a time scale.
// An optional label channel colours spans by group and feeds the legend.
// Element values hold the span length in data units: high minus low, or whole
// and fractional days for dates.
func Range(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error) {
	catField := spec.Field(model.ChannelCategory)
	lowField := spec.Field(model.ChannelLow)
	highField := spec.Field(model.ChannelHigh)
	if catField == "" || lowField == "" || highField == "" {
		return Plan{}, errNoFields(spec.Kind, "category, low and high fields")
	}

	kept, _, warnings := categoryRows(rows, catField)
	temporal := isTemporal(kept, lowField)

	spans := make([]span, 0, len(kept))
	var nums []float64
	var times []time.Time
	for _, row := range kept {
		label, _ := row.Text(catField)
		sp := span{row: row, label: label}
		ok := true
		for _, f := range []string{lowField, highField} {
			var has bool
			if temporal {
				_, has = row.Time(f)
			} else {
				_, has = row.Number(f)
			}
			if !has {
				warnings = append(warnings, missingField(row, f))
				ok = false
			}
		}
		if !ok {
			continue
		}
		if temporal {
			sp.t0, _ = row.Time(lowField)
			sp.t1, _ = row.Time(highField)
			times = append(times, sp.t0, sp.t1)
		} else {
			sp.lo, _ = row.Number(lowField)
			sp.hi, _ = row.Number(highField)
			nums = append(nums, sp.lo, sp.hi)
		}
		spans = append(spans, sp)
	}

	labels := make([]string, 0, len(spans))
	for _, sp := range spans {
		labels = append(labels, sp.label)
	}
	band, err := scale.NewBand(labels, 0, area.Height, spec.Padding)
	if err != nil {
		return Plan{}, err
	}

	var xAxis model.Axis
	var pos func(sp span) (float64, float64)
	if temporal {
		start, end, ok := scale.TimeExtent(times)
		if !ok {
			start = time.Unix(0, 0).UTC()
			end = start.Add(24 * time.Hour)
		}
		ts := scale.NewTime(start, end, 0, area.Width)
		xAxis = timeAxis(model.AxisBottom, ts)
		pos = func(sp span) (float64, float64) { return ts.Map(sp.t0), ts.Map(sp.t1) }
	} else {
		lo, hi, ok := scale.NumberExtent(nums)
		if !ok || lo == hi {
			hi = lo + 1
		}
		ls := scale.NewLinear(lo, hi, 0, area.Width)
		xAxis = linearAxis(model.AxisBottom, ls)
		pos = func(sp span) (float64, float64) { return ls.Map(sp.lo), ls.Map(sp.hi) }
	}

	groupField := spec.Field(model.ChannelLabel)
	var colors *scale.Ordinal
	if groupField != "" {
		var groups []string
		for _, sp := range spans {
			if g, ok := sp.row.Text(groupField); ok {
				groups = append(groups, g)
			}
		}
		colors, err = scale.NewOrdinal(groups, palette(spec), scale.FallbackColor)
		if err != nil {
			return Plan{}, err
		}
	}

	plan := Plan{Colors: colors}
	for _, sp := range spans {
		y, ok := band.Position(sp.label)
		if !ok {
			continue
		}
		a, b := pos(sp)
		fill := palette(spec)[0]
		group := ""
		if colors != nil {
			group, _ = sp.row.Text(groupField)
			fill = colors.Color(group)
		}
		el := &model.VisualElement{
			Key:      sp.label,
			Label:    sp.label,
			Series:   group,
			Value:    sp.length(temporal),
			Geometry: spanRect(true, y, band.Bandwidth(), a, b),
			Fill:     fill,
			Datum:    sp.row,
		}
		if spec.Transition {
			from := model.RectGeometry(a, y, 0, band.Bandwidth())
			el.From = &from
		}
		plan.Elements = append(plan.Elements, el)
	}
	plan.Axes = []model.Axis{xAxis, bandAxis(model.AxisLeft, band)}
	plan.Warnings = warnings
	return plan, nil
}

func (sp span) length(temporal bool) float64 {
	if temporal {
		return sp.t1.Sub(sp.t0).Hours() / 24
	}
	return sp.hi - sp.lo
}

type span struct {
	row    model.Row
	label  string
	lo, hi float64
	t0, t1 time.Time
}

func isTemporal(rows []model.Row, field string) bool {
	for _, row := range rows {
		if v, ok := row.Get(field); ok {
			return v.Kind == model.ValueDate
		}
	}
	return false
}
