package bind

import (
	"math"

	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// Pie lays out one arc per category in dataset order, with sweep
// proportional to value. Non-positive values are dropped.
func Pie(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error) {
	catField := spec.Field(model.ChannelCategory)
	valField := spec.Field(model.ChannelValue)
	if catField == "" || valField == "" {
		return Plan{}, errNoFields(spec.Kind, "category and value fields")
	}

	kept, _, warnings := categoryRows(rows, catField)
	type slice struct {
		row   model.Row
		label string
		value float64
	}
	slices := make([]slice, 0, len(kept))
	total := 0.0
	for _, row := range kept {
		v, ok := row.Number(valField)
		if !ok {
			warnings = append(warnings, missingField(row, valField))
			continue
		}
		if v <= 0 {
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnNonPositive,
				Row:     row.Index(),
				Field:   valField,
				Message: "pie slices need a positive value",
			})
			continue
		}
		label, _ := row.Text(catField)
		slices = append(slices, slice{row: row, label: label, value: v})
		total += v
	}

	labels := make([]string, 0, len(slices))
	for _, s := range slices {
		labels = append(labels, s.label)
	}
	colors, err := scale.NewOrdinal(labels, palette(spec), scale.FallbackColor)
	if err != nil {
		return Plan{}, err
	}

	cx, cy := area.Width/2, area.Height/2
	radius := math.Min(area.Width, area.Height) / 2
	plan := Plan{Colors: colors}
	cum := 0.0
	for _, s := range slices {
		start := 2 * math.Pi * cum / total
		cum += s.value
		end := 2 * math.Pi * cum / total
		arc := model.Arc{CX: cx, CY: cy, Radius: radius, Start: start, End: end}
		el := &model.VisualElement{
			Key:      s.label,
			Label:    s.label,
			Value:    s.value,
			Geometry: model.ArcGeometry(arc),
			Fill:     colors.Color(s.label),
			Datum:    s.row,
		}
		if spec.Transition {
			collapsed := arc
			collapsed.End = collapsed.Start
			from := model.ArcGeometry(collapsed)
			el.From = &from
		}
		plan.Elements = append(plan.Elements, el)
	}
	plan.Warnings = warnings
	return plan, nil
}
