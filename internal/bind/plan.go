package bind

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

const defaultTicks = 5

// Area is the inner drawing area of one render pass.
type Area struct {
	Width  float64
	Height float64
}

// Plan is what a builder produces for one render pass. Scales live only as
// long as the plan does.
type Plan struct {
	Elements []*model.VisualElement
	Axes     []model.Axis
	// Colors is the colour scale the legend is derived from; nil means no legend.
	Colors   *scale.Ordinal
	Warnings []model.Warning
}

// Builder turns rows into a plan.
type Builder func(rows []model.Row, spec model.ChartSpec, area Area) (Plan, error)

// ForKind returns the builder for a chart kind. Choropleth charts are built by
// their own package and are not handled here.
func ForKind(kind model.ChartKind) (Builder, bool) {
	switch kind {
	case model.KindGrouped:
		return Grouped, true
	case model.KindStacked:
		return Stacked, true
	case model.KindHorizontal:
		return Ranking, true
	case model.KindRange:
		return Range, true
	case model.KindPie:
		return Pie, true
	}
	return nil, false
}

// SeriesFields returns the value fields of a chart: the configured series, or
// the single value channel.
func SeriesFields(spec model.ChartSpec) []string {
	if len(spec.Series) > 0 {
		return append([]string(nil), spec.Series...)
	}
	if f := spec.Field(model.ChannelValue); f != "" {
		return []string{f}
	}
	return nil
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, "/", `\/`)

// SeriesKey joins a category and series into an element key. Slashes and
// backslashes inside either part are escaped so distinct pairs never collide.
func SeriesKey(category, series string) string {
	return keyEscaper.Replace(category) + "/" + keyEscaper.Replace(series)
}

func palette(spec model.ChartSpec) []string {
	if len(spec.Palette) > 0 {
		return spec.Palette
	}
	return scale.DefaultPalette
}

func missingField(row model.Row, field string) model.Warning {
	return model.Warning{
		Kind:    model.WarnMissingField,
		Row:     row.Index(),
		Field:   field,
		Message: "value required for positioning is missing",
	}
}

// categoryRows keeps the first row of each category and returns their labels.
// Later rows repeating a category are dropped before any totals or extents
// are computed from them.
func categoryRows(rows []model.Row, field string) ([]model.Row, []string, []model.Warning) {
	var warnings []model.Warning
	kept := make([]model.Row, 0, len(rows))
	labels := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		label, ok := row.Text(field)
		if !ok || label == "" {
			warnings = append(warnings, missingField(row, field))
			continue
		}
		if _, dup := seen[label]; dup {
			warnings = append(warnings, duplicateWarning(label, row.Index()))
			continue
		}
		seen[label] = struct{}{}
		kept = append(kept, row)
		labels = append(labels, label)
	}
	return kept, labels, warnings
}

// valueScale builds a linear scale that always includes zero. An empty extent
// falls back to [0,1].
func valueScale(vals []float64, r0, r1 float64) *scale.Linear {
	lo, hi := scale.ZeroExtent(vals)
	if lo == hi {
		hi = lo + 1
	}
	return scale.NewLinear(lo, hi, r0, r1)
}

func bandAxis(orient model.AxisOrient, b *scale.Band) model.Axis {
	axis := model.Axis{Orient: orient}
	for _, l := range b.Domain() {
		c, _ := b.Center(l)
		axis.Ticks = append(axis.Ticks, model.Tick{Pos: c, Label: l})
	}
	return axis
}

func linearAxis(orient model.AxisOrient, s *scale.Linear) model.Axis {
	axis := model.Axis{Orient: orient}
	for _, v := range s.Ticks(defaultTicks) {
		axis.Ticks = append(axis.Ticks, model.Tick{Pos: s.Map(v), Label: FormatNumber(v)})
	}
	return axis
}

func timeAxis(orient model.AxisOrient, s *scale.Time) model.Axis {
	axis := model.Axis{Orient: orient}
	for _, t := range s.Ticks(defaultTicks) {
		axis.Ticks = append(axis.Ticks, model.Tick{Pos: s.Map(t), Label: t.Format(time.DateOnly)})
	}
	return axis
}

// FormatNumber renders a value for ticks and tooltips.
func FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}

// spanRect returns the rectangle between two positions on one axis.
func spanRect(horizontal bool, cross, thickness, a, b float64) model.Geometry {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if horizontal {
		return model.RectGeometry(lo, cross, hi-lo, thickness)
	}
	return model.RectGeometry(cross, lo, thickness, hi-lo)
}

func errNoFields(kind model.ChartKind, what string) error {
	return fmt.Errorf("%w: %s chart needs %s", ErrMissingChannel, kind, what)
}
