// Package legend derives legend entries and the cross-highlight projection.
package legend

import (
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// DimOpacity is applied to elements that do not match the hovered colour.
const DimOpacity = 0.2

// Build returns one entry per domain value of the colour scale, in domain order.
func Build(colors *scale.Ordinal) []model.LegendEntry {
	if colors == nil {
		return nil
	}
	domain := colors.Domain()
	entries := make([]model.LegendEntry, 0, len(domain))
	for _, v := range domain {
		entries = append(entries, model.LegendEntry{Label: v, Color: colors.Color(v)})
	}
	return entries
}

// Activate returns a copy of entries with only label active. An empty label
// deactivates all entries.
func Activate(entries []model.LegendEntry, label string) []model.LegendEntry {
	out := make([]model.LegendEntry, len(entries))
	for i, e := range entries {
		e.Active = label != "" && e.Label == label
		out[i] = e
	}
	return out
}

// ActiveColor returns the colour of the active entry.
func ActiveColor(entries []model.LegendEntry) string {
	for _, e := range entries {
		if e.Active {
			return e.Color
		}
	}
	return ""
}

// Find returns the entry for label.
func Find(entries []model.LegendEntry, label string) (model.LegendEntry, bool) {
	for _, e := range entries {
		if e.Label == label {
			return e, true
		}
	}
	return model.LegendEntry{}, false
}

// Highlight sets every element's opacity from the hovered colour alone.
// Matching fills get full opacity, others DimOpacity; an empty colour resets
// everything to full opacity. Prior opacity is never consulted.
func Highlight(elements []*model.VisualElement, hoveredColor string) {
	for _, el := range elements {
		el.Opacity = Opacity(el.Fill, hoveredColor)
	}
}

// Opacity is the projection for a single fill.
func Opacity(fill, hoveredColor string) float64 {
	if hoveredColor == "" || fill == hoveredColor {
		return 1
	}
	return DimOpacity
}
