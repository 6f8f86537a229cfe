package chart

import (
	"strings"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// Formatter produces tooltip content for an element.
type Formatter func(el model.VisualElement) string

// DefaultFormatter prints the label, the series if any, and the value.
func DefaultFormatter(el model.VisualElement) string {
	var b strings.Builder
	b.WriteString(el.Label)
	if el.Series != "" && el.Series != el.Label {
		b.WriteString(" · ")
		b.WriteString(el.Series)
	}
	b.WriteString(": ")
	if el.NoData {
		b.WriteString("no data")
	} else {
		b.WriteString(bind.FormatNumber(el.Value))
	}
	return b.String()
}

func legendKey(label string) string {
	return "legend:" + label
}
