// Package model defines shared data structures.
package model

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// ChartKind selects the rendering pipeline for a chart.
type ChartKind string

// Supported chart kinds.
const (
	KindGrouped    ChartKind = "grouped"
	KindStacked    ChartKind = "stacked"
	KindHorizontal ChartKind = "horizontal"
	KindPie        ChartKind = "pie"
	KindRange      ChartKind = "range"
	KindChoropleth ChartKind = "choropleth"
)

// ChartKinds lists every supported kind in display order.
var ChartKinds = []ChartKind{KindGrouped, KindStacked, KindHorizontal, KindPie, KindRange, KindChoropleth}

// MarginUnit tells how margin values are interpreted.
type MarginUnit string

// Margin units. Fraction margins are relative to the outer container.
const (
	UnitFraction MarginUnit = "fraction"
	UnitPixels   MarginUnit = "pixels"
)

// Margins describes the space around the drawing area.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
	Unit   MarginUnit
}

// Channel is a visual channel a data field can be mapped to.
type Channel string

// Channels understood by the chart pipelines.
const (
	ChannelCategory Channel = "category"
	ChannelValue    Channel = "value"
	ChannelLow      Channel = "low"
	ChannelHigh     Channel = "high"
	ChannelRegion   Channel = "region"
	ChannelLabel    Channel = "label"
)

// FieldMap maps channels to dataset field names.
type FieldMap map[Channel]string

// Threshold is one choropleth colour bucket.
type Threshold struct {
	LowerBound float64
	Color      string
}

// ChartSpec is the caller configuration for one chart instance.
type ChartSpec struct {
	ID           string
	Kind         ChartKind
	AspectRatio  float64
	Margins      Margins
	Fields       FieldMap
	Series       []string
	Palette      []string
	Padding      float64
	InnerPadding float64
	Thresholds   []Threshold
	NoDataFill   string
	Transition   bool
}

// Field returns the dataset field bound to a channel.
func (s ChartSpec) Field(ch Channel) string {
	return s.Fields[ch]
}

// Clone returns a deep copy so the caller cannot mutate a constructed chart.
func (s ChartSpec) Clone() ChartSpec {
	out := s
	if s.Fields != nil {
		out.Fields = make(FieldMap, len(s.Fields))
		for k, v := range s.Fields {
			out.Fields[k] = v
		}
	}
	out.Series = append([]string(nil), s.Series...)
	out.Palette = append([]string(nil), s.Palette...)
	out.Thresholds = append([]Threshold(nil), s.Thresholds...)
	return out
}

// Size is a container size in pixels. A zero Height means "derive from width".
type Size struct {
	Width  float64
	Height float64
}

// Point is a position in pixels.
type Point struct {
	X float64
	Y float64
}

// ValueKind is the type of a coerced field value.
type ValueKind int

// Value kinds.
const (
	ValueString ValueKind = iota
	ValueNumber
	ValueDate
)

// Value is a typed field value.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Time time.Time
}

// NumberValue wraps a number.
func NumberValue(v float64) Value { return Value{Kind: ValueNumber, Num: v} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// DateValue wraps a date.
func DateValue(t time.Time) Value { return Value{Kind: ValueDate, Time: t} }

// Text renders the value as text.
func (v Value) Text() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueDate:
		return v.Time.Format("2006-01-02")
	default:
		return v.Str
	}
}

// Row is one immutable dataset record.
type Row struct {
	index  int
	fields map[string]Value
}

// NewRow builds a row from its position in the source and its fields.
func NewRow(index int, fields map[string]Value) Row {
	copied := make(map[string]Value, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Row{index: index, fields: copied}
}

// Index returns the position of the row in its source.
func (r Row) Index() int {
	return r.index
}

// Get returns a field value.
func (r Row) Get(field string) (Value, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has reports whether the field is present.
func (r Row) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Number returns a numeric field.
func (r Row) Number(field string) (float64, bool) {
	v, ok := r.fields[field]
	if !ok || v.Kind != ValueNumber {
		return 0, false
	}
	return v.Num, true
}

// Time returns a date field.
func (r Row) Time(field string) (time.Time, bool) {
	v, ok := r.fields[field]
	if !ok || v.Kind != ValueDate {
		return time.Time{}, false
	}
	return v.Time, true
}

// Text returns any present field rendered as text.
func (r Row) Text(field string) (string, bool) {
	v, ok := r.fields[field]
	if !ok {
		return "", false
	}
	return v.Text(), true
}

// Fields returns the field names in sorted order.
func (r Row) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for k := range r.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Dataset is an ordered sequence of rows.
type Dataset struct {
	Name string
	Rows []Row
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Rows)
}

// Region is one geographic boundary in a topology.
type Region struct {
	ID    string
	Name  string
	Shape orb.MultiPolygon
}

// Topology is a set of regions keyed by identifier.
type Topology struct {
	Regions []Region
}

// VisualElement is the rendered form of one row or one row segment.
type VisualElement struct {
	Key      string
	Label    string
	Series   string
	Value    float64
	Geometry Geometry
	From     *Geometry
	Fill     string
	Opacity  float64
	Datum    Row
	// NoData marks elements drawn without a bound row, such as map regions
	// absent from the dataset.
	NoData bool
}

// TooltipState is the shared overlay state of one chart.
type TooltipState struct {
	Visible bool
	Key     string
	Content string
	Anchor  Point
}

// LegendEntry is one legend swatch.
type LegendEntry struct {
	Label  string
	Color  string
	Active bool
}

// AxisOrient places an axis relative to the drawing area.
type AxisOrient string

// Axis orientations.
const (
	AxisBottom AxisOrient = "bottom"
	AxisLeft   AxisOrient = "left"
)

// Tick is an axis tick at an inner-area pixel position.
type Tick struct {
	Pos   float64
	Label string
}

// Axis is a rendered axis.
type Axis struct {
	Orient AxisOrient
	Ticks  []Tick
}

// Frame is everything a surface needs to draw one render pass.
type Frame struct {
	ChartID     string
	Kind        ChartKind
	Width       float64
	Height      float64
	InnerWidth  float64
	InnerHeight float64
	Margins     Margins
	Elements    []VisualElement
	Axes        []Axis
	Legend      []LegendEntry
	Tooltip     TooltipState
	Transition  bool
}

// WarningKind classifies recoverable data problems.
type WarningKind string

// Warning kinds.
const (
	WarnMissingField   WarningKind = "missing-field"
	WarnNotNumeric     WarningKind = "not-numeric"
	WarnBadDate        WarningKind = "bad-date"
	WarnUnmappedRegion WarningKind = "unmapped-region"
	WarnDuplicateKey   WarningKind = "duplicate-key"
	WarnEmptyKey       WarningKind = "empty-key"
	WarnNonPositive    WarningKind = "non-positive"
)

// Warning is a recoverable per-row or per-region problem.
type Warning struct {
	Kind    WarningKind
	Row     int
	Key     string
	Field   string
	Message string
}

func (w Warning) String() string {
	loc := ""
	switch {
	case w.Key != "":
		loc = fmt.Sprintf(" key=%q", w.Key)
	case w.Row >= 0:
		loc = fmt.Sprintf(" row=%d", w.Row)
	}
	field := ""
	if w.Field != "" {
		field = fmt.Sprintf(" field=%q", w.Field)
	}
	return fmt.Sprintf("%s%s%s: %s", w.Kind, loc, field, w.Message)
}
