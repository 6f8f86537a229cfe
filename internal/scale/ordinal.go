package scale

// Ordinal assigns colours to categories by position. The palette cycles when
// there are more categories than colours.
type Ordinal struct {
	domain   []string
	index    map[string]int
	colors   []string
	fallback string
}

// NewOrdinal builds an ordinal colour scale.
func NewOrdinal(domain, colors []string, fallback string) (*Ordinal, error) {
	if len(colors) == 0 {
		return nil, ErrEmptyPalette
	}
	o := &Ordinal{
		index:    make(map[string]int, len(domain)),
		colors:   append([]string(nil), colors...),
		fallback: fallback,
	}
	for _, v := range domain {
		if _, ok := o.index[v]; ok {
			continue
		}
		o.index[v] = len(o.domain)
		o.domain = append(o.domain, v)
	}
	return o, nil
}

// Kind implements Scale.
func (o *Ordinal) Kind() Kind { return KindOrdinal }

// Color returns the colour for v, or the fallback for values outside the domain.
func (o *Ordinal) Color(v string) string {
	i, ok := o.index[v]
	if !ok {
		return o.fallback
	}
	return o.colors[i%len(o.colors)]
}

// Domain returns the categories in order.
func (o *Ordinal) Domain() []string { return append([]string(nil), o.domain...) }

// DefaultPalette is used when a chart configures no colours.
var DefaultPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// FallbackColor fills values outside an ordinal domain.
const FallbackColor = "#c0c0c0"
