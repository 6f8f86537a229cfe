// Package chart ties the pipeline together for one chart instance.
//
// A Chart is constructed from a ChartSpec, loads its data once per Load call,
// and re-renders on resize. Pointer and legend events mutate the tooltip and
// highlight state. All methods are safe for concurrent use; renders and
// events are serialised per chart.
package chart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/choropleth"
	"github.com/verte-zerg/chartpipe/internal/layout"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/metrics"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
	"github.com/verte-zerg/chartpipe/internal/tooltip"
)

// Errors returned by the chart lifecycle.
var (
	ErrInvalidSpec = errors.New("invalid chart spec")
	ErrDisposed    = errors.New("chart disposed")
	ErrStale       = errors.New("load superseded by a newer load")
)

// Data is the result of one load: the rows and, for maps, the topology.
type Data struct {
	Dataset  model.Dataset
	Topology *model.Topology
	Warnings []model.Warning
}

// Option configures a chart.
type Option func(*Chart)

// WithLogger sets the chart logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Chart) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records renders and loads.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chart) { c.metrics = m }
}

// WithFormatter sets the tooltip content formatter.
func WithFormatter(f Formatter) Option {
	return func(c *Chart) {
		if f != nil {
			c.format = f
		}
	}
}

// WithTooltipOffset moves the tooltip anchor relative to the pointer.
func WithTooltipOffset(p model.Point) Option {
	return func(c *Chart) { c.offset = p }
}

// Chart is one chart instance.
type Chart struct {
	mu      sync.Mutex
	spec    model.ChartSpec
	log     logging.Logger
	metrics *metrics.Metrics
	format  Formatter
	offset  model.Point
	tooltip *tooltip.Controller

	size    model.Size
	hasSize bool
	layout  layout.Layout

	data         *Data
	gen          uint64
	loading      bool
	pending      bool
	freshData    bool
	disposed     bool
	rendered     bool
	elements     *bind.ElementSet
	axes         []model.Axis
	legend       []model.LegendEntry
	hoverLabel   string
	warnings     []model.Warning
	err          error
}

// New validates spec and returns an unloaded chart. Configuration errors are
// returned here and the chart is not created.
func New(spec model.ChartSpec, opts ...Option) (*Chart, error) {
	spec = spec.Clone()
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Margins.Unit == "" {
		spec.Margins.Unit = model.UnitFraction
	}
	if err := Validate(spec); err != nil {
		return nil, err
	}
	c := &Chart{
		spec:     spec,
		log:      logging.NewNop(),
		format:   DefaultFormatter,
		elements: bind.NewElementSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logging.String("chart", spec.ID), logging.String("kind", string(spec.Kind)))
	c.tooltip = tooltip.New(c.offset)
	return c, nil
}

// Validate checks a spec without constructing a chart.
func Validate(spec model.ChartSpec) error {
	if !knownKind(spec.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSpec, spec.Kind)
	}
	if !(spec.AspectRatio > 0) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidSpec, layout.ErrInvalidAspect, spec.AspectRatio)
	}
	if err := layout.ValidateMargins(spec.Margins); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	for _, p := range []float64{spec.Padding, spec.InnerPadding} {
		if p < 0 || p >= 1 || p != p {
			return fmt.Errorf("%w: %w: %v", ErrInvalidSpec, scale.ErrInvalidPadding, p)
		}
	}
	for _, ch := range requiredChannels(spec) {
		if spec.Field(ch) == "" {
			return fmt.Errorf("%w: %w: %s chart needs a %s field", ErrInvalidSpec, bind.ErrMissingChannel, spec.Kind, ch)
		}
	}
	if spec.Kind == model.KindChoropleth {
		if _, err := choropleth.NewBuckets(spec.Thresholds, spec.NoDataFill); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}
	}
	return nil
}

func knownKind(k model.ChartKind) bool {
	for _, known := range model.ChartKinds {
		if k == known {
			return true
		}
	}
	return false
}

func requiredChannels(spec model.ChartSpec) []model.Channel {
	switch spec.Kind {
	case model.KindGrouped, model.KindStacked:
		if len(spec.Series) > 0 {
			return []model.Channel{model.ChannelCategory}
		}
		return []model.Channel{model.ChannelCategory, model.ChannelValue}
	case model.KindHorizontal, model.KindPie:
		return []model.Channel{model.ChannelCategory, model.ChannelValue}
	case model.KindRange:
		return []model.Channel{model.ChannelCategory, model.ChannelLow, model.ChannelHigh}
	case model.KindChoropleth:
		return []model.Channel{model.ChannelRegion, model.ChannelValue}
	}
	return nil
}

// Spec returns a copy of the chart spec.
func (c *Chart) Spec() model.ChartSpec {
	return c.spec.Clone()
}

// ID returns the container id.
func (c *Chart) ID() string {
	return c.spec.ID
}
