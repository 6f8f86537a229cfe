// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/chartpipe/internal/chart"
	"github.com/verte-zerg/chartpipe/internal/dataset"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// Defaults applied to chart tables that leave a value unset.
const (
	DefaultAspectRatio = 0.6
	DefaultPadding     = 0.1
)

// DefaultMargins leave room for axes and the legend.
var DefaultMargins = model.Margins{Top: 0.05, Right: 0.05, Bottom: 0.12, Left: 0.1, Unit: model.UnitFraction}

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Log    LogConfig     `toml:"log"`
	Store  StoreConfig   `toml:"store"`
	Server ServerConfig  `toml:"server"`
	Render RenderConfig  `toml:"render"`
	Charts []ChartConfig `toml:"chart"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// StoreConfig maps dataset store settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// ServerConfig maps HTTP surface settings.
type ServerConfig struct {
	Addr    *string `toml:"addr"`
	Width   *int    `toml:"width"`
	Metrics *bool   `toml:"metrics"`
}

// RenderConfig maps SVG output settings.
type RenderConfig struct {
	Width     *int    `toml:"width"`
	OutputDir *string `toml:"output-dir"`
	Fixed     *bool   `toml:"fixed"`
}

// ChartConfig is one [[chart]] table.
type ChartConfig struct {
	ID            string            `toml:"id"`
	Title         string            `toml:"title"`
	Kind          string            `toml:"kind"`
	AspectRatio   *float64          `toml:"aspect-ratio"`
	Margins       *MarginsConfig    `toml:"margins"`
	Fields        map[string]string `toml:"fields"`
	Series        []string          `toml:"series"`
	Palette       []string          `toml:"palette"`
	Padding       *float64          `toml:"padding"`
	InnerPadding  *float64          `toml:"inner-padding"`
	Thresholds    []ThresholdConfig `toml:"threshold"`
	NoDataFill    string            `toml:"no-data-fill"`
	Transition    bool              `toml:"transition"`
	TooltipOffset []float64         `toml:"tooltip-offset"`
	Source        SourceConfig      `toml:"source"`
}

// MarginsConfig maps chart margins.
type MarginsConfig struct {
	Top    float64 `toml:"top"`
	Right  float64 `toml:"right"`
	Bottom float64 `toml:"bottom"`
	Left   float64 `toml:"left"`
	Unit   string  `toml:"unit"`
}

// ThresholdConfig maps one choropleth bucket.
type ThresholdConfig struct {
	Min   float64 `toml:"min"`
	Color string  `toml:"color"`
}

// SourceConfig maps where a chart reads its data.
type SourceConfig struct {
	Kind           string            `toml:"kind"`
	Path           string            `toml:"path"`
	Sheet          string            `toml:"sheet"`
	Dataset        string            `toml:"dataset"`
	Topology       string            `toml:"topology"`
	RegionProperty string            `toml:"region-property"`
	NameProperty   string            `toml:"name-property"`
	Refresh        bool              `toml:"refresh"`
	Types          map[string]string `toml:"types"`
	DateLayouts    map[string]string `toml:"date-layouts"`
	Filters        []FilterConfig    `toml:"filter"`
}

// FilterConfig maps one row filter.
type FilterConfig struct {
	Field string `toml:"field"`
	Op    string `toml:"op"`
	Value string `toml:"value"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// DecodeConfig parses TOML text.
func DecodeConfig(data string) (FileConfig, error) {
	var cfg FileConfig
	if _, err := toml.Decode(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	seen := make(map[string]struct{}, len(c.Charts))
	for i, ch := range c.Charts {
		if ch.ID == "" {
			return fmt.Errorf("chart %d: id is required", i+1)
		}
		if _, ok := seen[ch.ID]; ok {
			return fmt.Errorf("chart %q: duplicate id", ch.ID)
		}
		seen[ch.ID] = struct{}{}
	}
	return nil
}

// Chart returns the chart table with the given id.
func (c FileConfig) Chart(id string) (ChartConfig, bool) {
	for _, ch := range c.Charts {
		if ch.ID == id {
			return ch, true
		}
	}
	return ChartConfig{}, false
}

// ChartIDs lists chart ids in file order.
func (c FileConfig) ChartIDs() []string {
	ids := make([]string, 0, len(c.Charts))
	for _, ch := range c.Charts {
		ids = append(ids, ch.ID)
	}
	return ids
}

// Spec converts the table into a chart spec. Shape errors (unknown kind,
// bad margins) are left to chart.New.
func (c ChartConfig) Spec() (model.ChartSpec, error) {
	spec := model.ChartSpec{
		ID:           c.ID,
		Kind:         model.ChartKind(strings.ToLower(strings.TrimSpace(c.Kind))),
		AspectRatio:  DefaultAspectRatio,
		Margins:      DefaultMargins,
		Series:       append([]string(nil), c.Series...),
		Palette:      append([]string(nil), c.Palette...),
		Padding:      DefaultPadding,
		InnerPadding: 0,
		NoDataFill:   c.NoDataFill,
		Transition:   c.Transition,
	}
	if c.AspectRatio != nil {
		spec.AspectRatio = *c.AspectRatio
	}
	if c.Padding != nil {
		spec.Padding = *c.Padding
	}
	if c.InnerPadding != nil {
		spec.InnerPadding = *c.InnerPadding
	}
	if c.Margins != nil {
		unit := model.MarginUnit(strings.ToLower(c.Margins.Unit))
		switch unit {
		case "":
			unit = model.UnitFraction
		case model.UnitFraction, model.UnitPixels:
		default:
			return model.ChartSpec{}, fmt.Errorf("chart %q: unknown margin unit %q", c.ID, c.Margins.Unit)
		}
		spec.Margins = model.Margins{
			Top:    c.Margins.Top,
			Right:  c.Margins.Right,
			Bottom: c.Margins.Bottom,
			Left:   c.Margins.Left,
			Unit:   unit,
		}
	}
	if len(c.Fields) > 0 {
		spec.Fields = make(model.FieldMap, len(c.Fields))
		for ch, field := range c.Fields {
			spec.Fields[model.Channel(strings.ToLower(ch))] = field
		}
	}
	for _, t := range c.Thresholds {
		spec.Thresholds = append(spec.Thresholds, model.Threshold{LowerBound: t.Min, Color: t.Color})
	}
	return spec, nil
}

// Options returns the chart options the table configures.
func (c ChartConfig) Options() ([]chart.Option, error) {
	var opts []chart.Option
	switch len(c.TooltipOffset) {
	case 0:
	case 2:
		opts = append(opts, chart.WithTooltipOffset(model.Point{X: c.TooltipOffset[0], Y: c.TooltipOffset[1]}))
	default:
		return nil, fmt.Errorf("chart %q: tooltip-offset needs two numbers", c.ID)
	}
	return opts, nil
}

// DataSource converts the [chart.source] table. cacheDir is used for remote
// paths.
func (c ChartConfig) DataSource(cacheDir string) (chart.Source, error) {
	s := c.Source
	schema, err := s.schema()
	if err != nil {
		return chart.Source{}, fmt.Errorf("chart %q: %w", c.ID, err)
	}
	src := chart.Source{
		Kind:           chart.SourceKind(strings.ToLower(s.Kind)),
		Path:           s.Path,
		Sheet:          s.Sheet,
		Dataset:        s.Dataset,
		Topology:       s.Topology,
		RegionProperty: s.RegionProperty,
		NameProperty:   s.NameProperty,
		Schema:         schema,
		CacheDir:       cacheDir,
		Refresh:        s.Refresh,
	}
	for _, f := range s.Filters {
		src.Filters = append(src.Filters, dataset.Filter{Field: f.Field, Op: f.Op, Value: f.Value})
	}
	if src.Path == "" && src.Dataset == "" {
		return chart.Source{}, fmt.Errorf("chart %q: source needs a path or a dataset", c.ID)
	}
	return src, nil
}

// schema lists typed columns sorted by name so decoding order never matters.
func (s SourceConfig) schema() (dataset.Schema, error) {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	for name := range s.DateLayouts {
		if _, ok := s.Types[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var schema dataset.Schema
	for _, name := range names {
		typ, err := dataset.ParseFieldType(s.Types[name])
		if err != nil {
			return dataset.Schema{}, fmt.Errorf("field %q: %w", name, err)
		}
		layout := s.DateLayouts[name]
		if layout != "" {
			typ = dataset.TypeDate
		}
		schema.Fields = append(schema.Fields, dataset.FieldSpec{Name: name, Type: typ, Layout: layout})
	}
	return schema, nil
}
