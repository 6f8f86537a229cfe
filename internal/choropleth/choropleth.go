package choropleth

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// ErrNoTopology is returned when a choropleth has no regions to draw.
var ErrNoTopology = errors.New("choropleth needs a topology")

// Options configures one choropleth render pass.
type Options struct {
	RegionField string
	ValueField  string
	Thresholds  []model.Threshold
	NoDataFill  string
	Area        bind.Area
}

// OptionsFromSpec reads the choropleth options of a chart spec.
func OptionsFromSpec(spec model.ChartSpec, area bind.Area) Options {
	return Options{
		RegionField: spec.Field(model.ChannelRegion),
		ValueField:  spec.Field(model.ChannelValue),
		Thresholds:  spec.Thresholds,
		NoDataFill:  spec.NoDataFill,
		Area:        area,
	}
}

// Render produces one element per topology region, in topology order.
//
// Regions are keyed by id and joined to rows through the region field.
// Regions without a row are drawn with the no-data fill. Rows naming a region
// the topology lacks are reported and skipped.
func Render(topo *model.Topology, rows []model.Row, opts Options) (bind.Plan, error) {
	if topo == nil || len(topo.Regions) == 0 {
		return bind.Plan{}, ErrNoTopology
	}
	if opts.RegionField == "" || opts.ValueField == "" {
		return bind.Plan{}, fmt.Errorf("%w: choropleth needs region and value fields", bind.ErrMissingChannel)
	}
	buckets, err := NewBuckets(opts.Thresholds, opts.NoDataFill)
	if err != nil {
		return bind.Plan{}, err
	}
	colors, err := buckets.Legend()
	if err != nil {
		return bind.Plan{}, err
	}

	var warnings []model.Warning
	regions := make([]model.Region, 0, len(topo.Regions))
	known := make(map[string]struct{}, len(topo.Regions))
	for i, r := range topo.Regions {
		if r.ID == "" {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnEmptyKey, Row: i, Message: "topology feature has no region id",
			})
			continue
		}
		if _, dup := known[r.ID]; dup {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnDuplicateKey, Row: i, Key: r.ID,
				Message: "topology repeats region id; first feature kept",
			})
			continue
		}
		known[r.ID] = struct{}{}
		regions = append(regions, r)
	}

	byRegion := make(map[string]model.Row, len(rows))
	for _, row := range rows {
		id, ok := row.Text(opts.RegionField)
		if !ok || id == "" {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnMissingField, Row: row.Index(), Field: opts.RegionField,
				Message: "row has no region id",
			})
			continue
		}
		if _, ok := known[id]; !ok {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnUnmappedRegion, Row: row.Index(), Key: id,
				Message: "region not present in topology",
			})
			continue
		}
		if _, dup := byRegion[id]; dup {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnDuplicateKey, Row: row.Index(), Key: id,
				Message: fmt.Sprintf("row %d repeats region; first occurrence kept", row.Index()),
			})
			continue
		}
		byRegion[id] = row
	}

	proj := FitProjection(Bound(regions), opts.Area.Width, opts.Area.Height)
	plan := bind.Plan{Colors: colors, Warnings: warnings}
	for _, r := range regions {
		label := r.Name
		if label == "" {
			label = r.ID
		}
		el := &model.VisualElement{
			Key:      r.ID,
			Label:    label,
			Geometry: model.ShapeGeometry(proj.MultiPolygon(r.Shape)),
			Fill:     buckets.NoData(),
			NoData:   true,
		}
		if row, ok := byRegion[r.ID]; ok {
			el.Datum = row
			if v, ok := row.Number(opts.ValueField); ok {
				el.Value = v
				el.Fill = buckets.Color(v)
				el.NoData = false
			} else {
				plan.Warnings = append(plan.Warnings, model.Warning{
					Kind: model.WarnMissingField, Row: row.Index(), Key: r.ID, Field: opts.ValueField,
					Message: "region drawn without a value",
				})
			}
		}
		plan.Elements = append(plan.Elements, el)
	}
	return plan, nil
}
