package dataset

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// ErrNoRegions is returned when a topology has no polygon features.
var ErrNoRegions = errors.New("topology has no polygon features")

// LoadTopology reads a GeoJSON FeatureCollection file.
func LoadTopology(path, idProperty, nameProperty string) (*model.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTopology(data, idProperty, nameProperty)
}

// ParseTopology converts GeoJSON features into regions. The region id comes
// from idProperty, or from the feature id when idProperty is empty. Features
// without polygon geometry are skipped.
func ParseTopology(data []byte, idProperty, nameProperty string) (*model.Topology, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	topo := &model.Topology{Regions: make([]model.Region, 0, len(fc.Features))}
	for _, f := range fc.Features {
		var shape orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			shape = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			shape = g
		default:
			continue
		}
		region := model.Region{ID: featureID(f, idProperty), Shape: shape}
		if nameProperty != "" {
			region.Name = f.Properties.MustString(nameProperty, "")
		}
		topo.Regions = append(topo.Regions, region)
	}
	if len(topo.Regions) == 0 {
		return nil, ErrNoRegions
	}
	return topo, nil
}

func featureID(f *geojson.Feature, prop string) string {
	var raw interface{}
	if prop != "" {
		raw = f.Properties[prop]
	} else {
		raw = f.ID
	}
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
