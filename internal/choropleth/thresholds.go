// Package choropleth colours map regions from a dataset keyed by region id.
package choropleth

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

// DefaultNoDataFill colours regions without data.
const DefaultNoDataFill = "#e0e0e0"

// ErrInvalidThresholds reports a threshold table that cannot be evaluated.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Buckets is a threshold table sorted from the highest lower bound down.
//
// A value falls into the first bucket whose lower bound it reaches
// (value >= LowerBound), checking from the highest bound. Each value lands in
// exactly one bucket; a value below every bound gets the no-data fill.
type Buckets struct {
	desc   []model.Threshold
	noData string
}

// NewBuckets validates and sorts thresholds. Equal bounds keep their
// configured order.
func NewBuckets(thresholds []model.Threshold, noData string) (Buckets, error) {
	if noData == "" {
		noData = DefaultNoDataFill
	}
	desc := append([]model.Threshold(nil), thresholds...)
	for _, th := range desc {
		if math.IsNaN(th.LowerBound) || math.IsInf(th.LowerBound, 0) {
			return Buckets{}, fmt.Errorf("%w: bound %v is not finite", ErrInvalidThresholds, th.LowerBound)
		}
		if th.Color == "" {
			return Buckets{}, fmt.Errorf("%w: bound %v has no colour", ErrInvalidThresholds, th.LowerBound)
		}
	}
	sort.SliceStable(desc, func(i, j int) bool {
		return desc[i].LowerBound > desc[j].LowerBound
	})
	return Buckets{desc: desc, noData: noData}, nil
}

// Color returns the bucket colour for v.
func (b Buckets) Color(v float64) string {
	if math.IsNaN(v) {
		return b.noData
	}
	for _, th := range b.desc {
		if v >= th.LowerBound {
			return th.Color
		}
	}
	return b.noData
}

// NoData returns the fill for regions without a value.
func (b Buckets) NoData() string {
	return b.noData
}

// Legend returns a colour scale whose domain labels each bucket, highest first.
func (b Buckets) Legend() (*scale.Ordinal, error) {
	if len(b.desc) == 0 {
		return nil, nil
	}
	labels := make([]string, 0, len(b.desc))
	colors := make([]string, 0, len(b.desc))
	for _, th := range b.desc {
		labels = append(labels, "≥ "+bind.FormatNumber(th.LowerBound))
		colors = append(colors, th.Color)
	}
	return scale.NewOrdinal(labels, colors, b.noData)
}
