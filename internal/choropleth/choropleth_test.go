package choropleth

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/model"
)

var stateThresholds = []model.Threshold{
	{LowerBound: 150, Color: "#205b95"},
	{LowerBound: 35, Color: "#4585c6"},
	{LowerBound: 0.5, Color: "#8ab4e0"},
	{LowerBound: 0, Color: "#c0c0c0"},
}

func square(x, y float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}}
}

func states() *model.Topology {
	return &model.Topology{Regions: []model.Region{
		{ID: "CA", Name: "California", Shape: square(0, 0)},
		{ID: "TX", Name: "Texas", Shape: square(2, 0)},
		{ID: "NY", Name: "New York", Shape: square(4, 1)},
	}}
}

func stateRow(i int, region string, v float64) model.Row {
	return model.NewRow(i, map[string]model.Value{
		"region": model.StringValue(region),
		"value":  model.NumberValue(v),
	})
}

func opts() Options {
	return Options{
		RegionField: "region",
		ValueField:  "value",
		Thresholds:  stateThresholds,
		NoDataFill:  "#eeeeee",
		Area:        bind.Area{Width: 500, Height: 200},
	}
}

func TestThresholdScenario(t *testing.T) {
	rows := []model.Row{stateRow(0, "CA", 150), stateRow(1, "TX", 40)}
	plan, err := Render(states(), rows, opts())
	require.NoError(t, err)
	fills := map[string]string{}
	for _, el := range plan.Elements {
		fills[el.Key] = el.Fill
	}
	assert.Equal(t, "#205b95", fills["CA"])
	assert.Equal(t, "#4585c6", fills["TX"])
	assert.Equal(t, "#eeeeee", fills["NY"])
	assert.Empty(t, plan.Warnings)
}

func TestBucketBoundaries(t *testing.T) {
	// Configured order does not matter; bounds are checked highest first.
	shuffled := []model.Threshold{stateThresholds[2], stateThresholds[0], stateThresholds[3], stateThresholds[1]}
	b, err := NewBuckets(shuffled, "none")
	require.NoError(t, err)
	cases := map[float64]string{
		1000:   "#205b95",
		150:    "#205b95",
		149.99: "#4585c6",
		35:     "#4585c6",
		34.9:   "#8ab4e0",
		0.5:    "#8ab4e0",
		0.49:   "#c0c0c0",
		0:      "#c0c0c0",
		-1:     "none",
	}
	for v, want := range cases {
		if got := b.Color(v); got != want {
			t.Fatalf("value %v: expected %s, got %s", v, want, got)
		}
	}
}

func TestInvalidThresholds(t *testing.T) {
	_, err := NewBuckets([]model.Threshold{{LowerBound: 1}}, "")
	if !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
}

func TestCompleteness(t *testing.T) {
	topo := states()
	topo.Regions = append(topo.Regions, model.Region{ID: "CA", Shape: square(9, 9)})
	datasets := [][]model.Row{
		nil,
		{stateRow(0, "TX", 3)},
		{stateRow(0, "CA", 1), stateRow(1, "TX", 2), stateRow(2, "NY", 3), stateRow(3, "PR", 4)},
	}
	for _, rows := range datasets {
		plan, err := Render(topo, rows, opts())
		require.NoError(t, err)
		seen := map[string]int{}
		for _, el := range plan.Elements {
			seen[el.Key]++
		}
		assert.Equal(t, map[string]int{"CA": 1, "TX": 1, "NY": 1}, seen)
	}
}

func TestRenderWarnings(t *testing.T) {
	rows := []model.Row{
		stateRow(0, "CA", 200),
		stateRow(1, "PR", 10),
		stateRow(2, "CA", 1),
		model.NewRow(3, map[string]model.Value{"region": model.StringValue("TX")}),
	}
	plan, err := Render(states(), rows, opts())
	require.NoError(t, err)
	kinds := map[model.WarningKind]int{}
	for _, w := range plan.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[model.WarnUnmappedRegion])
	assert.Equal(t, 1, kinds[model.WarnDuplicateKey])
	assert.Equal(t, 1, kinds[model.WarnMissingField])

	for _, el := range plan.Elements {
		switch el.Key {
		case "CA":
			assert.Equal(t, 200.0, el.Value)
			assert.False(t, el.NoData)
		case "TX":
			assert.True(t, el.NoData)
			assert.Equal(t, "#eeeeee", el.Fill)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := Render(nil, nil, opts()); !errors.Is(err, ErrNoTopology) {
		t.Fatalf("expected ErrNoTopology, got %v", err)
	}
	o := opts()
	o.ValueField = ""
	if _, err := Render(states(), nil, o); !errors.Is(err, bind.ErrMissingChannel) {
		t.Fatalf("expected ErrMissingChannel, got %v", err)
	}
}

func TestFitProjection(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 5}}
	p := FitProjection(bound, 100, 100)
	// Width limits the scale; the map is centred vertically and north is up.
	assert.Equal(t, orb.Point{0, 75}, p.Point(orb.Point{0, 0}))
	assert.Equal(t, orb.Point{100, 25}, p.Point(orb.Point{10, 5}))

	topo := states()
	plan, err := Render(topo, nil, opts())
	require.NoError(t, err)
	for _, el := range plan.Elements {
		b := el.Geometry.Shape.Bound()
		if b.Min[0] < -1e-9 || b.Max[0] > 500+1e-9 || b.Min[1] < -1e-9 || b.Max[1] > 200+1e-9 {
			t.Fatalf("region %s projected outside the area: %v", el.Key, b)
		}
	}
}

func TestLegendFromBuckets(t *testing.T) {
	b, err := NewBuckets(stateThresholds, "")
	require.NoError(t, err)
	colors, err := b.Legend()
	require.NoError(t, err)
	assert.Equal(t, []string{"≥ 150", "≥ 35", "≥ 0.5", "≥ 0"}, colors.Domain())
	assert.Equal(t, "#4585c6", colors.Color("≥ 35"))
}
