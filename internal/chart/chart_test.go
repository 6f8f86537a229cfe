package chart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/chartpipe/internal/dataset"
	"github.com/verte-zerg/chartpipe/internal/layout"
	"github.com/verte-zerg/chartpipe/internal/legend"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/metrics"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/scale"
)

func groupedSpec() model.ChartSpec {
	return model.ChartSpec{
		ID:          "sizes",
		Kind:        model.KindGrouped,
		AspectRatio: 0.75,
		Margins:     model.Margins{Top: 0.1, Right: 0.05, Bottom: 0.1, Left: 0.1, Unit: model.UnitFraction},
		Fields:      model.FieldMap{model.ChannelCategory: "size"},
		Series:      []string{"A", "B"},
		Padding:     0.2,
	}
}

func sizeRows(cats ...string) model.Dataset {
	ds := model.Dataset{Name: "sizes"}
	for i, c := range cats {
		ds.Rows = append(ds.Rows, model.NewRow(i, map[string]model.Value{
			"size": model.StringValue(c),
			"A":    model.NumberValue(float64(10 * (i + 1))),
			"B":    model.NumberValue(float64(5 * (i + 1))),
		}))
	}
	return ds
}

func static(ds model.Dataset, warnings ...model.Warning) Loader {
	return func(context.Context) (Data, error) {
		return Data{Dataset: ds, Warnings: warnings}, nil
	}
}

func newChart(t *testing.T, opts ...Option) *Chart {
	t.Helper()
	c, err := New(groupedSpec(), opts...)
	require.NoError(t, err)
	return c
}

func center(t *testing.T, c *Chart, key string) model.Point {
	t.Helper()
	f, ok := c.Frame()
	require.True(t, ok)
	for _, el := range f.Elements {
		if el.Key == key {
			p := el.Geometry.Center()
			return model.Point{X: p.X + f.Margins.Left, Y: p.Y + f.Margins.Top}
		}
	}
	t.Fatalf("no element %q", key)
	return model.Point{}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.ChartSpec)
		want   error
	}{
		{"aspect", func(s *model.ChartSpec) { s.AspectRatio = 0 }, layout.ErrInvalidAspect},
		{"margins", func(s *model.ChartSpec) { s.Margins.Left, s.Margins.Right = 0.6, 0.5 }, layout.ErrInvalidMargins},
		{"padding", func(s *model.ChartSpec) { s.Padding = 1 }, scale.ErrInvalidPadding},
		{"kind", func(s *model.ChartSpec) { s.Kind = "radar" }, ErrInvalidSpec},
		{"channel", func(s *model.ChartSpec) { s.Fields = nil }, ErrInvalidSpec},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := groupedSpec()
			tc.mutate(&spec)
			_, err := New(spec)
			if !errors.Is(err, tc.want) || !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected %v wrapped in ErrInvalidSpec, got %v", tc.want, err)
			}
		})
	}
}

func TestNewAssignsID(t *testing.T) {
	spec := groupedSpec()
	spec.ID = ""
	c, err := New(spec)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
}

func TestLoadThenResizeRenders(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))
	_, ok := c.Frame()
	assert.False(t, ok, "no size yet")
	assert.True(t, c.Pending())

	require.NoError(t, c.Resize(model.Size{Width: 400}))
	f, ok := c.Frame()
	require.True(t, ok)
	assert.Equal(t, 400.0, f.Width)
	assert.Equal(t, 300.0, f.Height)
	assert.Len(t, f.Elements, 4)
	assert.Len(t, f.Legend, 2)
	assert.Len(t, f.Axes, 2)
	assert.False(t, c.Pending())
}

func TestResizeDuringLoadWaits(t *testing.T) {
	c := newChart(t)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background(), func(context.Context) (Data, error) {
			close(started)
			<-release
			return Data{Dataset: sizeRows("Small", "Large")}, nil
		})
	}()
	<-started

	require.NoError(t, c.Resize(model.Size{Width: 640}))
	assert.True(t, c.Loading())
	assert.True(t, c.Pending())
	_, ok := c.Frame()
	assert.False(t, ok, "rendered before the load completed")

	close(release)
	require.NoError(t, <-done)
	f, ok := c.Frame()
	require.True(t, ok)
	assert.Equal(t, 640.0, f.Width)
	assert.Len(t, f.Elements, 4)
}

func TestDisposeDuringLoadIsNoop(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background(), func(context.Context) (Data, error) {
			close(started)
			<-release
			return Data{Dataset: sizeRows("Small")}, nil
		})
	}()
	<-started
	c.Dispose()
	close(release)

	assert.ErrorIs(t, <-done, ErrDisposed)
	_, ok := c.Frame()
	assert.False(t, ok)
	assert.ErrorIs(t, c.Resize(model.Size{Width: 200}), ErrDisposed)
	assert.ErrorIs(t, c.Load(context.Background(), static(sizeRows("x"))), ErrDisposed)
}

func TestSupersededLoadIsDropped(t *testing.T) {
	m := metrics.New(false)
	c := newChart(t, WithMetrics(m))
	require.NoError(t, c.Resize(model.Size{Width: 400}))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Load(context.Background(), func(context.Context) (Data, error) {
			close(started)
			<-release
			return Data{Dataset: sizeRows("Old")}, nil
		})
	}()
	<-started
	require.NoError(t, c.Load(context.Background(), static(sizeRows("New"))))
	close(release)
	assert.ErrorIs(t, <-done, ErrStale)

	f, ok := c.Frame()
	require.True(t, ok)
	require.Len(t, f.Elements, 2)
	assert.Equal(t, "New", f.Elements[0].Label)
}

func TestLoadErrorClearsFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := newChart(t, WithLogger(logging.NewFromCore(core)))
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small"))))

	boom := errors.New("boom")
	err := c.Load(context.Background(), func(context.Context) (Data, error) { return Data{}, boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Err(), boom)
	_, ok := c.Frame()
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("load failed").Len())
}

func TestCancelledContextFailsLoad(t *testing.T) {
	c := newChart(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Load(ctx, static(sizeRows("Small")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetachedContainerDefersRender(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small"))))
	require.NoError(t, c.Resize(model.Size{Width: 0}))
	assert.True(t, c.Pending())
	_, ok := c.Frame()
	assert.False(t, ok)
}

func TestWarningsAreCollectedAndLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newChart(t, WithLogger(logging.NewFromCore(core)))
	ds := sizeRows("Small", "Large")
	ds.Rows = append(ds.Rows, model.NewRow(2, map[string]model.Value{"size": model.StringValue("Medium"), "A": model.NumberValue(1)}))
	loadWarn := model.Warning{Kind: model.WarnNotNumeric, Row: 2, Field: "B", Message: "not a number"}
	require.NoError(t, c.Load(context.Background(), static(ds, loadWarn)))
	require.NoError(t, c.Resize(model.Size{Width: 400}))

	ws := c.Warnings()
	require.Len(t, ws, 2)
	assert.Equal(t, model.WarnNotNumeric, ws[0].Kind)
	assert.Equal(t, model.WarnMissingField, ws[1].Kind)
	assert.Equal(t, 2, logs.FilterMessage("data warning").Len())

	require.NoError(t, c.Resize(model.Size{Width: 500}))
	assert.Len(t, c.Warnings(), 2)
	assert.Equal(t, 2, logs.FilterMessage("data warning").Len(), "resize must not re-log")
}

func TestTooltipLifecycle(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))

	p := model.Point{X: 50, Y: 60}
	require.True(t, c.PointerEnter("Small/A", p))
	st := c.Tooltip()
	assert.True(t, st.Visible)
	assert.Equal(t, "Small · A: 10", st.Content)
	assert.Equal(t, model.Point{X: 62, Y: 74}, st.Anchor)

	c.PointerMove("Small/A", model.Point{X: 51, Y: 61})
	assert.Equal(t, model.Point{X: 63, Y: 75}, c.Tooltip().Anchor)

	require.True(t, c.PointerEnter("Large/B", p))
	assert.True(t, c.Tooltip().Visible)
	assert.Equal(t, "Large/B", c.Tooltip().Key)

	c.PointerLeave("Small/A")
	assert.True(t, c.Tooltip().Visible, "stale leave must be ignored")
	c.PointerLeave("Large/B")
	assert.False(t, c.Tooltip().Visible)

	assert.False(t, c.PointerEnter("Huge/A", p))
	assert.False(t, c.Tooltip().Visible)
}

func TestExitHidesTooltip(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))
	require.True(t, c.PointerEnter("Small/A", model.Point{}))

	require.NoError(t, c.Load(context.Background(), static(sizeRows("Large"))))
	assert.False(t, c.Tooltip().Visible)

	c.PointerMove("Small/A", model.Point{X: 5})
	assert.False(t, c.Tooltip().Visible)
}

func TestTooltipSurvivesUpdate(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))
	require.True(t, c.PointerEnter("Large/A", model.Point{}))

	ds := sizeRows("Small", "Large")
	ds.Rows[1] = model.NewRow(1, map[string]model.Value{
		"size": model.StringValue("Large"), "A": model.NumberValue(99), "B": model.NumberValue(1),
	})
	require.NoError(t, c.Load(context.Background(), static(ds)))
	st := c.Tooltip()
	assert.True(t, st.Visible)
	assert.Equal(t, "Large · A: 99", st.Content)
}

func TestLegendHighlight(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))

	require.True(t, c.LegendEnter("A", model.Point{X: 10, Y: 10}))
	f, _ := c.Frame()
	for _, el := range f.Elements {
		want := legend.DimOpacity
		if el.Series == "A" {
			want = 1
		}
		assert.Equal(t, want, el.Opacity, el.Key)
	}
	assert.True(t, f.Legend[0].Active)
	assert.False(t, f.Legend[1].Active)
	assert.Equal(t, "A", f.Tooltip.Content)

	// A new dataset re-derives the projection instead of keeping old dimming.
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large", "Huge"))))
	f, _ = c.Frame()
	require.Len(t, f.Elements, 6)
	for _, el := range f.Elements {
		if el.Series == "B" {
			assert.Equal(t, legend.DimOpacity, el.Opacity, el.Key)
		} else {
			assert.Equal(t, 1.0, el.Opacity, el.Key)
		}
	}

	c.LegendLeave("A")
	f, _ = c.Frame()
	for _, el := range f.Elements {
		assert.Equal(t, 1.0, el.Opacity, el.Key)
	}
	assert.False(t, f.Tooltip.Visible)
	assert.False(t, c.LegendEnter("Z", model.Point{}))
}

func TestHitTestAndHover(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small", "Large"))))

	p := center(t, c, "Large/A")
	key, ok := c.HitTest(p)
	require.True(t, ok)
	assert.Equal(t, "Large/A", key)

	_, ok = c.HitTest(model.Point{X: 1, Y: 1})
	assert.False(t, ok, "margin area holds no elements")

	key, ok = c.Hover(p)
	require.True(t, ok)
	assert.Equal(t, "Large/A", key)
	assert.True(t, c.Tooltip().Visible)

	_, ok = c.Hover(model.Point{X: 1, Y: 1})
	assert.False(t, ok)
	assert.False(t, c.Tooltip().Visible)
}

func TestFrameIsACopy(t *testing.T) {
	c := newChart(t)
	require.NoError(t, c.Resize(model.Size{Width: 400}))
	require.NoError(t, c.Load(context.Background(), static(sizeRows("Small"))))
	f, _ := c.Frame()
	f.Elements[0].Fill = "#000000"
	f.Legend[0].Label = "changed"
	g, _ := c.Frame()
	assert.NotEqual(t, "#000000", g.Elements[0].Fill)
	assert.NotEqual(t, "changed", g.Legend[0].Label)
}

func TestChoroplethChart(t *testing.T) {
	dir := t.TempDir()
	geo := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"code":"CA","name":"California"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
		{"type":"Feature","properties":{"code":"TX","name":"Texas"},"geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,1],[2,0]]]}}
	]}`
	csv := "state,count\nCA,200\nTX,40\nZZ,3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "states.geojson"), []byte(geo), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counts.csv"), []byte(csv), 0o644))

	spec := model.ChartSpec{
		ID:          "map",
		Kind:        model.KindChoropleth,
		AspectRatio: 0.5,
		Fields:      model.FieldMap{model.ChannelRegion: "state", model.ChannelValue: "count"},
		Thresholds: []model.Threshold{
			{LowerBound: 150, Color: "#205b95"},
			{LowerBound: 35, Color: "#4585c6"},
		},
	}
	c, err := New(spec)
	require.NoError(t, err)

	src := Source{
		Path:           filepath.Join(dir, "counts.csv"),
		Topology:       filepath.Join(dir, "states.geojson"),
		RegionProperty: "code",
		NameProperty:   "name",
		Schema:         dataset.Schema{Fields: []dataset.FieldSpec{{Name: "count", Type: dataset.TypeNumber}}},
	}
	loader, err := src.Loader(nil)
	require.NoError(t, err)
	require.NoError(t, c.Resize(model.Size{Width: 600}))
	require.NoError(t, c.Load(context.Background(), loader))

	f, ok := c.Frame()
	require.True(t, ok)
	require.Len(t, f.Elements, 2)
	fills := map[string]string{}
	for _, el := range f.Elements {
		fills[el.Key] = el.Fill
	}
	assert.Equal(t, "#205b95", fills["CA"])
	assert.Equal(t, "#4585c6", fills["TX"])

	ws := c.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, model.WarnUnmappedRegion, ws[0].Kind)
}

func TestSourceKinds(t *testing.T) {
	assert.Equal(t, SourceXLSX, Source{Path: "book.XLSX"}.InferKind())
	assert.Equal(t, SourceCSV, Source{Path: "https://example.com/a.csv?x=1"}.InferKind())
	assert.Equal(t, SourceSQLite, Source{Dataset: "sales"}.InferKind())

	_, err := Source{Dataset: "sales"}.Loader(nil)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = Source{Kind: SourceCSV}.Loader(nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"a.csv"}, Source{Path: "a.csv", Topology: "https://x/y.json"}.Paths())
}

type memStore map[string]model.Dataset

func (m memStore) LoadDataset(_ context.Context, name string) (model.Dataset, error) {
	ds, ok := m[name]
	if !ok {
		return model.Dataset{}, errors.New("missing")
	}
	return ds, nil
}

func TestSQLiteSourceAppliesFilters(t *testing.T) {
	store := memStore{"sizes": sizeRows("Small", "Large", "Huge")}
	src := Source{Dataset: "sizes", Filters: []dataset.Filter{{Field: "size", Op: "ne", Value: "Huge"}}}
	loader, err := src.Loader(store)
	require.NoError(t, err)
	data, err := loader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, data.Dataset.Len())
}
