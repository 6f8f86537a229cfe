// Package sample builds deterministic demo datasets.
package sample

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Generator produces randomized sample rows. The same seed always yields the
// same data.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator for seed.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Table is a header row followed by records.
type Table [][]string

// Sizes returns one row per category with a value column per series.
func (g *Generator) Sizes(categories, series []string) Table {
	header := append([]string{"size"}, series...)
	t := Table{header}
	for _, c := range categories {
		rec := []string{c}
		for range series {
			rec = append(rec, strconv.Itoa(5+g.rnd.Intn(46)))
		}
		t = append(t, rec)
	}
	return t
}

// Shares splits total between labels. Earlier labels are weighted heavier so
// the pie has a clear ordering.
func (g *Generator) Shares(labels []string, total int) Table {
	t := Table{{"label", "share"}}
	if len(labels) == 0 {
		return t
	}
	weights := make([]float64, len(labels))
	sum := 0.0
	for i := range labels {
		w := float64(len(labels)-i) * (0.5 + g.rnd.Float64())
		weights[i] = w
		sum += w
	}
	for i, label := range labels {
		share := float64(total) * weights[i] / sum
		t = append(t, []string{label, strconv.FormatFloat(share, 'f', 1, 64)})
	}
	return t
}

// Schedule returns tasks with start and end dates after start.
func (g *Generator) Schedule(tasks int, start time.Time) Table {
	t := Table{{"task", "start", "end"}}
	day := start
	for i := 0; i < tasks; i++ {
		begin := day.AddDate(0, 0, g.rnd.Intn(5))
		end := begin.AddDate(0, 0, 3+g.rnd.Intn(12))
		t = append(t, []string{
			fmt.Sprintf("Task %d", i+1),
			begin.Format(time.DateOnly),
			end.Format(time.DateOnly),
		})
		day = begin.AddDate(0, 0, 2)
	}
	return t
}

// Regions returns a cols x rows grid of square regions and a value table for
// them. The last region gets no row and one row names a region the grid lacks,
// so both the no-data fill and the unmapped-region warning show up.
func (g *Generator) Regions(cols, rows int) (*geojson.FeatureCollection, Table) {
	fc := geojson.NewFeatureCollection()
	t := Table{{"region", "rate"}}
	n := 0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			n++
			code := fmt.Sprintf("R%02d", n)
			x0, y0 := float64(x), float64(rows-y-1)
			ring := orb.Ring{{x0, y0}, {x0 + 1, y0}, {x0 + 1, y0 + 1}, {x0, y0 + 1}, {x0, y0}}
			f := geojson.NewFeature(orb.Polygon{ring})
			f.Properties["code"] = code
			f.Properties["name"] = fmt.Sprintf("Region %d", n)
			fc.Append(f)
			if n == cols*rows {
				continue
			}
			rate := 2 + g.rnd.Float64()*8
			t = append(t, []string{code, strconv.FormatFloat(rate, 'f', 1, 64)})
		}
	}
	t = append(t, []string{"ZZ", "4.2"})
	return fc, t
}

// WriteCSV writes t to path.
func WriteCSV(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(t); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Demo lists the files WriteDemo produced.
type Demo struct {
	Dir        string
	ConfigPath string
	Files      []string
}

// WriteDemo writes sample datasets for every chart kind and a config file
// describing one chart per kind into dir.
func WriteDemo(dir string, seed int64) (Demo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Demo{}, fmt.Errorf("failed to create demo directory: %w", err)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Demo{}, err
	}
	g := New(seed)
	demo := Demo{Dir: dir}

	tables := []struct {
		name  string
		table Table
	}{
		{"sizes.csv", g.Sizes([]string{"Small", "Medium", "Large"}, []string{"A", "B", "C"})},
		{"shares.csv", g.Shares([]string{"Search", "Direct", "Social", "Email", "Other"}, 100)},
		{"schedule.csv", g.Schedule(6, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
	}
	fc, rates := g.Regions(4, 3)
	tables = append(tables, struct {
		name  string
		table Table
	}{"rates.csv", rates})

	for _, tb := range tables {
		path := filepath.Join(dir, tb.name)
		if err := WriteCSV(path, tb.table); err != nil {
			return Demo{}, err
		}
		demo.Files = append(demo.Files, path)
	}

	geo, err := fc.MarshalJSON()
	if err != nil {
		return Demo{}, fmt.Errorf("failed to encode regions: %w", err)
	}
	geoPath := filepath.Join(dir, "regions.geojson")
	if err := os.WriteFile(geoPath, geo, 0o644); err != nil {
		return Demo{}, fmt.Errorf("failed to write regions: %w", err)
	}
	demo.Files = append(demo.Files, geoPath)

	demo.ConfigPath = filepath.Join(dir, "chartpipe.toml")
	if err := os.WriteFile(demo.ConfigPath, []byte(DemoConfig(dir)), 0o644); err != nil {
		return Demo{}, fmt.Errorf("failed to write demo config: %w", err)
	}
	demo.Files = append(demo.Files, demo.ConfigPath)
	return demo, nil
}

// DemoConfig returns a config with one chart per kind reading the demo files
// in dir.
func DemoConfig(dir string) string {
	p := func(name string) string { return strconv.Quote(filepath.Join(dir, name)) }
	return fmt.Sprintf(`# chartpipe demo configuration

[[chart]]
id = "sizes"
title = "Sizes by series"
kind = "grouped"
aspect-ratio = 0.5
series = ["A", "B", "C"]
fields = { category = "size" }
transition = true

[chart.source]
path = %[1]s
types = { A = "number", B = "number", C = "number" }

[[chart]]
id = "sizes-stacked"
title = "Sizes stacked"
kind = "stacked"
aspect-ratio = 0.5
series = ["A", "B", "C"]
fields = { category = "size" }

[chart.source]
path = %[1]s
types = { A = "number", B = "number", C = "number" }

[[chart]]
id = "channels"
title = "Traffic by channel"
kind = "horizontal"
aspect-ratio = 0.5
fields = { category = "label", value = "share" }

[chart.source]
path = %[2]s
types = { share = "number" }

[[chart]]
id = "shares"
title = "Traffic share"
kind = "pie"
aspect-ratio = 1
fields = { category = "label", value = "share" }

[chart.source]
path = %[2]s
types = { share = "number" }

[[chart]]
id = "schedule"
title = "Schedule"
kind = "range"
aspect-ratio = 0.5
fields = { category = "task", low = "start", high = "end" }

[chart.source]
path = %[3]s
types = { start = "date", end = "date" }

[[chart]]
id = "rates"
title = "Rate by region"
kind = "choropleth"
aspect-ratio = 0.75
fields = { region = "region", value = "rate" }
no-data-fill = "#d9d9d9"

[[chart.threshold]]
min = 0
color = "#c6dbef"

[[chart.threshold]]
min = 4
color = "#6baed6"

[[chart.threshold]]
min = 7
color = "#205b95"

[chart.source]
path = %[4]s
topology = %[5]s
region-property = "code"
name-property = "name"
types = { rate = "number" }
`, p("sizes.csv"), p("shares.csv"), p("schedule.csv"), p("rates.csv"), p("regions.geojson"))
}
