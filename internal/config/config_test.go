package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/chartpipe/internal/chart"
	"github.com/verte-zerg/chartpipe/internal/dataset"
	"github.com/verte-zerg/chartpipe/internal/model"
)

const sampleConfig = `
[log]
level = "debug"

[server]
addr = ":9000"

[[chart]]
id = "sizes"
title = "Sizes"
kind = "Grouped"
aspect-ratio = 0.5
series = ["A", "B"]
tooltip-offset = [4, 6]
fields = { category = "size" }
margins = { top = 10, right = 10, bottom = 30, left = 40, unit = "pixels" }

[chart.source]
path = "sizes.csv"
types = { A = "number", B = "number" }

[[chart.source.filter]]
field = "A"
op = "gt"
value = "0"

[[chart]]
id = "states"
kind = "choropleth"
fields = { region = "state", value = "rate" }
no-data-fill = "#eeeeee"

[[chart.threshold]]
min = 0
color = "#c6dbef"

[[chart.threshold]]
min = 5
color = "#205b95"

[chart.source]
path = "rates.csv"
topology = "states.geojson"
region-property = "postal"
date-layouts = { updated = "2006-01-02" }
`

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(sampleConfig)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("log level not decoded: %+v", cfg.Log)
	}
	if cfg.Log.Format != nil {
		t.Fatalf("unset value should stay nil")
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":9000" {
		t.Fatalf("server addr not decoded")
	}
	if ids := strings.Join(cfg.ChartIDs(), ","); ids != "sizes,states" {
		t.Fatalf("unexpected chart ids %q", ids)
	}
}

func TestChartSpecConversion(t *testing.T) {
	cfg, err := DecodeConfig(sampleConfig)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sizes, ok := cfg.Chart("sizes")
	if !ok {
		t.Fatalf("sizes chart missing")
	}
	spec, err := sizes.Spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.Kind != model.KindGrouped {
		t.Fatalf("kind should be normalised, got %q", spec.Kind)
	}
	if spec.AspectRatio != 0.5 || spec.Padding != DefaultPadding {
		t.Fatalf("unexpected ratio/padding %v/%v", spec.AspectRatio, spec.Padding)
	}
	if spec.Margins.Unit != model.UnitPixels || spec.Margins.Left != 40 {
		t.Fatalf("unexpected margins %+v", spec.Margins)
	}
	if spec.Field(model.ChannelCategory) != "size" {
		t.Fatalf("category field not mapped")
	}
	if _, err := chart.New(spec); err != nil {
		t.Fatalf("converted spec should be valid: %v", err)
	}
	opts, err := sizes.Options()
	if err != nil || len(opts) != 1 {
		t.Fatalf("expected one option, got %d (%v)", len(opts), err)
	}

	states, _ := cfg.Chart("states")
	spec, err = states.Spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if len(spec.Thresholds) != 2 || spec.Thresholds[1].LowerBound != 5 {
		t.Fatalf("unexpected thresholds %+v", spec.Thresholds)
	}
	if spec.Margins != DefaultMargins || spec.AspectRatio != DefaultAspectRatio {
		t.Fatalf("defaults not applied")
	}
}

func TestDataSourceConversion(t *testing.T) {
	cfg, err := DecodeConfig(sampleConfig)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sizes, _ := cfg.Chart("sizes")
	src, err := sizes.DataSource("/tmp/cache")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if src.InferKind() != chart.SourceCSV || src.CacheDir != "/tmp/cache" {
		t.Fatalf("unexpected source %+v", src)
	}
	if len(src.Schema.Fields) != 2 || src.Schema.Fields[0].Name != "A" || src.Schema.Fields[0].Type != dataset.TypeNumber {
		t.Fatalf("unexpected schema %+v", src.Schema)
	}
	if len(src.Filters) != 1 || src.Filters[0].Op != "gt" {
		t.Fatalf("unexpected filters %+v", src.Filters)
	}

	states, _ := cfg.Chart("states")
	src, err = states.DataSource("")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	f, ok := src.Schema.Lookup("updated")
	if !ok || f.Type != dataset.TypeDate || f.Layout != "2006-01-02" {
		t.Fatalf("date layout should imply a date field: %+v", f)
	}
	if src.Topology != "states.geojson" || src.RegionProperty != "postal" {
		t.Fatalf("topology not carried: %+v", src)
	}
}

func TestConfigErrors(t *testing.T) {
	cases := map[string]string{
		"missing id":   "[[chart]]\nkind = \"pie\"\n",
		"duplicate id": "[[chart]]\nid = \"a\"\n[[chart]]\nid = \"a\"\n",
		"bad toml":     "[[chart]\n",
	}
	for name, text := range cases {
		if _, err := DecodeConfig(text); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	bad := ChartConfig{ID: "x", Margins: &MarginsConfig{Unit: "em"}}
	if _, err := bad.Spec(); err == nil {
		t.Fatalf("expected margin unit error")
	}
	if _, err := (ChartConfig{ID: "x", TooltipOffset: []float64{1}}).Options(); err == nil {
		t.Fatalf("expected tooltip offset error")
	}
	if _, err := (ChartConfig{ID: "x"}).DataSource(""); err == nil {
		t.Fatalf("expected missing source error")
	}
	typed := ChartConfig{ID: "x", Source: SourceConfig{Path: "a.csv", Types: map[string]string{"a": "decimal"}}}
	if _, err := typed.DataSource(""); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if len(cfg.Charts) != 0 {
		t.Fatalf("expected empty config")
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Charts) != 2 {
		t.Fatalf("expected 2 charts, got %d", len(cfg.Charts))
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CACHE_HOME", "/cache")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "chartpipe", "config.toml") {
		t.Fatalf("config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "chartpipe", "datasets.db") {
		t.Fatalf("db path %q", got)
	}
	if got := DefaultOutputDir(); got != filepath.Join("/data", "chartpipe", "out") {
		t.Fatalf("output dir %q", got)
	}
	if got := DefaultCacheDir(); got != filepath.Join("/cache", "chartpipe") {
		t.Fatalf("cache dir %q", got)
	}
}
