package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/chartpipe/internal/model"
)

var salesSchema = Schema{Fields: []FieldSpec{
	{Name: "region", Type: TypeString},
	{Name: "value", Type: TypeNumber},
	{Name: "day", Type: TypeDate},
}}

func TestLoadCSVCoercesAndWarns(t *testing.T) {
	input := "region,value,day\nCA,\"1,500\",2024-01-02\nTX,n/a,2024-02-30\nNY,,2024-03-01\n"
	ds, warnings, err := LoadCSV("sales", strings.NewReader(input), salesSchema)
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if v, ok := ds.Rows[0].Number("value"); !ok || v != 1500 {
		t.Fatalf("expected 1500, got %v (%v)", v, ok)
	}
	if ds.Rows[1].Has("value") {
		t.Fatalf("non-numeric cell must be absent, not NaN")
	}
	if ds.Rows[2].Has("value") {
		t.Fatalf("empty cell must be absent")
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	if warnings[0].Kind != model.WarnNotNumeric || warnings[0].Row != 1 || warnings[0].Field != "value" {
		t.Fatalf("unexpected first warning %+v", warnings[0])
	}
	if warnings[1].Kind != model.WarnBadDate {
		t.Fatalf("unexpected second warning %+v", warnings[1])
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	_, _, err := LoadCSV("x", strings.NewReader("region\nCA\n"), salesSchema)
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	_, _, err = LoadCSV("x", strings.NewReader(""), Schema{})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.csv")
	if err := os.WriteFile(path, []byte("\ufeffregion,value\nCA,1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, _, err := LoadCSVFile(path, Schema{Fields: []FieldSpec{{Name: "value", Type: TypeNumber}}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Name != "states" {
		t.Fatalf("expected name states, got %q", ds.Name)
	}
	if r, ok := ds.Rows[0].Text("region"); !ok || r != "CA" {
		t.Fatalf("expected region CA, got %q", r)
	}
}

func TestParseFieldType(t *testing.T) {
	if ft, err := ParseFieldType("Number"); err != nil || ft != TypeNumber {
		t.Fatalf("expected number, got %v %v", ft, err)
	}
	if ft, _ := ParseFieldType(""); ft != TypeString {
		t.Fatalf("expected string default, got %v", ft)
	}
	if _, err := ParseFieldType("blob"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestParseNumberRejectsNaN(t *testing.T) {
	for _, raw := range []string{"NaN", "inf", "abc"} {
		if _, err := ParseNumber(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := map[string]string{
		"A2": "region", "B2": "value",
		"A3": "CA", "B3": "150",
		"A4": "TX", "B4": "forty",
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	path := filepath.Join(t.TempDir(), "states.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = f.Close()

	ds, warnings, err := LoadXLSX(path, "", Schema{Fields: []FieldSpec{{Name: "value", Type: TypeNumber}}})
	if err != nil {
		t.Fatalf("load xlsx: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	if v, ok := ds.Rows[0].Number("value"); !ok || v != 150 {
		t.Fatalf("expected 150, got %v", v)
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnNotNumeric {
		t.Fatalf("expected one not-numeric warning, got %v", warnings)
	}
	if _, _, err := LoadXLSX(path, "Missing", Schema{}); !errors.Is(err, ErrNoSheet) {
		t.Fatalf("expected ErrNoSheet, got %v", err)
	}
}

const statesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 6, "properties": {"code": "CA", "name": "California"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"code": "HI", "name": "Hawaii"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[5,5],[6,5],[6,6],[5,5]]],[[[7,7],[8,7],[8,8],[7,7]]]]}},
    {"type": "Feature", "properties": {"code": "PT"},
     "geometry": {"type": "Point", "coordinates": [3,3]}}
  ]
}`

func TestParseTopology(t *testing.T) {
	topo, err := ParseTopology([]byte(statesGeoJSON), "code", "name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(topo.Regions) != 2 {
		t.Fatalf("expected 2 polygon regions, got %d", len(topo.Regions))
	}
	if topo.Regions[0].ID != "CA" || topo.Regions[0].Name != "California" {
		t.Fatalf("unexpected first region %+v", topo.Regions[0])
	}
	if len(topo.Regions[1].Shape) != 2 {
		t.Fatalf("expected multipolygon with 2 parts")
	}

	byID, err := ParseTopology([]byte(statesGeoJSON), "", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if byID.Regions[0].ID != "6" {
		t.Fatalf("expected feature id 6, got %q", byID.Regions[0].ID)
	}

	if _, err := ParseTopology([]byte(`{"type":"FeatureCollection","features":[]}`), "", ""); !errors.Is(err, ErrNoRegions) {
		t.Fatalf("expected ErrNoRegions, got %v", err)
	}
}

func TestFilters(t *testing.T) {
	ds, _, err := LoadCSV("x", strings.NewReader("k,v\na,1\nb,5\nc,9\n"), Schema{Fields: []FieldSpec{{Name: "v", Type: TypeNumber}}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	gte, err := FilterFor(Filter{Field: "v", Op: "gte", Value: "5"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	in, err := FilterFor(Filter{Field: "k", Op: "in", Value: "a, c"})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	out := Apply(ds, gte, in)
	if out.Len() != 1 {
		t.Fatalf("expected one row, got %d", out.Len())
	}
	if k, _ := out.Rows[0].Text("k"); k != "c" || out.Rows[0].Index() != 2 {
		t.Fatalf("expected row c at index 2, got %q %d", k, out.Rows[0].Index())
	}
	if _, err := FilterFor(Filter{Field: "v", Op: "like"}); err == nil {
		t.Fatalf("expected unknown op error")
	}
}

func TestFetchCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("k,v\na,1\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	url := srv.URL + "/data.csv?v=1"
	path, err := Fetch(context.Background(), url, dir, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Fatalf("expected csv extension, got %s", path)
	}
	if _, err := Fetch(context.Background(), url, dir, false); err != nil {
		t.Fatalf("fetch cached: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one request, got %d", hits)
	}
	if _, err := Fetch(context.Background(), url, dir, true); err != nil {
		t.Fatalf("fetch refresh: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected refresh to hit the server, got %d", hits)
	}
	if !IsRemote(url) || IsRemote(path) {
		t.Fatalf("IsRemote misclassified paths")
	}
}
