// Package dataset loads tabular and geographic inputs into typed rows.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// FieldType is the declared type of a column.
type FieldType string

// Field types.
const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeDate   FieldType = "date"
)

// Errors returned while coercing records.
var (
	ErrMissingColumn = errors.New("column missing from header")
	ErrUnknownType   = errors.New("unknown field type")
	ErrEmptyInput    = errors.New("input has no header row")
)

// dateLayouts are tried in order when a date field has no layout.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"2006",
}

// FieldSpec declares one typed column.
type FieldSpec struct {
	Name   string
	Type   FieldType
	Layout string
}

// Schema declares the typed columns of a dataset. Columns not listed are kept
// as strings.
type Schema struct {
	Fields []FieldSpec
}

// ParseFieldType validates a type name.
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeString, TypeNumber, TypeDate:
		return t, nil
	case "":
		return TypeString, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Lookup returns the spec for a column.
func (s Schema) Lookup(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Coerce converts a header and text records into rows.
//
// Cells that fail to coerce are left out of the row and reported as warnings;
// they never become NaN. Empty cells are simply absent. A schema column that
// is missing from the header is an error for the whole input.
func Coerce(name string, header []string, records [][]string, schema Schema) (model.Dataset, []model.Warning, error) {
	if len(header) == 0 {
		return model.Dataset{}, nil, ErrEmptyInput
	}
	cols := make([]string, len(header))
	present := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[i] = h
		present[h] = struct{}{}
	}
	for _, f := range schema.Fields {
		if _, ok := present[f.Name]; !ok {
			return model.Dataset{}, nil, fmt.Errorf("%w: %q", ErrMissingColumn, f.Name)
		}
	}

	ds := model.Dataset{Name: name, Rows: make([]model.Row, 0, len(records))}
	var warnings []model.Warning
	for i, rec := range records {
		fields := make(map[string]model.Value, len(cols))
		for c, col := range cols {
			if col == "" || c >= len(rec) {
				continue
			}
			raw := strings.TrimSpace(rec[c])
			if raw == "" {
				continue
			}
			spec, ok := schema.Lookup(col)
			if !ok {
				spec = FieldSpec{Name: col, Type: TypeString}
			}
			v, w, ok := coerceCell(spec, raw)
			if !ok {
				w.Row = i
				warnings = append(warnings, w)
				continue
			}
			fields[col] = v
		}
		ds.Rows = append(ds.Rows, model.NewRow(i, fields))
	}
	return ds, warnings, nil
}

func coerceCell(spec FieldSpec, raw string) (model.Value, model.Warning, bool) {
	switch spec.Type {
	case TypeNumber:
		v, err := ParseNumber(raw)
		if err != nil {
			return model.Value{}, model.Warning{
				Kind:    model.WarnNotNumeric,
				Field:   spec.Name,
				Message: fmt.Sprintf("%q is not a number", raw),
			}, false
		}
		return model.NumberValue(v), model.Warning{}, true
	case TypeDate:
		t, err := ParseDate(raw, spec.Layout)
		if err != nil {
			return model.Value{}, model.Warning{
				Kind:    model.WarnBadDate,
				Field:   spec.Name,
				Message: fmt.Sprintf("%q is not a date", raw),
			}, false
		}
		return model.DateValue(t), model.Warning{}, true
	default:
		return model.StringValue(raw), model.Warning{}, true
	}
}

// ParseNumber parses a numeric cell. Thousands separators are accepted;
// NaN and infinities are rejected.
func ParseNumber(raw string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", raw)
	}
	return v, nil
}

// ParseDate parses a date cell with layout, or with the common layouts when
// layout is empty.
func ParseDate(raw, layout string) (time.Time, error) {
	if layout != "" {
		return time.Parse(layout, raw)
	}
	var lastErr error
	for _, l := range dateLayouts {
		t, err := time.Parse(l, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
