package dataset

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// FilterFunc returns true when a row should be kept.
type FilterFunc func(model.Row) bool

// Filter describes a row filter from configuration.
type Filter struct {
	Field string
	Op    string
	Value string
}

// FilterFor compiles a filter. Supported ops: eq, ne, gt, gte, lt, lte, in.
// Numeric comparisons apply to number fields; eq, ne and in compare text.
// The value of "in" is a comma separated list.
func FilterFor(f Filter) (FilterFunc, error) {
	if f.Field == "" {
		return nil, fmt.Errorf("filter needs a field")
	}
	op := strings.ToLower(strings.TrimSpace(f.Op))
	switch op {
	case "", "eq":
		return func(r model.Row) bool {
			t, ok := r.Text(f.Field)
			return ok && t == f.Value
		}, nil
	case "ne":
		return func(r model.Row) bool {
			t, ok := r.Text(f.Field)
			return !ok || t != f.Value
		}, nil
	case "in":
		set := make(map[string]struct{})
		for _, v := range strings.Split(f.Value, ",") {
			set[strings.TrimSpace(v)] = struct{}{}
		}
		return func(r model.Row) bool {
			t, ok := r.Text(f.Field)
			if !ok {
				return false
			}
			_, hit := set[t]
			return hit
		}, nil
	case "gt", "gte", "lt", "lte":
		bound, err := ParseNumber(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %s %s: %w", f.Field, op, err)
		}
		return func(r model.Row) bool {
			v, ok := r.Number(f.Field)
			if !ok {
				return false
			}
			switch op {
			case "gt":
				return v > bound
			case "gte":
				return v >= bound
			case "lt":
				return v < bound
			default:
				return v <= bound
			}
		}, nil
	}
	return nil, fmt.Errorf("unknown filter op %q", f.Op)
}

// Apply keeps rows accepted by every filter. Rows keep their source index.
func Apply(ds model.Dataset, filters ...FilterFunc) model.Dataset {
	if len(filters) == 0 {
		return ds
	}
	out := model.Dataset{Name: ds.Name, Rows: make([]model.Row, 0, len(ds.Rows))}
	for _, row := range ds.Rows {
		keep := true
		for _, fn := range filters {
			if !fn(row) {
				keep = false
				break
			}
		}
		if keep {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
