// Package bind joins dataset rows to keyed visual elements.
//
// Identity always comes from a key derived from the data, never from a row's
// position, so re-sorting or filtering a dataset cannot move an element onto
// the wrong row.
package bind

import (
	"fmt"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// ElementSet is an ordered collection of elements keyed by identity.
type ElementSet struct {
	order []string
	byKey map[string]*model.VisualElement
}

// NewElementSet returns an empty set.
func NewElementSet() *ElementSet {
	return &ElementSet{byKey: make(map[string]*model.VisualElement)}
}

// Len returns the number of elements.
func (s *ElementSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Get returns the element with key.
func (s *ElementSet) Get(key string) (*model.VisualElement, bool) {
	if s == nil {
		return nil, false
	}
	el, ok := s.byKey[key]
	return el, ok
}

// Has reports whether key is bound.
func (s *ElementSet) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys returns keys in render order.
func (s *ElementSet) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Elements returns the elements in render order.
func (s *ElementSet) Elements() []*model.VisualElement {
	if s == nil {
		return nil
	}
	out := make([]*model.VisualElement, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

func (s *ElementSet) add(el *model.VisualElement) {
	s.order = append(s.order, el.Key)
	s.byKey[el.Key] = el
}

// Result is the outcome of one join.
type Result struct {
	Entering []*model.VisualElement
	Updating []*model.VisualElement
	Exiting  []*model.VisualElement
	Warnings []model.Warning
	// Next holds entering and updating elements in the order of the fresh input.
	Next *ElementSet
}

// Exited returns the keys of exiting elements.
func (r Result) Exited() []string {
	keys := make([]string, 0, len(r.Exiting))
	for _, el := range r.Exiting {
		keys = append(keys, el.Key)
	}
	return keys
}

// KeyFunc derives the identity of a row.
type KeyFunc func(model.Row) string

// BuildFunc builds the element for a row. A nil element drops the row; the
// returned warnings explain why.
type BuildFunc func(model.Row) (*model.VisualElement, []model.Warning)

// Reconcile builds one element per row and joins them against existing.
// Rows with an empty key are dropped; for duplicate keys the first row wins.
func Reconcile(existing *ElementSet, rows []model.Row, keyFn KeyFunc, buildFn BuildFunc) Result {
	var warnings []model.Warning
	seen := make(map[string]struct{}, len(rows))
	fresh := make([]*model.VisualElement, 0, len(rows))
	for _, row := range rows {
		key := keyFn(row)
		if key == "" {
			warnings = append(warnings, model.Warning{
				Kind: model.WarnEmptyKey, Row: row.Index(), Message: "row has no identity key",
			})
			continue
		}
		if _, dup := seen[key]; dup {
			warnings = append(warnings, duplicateWarning(key, row.Index()))
			continue
		}
		seen[key] = struct{}{}
		el, ws := buildFn(row)
		warnings = append(warnings, ws...)
		if el == nil {
			continue
		}
		el.Key = key
		fresh = append(fresh, el)
	}
	res := Join(existing, fresh)
	res.Warnings = append(warnings, res.Warnings...)
	return res
}

// Join partitions fresh elements against existing ones by key.
//
// Updating elements keep the pointer from existing and take the new geometry,
// fill and datum. When a fresh element carries a From geometry (transitions
// enabled) an updating element animates from its previous geometry instead.
func Join(existing *ElementSet, fresh []*model.VisualElement) Result {
	res := Result{Next: NewElementSet()}
	for _, el := range fresh {
		if el == nil {
			continue
		}
		if el.Key == "" {
			res.Warnings = append(res.Warnings, model.Warning{
				Kind: model.WarnEmptyKey, Row: el.Datum.Index(), Message: "element has no identity key",
			})
			continue
		}
		if res.Next.Has(el.Key) {
			res.Warnings = append(res.Warnings, duplicateWarning(el.Key, el.Datum.Index()))
			continue
		}
		if prev, ok := existing.Get(el.Key); ok {
			merge(prev, el)
			res.Updating = append(res.Updating, prev)
			res.Next.add(prev)
			continue
		}
		if el.Opacity == 0 {
			el.Opacity = 1
		}
		res.Entering = append(res.Entering, el)
		res.Next.add(el)
	}
	for _, el := range existing.Elements() {
		if !res.Next.Has(el.Key) {
			res.Exiting = append(res.Exiting, el)
		}
	}
	return res
}

func merge(dst, src *model.VisualElement) {
	if src.From != nil {
		old := dst.Geometry
		dst.From = &old
	} else {
		dst.From = nil
	}
	dst.Label = src.Label
	dst.Series = src.Series
	dst.Value = src.Value
	dst.Geometry = src.Geometry
	dst.Fill = src.Fill
	dst.Opacity = 1
	dst.Datum = src.Datum
	dst.NoData = src.NoData
}

func duplicateWarning(key string, row int) model.Warning {
	return model.Warning{
		Kind:    model.WarnDuplicateKey,
		Row:     row,
		Key:     key,
		Message: fmt.Sprintf("row %d repeats key; first occurrence kept", row),
	}
}
