package chart

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/chartpipe/internal/dataset"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// SourceKind selects how a Source is read.
type SourceKind string

// Source kinds. An empty kind is inferred from the path extension.
const (
	SourceCSV    SourceKind = "csv"
	SourceXLSX   SourceKind = "xlsx"
	SourceSQLite SourceKind = "sqlite"
)

// ErrNoStore is returned for a sqlite source when no store is configured.
var ErrNoStore = errors.New("sqlite source needs a dataset store")

// DatasetStore reads previously imported datasets.
type DatasetStore interface {
	LoadDataset(ctx context.Context, name string) (model.Dataset, error)
}

// Source describes where a chart's data lives.
type Source struct {
	Kind    SourceKind
	Path    string
	Sheet   string
	Dataset string

	Topology       string
	RegionProperty string
	NameProperty   string

	Schema  dataset.Schema
	Filters []dataset.Filter

	CacheDir string
	Refresh  bool
}

// InferKind returns the explicit kind or one derived from Path.
func (s Source) InferKind() SourceKind {
	if s.Kind != "" {
		return s.Kind
	}
	if s.Dataset != "" && s.Path == "" {
		return SourceSQLite
	}
	switch strings.ToLower(filepath.Ext(strings.SplitN(s.Path, "?", 2)[0])) {
	case ".xlsx", ".xlsm":
		return SourceXLSX
	default:
		return SourceCSV
	}
}

// Loader builds the loader for this source. store may be nil unless the
// source kind is sqlite.
func (s Source) Loader(store DatasetStore) (Loader, error) {
	filters := make([]dataset.FilterFunc, 0, len(s.Filters))
	for _, f := range s.Filters {
		fn, err := dataset.FilterFor(f)
		if err != nil {
			return nil, err
		}
		filters = append(filters, fn)
	}
	kind := s.InferKind()
	switch kind {
	case SourceCSV, SourceXLSX:
		if s.Path == "" {
			return nil, fmt.Errorf("%s source needs a path", kind)
		}
	case SourceSQLite:
		if store == nil {
			return nil, ErrNoStore
		}
		if s.Dataset == "" {
			return nil, fmt.Errorf("sqlite source needs a dataset name")
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}

	return func(ctx context.Context) (Data, error) {
		var (
			ds       model.Dataset
			warnings []model.Warning
			err      error
		)
		switch kind {
		case SourceSQLite:
			ds, err = store.LoadDataset(ctx, s.Dataset)
		default:
			var path string
			path, err = s.localPath(ctx, s.Path)
			if err != nil {
				return Data{}, err
			}
			if kind == SourceXLSX {
				ds, warnings, err = dataset.LoadXLSX(path, s.Sheet, s.Schema)
			} else {
				ds, warnings, err = dataset.LoadCSVFile(path, s.Schema)
			}
		}
		if err != nil {
			return Data{}, err
		}
		if s.Dataset != "" {
			ds.Name = s.Dataset
		}
		data := Data{Dataset: dataset.Apply(ds, filters...), Warnings: warnings}

		if s.Topology != "" {
			path, err := s.localPath(ctx, s.Topology)
			if err != nil {
				return Data{}, err
			}
			topo, err := dataset.LoadTopology(path, s.RegionProperty, s.NameProperty)
			if err != nil {
				return Data{}, fmt.Errorf("topology: %w", err)
			}
			data.Topology = topo
		}
		return data, nil
	}, nil
}

// Paths returns the local files a source reads, for change watching.
func (s Source) Paths() []string {
	var out []string
	for _, p := range []string{s.Path, s.Topology} {
		if p != "" && !dataset.IsRemote(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s Source) localPath(ctx context.Context, p string) (string, error) {
	if !dataset.IsRemote(p) {
		return p, nil
	}
	return dataset.Fetch(ctx, p, s.CacheDir, s.Refresh)
}
