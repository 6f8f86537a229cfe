package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// LoadCSV reads a CSV stream whose first record is the header.
func LoadCSV(name string, r io.Reader, schema Schema) (model.Dataset, []model.Warning, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.Dataset{}, nil, ErrEmptyInput
	}
	if err != nil {
		return model.Dataset{}, nil, fmt.Errorf("read csv header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return model.Dataset{}, nil, fmt.Errorf("read csv records: %w", err)
	}
	return Coerce(name, header, records, schema)
}

// LoadCSVFile reads a CSV file.
func LoadCSVFile(path string, schema Schema) (model.Dataset, []model.Warning, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Dataset{}, nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	return LoadCSV(NameFromPath(path), file, schema)
}

// NameFromPath derives a dataset name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
