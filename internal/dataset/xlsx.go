package dataset

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// ErrNoSheet is returned when a workbook has no usable sheet.
var ErrNoSheet = errors.New("sheet not found")

// LoadXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet. The first non-empty row is the header.
func LoadXLSX(path, sheet string, schema Schema) (model.Dataset, []model.Warning, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.Dataset{}, nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return model.Dataset{}, nil, ErrNoSheet
		}
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return model.Dataset{}, nil, fmt.Errorf("%w: %q", ErrNoSheet, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return model.Dataset{}, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return model.Dataset{}, nil, ErrEmptyInput
	}
	return Coerce(NameFromPath(path)+":"+sheet, rows[0], rows[1:], schema)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
