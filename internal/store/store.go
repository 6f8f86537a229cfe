// Package store handles SQLite persistence of imported datasets.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/chartpipe/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned for unknown dataset names.
var ErrNotFound = errors.New("dataset not found")

// Store wraps SQLite access for imported datasets.
type Store struct {
	db *sql.DB
}

// DatasetInfo summarises one stored dataset.
type DatasetInfo struct {
	ID         int64
	Name       string
	Source     string
	ImportedAt time.Time
	Rows       int
	Fields     []string
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			row_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS dataset_fields (
			dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (dataset_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS dataset_cells (
			dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			row_idx INTEGER NOT NULL,
			field TEXT NOT NULL,
			kind INTEGER NOT NULL,
			num REAL,
			str TEXT,
			PRIMARY KEY (dataset_id, row_idx, field)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_cells_row ON dataset_cells(dataset_id, row_idx);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDataset stores ds under its name, replacing any dataset with the same
// name. Absent fields are not stored, so they load back as absent.
func (s *Store) SaveDataset(ctx context.Context, ds model.Dataset, source string) (id int64, err error) {
	if ds.Name == "" {
		return 0, fmt.Errorf("dataset name is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dataset_cells WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, ds.Name); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM dataset_fields WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, ds.Name); err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, ds.Name); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, source, imported_at, row_count) VALUES (?, ?, ?, ?)`,
		ds.Name, source, time.Now().UTC().Format(time.RFC3339Nano), ds.Len())
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	fields := fieldNames(ds)
	for i, name := range fields {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO dataset_fields (dataset_id, position, name) VALUES (?, ?, ?)`, id, i, name); err != nil {
			return 0, err
		}
	}

	if ds.Len() > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO dataset_cells (dataset_id, row_idx, field, kind, num, str)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, row := range ds.Rows {
			for _, name := range row.Fields() {
				v, _ := row.Get(name)
				num, str := encodeValue(v)
				if _, err = stmt.ExecContext(ctx, id, i, name, int(v.Kind), num, str); err != nil {
					return 0, err
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// LoadDataset reads a stored dataset back in its original row order.
func (s *Store) LoadDataset(ctx context.Context, name string) (model.Dataset, error) {
	var id int64
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT id, row_count FROM datasets WHERE name = ?`, name).Scan(&id, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return model.Dataset{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, field, kind, num, str FROM dataset_cells
		 WHERE dataset_id = ?
		 ORDER BY row_idx ASC`, id)
	if err != nil {
		return model.Dataset{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	cells := make([]map[string]model.Value, count)
	for i := range cells {
		cells[i] = map[string]model.Value{}
	}
	for rows.Next() {
		var idx, kind int
		var field string
		var num sql.NullFloat64
		var str sql.NullString
		if err := rows.Scan(&idx, &field, &kind, &num, &str); err != nil {
			return model.Dataset{}, err
		}
		if idx < 0 || idx >= count {
			return model.Dataset{}, fmt.Errorf("dataset %q: row %d out of range", name, idx)
		}
		v, err := decodeValue(model.ValueKind(kind), num, str)
		if err != nil {
			return model.Dataset{}, fmt.Errorf("dataset %q row %d field %q: %w", name, idx, field, err)
		}
		cells[idx][field] = v
	}
	if err := rows.Err(); err != nil {
		return model.Dataset{}, err
	}

	ds := model.Dataset{Name: name, Rows: make([]model.Row, count)}
	for i, fields := range cells {
		ds.Rows[i] = model.NewRow(i, fields)
	}
	return ds, nil
}

// ListDatasets returns stored datasets ordered by name.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, imported_at, row_count
		 FROM datasets
		 ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		var importedAt string
		if err := rows.Scan(&info.ID, &info.Name, &info.Source, &importedAt, &info.Rows); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, importedAt)
		if err != nil {
			return nil, err
		}
		info.ImportedAt = parsed
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	fields, err := s.fieldsByDataset(ctx, result)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Fields = fields[result[i].ID]
	}
	return result, nil
}

func (s *Store) fieldsByDataset(ctx context.Context, infos []DatasetInfo) (map[int64][]string, error) {
	placeholders := make([]string, len(infos))
	args := make([]any, len(infos))
	for i, info := range infos {
		placeholders[i] = "?"
		args[i] = info.ID
	}
	query := fmt.Sprintf(`SELECT dataset_id, name FROM dataset_fields
		WHERE dataset_id IN (%s)
		ORDER BY dataset_id, position`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int64][]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = append(result[id], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDataset removes a dataset and its cells.
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_cells WHERE dataset_id NOT IN (SELECT id FROM datasets)`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_fields WHERE dataset_id NOT IN (SELECT id FROM datasets)`); err != nil {
		return err
	}
	return tx.Commit()
}

func fieldNames(ds model.Dataset) []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range ds.Rows {
		for _, name := range row.Fields() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func encodeValue(v model.Value) (any, any) {
	switch v.Kind {
	case model.ValueNumber:
		return v.Num, nil
	case model.ValueDate:
		return nil, v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return nil, v.Str
	}
}

func decodeValue(kind model.ValueKind, num sql.NullFloat64, str sql.NullString) (model.Value, error) {
	switch kind {
	case model.ValueNumber:
		if !num.Valid {
			return model.Value{}, fmt.Errorf("number cell without value")
		}
		return model.NumberValue(num.Float64), nil
	case model.ValueDate:
		t, err := time.Parse(time.RFC3339Nano, str.String)
		if err != nil {
			return model.Value{}, err
		}
		return model.DateValue(t), nil
	case model.ValueString:
		return model.StringValue(str.String), nil
	}
	return model.Value{}, fmt.Errorf("unknown value kind %d", kind)
}
