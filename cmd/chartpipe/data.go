package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/chartpipe/internal/dataset"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/sample"
	"github.com/verte-zerg/chartpipe/internal/store"
)

var (
	importName  string
	importSheet string
	importTypes []string

	demoDir  string
	demoSeed int64
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV or XLSX file into the dataset store",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importName, "name", "", "dataset name (default: file name)")
	cmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet (default: first sheet)")
	cmd.Flags().StringSliceVar(&importTypes, "type", nil, "column type as field=number|date|string, or field=date:layout")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	path := args[0]
	schema, err := parseTypeFlags(importTypes)
	if err != nil {
		return err
	}

	var (
		ds       model.Dataset
		warnings []model.Warning
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ds, warnings, err = dataset.LoadXLSX(path, importSheet, schema)
	default:
		ds, warnings, err = dataset.LoadCSVFile(path, schema)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if importName != "" {
		ds.Name = importName
	}
	for _, w := range warnings {
		logErrf("warning: %s\n", w)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if _, err := st.SaveDataset(cmdContext(cmd), ds, path); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	logErrf("Imported %s rows as %q (%d warnings)\n", humanize.Comma(int64(len(ds.Rows))), ds.Name, len(warnings))
	return nil
}

// parseTypeFlags turns field=type pairs into a schema.
func parseTypeFlags(values []string) (dataset.Schema, error) {
	var schema dataset.Schema
	for _, v := range values {
		name, typ, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return dataset.Schema{}, fmt.Errorf("invalid --type %q (want field=type)", v)
		}
		typ, layout, _ := strings.Cut(typ, ":")
		ft, err := dataset.ParseFieldType(typ)
		if err != nil {
			return dataset.Schema{}, fmt.Errorf("invalid --type %q: %w", v, err)
		}
		schema.Fields = append(schema.Fields, dataset.FieldSpec{Name: strings.TrimSpace(name), Type: ft, Layout: layout})
	}
	return schema, nil
}

func newDatasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List imported datasets",
		Args:  cobra.NoArgs,
		RunE:  runDatasetsCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete an imported dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runDatasetsDeleteCmd,
	})
	return cmd
}

func runDatasetsCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	infos, err := st.ListDatasets(cmdContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		logErrln("No datasets imported. Import one with: chartpipe import <file>")
		return nil
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			humanize.Comma(int64(info.Rows)),
			strings.Join(info.Fields, ","),
			humanize.Time(info.ImportedAt),
			info.Source,
		})
	}
	lines := formatTable([]string{"NAME", "ROWS", "FIELDS", "IMPORTED", "SOURCE"}, rows, map[int]bool{1: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runDatasetsDeleteCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if err := st.DeleteDataset(cmdContext(cmd), args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("dataset %q not found", args[0])
		}
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	logErrf("Deleted %s\n", args[0])
	return nil
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write sample datasets and a config with one chart per kind",
		Args:  cobra.NoArgs,
		RunE:  runDemoCmd,
	}
	cmd.Flags().StringVar(&demoDir, "dir", "chartpipe-demo", "output directory")
	cmd.Flags().Int64Var(&demoSeed, "seed", defaultSeed, "random seed")
	return cmd
}

func runDemoCmd(_ *cobra.Command, _ []string) error {
	demo, err := sample.WriteDemo(demoDir, demoSeed)
	if err != nil {
		return err
	}
	for _, f := range demo.Files {
		logErrf("Wrote %s\n", f)
	}
	logErrf("Try: chartpipe --config %s serve\n", demo.ConfigPath)
	logErrf("  or: chartpipe --config %s view sizes\n", demo.ConfigPath)
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
