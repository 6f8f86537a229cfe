// Package main provides the CLI entrypoint for chartpipe.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/chartpipe/internal/chart"
	"github.com/verte-zerg/chartpipe/internal/config"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/metrics"
	"github.com/verte-zerg/chartpipe/internal/store"
)

const (
	defaultLogLevel  = "warn"
	defaultLogFormat = "console"
	defaultWidth     = 720
	defaultAddr      = ":8080"
	defaultSeed      = 1
)

var (
	configPath string
	logLevel   string
	logFormat  string
	dbPath     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chartpipe",
		Short:         "Render interactive charts from tabular data",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "dataset store path")

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newDatasetsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDemoCmd())

	return rootCmd
}

// loadFileConfig reads the config file and lets it fill the persistent flags
// the user did not set.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Store.Path)
	return fileCfg, nil
}

func newLogger(output string) (logging.Logger, error) {
	log, err := logging.New(logging.Config{Level: logLevel, Format: logFormat, Output: output})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// chartSet is the charts built from the config file plus what they share.
type chartSet struct {
	items []chartItem
	store *store.Store
}

type chartItem struct {
	cfg    config.ChartConfig
	chart  *chart.Chart
	loader chart.Loader
	source chart.Source
}

// buildCharts constructs the selected charts. An empty ids selects all. The
// dataset store is opened only when a chart reads from it.
func buildCharts(fileCfg config.FileConfig, ids []string, log logging.Logger, m *metrics.Metrics) (*chartSet, error) {
	selected := fileCfg.Charts
	if len(ids) > 0 {
		selected = selected[:0:0]
		for _, id := range ids {
			cc, ok := fileCfg.Chart(id)
			if !ok {
				return nil, unknownChartError(id, fileCfg)
			}
			selected = append(selected, cc)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no charts configured in %s (try: chartpipe demo)", configPath)
	}

	set := &chartSet{}
	for _, cc := range selected {
		spec, err := cc.Spec()
		if err != nil {
			set.close()
			return nil, err
		}
		opts, err := cc.Options()
		if err != nil {
			set.close()
			return nil, err
		}
		opts = append(opts, chart.WithLogger(log), chart.WithMetrics(m))
		c, err := chart.New(spec, opts...)
		if err != nil {
			set.close()
			return nil, fmt.Errorf("chart %q: %w", cc.ID, err)
		}
		src, err := cc.DataSource(config.DefaultCacheDir())
		if err != nil {
			set.close()
			return nil, err
		}
		if src.InferKind() == chart.SourceSQLite && set.store == nil {
			st, err := store.Open(dbPath)
			if err != nil {
				set.close()
				return nil, fmt.Errorf("failed to open db: %w", err)
			}
			set.store = st
		}
		var ds chart.DatasetStore
		if set.store != nil {
			ds = set.store
		}
		loader, err := src.Loader(ds)
		if err != nil {
			set.close()
			return nil, fmt.Errorf("chart %q: %w", cc.ID, err)
		}
		set.items = append(set.items, chartItem{cfg: cc, chart: c, loader: loader, source: src})
	}
	return set, nil
}

// loadAll loads every chart. Failures are reported and leave that chart
// empty; the error is returned only when nothing loaded.
func (s *chartSet) loadAll(ctx context.Context) error {
	var lastErr error
	loaded := 0
	for _, it := range s.items {
		if err := it.chart.Load(ctx, it.loader); err != nil {
			logErrf("chart %s: %v\n", it.cfg.ID, err)
			lastErr = err
			continue
		}
		loaded++
	}
	if loaded == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

func (s *chartSet) close() {
	for _, it := range s.items {
		it.chart.Dispose()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logErrf("failed to close db: %v\n", err)
		}
	}
}

func unknownChartError(id string, fileCfg config.FileConfig) error {
	ids := fileCfg.ChartIDs()
	if len(ids) == 0 {
		return fmt.Errorf("unknown chart %q: no charts configured in %s", id, configPath)
	}
	return fmt.Errorf("unknown chart %q (available: %s)", id, strings.Join(ids, ", "))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# chartpipe configuration
# Uncomment a value to enable it. CLI flags override config values.

[log]
# level = %q            # debug, info, warn, error
# format = %q       # console or json

[store]
# path = %q

[server]
# addr = %q
# width = %d
# metrics = true

[render]
# width = %d
# output-dir = %q
# fixed = false

# One [[chart]] table per chart. Run "chartpipe demo" for a complete example.
#
# [[chart]]
# id = "sizes"
# title = "Sizes"
# kind = "grouped"          # grouped, stacked, horizontal, pie, range, choropleth
# aspect-ratio = 0.5
# series = ["A", "B"]
# fields = { category = "size" }
#
# [chart.source]
# path = "sizes.csv"        # csv, xlsx, or an http(s) URL
# types = { A = "number", B = "number" }
`,
		defaultLogLevel,
		defaultLogFormat,
		config.DefaultDBPath(),
		defaultAddr,
		defaultWidth,
		defaultWidth,
		config.DefaultOutputDir(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
