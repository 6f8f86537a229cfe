package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/chartpipe/internal/config"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/metrics"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/render"
	"github.com/verte-zerg/chartpipe/internal/server"
	"github.com/verte-zerg/chartpipe/internal/viewer"
)

var (
	renderWidth  int
	renderOutDir string
	renderFixed  bool

	viewWatch bool

	serveAddr    string
	serveWidth   int
	serveMetrics bool
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [chart-id...]",
		Short: "Render charts to SVG files",
		Long:  "Render configured charts to SVG. With --out - a single chart is written to stdout.",
		RunE:  runRenderCmd,
	}
	cmd.Flags().IntVar(&renderWidth, "width", defaultWidth, "container width in pixels")
	cmd.Flags().StringVar(&renderOutDir, "out", config.DefaultOutputDir(), "output directory, or - for stdout")
	cmd.Flags().BoolVar(&renderFixed, "fixed", false, "write a fixed width and height instead of scaling to the container")
	return cmd
}

func runRenderCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "width", &renderWidth, fileCfg.Render.Width)
	applyStringConfig(cmd, "out", &renderOutDir, fileCfg.Render.OutputDir)
	applyBoolConfig(cmd, "fixed", &renderFixed, fileCfg.Render.Fixed)
	if renderWidth <= 0 {
		return fmt.Errorf("--width must be > 0")
	}

	log, err := newLogger("stderr")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	set, err := buildCharts(fileCfg, args, log, nil)
	if err != nil {
		return err
	}
	defer set.close()

	toStdout := renderOutDir == "-"
	if toStdout && len(set.items) != 1 {
		return fmt.Errorf("--out - needs exactly one chart id")
	}
	if !toStdout {
		if err := os.MkdirAll(renderOutDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	size := model.Size{Width: float64(renderWidth)}
	for _, it := range set.items {
		if err := it.chart.Resize(size); err != nil {
			return fmt.Errorf("chart %s: %w", it.cfg.ID, err)
		}
	}
	if err := set.loadAll(ctx); err != nil {
		return err
	}

	for _, it := range set.items {
		f, ok := it.chart.Frame()
		if !ok {
			if toStdout {
				return fmt.Errorf("chart %s did not render", it.cfg.ID)
			}
			continue
		}
		opts := render.Options{Title: it.cfg.Title, Fixed: renderFixed}
		if toStdout {
			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := render.WriteSVG(w, f, opts); err != nil {
				return fmt.Errorf("failed to write svg: %w", err)
			}
			return w.Flush()
		}
		path := filepath.Join(renderOutDir, it.cfg.ID+".svg")
		if err := writeSVGFile(path, f, opts); err != nil {
			return err
		}
		logErrf("Wrote %s\n", path)
	}
	return nil
}

func writeSVGFile(path string, f model.Frame, opts render.Options) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "chart-*.svg")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(tmp)
	if err := render.WriteSVG(w, f, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <chart-id>",
		Short: "Explore a chart in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  runViewCmd,
	}
	cmd.Flags().BoolVar(&viewWatch, "watch", false, "reload when the source files change")
	return cmd
}

func runViewCmd(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("view needs a terminal on stdout (use render to write SVG)")
	}
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file.
	logPath := filepath.Join(config.XDGDataHome(), "chartpipe", "view.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	log, err := newLogger(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	set, err := buildCharts(fileCfg, args, log, nil)
	if err != nil {
		return err
	}
	defer set.close()
	it := set.items[0]

	opts := viewer.Options{Title: it.cfg.Title}
	if viewWatch {
		paths := it.source.Paths()
		if len(paths) == 0 {
			logErrln("nothing to watch: the source has no local files")
		} else {
			w, err := viewer.NewWatcher(paths, viewer.DefaultDebounce, log)
			if err != nil {
				return fmt.Errorf("failed to watch sources: %w", err)
			}
			defer func() {
				if cerr := w.Close(); cerr != nil {
					logErrf("failed to stop watcher: %v\n", cerr)
				}
			}()
			opts.Changes = w.Changes()
		}
	}

	vm := viewer.NewModel(it.chart, it.loader, opts)
	program := tea.NewProgram(vm, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [chart-id...]",
		Short: "Serve charts as an HTML page",
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().IntVar(&serveWidth, "width", defaultWidth, "default chart width in pixels")
	cmd.Flags().BoolVar(&serveMetrics, "metrics", true, "expose /metrics")
	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyIntConfig(cmd, "width", &serveWidth, fileCfg.Server.Width)
	applyBoolConfig(cmd, "metrics", &serveMetrics, fileCfg.Server.Metrics)

	log, err := newLogger("stderr")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var m *metrics.Metrics
	if serveMetrics {
		m = metrics.New(true)
	}
	set, err := buildCharts(fileCfg, args, log, m)
	if err != nil {
		return err
	}
	defer set.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries := make([]server.Entry, 0, len(set.items))
	for _, it := range set.items {
		if err := it.chart.Resize(model.Size{Width: float64(serveWidth)}); err != nil {
			return err
		}
		entries = append(entries, server.Entry{Chart: it.chart, Title: it.cfg.Title, Loader: it.loader})
	}
	if err := set.loadAll(ctx); err != nil {
		log.Warn("no chart loaded", logging.Err(err))
	}

	srv := server.New(server.Config{Addr: serveAddr, Width: serveWidth}, entries, m, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logErrf("Serving %d charts on %s\n", len(entries), serveAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
