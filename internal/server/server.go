// Package server serves rendered charts over HTTP.
//
// The index page embeds the SVG of every chart; each chart is also available
// as a standalone document, and can be reloaded from its source.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/chartpipe/internal/chart"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/metrics"
	"github.com/verte-zerg/chartpipe/internal/model"
	"github.com/verte-zerg/chartpipe/internal/render"
)

// Width limits for the width query parameter.
const (
	DefaultWidth = 720
	MinWidth     = 80
	MaxWidth     = 4096
)

// Entry is one served chart.
type Entry struct {
	Chart *chart.Chart
	Title string
	// Loader is used by the reload endpoint. Nil disables reloading.
	Loader chart.Loader
	Format chart.Formatter
}

// Config holds server settings.
type Config struct {
	Addr  string
	Width int
}

type entry struct {
	Entry
	// mu keeps resize and frame snapshot together per request.
	mu sync.Mutex
}

// Server is the HTTP surface.
type Server struct {
	srv     *http.Server
	engine  *gin.Engine
	entries []*entry
	byID    map[string]*entry
	width   int
	metrics *metrics.Metrics
	log     logging.Logger
}

// New builds a server for entries and sizes every chart to the default width.
// m and log may be nil.
func New(cfg Config, entries []Entry, m *metrics.Metrics, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	width := cfg.Width
	if width <= 0 {
		width = DefaultWidth
	}
	s := &Server{
		byID:    make(map[string]*entry, len(entries)),
		width:   clampWidth(width),
		metrics: m,
		log:     log.Named("server"),
	}
	for _, e := range entries {
		if e.Format == nil {
			e.Format = chart.DefaultFormatter
		}
		en := &entry{Entry: e}
		s.entries = append(s.entries, en)
		s.byID[e.Chart.ID()] = en
		// Charts render at the default width as soon as their data arrives.
		if err := e.Chart.Resize(model.Size{Width: float64(s.width)}); err != nil {
			s.log.Warn("initial render failed", logging.String("chart", e.Chart.ID()), logging.Err(err))
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.log))
	engine.GET("/", s.index)
	engine.GET("/healthz", s.health)
	engine.GET("/charts", s.list)
	engine.GET("/charts/:name", s.document)
	engine.POST("/charts/:name/reload", s.reload)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	s.engine = engine

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.log.Info("listening", logging.String("addr", s.srv.Addr), logging.Int("charts", len(s.entries)))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>chartpipe</title>
<style>
body { font-family: Roboto, Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
section { max-width: {{.Width}}px; margin-bottom: 2.5rem; }
h2 { font-size: 1.1rem; font-weight: 500; }
.missing { color: #999; }
.warnings { color: #a06b00; font-size: 0.85rem; }
</style>
</head>
<body>
{{range .Charts}}<section id="{{.ID}}">
<h2>{{.Title}}</h2>
{{if .SVG}}{{.SVG}}{{else}}<p class="missing">{{.Missing}}</p>{{end}}
{{if .Warnings}}<p class="warnings">{{.Warnings}} data warnings</p>{{end}}
</section>
{{else}}<p class="missing">No charts configured.</p>
{{end}}</body>
</html>
`))

type indexChart struct {
	ID       string
	Title    string
	SVG      template.HTML
	Missing  string
	Warnings int
}

func (s *Server) index(c *gin.Context) {
	width, err := s.widthParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	page := struct {
		Width  int
		Charts []indexChart
	}{Width: width}
	for _, e := range s.entries {
		item := indexChart{ID: e.Chart.ID(), Title: e.title(), Warnings: len(e.Chart.Warnings())}
		var buf bytes.Buffer
		switch err := s.writeChart(&buf, e, width); {
		case err == nil:
			item.SVG = template.HTML(buf.String())
		default:
			item.Missing = err.Error()
		}
		page.Charts = append(page.Charts, item)
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(c.Writer, page); err != nil {
		s.log.Error("index render failed", logging.Err(err))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "charts": len(s.entries)})
}

type chartInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Rendered bool   `json:"rendered"`
	Warnings int    `json:"warnings"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) list(c *gin.Context) {
	out := make([]chartInfo, 0, len(s.entries))
	for _, e := range s.entries {
		_, rendered := e.Chart.Frame()
		info := chartInfo{
			ID:       e.Chart.ID(),
			Title:    e.title(),
			Kind:     string(e.Chart.Spec().Kind),
			Rendered: rendered,
			Warnings: len(e.Chart.Warnings()),
		}
		if err := e.Chart.Err(); err != nil {
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) document(c *gin.Context) {
	id, ok := strings.CutSuffix(c.Param("name"), ".svg")
	if !ok {
		c.String(http.StatusNotFound, "not found")
		return
	}
	e, ok := s.byID[id]
	if !ok {
		c.String(http.StatusNotFound, "unknown chart %q", id)
		return
	}
	width, err := s.widthParam(c)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := s.writeChart(&buf, e, width); err != nil {
		c.String(http.StatusServiceUnavailable, "%s", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (s *Server) reload(c *gin.Context) {
	e, ok := s.byID[c.Param("name")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart"})
		return
	}
	if e.Loader == nil {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "chart has no source"})
		return
	}
	err := e.Chart.Load(c.Request.Context(), e.Loader)
	switch {
	case errors.Is(err, chart.ErrStale):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		s.log.Warn("reload failed", logging.String("chart", e.Chart.ID()), logging.Err(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"id": e.Chart.ID(), "warnings": len(e.Chart.Warnings())})
	}
}

// writeChart sizes the chart to width and writes its current frame.
func (s *Server) writeChart(buf *bytes.Buffer, e *entry, width int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.Chart.Resize(model.Size{Width: float64(width)}); err != nil {
		return err
	}
	f, ok := e.Chart.Frame()
	if !ok {
		if err := e.Chart.Err(); err != nil {
			return fmt.Errorf("chart unavailable: %w", err)
		}
		return errors.New("chart not rendered yet")
	}
	return render.WriteSVG(buf, f, render.Options{
		Title:       e.title(),
		Format:      e.Format,
		Interactive: true,
	})
}

func (s *Server) widthParam(c *gin.Context) (int, error) {
	raw := c.Query("width")
	if raw == "" {
		return s.width, nil
	}
	w, err := strconv.Atoi(raw)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("invalid width %q", raw)
	}
	return clampWidth(w), nil
}

func clampWidth(w int) int {
	switch {
	case w < MinWidth:
		return MinWidth
	case w > MaxWidth:
		return MaxWidth
	}
	return w
}

func (e *entry) title() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Chart.ID()
}

// requestLogger logs each request at a level matching its status. Health
// checks are skipped.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
			logging.Int("bytes", c.Writer.Size()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}
