package chart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/chartpipe/internal/bind"
	"github.com/verte-zerg/chartpipe/internal/choropleth"
	"github.com/verte-zerg/chartpipe/internal/layout"
	"github.com/verte-zerg/chartpipe/internal/legend"
	"github.com/verte-zerg/chartpipe/internal/logging"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// Loader fetches the data of a chart. It runs without the chart lock.
type Loader func(ctx context.Context) (Data, error)

// Load runs loader and installs its result as the chart's dataset.
//
// The loader is the only suspend point of the pipeline. Only a complete result
// is installed. If another Load started meanwhile the result is discarded with
// ErrStale; if the chart was disposed it is discarded with ErrDisposed and
// nothing is rendered. On success the chart renders when it has a size.
func (c *Chart) Load(ctx context.Context, loader Loader) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	start := time.Now()
	data, err := loader(ctx)
	if err == nil {
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		c.metrics.ObserveLoad(c.spec.ID, "disposed")
		return ErrDisposed
	}
	if gen != c.gen {
		c.metrics.ObserveLoad(c.spec.ID, "stale")
		return ErrStale
	}
	c.loading = false
	if err != nil {
		c.metrics.ObserveLoad(c.spec.ID, "error")
		c.log.Error("load failed", logging.Err(err))
		c.clearLocked()
		c.err = fmt.Errorf("load: %w", err)
		return c.err
	}
	c.metrics.ObserveLoad(c.spec.ID, "ok")
	c.log.Debug("loaded", logging.Int("rows", data.Dataset.Len()), logging.Duration("took", time.Since(start)))
	c.data = &data
	c.freshData = true
	c.err = nil
	if !c.hasSize {
		c.pending = true
		return nil
	}
	return c.renderLocked()
}

// Resize records the container size and re-renders. While a load is in
// flight, or before the first load, the render is deferred until the load
// completes.
func (c *Chart) Resize(size model.Size) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	c.size = size
	c.hasSize = true
	if c.loading || c.data == nil {
		c.pending = true
		return nil
	}
	return c.renderLocked()
}

// Render re-runs the pipeline on the current data and size.
func (c *Chart) Render() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if c.loading || c.data == nil || !c.hasSize {
		c.pending = true
		return nil
	}
	return c.renderLocked()
}

// Dispose tears the chart down. Pending loads resolve as no-ops.
func (c *Chart) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.clearLocked()
	c.log.Debug("disposed")
}

// Disposed reports whether Dispose was called.
func (c *Chart) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Loading reports whether a load is in flight.
func (c *Chart) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Pending reports whether a render is waiting for data or a usable size.
func (c *Chart) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Err reports the last load or render error.
func (c *Chart) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Warnings returns the data warnings of the last render, including those
// raised while loading.
func (c *Chart) Warnings() []model.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Warning(nil), c.warnings...)
}

func (c *Chart) clearLocked() {
	c.data = nil
	c.tooltip.Forget(c.elements.Keys())
	c.tooltip.Leave(legendKey(c.hoverLabel))
	c.elements = bind.NewElementSet()
	c.axes = nil
	c.legend = nil
	c.hoverLabel = ""
	c.warnings = nil
	c.rendered = false
}

func (c *Chart) renderLocked() error {
	start := time.Now()
	lay, err := layout.Compute(c.size, c.spec.AspectRatio, c.spec.Margins)
	if errors.Is(err, layout.ErrDetached) {
		c.pending = true
		c.log.Debug("render deferred: container detached")
		return nil
	}
	if err != nil {
		c.err = fmt.Errorf("layout: %w", err)
		return c.err
	}

	area := bind.Area{Width: lay.InnerWidth, Height: lay.InnerHeight}
	var plan bind.Plan
	if c.spec.Kind == model.KindChoropleth {
		plan, err = choropleth.Render(c.data.Topology, c.data.Dataset.Rows, choropleth.OptionsFromSpec(c.spec, area))
	} else {
		build, ok := bind.ForKind(c.spec.Kind)
		if !ok {
			err = fmt.Errorf("%w: no builder for %q", ErrInvalidSpec, c.spec.Kind)
		} else {
			plan, err = build(c.data.Dataset.Rows, c.spec, area)
		}
	}
	if err != nil {
		c.err = fmt.Errorf("render: %w", err)
		c.log.Error("render failed", logging.Err(err))
		return c.err
	}

	res := bind.Join(c.elements, plan.Elements)
	c.layout = lay
	c.elements = res.Next
	c.tooltip.Forget(res.Exited())
	c.axes = plan.Axes

	entries := legend.Build(plan.Colors)
	if _, ok := legend.Find(entries, c.hoverLabel); !ok && c.hoverLabel != "" {
		c.tooltip.Leave(legendKey(c.hoverLabel))
		c.hoverLabel = ""
	}
	c.legend = legend.Activate(entries, c.hoverLabel)
	legend.Highlight(c.elements.Elements(), legend.ActiveColor(c.legend))
	c.refreshTooltipLocked()

	warnings := make([]model.Warning, 0, len(c.data.Warnings)+len(plan.Warnings)+len(res.Warnings))
	warnings = append(warnings, c.data.Warnings...)
	warnings = append(warnings, plan.Warnings...)
	warnings = append(warnings, res.Warnings...)
	c.warnings = warnings
	if c.freshData {
		for _, w := range warnings {
			c.log.Warn("data warning",
				logging.String("warning", string(w.Kind)),
				logging.Int("row", w.Row),
				logging.String("key", w.Key),
				logging.String("field", w.Field),
				logging.String("detail", w.Message))
			c.metrics.AddWarning(c.spec.ID, string(w.Kind))
		}
		c.freshData = false
	}

	took := time.Since(start)
	c.metrics.ObserveRender(c.spec.ID, string(c.spec.Kind), took, c.elements.Len())
	c.log.Debug("rendered",
		logging.Int("entering", len(res.Entering)),
		logging.Int("updating", len(res.Updating)),
		logging.Int("exiting", len(res.Exiting)),
		logging.Duration("took", took))
	c.err = nil
	c.pending = false
	c.rendered = true
	return nil
}

func (c *Chart) refreshTooltipLocked() {
	key, ok := c.tooltip.Owner()
	if !ok {
		return
	}
	if el, ok := c.elements.Get(key); ok {
		c.tooltip.Refresh(key, c.format(*el))
	}
}
