package chart

import (
	"github.com/verte-zerg/chartpipe/internal/legend"
	"github.com/verte-zerg/chartpipe/internal/model"
)

// PointerEnter shows the tooltip for key. Pointer positions are in outer
// container coordinates. Events for keys no longer bound are ignored.
func (c *Chart) PointerEnter(key string, p model.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.liveLocked(key)
	if !ok {
		return false
	}
	c.tooltip.Enter(key, c.format(*el), p)
	return true
}

// PointerMove repositions the tooltip owned by key.
func (c *Chart) PointerMove(key string, p model.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.liveLocked(key); !ok {
		return
	}
	c.tooltip.Move(key, p)
}

// PointerLeave hides the tooltip owned by key.
func (c *Chart) PointerLeave(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tooltip.Leave(key)
}

// LegendEnter activates the legend entry for label, dims every element whose
// fill differs and shows the entry in the tooltip.
func (c *Chart) LegendEnter(label string, p model.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return false
	}
	entry, ok := legend.Find(c.legend, label)
	if !ok {
		return false
	}
	c.hoverLabel = label
	c.legend = legend.Activate(c.legend, label)
	legend.Highlight(c.elements.Elements(), entry.Color)
	c.tooltip.Enter(legendKey(label), label, p)
	return true
}

// LegendLeave resets the highlight.
func (c *Chart) LegendLeave(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hoverLabel != label {
		return
	}
	c.hoverLabel = ""
	c.legend = legend.Activate(c.legend, "")
	legend.Highlight(c.elements.Elements(), "")
	c.tooltip.Leave(legendKey(label))
}

// HitTest returns the key of the topmost element under an outer point.
func (c *Chart) HitTest(p model.Point) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitLocked(p)
}

// Hover dispatches enter, move and leave for a pointer at p, the way a
// surface without per-element events drives the chart. It returns the key
// under the pointer.
func (c *Chart) Hover(p model.Point) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || !c.rendered {
		return "", false
	}
	key, hit := c.hitLocked(p)
	owner, visible := c.tooltip.Owner()
	switch {
	case hit && visible && owner == key:
		c.tooltip.Move(key, p)
	case hit:
		el, _ := c.elements.Get(key)
		c.tooltip.Enter(key, c.format(*el), p)
	case visible && c.elements.Has(owner):
		c.tooltip.Leave(owner)
	}
	return key, hit
}

func (c *Chart) liveLocked(key string) (*model.VisualElement, bool) {
	if c.disposed || !c.rendered {
		return nil, false
	}
	return c.elements.Get(key)
}

func (c *Chart) hitLocked(p model.Point) (string, bool) {
	if !c.rendered {
		return "", false
	}
	inner := c.layout.ToInner(p)
	els := c.elements.Elements()
	for i := len(els) - 1; i >= 0; i-- {
		if els[i].Geometry.Contains(inner) {
			return els[i].Key, true
		}
	}
	return "", false
}

// Frame returns a snapshot of the last render. ok is false until the chart
// has rendered once.
func (c *Chart) Frame() (model.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rendered {
		return model.Frame{}, false
	}
	els := c.elements.Elements()
	out := model.Frame{
		ChartID:     c.spec.ID,
		Kind:        c.spec.Kind,
		Width:       c.layout.Width,
		Height:      c.layout.Height,
		InnerWidth:  c.layout.InnerWidth,
		InnerHeight: c.layout.InnerHeight,
		Margins:     c.layout.Margins,
		Elements:    make([]model.VisualElement, 0, len(els)),
		Axes:        make([]model.Axis, len(c.axes)),
		Legend:      append([]model.LegendEntry(nil), c.legend...),
		Tooltip:     c.tooltip.State(),
		Transition:  c.spec.Transition,
	}
	for _, el := range els {
		cp := *el
		if el.From != nil {
			from := *el.From
			cp.From = &from
		}
		out.Elements = append(out.Elements, cp)
	}
	for i, a := range c.axes {
		out.Axes[i] = model.Axis{Orient: a.Orient, Ticks: append([]model.Tick(nil), a.Ticks...)}
	}
	return out, true
}

// Tooltip returns the current tooltip state.
func (c *Chart) Tooltip() model.TooltipState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tooltip.State()
}
