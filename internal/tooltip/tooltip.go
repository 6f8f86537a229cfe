// Package tooltip holds the single tooltip overlay of a chart.
package tooltip

import "github.com/verte-zerg/chartpipe/internal/model"

// DefaultOffset keeps the overlay clear of the pointer.
var DefaultOffset = model.Point{X: 12, Y: 14}

// Controller is the hidden/visible state machine for one chart's tooltip.
// It is not safe for concurrent use; the owning chart serialises access.
type Controller struct {
	offset model.Point
	state  model.TooltipState
}

// New returns a hidden controller. A zero offset selects DefaultOffset.
func New(offset model.Point) *Controller {
	if offset == (model.Point{}) {
		offset = DefaultOffset
	}
	return &Controller{offset: offset}
}

// Enter shows the tooltip for key. Entering a second key while visible
// replaces content and anchor in one step.
func (c *Controller) Enter(key, content string, pointer model.Point) {
	c.state = model.TooltipState{
		Visible: true,
		Key:     key,
		Content: content,
		Anchor:  c.anchor(pointer),
	}
}

// Move repositions the tooltip. Moves for any key other than the owner are
// ignored.
func (c *Controller) Move(key string, pointer model.Point) {
	if !c.owns(key) {
		return
	}
	c.state.Anchor = c.anchor(pointer)
}

// Leave hides the tooltip if key owns it.
func (c *Controller) Leave(key string) {
	if !c.owns(key) {
		return
	}
	c.hide()
}

// Forget hides the tooltip when its owner is among keys. The binder calls it
// with the keys of exiting elements.
func (c *Controller) Forget(keys []string) {
	if !c.state.Visible {
		return
	}
	for _, k := range keys {
		if k == c.state.Key {
			c.hide()
			return
		}
	}
}

// Refresh replaces the content of a visible tooltip without moving it.
func (c *Controller) Refresh(key, content string) {
	if c.owns(key) {
		c.state.Content = content
	}
}

// State returns a copy of the current state.
func (c *Controller) State() model.TooltipState {
	return c.state
}

// Owner returns the key owning the visible tooltip.
func (c *Controller) Owner() (string, bool) {
	return c.state.Key, c.state.Visible
}

func (c *Controller) owns(key string) bool {
	return c.state.Visible && c.state.Key == key
}

func (c *Controller) hide() {
	c.state = model.TooltipState{}
}

func (c *Controller) anchor(p model.Point) model.Point {
	return model.Point{X: p.X + c.offset.X, Y: p.Y + c.offset.Y}
}
