package viewer

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/chartpipe/internal/model"
)

// Each terminal cell holds a 2x4 braille dot matrix; one dot is one frame
// pixel.
const (
	dotsX = 2
	dotsY = 4
)

const (
	background = "#000000"
	axisColor  = "#8C8C8C"
	tipColor   = "#F0F0F0"
)

type cell struct {
	r     rune
	color string
	// cont marks the right half of a wide rune.
	cont bool
}

// Grid is a colour cell buffer sized in terminal cells.
type Grid struct {
	cols  int
	rows  int
	cells [][]cell
}

// NewGrid returns an empty grid.
func NewGrid(cols, rows int) *Grid {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	cells := make([][]cell, rows)
	for y := range cells {
		cells[y] = make([]cell, cols)
	}
	return &Grid{cols: cols, rows: rows, cells: cells}
}

// PixelSize is the frame size that maps one pixel to one braille dot.
func PixelSize(cols, rows int) model.Size {
	return model.Size{Width: float64(cols * dotsX), Height: float64(rows * dotsY)}
}

// CellToPoint returns the outer frame point at the centre of a cell.
func CellToPoint(col, row int) model.Point {
	return model.Point{X: float64(col*dotsX) + 1, Y: float64(row*dotsY) + 2}
}

// PointToCell returns the cell containing an outer frame point.
func PointToCell(p model.Point) (int, int) {
	return int(math.Floor(p.X / dotsX)), int(math.Floor(p.Y / dotsY))
}

type hitBox struct {
	el   *model.VisualElement
	box  model.Rect
	fill string
}

// Rasterize paints the frame elements and axes into a new grid.
func Rasterize(f model.Frame, cols, rows int) *Grid {
	g := NewGrid(cols, rows)
	boxes := make([]hitBox, 0, len(f.Elements))
	for i := range f.Elements {
		el := &f.Elements[i]
		boxes = append(boxes, hitBox{el: el, box: bounds(el.Geometry), fill: shade(el.Fill, el.Opacity)})
	}

	counts := make([]int, len(boxes))
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			var mask uint8
			for i := range counts {
				counts[i] = 0
			}
			for dy := 0; dy < dotsY; dy++ {
				for dx := 0; dx < dotsX; dx++ {
					p := model.Point{
						X: float64(cx*dotsX+dx) + 0.5 - f.Margins.Left,
						Y: float64(cy*dotsY+dy) + 0.5 - f.Margins.Top,
					}
					if i := topmost(boxes, p); i >= 0 {
						counts[i]++
						mask |= brailleDotMask(dx, dy)
					}
				}
			}
			if mask == 0 {
				continue
			}
			best := 0
			for i := range counts {
				if counts[i] >= counts[best] {
					best = i
				}
			}
			g.cells[cy][cx] = cell{r: brailleFromMask(mask), color: boxes[best].fill}
		}
	}
	g.drawAxes(f)
	return g
}

func topmost(boxes []hitBox, p model.Point) int {
	for i := len(boxes) - 1; i >= 0; i-- {
		if !boxes[i].box.Contains(p) {
			continue
		}
		if boxes[i].el.Geometry.Contains(p) {
			return i
		}
	}
	return -1
}

func (g *Grid) drawAxes(f model.Frame) {
	for _, a := range f.Axes {
		switch a.Orient {
		case model.AxisBottom:
			_, row := PointToCell(model.Point{Y: f.Margins.Top + f.InnerHeight})
			row++
			if row >= g.rows {
				row = g.rows - 1
			}
			next := 0
			for _, t := range a.Ticks {
				col, _ := PointToCell(model.Point{X: f.Margins.Left + t.Pos})
				label := runewidth.Truncate(t.Label, 10, "…")
				start := col - runewidth.StringWidth(label)/2
				if start < next {
					continue
				}
				next = g.Text(start, row, label, axisColor) + 1
			}
		case model.AxisLeft:
			right, _ := PointToCell(model.Point{X: f.Margins.Left})
			right--
			for _, t := range a.Ticks {
				_, row := PointToCell(model.Point{Y: f.Margins.Top + t.Pos})
				label := runewidth.Truncate(t.Label, maxInt(right, 0), "")
				g.Text(right-runewidth.StringWidth(label), row, label, axisColor)
			}
		}
	}
}

// Text writes s starting at col and returns the column after it. Cells
// outside the grid are dropped.
func (g *Grid) Text(col, row int, s, color string) int {
	if row < 0 || row >= g.rows {
		return col + runewidth.StringWidth(s)
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col >= 0 && col+w <= g.cols {
			g.cells[row][col] = cell{r: r, color: color}
			if w == 2 {
				g.cells[row][col+1] = cell{cont: true, color: color}
			}
		}
		col += w
	}
	return col
}

// Tooltip draws a bordered box with content at an outer frame anchor. The box
// is moved back inside the grid when it would overflow.
func (g *Grid) Tooltip(st model.TooltipState) {
	if !st.Visible || g.cols < 4 || g.rows < 3 {
		return
	}
	content := runewidth.Truncate(st.Content, g.cols-4, "…")
	width := runewidth.StringWidth(content) + 4
	col, row := PointToCell(st.Anchor)
	if col+width > g.cols {
		col = g.cols - width
	}
	if row+3 > g.rows {
		row = g.rows - 3
	}
	col, row = maxInt(col, 0), maxInt(row, 0)

	b := lipgloss.RoundedBorder()
	inner := width - 2
	g.Text(col, row, b.TopLeft+strings.Repeat(b.Top, inner)+b.TopRight, tipColor)
	g.Text(col, row+1, b.Left+" "+content+" "+b.Right, tipColor)
	g.Text(col, row+2, b.BottomLeft+strings.Repeat(b.Bottom, inner)+b.BottomRight, tipColor)
}

// Lines renders the grid, one styled string per row. Runs of equal colour
// share one style.
func (g *Grid) Lines() []string {
	lines := make([]string, g.rows)
	for y, row := range g.cells {
		var b strings.Builder
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for _, c := range row {
			if c.cont {
				continue
			}
			r, color := c.r, c.color
			if r == 0 {
				r, color = ' ', ""
			}
			if color != runColor {
				flush()
				runColor = color
			}
			run.WriteRune(r)
		}
		flush()
		lines[y] = b.String()
	}
	return lines
}

// String renders the grid without colour, for tests and logs.
func (g *Grid) String() string {
	lines := make([]string, g.rows)
	for y, row := range g.cells {
		var b strings.Builder
		for _, c := range row {
			switch {
			case c.cont:
			case c.r == 0:
				b.WriteByte(' ')
			default:
				b.WriteRune(c.r)
			}
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

// shade blends a fill towards the background by opacity.
func shade(fill string, opacity float64) string {
	if opacity >= 1 {
		return fill
	}
	c, err := colorful.Hex(fill)
	if err != nil {
		return fill
	}
	bg, _ := colorful.Hex(background)
	return bg.BlendRgb(c, opacity).Hex()
}

func bounds(g model.Geometry) model.Rect {
	switch g.Kind {
	case model.GeomArc:
		a := g.Arc
		return model.Rect{X: a.CX - a.Radius, Y: a.CY - a.Radius, Width: 2 * a.Radius, Height: 2 * a.Radius}
	case model.GeomShape:
		b := g.Shape.Bound()
		return model.Rect{X: b.Min[0], Y: b.Min[1], Width: b.Max[0] - b.Min[0], Height: b.Max[1] - b.Min[1]}
	default:
		return g.Rect
	}
}

func brailleDotMask(x, y int) uint8 {
	switch {
	case x == 0 && y == 0:
		return 0x01
	case x == 0 && y == 1:
		return 0x02
	case x == 0 && y == 2:
		return 0x04
	case x == 0 && y == 3:
		return 0x40
	case x == 1 && y == 0:
		return 0x08
	case x == 1 && y == 1:
		return 0x10
	case x == 1 && y == 2:
		return 0x20
	case x == 1 && y == 3:
		return 0x80
	default:
		return 0
	}
}

// brailleFromMask uses a full block for a fully covered cell.
func brailleFromMask(mask uint8) rune {
	if mask == 0xff {
		return '█'
	}
	return rune(0x2800 + int(mask))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
