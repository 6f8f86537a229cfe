// Package render draws chart frames as standalone SVG documents.
package render

import (
	"fmt"
	"html"
	"io"
	"strconv"

	svg "github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/chartpipe/internal/model"
)

const (
	fontSize    = 11
	swatchSize  = 10
	legendGap   = 14
	tickLength  = 5
	tickPadding = 3
)

// Options controls optional parts of the document.
type Options struct {
	// Title is written as the document title when set.
	Title string
	// Format produces the hover text of each element. Nil uses the label.
	Format func(model.VisualElement) string
	// Interactive embeds the hover script driving the tooltip overlay and
	// legend cross-highlight in a browser.
	Interactive bool
	// Fixed writes the frame size as width and height. Otherwise the
	// document scales to its container through the viewBox.
	Fixed bool
}

// WriteSVG writes one frame. Element groups carry their key in data-key so
// that consecutive documents can be matched element by element.
func WriteSVG(w io.Writer, f model.Frame, opts Options) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	attrs := []string{
		fmt.Sprintf(`viewBox="0 0 %s %s"`, num(f.Width), num(f.Height)),
		`preserveAspectRatio="xMinYMin meet"`,
		attr("class", "chartpipe chart-"+string(f.Kind)),
		attr("data-chart", f.ChartID),
		fmt.Sprintf(`font-size="%dpx" font-family="Roboto,Helvetica,Arial,sans-serif"`, fontSize),
	}
	if opts.Fixed {
		attrs = append(attrs, fmt.Sprintf(`width="%s" height="%s"`, num(f.Width), num(f.Height)))
	} else {
		attrs = append(attrs, `width="100%"`)
	}
	canvas.Startraw(attrs...)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Style("text/css", stylesheet(f.Transition))

	canvas.Group(fmt.Sprintf(`class="plot" transform="translate(%s,%s)"`, num(f.Margins.Left), num(f.Margins.Top)))
	writeElements(canvas, f, opts)
	for _, a := range f.Axes {
		writeAxis(canvas, f, a)
	}
	canvas.Gend()

	writeLegend(canvas, f)
	writeTooltip(canvas, f.Tooltip)
	if opts.Interactive {
		canvas.Script("text/javascript", hoverScript)
	}
	canvas.End()
	return ew.err
}

func writeElements(canvas *svg.SVG, f model.Frame, opts Options) {
	format := opts.Format
	if format == nil {
		format = func(el model.VisualElement) string { return el.Label }
	}
	canvas.Group(`class="elements"`)
	for _, el := range f.Elements {
		class := "element"
		if el.NoData {
			class += " no-data"
		}
		if f.Transition && el.From != nil {
			class += " enter " + enterClass(el.Geometry.Kind)
		}
		canvas.Group(
			attr("class", class),
			attr("data-key", el.Key),
			attr("data-fill", el.Fill),
			attr("data-tooltip", format(el)),
			fmt.Sprintf(`opacity="%s"`, num(el.Opacity)),
		)
		canvas.Title(format(el))
		canvas.Path(el.Geometry.Path(), attr("fill", el.Fill))
		canvas.Gend()
	}
	canvas.Gend()
}

func enterClass(kind model.GeometryKind) string {
	if kind == model.GeomRect {
		return "grow"
	}
	return "fade"
}

func writeAxis(canvas *svg.SVG, f model.Frame, a model.Axis) {
	canvas.Group(attr("class", "axis axis-"+string(a.Orient)))
	switch a.Orient {
	case model.AxisBottom:
		y := round(f.InnerHeight)
		canvas.Line(0, y, round(f.InnerWidth), y)
		for _, t := range a.Ticks {
			x := round(t.Pos)
			canvas.Line(x, y, x, y+tickLength)
			canvas.Text(x, y+tickLength+tickPadding, t.Label, `text-anchor="middle" dy="0.71em"`)
		}
	case model.AxisLeft:
		canvas.Line(0, 0, 0, round(f.InnerHeight))
		for _, t := range a.Ticks {
			y := round(t.Pos)
			canvas.Line(-tickLength, y, 0, y)
			canvas.Text(-tickLength-tickPadding, y, t.Label, `text-anchor="end" dy="0.32em"`)
		}
	}
	canvas.Gend()
}

func writeLegend(canvas *svg.SVG, f model.Frame) {
	if len(f.Legend) == 0 {
		return
	}
	anyActive := false
	for _, e := range f.Legend {
		anyActive = anyActive || e.Active
	}
	canvas.Group(`class="legend"`, fmt.Sprintf(`transform="translate(%s,%d)"`, num(f.Margins.Left), tickPadding))
	x := 0
	for _, e := range f.Legend {
		opacity := "1"
		if anyActive && !e.Active {
			opacity = "0.4"
		}
		class := "entry"
		if e.Active {
			class += " active"
		}
		canvas.Group(attr("class", class), attr("data-label", e.Label), attr("data-color", e.Color), `opacity="`+opacity+`"`)
		canvas.Rect(x, 0, swatchSize, swatchSize, attr("fill", e.Color))
		canvas.Text(x+swatchSize+4, swatchSize/2, e.Label, `dy="0.32em"`)
		canvas.Gend()
		x += swatchSize + 4 + textWidth(e.Label) + legendGap
	}
	canvas.Gend()
}

func writeTooltip(canvas *svg.SVG, st model.TooltipState) {
	visibility := "hidden"
	if st.Visible {
		visibility = "visible"
	}
	canvas.Group(`class="tooltip"`, `pointer-events="none"`,
		fmt.Sprintf(`visibility="%s" transform="translate(%s,%s)"`, visibility, num(st.Anchor.X), num(st.Anchor.Y)))
	w := textWidth(st.Content) + 12
	canvas.Rect(0, 0, w, fontSize+10, `rx="3"`, `fill="#ffffff"`, `stroke="#555555"`)
	canvas.Text(6, fontSize+3, st.Content)
	canvas.Gend()
}

// textWidth estimates rendered width from terminal cell width.
func textWidth(s string) int {
	return runewidth.StringWidth(s) * fontSize * 6 / 10
}

func stylesheet(transition bool) string {
	css := `
.element { transition: opacity 150ms ease-in-out; cursor: default; }
.element.dim { opacity: 0.2; }
.axis line { stroke: #888888; }
.axis text, .legend text { fill: #444444; }
.legend .entry { cursor: pointer; }
.tooltip text { fill: #222222; }
`
	if transition {
		css += `
.enter.grow { transform-box: fill-box; transform-origin: bottom; animation: grow 400ms ease-out; }
.enter.fade { animation: fade 400ms ease-out; }
@keyframes grow { from { transform: scaleY(0); } to { transform: scaleY(1); } }
@keyframes fade { from { opacity: 0; } }
`
	}
	return css
}

const hoverScript = `
(function () {
	var root = document.currentScript ? document.currentScript.ownerSVGElement : document.rootElement;
	if (!root) { root = document.querySelector("svg.chartpipe"); }
	var tip = root.querySelector(".tooltip");
	var box = tip.querySelector("rect");
	var label = tip.querySelector("text");
	var offset = {x: 12, y: 14};
	var owner = null;
	function local(evt) {
		var pt = root.createSVGPoint();
		pt.x = evt.clientX;
		pt.y = evt.clientY;
		return pt.matrixTransform(root.getScreenCTM().inverse());
	}
	function show(key, text, evt) {
		owner = key;
		label.textContent = text;
		box.setAttribute("width", label.getComputedTextLength() + 12);
		move(key, evt);
		tip.setAttribute("visibility", "visible");
	}
	function move(key, evt) {
		if (owner !== key) { return; }
		var p = local(evt);
		tip.setAttribute("transform", "translate(" + (p.x + offset.x) + "," + (p.y + offset.y) + ")");
	}
	function hide(key) {
		if (owner !== key) { return; }
		owner = null;
		tip.setAttribute("visibility", "hidden");
	}
	root.querySelectorAll(".element").forEach(function (el) {
		var key = el.getAttribute("data-key");
		el.addEventListener("mouseenter", function (evt) { show(key, el.getAttribute("data-tooltip"), evt); });
		el.addEventListener("mousemove", function (evt) { move(key, evt); });
		el.addEventListener("mouseleave", function () { hide(key); });
	});
	root.querySelectorAll(".legend .entry").forEach(function (entry) {
		var color = entry.getAttribute("data-color");
		var key = "legend:" + entry.getAttribute("data-label");
		entry.addEventListener("mouseenter", function (evt) {
			root.querySelectorAll(".element").forEach(function (el) {
				el.classList.toggle("dim", el.getAttribute("data-fill") !== color);
			});
			show(key, entry.getAttribute("data-label"), evt);
		});
		entry.addEventListener("mouseleave", function () {
			root.querySelectorAll(".element.dim").forEach(function (el) { el.classList.remove("dim"); });
			hide(key);
		});
	});
})();
`

func attr(name, value string) string {
	return name + `="` + html.EscapeString(value) + `"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
