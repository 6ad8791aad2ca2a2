// Package plotter renders SVG line plots of DAE solution trajectories.
package plotter

import (
	"fmt"
	"math"
	"strings"

	"github.com/pflow-xyz/go-dae/dae"
)

// Series is a single curve to plot.
type Series struct {
	X     []float64
	Y     []float64
	Label string
	Color string
}

// SVGPlotter accumulates series and renders them as a standalone SVG.
type SVGPlotter struct {
	Width  float64
	Height float64
	Title  string
	XLabel string
	YLabel string
	// LogX plots log10 of the x values, the usual view for stiff
	// trajectories spanning many decades; non-positive x values are
	// skipped.
	LogX   bool
	Series []Series

	margin     map[string]float64
	plotWidth  float64
	plotHeight float64
}

// New creates a plotter with the given canvas dimensions.
func New(width, height float64) *SVGPlotter {
	margin := map[string]float64{"top": 40, "right": 110, "bottom": 50, "left": 70}
	return &SVGPlotter{
		Width:      width,
		Height:     height,
		XLabel:     "Time",
		YLabel:     "Value",
		margin:     margin,
		plotWidth:  width - margin["left"] - margin["right"],
		plotHeight: height - margin["top"] - margin["bottom"],
	}
}

// SetTitle sets the plot title.
func (p *SVGPlotter) SetTitle(t string) *SVGPlotter {
	p.Title = t
	return p
}

// SetXLabel sets the X-axis label.
func (p *SVGPlotter) SetXLabel(s string) *SVGPlotter {
	p.XLabel = s
	return p
}

// SetYLabel sets the Y-axis label.
func (p *SVGPlotter) SetYLabel(s string) *SVGPlotter {
	p.YLabel = s
	return p
}

var palette = []string{"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#a65628", "#f781bf"}

// AddSeries adds one curve. An empty color picks the next palette entry.
func (p *SVGPlotter) AddSeries(x, y []float64, label, color string) *SVGPlotter {
	if color == "" {
		color = palette[len(p.Series)%len(palette)]
	}
	p.Series = append(p.Series, Series{X: x, Y: y, Label: label, Color: color})
	return p
}

func (p *SVGPlotter) xval(x float64) (float64, bool) {
	if !p.LogX {
		return x, true
	}
	if x <= 0 {
		return 0, false
	}
	return math.Log10(x), true
}

// Render generates the SVG document.
func (p *SVGPlotter) Render() string {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, s := range p.Series {
		for i := range s.X {
			x, ok := p.xval(s.X[i])
			if !ok {
				continue
			}
			xmin = math.Min(xmin, x)
			xmax = math.Max(xmax, x)
			ymin = math.Min(ymin, s.Y[i])
			ymax = math.Max(ymax, s.Y[i])
		}
	}
	if math.IsInf(xmin, 1) {
		xmin, xmax = 0, 1
	}
	if math.IsInf(ymin, 1) {
		ymin, ymax = 0, 1
	}
	if xmax == xmin {
		xmax = xmin + 1
	}
	if ymax == ymin {
		ymax = ymin + 1
	}
	xmin -= (xmax - xmin) * 0.05
	xmax += (xmax - xmin) * 0.05
	ymin -= (ymax - ymin) * 0.1
	ymax += (ymax - ymin) * 0.1

	sx := func(x float64) float64 {
		return p.margin["left"] + (x-xmin)/(xmax-xmin)*p.plotWidth
	}
	sy := func(y float64) float64 {
		return p.margin["top"] + p.plotHeight - (y-ymin)/(ymax-ymin)*p.plotHeight
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`,
		int(p.Width), int(p.Height))
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#f8f9fa" rx="8"/>`,
		int(p.Width), int(p.Height))

	if p.Title != "" {
		fmt.Fprintf(&sb, `<text x="%g" y="25" text-anchor="middle" font-family="Arial, sans-serif" font-size="16" font-weight="bold">%s</text>`,
			p.Width/2, escape(p.Title))
	}

	// Axes
	fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="2"/>`,
		p.margin["left"], p.margin["top"], p.margin["left"], p.margin["top"]+p.plotHeight)
	fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#333" stroke-width="2"/>`,
		p.margin["left"], p.margin["top"]+p.plotHeight, p.margin["left"]+p.plotWidth, p.margin["top"]+p.plotHeight)

	xlabel := p.XLabel
	if p.LogX {
		xlabel = "log10(" + xlabel + ")"
	}
	fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="middle" font-family="Arial, sans-serif" font-size="12">%s</text>`,
		p.margin["left"]+p.plotWidth/2, p.Height-10, escape(xlabel))
	fmt.Fprintf(&sb, `<text x="15" y="%g" text-anchor="middle" font-family="Arial, sans-serif" font-size="12" transform="rotate(-90, 15, %g)">%s</text>`,
		p.margin["top"]+p.plotHeight/2, p.margin["top"]+p.plotHeight/2, escape(p.YLabel))

	// Grid and tick labels
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		x := xmin + (xmax-xmin)*float64(i)/ticks
		px := sx(x)
		fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="0.5"/>`,
			px, p.margin["top"], px, p.margin["top"]+p.plotHeight)
		fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="middle" font-family="Arial, sans-serif" font-size="10">%.3g</text>`,
			px, p.margin["top"]+p.plotHeight+20, x)
	}
	for i := 0; i <= ticks; i++ {
		y := ymin + (ymax-ymin)*float64(i)/ticks
		py := sy(y)
		fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#ddd" stroke-width="0.5"/>`,
			p.margin["left"], py, p.margin["left"]+p.plotWidth, py)
		fmt.Fprintf(&sb, `<text x="%g" y="%g" text-anchor="end" font-family="Arial, sans-serif" font-size="10">%.3g</text>`,
			p.margin["left"]-10, py+4, y)
	}

	// Curves
	for _, s := range p.Series {
		var path strings.Builder
		started := false
		for i := range s.X {
			x, ok := p.xval(s.X[i])
			if !ok {
				continue
			}
			cmd := " L"
			if !started {
				cmd = "M"
				started = true
			}
			fmt.Fprintf(&path, "%s%g,%g", cmd, sx(x), sy(s.Y[i]))
		}
		if !started {
			continue
		}
		fmt.Fprintf(&sb, `<path d="%s" stroke="%s" stroke-width="2" fill="none"/>`,
			path.String(), s.Color)
	}

	// Legend
	legendY := p.margin["top"] + 10
	for _, s := range p.Series {
		if s.Label == "" {
			continue
		}
		x1 := p.Width - p.margin["right"] + 10
		fmt.Fprintf(&sb, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="2"/>`,
			x1, legendY, x1+20, legendY, s.Color)
		fmt.Fprintf(&sb, `<text x="%g" y="%g" font-family="Arial, sans-serif" font-size="10">%s</text>`,
			x1+25, legendY+4, escape(s.Label))
		legendY += 20
	}

	sb.WriteString(`</svg>`)
	return sb.String()
}

// PlotSolution plots state components of a solution trajectory. indices
// selects the components (nil plots all); names labels them (nil uses
// x0, x1, ...).
func PlotSolution(sol *dae.Solution, indices []int, names []string, width, height float64, title string) string {
	p := New(width, height).SetTitle(title)
	if len(sol.U) == 0 {
		return p.Render()
	}
	if indices == nil {
		indices = make([]int, len(sol.U[0]))
		for i := range indices {
			indices[i] = i
		}
	}
	for _, idx := range indices {
		label := fmt.Sprintf("x%d", idx)
		if names != nil && idx < len(names) {
			label = names[idx]
		}
		p.AddSeries(sol.T, sol.GetVariable(idx), label, "")
	}
	return p.Render()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
