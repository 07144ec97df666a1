package report

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/brunomontezano/covidpsy/hier"
	"github.com/brunomontezano/covidpsy/regress"
)

// ErrNoEffects is returned when there is nothing to plot.
var ErrNoEffects = errors.New("report: no effects to plot")

// effectPoints holds the risk ratios and the distances from each risk
// ratio to its confidence limits.
type effectPoints struct {
	plotter.XYs
	plotter.XErrors
}

// ForestPlotter draws the risk ratios of the final block with their
// confidence intervals, on a log scale.
type ForestPlotter struct {
	terms []regress.Term

	// Skipped holds the terms without a finite, positive interval.
	Skipped []string

	ranked bool
	title  string

	width  vg.Length
	height vg.Length

	plt *plot.Plot
}

// NewForestPlotter returns a plotter for the final block of a
// hierarchical fit.
func NewForestPlotter(res *hier.Result) *ForestPlotter {

	fp := &ForestPlotter{
		title: "Risk ratios, final model",
		width: 6,
	}

	for _, t := range finalTerms(res) {
		if !(t.RR > 0 && t.RRLower > 0 && t.RRUpper > 0) || math.IsInf(t.RRUpper, 1) {
			fp.Skipped = append(fp.Skipped, t.Name)
			continue
		}
		fp.terms = append(fp.terms, t)
	}

	return fp
}

// Ranked orders the terms by risk ratio, largest at the top.
func (fp *ForestPlotter) Ranked(r bool) *ForestPlotter {
	fp.ranked = r
	return fp
}

// Title sets the title of the plot.
func (fp *ForestPlotter) Title(t string) *ForestPlotter {
	fp.title = t
	return fp
}

// Width sets the width of the plot in inches.
func (fp *ForestPlotter) Width(w float64) *ForestPlotter {
	fp.width = vg.Length(w)
	return fp
}

// Height sets the height of the plot in inches.  By default the height
// grows with the number of terms.
func (fp *ForestPlotter) Height(h float64) *ForestPlotter {
	fp.height = vg.Length(h)
	return fp
}

// order returns the terms in plotting order, from the bottom of the
// plot to the top.
func (fp *ForestPlotter) order() []regress.Term {

	terms := make([]regress.Term, len(fp.terms))
	if fp.ranked {
		copy(terms, fp.terms)
		sort.SliceStable(terms, func(i, j int) bool { return terms[i].RR < terms[j].RR })
		return terms
	}

	// Model order reads from the top down.
	for i, t := range fp.terms {
		terms[len(terms)-1-i] = t
	}
	return terms
}

// Plot constructs the plot.
func (fp *ForestPlotter) Plot() (*ForestPlotter, error) {

	terms := fp.order()
	if len(terms) == 0 {
		return fp, ErrNoEffects
	}

	pts := effectPoints{
		XYs:     make(plotter.XYs, len(terms)),
		XErrors: make(plotter.XErrors, len(terms)),
	}
	names := make([]string, len(terms))
	for i, t := range terms {
		pts.XYs[i].X = t.RR
		pts.XYs[i].Y = float64(i)
		pts.XErrors[i].Low = t.RR - t.RRLower
		pts.XErrors[i].High = t.RRUpper - t.RR
		names[i] = t.Name
	}

	p := plot.New()
	p.Title.Text = fp.title
	p.X.Label.Text = "Risk ratio"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	ref, err := plotter.NewLine(plotter.XYs{{X: 1, Y: -0.5}, {X: 1, Y: float64(len(terms)) - 0.5}})
	if err != nil {
		return fp, err
	}
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ref)

	bars, err := plotter.NewXErrorBars(pts)
	if err != nil {
		return fp, err
	}
	p.Add(bars)

	sc, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return fp, err
	}
	sc.GlyphStyle.Shape = draw.BoxGlyph{}
	p.Add(sc)

	p.NominalY(names...)

	fp.plt = p
	if fp.height == 0 {
		fp.height = vg.Length(1.5 + 0.3*float64(len(terms)))
	}

	return fp, nil
}

// GetPlotStruct returns the plotting structure for this plot.
func (fp *ForestPlotter) GetPlotStruct() *plot.Plot {
	return fp.plt
}

// Save writes the plot to the given file, in the format implied by its
// extension.
func (fp *ForestPlotter) Save(fname string) error {
	if fp.plt == nil {
		return ErrNoEffects
	}
	return fp.plt.Save(fp.width*vg.Inch, fp.height*vg.Inch, fname)
}
