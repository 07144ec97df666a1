// Package summary tabulates the features by outcome under one of the
// survey weightings, with design-adjusted tests of association.
//
// Categorical features are tested with the Rao-Scott first-order
// corrected Pearson chi-square: the weighted table is rescaled to the
// sample size and the statistic is divided by the Kish design effect
// of the weights.  Numeric features are tested with the robust Wald
// t-test of the outcome coefficient in a weighted linear regression.
package summary

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/glm"
	"github.com/brunomontezano/covidpsy/statmodel"
)

// Scheme is the weighting used for a summary.
type Scheme = features.Weighting

// The three weighting schemes.
const (
	Demographic = features.SamplingWeight
	Attrition   = features.AttritionWeight
	Combined    = features.CombinedWeight
)

// Schemes lists the weighting schemes in report order.
var Schemes = []Scheme{Demographic, Attrition, Combined}

// Test names.
const (
	RaoScott = "Rao-Scott chi-square"
	SurveyT  = "survey t-test"
)

// ErrNoVariation is recorded for a feature that takes a single value,
// or is observed in only one outcome group.
var ErrNoVariation = errors.New("summary: no variation")

// Level summarizes one level of a categorical feature.
type Level struct {
	Level string

	// Unweighted counts, overall and by outcome.
	N    int
	NNeg int
	NPos int

	// Unweighted percentages, overall and within each outcome group.
	PctAll float64
	PctNeg float64
	PctPos float64

	// Weighted percentages within each outcome group.
	WPctNeg float64
	WPctPos float64
}

// Row summarizes one feature.
type Row struct {
	Variable string
	Kind     features.Kind

	// Levels holds the rows of a categorical feature.
	Levels []Level

	// N is the number of rows where the feature is observed.
	N int

	// Unweighted mean and standard deviation, overall.
	Mean float64
	SD   float64

	// Weighted mean and standard deviation by outcome.
	WMeanNeg float64
	WSDNeg   float64
	WMeanPos float64
	WSDPos   float64

	// Test names the test of association, Stat is its statistic.
	Test   string
	Stat   float64
	DF     float64
	PValue float64

	// Err is set if the row could not be completed.
	Err error
}

// Summary holds the rows for one weighting scheme.
type Summary struct {
	Scheme Scheme

	// Number of cohort members, overall and by outcome.
	N    int
	NNeg int
	NPos int

	Rows []Row
}

// Variables returns the features that are summarized, in report order.
// Age is shown once, in years.
func Variables(tab *features.Table) []string {
	var na []string
	for _, v := range tab.Names() {
		if v == "age_2" || v == "age_3" {
			continue
		}
		na = append(na, v)
	}
	return na
}

// Summarize tabulates every feature of the table under the given
// weighting.  A failure for one feature is recorded in its row.
func Summarize(tab *features.Table, scheme Scheme) (*Summary, error) {

	y := tab.Outcome()
	w := tab.Weights(scheme)

	s := &Summary{Scheme: scheme, N: len(y)}
	for _, v := range y {
		if v == 1 {
			s.NPos++
		} else {
			s.NNeg++
		}
	}

	for _, na := range Variables(tab) {
		v, err := tab.Var(na)
		if err != nil {
			return nil, err
		}

		var row Row
		if v.Kind == features.Categorical {
			row = categorical(v, y, w)
		} else {
			x, err := tab.Unscaled(na)
			if err != nil {
				return nil, err
			}
			row = numeric(na, x, y, w)
		}
		s.Rows = append(s.Rows, row)
	}

	return s, nil
}

// categorical tabulates the levels of a feature by outcome.
func categorical(v *features.Var, y, w []float64) Row {

	row := Row{Variable: v.Name, Kind: features.Categorical, Test: RaoScott}

	nl := len(v.Levels)
	counts := make([][2]int, nl)
	wtab := make([][2]float64, nl)
	var wcases []float64
	for i, c := range v.Codes {
		if c < 0 {
			continue
		}
		k := int(y[i])
		counts[c][k]++
		wtab[c][k] += w[i]
		wcases = append(wcases, w[i])
		row.N++
	}

	var tot [2]int
	var wtot [2]float64
	for j := range counts {
		for k := 0; k < 2; k++ {
			tot[k] += counts[j][k]
			wtot[k] += wtab[j][k]
		}
	}

	for j, l := range v.Levels {
		lev := Level{
			Level: l,
			N:     counts[j][0] + counts[j][1],
			NNeg:  counts[j][0],
			NPos:  counts[j][1],
		}
		lev.PctAll = pct(float64(lev.N), float64(tot[0]+tot[1]))
		lev.PctNeg = pct(float64(counts[j][0]), float64(tot[0]))
		lev.PctPos = pct(float64(counts[j][1]), float64(tot[1]))
		lev.WPctNeg = pct(wtab[j][0], wtot[0])
		lev.WPctPos = pct(wtab[j][1], wtot[1])
		row.Levels = append(row.Levels, lev)
	}

	row.Stat, row.DF, row.PValue, row.Err = raoScott(wtab, wcases)
	if row.Err != nil {
		row.Err = fmt.Errorf("%s: %w", v.Name, row.Err)
	}

	return row
}

func pct(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return 100 * a / b
}

// raoScott returns the first-order corrected chi-square statistic,
// its degrees of freedom and p-value, for a weighted two-way table.
// Rows and columns with zero weight are dropped.
func raoScott(wtab [][2]float64, wcases []float64) (float64, float64, float64, error) {

	var rows [][2]float64
	for _, r := range wtab {
		if r[0]+r[1] > 0 {
			rows = append(rows, r)
		}
	}
	var cols []int
	for k := 0; k < 2; k++ {
		var ct float64
		for _, r := range rows {
			ct += r[k]
		}
		if ct > 0 {
			cols = append(cols, k)
		}
	}
	if len(rows) < 2 || len(cols) < 2 {
		return math.NaN(), math.NaN(), math.NaN(), ErrNoVariation
	}

	n := float64(len(wcases))
	wsum := floats.Sum(wcases)
	wss := floats.Dot(wcases, wcases)
	deff := n * wss / (wsum * wsum)

	// Weighted table rescaled to the sample size.
	rsum := make([]float64, len(rows))
	var csum [2]float64
	for j, r := range rows {
		for k := 0; k < 2; k++ {
			rsum[j] += r[k] * n / wsum
			csum[k] += r[k] * n / wsum
		}
	}

	var x2 float64
	for j, r := range rows {
		for k := 0; k < 2; k++ {
			e := rsum[j] * csum[k] / n
			d := r[k]*n/wsum - e
			x2 += d * d / e
		}
	}

	chi := x2 / deff
	df := float64(len(rows) - 1)
	p := distuv.ChiSquared{K: df}.Survival(chi)

	return chi, df, p, nil
}

// numeric summarizes a numeric feature and tests for a difference in
// weighted means between the outcome groups.
func numeric(name string, x, y, w []float64) Row {

	row := Row{Variable: name, Kind: features.Numeric, Test: SurveyT}

	var xg, wg [2][]float64
	var xc, yc, wc []float64
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		k := int(y[i])
		xg[k] = append(xg[k], v)
		wg[k] = append(wg[k], w[i])
		xc = append(xc, v)
		yc = append(yc, y[i])
		wc = append(wc, w[i])
	}
	row.N = len(xc)
	row.Mean, row.SD = stat.MeanStdDev(xc, nil)
	row.WMeanNeg, row.WSDNeg = weightedMeanSD(xg[0], wg[0])
	row.WMeanPos, row.WSDPos = weightedMeanSD(xg[1], wg[1])

	row.Stat, row.DF, row.PValue, row.Err = surveyT(xc, yc, wc)
	if row.Err != nil {
		row.Err = fmt.Errorf("%s: %w", name, row.Err)
	}

	return row
}

// weightedMeanSD returns the weighted mean and standard deviation of x.
// The weights are sampling weights, so they are rescaled to sum to the
// number of observations and the result does not depend on their scale.
func weightedMeanSD(x, w []float64) (float64, float64) {
	ws := floats.Sum(w)
	if len(x) == 0 || !(ws > 0) {
		return math.NaN(), math.NaN()
	}
	sw := make([]float64, len(w))
	floats.ScaleTo(sw, float64(len(w))/ws, w)
	return stat.MeanStdDev(x, sw)
}

// surveyT fits x = a + b*y by weighted least squares and returns the
// robust t statistic for b, its degrees of freedom and p-value.
func surveyT(x, y, w []float64) (float64, float64, float64, error) {

	if len(x) < 3 || floats.Min(x) == floats.Max(x) || floats.Min(y) == floats.Max(y) {
		return math.NaN(), math.NaN(), math.NaN(), ErrNoVariation
	}

	icept := make([]float64, len(x))
	for i := range icept {
		icept[i] = 1
	}
	ds := statmodel.NewDataset([][]float64{x, icept, y, w}, []string{"x", "icept", "outcome", "w"})

	config := glm.DefaultConfig()
	config.WeightVar = "w"
	config.CovType = glm.RobustCov
	config.TDist = true

	model, err := glm.NewGLM(ds, "x", []string{"icept", "outcome"}, config)
	if err != nil {
		return math.NaN(), math.NaN(), math.NaN(), err
	}
	rslt, err := model.Fit()
	if err != nil {
		return math.NaN(), math.NaN(), math.NaN(), err
	}

	return rslt.ZScores()[1], rslt.DF(), rslt.PValues()[1], nil
}
