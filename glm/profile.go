package glm

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxExpand is the number of times the search interval is doubled
// while looking for a profile likelihood confidence limit.
const maxExpand = 30

// CoeffProfiler is used to do likelihood profile analysis on one
// regression coefficient.  The coefficient is held fixed through an
// offset while the remaining coefficients are re-estimated.
type CoeffProfiler struct {

	// The profile analysis is done with respect to this fitted
	// model.
	results *GLMResults

	// Position of the profiled coefficient
	pos int

	// The log-likelihood at the unrestricted estimate
	maxLogLike float64

	// A sequence of (coefficient, log-likelihood) values that lie on
	// the profile curve.
	Profile [][2]float64
}

// NewCoeffProfiler returns a CoeffProfiler for coefficient j of the
// fitted model.
func NewCoeffProfiler(result *GLMResults, j int) *CoeffProfiler {

	if j < 0 || j >= len(result.Params()) {
		msg := fmt.Sprintf("NewCoeffProfiler: coefficient %d out of range\n", j)
		panic(msg)
	}

	return &CoeffProfiler{
		results:    result,
		pos:        j,
		maxLogLike: result.LogLike(),
	}
}

type profPoint [][2]float64

func (a profPoint) Len() int           { return len(a) }
func (a profPoint) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a profPoint) Less(i, j int) bool { return a[i][0] < a[j][0] }

// LogLike returns the profile log likelihood value with the
// coefficient fixed at the given value.
func (cp *CoeffProfiler) LogLike(b float64) (float64, error) {

	model := cp.results.Model().(*GLM)
	params := cp.results.Params()

	// The restricted model shares the data with the original model.
	sub := &GLM{
		data:           model.data,
		varnames:       model.varnames,
		ypos:           model.ypos,
		weightpos:      model.weightpos,
		offsetpos:      model.offsetpos,
		fam:            model.fam,
		link:           model.link,
		vari:           model.vari,
		fitMethod:      model.fitMethod,
		maxIter:        model.maxIter,
		devTol:         model.devTol,
		concurrentIRLS: model.concurrentIRLS,
		log:            model.log,
	}

	var start []float64
	for j, k := range model.xpos {
		if j != cp.pos {
			sub.xpos = append(sub.xpos, k)
			start = append(start, params[j])
		}
	}
	sub.start = start

	sub.extraOffset = make([]float64, model.NumObs())
	floats.AddScaled(sub.extraOffset, b, model.data[model.xpos[cp.pos]])
	if model.extraOffset != nil {
		floats.Add(sub.extraOffset, model.extraOffset)
	}

	coeff := []float64{}
	if len(sub.xpos) > 0 {
		var err error
		var converged bool
		coeff, _, converged, err = sub.fitIRLS(start)
		if err != nil {
			return 0, err
		}
		if !converged {
			return 0, fmt.Errorf("glm: restricted fit at %v did not converge", b)
		}
	}

	scale := sub.EstimateScale(coeff)
	ll := sub.LogLike(&GLMParams{coeff, scale}, true)
	cp.Profile = append(cp.Profile, [2]float64{b, ll})

	return ll, nil
}

func bisectroot(f func(float64) (float64, error), x0, x1, y0, y1, yt, tol float64) (float64, [][2]float64, error) {

	if (y0-yt)*(y1-yt) > 0 {
		return 0, nil, fmt.Errorf("glm: bisectroot invalid bracket")
	}

	var hist [][2]float64

	for math.Abs(x1-x0) > tol {
		x := (x0 + x1) / 2
		y, err := f(x)
		if err != nil {
			return 0, hist, err
		}
		hist = append(hist, [2]float64{x, y})
		if (y-yt)*(y0-yt) > 0 {
			x0 = x
			y0 = y
		} else {
			x1 = x
		}
	}

	return (x0 + x1) / 2, hist, nil
}

// limit searches in direction dir (+1 or -1) from the estimate for the
// point where the profile log-likelihood falls to target.
func (cp *CoeffProfiler) limit(dir, target float64) (float64, error) {

	bhat := cp.results.Params()[cp.pos]
	step := cp.results.StdErr()[cp.pos]
	if math.IsNaN(step) || math.IsInf(step, 0) || step <= 0 {
		step = 1
	}

	x0, y0 := bhat, cp.maxLogLike
	for k := 0; k < maxExpand; k++ {
		x1 := bhat + dir*step
		y1, err := cp.LogLike(x1)
		if err != nil {
			return 0, err
		}
		if y1 < target {
			tol := 1e-6 * math.Max(1, math.Abs(x1-x0))
			r, _, err := bisectroot(cp.LogLike, x0, x1, y0, y1, target, tol)
			return r, err
		}
		x0, y0 = x1, y1
		step *= 2
	}

	return 0, fmt.Errorf("glm: profile likelihood does not reach the confidence limit")
}

// ConfInt identifies the limits of a profile likelihood confidence
// interval for the coefficient, at the given coverage level.  All
// points on the profile likelihood visited during the search are added
// to the Profile field of the CoeffProfiler value.
func (cp *CoeffProfiler) ConfInt(level float64) (float64, float64, error) {

	if level <= 0 || level >= 1 {
		msg := fmt.Sprintf("ConfInt: coverage level %f is not in (0, 1)\n", level)
		panic(msg)
	}

	target := cp.maxLogLike - distuv.ChiSquared{K: 1}.Quantile(level)/2

	lcb, err := cp.limit(-1, target)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}
	ucb, err := cp.limit(1, target)
	if err != nil {
		return math.NaN(), math.NaN(), err
	}

	sort.Sort(profPoint(cp.Profile))

	return lcb, ucb, nil
}

// ProfileConfInt returns profile likelihood confidence limits for
// every coefficient of the fitted model.
func (rslt *GLMResults) ProfileConfInt(level float64) ([]float64, []float64, error) {

	p := len(rslt.Params())
	lcb := make([]float64, p)
	ucb := make([]float64, p)
	for j := 0; j < p; j++ {
		var err error
		lcb[j], ucb[j], err = NewCoeffProfiler(rslt, j).ConfInt(level)
		if err != nil {
			return nil, nil, fmt.Errorf("glm: profile interval for %s: %w", rslt.Names()[j], err)
		}
	}

	return lcb, ucb, nil
}
