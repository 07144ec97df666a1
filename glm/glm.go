package glm

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/brunomontezano/covidpsy/statmodel"
)

// CovType selects how the sampling covariance of the estimates is
// obtained.
type CovType uint8

const (
	// ModelCov is the inverse of the expected information, scaled by
	// the dispersion.
	ModelCov CovType = iota

	// RobustCov is the design-based sandwich covariance, treating
	// each row as a primary sampling unit drawn with replacement.
	RobustCov
)

// GLM represents a generalized linear model.
type GLM struct {

	// The data columns
	data [][]statmodel.Dtype

	// The names of all variables in the dataset
	varnames []string

	// Positions of the covariates
	xpos []int

	// Position of the outcome variable
	ypos int

	// Position of the weight variable, -1 if absent
	weightpos int

	// Position of the offset variable, -1 if absent
	offsetpos int

	// An offset that is added to the offset variable, used when
	// profiling.  Nil unless set internally.
	extraOffset []float64

	// The GLM family
	fam *Family

	// The GLM link function
	link *Link

	// The GLM variance function
	vari *Variance

	// Either "irls" or "gradient"
	fitMethod string

	// Starting values, optional
	start []float64

	maxIter int
	devTol  float64

	covType CovType

	// If true, p-values and confidence intervals use a Student t
	// reference distribution with n - p degrees of freedom.
	tdist bool

	// Optimization settings for gradient fitting
	optsettings *optimize.Settings
	optmethod   optimize.Method

	// If not nil, write log messages here
	log *slog.Logger

	// Use concurrent calculations in IRLS if the sample size is at least
	// as large as this value.
	concurrentIRLS int

	// Recycled length-n slices
	nslices [][]float64
}

// Config defines configuration parameters for a GLM.
type Config struct {

	// Family is the GLM family, Gaussian if nil.
	Family *Family

	// Link is the link function, the canonical link of the family if nil.
	Link *Link

	// VarFunc is the variance function, the family default if nil.
	VarFunc *Variance

	// WeightVar is the name of a variable holding case weights.  If
	// empty, all weights are equal to 1.
	WeightVar string

	// OffsetVar is the name of a variable that defines an offset.
	OffsetVar string

	// Start contains starting values for the regression parameter estimates
	Start []float64

	// FitMethod is either "IRLS" (the default) or "gradient".
	FitMethod string

	// MaxIter is the maximum number of IRLS iterations.
	MaxIter int

	// DevTol is the convergence tolerance on the relative change in
	// deviance.
	DevTol float64

	// CovType selects model-based or robust covariance.
	CovType CovType

	// TDist selects a Student t reference distribution for inference.
	TDist bool

	// ConcurrentIRLS is the minimum sample size for which the IRLS
	// cross products are computed concurrently.
	ConcurrentIRLS int

	// A logger to which logging information is written
	Log *slog.Logger

	// OptMethod is the Gonum optimization used for gradient fitting.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultConfig returns default configuration values for a GLM.
func DefaultConfig() *Config {

	return &Config{
		Family:         NewFamily(GaussianFamily),
		FitMethod:      "IRLS",
		MaxIter:        25,
		DevTol:         1e-8,
		ConcurrentIRLS: 1000,
	}
}

// GLMParams represents the model parameters for a GLM.
type GLMParams struct {
	coeff []float64
	scale float64
}

// GetCoeff returns the coefficients (slopes for individual
// covariates) from the parameter.
func (p *GLMParams) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the coefficients (slopes for individual covariates)
// for the parameter.
func (p *GLMParams) SetCoeff(coeff []float64) {
	p.coeff = coeff
}

// Clone produces a deep copy of the parameter value.
func (p *GLMParams) Clone() statmodel.Parameter {
	coeff := make([]float64, len(p.coeff))
	copy(coeff, p.coeff)
	return &GLMParams{
		coeff: coeff,
		scale: p.scale,
	}
}

// NewGLMParams returns a parameter value with the given coefficients
// and scale.
func NewGLMParams(coeff []float64, scale float64) *GLMParams {
	return &GLMParams{coeff: coeff, scale: scale}
}

// NewGLM creates a new GLM for the given outcome and predictors.  The
// data must not contain missing values (NaN) in any variable used by
// the model, and weights must be non-negative.
func NewGLM(data statmodel.Dataset, outcome string, predictors []string, config *Config) (*GLM, error) {

	if config == nil {
		config = DefaultConfig()
	}

	pos := make(map[string]int)
	for i, v := range data.Names() {
		pos[v] = i
	}

	ypos, ok := pos[outcome]
	if !ok {
		return nil, fmt.Errorf("glm: outcome variable '%s' not found in dataset", outcome)
	}

	var xpos []int
	for _, xna := range predictors {
		xp, ok := pos[xna]
		if !ok {
			return nil, fmt.Errorf("glm: predictor '%s' not found in dataset", xna)
		}
		xpos = append(xpos, xp)
	}

	getpos := func(vn string) (int, error) {
		if vn == "" {
			return -1, nil
		}
		loc, ok := pos[vn]
		if !ok {
			return -1, fmt.Errorf("glm: variable '%s' not found in dataset", vn)
		}
		return loc, nil
	}

	weightpos, err := getpos(config.WeightVar)
	if err != nil {
		return nil, err
	}
	offsetpos, err := getpos(config.OffsetVar)
	if err != nil {
		return nil, err
	}

	fam := config.Family
	if fam == nil {
		fam = NewFamily(GaussianFamily)
	}

	link := config.Link
	if link == nil {
		link = NewLink(fam.validLinks[0])
	}
	if !fam.IsValidLink(link) {
		msg := fmt.Sprintf("Link %s is not valid for family %s\n", link.Name, fam.Name)
		panic(msg)
	}

	vari := config.VarFunc
	if vari == nil {
		vari = NewVariance(fam.variance)
	}

	fitMethod := strings.ToLower(config.FitMethod)
	switch fitMethod {
	case "":
		fitMethod = "irls"
	case "irls", "gradient":
	default:
		msg := fmt.Sprintf("GLM fitting method %s not allowed.\n", config.FitMethod)
		panic(msg)
	}

	if config.Start != nil && len(config.Start) != len(xpos) {
		msg := fmt.Sprintf("GLM: %d starting values for %d covariates\n", len(config.Start), len(xpos))
		panic(msg)
	}

	maxIter := config.MaxIter
	if maxIter <= 0 {
		maxIter = 25
	}
	devTol := config.DevTol
	if devTol <= 0 {
		devTol = 1e-8
	}
	concurrentIRLS := config.ConcurrentIRLS
	if concurrentIRLS <= 0 {
		concurrentIRLS = 1000
	}

	glm := &GLM{
		data:           data.Data(),
		varnames:       data.Names(),
		xpos:           xpos,
		ypos:           ypos,
		weightpos:      weightpos,
		offsetpos:      offsetpos,
		fam:            fam,
		link:           link,
		vari:           vari,
		fitMethod:      fitMethod,
		start:          config.Start,
		maxIter:        maxIter,
		devTol:         devTol,
		covType:        config.CovType,
		tdist:          config.TDist,
		optsettings:    config.OptSettings,
		optmethod:      config.OptMethod,
		log:            config.Log,
		concurrentIRLS: concurrentIRLS,
	}

	if err := glm.check(); err != nil {
		return nil, err
	}

	return glm, nil
}

// check verifies that the model variables have no missing values and
// that the weights are valid.
func (glm *GLM) check() error {

	cols := append([]int{glm.ypos}, glm.xpos...)
	if glm.offsetpos != -1 {
		cols = append(cols, glm.offsetpos)
	}
	for _, k := range cols {
		for i, v := range glm.data[k] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("glm: variable '%s' has a non-finite value in row %d", glm.varnames[k], i)
			}
		}
	}

	if glm.weightpos != -1 {
		for i, w := range glm.data[glm.weightpos] {
			if math.IsNaN(w) || w < 0 {
				return fmt.Errorf("glm: weight variable '%s' has invalid value %v in row %d",
					glm.varnames[glm.weightpos], w, i)
			}
		}
	}

	if glm.fam.TypeCode == PoissonFamily {
		for i, y := range glm.data[glm.ypos] {
			if y < 0 {
				return fmt.Errorf("glm: negative outcome %v in row %d for Poisson family", y, i)
			}
		}
	}

	return nil
}

// NumParams returns the number of covariates in the model.
func (glm *GLM) NumParams() int {
	return len(glm.xpos)
}

// NumObs returns the number of observations used to fit the model.
func (glm *GLM) NumObs() int {
	return len(glm.data[glm.ypos])
}

// Xpos returns the positions of the covariates in the model's dataset.
func (glm *GLM) Xpos() []int {
	return glm.xpos
}

// Dataset returns the data columns that are used to fit the model.
func (glm *GLM) Dataset() [][]statmodel.Dtype {
	return glm.data
}

// Family returns the family of the model.
func (glm *GLM) Family() *Family {
	return glm.fam
}

// Link returns the link function of the model.
func (glm *GLM) Link() *Link {
	return glm.link
}

func (glm *GLM) putNslice(x []float64) {
	glm.nslices = append(glm.nslices, x)
}

func (glm *GLM) getNslice() []float64 {

	if len(glm.nslices) == 0 {
		return make([]float64, glm.NumObs())
	}
	q := len(glm.nslices) - 1
	x := glm.nslices[q]
	zero(x)
	glm.nslices = glm.nslices[0:q]

	return x
}

// weights returns the case weights, or nil if there are none.
func (glm *GLM) weights() []statmodel.Dtype {
	if glm.weightpos == -1 {
		return nil
	}
	return glm.data[glm.weightpos]
}

// linearPredictor computes the linear predictor, including offsets,
// at the given coefficients.
func (glm *GLM) linearPredictor(coeff []float64, linpred []float64) {

	zero(linpred)
	for j, k := range glm.xpos {
		floats.AddScaled(linpred, coeff[j], glm.data[k])
	}
	if glm.offsetpos != -1 {
		floats.Add(linpred, glm.data[glm.offsetpos])
	}
	if glm.extraOffset != nil {
		floats.Add(linpred, glm.extraOffset)
	}
}

// LogLike returns the log-likelihood value for the generalized linear
// model at the given parameter values.
func (glm *GLM) LogLike(params statmodel.Parameter, exact bool) float64 {

	gpar := params.(*GLMParams)

	linpred := glm.getNslice()
	mn := glm.getNslice()

	glm.linearPredictor(gpar.coeff, linpred)
	glm.link.InvLink(linpred, mn)

	scale := gpar.scale
	if scale == 0 {
		scale = 1
	}
	ll := glm.fam.LogLike(glm.data[glm.ypos], mn, glm.weights(), scale, exact)

	glm.putNslice(linpred)
	glm.putNslice(mn)

	return ll
}

func scoreFactor(yda []statmodel.Dtype, mn, deriv, va, sfac []float64) {
	for i, y := range yda {
		sfac[i] = (y - mn[i]) / (deriv[i] * va[i])
	}
}

// Score returns the score vector for the generalized linear model at
// the given parameter values.
func (glm *GLM) Score(params statmodel.Parameter, score []float64) {

	gpar := params.(*GLMParams)

	linpred := glm.getNslice()
	mn := glm.getNslice()
	deriv := glm.getNslice()
	va := glm.getNslice()
	fac := glm.getNslice()

	glm.linearPredictor(gpar.coeff, linpred)
	glm.link.InvLink(linpred, mn)
	glm.link.Deriv(mn, deriv)
	glm.vari.Var(mn, va)

	scoreFactor(glm.data[glm.ypos], mn, deriv, va, fac)
	if wgts := glm.weights(); wgts != nil {
		floats.Mul(fac, wgts)
	}

	zero(score)
	for j, k := range glm.xpos {
		score[j] = floats.Dot(fac, glm.data[k])
	}

	glm.putNslice(linpred)
	glm.putNslice(mn)
	glm.putNslice(deriv)
	glm.putNslice(va)
	glm.putNslice(fac)
}

// Hessian returns the Hessian matrix for the model.  The Hessian is
// returned as a one-dimensional array, which is the vectorized form
// of the Hessian matrix.  Either the observed or expected Hessian can
// be calculated.
func (glm *GLM) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	gpar := param.(*GLMParams)

	nvar := glm.NumParams()
	wgts := glm.weights()
	yda := glm.data[glm.ypos]

	xdat := make([][]float64, nvar)
	for j, k := range glm.xpos {
		xdat[j] = glm.data[k]
	}

	linpred := glm.getNslice()
	mn := glm.getNslice()
	lderiv := glm.getNslice()
	va := glm.getNslice()
	fac := glm.getNslice()

	glm.linearPredictor(gpar.coeff, linpred)

	// The mean response
	glm.link.InvLink(linpred, mn)

	glm.link.Deriv(mn, lderiv)
	glm.vari.Var(mn, va)

	// Factor for the expected Hessian
	for i := range lderiv {
		fac[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
	}

	// Adjust the factor for the observed Hessian
	if ht == statmodel.ObsHess {
		lderiv2 := glm.getNslice()
		vad := glm.getNslice()
		sfac := glm.getNslice()
		glm.link.Deriv2(mn, lderiv2)
		glm.vari.Deriv(mn, vad)
		scoreFactor(yda, mn, lderiv, va, sfac)

		for i := range fac {
			h := va[i]*lderiv2[i] + lderiv[i]*vad[i]
			fac[i] *= 1 + h*sfac[i]
		}
		glm.putNslice(lderiv2)
		glm.putNslice(vad)
		glm.putNslice(sfac)
	}

	zero(hess)
	glm.hessXprod(xdat, fac, wgts, hess)

	// Fill in the upper triangle
	for j1 := 0; j1 < nvar; j1++ {
		for j2 := 0; j2 < j1; j2++ {
			hess[j2*nvar+j1] = hess[j1*nvar+j2]
		}
	}

	glm.putNslice(linpred)
	glm.putNslice(mn)
	glm.putNslice(lderiv)
	glm.putNslice(va)
	glm.putNslice(fac)
}

func (glm *GLM) hessXprod(xdat [][]float64, fac []float64, wgts []statmodel.Dtype, hess []float64) {

	nvar := len(xdat)

	var wg sync.WaitGroup

	for j1 := 0; j1 < nvar; j1++ {
		for j2 := 0; j2 <= j1; j2++ {

			wg.Add(1)
			go func(j1, j2 int) {
				x1 := xdat[j1]
				x2 := xdat[j2]
				var u float64
				if wgts == nil {
					for i := range x1 {
						u += fac[i] * x1[i] * x2[i]
					}
				} else {
					for i := range x1 {
						u += wgts[i] * fac[i] * x1[i] * x2[i]
					}
				}
				hess[j1*nvar+j2] -= u
				wg.Done()
			}(j1, j2)
		}
	}

	wg.Wait()
}

// robustVcov returns the sandwich covariance matrix B^-1 M B^-1, where
// B is the expected information and M is the with-replacement
// estimate of the covariance of the summed score contributions.
func (glm *GLM) robustVcov(params []float64) ([]float64, error) {

	nvar := glm.NumParams()
	n := glm.NumObs()
	if n < 2 {
		return nil, fmt.Errorf("glm: robust covariance needs at least two observations")
	}

	hess := make([]float64, nvar*nvar)
	glm.Hessian(&GLMParams{params, 1}, statmodel.ExpHess, hess)
	binv, err := statmodel.InvertInformation(hess, nvar)
	if err != nil {
		return nil, err
	}

	linpred := glm.getNslice()
	mn := glm.getNslice()
	lderiv := glm.getNslice()
	va := glm.getNslice()
	fac := glm.getNslice()
	defer func() {
		glm.putNslice(linpred)
		glm.putNslice(mn)
		glm.putNslice(lderiv)
		glm.putNslice(va)
		glm.putNslice(fac)
	}()

	glm.linearPredictor(params, linpred)
	glm.link.InvLink(linpred, mn)
	glm.link.Deriv(mn, lderiv)
	glm.vari.Var(mn, va)
	scoreFactor(glm.data[glm.ypos], mn, lderiv, va, fac)
	if wgts := glm.weights(); wgts != nil {
		floats.Mul(fac, wgts)
	}

	// Centered score contributions, one row per observation
	u := mat.NewDense(n, nvar, nil)
	for j, k := range glm.xpos {
		col := make([]float64, n)
		floats.MulTo(col, fac, glm.data[k])
		m := floats.Sum(col) / float64(n)
		floats.AddConst(-m, col)
		u.SetCol(j, col)
	}

	var meat mat.Dense
	meat.Mul(u.T(), u)
	meat.Scale(float64(n)/float64(n-1), &meat)

	bm := mat.NewDense(nvar, nvar, binv)
	var vc mat.Dense
	vc.Product(bm, &meat, bm)

	vcov := make([]float64, nvar*nvar)
	for j1 := 0; j1 < nvar; j1++ {
		for j2 := 0; j2 < nvar; j2++ {
			vcov[j1*nvar+j2] = vc.At(j1, j2)
		}
	}

	return vcov, nil
}

// GLMResults describes the results of a fitted generalized linear model.
type GLMResults struct {
	statmodel.BaseResults

	scale      float64
	deviance   float64
	converged  bool
	iterations int
	covType    CovType
}

// Scale returns the estimated scale parameter.
func (rslt *GLMResults) Scale() float64 {
	return rslt.scale
}

// Deviance returns the deviance of the fitted model.
func (rslt *GLMResults) Deviance() float64 {
	return rslt.deviance
}

// Converged reports whether the fitting algorithm met its convergence
// criterion.
func (rslt *GLMResults) Converged() bool {
	return rslt.converged
}

// Iterations returns the number of iterations used by the fitting
// algorithm.
func (rslt *GLMResults) Iterations() int {
	return rslt.iterations
}

// NumObs returns the number of observations used in the fit.
func (rslt *GLMResults) NumObs() int {
	return rslt.Model().NumObs()
}

// numEstimated is the number of estimated parameters, including the
// scale parameter for families that estimate it.
func (rslt *GLMResults) numEstimated() float64 {
	glm := rslt.Model().(*GLM)
	return float64(len(rslt.Params()) + glm.fam.NumScaleParams())
}

// AIC returns the Akaike information criterion for the fitted model.
func (rslt *GLMResults) AIC() float64 {
	return -2*rslt.LogLike() + 2*rslt.numEstimated()
}

// BIC returns the Bayesian information criterion for the fitted model.
func (rslt *GLMResults) BIC() float64 {
	return -2*rslt.LogLike() + rslt.numEstimated()*math.Log(float64(rslt.NumObs()))
}

// Fit estimates the parameters of the GLM and returns a results
// object.  A fit that did not converge is still returned without an
// error, see GLMResults.Converged.
func (glm *GLM) Fit() (*GLMResults, error) {

	nvar := glm.NumParams()

	var xna []string
	for _, k := range glm.xpos {
		xna = append(xna, glm.varnames[k])
	}

	// A model with no covariates, only the offset.
	if nvar == 0 {
		scale := glm.EstimateScale(nil)
		ll := glm.LogLike(&GLMParams{nil, scale}, true)
		results := &GLMResults{
			BaseResults: statmodel.NewBaseResults(glm, ll, []float64{}, xna, []float64{}),
			scale:       scale,
			deviance:    glm.deviance(nil, scale),
			converged:   true,
			covType:     glm.covType,
		}
		return results, nil
	}

	start := make([]float64, nvar)
	if glm.start != nil {
		copy(start, glm.start)
	}

	var params []float64
	var iter int
	var converged bool
	var err error

	if glm.fitMethod == "gradient" {
		if glm.log != nil {
			glm.log.Debug("fitting using gradient optimization")
		}
		params, iter, err = glm.fitGradient(start)
		converged = err == nil
	} else {
		if glm.log != nil {
			glm.log.Debug("fitting using IRLS")
		}
		params, iter, converged, err = glm.fitIRLS(start)
		if err != nil {
			// The weighted least squares system was singular, retry
			// with gradient optimization.
			if glm.log != nil {
				glm.log.Debug("IRLS failed, falling back to gradient optimization", "error", err)
			}
			params, iter, err = glm.fitGradient(start)
			converged = err == nil
		}
	}
	if err != nil {
		return nil, err
	}

	scale := glm.EstimateScale(params)

	var vcov []float64
	switch glm.covType {
	case RobustCov:
		vcov, err = glm.robustVcov(params)
	default:
		vcov, err = statmodel.GetVcov(glm, &GLMParams{params, scale})
		if err == nil {
			floats.Scale(scale, vcov)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("glm: covariance of the estimates: %w", err)
	}

	ll := glm.LogLike(&GLMParams{params, scale}, true)

	results := &GLMResults{
		BaseResults: statmodel.NewBaseResults(glm, ll, params, xna, vcov),
		scale:       scale,
		deviance:    glm.deviance(params, 1),
		converged:   converged,
		iterations:  iter,
		covType:     glm.covType,
	}

	if glm.tdist {
		if df := glm.NumObs() - nvar; df > 0 {
			results.SetDF(float64(df))
		}
	}

	if glm.log != nil {
		glm.log.Debug("GLM fit complete", "family", glm.fam.Name, "nobs", glm.NumObs(),
			"iterations", iter, "converged", converged, "loglike", ll)
	}

	return results, nil
}

// deviance returns the deviance at the given coefficients.
func (glm *GLM) deviance(params []float64, scale float64) float64 {

	linpred := glm.getNslice()
	mn := glm.getNslice()
	glm.linearPredictor(params, linpred)
	glm.link.InvLink(linpred, mn)
	dev := glm.fam.Deviance(glm.data[glm.ypos], mn, glm.weights(), scale)
	glm.putNslice(linpred)
	glm.putNslice(mn)

	return dev
}

// fitGradient uses gradient-based optimization to obtain the fitted
// GLM parameters.
func (glm *GLM) fitGradient(start []float64) ([]float64, int, error) {

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -glm.LogLike(&GLMParams{x, 1}, false)
		},
		Grad: func(grad, x []float64) {
			glm.Score(&GLMParams{x, 1}, grad)
			floats.Scale(-1, grad)
		},
	}

	settings := glm.optsettings
	if settings == nil {
		settings = &optimize.Settings{
			GradientThreshold: 1e-6,
		}
	}

	method := glm.optmethod
	if method == nil {
		method = &optimize.BFGS{}
	}

	optrslt, err := optimize.Minimize(p, start, settings, method)
	if err != nil {
		if optrslt != nil {
			glm.failMessage(optrslt)
		}
		return nil, 0, fmt.Errorf("glm: gradient optimization: %w", err)
	}
	if err = optrslt.Status.Err(); err != nil {
		return nil, 0, fmt.Errorf("glm: gradient optimization: %w", err)
	}

	params := make([]float64, len(optrslt.X))
	copy(params, optrslt.X)

	return params, optrslt.Stats.MajorIterations, nil
}

// failMessage logs information that can help diagnose optimization failures.
func (glm *GLM) failMessage(optrslt *optimize.Result) {

	if glm.log == nil {
		return
	}

	for j, x := range optrslt.X {
		var g float64
		if j < len(optrslt.Gradient) {
			g = optrslt.Gradient[j]
		}
		glm.log.Debug("optimization failed", "variable", glm.varnames[glm.xpos[j]],
			"value", x, "gradient", g)
	}
}

// EstimateScale returns an estimate of the GLM scale parameter at the
// given parameter values.
func (glm *GLM) EstimateScale(params []float64) float64 {

	if !glm.fam.freeScale {
		return 1
	}

	nvar := glm.NumParams()
	wgt := glm.weights()
	yda := glm.data[glm.ypos]

	linpred := glm.getNslice()
	mn := glm.getNslice()
	va := glm.getNslice()

	glm.linearPredictor(params, linpred)

	// The mean response and variance
	glm.link.InvLink(linpred, mn)
	glm.vari.Var(mn, va)

	var scale, ws float64
	for i, y := range yda {
		r := y - mn[i]
		if wgt == nil {
			scale += r * r / va[i]
			ws++
		} else {
			scale += wgt[i] * r * r / va[i]
			ws += wgt[i]
		}
	}

	glm.putNslice(linpred)
	glm.putNslice(mn)
	glm.putNslice(va)

	return scale / (ws - float64(nvar))
}

// zero sets all elements of the slice to 0
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// one sets all elements of the slice to 1
func one(x []float64) {
	for i := range x {
		x[i] = 1
	}
}

// GLMSummary summarizes a fitted generalized linear model.
type GLMSummary struct {

	// The GLM
	glm *GLM

	// The results structure
	results *GLMResults

	// Transform the parameters with this function.  If nil,
	// no transformation is applied.  If paramXform is provided,
	// the standard error and Z-score are not shown.
	paramXform func(float64) float64

	// Messages that are appended to the table
	messages []string
}

// SetScale sets the scale on which the parameter results are
// displayed in the summary.  'xf' is a function that maps
// parameters and confidence limits from the linear scale to
// the desired scale.  'msg' is a message that is appended
// to the summary table.
func (gs *GLMSummary) SetScale(xf func(float64) float64, msg string) *GLMSummary {
	gs.paramXform = xf
	gs.messages = append(gs.messages, msg)
	return gs
}

// String returns a string representation of a summary table for the model.
func (gs *GLMSummary) String() string {

	xf := func(x float64) float64 {
		return x
	}

	if gs.paramXform != nil {
		xf = gs.paramXform
	}

	sum := &statmodel.SummaryTable{
		Msg: gs.messages,
	}

	sum.Title = "Generalized linear model analysis"

	cov := "Model"
	if gs.results.covType == RobustCov {
		cov = "Robust"
	}

	sum.Top = []string{
		fmt.Sprintf("Family:   %s", gs.glm.fam.Name),
		fmt.Sprintf("Link:     %s", gs.glm.link.Name),
		fmt.Sprintf("Variance: %s", gs.glm.vari.Name),
		fmt.Sprintf("Num obs:  %d", gs.glm.NumObs()),
		fmt.Sprintf("Scale:    %f", gs.results.scale),
		fmt.Sprintf("Cov type: %s", cov),
		fmt.Sprintf("Log-like: %.4f", gs.results.LogLike()),
		fmt.Sprintf("AIC:      %.4f", gs.results.AIC()),
	}

	if gs.paramXform == nil {
		sum.ColNames = []string{"Variable   ", "Parameter", "SE", "LCB", "UCB", "Z-score", "P-value"}
		sum.ColFmt = []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt, statmodel.FloatFmt,
			statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt, statmodel.FloatFmt}
	} else {
		sum.ColNames = []string{"Variable   ", "Parameter", "LCB", "UCB", "P-value"}
		sum.ColFmt = []statmodel.Fmter{statmodel.StringFmt, statmodel.FloatFmt, statmodel.FloatFmt,
			statmodel.FloatFmt, statmodel.FloatFmt}
	}

	// Create estimate and CI for the parameters
	var par, lcb, ucb []float64
	pax := gs.results.Params()
	lo, hi := gs.results.ConfInt(0.95)
	for j := range pax {
		par = append(par, xf(pax[j]))
		lcb = append(lcb, xf(lo[j]))
		ucb = append(ucb, xf(hi[j]))
	}

	if gs.paramXform == nil {
		sum.Cols = []interface{}{
			gs.results.Names(),
			par,
			gs.results.StdErr(),
			lcb,
			ucb,
			gs.results.ZScores(),
			gs.results.PValues(),
		}
	} else {
		sum.Cols = []interface{}{
			gs.results.Names(),
			par,
			lcb,
			ucb,
			gs.results.PValues(),
		}
	}

	return sum.String()
}

// Summary displays a summary table of the model results.
func (rslt *GLMResults) Summary() *GLMSummary {

	glm := rslt.Model().(*GLM)

	return &GLMSummary{
		glm:     glm,
		results: rslt,
	}
}
