// Package regress fits survey-weighted Poisson regressions of the
// incident loneliness outcome on a set of features, and reports the
// coefficients on the risk ratio scale.
//
// Categorical features are coded with one indicator per non-reference
// level.  Rows with a missing value in the outcome, the weight or any
// of the predictors are excluded, and the weights of the remaining
// rows are rescaled to have mean 1.
package regress

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/glm"
	"github.com/brunomontezano/covidpsy/statmodel"
)

// Confidence interval methods.
const (
	Wald    = "wald"
	Profile = "profile"
)

// ErrDegenerate is returned when a fit gives non-finite standard
// errors or confidence limits.
var ErrDegenerate = errors.New("regress: degenerate fit")

// ErrTooFewObs is returned when there are fewer complete cases than
// model parameters.
var ErrTooFewObs = errors.New("regress: too few complete cases")

// Options control a fit.
type Options struct {

	// Weighting selects the regression weights.
	Weighting features.Weighting

	// ConfLevel is the coverage of the confidence intervals.
	ConfLevel float64

	// CIMethod is Wald or Profile.
	CIMethod string

	// MaxIter is the maximum number of IRLS iterations.
	MaxIter int

	// Log receives diagnostics, may be nil.
	Log *slog.Logger
}

// DefaultOptions returns the options used throughout the analysis:
// combined weights and 95% Wald intervals.
func DefaultOptions() Options {
	return Options{
		Weighting: features.CombinedWeight,
		ConfLevel: 0.95,
		CIMethod:  Wald,
		MaxIter:   25,
	}
}

// Term is one coefficient of a fitted model.
type Term struct {

	// Variable is the feature the term belongs to.
	Variable string

	// Level is the level of a categorical feature coded by the term,
	// empty for numeric features and the intercept.
	Level string

	// Name identifies the term within a model.
	Name string

	// Estimate, StdErr and the confidence limits are on the log scale.
	Estimate float64
	StdErr   float64
	PValue   float64
	Lower    float64
	Upper    float64

	// The risk ratio and its confidence limits.
	RR      float64
	RRLower float64
	RRUpper float64
}

// ModelResult holds a fitted model.
type ModelResult struct {

	// Predictors are the features in the model, in model order.
	Predictors []string

	// Intercept is the constant term.
	Intercept Term

	// Terms holds the non-intercept terms in model order.
	Terms []Term

	// Empty lists categorical levels not observed among the complete
	// cases, these have no term.
	Empty []string

	NumObs     int
	LogLike    float64
	AIC        float64
	BIC        float64
	Converged  bool
	Iterations int

	// CIMethod is the method used for the confidence intervals.
	CIMethod string
}

// TermName returns the name of the term coding a level of a feature.
func TermName(variable, level string) string {
	if level == "" {
		return variable
	}
	return variable + ":" + level
}

// VarTerms returns the terms of a feature.
func (m *ModelResult) VarTerms(variable string) []Term {
	var terms []Term
	for _, t := range m.Terms {
		if t.Variable == variable {
			terms = append(terms, t)
		}
	}
	return terms
}

// Term returns the named term.
func (m *ModelResult) Term(name string) (Term, bool) {
	for _, t := range m.Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// MinPValue returns the smallest p-value among the terms of a feature,
// or NaN if the feature has no terms.
func (m *ModelResult) MinPValue(variable string) float64 {
	p := math.NaN()
	for _, t := range m.VarTerms(variable) {
		if math.IsNaN(p) || t.PValue < p {
			p = t.PValue
		}
	}
	return p
}

// Retain returns true if a p-value is below a threshold.  A NaN
// p-value is never retained.
func Retain(p, threshold float64) bool {
	return p < threshold
}

// design holds the columns of a model.
type design struct {
	names []string
	data  [][]float64
	terms []Term
	empty []string
}

// Fit regresses the outcome on the given features.
func Fit(tab *features.Table, predictors []string, opts Options) (*ModelResult, error) {

	if opts.ConfLevel <= 0 || opts.ConfLevel >= 1 {
		opts.ConfLevel = 0.95
	}
	if opts.CIMethod == "" {
		opts.CIMethod = Wald
	}

	vars := make([]*features.Var, len(predictors))
	for j, na := range predictors {
		v, err := tab.Var(na)
		if err != nil {
			return nil, err
		}
		vars[j] = v
	}

	y := tab.Outcome()
	wt := tab.Weights(opts.Weighting)

	// Complete cases
	var rows []int
	for i := range y {
		ok := !math.IsNaN(y[i]) && !math.IsNaN(wt[i])
		for _, v := range vars {
			ok = ok && !v.Missing(i)
		}
		if ok {
			rows = append(rows, i)
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrTooFewObs)
	}

	des, err := buildDesign(vars, rows)
	if err != nil {
		return nil, err
	}
	if len(rows) <= len(des.names) {
		return nil, fmt.Errorf("%w: %d rows for %d parameters", ErrTooFewObs, len(rows), len(des.names))
	}

	yc := make([]float64, len(rows))
	wc := make([]float64, len(rows))
	var wsum float64
	for k, i := range rows {
		yc[k] = y[i]
		wc[k] = wt[i]
		wsum += wt[i]
	}
	if !(wsum > 0) {
		return nil, fmt.Errorf("%w: the weights sum to zero", ErrDegenerate)
	}
	for k := range wc {
		wc[k] *= float64(len(wc)) / wsum
	}

	data := append([][]float64{yc, wc}, des.data...)
	names := append([]string{"outcome", "weight"}, des.names...)
	ds := statmodel.NewDataset(data, names)

	config := glm.DefaultConfig()
	config.Family = glm.NewFamily(glm.PoissonFamily)
	config.WeightVar = "weight"
	config.CovType = glm.RobustCov
	config.TDist = true
	config.MaxIter = opts.MaxIter
	config.Log = opts.Log

	model, err := glm.NewGLM(ds, "outcome", des.names, config)
	if err != nil {
		return nil, err
	}
	rslt, err := model.Fit()
	if err != nil {
		return nil, err
	}

	mr := &ModelResult{
		Predictors: append([]string(nil), predictors...),
		Empty:      des.empty,
		NumObs:     rslt.NumObs(),
		LogLike:    rslt.LogLike(),
		AIC:        rslt.AIC(),
		BIC:        rslt.BIC(),
		Converged:  rslt.Converged(),
		Iterations: rslt.Iterations(),
		CIMethod:   opts.CIMethod,
	}

	lcb, ucb := rslt.ConfInt(opts.ConfLevel)
	if opts.CIMethod == Profile {
		plcb, pucb, err := rslt.ProfileConfInt(opts.ConfLevel)
		if err == nil {
			lcb, ucb = plcb, pucb
		} else {
			mr.CIMethod = Wald
			if opts.Log != nil {
				opts.Log.Warn("profile confidence interval failed, using Wald", "predictors", predictors, "error", err)
			}
		}
	}

	params := rslt.Params()
	se := rslt.StdErr()
	pv := rslt.PValues()
	for j := range params {
		t := des.terms[j]
		t.Estimate = params[j]
		t.StdErr = se[j]
		t.PValue = pv[j]
		t.Lower = lcb[j]
		t.Upper = ucb[j]
		t.RR = math.Exp(t.Estimate)
		t.RRLower = math.Exp(t.Lower)
		t.RRUpper = math.Exp(t.Upper)
		if !finite(t.StdErr, t.Lower, t.Upper, t.RRLower, t.RRUpper) {
			return nil, fmt.Errorf("%w: term %s", ErrDegenerate, t.Name)
		}
		if j == 0 {
			mr.Intercept = t
		} else {
			mr.Terms = append(mr.Terms, t)
		}
	}

	return mr, nil
}

// buildDesign returns the intercept and the predictor columns for the
// given rows.  A categorical feature is coded by indicators of its
// non-reference levels that occur in the rows.
func buildDesign(vars []*features.Var, rows []int) (*design, error) {

	des := &design{}

	icept := make([]float64, len(rows))
	for k := range icept {
		icept[k] = 1
	}
	des.names = append(des.names, "(Intercept)")
	des.data = append(des.data, icept)
	des.terms = append(des.terms, Term{Name: "(Intercept)"})

	for _, v := range vars {
		if v.Kind == features.Numeric {
			x := make([]float64, len(rows))
			for k, i := range rows {
				x[k] = v.Values[i]
			}
			des.names = append(des.names, v.Name)
			des.data = append(des.data, x)
			des.terms = append(des.terms, Term{Variable: v.Name, Name: v.Name})
			continue
		}

		counts := make([]int, len(v.Levels))
		for _, i := range rows {
			counts[v.Codes[i]]++
		}
		if len(rows) > 0 && counts[0] == 0 {
			return nil, fmt.Errorf("%w: reference level '%s' of %s is not observed", ErrDegenerate, v.Levels[0], v.Name)
		}

		var nind int
		for j := 1; j < len(v.Levels); j++ {
			na := TermName(v.Name, v.Levels[j])
			if counts[j] == 0 {
				des.empty = append(des.empty, na)
				continue
			}
			x := make([]float64, len(rows))
			for k, i := range rows {
				if v.Codes[i] == j {
					x[k] = 1
				}
			}
			des.names = append(des.names, na)
			des.data = append(des.data, x)
			des.terms = append(des.terms, Term{Variable: v.Name, Level: v.Levels[j], Name: na})
			nind++
		}
		if nind == 0 {
			return nil, fmt.Errorf("%w: %s has a single observed level", ErrDegenerate, v.Name)
		}
	}

	return des, nil
}

func finite(x ...float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
