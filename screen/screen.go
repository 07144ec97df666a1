// Package screen fits one weighted Poisson regression per candidate
// predictor and flags the predictors to carry into the hierarchical
// models.
//
// A predictor is retained if the smallest p-value among its terms is
// below the threshold.  For a categorical predictor with several
// non-reference levels, one significant level retains the whole
// predictor.  Results therefore depend on how the levels are grouped
// when the features are derived.
package screen

import (
	"fmt"
	"math"

	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/regress"
)

// Options control the screening.
type Options struct {

	// Threshold is the p-value below which a predictor is retained.
	Threshold float64

	// Regress configures the individual fits.
	Regress regress.Options
}

// DefaultOptions returns a threshold of 0.2 and the default
// regression options.
func DefaultOptions() Options {
	return Options{
		Threshold: 0.2,
		Regress:   regress.DefaultOptions(),
	}
}

// Predictor holds the screening fit of one predictor.
type Predictor struct {
	Name string
	Kind features.Kind

	// Result is nil if the fit failed.
	Result *regress.ModelResult

	// MinP is the smallest p-value among the predictor's terms.
	MinP float64

	Retained bool

	// Err is set if the fit failed or gave unusable estimates.  A fit
	// that did not converge is kept, see Row.Converged.
	Err error
}

// Row is one term of a screening fit.
type Row struct {
	Variable string
	Level    string
	Kind     features.Kind
	Domain   features.Domain
	N        int

	RR     float64
	Lower  float64
	Upper  float64
	PValue float64

	Retained  bool
	Converged bool

	// Err is set for a predictor that could not be fit, which then has
	// a single row.
	Err error
}

// Report holds the screening of one domain.
type Report struct {
	Domain     features.Domain
	Threshold  float64
	Predictors []Predictor
}

// Screen fits each predictor of a domain on its own.  A failed fit is
// recorded on its predictor, and the other predictors are still fit.
func Screen(tab *features.Table, domain features.Domain, opts Options) (*Report, error) {

	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("screen: threshold %v is not in (0, 1]", opts.Threshold)
	}

	rep := &Report{Domain: domain, Threshold: opts.Threshold}
	for _, na := range tab.DomainNames(domain) {
		v, err := tab.Var(na)
		if err != nil {
			return nil, err
		}
		p := Predictor{Name: na, Kind: v.Kind, MinP: math.NaN()}

		mr, err := regress.Fit(tab, []string{na}, opts.Regress)
		if err != nil {
			p.Err = err
			if opts.Regress.Log != nil {
				opts.Regress.Log.Warn("screening fit failed", "domain", domain, "predictor", na, "error", err)
			}
			rep.Predictors = append(rep.Predictors, p)
			continue
		}
		if !mr.Converged && opts.Regress.Log != nil {
			opts.Regress.Log.Warn("screening fit did not converge", "domain", domain, "predictor", na,
				"iterations", mr.Iterations)
		}

		p.Result = mr
		p.MinP, p.Retained = decide(mr, na, opts.Threshold)

		rep.Predictors = append(rep.Predictors, p)
	}

	return rep, nil
}

// decide returns the smallest p-value among the terms of a predictor,
// and whether it is below the threshold.
func decide(mr *regress.ModelResult, name string, threshold float64) (float64, bool) {
	p := mr.MinPValue(name)
	return p, regress.Retain(p, threshold)
}

// Retained returns the names of the retained predictors, in report
// order.
func (rep *Report) Retained() []string {
	var na []string
	for _, p := range rep.Predictors {
		if p.Retained {
			na = append(na, p.Name)
		}
	}
	return na
}

// Predictor returns the screening of a named predictor.
func (rep *Report) Predictor(name string) (Predictor, bool) {
	for _, p := range rep.Predictors {
		if p.Name == name {
			return p, true
		}
	}
	return Predictor{}, false
}

// Rows returns one row per term for the predictors of the given kind.
func (rep *Report) Rows(kind features.Kind) []Row {
	var rows []Row
	for _, p := range rep.Predictors {
		if p.Kind != kind {
			continue
		}
		rows = append(rows, p.rows(rep.Domain)...)
	}
	return rows
}

// AllRows returns the numeric rows followed by the categorical rows.
func (rep *Report) AllRows() []Row {
	return append(rep.Rows(features.Numeric), rep.Rows(features.Categorical)...)
}

func (p Predictor) rows(d features.Domain) []Row {

	if p.Result == nil {
		return []Row{{
			Variable: p.Name,
			Kind:     p.Kind,
			Domain:   d,
			RR:       math.NaN(),
			Lower:    math.NaN(),
			Upper:    math.NaN(),
			PValue:   math.NaN(),
			Err:      p.Err,
		}}
	}

	var rows []Row
	for _, t := range p.Result.VarTerms(p.Name) {
		rows = append(rows, Row{
			Variable:  p.Name,
			Level:     t.Level,
			Kind:      p.Kind,
			Domain:    d,
			N:         p.Result.NumObs,
			RR:        t.RR,
			Lower:     t.RRLower,
			Upper:     t.RRUpper,
			PValue:    t.PValue,
			Retained:  p.Retained,
			Converged: p.Result.Converged,
			Err:       p.Err,
		})
	}
	return rows
}
