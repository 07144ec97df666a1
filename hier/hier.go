// Package hier fits the three nested regression blocks.  Block 1 holds
// the screened sociodemographic predictors, block 2 adds the screened
// lifestyle and social predictors, and block 3 adds the screened
// clinical predictors.
//
// Whether a predictor is carried into later blocks is decided once,
// from its p-value in the block where it first enters, and that
// decision is never revisited.
package hier

import (
	"errors"
	"fmt"
	"math"

	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/regress"
	"github.com/brunomontezano/covidpsy/screen"
)

// ErrNotConverged is recorded for a block whose fit did not converge.
var ErrNotConverged = errors.New("hier: fit did not converge")

// ErrEmptyBlock is recorded for a block with no predictors.
var ErrEmptyBlock = errors.New("hier: no predictors")

// NumBlocks is the number of nested models.
const NumBlocks = 3

// blockDomains gives the domains whose screened predictors enter each
// block.
var blockDomains = [NumBlocks][]features.Domain{
	{features.Sociodemographic},
	{features.Lifestyle, features.Social},
	{features.Clinical},
}

// Options control the hierarchical fits.
type Options struct {

	// EntryThreshold is the p-value below which a predictor entering a
	// block is kept in the later blocks.
	EntryThreshold float64

	// Alpha is the significance level reported for the final block.
	Alpha float64

	// Regress configures the block fits.
	Regress regress.Options
}

// DefaultOptions returns an entry threshold of 0.1 and a reporting
// level of 0.05.
func DefaultOptions() Options {
	return Options{
		EntryThreshold: 0.1,
		Alpha:          0.05,
		Regress:        regress.DefaultOptions(),
	}
}

// Entry records the retention decision for a predictor, made in the
// block where it first enters.
type Entry struct {
	Predictor string
	Domain    features.Domain
	Block     int

	// MinP is the smallest p-value among the predictor's terms in its
	// entry block, NaN if that block failed.
	MinP float64

	// Retained is true if the predictor is kept in later blocks.
	Retained bool
}

// Block is one fitted model.
type Block struct {

	// Index is 1, 2 or 3.
	Index int

	Domains []features.Domain

	// Entering are the predictors first entering in this block.
	Entering []string

	// Predictors are all predictors in the model.
	Predictors []string

	// Result is nil if the block failed.
	Result *regress.ModelResult

	Err error
}

// Result holds the three blocks.
type Result struct {
	Blocks  [NumBlocks]*Block
	Entries []Entry

	// Screens are the domain screenings the blocks were built from.
	Screens []*screen.Report

	Alpha float64
}

type fitter func(*features.Table, []string, regress.Options) (*regress.ModelResult, error)

// Fit fits the three blocks using the predictors retained by the
// domain screenings.  A failed block is recorded and the remaining
// blocks are fit, with the predictors that entered the failed block
// carried forward.
func Fit(tab *features.Table, screens []*screen.Report, opts Options) (*Result, error) {
	return fit(tab, screens, opts, regress.Fit)
}

func fit(tab *features.Table, screens []*screen.Report, opts Options, fitfn fitter) (*Result, error) {

	if opts.EntryThreshold <= 0 || opts.EntryThreshold > 1 {
		return nil, fmt.Errorf("hier: entry threshold %v is not in (0, 1]", opts.EntryThreshold)
	}

	byDomain := make(map[features.Domain]*screen.Report)
	for _, rep := range screens {
		byDomain[rep.Domain] = rep
	}

	res := &Result{Screens: screens, Alpha: opts.Alpha}
	lg := opts.Regress.Log

	var carry []string
	for k, doms := range blockDomains {
		b := &Block{Index: k + 1, Domains: doms}
		res.Blocks[k] = b

		domainOf := make(map[string]features.Domain)
		for _, d := range doms {
			rep, ok := byDomain[d]
			if !ok {
				return nil, fmt.Errorf("hier: no screening for the %s domain", d)
			}
			for _, na := range rep.Retained() {
				b.Entering = append(b.Entering, na)
				domainOf[na] = d
			}
		}
		b.Predictors = append(append([]string(nil), carry...), b.Entering...)

		if len(b.Predictors) == 0 {
			b.Err = ErrEmptyBlock
			continue
		}

		mr, err := fitfn(tab, b.Predictors, opts.Regress)
		if err == nil && !mr.Converged {
			err = fmt.Errorf("%w after %d iterations", ErrNotConverged, mr.Iterations)
		}

		if err != nil {
			b.Err = fmt.Errorf("block %d: %w", b.Index, err)
			if lg != nil {
				lg.Warn("block fit failed", "block", b.Index, "error", err)
			}
			for _, na := range b.Entering {
				res.Entries = append(res.Entries, Entry{Predictor: na, Domain: domainOf[na], Block: b.Index,
					MinP: math.NaN(), Retained: true})
			}
			carry = b.Predictors
			continue
		}

		b.Result = mr
		for _, na := range b.Entering {
			e := Entry{Predictor: na, Domain: domainOf[na], Block: b.Index, MinP: mr.MinPValue(na)}
			e.Retained = regress.Retain(e.MinP, opts.EntryThreshold)
			res.Entries = append(res.Entries, e)
			if e.Retained {
				carry = append(carry, na)
			}
		}

		if lg != nil {
			lg.Info("block fit", "block", b.Index, "predictors", len(b.Predictors), "nobs", mr.NumObs,
				"loglike", mr.LogLike, "retained", len(carry))
		}
	}

	return res, nil
}

// Entry returns the entry record of a predictor.
func (r *Result) Entry(name string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Predictor == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Final returns the last block.
func (r *Result) Final() *Block {
	return r.Blocks[NumBlocks-1]
}

// Significant returns true if a term of the final block has p-value
// below Alpha.
func (r *Result) Significant(t regress.Term) bool {
	f := r.Final()
	if f.Result == nil {
		return false
	}
	ft, ok := f.Result.Term(t.Name)
	if !ok {
		return false
	}
	return ft.PValue < r.Alpha
}

// EntryRows returns the screening rows of the predictors entering a
// block, numeric predictors first.
func (r *Result) EntryRows(block int) []screen.Row {

	if block < 1 || block > NumBlocks {
		msg := fmt.Sprintf("EntryRows: block %d does not exist\n", block)
		panic(msg)
	}

	var rows []screen.Row
	for _, kind := range []features.Kind{features.Numeric, features.Categorical} {
		for _, rep := range r.Screens {
			if !contains(blockDomains[block-1], rep.Domain) {
				continue
			}
			rows = append(rows, rep.Rows(kind)...)
		}
	}

	return rows
}

// Comparison is one term across the three blocks.
type Comparison struct {
	Name     string
	Variable string
	Level    string

	// Terms[k] is the term in block k+1, nil if absent.
	Terms [NumBlocks]*regress.Term
}

// Compare lines up the terms of the three blocks, in order of first
// appearance.
func (r *Result) Compare() []Comparison {

	var rows []Comparison
	pos := make(map[string]int)
	for k, b := range r.Blocks {
		if b == nil || b.Result == nil {
			continue
		}
		for _, t := range b.Result.Terms {
			j, ok := pos[t.Name]
			if !ok {
				j = len(rows)
				pos[t.Name] = j
				rows = append(rows, Comparison{Name: t.Name, Variable: t.Variable, Level: t.Level})
			}
			t := t
			rows[j].Terms[k] = &t
		}
	}

	return rows
}

func contains(doms []features.Domain, d features.Domain) bool {
	for _, x := range doms {
		if x == d {
			return true
		}
	}
	return false
}
