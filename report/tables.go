package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/hier"
	"github.com/brunomontezano/covidpsy/regress"
	"github.com/brunomontezano/covidpsy/screen"
	"github.com/brunomontezano/covidpsy/summary"
)

// FlowTable returns the participant counts at each step of the cohort
// construction.
func FlowTable(f cohort.Flow) *Table {
	t := &Table{Title: "Participant flow"}
	t.add("step", []string{
		"records read",
		"both loneliness totals observed",
		"not lonely at baseline",
		"lonely at follow-up",
	})
	t.add("n", []int{f.Raw, f.BothPresent, f.AtRisk, f.Incident})
	return t
}

// SummaryTable returns the descriptive summary under one weighting.
// A categorical feature has one row per level, and its test is shown
// on the first of them.
func SummaryTable(s *summary.Summary) *Table {

	var variable, level, test, note []string
	var n, nneg, npos []int
	var pall, pneg, ppos, wpneg, wppos []float64
	var mean, sd, wmneg, wsdneg, wmpos, wsdpos []float64
	var stat, df, pval []float64

	nan := math.NaN()
	for _, row := range s.Rows {
		if row.Kind == features.Categorical {
			for j, l := range row.Levels {
				variable = append(variable, row.Variable)
				level = append(level, l.Level)
				n = append(n, l.N)
				nneg = append(nneg, l.NNeg)
				npos = append(npos, l.NPos)
				pall = append(pall, l.PctAll)
				pneg = append(pneg, l.PctNeg)
				ppos = append(ppos, l.PctPos)
				wpneg = append(wpneg, l.WPctNeg)
				wppos = append(wppos, l.WPctPos)
				mean = append(mean, nan)
				sd = append(sd, nan)
				wmneg = append(wmneg, nan)
				wsdneg = append(wsdneg, nan)
				wmpos = append(wmpos, nan)
				wsdpos = append(wsdpos, nan)
				if j == 0 {
					test = append(test, row.Test)
					stat = append(stat, row.Stat)
					df = append(df, row.DF)
					pval = append(pval, row.PValue)
					note = append(note, errString(row.Err))
				} else {
					test = append(test, "")
					stat = append(stat, nan)
					df = append(df, nan)
					pval = append(pval, nan)
					note = append(note, "")
				}
			}
			continue
		}

		variable = append(variable, row.Variable)
		level = append(level, "")
		n = append(n, row.N)
		nneg = append(nneg, 0)
		npos = append(npos, 0)
		pall = append(pall, nan)
		pneg = append(pneg, nan)
		ppos = append(ppos, nan)
		wpneg = append(wpneg, nan)
		wppos = append(wppos, nan)
		mean = append(mean, row.Mean)
		sd = append(sd, row.SD)
		wmneg = append(wmneg, row.WMeanNeg)
		wsdneg = append(wsdneg, row.WSDNeg)
		wmpos = append(wmpos, row.WMeanPos)
		wsdpos = append(wsdpos, row.WSDPos)
		test = append(test, row.Test)
		stat = append(stat, row.Stat)
		df = append(df, row.DF)
		pval = append(pval, row.PValue)
		note = append(note, errString(row.Err))
	}

	t := &Table{
		Title: fmt.Sprintf("Summary by incident loneliness, %s weights", s.Scheme),
		Top: []string{
			"Cohort size:", fmt.Sprintf("%d", s.N),
			"Not lonely:", fmt.Sprintf("%d", s.NNeg),
			"Lonely:", fmt.Sprintf("%d", s.NPos),
		},
	}
	t.add("variable", variable)
	t.add("level", level)
	t.add("n", n)
	t.add("n_no", nneg)
	t.add("n_yes", npos)
	t.add("pct", pall)
	t.add("pct_no", pneg)
	t.add("pct_yes", ppos)
	t.add("wpct_no", wpneg)
	t.add("wpct_yes", wppos)
	t.add("mean", mean)
	t.add("sd", sd)
	t.add("wmean_no", wmneg)
	t.add("wsd_no", wsdneg)
	t.add("wmean_yes", wmpos)
	t.add("wsd_yes", wsdpos)
	t.add("test", test)
	t.add("statistic", stat)
	t.add("df", df)
	t.add("p", pval)
	t.add("note", note)

	return t
}

// screenTable returns one row per screening term.
func screenTable(title string, rows []screen.Row, withDomain bool) *Table {

	var variable, level, domain, retained, converged, note []string
	var n []int
	var rr, lower, upper, pval []float64

	for _, r := range rows {
		variable = append(variable, r.Variable)
		level = append(level, r.Level)
		domain = append(domain, r.Domain.String())
		n = append(n, r.N)
		rr = append(rr, r.RR)
		lower = append(lower, r.Lower)
		upper = append(upper, r.Upper)
		pval = append(pval, r.PValue)
		retained = append(retained, yesNo(r.Retained))
		if r.Err != nil {
			converged = append(converged, "")
		} else {
			converged = append(converged, yesNo(r.Converged))
		}
		note = append(note, errString(r.Err))
	}

	t := &Table{Title: title}
	t.add("variable", variable)
	t.add("level", level)
	if withDomain {
		t.add("domain", domain)
	}
	t.add("n", n)
	t.add("rr", rr)
	t.add("lower", lower)
	t.add("upper", upper)
	t.add("p", pval)
	t.add("retained", retained)
	t.add("converged", converged)
	t.add("note", note)

	return t
}

// ScreenTable returns the screening of one domain, numeric predictors
// first.
func ScreenTable(rep *screen.Report) *Table {
	t := screenTable(fmt.Sprintf("Bivariate screening, %s predictors", rep.Domain), rep.AllRows(), false)
	t.Top = []string{"Threshold:", fmt.Sprintf("%g", rep.Threshold)}
	return t
}

// EntryTable returns the screening rows of the predictors that are
// candidates to enter a hierarchical block.
func EntryTable(res *hier.Result, block int) *Table {
	return screenTable(fmt.Sprintf("Block %d candidates", block), res.EntryRows(block), true)
}

// HierTable lines up the terms of the three blocks.  Terms absent from
// a block are NA, and the last column flags significance in the final
// block.
func HierTable(res *hier.Result) *Table {

	cmp := res.Compare()
	nan := math.NaN()

	var name []string
	var sig []string
	rr := make([][]float64, hier.NumBlocks)
	lower := make([][]float64, hier.NumBlocks)
	upper := make([][]float64, hier.NumBlocks)
	pval := make([][]float64, hier.NumBlocks)

	for _, c := range cmp {
		name = append(name, c.Name)
		for k, tm := range c.Terms {
			if tm == nil {
				rr[k] = append(rr[k], nan)
				lower[k] = append(lower[k], nan)
				upper[k] = append(upper[k], nan)
				pval[k] = append(pval[k], nan)
				continue
			}
			rr[k] = append(rr[k], tm.RR)
			lower[k] = append(lower[k], tm.RRLower)
			upper[k] = append(upper[k], tm.RRUpper)
			pval[k] = append(pval[k], tm.PValue)
		}
		last := c.Terms[hier.NumBlocks-1]
		sig = append(sig, yesNo(last != nil && res.Significant(*last)))
	}

	t := &Table{Title: "Hierarchical Poisson regression, risk ratios"}
	t.add("term", name)
	for k := 0; k < hier.NumBlocks; k++ {
		t.add(fmt.Sprintf("rr_%d", k+1), rr[k])
		t.add(fmt.Sprintf("lower_%d", k+1), lower[k])
		t.add(fmt.Sprintf("upper_%d", k+1), upper[k])
		t.add(fmt.Sprintf("p_%d", k+1), pval[k])
	}
	t.add("significant", sig)

	for _, b := range res.Blocks {
		if b.Result != nil {
			mr := b.Result
			t.Top = append(t.Top,
				fmt.Sprintf("Block %d N:", b.Index), fmt.Sprintf("%d", mr.NumObs),
				fmt.Sprintf("Block %d log-likelihood:", b.Index), fmt.Sprintf("%.4f", mr.LogLike),
				fmt.Sprintf("Block %d AIC:", b.Index), fmt.Sprintf("%.4f", mr.AIC),
				fmt.Sprintf("Block %d BIC:", b.Index), fmt.Sprintf("%.4f", mr.BIC))
			if len(mr.Empty) > 0 {
				t.Msg = append(t.Msg, fmt.Sprintf("Block %d: levels not observed: %s", b.Index,
					strings.Join(mr.Empty, ", ")))
			}
		} else if b.Err != nil {
			t.Msg = append(t.Msg, fmt.Sprintf("Block %d not fit: %v", b.Index, b.Err))
		}
	}
	t.Msg = append(t.Msg, fmt.Sprintf("Significant: p < %g in block %d", res.Alpha, hier.NumBlocks))

	return t
}

// HierFitTable returns one row of fit statistics per block.
func HierFitTable(res *hier.Result) *Table {

	var block, n, iter []int
	var status, preds []string
	var ll, aic, bic []float64

	for _, b := range res.Blocks {
		block = append(block, b.Index)
		preds = append(preds, strings.Join(b.Predictors, " "))
		if b.Result == nil {
			status = append(status, errString(b.Err))
			n = append(n, 0)
			iter = append(iter, 0)
			ll = append(ll, math.NaN())
			aic = append(aic, math.NaN())
			bic = append(bic, math.NaN())
			continue
		}
		status = append(status, "ok")
		n = append(n, b.Result.NumObs)
		iter = append(iter, b.Result.Iterations)
		ll = append(ll, b.Result.LogLike)
		aic = append(aic, b.Result.AIC)
		bic = append(bic, b.Result.BIC)
	}

	t := &Table{Title: "Hierarchical blocks"}
	t.add("block", block)
	t.add("status", status)
	t.add("n", n)
	t.add("iterations", iter)
	t.add("loglike", ll)
	t.add("aic", aic)
	t.add("bic", bic)
	t.add("predictors", preds)

	return t
}

// finalTerms returns the terms of the final block, or nil if it failed.
func finalTerms(res *hier.Result) []regress.Term {
	f := res.Final()
	if f == nil || f.Result == nil {
		return nil
	}
	return f.Result.Terms
}
