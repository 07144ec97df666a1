package screen

import (
	"math"
	"testing"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/regress"
	"github.com/brunomontezano/covidpsy/synth"
)

func buildTable(t *testing.T, n int, opts synth.Options) *features.Table {

	raw := synth.Generate(n, opts)
	ch, _, err := cohort.Build(raw)
	if err != nil {
		t.Fatal(err)
	}
	tab, err := features.Transform(ch, features.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestDecide(t *testing.T) {

	for _, tc := range []struct {
		pvalues []float64
		keep    bool
	}{
		{[]float64{0.15}, true},
		{[]float64{0.25}, false},
		{[]float64{0.5, 0.1, 0.9}, true},
		{[]float64{0.5, 0.3}, false},
	} {
		mr := &regress.ModelResult{}
		for _, p := range tc.pvalues {
			mr.Terms = append(mr.Terms, regress.Term{Variable: "x", PValue: p})
		}
		mr.Terms = append(mr.Terms, regress.Term{Variable: "z", PValue: 0.001})

		p, keep := decide(mr, "x", 0.2)
		if keep != tc.keep {
			t.Errorf("p-values %v: retained=%v", tc.pvalues, keep)
		}
		var pmin = math.Inf(1)
		for _, q := range tc.pvalues {
			pmin = math.Min(pmin, q)
		}
		if p != pmin {
			t.Errorf("smallest p-value %v, expected %v", p, pmin)
		}
	}
}

func TestScreen(t *testing.T) {

	tab := buildTable(t, 1500, synth.DefaultOptions())

	for _, d := range features.Domains {
		rep, err := Screen(tab, d, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if len(rep.Predictors) != len(tab.DomainNames(d)) {
			t.Errorf("%s: %d predictors screened", d, len(rep.Predictors))
		}

		for _, p := range rep.Predictors {
			if p.Err != nil {
				t.Errorf("%s: %v", p.Name, p.Err)
				continue
			}
			if p.Retained != (p.MinP < 0.2) {
				t.Errorf("%s: retained=%v with p=%v", p.Name, p.Retained, p.MinP)
			}

			// Moving the threshold across the p-value flips the decision.
			_, keep := decide(p.Result, p.Name, p.MinP*1.01)
			_, drop := decide(p.Result, p.Name, p.MinP*0.99)
			if !keep || drop {
				t.Errorf("%s: threshold does not govern retention", p.Name)
			}
		}

		// Numeric rows come first, one row per non-reference level.
		rows := rep.AllRows()
		var seenCat bool
		for _, r := range rows {
			if r.Kind == features.Categorical {
				seenCat = true
			} else if seenCat {
				t.Errorf("%s: numeric row after a categorical row", d)
			}
			if r.Level == "" && r.Kind == features.Categorical {
				t.Errorf("%s: categorical row without a level", r.Variable)
			}
			if !(r.Lower <= r.RR && r.RR <= r.Upper) {
				t.Errorf("%s: RR %v outside [%v, %v]", r.Variable, r.RR, r.Lower, r.Upper)
			}
		}
		if len(rep.Rows(features.Numeric))+len(rep.Rows(features.Categorical)) != len(rows) {
			t.Errorf("%s: row counts differ", d)
		}
	}
}

func TestPerfectPredictor(t *testing.T) {

	opts := synth.Options{Seed: 473, PerfectPredictor: true}
	tab := buildTable(t, 473, opts)
	if tab.NumRows() != 473 {
		t.Fatalf("cohort has %d rows", tab.NumRows())
	}

	rep, err := Screen(tab, features.Lifestyle, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	p, ok := rep.Predictor("social_distancing")
	if !ok || p.Err != nil {
		t.Fatalf("social distancing was not fit: %v", p.Err)
	}
	if !(p.MinP < 1e-6) || !p.Retained {
		t.Errorf("p-value %v, retained %v", p.MinP, p.Retained)
	}

	rows := p.rows(rep.Domain)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	r := rows[0]
	for _, x := range []float64{r.RR, r.Lower, r.Upper} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Errorf("non-finite risk ratio or limit: %v [%v, %v]", r.RR, r.Lower, r.Upper)
		}
	}
	if r.Lower <= 1 {
		t.Errorf("lower limit %v", r.Lower)
	}

	// Separation drives the estimate to the iteration cap, so the
	// finite interval is only reported alongside the convergence flag.
	if r.Converged || p.Result.Converged {
		t.Errorf("a separated fit should not be reported as converged")
	}
	if p.Result.Iterations < DefaultOptions().Regress.MaxIter {
		t.Errorf("stopped after %d iterations", p.Result.Iterations)
	}
}

func TestFailedPredictor(t *testing.T) {

	tab := buildTable(t, 1500, synth.DefaultOptions())

	// A failing predictor does not stop the domain.
	rep, err := Screen(tab, features.Social, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rep.Predictors = append(rep.Predictors, Predictor{Name: "broken", Kind: features.Numeric,
		MinP: math.NaN(), Err: regress.ErrDegenerate})
	rows := rep.Rows(features.Numeric)
	if len(rows) != 1 || rows[0].Err == nil || rows[0].Retained {
		t.Errorf("failed predictor rows: %+v", rows)
	}
	for _, na := range rep.Retained() {
		if na == "broken" {
			t.Errorf("failed predictor retained")
		}
	}

	if _, err := Screen(tab, features.Social, Options{Threshold: 0}); err == nil {
		t.Errorf("expected an error for a zero threshold")
	}
}
