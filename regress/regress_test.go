package regress

import (
	"errors"
	"math"
	"testing"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/features"
	"github.com/brunomontezano/covidpsy/survey"
	"github.com/brunomontezano/covidpsy/synth"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps*math.Max(1, math.Abs(y))
}

// buildTable simulates records, optionally replaces one raw text
// field, and returns the feature table.
func buildTable(t *testing.T, field string, f func(i int, s string) string) *features.Table {

	raw := synth.Generate(1500, synth.DefaultOptions())
	ch, _, err := cohort.Build(raw)
	if err != nil {
		t.Fatal(err)
	}

	if field != "" {
		var cols []*survey.Column
		for _, na := range ch.Names() {
			c, _ := ch.Column(na)
			if na == field {
				x := make([]string, len(c.Str))
				for i, s := range c.Str {
					x[i] = f(i, s)
				}
				c = survey.NewText(na, x)
			}
			cols = append(cols, c)
		}
		ch, err = survey.NewRawTable(cols)
		if err != nil {
			t.Fatal(err)
		}
	}

	tab, err := features.Transform(ch, features.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestFitTerms(t *testing.T) {

	tab := buildTable(t, "", nil)
	mr, err := Fit(tab, []string{"phq_total", "sleep_quality", "household_income"}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"phq_total", "sleep_quality:Better", "household_income:Middle", "household_income:Upper"}
	if len(mr.Terms) != len(want) {
		t.Fatalf("expected %d terms, got %d", len(want), len(mr.Terms))
	}
	for j, na := range want {
		if mr.Terms[j].Name != na {
			t.Errorf("term %d is %s, expected %s", j, mr.Terms[j].Name, na)
		}
	}

	// Income is missing for some rows, so those are not used.
	inc, _ := tab.Var("household_income")
	var nmiss int
	for i := range inc.Codes {
		if inc.Missing(i) {
			nmiss++
		}
	}
	if nmiss == 0 || mr.NumObs != tab.NumRows()-nmiss {
		t.Errorf("%d observations, %d rows, %d missing", mr.NumObs, tab.NumRows(), nmiss)
	}

	for _, term := range append(mr.Terms, mr.Intercept) {
		if !scalarClose(math.Exp(term.Lower), term.RRLower, 1e-12) ||
			!scalarClose(math.Exp(term.Upper), term.RRUpper, 1e-12) ||
			!scalarClose(math.Exp(term.Estimate), term.RR, 1e-12) {
			t.Errorf("%s: risk ratio scale does not match the log scale", term.Name)
		}
		if !(term.Lower < term.Estimate && term.Estimate < term.Upper) {
			t.Errorf("%s: estimate outside its interval", term.Name)
		}
	}

	if !mr.Converged || mr.CIMethod != Wald {
		t.Errorf("converged=%v, method=%s", mr.Converged, mr.CIMethod)
	}
	if !scalarClose(mr.AIC, -2*mr.LogLike+2*5, 1e-10) {
		t.Errorf("AIC %v, loglike %v", mr.AIC, mr.LogLike)
	}

	phq, ok := mr.Term("phq_total")
	if !ok || phq.PValue < 0 || phq.PValue > 1 || phq.Variable != "phq_total" || phq.Level != "" {
		t.Errorf("phq_total term: %+v", phq)
	}

	p := mr.MinPValue("household_income")
	inc1, _ := mr.Term("household_income:Middle")
	inc2, _ := mr.Term("household_income:Upper")
	if p != math.Min(inc1.PValue, inc2.PValue) {
		t.Errorf("MinPValue %v", p)
	}
	if !math.IsNaN(mr.MinPValue("religion")) {
		t.Errorf("MinPValue of an absent feature should be NaN")
	}
}

func TestProfile(t *testing.T) {

	tab := buildTable(t, "", nil)
	opts := DefaultOptions()
	opts.CIMethod = Profile
	mr, err := Fit(tab, []string{"friend_relationship"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if mr.CIMethod != Profile {
		t.Fatalf("profile interval was not used")
	}

	mw, err := Fit(tab, []string{"friend_relationship"}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	tp := mr.Terms[0]
	tw := mw.Terms[0]
	if !(tp.Lower < tp.Estimate && tp.Estimate < tp.Upper) {
		t.Errorf("profile interval [%v, %v] excludes %v", tp.Lower, tp.Upper, tp.Estimate)
	}
	if tp.Estimate != tw.Estimate || tp.PValue != tw.PValue {
		t.Errorf("the interval method should not change the estimate")
	}
}

func TestEmptyLevel(t *testing.T) {

	tab := buildTable(t, "marital_status", func(i int, s string) string {
		if s == "Widowed" {
			return "Divorced"
		}
		return s
	})

	mr, err := Fit(tab, []string{"marital_status"}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(mr.Empty) != 1 || mr.Empty[0] != "marital_status:Widowed" {
		t.Errorf("empty levels: %v", mr.Empty)
	}
	if len(mr.Terms) != 2 {
		t.Errorf("expected 2 terms, got %d", len(mr.Terms))
	}
}

func TestSingleLevel(t *testing.T) {

	tab := buildTable(t, "sex_birth", func(i int, s string) string {
		return "Male"
	})
	_, err := Fit(tab, []string{"gender_birth"}, DefaultOptions())
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}

	tab = buildTable(t, "sex_birth", func(i int, s string) string {
		return "Female"
	})
	_, err = Fit(tab, []string{"gender_birth"}, DefaultOptions())
	if !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate for a missing reference level, got %v", err)
	}
}

func TestUnknownVariable(t *testing.T) {

	tab := buildTable(t, "", nil)
	_, err := Fit(tab, []string{"loneliness_w1"}, DefaultOptions())
	if !errors.Is(err, features.ErrNoVariable) {
		t.Errorf("expected ErrNoVariable, got %v", err)
	}
}

func TestRetain(t *testing.T) {

	for _, tc := range []struct {
		p, threshold float64
		keep         bool
	}{
		{0.15, 0.2, true},
		{0.25, 0.2, false},
		{0.2, 0.2, false},
		{0.05, 0.1, true},
		{math.NaN(), 0.2, false},
	} {
		if Retain(tc.p, tc.threshold) != tc.keep {
			t.Errorf("Retain(%v, %v) should be %v", tc.p, tc.threshold, tc.keep)
		}
	}
}
