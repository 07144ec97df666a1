package cohort

import (
	"errors"
	"math"
	"testing"

	"github.com/brunomontezano/covidpsy/survey"
	"github.com/brunomontezano/covidpsy/synth"
)

func rawData(t *testing.T) *survey.RawTable {
	opts := synth.DefaultOptions()
	opts.Seed = 42
	return synth.Generate(600, opts)
}

func TestBuild(t *testing.T) {

	raw := rawData(t)
	rawNames := raw.Names()

	ch, flow, err := Build(raw)
	if err != nil {
		t.Fatal(err)
	}

	// Only the whitelisted fields are kept, in whitelist order.
	names := ch.Names()
	if len(names) != len(survey.Whitelist) {
		t.Fatalf("cohort has %d fields, expected %d", len(names), len(survey.Whitelist))
	}
	for j, na := range names {
		if na != survey.Whitelist[j] {
			t.Errorf("field %d is %s, expected %s", j, na, survey.Whitelist[j])
		}
	}

	w1c, _ := ch.Column(Baseline)
	w4c, _ := ch.Column(FollowUp)
	w1, _ := w1c.Floats()
	w4, _ := w4c.Floats()
	var incident int
	for i := range w1 {
		if math.IsNaN(w1[i]) || math.IsNaN(w4[i]) {
			t.Fatalf("row %d has a missing loneliness total", i)
		}
		if w1[i] >= Threshold {
			t.Fatalf("row %d is lonely at baseline", i)
		}
		if w4[i] >= Threshold {
			incident++
		}
	}

	if flow.Raw != raw.NumRows() || flow.AtRisk != ch.NumRows() || flow.Incident != incident {
		t.Errorf("flow %+v does not match the tables (%d, %d, %d)", flow, raw.NumRows(), ch.NumRows(), incident)
	}
	if !(flow.Raw >= flow.BothPresent && flow.BothPresent >= flow.AtRisk && flow.AtRisk > 0) {
		t.Errorf("flow counts are not decreasing: %+v", flow)
	}

	// The raw table is not modified.
	if raw.NumRows() != 600 || len(raw.Names()) != len(rawNames) {
		t.Errorf("raw table was modified")
	}
	if !raw.Has("region") || ch.Has("region") || ch.Has("id") {
		t.Errorf("non-whitelisted fields should be dropped from the cohort only")
	}
}

func TestBuildMissingField(t *testing.T) {

	raw := rawData(t)
	var keep []string
	for _, na := range raw.Names() {
		if na != "religion" {
			keep = append(keep, na)
		}
	}
	sel, err := raw.Select(keep)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = Build(sel)
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestBuildInvalidTotal(t *testing.T) {

	raw := rawData(t)
	var cols []*survey.Column
	for _, na := range raw.Names() {
		c, _ := raw.Column(na)
		if na == Baseline {
			x := append([]float64(nil), c.Num...)
			x[3] = 12
			c = survey.NewNumeric(na, x)
		}
		cols = append(cols, c)
	}
	bad, err := survey.NewRawTable(cols)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = Build(bad)
	if !errors.Is(err, ErrInvalidTotal) {
		t.Errorf("expected ErrInvalidTotal, got %v", err)
	}
}
