// Package cohort selects the incidence cohort from the raw survey
// records: respondents with both loneliness totals observed who were
// not lonely at baseline.
package cohort

import (
	"errors"
	"fmt"
	"math"

	"github.com/brunomontezano/covidpsy/survey"
)

// Threshold is the loneliness total at or above which a respondent is
// considered lonely.
const Threshold = 6

// MaxTotal is the largest possible loneliness total.
const MaxTotal = 9

// Names of the loneliness totals at baseline and follow-up.
const (
	Baseline = "loneliness_w1"
	FollowUp = "loneliness_w4"
)

// ErrMissingField is returned when a whitelisted field is not present
// in the raw records.
var ErrMissingField = errors.New("cohort: missing whitelisted field")

// ErrInvalidTotal is returned when a loneliness total is not an
// integer between 0 and MaxTotal.
var ErrInvalidTotal = errors.New("cohort: invalid loneliness total")

// Flow records the number of respondents at each selection step.
type Flow struct {

	// Raw is the number of records read.
	Raw int

	// BothPresent is the number of records with both totals observed.
	BothPresent int

	// AtRisk is the number of those not lonely at baseline, which is
	// the cohort size.
	AtRisk int

	// Incident is the number of cohort members lonely at follow-up.
	Incident int
}

// Build returns the cohort, holding only the whitelisted fields, and
// the participant flow.  The raw table is not modified.
func Build(raw *survey.RawTable) (*survey.RawTable, Flow, error) {

	var missing []string
	for _, na := range survey.Whitelist {
		if !raw.Has(na) {
			missing = append(missing, na)
		}
	}
	if len(missing) > 0 {
		return nil, Flow{}, fmt.Errorf("%w: %v", ErrMissingField, missing)
	}

	sel, err := raw.Select(survey.Whitelist)
	if err != nil {
		return nil, Flow{}, err
	}

	w1, err := totals(sel, Baseline)
	if err != nil {
		return nil, Flow{}, err
	}
	w4, err := totals(sel, FollowUp)
	if err != nil {
		return nil, Flow{}, err
	}

	flow := Flow{Raw: sel.NumRows()}
	keep := make([]bool, sel.NumRows())
	for i := range keep {
		if math.IsNaN(w1[i]) || math.IsNaN(w4[i]) {
			continue
		}
		flow.BothPresent++
		if w1[i] >= Threshold {
			continue
		}
		keep[i] = true
		flow.AtRisk++
		if w4[i] >= Threshold {
			flow.Incident++
		}
	}

	return sel.Filter(keep), flow, nil
}

// totals returns the named loneliness total, NaN where missing, after
// checking that observed values are integers in range.
func totals(rt *survey.RawTable, name string) ([]float64, error) {

	c, err := rt.Column(name)
	if err != nil {
		return nil, err
	}
	x, err := c.Floats()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTotal, err)
	}

	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if v != math.Trunc(v) || v < 0 || v > MaxTotal {
			return nil, fmt.Errorf("%w: %s is %v in row %d", ErrInvalidTotal, name, v, i)
		}
	}

	return x, nil
}
