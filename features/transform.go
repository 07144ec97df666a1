package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/brunomontezano/covidpsy/cohort"
	"github.com/brunomontezano/covidpsy/survey"
)

// ErrInvalidWeight is returned when a survey weight is missing or
// negative for a cohort member.
var ErrInvalidWeight = errors.New("features: invalid survey weight")

type namedColumn struct {
	name string
	x    []float64
}

// Options control the derived features.
type Options struct {

	// ReferenceYear is the year from which age is computed.
	ReferenceYear int

	// IncludeAgeCubic adds the cubic age term.
	IncludeAgeCubic bool
}

// DefaultOptions returns the default feature options.
func DefaultOptions() Options {
	return Options{
		ReferenceYear:   2020,
		IncludeAgeCubic: true,
	}
}

// Transform derives the analysis features from the cohort records.
// The raw categorical labels are recoded, age and the clinical scores
// are standardized, and the combined weight is formed.  A label that
// matches no recoding rule is reported as a *LevelError.
func Transform(raw *survey.RawTable, opts Options) (*Table, error) {

	if opts.ReferenceYear <= 0 {
		opts.ReferenceYear = DefaultOptions().ReferenceYear
	}

	n := raw.NumRows()
	t := &Table{
		nrow:     n,
		index:    make(map[string]int),
		unscaled: make(map[string][]float64),
	}

	w4, err := numeric(raw, cohort.FollowUp)
	if err != nil {
		return nil, err
	}
	t.outcome = make([]float64, n)
	for i, v := range w4 {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("features: %s missing in row %d", cohort.FollowUp, i)
		}
		if v >= cohort.Threshold {
			t.outcome[i] = 1
		}
	}

	if err := t.setWeights(raw); err != nil {
		return nil, err
	}

	numericVars, err := t.numericFeatures(raw, opts)
	if err != nil {
		return nil, err
	}

	for _, p := range predictors {
		var v *Var
		if _, ok := recodings[p.name]; ok {
			v, err = recode(raw, p.name)
			if err != nil {
				return nil, err
			}
		} else {
			x, ok := numericVars[p.name]
			if !ok {
				continue
			}
			v = &Var{Name: p.name, Kind: Numeric, Values: x}
		}
		v.Domain = p.domain
		t.index[v.Name] = len(t.vars)
		t.vars = append(t.vars, v)
	}

	return t, nil
}

// setWeights reads the two survey weights and forms their product.
func (t *Table) setWeights(raw *survey.RawTable) error {

	sw, err := numeric(raw, "sampling_weight")
	if err != nil {
		return err
	}
	aw, err := numeric(raw, "attrition_weight")
	if err != nil {
		return err
	}

	for _, w := range []namedColumn{{"sampling_weight", sw}, {"attrition_weight", aw}} {
		for i, v := range w.x {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: %s is %v in row %d", ErrInvalidWeight, w.name, v, i)
			}
		}
	}

	cw := make([]float64, t.nrow)
	for i := range cw {
		cw[i] = sw[i] * aw[i]
	}

	t.weights[SamplingWeight] = sw
	t.weights[AttritionWeight] = aw
	t.weights[CombinedWeight] = cw

	return nil
}

// numericFeatures returns the age terms, household size and the
// standardized clinical scores.
func (t *Table) numericFeatures(raw *survey.RawTable, opts Options) (map[string][]float64, error) {

	by, err := numeric(raw, "birth_year")
	if err != nil {
		return nil, err
	}

	age := make([]float64, t.nrow)
	age2 := make([]float64, t.nrow)
	age3 := make([]float64, t.nrow)
	for i, y := range by {
		a := float64(opts.ReferenceYear) - y
		age[i] = a
		age2[i] = a * a
		age3[i] = a * a * a
	}

	scaled := []namedColumn{{"age", age}, {"age_2", age2}}
	if opts.IncludeAgeCubic {
		scaled = append(scaled, namedColumn{"age_3", age3})
	}
	for _, na := range []string{"phq_total", "gad_total"} {
		x, err := numeric(raw, na)
		if err != nil {
			return nil, err
		}
		scaled = append(scaled, namedColumn{na, x})
	}

	out := make(map[string][]float64)
	for _, s := range scaled {
		t.unscaled[s.name] = s.x
		z, ok := standardize(s.x)
		if !ok {
			t.degenerate = append(t.degenerate, s.name)
		}
		out[s.name] = z
	}

	hs, err := numeric(raw, "household_size")
	if err != nil {
		return nil, err
	}
	out["household_size"] = hs

	return out, nil
}

// recode builds a categorical feature from its raw field.
func recode(raw *survey.RawTable, feature string) (*Var, error) {

	m := newMatcher(feature)
	c, err := raw.Column(m.rc.Source)
	if err != nil {
		return nil, err
	}

	labels := c.Labels()
	codes := make([]int, len(labels))
	for i, l := range labels {
		if c.Missing[i] {
			codes[i] = -1
			continue
		}
		codes[i], err = m.code(l, i)
		if err != nil {
			return nil, err
		}
	}

	return &Var{
		Name:   feature,
		Kind:   Categorical,
		Levels: append([]string(nil), m.rc.Levels...),
		Codes:  codes,
	}, nil
}

// numeric returns a raw field as numbers.
func numeric(raw *survey.RawTable, name string) ([]float64, error) {
	c, err := raw.Column(name)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	x, err := c.Floats()
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	return x, nil
}

// standardize returns (x - mean) / sd using the observed values and
// the sample standard deviation.  If the observed values do not vary
// the result is all NaN and ok is false.
func standardize(x []float64) ([]float64, bool) {

	var obs []float64
	for _, v := range x {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}

	z := make([]float64, len(x))
	if len(obs) < 2 {
		for i := range z {
			z[i] = math.NaN()
		}
		return z, false
	}

	mean, sd := stat.MeanStdDev(obs, nil)
	if !(sd > 1e-12*math.Max(1, math.Abs(mean))) {
		for i := range z {
			z[i] = math.NaN()
		}
		return z, false
	}

	for i, v := range x {
		z[i] = (v - mean) / sd
	}

	return z, true
}
