package features

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoVariable is returned when a requested variable is not in a
// feature table.
var ErrNoVariable = errors.New("features: no such variable")

// Kind distinguishes numeric from categorical features.
type Kind uint8

// Numeric features hold real values, categorical features hold level
// codes.
const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Domain is one of the ordered predictor groups.
type Domain uint8

// The predictor domains, in the order they enter the hierarchical
// models.
const (
	Sociodemographic Domain = iota
	Lifestyle
	Social
	Clinical
)

// Domains lists all domains in order.
var Domains = []Domain{Sociodemographic, Lifestyle, Social, Clinical}

func (d Domain) String() string {
	switch d {
	case Sociodemographic:
		return "sociodemographic"
	case Lifestyle:
		return "lifestyle"
	case Social:
		return "social"
	case Clinical:
		return "clinical"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// Weighting selects one of the survey weights.
type Weighting uint8

// The sampling (demographic) weight, the attrition weight, and their
// product.
const (
	SamplingWeight Weighting = iota
	AttritionWeight
	CombinedWeight
)

func (w Weighting) String() string {
	switch w {
	case SamplingWeight:
		return "demographic"
	case AttritionWeight:
		return "attrition"
	case CombinedWeight:
		return "combined"
	default:
		return fmt.Sprintf("weighting(%d)", int(w))
	}
}

// OutcomeLevels are the outcome labels for codes 0 and 1.
var OutcomeLevels = []string{"negative", "positive"}

// predictor names a feature and its domain.
type predictor struct {
	name   string
	domain Domain
}

// predictors lists every candidate predictor in report order.
var predictors = []predictor{
	{"age", Sociodemographic},
	{"age_2", Sociodemographic},
	{"age_3", Sociodemographic},
	{"gender_birth", Sociodemographic},
	{"heterosexual", Sociodemographic},
	{"color", Sociodemographic},
	{"education_grouped", Sociodemographic},
	{"household_income", Sociodemographic},
	{"household_size", Sociodemographic},
	{"employment_status", Sociodemographic},
	{"physical_activity", Lifestyle},
	{"sleep_quality", Lifestyle},
	{"alcohol_risk", Lifestyle},
	{"cannabis_use", Lifestyle},
	{"social_distancing", Lifestyle},
	{"marital_status", Social},
	{"friend_relationship", Social},
	{"family_relationship", Social},
	{"religion", Social},
	{"phq_total", Clinical},
	{"gad_total", Clinical},
}

// Var is one feature column.
type Var struct {
	Name   string
	Kind   Kind
	Domain Domain

	// Levels holds the levels of a categorical feature, the reference
	// level first.
	Levels []string

	// Codes holds the level index of each row of a categorical
	// feature, -1 where missing.
	Codes []int

	// Values holds a numeric feature, NaN where missing.
	Values []float64
}

// Len returns the number of rows.
func (v *Var) Len() int {
	if v.Kind == Numeric {
		return len(v.Values)
	}
	return len(v.Codes)
}

// Missing returns true if row i is missing.
func (v *Var) Missing(i int) bool {
	if v.Kind == Numeric {
		return math.IsNaN(v.Values[i])
	}
	return v.Codes[i] < 0
}

// Label returns the level of row i of a categorical feature, or an
// empty string where missing.
func (v *Var) Label(i int) string {
	if v.Kind != Categorical || v.Codes[i] < 0 {
		return ""
	}
	return v.Levels[v.Codes[i]]
}

// Reference returns the reference level of a categorical feature.
func (v *Var) Reference() string {
	if len(v.Levels) == 0 {
		return ""
	}
	return v.Levels[0]
}

func (v *Var) copy() *Var {
	nv := &Var{
		Name:   v.Name,
		Kind:   v.Kind,
		Domain: v.Domain,
		Levels: append([]string(nil), v.Levels...),
	}
	if v.Codes != nil {
		nv.Codes = append([]int(nil), v.Codes...)
	}
	if v.Values != nil {
		nv.Values = append([]float64(nil), v.Values...)
	}
	return nv
}

// Table is the analysis-ready feature table, one row per cohort
// member.  A Table is not modified after Transform returns it, and
// all accessors return copies.
type Table struct {
	nrow int

	outcome []float64

	vars  []*Var
	index map[string]int

	weights [3][]float64

	// unscaled holds the values of standardized features before
	// standardization.
	unscaled map[string][]float64

	degenerate []string
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.nrow
}

// Outcome returns the outcome coded as 0 (negative) or 1 (positive).
func (t *Table) Outcome() []float64 {
	return append([]float64(nil), t.outcome...)
}

// Names returns the names of all predictors, in report order.
func (t *Table) Names() []string {
	na := make([]string, len(t.vars))
	for j, v := range t.vars {
		na[j] = v.Name
	}
	return na
}

// Has returns true if the table holds the named predictor.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Var returns a copy of the named predictor.
func (t *Table) Var(name string) (*Var, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNoVariable, name)
	}
	return t.vars[j].copy(), nil
}

// DomainNames returns the predictors of a domain, in report order,
// excluding degenerate features.
func (t *Table) DomainNames(d Domain) []string {
	var na []string
	for _, v := range t.vars {
		if v.Domain == d && !t.IsDegenerate(v.Name) {
			na = append(na, v.Name)
		}
	}
	return na
}

// Weights returns one of the survey weights.
func (t *Table) Weights(w Weighting) []float64 {
	if int(w) >= len(t.weights) {
		msg := fmt.Sprintf("Weights: unknown weighting %d\n", int(w))
		panic(msg)
	}
	return append([]float64(nil), t.weights[w]...)
}

// AgeRaw returns the age in years, unstandardized.
func (t *Table) AgeRaw() []float64 {
	return append([]float64(nil), t.unscaled["age"]...)
}

// Unscaled returns a numeric predictor before standardization.  For
// predictors that are not standardized this is the same as the
// predictor values.
func (t *Table) Unscaled(name string) ([]float64, error) {
	if x, ok := t.unscaled[name]; ok {
		return append([]float64(nil), x...), nil
	}
	v, err := t.Var(name)
	if err != nil {
		return nil, err
	}
	if v.Kind != Numeric {
		return nil, fmt.Errorf("features: '%s' is not numeric", name)
	}
	return v.Values, nil
}

// Degenerate returns the standardized features that had no variation
// in the cohort.  Their values are NaN.
func (t *Table) Degenerate() []string {
	return append([]string(nil), t.degenerate...)
}

// IsDegenerate returns true if the named feature is degenerate.
func (t *Table) IsDegenerate(name string) bool {
	for _, na := range t.degenerate {
		if na == name {
			return true
		}
	}
	return false
}
