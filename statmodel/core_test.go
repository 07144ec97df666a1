package statmodel

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func data1() ([]string, [][]Dtype) {
	x := [][]Dtype{
		{0, 1, 3, 2, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 1},
		{4, 1, -1, 3, 5, -5, 3},
	}
	return []string{"y", "x1", "x2"}, x
}

func data1b() ([]string, [][]Dtype) {
	x := [][]Dtype{
		{0, 1, 3, 2, 1, 1, 0},
		{1, 1, 1, 1, 1, 1, 1},
		{8, 2, -2, 6, 10, -10, 6},
	}
	return []string{"y", "x1", "x2"}, x
}

// A mock model for testing
type Mock struct {
	data [][]Dtype
	xpos []int
}

func (m *Mock) Dataset() [][]Dtype {
	return m.data
}

func (m *Mock) LogLike(params Parameter, exact bool) float64 {
	return 0
}

func (m *Mock) Score(params Parameter, score []float64) {
}

func (m *Mock) Hessian(params Parameter, ht HessType, hess []float64) {
	// A fixed negative definite matrix
	copy(hess, []float64{-4, -1, -1, -2})
}

func (m *Mock) NumParams() int {
	return len(m.xpos)
}

func (m *Mock) NumObs() int {
	return len(m.data[0])
}

func (m *Mock) Xpos() []int {
	return m.xpos
}

func TestResult1(t *testing.T) {

	_, da := data1()
	model := &Mock{
		data: da,
		xpos: []int{1, 2},
	}

	params := []float64{1, 2}
	xnames := []string{"x1", "x2"}
	vcov := []float64{0, 0, 0, 0}

	r := NewBaseResults(model, 0, params, xnames, vcov)

	// Test fitted values on the training data.
	fv := []float64{9, 3, -1, 7, 11, -9, 7}
	if !floats.Equal(fv, r.FittedValues(nil)) {
		t.Fail()
	}

	// Test fitted values when passing new data.
	_, da2 := data1b()
	fv = []float64{17, 5, -3, 13, 21, -19, 13}
	if !floats.Equal(fv, r.FittedValues(da2)) {
		t.Fail()
	}
}

func TestPValues(t *testing.T) {

	_, da := data1()
	model := &Mock{data: da, xpos: []int{1, 2}}

	params := []float64{1.96, 0}
	vcov := []float64{1, 0, 0, 4}
	r := NewBaseResults(model, 0, params, []string{"x1", "x2"}, vcov)

	if !floats.EqualApprox(r.StdErr(), []float64{1, 2}, 1e-12) {
		t.Errorf("stderr: %v", r.StdErr())
	}

	pv := r.PValues()
	if math.Abs(pv[0]-0.04999579) > 1e-6 {
		t.Errorf("normal p-value: %f", pv[0])
	}
	if math.Abs(pv[1]-1) > 1e-12 {
		t.Errorf("p-value for zero estimate: %f", pv[1])
	}

	// Heavier tails under a t reference distribution.
	r.SetDF(5)
	pt := r.PValues()
	if pt[0] <= pv[0] {
		t.Errorf("t p-value %f should exceed normal p-value %f", pt[0], pv[0])
	}
}

func TestConfInt(t *testing.T) {

	_, da := data1()
	model := &Mock{data: da, xpos: []int{1, 2}}

	params := []float64{0.5, -1}
	vcov := []float64{0.25, 0, 0, 1}
	r := NewBaseResults(model, 0, params, []string{"x1", "x2"}, vcov)

	lcb, ucb := r.ConfInt(0.95)
	q := 1.959963984540054
	if !floats.EqualApprox(lcb, []float64{0.5 - q*0.5, -1 - q}, 1e-8) {
		t.Errorf("lcb: %v", lcb)
	}
	if !floats.EqualApprox(ucb, []float64{0.5 + q*0.5, -1 + q}, 1e-8) {
		t.Errorf("ucb: %v", ucb)
	}
}

func TestGetVcov(t *testing.T) {

	_, da := data1()
	model := &Mock{data: da, xpos: []int{1, 2}}

	vcov, err := GetVcov(model, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Inverse of [[4, 1], [1, 2]]
	exp := []float64{2.0 / 7, -1.0 / 7, -1.0 / 7, 4.0 / 7}
	if !floats.EqualApprox(vcov, exp, 1e-10) {
		t.Errorf("vcov: %v", vcov)
	}

	if _, err := InvertInformation([]float64{-1, -1, -1, -1}, 2); err == nil {
		t.Errorf("expected an error for a singular Hessian")
	}
}

func TestSummaryTable(t *testing.T) {

	st := &SummaryTable{
		Title:    "Test table",
		Top:      []string{"N: 7", "Family: Poisson"},
		ColNames: []string{"Variable", "Estimate"},
		ColFmt:   []Fmter{StringFmt, FloatFmt},
		Cols: []interface{}{
			[]string{"x1", "x2"},
			[]float64{1.5, math.NaN()},
		},
		Msg: []string{"A message"},
	}

	s := st.String()
	for _, want := range []string{"Test table", "x1", "1.5000", "NA", "A message", "Family: Poisson"} {
		if !strings.Contains(s, want) {
			t.Errorf("table is missing %q:\n%s", want, s)
		}
	}
}
