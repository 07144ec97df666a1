package glm

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/brunomontezano/covidpsy/statmodel"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps
}

func data1(wgt bool) statmodel.Dataset {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	w := []float64{1, 2, 2, 3, 1, 3, 2}
	da := [][]float64{y, x1, x2}
	na := []string{"y", "x1", "x2"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return statmodel.NewDataset(da, na)
}

func data2(wgt bool) statmodel.Dataset {

	y := []float64{0, 0, 1, 0, 1, 0, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	x3 := []float64{1, -1, 1, 1, 2, 5, -1}
	w := []float64{2, 1, 3, 3, 4, 2, 3}

	da := [][]float64{y, x1, x2, x3}
	na := []string{"y", "x1", "x2", "x3"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return statmodel.NewDataset(da, na)
}

func data3(wgt bool) statmodel.Dataset {

	y := []float64{1, 1, 1, 0, 0, 0, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{0, 1, 0, 0, -1, 0, 1}
	w := []float64{3, 3, 2, 3, 1, 3, 2}

	da := [][]float64{y, x1, x2}
	na := []string{"y", "x1", "x2"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return statmodel.NewDataset(da, na)
}

func data5(wgt bool) statmodel.Dataset {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	off := []float64{0, 0, 1, 1, 0, 0, 0}
	w := []float64{1, 2, 2, 3, 1, 3, 2}

	da := [][]float64{y, x1, x2, off}
	na := []string{"y", "x1", "x2", "off"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return statmodel.NewDataset(da, na)
}

// A test problem
type testprob struct {
	family     *Family
	data       statmodel.Dataset
	xnames     []string
	weight     bool
	params     []float64
	stderr     []float64
	vcov       []float64
	ll         float64
	scale      float64
	fitmethods []string
}

var glmTests = []testprob{
	{
		family:     NewFamily(GaussianFamily),
		data:       data1(true),
		xnames:     []string{"x1", "x2"},
		weight:     true,
		params:     []float64{1.316285, -0.047555},
		stderr:     []float64{0.277652, 0.080877},
		vcov:       []float64{0.077091, -0.004205, -0.004205, 0.006541},
		ll:         -19.14926021670413,
		scale:      1.0414236578435769,
		fitmethods: []string{"Gradient", "IRLS"},
	},
	{
		family:     NewFamily(PoissonFamily),
		data:       data1(true),
		xnames:     []string{"x1", "x2"},
		weight:     true,
		params:     []float64{0.266817, -0.035637},
		stderr:     []float64{0.236179, 0.067480},
		vcov:       []float64{0.055780, -0.001012, -0.001012, 0.004553},
		ll:         math.NaN(),
		scale:      1,
		fitmethods: []string{"Gradient", "IRLS"},
	},
	{
		family: NewFamily(PoissonFamily),
		data:   data2(true),
		xnames: []string{"x1", "x2", "x3"},
		weight: true,
		params: []float64{-1.540684, 0.116108, 0.246615},
		stderr: []float64{0.775912, 0.135982, 0.283345},
		vcov: []float64{0.602039, -0.076174, -0.174483,
			-0.076174, 0.018491, 0.019897,
			-0.174483, 0.019897, 0.080284},
		ll:         -13.098177137990557,
		scale:      1,
		fitmethods: []string{"Gradient", "IRLS"},
	},
	{
		family:     NewFamily(PoissonFamily),
		data:       data3(true),
		xnames:     []string{"x1", "x2"},
		weight:     true,
		params:     []float64{-0.896361, 0.467334},
		stderr:     []float64{0.428867, 0.647330},
		vcov:       []float64{0.183927, -0.157139, -0.157139, 0.419036},
		ll:         -13.768882387425702,
		scale:      1,
		fitmethods: []string{"Gradient", "IRLS"},
	},
	{
		family:     NewFamily(PoissonFamily),
		data:       data3(false),
		xnames:     []string{"x1", "x2"},
		params:     []float64{-0.962424, 0.481212},
		stderr:     []float64{0.656431, 0.937078},
		vcov:       []float64{0.430902, -0.292705, -0.292705, 0.878115},
		ll:         -5.4060591253,
		scale:      1,
		fitmethods: []string{"Gradient", "IRLS"},
	},
	{
		family:     NewFamily(GaussianFamily),
		data:       data3(false),
		xnames:     []string{"x1", "x2"},
		params:     []float64{0.4, 0.2},
		stderr:     []float64{0.219089, 0.334664},
		vcov:       []float64{0.048, -0.016, -0.016, 0.112},
		ll:         math.NaN(),
		scale:      0.32,
		fitmethods: []string{"Gradient", "IRLS"},
	},
}

func TestFit(t *testing.T) {

	for jd, ds := range glmTests {
		for jf, fmeth := range ds.fitmethods {

			config := DefaultConfig()
			config.Family = ds.family
			config.FitMethod = fmeth
			if ds.weight {
				config.WeightVar = "w"
			}

			glm, err := NewGLM(ds.data, "y", ds.xnames, config)
			if err != nil {
				t.Fatal(err)
			}

			result, err := glm.Fit()
			if err != nil {
				t.Fatal(err)
			}

			if !floats.EqualApprox(result.Params(), ds.params, 1e-5) {
				fmt.Printf("params failed %d %d:\n", jd, jf)
				fmt.Printf("%v\n", result.Params())
				t.Fail()
			}

			if math.Abs(result.Scale()-ds.scale) > 1e-5 {
				fmt.Printf("scale failed: %d %d\n", jd, jf)
				t.Fail()
			}

			if !math.IsNaN(ds.ll) && !scalarClose(result.LogLike(), ds.ll, 1e-5) {
				fmt.Printf("loglike failed: %d %d\n", jd, jf)
				t.Fail()
			}

			if !floats.EqualApprox(result.StdErr(), ds.stderr, 1e-5) {
				fmt.Printf("stderr failed: %d %d\n", jd, jf)
				t.Fail()
			}

			if !floats.EqualApprox(result.VCov(), ds.vcov, 1e-5) {
				fmt.Printf("vcov failed: %d %d\n", jd, jf)
				t.Fail()
			}

			// Smoke test
			_ = result.Summary().String()
		}
	}
}

func TestIRLSConverged(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)
	config.WeightVar = "w"

	glm, err := NewGLM(data2(true), "y", []string{"x1", "x2", "x3"}, config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := glm.Fit()
	if err != nil {
		t.Fatal(err)
	}

	if !result.Converged() {
		t.Errorf("IRLS did not converge")
	}
	if result.Iterations() < 2 || result.Iterations() > 25 {
		t.Errorf("unexpected iteration count %d", result.Iterations())
	}

	// Information criteria, with no scale parameter for Poisson
	aic := -2*result.LogLike() + 2*3
	bic := -2*result.LogLike() + 3*math.Log(7)
	if !scalarClose(result.AIC(), aic, 1e-10) || !scalarClose(result.BIC(), bic, 1e-10) {
		t.Errorf("AIC/BIC: %f %f", result.AIC(), result.BIC())
	}
}

func TestConcurrentIRLS(t *testing.T) {

	for _, c := range []int{1, 1000} {
		config := DefaultConfig()
		config.Family = NewFamily(PoissonFamily)
		config.WeightVar = "w"
		config.ConcurrentIRLS = c

		glm, err := NewGLM(data2(true), "y", []string{"x1", "x2", "x3"}, config)
		if err != nil {
			t.Fatal(err)
		}
		result, err := glm.Fit()
		if err != nil {
			t.Fatal(err)
		}
		if !floats.EqualApprox(result.Params(), []float64{-1.540684, 0.116108, 0.246615}, 1e-5) {
			t.Errorf("concurrency %d: %v", c, result.Params())
		}
	}
}

type robustprob struct {
	family *Family
	data   statmodel.Dataset
	xnames []string
	vcov   []float64
}

var robustTests = []robustprob{
	{
		family: NewFamily(PoissonFamily),
		data:   data3(true),
		xnames: []string{"x1", "x2"},
		vcov: []float64{0.3092820796048741, -0.24680268489620616,
			-0.24680268489620616, 0.4662561891216006},
	},
	{
		family: NewFamily(PoissonFamily),
		data:   data2(true),
		xnames: []string{"x1", "x2", "x3"},
		vcov: []float64{1.8481662559591179, -0.26431604271958126, -0.4444987722121396,
			-0.26431604271958137, 0.046984619454936025, 0.06192954820610544,
			-0.44449877221213957, 0.061929548206105405, 0.13678357433268445},
	},
	{
		family: NewFamily(GaussianFamily),
		data:   data1(true),
		xnames: []string{"x1", "x2"},
		vcov: []float64{0.16348540015448507, -0.006492861643055934,
			-0.006492861643055935, 0.009024361743374072},
	},
}

func TestRobustCov(t *testing.T) {

	for jr, rp := range robustTests {

		config := DefaultConfig()
		config.Family = rp.family
		config.WeightVar = "w"
		config.CovType = RobustCov

		glm, err := NewGLM(rp.data, "y", rp.xnames, config)
		if err != nil {
			t.Fatal(err)
		}
		result, err := glm.Fit()
		if err != nil {
			t.Fatal(err)
		}

		if !floats.EqualApprox(result.VCov(), rp.vcov, 1e-6) {
			fmt.Printf("robust vcov failed %d:\n%v\n", jr, result.VCov())
			t.Fail()
		}
	}
}

// The sandwich covariance does not depend on the overall scale of the
// weights.
func TestRobustWeightScale(t *testing.T) {

	da := data2(true)
	cols := da.Data()
	w2 := make([]float64, len(cols[4]))
	floats.ScaleTo(w2, 7/floats.Sum(cols[4]), cols[4])
	db := statmodel.NewDataset([][]float64{cols[0], cols[1], cols[2], cols[3], w2},
		[]string{"y", "x1", "x2", "x3", "w"})

	var vc [][]float64
	for _, d := range []statmodel.Dataset{da, db} {
		config := DefaultConfig()
		config.Family = NewFamily(PoissonFamily)
		config.WeightVar = "w"
		config.CovType = RobustCov
		glm, err := NewGLM(d, "y", []string{"x1", "x2", "x3"}, config)
		if err != nil {
			t.Fatal(err)
		}
		result, err := glm.Fit()
		if err != nil {
			t.Fatal(err)
		}
		vc = append(vc, result.VCov())
	}

	if !floats.EqualApprox(vc[0], vc[1], 1e-8) {
		t.Errorf("robust vcov changed with the weight scale:\n%v\n%v", vc[0], vc[1])
	}
}

func TestTDist(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)
	config.WeightVar = "w"
	config.CovType = RobustCov
	config.TDist = true

	glm, err := NewGLM(data3(true), "y", []string{"x1", "x2"}, config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := glm.Fit()
	if err != nil {
		t.Fatal(err)
	}

	if result.DF() != 5 {
		t.Errorf("df = %f, expected 5", result.DF())
	}

	z := result.ZScores()[1]
	pv := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 5}.Survival(math.Abs(z))
	if !scalarClose(result.PValues()[1], pv, 1e-10) {
		t.Errorf("p-value %f, expected %f", result.PValues()[1], pv)
	}
}

func TestOffset(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)
	config.WeightVar = "w"
	config.OffsetVar = "off"

	glm, err := NewGLM(data5(true), "y", []string{"x1", "x2"}, config)
	if err != nil {
		t.Fatal(err)
	}

	ll := glm.LogLike(&GLMParams{[]float64{-1, 2}, 1}, true)
	if !scalarClose(ll, -10716.200029495829, 1e-5) {
		t.Errorf("loglike with offset: %f", ll)
	}

	score := make([]float64, 2)
	glm.Score(&GLMParams{[]float64{-1, 2}, 1}, score)
	if !floats.EqualApprox(score, []float64{-10694.53706902, -49424.45601021}, 1e-5) {
		t.Errorf("score with offset: %v", score)
	}

	hess := make([]float64, 4)
	glm.Hessian(&GLMParams{[]float64{-1, 2}, 1}, statmodel.ExpHess, hess)
	exphess := []float64{-10712.53706902, -49428.45601021, -49428.45601021, -233692.95149924}
	if !floats.EqualApprox(hess, exphess, 1e-5) {
		t.Errorf("Hessian with offset: %v", hess)
	}
}

func TestNoCovariates(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)

	glm, err := NewGLM(data3(false), "y", nil, config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := glm.Fit()
	if err != nil {
		t.Fatal(err)
	}

	// All means are exp(0) = 1
	if !scalarClose(result.LogLike(), -7, 1e-10) {
		t.Errorf("loglike: %f", result.LogLike())
	}
	if len(result.Params()) != 0 {
		t.Errorf("expected no parameters")
	}
}

func TestInvalidData(t *testing.T) {

	y := []float64{1, 0, math.NaN(), 1}
	x := []float64{1, 1, 1, 1}
	w := []float64{1, 2, 1, 1}
	da := statmodel.NewDataset([][]float64{y, x, w}, []string{"y", "x", "w"})
	if _, err := NewGLM(da, "y", []string{"x"}, nil); err == nil {
		t.Errorf("expected an error for a missing outcome")
	}

	y[2] = 1
	w[1] = -1
	config := DefaultConfig()
	config.WeightVar = "w"
	if _, err := NewGLM(da, "y", []string{"x"}, config); err == nil {
		t.Errorf("expected an error for a negative weight")
	}

	if _, err := NewGLM(da, "y", []string{"z"}, nil); err == nil {
		t.Errorf("expected an error for an unknown predictor")
	}
}

func TestSingularDesign(t *testing.T) {

	y := []float64{1, 0, 0, 1, 0, 1}
	x1 := []float64{1, 1, 1, 1, 1, 1}
	x2 := []float64{0, 1, 0, 1, 0, 1}
	da := statmodel.NewDataset([][]float64{y, x1, x2, x2}, []string{"y", "x1", "x2", "x3"})

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)
	config.CovType = RobustCov

	glm, err := NewGLM(da, "y", []string{"x1", "x2", "x3"}, config)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := glm.Fit(); err == nil {
		t.Errorf("expected an error for collinear predictors")
	}
}

func TestProfileConfInt(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)

	glm, err := NewGLM(data1(false), "y", []string{"x1", "x2"}, config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := glm.Fit()
	if err != nil {
		t.Fatal(err)
	}

	lcb, ucb, err := result.ProfileConfInt(0.95)
	if err != nil {
		t.Fatal(err)
	}

	q := distuv.ChiSquared{K: 1}.Quantile(0.95) / 2
	for j := range lcb {
		b := result.Params()[j]
		if !(lcb[j] < b && b < ucb[j]) {
			t.Errorf("interval %d does not cover the estimate: %f %f %f", j, lcb[j], b, ucb[j])
		}

		// The profile log-likelihood at each limit is q below the maximum.
		cp := NewCoeffProfiler(result, j)
		for _, x := range []float64{lcb[j], ucb[j]} {
			ll, err := cp.LogLike(x)
			if err != nil {
				t.Fatal(err)
			}
			if !scalarClose(result.LogLike()-ll, q, 1e-4) {
				t.Errorf("profile drop at %f is %f, expected %f", x, result.LogLike()-ll, q)
			}
		}
	}

	// Profile and Wald intervals are similar in this well behaved model
	wl, wu := result.ConfInt(0.95)
	for j := range wl {
		if math.Abs(wl[j]-lcb[j]) > 0.5*(wu[j]-wl[j]) {
			t.Errorf("profile and Wald intervals differ: %f %f", wl[j], lcb[j])
		}
	}
}

func TestSummary(t *testing.T) {

	config := DefaultConfig()
	config.Family = NewFamily(PoissonFamily)
	config.WeightVar = "w"
	config.CovType = RobustCov

	glm, err := NewGLM(data3(true), "y", []string{"x1", "x2"}, config)
	if err != nil {
		t.Fatal(err)
	}
	result, err := glm.Fit()
	if err != nil {
		t.Fatal(err)
	}

	s := result.Summary().SetScale(math.Exp, "Parameters are rate ratios").String()
	for _, want := range []string{"Poisson", "Robust", "x2", "rate ratios"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary is missing %q:\n%s", want, s)
		}
	}
}

func TestSetLink(t *testing.T) {

	fam := NewFamily(GaussianFamily)
	for _, v := range []LinkType{IdentityLink, LogLink} {
		if !fam.IsValidLink(NewLink(v)) {
			t.Fail()
		}
	}
}
