package glm

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/brunomontezano/covidpsy/statmodel"
)

// A test problem
type difftestprob struct {
	title  string
	family *Family
	link   *Link
	data   statmodel.Dataset
	xnames []string
	weight bool
	offset bool
	params [][]float64
	scale  float64
}

var diffTests = []difftestprob{
	{
		title:  "Gaussian 1",
		family: NewFamily(GaussianFamily),
		data:   data1(false),
		xnames: []string{"x1", "x2"},
		scale:  2,
		params: [][]float64{{1, 0}, {0, 1}, {1, 1}, {-1, 1}},
	},
	{
		title:  "Gaussian 2",
		family: NewFamily(GaussianFamily),
		data:   data1(true),
		xnames: []string{"x1", "x2"},
		weight: true,
		scale:  2,
		params: [][]float64{{1, 0}, {0, 1}, {1, 1}, {-1, 1}},
	},
	{
		title:  "Gaussian log link",
		family: NewFamily(GaussianFamily),
		link:   NewLink(LogLink),
		data:   data1(true),
		xnames: []string{"x1", "x2"},
		weight: true,
		scale:  1.5,
		params: [][]float64{{0.1, 0}, {0, 0.1}, {-1, 0.2}},
	},
	{
		title:  "Poisson 1",
		family: NewFamily(PoissonFamily),
		data:   data1(false),
		xnames: []string{"x1", "x2"},
		scale:  1,
		params: [][]float64{{1, 0}, {0, 1}, {1, 1}, {-1, 1}},
	},
	{
		title:  "Poisson 2",
		family: NewFamily(PoissonFamily),
		data:   data2(true),
		xnames: []string{"x1", "x2", "x3"},
		weight: true,
		scale:  1,
		params: [][]float64{{1, 0, 0}, {0, 1, 0}, {1, 1, 1}, {-1, 0, 1}},
	},
	{
		title:  "Poisson offset",
		family: NewFamily(PoissonFamily),
		data:   data5(true),
		xnames: []string{"x1", "x2"},
		weight: true,
		offset: true,
		scale:  1,
		params: [][]float64{{1, 0}, {0, 0.2}, {-1, 0.1}},
	},
}

func TestGrad(t *testing.T) {

	for _, dt := range diffTests {

		config := DefaultConfig()
		config.Family = dt.family
		config.Link = dt.link
		if dt.weight {
			config.WeightVar = "w"
		}
		if dt.offset {
			config.OffsetVar = "off"
		}

		glm, err := NewGLM(dt.data, "y", dt.xnames, config)
		if err != nil {
			t.Fatal(err)
		}

		p := len(dt.params[0])
		ngrad := make([]float64, p)
		score := make([]float64, p)
		nhess := make([]float64, p*p)
		hess := make([]float64, p*p)

		loglike := func(x []float64) float64 {
			return glm.LogLike(&GLMParams{x, dt.scale}, true)
		}

		for _, params := range dt.params {

			// The log-likelihood includes the scale, the score and
			// Hessian do not.
			fd.Gradient(ngrad, loglike, params, nil)
			floats.Scale(dt.scale, ngrad)
			glm.Score(&GLMParams{params, dt.scale}, score)
			if !floats.EqualApprox(score, ngrad, 1e-5) {
				fmt.Printf("%s\n", dt.title)
				fmt.Printf("Numerical:  %v\n", ngrad)
				fmt.Printf("Analytical: %v\n", score)
				t.Fail()
			}

			// The observed Hessian is the derivative of the score.
			for j := 0; j < p; j++ {
				sj := func(x []float64) float64 {
					s := make([]float64, p)
					glm.Score(&GLMParams{x, dt.scale}, s)
					return s[j]
				}
				g := make([]float64, p)
				fd.Gradient(g, sj, params, nil)
				copy(nhess[j*p:(j+1)*p], g)
			}
			glm.Hessian(&GLMParams{params, dt.scale}, statmodel.ObsHess, hess)
			if !floats.EqualApprox(hess, nhess, 1e-4) {
				fmt.Printf("%s\n", dt.title)
				fmt.Printf("Numerical Hessian:  %v\n", nhess)
				fmt.Printf("Analytical Hessian: %v\n", hess)
				t.Fail()
			}
		}
	}
}
