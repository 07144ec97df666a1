package glm

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/brunomontezano/covidpsy/statmodel"
)

type ptlsh struct {
	family  *Family
	data    statmodel.Dataset
	xnames  []string
	weight  bool
	off     bool
	params  []float64
	ll      float64
	score   []float64
	exphess []float64
	obshess []float64
}

var pq = []ptlsh{
	{
		family:  NewFamily(PoissonFamily),
		data:    data1(false),
		xnames:  []string{"x1", "x2"},
		params:  []float64{0, 0},
		ll:      -9.48490664979,
		score:   []float64{1, -6},
		exphess: []float64{-7, -10, -10, -86},
		obshess: []float64{-7, -10, -10, -86},
	},
	{
		family:  NewFamily(PoissonFamily),
		data:    data1(false),
		xnames:  []string{"x1", "x2"},
		params:  []float64{1, 1},
		ll:      -659.930531049,
		score:   []float64{-661.4456244, -2940.68298198},
		exphess: []float64{-669.4456244, -2944.68298198, -2944.68298198, -13451.94403063},
		obshess: []float64{-669.4456244, -2944.68298198, -2944.68298198, -13451.94403063},
	},
	{
		family: NewFamily(PoissonFamily),
		data:   data5(true),
		xnames: []string{"x1", "x2"},
		weight: true,
		off:    true,
		params: []float64{-1, 2},
		ll:     -10716.200029495829,
		score:  []float64{-10694.53706902, -49424.45601021},
		exphess: []float64{-10712.53706902, -49428.45601021,
			-49428.45601021, -233692.95149924},
		obshess: []float64{-10712.53706902, -49428.45601021,
			-49428.45601021, -233692.95149924},
	},
}

func TestLLScoreHess(t *testing.T) {

	for pj, ps := range pq {

		config := DefaultConfig()
		config.Family = ps.family
		if ps.weight {
			config.WeightVar = "w"
		}
		if ps.off {
			config.OffsetVar = "off"
		}

		glm, err := NewGLM(ps.data, "y", ps.xnames, config)
		if err != nil {
			t.Fatal(err)
		}

		m := glm.NumParams()
		score := make([]float64, m)
		hess := make([]float64, m*m)

		ll := glm.LogLike(&GLMParams{ps.params, 1}, true)
		if !scalarClose(ll, ps.ll, 1e-5) {
			fmt.Printf("LogLike %d:\n", pj)
			t.Fail()
		}

		glm.Score(&GLMParams{ps.params, 1}, score)
		if !floats.EqualApprox(score, ps.score, 1e-5) {
			fmt.Printf("Score %d:\n", pj)
			t.Fail()
		}

		glm.Hessian(&GLMParams{ps.params, 1}, statmodel.ExpHess, hess)
		if !floats.EqualApprox(hess, ps.exphess, 1e-5) {
			fmt.Printf("Hessian %d:\n", pj)
			t.Fail()
		}

		glm.Hessian(&GLMParams{ps.params, 1}, statmodel.ObsHess, hess)
		if !floats.EqualApprox(hess, ps.obshess, 1e-5) {
			fmt.Printf("Hessian %d:\n", pj)
			t.Fail()
		}
	}
}
