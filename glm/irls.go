package glm

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/brunomontezano/covidpsy/statmodel"
)

// maxHalving is the number of step halvings tried when an IRLS update
// produces a non-finite deviance.
const maxHalving = 20

// totalOffset returns the offset of the linear predictor, or nil if
// the model has no offset.
func (glm *GLM) totalOffset() []float64 {

	if glm.offsetpos == -1 && glm.extraOffset == nil {
		return nil
	}

	off := make([]float64, glm.NumObs())
	if glm.offsetpos != -1 {
		copy(off, glm.data[glm.offsetpos])
	}
	if glm.extraOffset != nil {
		floats.Add(off, glm.extraOffset)
	}

	return off
}

// fitIRLS fits the model using iteratively reweighted least squares.
// It returns the estimates, the number of iterations, and whether the
// relative change in deviance fell below the tolerance.  An error is
// returned if the weighted least squares system cannot be solved.
func (glm *GLM) fitIRLS(start []float64) ([]float64, int, bool, error) {

	linpred := glm.getNslice()
	mn := glm.getNslice()
	va := glm.getNslice()
	lderiv := glm.getNslice()
	irlsw := glm.getNslice()
	adjy := glm.getNslice()
	defer func() {
		glm.putNslice(linpred)
		glm.putNslice(mn)
		glm.putNslice(va)
		glm.putNslice(lderiv)
		glm.putNslice(irlsw)
		glm.putNslice(adjy)
	}()

	nvar := glm.NumParams()

	xty := make([]float64, nvar)
	xtx := make([]float64, nvar*nvar)

	params := make([]float64, nvar)
	copy(params, start)

	xdat := make([][]statmodel.Dtype, len(glm.xpos))
	for j, k := range glm.xpos {
		xdat[j] = glm.data[k]
	}

	yda := glm.data[glm.ypos]
	wgt := glm.weights()
	off := glm.totalOffset()

	// Starting values on the mean scale
	if glm.start == nil {
		glm.startingMu(yda, mn)
		glm.link.Link(mn, linpred)
	} else {
		glm.linearPredictor(params, linpred)
		glm.link.InvLink(linpred, mn)
	}

	devold := glm.fam.Deviance(yda, mn, wgt, 1)

	for iter := 1; iter <= glm.maxIter; iter++ {

		zero(xtx)
		zero(xty)

		glm.link.Deriv(mn, lderiv)
		glm.vari.Var(mn, va)

		// Create weights for WLS
		if wgt != nil {
			for i := range yda {
				irlsw[i] = wgt[i] / (lderiv[i] * lderiv[i] * va[i])
			}
		} else {
			for i := range yda {
				irlsw[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
			}
		}

		// Create an adjusted response for WLS
		for i := range yda {
			adjy[i] = linpred[i] + lderiv[i]*(yda[i]-mn[i])
		}
		if off != nil {
			floats.Sub(adjy, off)
		}

		// Update the weighted moment matrices.  For large data sets, this is by far the
		// most expensive step.
		glm.irlsXprod(xdat, adjy, irlsw, xty, xtx)

		// Fill in the unfilled triangle of xtx
		for j1 := 0; j1 < nvar; j1++ {
			for j2 := j1 + 1; j2 < nvar; j2++ {
				xtx[j1*nvar+j2] = xtx[j2*nvar+j1]
			}
		}

		// Update the parameters
		var nparam mat.VecDense
		xtxm := mat.NewDense(nvar, nvar, xtx)
		xtyv := mat.NewVecDense(nvar, xty)
		if err := nparam.SolveVec(xtxm, xtyv); err != nil {
			return nil, iter, false, fmt.Errorf("glm: IRLS iteration %d: %w", iter, err)
		}
		newparams := make([]float64, nvar)
		copy(newparams, nparam.RawVector().Data)
		if !allFinite(newparams) {
			return nil, iter, false, fmt.Errorf("glm: IRLS iteration %d produced non-finite estimates", iter)
		}

		// Step halving if the deviance is not finite
		var dev float64
		for k := 0; ; k++ {
			glm.linearPredictor(newparams, linpred)
			glm.link.InvLink(linpred, mn)
			dev = glm.fam.Deviance(yda, mn, wgt, 1)
			if !math.IsNaN(dev) && !math.IsInf(dev, 0) {
				break
			}
			if k == maxHalving || iter == 1 && glm.start == nil {
				return nil, iter, false, fmt.Errorf("glm: IRLS iteration %d: non-finite deviance", iter)
			}
			for j := range newparams {
				newparams[j] = (newparams[j] + params[j]) / 2
			}
		}
		params = newparams

		if glm.log != nil {
			glm.log.Debug("IRLS iteration", "iteration", iter, "deviance", dev)
		}

		// Check convergence
		if math.Abs(dev-devold)/(math.Abs(dev)+0.1) < glm.devTol {
			return params, iter, true, nil
		}
		devold = dev
	}

	if glm.log != nil {
		glm.log.Debug("IRLS did not converge", "maxiter", glm.maxIter)
	}

	return params, glm.maxIter, false, nil
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (glm *GLM) irlsXprod(xdat [][]statmodel.Dtype, adjy, irlsw, xty, xtx []float64) {

	if len(adjy) >= glm.concurrentIRLS {
		glm.irlsXprodConcurrent(xdat, adjy, irlsw, xty, xtx)
		return
	}

	nvar := len(xdat)

	for j1 := range xdat {

		// Update x' w^-1 yadj
		xda := xdat[j1]
		var u float64
		for i := range adjy {
			u += adjy[i] * xda[i] * irlsw[i]
		}
		xty[j1] += u

		// Update x' w^-1 x
		for j2 := 0; j2 <= j1; j2++ {
			xdb := xdat[j2]
			var u float64
			for i := range xda {
				u += xda[i] * xdb[i] * irlsw[i]
			}
			xtx[j1*nvar+j2] += u
		}
	}
}

// irlsXprodConcurrent is a concurrent version of irlsXprod
func (glm *GLM) irlsXprodConcurrent(xdat [][]statmodel.Dtype, adjy, irlsw, xty, xtx []float64) {

	nvar := len(xdat)

	var wg sync.WaitGroup

	for j1 := range xdat {

		// Update x' w^-1 yadj
		xda := xdat[j1]
		wg.Add(1)
		go func(j1 int) {
			var u float64
			for i := range adjy {
				u += adjy[i] * xda[i] * irlsw[i]
			}
			xty[j1] += u
			wg.Done()
		}(j1)

		// Update x' w^-1 x
		for j2 := 0; j2 <= j1; j2++ {
			xdb := xdat[j2]
			wg.Add(1)
			go func(j1, j2 int) {
				var u float64
				for i := range xda {
					u += xda[i] * xdb[i] * irlsw[i]
				}
				xtx[j1*nvar+j2] += u
				wg.Done()
			}(j1, j2)
		}
	}

	wg.Wait()
}

// startingMu sets the initial mean values, halfway between each
// observation and the overall mean, bounded away from zero for
// families whose mean must be positive.
func (glm *GLM) startingMu(y []statmodel.Dtype, mn []float64) {

	var q float64
	for i := range y {
		q += y[i]
	}
	q /= float64(len(y))

	for i := range mn {
		mn[i] = (y[i] + q) / 2
		if glm.link.TypeCode == LogLink && mn[i] < 0.1 {
			mn[i] = 0.1
		}
	}
}
