/*
Package glm fits generalized linear models (GLM) to data held in
statmodel.Dataset columns.

The Poisson and Gaussian families are supported, with log and identity
links.  Models are fit by iteratively reweighted least squares, falling
back to gradient optimization when the weighted least squares system
cannot be solved.  Case weights are treated as survey weights when
CovType is RobustCov: the sampling covariance is then the sandwich
(design-based) estimate, and inference can use a Student t reference
distribution with n - p degrees of freedom.

A minimal example:

	config := glm.DefaultConfig()
	config.Family = glm.NewFamily(glm.PoissonFamily)
	config.WeightVar = "w"
	config.CovType = glm.RobustCov
	model, err := glm.NewGLM(data, "y", []string{"icept", "x"}, config)
	if err != nil {
		...
	}
	result, err := model.Fit()
*/
package glm
