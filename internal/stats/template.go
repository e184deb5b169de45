package stats

import "math"

// Per-bin statistics for template fits in the Barlow-Beeston-lite
// family. Each function combines an observed count n with a total
// template prediction mu carrying Monte-Carlo variance muVar. All
// three reduce to the plain Poisson statistic as muVar -> 0, which is
// also the explicit branch taken for zero-variance bins.

// TemplateChi2JSC implements the joint-statistics chi-square of
// J.S. Conway (PHYSTAT 2011): a single multiplicative nuisance beta
// per bin scales the prediction against its own Gaussian constraint.
// The stationarity condition is a quadratic in beta with a unique
// non-negative root.
func TemplateChi2JSC(n, mu, muVar float64) float64 {
	if muVar <= 0 || mu <= 0 {
		return PoissonDeviance(n, mu)
	}
	betaVar := muVar / (mu * mu)
	p := 0.5 - 0.5*mu*betaVar
	beta := p + math.Sqrt(p*p+n*betaVar)
	d := beta - 1
	return PoissonDeviance(n, mu*beta) + d*d/betaVar
}

// TemplateChi2DA implements the data-augmentation statistic of
// Argüelles, Schneider and Yuan (JHEP 06 (2019) 030): the template is
// treated as an auxiliary Poisson measurement with effective count
// k = mu^2/muVar, and the shared scale beta = (n+k)/(mu+k) is profiled
// in closed form.
func TemplateChi2DA(n, mu, muVar float64) float64 {
	if muVar <= 0 || mu <= 0 {
		return PoissonDeviance(n, mu)
	}
	k := mu * mu / muVar
	beta := (n + k) / (mu + k)
	return PoissonDeviance(n, mu*beta) + PoissonDeviance(k, k*beta)
}

// TemplateNLLASY implements the asymptotic marginalized likelihood:
// the per-bin nuisance yield is integrated out against a gamma density
// with shape alpha = mu^2/muVar + 1 and rate beta = mu/muVar, giving a
// negative-binomial-like marginal for the observed count (continuous
// Poisson form). The result is twice the negative log-likelihood, so
// costs built on it use the likelihood errordef convention.
func TemplateNLLASY(n, mu, muVar float64) float64 {
	if mu <= 0 || muVar <= 0 {
		return PoissonNLL(n, mu)
	}
	alpha := mu*mu/muVar + 1
	beta := mu / muVar
	return 2 * (-alpha*math.Log(beta) -
		lnGamma(n+alpha) +
		lnGamma(n+1) +
		(n+alpha)*math.Log1p(beta) +
		lnGamma(alpha))
}
