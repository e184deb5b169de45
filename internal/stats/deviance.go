// Package stats implements the numeric kernels shared by the cost
// components: safe logarithms, Poisson and multinomial deviances,
// robust losses, and the template-fit statistics.
package stats

import "math"

// SafeLog returns log(x + tiny) where tiny is the smallest positive
// subnormal float64. This gives the 0*log(0) = 0 convention its finite
// footing: n*SafeLog(n) vanishes for n = 0 while log of an exactly
// empty prediction stays a large negative number instead of -Inf, so
// deviances remain finite and minimizable.
func SafeLog(x float64) float64 {
	return math.Log(x + math.SmallestNonzeroFloat64)
}

// PoissonDeviance returns the per-bin Poisson deviance
// 2*(mu - n + n*log(n/mu)), the likelihood-ratio statistic of an
// observed count n against a predicted count mu. It is zero at n == mu
// and asymptotically chi-square distributed.
func PoissonDeviance(n, mu float64) float64 {
	return 2 * (mu - n + n*(SafeLog(n)-SafeLog(mu)))
}

// PoissonChi2 sums the Poisson deviance over paired slices.
func PoissonChi2(n, mu []float64) float64 {
	var total float64
	for i := range n {
		total += PoissonDeviance(n[i], mu[i])
	}
	return total
}

// MultinomialChi2 sums the multinomial deviance 2*n*log(n/mu) over
// paired slices. Under the multinomial constraint sum(mu) == sum(n)
// the linear terms of the Poisson deviance cancel and the two
// statistics agree.
func MultinomialChi2(n, mu []float64) float64 {
	var total float64
	for i := range n {
		total += 2 * n[i] * (SafeLog(n[i]) - SafeLog(mu[i]))
	}
	return total
}

// PoissonNLL returns twice the negative log-likelihood of the
// continuous Poisson distribution, -2*log P(n; mu) with the factorial
// generalized through the gamma function. Unlike the deviance it keeps
// the data-dependent constant, so it is only comparable between
// parameter points, not across datasets.
func PoissonNLL(n, mu float64) float64 {
	return 2 * (mu - n*SafeLog(mu) + lnGamma(n+1))
}

// Chi2 returns the standard least-squares statistic
// sum(((y - ym)/ye)^2) over paired slices.
func Chi2(y, ye, ym []float64) float64 {
	var total float64
	for i := range y {
		r := (y[i] - ym[i]) / ye[i]
		total += r * r
	}
	return total
}

// SoftL1 is the soft L1 robust loss applied to a squared residual z:
// 2*(sqrt(1+z) - 1). It matches z for small residuals and grows like
// 2*sqrt(z) for large ones, damping outlier influence.
func SoftL1(z float64) float64 {
	return 2 * (math.Sqrt(1+z) - 1)
}

func lnGamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
