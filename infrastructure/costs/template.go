package costs

import (
	"fmt"
	"math"

	"github.com/ahrav/go-fitcost/internal/domain"
	"github.com/ahrav/go-fitcost/internal/ports"
	"github.com/ahrav/go-fitcost/internal/stats"
)

var _ ports.MaskedCost = (*Template)(nil)

// Template-fit methods. They differ in how per-bin Monte-Carlo
// uncertainty of the templates enters the statistic.
const (
	// MethodJSC is Conway's joint-statistics chi-square.
	MethodJSC = "jsc"

	// MethodDA is the data-augmentation statistic of Argüelles,
	// Schneider and Yuan, the default.
	MethodDA = "da"

	// MethodASY is the asymptotic marginalized likelihood; costs using
	// it carry the likelihood errordef convention.
	MethodASY = "asy"

	// methodHPD is the legacy name of MethodDA, kept as an alias.
	methodHPD = "hpd"
)

// TemplateComponent is one process entering a template fit: either a
// Monte-Carlo histogram whose yield is fitted, or a parametric scaled
// CDF model whose free parameters are fitted.
type TemplateComponent struct {
	hist   *domain.Histogram
	model  ports.Model
	params []string
}

// HistogramComponent wraps a Monte-Carlo template histogram. The
// component contributes one yield parameter bounded to [0, inf); the
// histogram's per-bin variances (counts themselves for unweighted
// histograms) feed the method's finite-statistics correction.
func HistogramComponent(hist *domain.Histogram) TemplateComponent {
	return TemplateComponent{hist: hist}
}

// ModelComponent wraps a parametric scaled CDF with the given free
// parameter names. Model components carry no Monte-Carlo variance.
func ModelComponent(model ports.Model, parameters ...string) TemplateComponent {
	return TemplateComponent{model: model, params: parameters}
}

// TemplateConfig controls construction of a Template cost.
type TemplateConfig struct {
	// Method selects the statistical treatment: "jsc", "da" (default)
	// or "asy". The legacy name "hpd" resolves to "da" and records a
	// deprecation diagnostic.
	Method string `yaml:"method"`

	// Names optionally overrides the generated parameter names; it
	// must hold exactly one entry per free parameter.
	Names []string `yaml:"names"`
}

// templateComp is the compiled form of a component: normalized
// fractions for histograms, a parameter slot range for models.
type templateComp struct {
	// Histogram components.
	frac    []float64 // t_i / total
	relVar  []float64 // v_i / total^2
	isModel bool

	// Model components.
	model ports.Model

	// Parameter slots in the cost's positional vector.
	lo, hi int
}

// Template fits an observed histogram as an additive combination of
// Monte-Carlo template histograms and parametric components, with a
// selectable treatment of the templates' own finite statistics
// (Barlow-Beeston-lite family). Yield parameters of histogram
// components are named x0, x1, ... in component order; free parameters
// of model components are namespaced as x{k}_{name}.
type Template struct {
	baseCost
	hist      *domain.Histogram
	edges     [][]float64
	grid      [][]float64
	gridShape []int
	comps     []templateComp
	method    string
}

// NewTemplate creates a template fit of the observed histogram against
// the given components over shared bin edges. All component histograms
// are copied defensively and must share the observed binning.
func NewTemplate(hist *domain.Histogram, edges [][]float64, components []TemplateComponent, cfg TemplateConfig) (*Template, error) {
	if hist == nil {
		return nil, domain.NewConfigError("n", "histogram must not be nil")
	}
	if len(components) == 0 {
		return nil, ErrEmptyTemplates
	}

	t := &Template{hist: hist.Clone(), edges: cloneColumns(edges)}

	method, deprecated, err := resolveMethod(cfg.Method)
	if err != nil {
		return nil, err
	}
	t.method = method
	if err := t.compileBinning(); err != nil {
		return nil, err
	}
	params, err := t.compileComponents(components)
	if err != nil {
		return nil, err
	}
	if deprecated {
		t.diags.RecordOnce(domain.SeverityDeprecation,
			`method "hpd" was renamed to "da"`)
	}
	if cfg.Names != nil {
		if len(cfg.Names) != params.Len() {
			return nil, domain.NewConfigError("names",
				"number of names (%d) does not match the number of free parameters (%d)",
				len(cfg.Names), params.Len())
		}
		renamed := domain.ParameterSet{}
		for i := 0; i < params.Len(); i++ {
			p := params.At(i)
			p.Name = cfg.Names[i]
			renamed.Add(p)
		}
		if renamed.Len() != params.Len() {
			return nil, domain.NewConfigError("names", "names must be unique, got %v", cfg.Names)
		}
		params = renamed
	}
	t.params = params
	return t, nil
}

// NewBarlowBeestonLite is the deprecated former name of NewTemplate,
// kept as an alias. Using it records a deprecation diagnostic on the
// returned cost.
func NewBarlowBeestonLite(hist *domain.Histogram, edges [][]float64, components []TemplateComponent, cfg TemplateConfig) (*Template, error) {
	t, err := NewTemplate(hist, edges, components, cfg)
	if err != nil {
		return nil, err
	}
	t.diags.RecordOnce(domain.SeverityDeprecation,
		"NewBarlowBeestonLite was renamed to NewTemplate")
	return t, nil
}

// resolveMethod maps a configured method name to the canonical one,
// reporting whether a deprecated alias was used.
func resolveMethod(method string) (resolved string, deprecated bool, err error) {
	switch method {
	case "":
		return MethodDA, false, nil
	case MethodJSC, MethodDA, MethodASY:
		return method, false, nil
	case methodHPD:
		return MethodDA, true, nil
	default:
		return "", false, domain.NewConfigError("method",
			"%q is not understood (expected %q, %q or %q)", method, MethodJSC, MethodDA, MethodASY)
	}
}

func (t *Template) compileBinning() error {
	if len(t.edges) == 0 {
		return domain.NewConfigError("xe", "at least one edge array is required")
	}
	binShape := make([]int, len(t.edges))
	t.gridShape = make([]int, len(t.edges))
	for d, e := range t.edges {
		if len(e) < 2 {
			return domain.NewConfigError("xe",
				"edge array %d needs at least two entries, got %d", d, len(e))
		}
		for i := 1; i < len(e); i++ {
			if !(e[i] > e[i-1]) {
				return domain.NewConfigError("xe",
					"edge array %d must be strictly increasing", d)
			}
		}
		binShape[d] = len(e) - 1
		t.gridShape[d] = len(e)
	}
	shape := t.hist.Shape()
	if !equalInts(shape, binShape) {
		return fmt.Errorf("n must have shape %s to match the bin edges, got %s: %w",
			domain.FormatShape(binShape), domain.FormatShape(shape), domain.ErrShape)
	}
	t.grid = cornerGrid(t.edges, t.gridShape)
	return nil
}

func (t *Template) compileComponents(components []TemplateComponent) (domain.ParameterSet, error) {
	params := domain.ParameterSet{}
	nbins := t.hist.Len()
	for k, comp := range components {
		switch {
		case comp.hist != nil && comp.model == nil:
			if !t.hist.SameBinning(comp.hist) {
				return domain.ParameterSet{}, fmt.Errorf(
					"template %d and data shapes do not match (%s vs %s): %w",
					k, domain.FormatShape(comp.hist.Shape()), domain.FormatShape(t.hist.Shape()),
					domain.ErrShape)
			}
			total := comp.hist.Total()
			cc := templateComp{
				frac:   make([]float64, nbins),
				relVar: make([]float64, nbins),
				lo:     params.Len(),
			}
			for i := 0; i < nbins; i++ {
				if total > 0 {
					cc.frac[i] = comp.hist.Count(i) / total
					cc.relVar[i] = comp.hist.Variance(i) / (total * total)
				}
			}
			params.Add(domain.BoundedParameter(fmt.Sprintf("x%d", k), 0, math.Inf(1)))
			cc.hi = params.Len()
			t.comps = append(t.comps, cc)

		case comp.model != nil && comp.hist == nil:
			if len(comp.params) == 0 {
				return domain.ParameterSet{}, domain.NewConfigError("model_or_template",
					"model component %d needs at least one parameter name", k)
			}
			cc := templateComp{isModel: true, model: comp.model, lo: params.Len()}
			for _, name := range comp.params {
				params.Add(domain.NewParameter(fmt.Sprintf("x%d_%s", k, name)))
			}
			cc.hi = params.Len()
			t.comps = append(t.comps, cc)

		default:
			return domain.ParameterSet{}, domain.NewConfigError("model_or_template",
				"component %d must be exactly one of a template histogram or a model", k)
		}
	}
	t.baseCost = newBaseCost(params)
	return params, nil
}

// NData returns the number of active bins.
func (t *Template) NData() float64 { return float64(t.activeCount(t.hist.Len())) }

// ErrorDef returns 0.5 for the asy method and 1.0 otherwise.
func (t *Template) ErrorDef() float64 {
	if t.method == MethodASY {
		return ports.ErrorDefLikelihood
	}
	return ports.ErrorDefLeastSquares
}

// Method returns the resolved statistical method.
func (t *Template) Method() string { return t.method }

// SetMask replaces the active-bin mask.
func (t *Template) SetMask(mask []bool) error { return t.setMask(mask, t.hist.Len()) }

// N returns a copy of the observed histogram.
func (t *Template) N() *domain.Histogram { return t.hist.Clone() }

// SetN replaces the observed histogram, preserving the binning.
func (t *Template) SetN(hist *domain.Histogram) error {
	if hist == nil {
		return domain.NewConfigError("n", "histogram must not be nil")
	}
	if !t.hist.SameBinning(hist) {
		return domain.NewShapeError("n", t.hist.Shape(), hist.Shape())
	}
	t.hist = hist.Clone()
	return nil
}

// Eval combines the component predictions per bin and applies the
// selected statistic to the observed counts.
func (t *Template) Eval(params []float64) (float64, error) {
	if err := t.checkArity(params); err != nil {
		return 0, err
	}
	mu, muVar, err := t.predict(params)
	if err != nil {
		return 0, err
	}
	var kernel func(n, mu, muVar float64) float64
	switch t.method {
	case MethodJSC:
		kernel = stats.TemplateChi2JSC
	case MethodASY:
		kernel = stats.TemplateNLLASY
	default:
		kernel = stats.TemplateChi2DA
	}
	var total float64
	for i := range mu {
		if !t.active(i) {
			continue
		}
		s := t.hist.Scale(i)
		total += kernel(t.hist.Count(i)*s, mu[i]*s, muVar[i]*s*s)
	}
	return total, nil
}

// Pulls returns per-bin standardized residuals using the combined
// data-plus-template variance, NaN at masked bins.
func (t *Template) Pulls(params []float64) ([]float64, error) {
	if err := t.checkArity(params); err != nil {
		return nil, err
	}
	mu, muVar, err := t.predict(params)
	if err != nil {
		return nil, err
	}
	pulls := make([]float64, t.hist.Len())
	for i := range pulls {
		if !t.active(i) {
			pulls[i] = math.NaN()
			continue
		}
		s := t.hist.Scale(i)
		muEff := mu[i] * s
		varEff := muEff + muVar[i]*s*s
		pulls[i] = (t.hist.Count(i)*s - muEff) / math.Sqrt(varEff)
	}
	return pulls, nil
}

// predict accumulates per-bin expected counts and their Monte-Carlo
// variances over all components.
func (t *Template) predict(params []float64) (mu, muVar []float64, err error) {
	nbins := t.hist.Len()
	mu = make([]float64, nbins)
	muVar = make([]float64, nbins)
	for _, comp := range t.comps {
		sub := params[comp.lo:comp.hi]
		if comp.isModel {
			m := 1
			for _, d := range t.gridShape {
				m *= d
			}
			out := comp.model.EvalAt(t.grid, sub)
			if len(out) != m {
				return nil, nil, fmt.Errorf(
					"expected model to return an array of shape %s, but it returns an array of shape %s: %w",
					domain.FormatShape([]int{m}), domain.FormatShape([]int{len(out)}), domain.ErrShape)
			}
			for i, d := range diffND(out, t.gridShape) {
				mu[i] += d
			}
			continue
		}
		yield := sub[0]
		for i := 0; i < nbins; i++ {
			mu[i] += yield * comp.frac[i]
			muVar[i] += yield * yield * comp.relVar[i]
		}
	}
	return mu, muVar, nil
}

// Visualize fails explicitly for multi-dimensional histograms.
func (t *Template) Visualize(params []float64) error {
	if len(t.edges) > 1 {
		return domain.NewConfigError("visualize",
			"not implemented for multi-dimensional data (%d binned axes)", len(t.edges))
	}
	return nil
}
