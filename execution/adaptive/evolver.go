package adaptive

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Cost evolver defaults.
const (
	DefaultStateNodes  = 101
	DefaultStateWidth  = 5.0
	DefaultMinSubsteps = 20
)

// CostEvolver solves for the non-dimensional cost function c(s, ϑ) = e^{s} g(s, ϑ)
// in remaining non-dimensional time ϑ = τ/θ. With D = θβ²/2 and urgency μ,
//
//	g_ϑ = μ² + (D − s) g − g² + (2D − s) g_s + D g_ss
//
// and the optimal trade rate is x·g/θ. The equation is split into a Riccati
// reaction step, integrated exactly, and an explicit upwind
// advection-diffusion step with zero-flux boundaries.
type CostEvolver struct {
	Process OrnsteinUhlenbeck
	// StateNodes is the number of s grid nodes; made odd so s = 0 is a node.
	StateNodes int
	// StateWidth is the grid half-width in stationary standard deviations.
	StateWidth float64
	// MinSubsteps is the minimum number of splitting steps per time node.
	MinSubsteps int
	Logger      *zap.Logger
}

// NewCostEvolver builds an evolver with default grid settings.
func NewCostEvolver(process OrnsteinUhlenbeck) (*CostEvolver, error) {
	if err := process.Validate(); err != nil {
		return nil, fmt.Errorf("NewCostEvolver: %w", err)
	}
	return &CostEvolver{
		Process:     process,
		StateNodes:  DefaultStateNodes,
		StateWidth:  DefaultStateWidth,
		MinSubsteps: DefaultMinSubsteps,
	}, nil
}

// CostSurface is g(s, ϑ_k) on the state grid at each requested remaining time,
// plus the running integral ∫_{ϑ_0}^{ϑ_k} g dϑ.
type CostSurface struct {
	States      []float64
	Remaining   []float64
	Sensitivity [][]float64
	Integral    [][]float64
}

// Solve evolves g from remaining[0], where it is set to the static value
// μ coth(μϑ), through the ascending remaining times. The state grid spans
// every value in cover.
func (e *CostEvolver) Solve(urgency float64, remaining, cover []float64) (*CostSurface, error) {
	if err := e.Process.Validate(); err != nil {
		return nil, fmt.Errorf("CostEvolver.Solve: %w", err)
	}
	if !(urgency >= 0) || math.IsInf(urgency, 0) {
		return nil, fmt.Errorf("CostEvolver.Solve: urgency must be non-negative, got %v", urgency)
	}
	if len(remaining) == 0 || !(remaining[0] > 0) {
		return nil, fmt.Errorf("CostEvolver.Solve: remaining times must start positive")
	}
	for k := 1; k < len(remaining); k++ {
		if !(remaining[k] > remaining[k-1]) {
			return nil, fmt.Errorf("CostEvolver.Solve: remaining times must increase at index %d", k)
		}
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	D := e.Process.Diffusion()
	states := e.stateGrid(D, cover)
	ds := states[1] - states[0]
	n := len(states)

	g := make([]float64, n)
	static := staticSensitivity(urgency, remaining[0])
	for i := range g {
		g[i] = static
	}
	integral := make([]float64, n)

	surface := &CostSurface{
		States:      states,
		Remaining:   append([]float64(nil), remaining...),
		Sensitivity: [][]float64{append([]float64(nil), g...)},
		Integral:    [][]float64{append([]float64(nil), integral...)},
	}

	// Explicit stability: h (|b|/ds + 2D/ds²) ≤ 1.
	maxAdvection := math.Max(math.Abs(2*D-states[0]), math.Abs(2*D-states[n-1]))
	rate := maxAdvection/ds + 2*D/(ds*ds)
	minSubsteps := e.MinSubsteps
	if minSubsteps < 1 {
		minSubsteps = 1
	}

	next := make([]float64, n)
	totalSubsteps := 0
	for k := 1; k < len(remaining); k++ {
		span := remaining[k] - remaining[k-1]
		steps := minSubsteps
		if rate > 0 {
			steps = max(steps, int(math.Ceil(span*rate/0.9)))
		}
		h := span / float64(steps)
		for range steps {
			for i, s := range states {
				var area float64
				g[i], area = riccatiStep(urgency, D-s, g[i], h)
				integral[i] += area
			}
			advectDiffuse(next, g, states, D, ds, h)
			g, next = next, g
		}
		totalSubsteps += steps
		surface.Sensitivity = append(surface.Sensitivity, append([]float64(nil), g...))
		surface.Integral = append(surface.Integral, append([]float64(nil), integral...))
	}

	logger.Debug("cost surface solved",
		zap.Int("state_nodes", n),
		zap.Float64("state_half_width", states[n-1]),
		zap.Int("time_nodes", len(remaining)),
		zap.Int("substeps", totalSubsteps),
		zap.Float64("diffusion", D))
	return surface, nil
}

func (e *CostEvolver) stateGrid(D float64, cover []float64) []float64 {
	width := e.StateWidth
	if width <= 0 {
		width = DefaultStateWidth
	}
	half := math.Max(width*math.Sqrt(D), 1)
	for _, s := range cover {
		half = math.Max(half, 1.25*math.Abs(s))
	}
	nodes := e.StateNodes
	if nodes < 3 {
		nodes = DefaultStateNodes
	}
	if nodes%2 == 0 {
		nodes++
	}
	states := make([]float64, nodes)
	floats.Span(states, -half, half)
	states[nodes/2] = 0
	return states
}

// staticSensitivity is g for a constant market state at s = 0, μ coth(μϑ).
func staticSensitivity(urgency, remaining float64) float64 {
	if urgency*remaining < 1e-12 {
		return 1 / remaining
	}
	return urgency / math.Tanh(urgency*remaining)
}

// riccatiStep integrates g' = μ² + a g − g² over h from g0 and returns the
// new value with ∫g over the step.
func riccatiStep(urgency, a, g0, h float64) (float64, float64) {
	disc := math.Sqrt(a*a + 4*urgency*urgency)
	if disc < 1e-14 {
		// Double root r = a/2.
		r := 0.5 * a
		u := g0 - r
		return r + u/(1+u*h), r*h + math.Log1p(u*h)
	}
	upper := 0.5 * (a + disc)
	lower := 0.5 * (a - disc)
	q := (g0 - upper) / (g0 - lower)
	decay := q * math.Exp(-disc*h)
	return (upper - lower*decay) / (1 - decay), upper*h + math.Log((1-decay)/(1-q))
}

// advectDiffuse applies one explicit step of g_ϑ = b g_s + D g_ss with
// b = 2D − s, upwinded, and zero-flux boundaries.
func advectDiffuse(dst, g, states []float64, D, ds, h float64) {
	n := len(g)
	at := func(i int) float64 {
		return g[min(max(i, 0), n-1)]
	}
	for i, s := range states {
		b := 2*D - s
		var slope float64
		if b > 0 {
			slope = (at(i+1) - at(i)) / ds
		} else {
			slope = (at(i) - at(i-1)) / ds
		}
		curvature := (at(i+1) - 2*at(i) + at(i-1)) / (ds * ds)
		dst[i] = g[i] + h*(b*slope+D*curvature)
	}
}

// SensitivityAt interpolates g(s, ϑ_k).
func (c *CostSurface) SensitivityAt(k int, s float64) (float64, error) {
	return c.predict(c.Sensitivity, k, s)
}

// IntegralAt interpolates ∫_{ϑ_0}^{ϑ_k} g(s, ϑ) dϑ.
func (c *CostSurface) IntegralAt(k int, s float64) (float64, error) {
	return c.predict(c.Integral, k, s)
}

// CostAt returns the non-dimensional cost c = e^{s} g(s, ϑ_k).
func (c *CostSurface) CostAt(k int, s float64) (float64, error) {
	g, err := c.SensitivityAt(k, s)
	if err != nil {
		return 0, err
	}
	return math.Exp(s) * g, nil
}

func (c *CostSurface) predict(values [][]float64, k int, s float64) (float64, error) {
	if k < 0 || k >= len(values) {
		return 0, fmt.Errorf("CostSurface: time index %d out of range [0, %d)", k, len(values))
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(c.States, values[k]); err != nil {
		return 0, fmt.Errorf("CostSurface: %w", err)
	}
	return pl.Predict(clamp(s, c.States[0], c.States[len(c.States)-1])), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
