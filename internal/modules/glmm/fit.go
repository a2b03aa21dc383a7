package glmm

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

// FitConfig carries every solver knob explicitly; nothing reads ambient
// process state. Seed perturbs the variance-profile start point so reruns are
// reproducible for a fixed value.
type FitConfig struct {
	MaxIRLS    int
	MaxProfile int
	Tol        float64
	Seed       int64
}

func (c FitConfig) withDefaults() FitConfig {
	if c.MaxIRLS <= 0 {
		c.MaxIRLS = 50
	}
	if c.MaxProfile <= 0 {
		c.MaxProfile = 400
	}
	if c.Tol <= 0 {
		c.Tol = 1e-8
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// FitResult is one fitted configuration. It stays read-only after Fit
// returns; comparison and prediction only consume it.
type FitResult struct {
	Spec      ModelSpec
	Converged bool
	Message   string

	NObs   int
	NFixed int

	Cols []string
	Coef []float64

	ClassVariance   float64
	StudentVariance float64
	ClassEffects    map[string]float64
	StudentEffects  map[string]float64

	Deviance float64
	AIC      float64
	BIC      float64

	enc Encoder
}

// Fit estimates the binomial logit mixed model on one design: a penalized
// IRLS inner loop finds the joint (fixed, random) mode for candidate variance
// components, the Laplace-approximate deviance scores each candidate, and
// Nelder-Mead profiles the two log-variances. Non-convergence is reported on
// the result, never raised as an error; the error return covers only
// structurally unusable designs.
func Fit(ctx context.Context, d *Design, cfg FitConfig, log *logger.Logger) (*FitResult, error) {
	if d == nil || len(d.Y) == 0 {
		return nil, fmt.Errorf("glmm: empty design")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	n := len(d.Y)
	p := len(d.Enc.cols)
	state := newPirlsState(d, cfg)

	objective := func(theta []float64) float64 {
		varC := math.Exp(clamp(theta[0], -12, 6))
		varS := math.Exp(clamp(theta[1], -12, 6))
		sol, ok := state.solve(varC, varS)
		if !ok {
			return math.Inf(1)
		}
		return sol.deviance
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	x0 := []float64{-1 + 0.1*(rng.Float64()-0.5), -1 + 0.1*(rng.Float64()-0.5)}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{
		FuncEvaluations: cfg.MaxProfile,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Iterations: 30,
		},
	}

	converged := true
	message := ""
	best := x0
	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if res != nil && len(res.X) == 2 && !math.IsInf(res.F, 0) && !math.IsNaN(res.F) {
		best = res.X
	}
	switch {
	case err != nil:
		converged = false
		message = fmt.Sprintf("variance profiling failed: %v", err)
	case res.Status != optimize.FunctionConvergence && res.Status != optimize.MethodConverge:
		converged = false
		message = fmt.Sprintf("variance profiling stopped early: %v", res.Status)
	}

	varC := math.Exp(clamp(best[0], -12, 6))
	varS := math.Exp(clamp(best[1], -12, 6))
	sol, ok := state.solve(varC, varS)
	if !ok {
		converged = false
		if message == "" {
			message = fmt.Sprintf("inner IRLS exceeded %d iterations", cfg.MaxIRLS)
		}
		sol = state.last
		if sol == nil {
			return nil, fmt.Errorf("glmm: model %s produced no usable fit", d.Spec.Name)
		}
	}

	if log != nil && !converged {
		log.Warn("glmm fit did not converge", "model", d.Spec.Name, "detail", message)
	}

	k := float64(p + 2) // fixed effects plus two variance components
	out := &FitResult{
		Spec:            d.Spec,
		Converged:       converged,
		Message:         message,
		NObs:            n,
		NFixed:          p,
		Cols:            append([]string(nil), d.Enc.cols...),
		Coef:            append([]float64(nil), sol.coef[:p]...),
		ClassVariance:   varC,
		StudentVariance: varS,
		ClassEffects:    make(map[string]float64, len(d.ClassLevels)),
		StudentEffects:  make(map[string]float64, len(d.StudentLevels)),
		Deviance:        sol.deviance,
		AIC:             sol.deviance + 2*k,
		BIC:             sol.deviance + k*math.Log(float64(n)),
		enc:             d.Enc,
	}
	for i, lvl := range d.ClassLevels {
		out.ClassEffects[lvl] = sol.coef[p+i]
	}
	qc := len(d.ClassLevels)
	for i, lvl := range d.StudentLevels {
		out.StudentEffects[lvl] = sol.coef[p+qc+i]
	}
	return out, nil
}

type pirlsSolution struct {
	coef     []float64
	deviance float64
}

// pirlsState solves the penalized weighted least-squares system for one
// design at a given pair of variance components. It is reused across profile
// evaluations to warm-start from the previous mode.
type pirlsState struct {
	d   *Design
	cfg FitConfig

	p, qc, qs int
	last      *pirlsSolution
	warm      []float64
}

func newPirlsState(d *Design, cfg FitConfig) *pirlsState {
	return &pirlsState{
		d:   d,
		cfg: cfg,
		p:   len(d.Enc.cols),
		qc:  len(d.ClassLevels),
		qs:  len(d.StudentLevels),
	}
}

func (s *pirlsState) solve(varC, varS float64) (*pirlsSolution, bool) {
	n := len(s.d.Y)
	m := s.p + s.qc + s.qs

	coef := make([]float64, m)
	if s.warm != nil {
		copy(coef, s.warm)
	}

	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)

	var sol *pirlsSolution
	for iter := 0; iter < s.cfg.MaxIRLS; iter++ {
		s.linearPredictor(coef, eta)
		for i := 0; i < n; i++ {
			mu := sigmoid(eta[i])
			wi := mu * (1 - mu)
			if wi < 1e-10 {
				wi = 1e-10
			}
			w[i] = wi
			z[i] = eta[i] + (s.d.Y[i]-mu)/wi
		}

		next, ok := s.weightedSolve(w, z, varC, varS)
		if !ok {
			return nil, false
		}

		delta := 0.0
		for j := range next {
			if d := math.Abs(next[j] - coef[j]); d > delta {
				delta = d
			}
		}
		coef = next

		if delta < math.Max(s.cfg.Tol, 1e-10) {
			dev := s.laplaceDeviance(coef, varC, varS)
			if math.IsNaN(dev) || math.IsInf(dev, 0) {
				return nil, false
			}
			sol = &pirlsSolution{coef: coef, deviance: dev}
			s.last = sol
			s.warm = append([]float64(nil), coef...)
			return sol, true
		}
	}
	return nil, false
}

func (s *pirlsState) linearPredictor(coef []float64, eta []float64) {
	d := s.d
	for i := range d.Y {
		x := d.X.RawRowView(i)
		v := 0.0
		for j, xj := range x {
			v += xj * coef[j]
		}
		v += coef[s.p+d.ClassIdx[i]]
		v += coef[s.p+s.qc+d.StudentIdx[i]]
		eta[i] = v
	}
}

// weightedSolve assembles and solves the penalized normal equations
// [X Z]'W[X Z] + diag(0, 1/varC, 1/varS) over the joint coefficient vector.
func (s *pirlsState) weightedSolve(w, z []float64, varC, varS float64) ([]float64, bool) {
	d := s.d
	m := s.p + s.qc + s.qs

	a := mat.NewSymDense(m, nil)
	b := make([]float64, m)

	for i := range d.Y {
		x := d.X.RawRowView(i)
		wi := w[i]
		wz := wi * z[i]
		ci := s.p + d.ClassIdx[i]
		si := s.p + s.qc + d.StudentIdx[i]

		for j := 0; j < s.p; j++ {
			if x[j] == 0 {
				continue
			}
			wxj := wi * x[j]
			for k := j; k < s.p; k++ {
				a.SetSym(j, k, a.At(j, k)+wxj*x[k])
			}
			a.SetSym(j, ci, a.At(j, ci)+wxj)
			a.SetSym(j, si, a.At(j, si)+wxj)
			b[j] += wxj * z[i]
		}
		a.SetSym(ci, ci, a.At(ci, ci)+wi)
		a.SetSym(si, si, a.At(si, si)+wi)
		a.SetSym(ci, si, a.At(ci, si)+wi)
		b[ci] += wz
		b[si] += wz
	}

	for j := 0; j < s.qc; j++ {
		idx := s.p + j
		a.SetSym(idx, idx, a.At(idx, idx)+1/varC)
	}
	for j := 0; j < s.qs; j++ {
		idx := s.p + s.qc + j
		a.SetSym(idx, idx, a.At(idx, idx)+1/varS)
	}

	return cholSolve(a, b)
}

// laplaceDeviance evaluates -2 times the Laplace-approximate marginal log
// likelihood at the joint mode: binomial deviance, the quadratic random
// effect penalty, and the log determinant terms from integrating the random
// effects out.
func (s *pirlsState) laplaceDeviance(coef []float64, varC, varS float64) float64 {
	d := s.d
	n := len(d.Y)

	eta := make([]float64, n)
	s.linearPredictor(coef, eta)

	dev := 0.0
	for i := 0; i < n; i++ {
		mu := sigmoid(eta[i])
		mu = math.Min(math.Max(mu, 1e-12), 1-1e-12)
		if d.Y[i] >= 0.5 {
			dev += -2 * math.Log(mu)
		} else {
			dev += -2 * math.Log(1-mu)
		}
	}

	penalty := 0.0
	for j := 0; j < s.qc; j++ {
		u := coef[s.p+j]
		penalty += u * u / varC
	}
	for j := 0; j < s.qs; j++ {
		v := coef[s.p+s.qc+j]
		penalty += v * v / varS
	}

	q := s.qc + s.qs
	uBlock := mat.NewSymDense(q, nil)
	for i := 0; i < n; i++ {
		mu := sigmoid(eta[i])
		wi := math.Max(mu*(1-mu), 1e-10)
		ci := d.ClassIdx[i]
		si := s.qc + d.StudentIdx[i]
		uBlock.SetSym(ci, ci, uBlock.At(ci, ci)+wi)
		uBlock.SetSym(si, si, uBlock.At(si, si)+wi)
		uBlock.SetSym(ci, si, uBlock.At(ci, si)+wi)
	}
	for j := 0; j < s.qc; j++ {
		uBlock.SetSym(j, j, uBlock.At(j, j)+1/varC)
	}
	for j := 0; j < s.qs; j++ {
		idx := s.qc + j
		uBlock.SetSym(idx, idx, uBlock.At(idx, idx)+1/varS)
	}

	var ch mat.Cholesky
	if !ch.Factorize(uBlock) {
		return math.Inf(1)
	}
	logDetH := ch.LogDet()
	logDetLambda := float64(s.qc)*math.Log(varC) + float64(s.qs)*math.Log(varS)

	return dev + penalty + logDetH + logDetLambda
}

func cholSolve(a *mat.SymDense, b []float64) ([]float64, bool) {
	m := len(b)
	bv := mat.NewVecDense(m, append([]float64(nil), b...))
	var out mat.VecDense

	var ch mat.Cholesky
	ridge := 1e-10
	for attempt := 0; attempt < 4; attempt++ {
		if ch.Factorize(a) {
			if err := ch.SolveVecTo(&out, bv); err == nil {
				return out.RawVector().Data, true
			}
		}
		for j := 0; j < m; j++ {
			a.SetSym(j, j, a.At(j, j)+ridge*(1+a.At(j, j)))
		}
		ridge *= 100
	}
	return nil, false
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
