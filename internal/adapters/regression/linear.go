package regression

// linear.go: regresión lineal con regularización L2 sobre el target estandarizado,
// minimizada con L-BFGS de gonum.
//
// epochs se traduce en iteraciones mayores: max(epochs×50, 100). El entrenamiento
// para antes si la pérdida mejora menos de tol durante noChangeIters iteraciones
// seguidas.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	itersPerEpoch = 50
	minIters      = 100
	noChangeIters = 10
	defaultL2     = 1e-4
	defaultTol    = 1e-6
)

// ErrNotFitted se devuelve al predecir con un modelo sin entrenar.
var ErrNotFitted = errors.New("model is not fitted")

// Linear implementa ports.Predictor.
type Linear struct {
	maxIter int
	l2      float64
	tol     float64

	weights []float64
	bias    float64
	yMean   float64
	yStd    float64
	iters   int
	fitted  bool
}

// New crea un modelo sin entrenar para el número de epochs dado.
func New(epochs int) *Linear {
	return &Linear{
		maxIter: max(epochs*itersPerEpoch, minIters),
		l2:      defaultL2,
		tol:     defaultTol,
	}
}

// Iterations devuelve cuántas iteraciones hizo el último Fit.
func (m *Linear) Iterations() int { return m.iters }

// MaxIterations devuelve el tope de iteraciones.
func (m *Linear) MaxIterations() int { return m.maxIter }

// Fit entrena el modelo. ctx se comprueba en cada iteración del optimizador.
func (m *Linear) Fit(ctx context.Context, X [][]float64, y []float64) error {
	dim, err := checkShape(X)
	if err != nil {
		return fmt.Errorf("regression.Fit: %w", err)
	}
	if len(y) != len(X) {
		return fmt.Errorf("regression.Fit: %d rows but %d labels", len(X), len(y))
	}

	yMean, yStd := stat.PopMeanStdDev(y, nil)
	if yStd == 0 {
		yStd = 1
	}
	z := make([]float64, len(y))
	for i, v := range y {
		z[i] = (v - yMean) / yStd
	}

	obj := newObjective(X, z, dim, m.l2)
	problem := optimize.Problem{Func: obj.loss, Grad: obj.grad}
	settings := &optimize.Settings{
		MajorIterations: m.maxIter,
		Converger:       &optimize.FunctionConverge{Absolute: m.tol, Iterations: noChangeIters},
		Recorder:        ctxRecorder{ctx},
	}

	// x = [w_0 .. w_{dim-1}, b], arranca en cero
	res, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if res == nil {
		return fmt.Errorf("regression.Fit: optimize: %w", err)
	}
	if err != nil {
		// el line search puede fallar ya pegado al óptimo: vale el mejor punto si es finito
		if !finite(res.X) {
			return fmt.Errorf("regression.Fit: optimize (%v): %w", res.Status, err)
		}
		slog.Debug("optimizer stopped early", "status", res.Status, "iters", res.Stats.MajorIterations, "err", err)
	}

	m.weights = append([]float64(nil), res.X[:dim]...)
	m.bias = res.X[dim]
	m.yMean, m.yStd = yMean, yStd
	m.iters = res.Stats.MajorIterations
	m.fitted = true
	return nil
}

// Predict devuelve una predicción por fila, en la escala original del target.
// Solo lee el estado entrenado, así que es seguro en concurrencia.
func (m *Linear) Predict(ctx context.Context, X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(m.weights) {
			return nil, fmt.Errorf("regression.Predict: row %d has %d features, want %d", i, len(row), len(m.weights))
		}
		out[i] = (floats.Dot(m.weights, row)+m.bias)*m.yStd + m.yMean
	}
	return out, nil
}

// --- objetivo ---

// objective es ½·mean((Xw + b - z)²) + ½·l2·|w|².
type objective struct {
	X   *mat.Dense
	z   *mat.VecDense
	r   *mat.VecDense // residuo, reutilizado entre evaluaciones
	dim int
	n   float64
	l2  float64
}

func newObjective(X [][]float64, z []float64, dim int, l2 float64) *objective {
	flat := make([]float64, 0, len(X)*dim)
	for _, row := range X {
		flat = append(flat, row...)
	}
	return &objective{
		X:   mat.NewDense(len(X), dim, flat),
		z:   mat.NewVecDense(len(z), z),
		r:   mat.NewVecDense(len(z), nil),
		dim: dim,
		n:   float64(len(z)),
		l2:  l2,
	}
}

func (o *objective) residual(x []float64) {
	o.r.MulVec(o.X, mat.NewVecDense(o.dim, x[:o.dim]))
	o.r.SubVec(o.r, o.z)
	floats.AddConst(x[o.dim], o.r.RawVector().Data)
}

func (o *objective) loss(x []float64) float64 {
	o.residual(x)
	w := x[:o.dim]
	return mat.Dot(o.r, o.r)/(2*o.n) + o.l2/2*floats.Dot(w, w)
}

func (o *objective) grad(grad, x []float64) {
	o.residual(x)
	gw := mat.NewVecDense(o.dim, grad[:o.dim])
	gw.MulVec(o.X.T(), o.r)
	gw.ScaleVec(1/o.n, gw)
	floats.AddScaled(grad[:o.dim], o.l2, x[:o.dim])
	grad[o.dim] = floats.Sum(o.r.RawVector().Data) / o.n
}

// ctxRecorder corta la optimización cuando ctx se cancela.
type ctxRecorder struct{ ctx context.Context }

func (r ctxRecorder) Init() error { return r.ctx.Err() }

func (r ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}

// --- helpers internos ---

// finite indica si la solución es utilizable.
func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return len(xs) > 0
}

func checkShape(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("no samples")
	}
	dim := len(X[0])
	if dim == 0 {
		return 0, errors.New("samples have no features")
	}
	for i, row := range X {
		if len(row) != dim {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), dim)
		}
	}
	return dim, nil
}
