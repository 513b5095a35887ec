package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MLPParams controls FitMLP.
type MLPParams struct {
	Hidden       []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	L2           float64
	// Training stops once the epoch loss has failed to improve by Tol for
	// more than NoChange consecutive epochs.
	Tol      float64
	NoChange int
	Seed     uint64
}

func DefaultMLPParams() MLPParams {
	return MLPParams{
		Hidden:       []int{100, 50},
		Epochs:       200,
		BatchSize:    200,
		LearningRate: 0.001,
		L2:           1e-4,
		Tol:          1e-4,
		NoChange:     10,
		Seed:         42,
	}
}

// Layer is a dense layer. Weights are In x Out, row-major.
type Layer struct {
	In      int       `msgpack:"in"`
	Out     int       `msgpack:"out"`
	Weights []float64 `msgpack:"w"`
	Bias    []float64 `msgpack:"b"`
}

func (l *Layer) weights() *mat.Dense { return mat.NewDense(l.In, l.Out, l.Weights) }

// forward computes A·W + b, applying ReLU when relu is set.
func (l *Layer) forward(a mat.Matrix, relu bool) *mat.Dense {
	rows, _ := a.Dims()
	z := mat.NewDense(rows, l.Out, nil)
	z.Mul(a, l.weights())
	for i := range rows {
		row := z.RawRowView(i)
		floats.Add(row, l.Bias)
		if relu {
			for j, v := range row {
				row[j] = max(0, v)
			}
		}
	}
	return z
}

// MLP is a feed-forward regressor with ReLU hidden layers and an identity
// output layer.
type MLP struct {
	Layers     []Layer   `msgpack:"layers"`
	LossCurve  []float64 `msgpack:"loss_curve"`
	Iterations int       `msgpack:"iterations"`
}

func (m *MLP) Features() int { return m.Layers[0].In }

func (m *MLP) Outputs() int { return m.Layers[len(m.Layers)-1].Out }

// Predict runs x through the network.
func (m *MLP) Predict(x []float64) ([]float64, error) {
	if err := checkWidth("mlp", m.Features(), x); err != nil {
		return nil, err
	}
	a := mat.NewDense(1, len(x), slices.Clone(x))
	for i := range m.Layers {
		a = m.Layers[i].forward(a, i < len(m.Layers)-1)
	}
	return slices.Clone(a.RawRowView(0)), nil
}

func (m *MLP) activations(x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, len(m.Layers)+1)
	acts[0] = x
	for i := range m.Layers {
		acts[i+1] = m.Layers[i].forward(acts[i], i < len(m.Layers)-1)
	}
	return acts
}

// Validate checks internal consistency after decoding.
func (m *MLP) Validate() error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("mlp has no layers")
	}
	for i, l := range m.Layers {
		if l.In <= 0 || l.Out <= 0 {
			return fmt.Errorf("mlp layer %d has shape %dx%d", i, l.In, l.Out)
		}
		if len(l.Weights) != l.In*l.Out || len(l.Bias) != l.Out {
			return fmt.Errorf("mlp layer %d has %d weights and %d biases for shape %dx%d",
				i, len(l.Weights), len(l.Bias), l.In, l.Out)
		}
		if i > 0 && m.Layers[i-1].Out != l.In {
			return fmt.Errorf("mlp layer %d expects %d inputs but layer %d yields %d",
				i, l.In, i-1, m.Layers[i-1].Out)
		}
		if !finite(l.Weights) || !finite(l.Bias) {
			return fmt.Errorf("mlp layer %d has non-finite parameters", i)
		}
	}
	return nil
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FitMLP trains a regressor mapping rows of X onto rows of Y with
// mini-batch Adam and L2 regularisation.
func FitMLP(ctx context.Context, X, Y [][]float64, p MLPParams) (*MLP, error) {
	in, err := checkMatrix("mlp", X)
	if err != nil {
		return nil, err
	}
	if len(Y) != len(X) {
		return nil, &FitError{Model: "mlp", Reason: fmt.Sprintf("%d samples but %d targets", len(X), len(Y))}
	}
	out, err := checkMatrix("mlp", Y)
	if err != nil {
		return nil, err
	}
	if p.Epochs < 1 || p.LearningRate <= 0 {
		return nil, &FitError{Model: "mlp", Reason: "epochs and learning rate must be positive"}
	}
	for _, h := range p.Hidden {
		if h < 1 {
			return nil, &FitError{Model: "mlp", Reason: fmt.Sprintf("hidden layer width %d", h)}
		}
	}

	rng := rand.New(rand.NewPCG(p.Seed, 0))
	m := &MLP{}
	sizes := append(append([]int{in}, p.Hidden...), out)
	for i := 0; i < len(sizes)-1; i++ {
		m.Layers = append(m.Layers, glorot(sizes[i], sizes[i+1], rng))
	}

	n := len(X)
	batch := p.BatchSize
	if batch <= 0 || batch > n {
		batch = n
	}

	opt := newAdam(m, p.LearningRate)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	best := math.Inf(1)
	stale := 0
	for epoch := range p.Epochs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		total := 0.0
		for start := 0; start < n; start += batch {
			idx := order[start:min(start+batch, n)]
			xb := mat.NewDense(len(idx), in, nil)
			yb := mat.NewDense(len(idx), out, nil)
			for r, i := range idx {
				xb.SetRow(r, X[i])
				yb.SetRow(r, Y[i])
			}
			loss := m.step(xb, yb, p.L2, opt)
			total += loss * float64(len(idx))
		}
		loss := total / float64(n)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, &FitError{Model: "mlp", Reason: fmt.Sprintf("loss diverged at epoch %d", epoch+1)}
		}
		m.LossCurve = append(m.LossCurve, loss)
		m.Iterations = epoch + 1

		if loss > best-p.Tol {
			stale++
		} else {
			stale = 0
		}
		best = min(best, loss)
		if p.NoChange > 0 && stale > p.NoChange {
			break
		}
	}
	return m, nil
}

func glorot(in, out int, rng *rand.Rand) Layer {
	bound := math.Sqrt(6 / float64(in+out))
	l := Layer{In: in, Out: out, Weights: make([]float64, in*out), Bias: make([]float64, out)}
	for i := range l.Weights {
		l.Weights[i] = (2*rng.Float64() - 1) * bound
	}
	for i := range l.Bias {
		l.Bias[i] = (2*rng.Float64() - 1) * bound
	}
	return l
}

// step runs one forward/backward pass over a batch, applies an Adam update
// and returns the batch loss (half mean squared error plus the L2 penalty).
func (m *MLP) step(xb, yb *mat.Dense, alpha float64, opt *adam) float64 {
	acts := m.activations(xb)
	rows, cols := yb.Dims()
	b := float64(rows)

	delta := mat.NewDense(rows, cols, nil)
	delta.Sub(acts[len(acts)-1], yb)

	sq := 0.0
	for i := range rows {
		for _, v := range delta.RawRowView(i) {
			sq += v * v
		}
	}
	penalty := 0.0
	for _, l := range m.Layers {
		penalty += floats.Dot(l.Weights, l.Weights)
	}
	loss := sq/float64(rows*cols)/2 + alpha*penalty/(2*b)

	grads := make([][]float64, 0, 2*len(m.Layers))
	for k := len(m.Layers) - 1; k >= 0; k-- {
		l := &m.Layers[k]

		gw := mat.NewDense(l.In, l.Out, nil)
		gw.Mul(acts[k].T(), delta)
		gw.Add(gw, scaled(alpha, l.weights()))
		gw.Scale(1/b, gw)

		gb := make([]float64, l.Out)
		for i := range rows {
			floats.Add(gb, delta.RawRowView(i))
		}
		floats.Scale(1/b, gb)

		grads = append(grads, gb, gw.RawMatrix().Data)

		if k > 0 {
			next := mat.NewDense(rows, l.In, nil)
			next.Mul(delta, l.weights().T())
			// ReLU derivative
			for i := range rows {
				row := next.RawRowView(i)
				act := acts[k].RawRowView(i)
				for j := range row {
					if act[j] <= 0 {
						row[j] = 0
					}
				}
			}
			delta = next
		}
	}
	slices.Reverse(grads)
	opt.update(grads)
	return loss
}

func scaled(f float64, a mat.Matrix) *mat.Dense {
	var d mat.Dense
	d.Scale(f, a)
	return &d
}

type adam struct {
	params [][]float64
	m, v   [][]float64
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
}

// newAdam tracks the parameters of m in the order weights, bias per layer.
func newAdam(m *MLP, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for i := range m.Layers {
		l := &m.Layers[i]
		a.params = append(a.params, l.Weights, l.Bias)
	}
	for _, p := range a.params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(grads [][]float64) {
	a.t++
	t := float64(a.t)
	rate := a.lr * math.Sqrt(1-math.Pow(a.beta2, t)) / (1 - math.Pow(a.beta1, t))
	for i, p := range a.params {
		g, m, v := grads[i], a.m[i], a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			p[j] -= rate * m[j] / (math.Sqrt(v[j]) + a.eps)
		}
	}
}
