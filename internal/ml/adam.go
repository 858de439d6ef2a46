package ml

import (
	"math"
	"math/rand/v2"
)

// param is a trainable tensor stored row-major with its gradient and Adam moments
type param struct {
	name string
	rows int
	cols int
	w    []float64
	g    []float64
	m    []float64
	v    []float64
}

func newParam(name string, rows, cols int) *param {
	n := rows * cols
	return &param{
		name: name,
		rows: rows,
		cols: cols,
		w:    make([]float64, n),
		g:    make([]float64, n),
		m:    make([]float64, n),
		v:    make([]float64, n),
	}
}

// row returns the weights of output unit r
func (p *param) row(r int) []float64 {
	return p.w[r*p.cols : (r+1)*p.cols]
}

// gradRow returns the gradient slice of output unit r
func (p *param) gradRow(r int) []float64 {
	return p.g[r*p.cols : (r+1)*p.cols]
}

// glorotUniform fills w from U(-limit, limit), limit = sqrt(6/(fanIn+fanOut))
func (p *param) glorotUniform(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (2*rng.Float64() - 1) * limit
	}
}

func (p *param) zeroGrad() {
	clear(p.g)
}

// adam implements the Adam optimizer with bias-corrected moments
type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

func newAdam(lr float64) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
	}
}

func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, p := range params {
		for k, g := range p.g {
			p.m[k] = a.beta1*p.m[k] + (1-a.beta1)*g
			p.v[k] = a.beta2*p.v[k] + (1-a.beta2)*g*g
			mHat := p.m[k] / c1
			vHat := p.v[k] / c2
			p.w[k] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
