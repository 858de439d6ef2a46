package ml

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"plant-advisor/internal/models"
	"plant-advisor/internal/sequence"
)

// LSTMRegressor is LSTM -> Dropout -> Dense(ReLU) -> Dense(1), trained on
// mean squared error with Adam. Gate order in the stacked LSTM weights is
// input, forget, cell, output.
type LSTMRegressor struct {
	cfg TrainConfig
	rng *rand.Rand

	// LSTM
	wx *param // 4H x D
	wh *param // 4H x H
	b  *param // 4H

	// Head
	w1 *param // Dense x H
	b1 *param // Dense
	w2 *param // 1 x Dense
	b2 *param // 1

	opt     *adam
	trained bool
}

// lstmStep caches the activations of one time step for backpropagation
type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tanhC, h     []float64
}

// trace is the full forward pass of one window
type trace struct {
	steps   []lstmStep
	mask    []float64 // nil when dropout is off
	dropped []float64
	z1, a1  []float64
	out     float64
}

var _ Model = (*LSTMRegressor)(nil)

// NewLSTMRegressor creates an untrained network with Glorot-uniform weights.
func NewLSTMRegressor(cfg TrainConfig) *LSTMRegressor {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5deece66d))
	h, d, dn := cfg.LSTMUnits, cfg.NumFeatures, cfg.DenseUnits

	r := &LSTMRegressor{
		cfg: cfg,
		rng: rng,
		wx:  newParam("lstm_kernel", 4*h, d),
		wh:  newParam("lstm_recurrent", 4*h, h),
		b:   newParam("lstm_bias", 4*h, 1),
		w1:  newParam("dense_kernel", dn, h),
		b1:  newParam("dense_bias", dn, 1),
		w2:  newParam("output_kernel", 1, dn),
		b2:  newParam("output_bias", 1, 1),
		opt: newAdam(cfg.LearningRate),
	}

	r.wx.glorotUniform(rng, d, 4*h)
	r.wh.glorotUniform(rng, h, 4*h)
	r.w1.glorotUniform(rng, h, dn)
	r.w2.glorotUniform(rng, dn, 1)
	for k := h; k < 2*h; k++ {
		r.b.w[k] = 1 // forget gate
	}

	return r
}

func (r *LSTMRegressor) params() []*param {
	return []*param{r.wx, r.wh, r.b, r.w1, r.b1, r.w2, r.b2}
}

// Fit trains for the configured number of epochs. Training samples are
// reshuffled every epoch; validation loss is computed without dropout.
func (r *LSTMRegressor) Fit(ctx context.Context, train, validation sequence.Set) (models.TrainingHistory, error) {
	history := models.TrainingHistory{HasValidation: validation.Len() > 0}

	if train.Len() == 0 {
		return history, ErrEmptyTrainingSet
	}
	if err := r.checkShapes(train.Windows); err != nil {
		return history, err
	}
	if err := r.checkShapes(validation.Windows); err != nil {
		return history, err
	}

	batchSize := r.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	slog.Info("LSTM: starting training",
		"train", train.Len(),
		"validation", validation.Len(),
		"epochs", r.cfg.Epochs,
		"batch_size", batchSize,
		"units", r.cfg.LSTMUnits)

	for epoch := 1; epoch <= r.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, fmt.Errorf("training interrupted at epoch %d: %w", epoch, err)
		}

		order := r.rng.Perm(train.Len())
		var sumSq float64
		for start := 0; start < len(order); start += batchSize {
			end := min(start+batchSize, len(order))
			sumSq += r.trainBatch(train, order[start:end])
		}

		stats := models.EpochStats{
			Epoch: epoch,
			Loss:  sumSq / float64(train.Len()),
		}
		if history.HasValidation {
			stats.ValLoss = r.meanSquaredError(validation)
		}
		history.Epochs = append(history.Epochs, stats)

		slog.Info("LSTM: epoch finished",
			"epoch", epoch,
			"loss", stats.Loss,
			"val_loss", stats.ValLoss)
	}

	r.trained = true
	return history, nil
}

// trainBatch runs one optimizer step and returns the summed squared error
func (r *LSTMRegressor) trainBatch(set sequence.Set, batch []int) float64 {
	for _, p := range r.params() {
		p.zeroGrad()
	}

	var sumSq float64
	scale := 2 / float64(len(batch))
	for _, idx := range batch {
		tr := r.forward(set.Windows[idx], true)
		diff := tr.out - set.Targets[idx]
		sumSq += diff * diff
		r.backward(tr, scale*diff)
	}

	r.opt.step(r.params())
	return sumSq
}

func (r *LSTMRegressor) meanSquaredError(set sequence.Set) float64 {
	var sumSq float64
	for i, w := range set.Windows {
		diff := r.forward(w, false).out - set.Targets[i]
		sumSq += diff * diff
	}
	return sumSq / float64(set.Len())
}

// Predict returns one scaled score per window. Dropout is disabled.
func (r *LSTMRegressor) Predict(windows []*mat.Dense) ([]float64, error) {
	if !r.trained {
		return nil, ErrNotTrained
	}
	if err := r.checkShapes(windows); err != nil {
		return nil, err
	}

	out := make([]float64, len(windows))
	for i, w := range windows {
		out[i] = r.forward(w, false).out
	}
	return out, nil
}

func (r *LSTMRegressor) checkShapes(windows []*mat.Dense) error {
	for i, w := range windows {
		rows, cols := w.Dims()
		if rows != r.cfg.SeqLength || cols != r.cfg.NumFeatures {
			return fmt.Errorf("%w: window %d is %dx%d, want %dx%d",
				ErrShapeMismatch, i, rows, cols, r.cfg.SeqLength, r.cfg.NumFeatures)
		}
	}
	return nil
}

func (r *LSTMRegressor) forward(window *mat.Dense, training bool) *trace {
	h := r.cfg.LSTMUnits
	steps, _ := window.Dims()

	tr := &trace{steps: make([]lstmStep, steps)}
	hPrev := make([]float64, h)
	cPrev := make([]float64, h)

	z := make([]float64, 4*h)
	for t := 0; t < steps; t++ {
		x := window.RawRowView(t)
		for k := range z {
			z[k] = r.b.w[k] + floats.Dot(r.wx.row(k), x) + floats.Dot(r.wh.row(k), hPrev)
		}

		s := lstmStep{
			x:     x,
			hPrev: hPrev,
			cPrev: cPrev,
			i:     make([]float64, h),
			f:     make([]float64, h),
			g:     make([]float64, h),
			o:     make([]float64, h),
			c:     make([]float64, h),
			tanhC: make([]float64, h),
			h:     make([]float64, h),
		}
		for k := 0; k < h; k++ {
			s.i[k] = sigmoid(z[k])
			s.f[k] = sigmoid(z[h+k])
			s.g[k] = math.Tanh(z[2*h+k])
			s.o[k] = sigmoid(z[3*h+k])
			s.c[k] = s.f[k]*cPrev[k] + s.i[k]*s.g[k]
			s.tanhC[k] = math.Tanh(s.c[k])
			s.h[k] = s.o[k] * s.tanhC[k]
		}
		tr.steps[t] = s
		hPrev, cPrev = s.h, s.c
	}

	tr.dropped = append([]float64(nil), hPrev...)
	if training && r.cfg.Dropout > 0 {
		keep := 1 - r.cfg.Dropout
		tr.mask = make([]float64, h)
		for k := range tr.mask {
			if r.rng.Float64() >= r.cfg.Dropout {
				tr.mask[k] = 1 / keep
			}
		}
		floats.Mul(tr.dropped, tr.mask)
	}

	dn := r.cfg.DenseUnits
	tr.z1 = make([]float64, dn)
	tr.a1 = make([]float64, dn)
	for j := 0; j < dn; j++ {
		tr.z1[j] = r.b1.w[j] + floats.Dot(r.w1.row(j), tr.dropped)
		tr.a1[j] = math.Max(0, tr.z1[j])
	}
	tr.out = r.b2.w[0] + floats.Dot(r.w2.w, tr.a1)

	return tr
}

// backward accumulates parameter gradients for dLoss/dOut = dOut
func (r *LSTMRegressor) backward(tr *trace, dOut float64) {
	h := r.cfg.LSTMUnits
	dn := r.cfg.DenseUnits

	r.b2.g[0] += dOut
	floats.AddScaled(r.w2.g, dOut, tr.a1)

	dh := make([]float64, h)
	for j := 0; j < dn; j++ {
		if tr.z1[j] <= 0 {
			continue
		}
		dz1 := dOut * r.w2.w[j]
		r.b1.g[j] += dz1
		floats.AddScaled(r.w1.gradRow(j), dz1, tr.dropped)
		floats.AddScaled(dh, dz1, r.w1.row(j))
	}
	if tr.mask != nil {
		floats.Mul(dh, tr.mask)
	}

	dc := make([]float64, h)
	dz := make([]float64, 4*h)
	for t := len(tr.steps) - 1; t >= 0; t-- {
		s := tr.steps[t]
		for k := 0; k < h; k++ {
			dO := dh[k] * s.tanhC[k]
			dC := dc[k] + dh[k]*s.o[k]*(1-s.tanhC[k]*s.tanhC[k])

			dz[k] = dC * s.g[k] * s.i[k] * (1 - s.i[k])
			dz[h+k] = dC * s.cPrev[k] * s.f[k] * (1 - s.f[k])
			dz[2*h+k] = dC * s.i[k] * (1 - s.g[k]*s.g[k])
			dz[3*h+k] = dO * s.o[k] * (1 - s.o[k])

			dc[k] = dC * s.f[k]
		}

		clear(dh)
		for k, d := range dz {
			if d == 0 {
				continue
			}
			r.b.g[k] += d
			floats.AddScaled(r.wx.gradRow(k), d, s.x)
			floats.AddScaled(r.wh.gradRow(k), d, s.hPrev)
			floats.AddScaled(dh, d, r.wh.row(k))
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
