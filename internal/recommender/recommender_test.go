package recommender

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"plant-advisor/internal/ml"
	"plant-advisor/internal/models"
	"plant-advisor/internal/preprocess"
)

// scriptedSource replays a fixed list of draws.
type scriptedSource struct {
	values []float64
	next   int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// fakePredictor records every window and scores it with fn.
type fakePredictor struct {
	fn      func(w *mat.Dense) float64
	windows []*mat.Dense
	err     error
}

func (p *fakePredictor) Predict(windows []*mat.Dense) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]float64, len(windows))
	for i, w := range windows {
		p.windows = append(p.windows, mat.DenseCopyOf(w))
		out[i] = p.fn(w)
	}
	return out, nil
}

func fittedScalers(t *testing.T) (*preprocess.MinMaxScaler, *preprocess.MinMaxScaler) {
	t.Helper()
	features := preprocess.NewMinMaxScaler("features")
	require.NoError(t, features.Fit(mat.NewDense(2, 3, []float64{
		40, 50, 0,
		80, 90, 1,
	})))
	target := preprocess.NewMinMaxScaler("target")
	require.NoError(t, target.Fit(mat.NewDense(2, 1, []float64{0.4, 0.9})))
	return features, target
}

// peakScore rewards candidates near moisture 60, humidity 70, watering 0.5.
func peakScore(w *mat.Dense) float64 {
	r, _ := w.Dims()
	last := w.RawRowView(r - 1)
	return -math.Pow(last[0]-0.5, 2) - math.Pow(last[1]-0.5, 2) - math.Pow(last[2]-0.5, 2)
}

func TestRecommend_BestIsArgmaxOfTrials(t *testing.T) {
	features, target := fittedScalers(t)
	seed := uint64(2024)
	predictor := &fakePredictor{fn: peakScore}

	r := New(predictor, features, target, 5, DefaultConfig(), NewRandomSource(&seed))
	rec, err := r.Recommend(context.Background(), DefaultHistory())
	require.NoError(t, err)

	require.Len(t, rec.Trials, 100)
	require.Len(t, predictor.windows, 100)

	bestIdx := 0
	for i, trial := range rec.Trials {
		if trial.ScaledScore > rec.Trials[bestIdx].ScaledScore {
			bestIdx = i
		}
	}
	best := rec.Trials[bestIdx]
	assert.Equal(t, best.ScaledScore, rec.ScaledScore)
	assert.Equal(t, best.Candidate.Moisture, rec.Moisture)
	assert.Equal(t, best.Candidate.Humidity, rec.Humidity)
	assert.Equal(t, best.Candidate.Watering, rec.Watering)

	for _, trial := range rec.Trials {
		assert.LessOrEqual(t, trial.ScaledScore, rec.ScaledScore)
	}

	expected, err := target.InverseValue(0, rec.ScaledScore)
	require.NoError(t, err)
	assert.Equal(t, expected, rec.ExpectedHealth)
	assert.NotEqual(t, [16]byte{}, [16]byte(rec.RunID))
}

func TestRecommend_SamplingRanges(t *testing.T) {
	features, target := fittedScalers(t)
	seed := uint64(7)
	r := New(&fakePredictor{fn: peakScore}, features, target, 5, DefaultConfig(), NewRandomSource(&seed))

	rec, err := r.Recommend(context.Background(), DefaultHistory())
	require.NoError(t, err)

	for i, trial := range rec.Trials {
		c := trial.Candidate
		assert.True(t, c.Moisture >= 50 && c.Moisture <= 70, "trial %d moisture %v", i, c.Moisture)
		assert.True(t, c.Humidity >= 55 && c.Humidity <= 75, "trial %d humidity %v", i, c.Humidity)
		assert.True(t, c.Watering >= 0 && c.Watering <= 1, "trial %d watering %v", i, c.Watering)
	}
}

func TestRecommend_ScriptedDraws(t *testing.T) {
	features, target := fittedScalers(t)
	src := &scriptedSource{values: []float64{0, 0.5, 0.25}}
	cfg := DefaultConfig()
	cfg.NumSamples = 1

	r := New(&fakePredictor{fn: peakScore}, features, target, 5, cfg, src)
	rec, err := r.Recommend(context.Background(), DefaultHistory())
	require.NoError(t, err)

	assert.Equal(t, 50.0, rec.Moisture)
	assert.Equal(t, 65.0, rec.Humidity)
	assert.Equal(t, 0.25, rec.Watering)
}

func TestRecommend_TieKeepsFirst(t *testing.T) {
	features, target := fittedScalers(t)
	src := &scriptedSource{values: []float64{0.1, 0.2, 0.3, 0.9, 0.8, 0.7}}
	cfg := DefaultConfig()
	cfg.NumSamples = 2

	r := New(&fakePredictor{fn: func(*mat.Dense) float64 { return 0.5 }}, features, target, 5, cfg, src)
	rec, err := r.Recommend(context.Background(), DefaultHistory())
	require.NoError(t, err)

	assert.InDelta(t, 52.0, rec.Moisture, 1e-9)
	assert.InDelta(t, 59.0, rec.Humidity, 1e-9)
	assert.InDelta(t, 0.3, rec.Watering, 1e-9)
	assert.InDelta(t, 0.65, rec.ExpectedHealth, 1e-12)
}

func TestRecommend_WindowSlidesHistory(t *testing.T) {
	features, target := fittedScalers(t)
	predictor := &fakePredictor{fn: peakScore}
	cfg := DefaultConfig()
	cfg.NumSamples = 1

	history := make([]models.Reading, 6)
	for i := range history {
		history[i] = models.Reading{Day: i + 1, Moisture: 40 + float64(i)*8, Humidity: 50, Watering: 0.5}
	}

	r := New(predictor, features, target, 5, cfg, &scriptedSource{values: []float64{0.5}})
	_, err := r.Recommend(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, predictor.windows, 1)
	w := predictor.windows[0]
	rows, cols := w.Dims()
	require.Equal(t, 5, rows)
	require.Equal(t, 3, cols)

	// Oldest two readings are dropped; rows 0-3 are readings 2-5.
	for step := 0; step < 4; step++ {
		want := (history[step+2].Moisture - 40) / 40
		assert.InDelta(t, want, w.At(step, 0), 1e-12, "step %d", step)
	}
	assert.InDelta(t, 0.5, w.At(4, 0), 1e-12, "candidate moisture 60 scales to 0.5")
}

func TestRecommend_ShortHistoryIsPadded(t *testing.T) {
	features, target := fittedScalers(t)
	predictor := &fakePredictor{fn: peakScore}
	cfg := DefaultConfig()
	cfg.NumSamples = 1

	r := New(predictor, features, target, 5, cfg, &scriptedSource{values: []float64{0.5}})
	_, err := r.Recommend(context.Background(), DefaultHistory())
	require.NoError(t, err)

	w := predictor.windows[0]
	for step := 0; step < 4; step++ {
		assert.InDelta(t, 0.625, w.At(step, 0), 1e-12)
		assert.InDelta(t, 0.75, w.At(step, 1), 1e-12)
		assert.InDelta(t, 0.6, w.At(step, 2), 1e-12)
	}
}

func TestRecommend_Errors(t *testing.T) {
	features, target := fittedScalers(t)
	src := &scriptedSource{values: []float64{0.5}}

	t.Run("empty history", func(t *testing.T) {
		r := New(&fakePredictor{fn: peakScore}, features, target, 5, DefaultConfig(), src)
		_, err := r.Recommend(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyHistory)
	})

	t.Run("no samples", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.NumSamples = 0
		r := New(&fakePredictor{fn: peakScore}, features, target, 5, cfg, src)
		_, err := r.Recommend(context.Background(), DefaultHistory())
		assert.ErrorIs(t, err, ErrNoSamples)
	})

	t.Run("all scores NaN", func(t *testing.T) {
		r := New(&fakePredictor{fn: func(*mat.Dense) float64 { return math.NaN() }}, features, target, 5, DefaultConfig(), src)
		_, err := r.Recommend(context.Background(), DefaultHistory())
		assert.ErrorIs(t, err, ErrNoCandidate)
	})

	t.Run("predictor failure", func(t *testing.T) {
		r := New(&fakePredictor{err: ml.ErrShapeMismatch}, features, target, 5, DefaultConfig(), src)
		_, err := r.Recommend(context.Background(), DefaultHistory())
		assert.True(t, errors.Is(err, ml.ErrShapeMismatch))
	})

	t.Run("unfitted scaler", func(t *testing.T) {
		r := New(&fakePredictor{fn: peakScore}, preprocess.NewMinMaxScaler("features"), target, 5, DefaultConfig(), src)
		_, err := r.Recommend(context.Background(), DefaultHistory())
		assert.ErrorIs(t, err, preprocess.ErrNotFitted)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := New(&fakePredictor{fn: peakScore}, features, target, 5, DefaultConfig(), src)
		_, err := r.Recommend(ctx, DefaultHistory())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRangeSample(t *testing.T) {
	r := Range{Min: 55, Max: 75}
	assert.Equal(t, 55.0, r.Sample(0))
	assert.Equal(t, 65.0, r.Sample(0.5))
	assert.InDelta(t, 75.0, r.Sample(0.9999999), 1e-4)
}
