// Package recommender searches for the reading that maximizes predicted plant health.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"plant-advisor/internal/ml"
	"plant-advisor/internal/models"
	"plant-advisor/internal/preprocess"
)

var (
	ErrEmptyHistory = errors.New("history has no readings")
	ErrNoSamples    = errors.New("number of samples must be positive")
	ErrNoCandidate  = errors.New("no candidate produced a finite score")
)

// RandomSource yields uniform draws in [0,1).
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a seeded source, or a time-seeded one when seed is nil.
func NewRandomSource(seed *uint64) RandomSource {
	if seed == nil {
		now := uint64(time.Now().UnixNano())
		return rand.New(rand.NewPCG(now, now>>1))
	}
	return rand.New(rand.NewPCG(*seed, 0))
}

// Range is a half-open sampling interval [Min, Max)
type Range struct {
	Min float64
	Max float64
}

// Sample maps a uniform draw u in [0,1) onto the range.
func (r Range) Sample(u float64) float64 {
	return r.Min + (r.Max-r.Min)*u
}

// Config holds the search settings
type Config struct {
	NumSamples int
	Moisture   Range
	Humidity   Range
	Watering   Range
}

// DefaultConfig returns the search settings of the reference experiment
func DefaultConfig() Config {
	return Config{
		NumSamples: 100,
		Moisture:   Range{Min: 50, Max: 70},
		Humidity:   Range{Min: 55, Max: 75},
		Watering:   Range{Min: 0, Max: 1},
	}
}

// DefaultHistory is the stand-in for the current plant history used when
// no other history is supplied.
func DefaultHistory() []models.Reading {
	return []models.Reading{
		{Day: 1, Moisture: 65, Humidity: 80, Watering: 0.6, PlantHealth: 0.70},
	}
}

// Recommender runs a uniform random search over candidate readings. The
// scalers and predictor are shared read-only state fitted elsewhere.
type Recommender struct {
	predictor     ml.Predictor
	featureScaler *preprocess.MinMaxScaler
	targetScaler  *preprocess.MinMaxScaler
	seqLength     int
	cfg           Config
	rnd           RandomSource
}

// New creates a recommender bound to fitted scalers and a trained predictor
func New(
	predictor ml.Predictor,
	featureScaler *preprocess.MinMaxScaler,
	targetScaler *preprocess.MinMaxScaler,
	seqLength int,
	cfg Config,
	rnd RandomSource,
) *Recommender {
	return &Recommender{
		predictor:     predictor,
		featureScaler: featureScaler,
		targetScaler:  targetScaler,
		seqLength:     seqLength,
		cfg:           cfg,
		rnd:           rnd,
	}
}

// Recommend samples NumSamples candidates, appends each to the most recent
// seqLength-1 rows of history and keeps the one with the highest predicted
// score. Ties keep the earliest candidate.
func (r *Recommender) Recommend(ctx context.Context, history []models.Reading) (*models.Recommendation, error) {
	if r.cfg.NumSamples < 1 {
		return nil, ErrNoSamples
	}

	recent, err := r.contextRows(history)
	if err != nil {
		return nil, err
	}

	bestScore := math.Inf(-1)
	var best *models.Candidate
	trials := make([]models.Trial, 0, r.cfg.NumSamples)

	for n := 0; n < r.cfg.NumSamples; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("search interrupted after %d samples: %w", n, err)
		}

		candidate := models.Candidate{
			Moisture: r.cfg.Moisture.Sample(r.rnd.Float64()),
			Humidity: r.cfg.Humidity.Sample(r.rnd.Float64()),
			Watering: r.cfg.Watering.Sample(r.rnd.Float64()),
		}

		scaled, err := r.featureScaler.TransformRow(candidate.Features())
		if err != nil {
			return nil, fmt.Errorf("failed to scale candidate: %w", err)
		}

		window := mat.NewDense(r.seqLength, models.NumFeatures, nil)
		for t, row := range recent {
			window.SetRow(t, row)
		}
		window.SetRow(r.seqLength-1, scaled)

		scores, err := r.predictor.Predict([]*mat.Dense{window})
		if err != nil {
			return nil, fmt.Errorf("failed to score candidate: %w", err)
		}
		score := scores[0]

		trials = append(trials, models.Trial{Candidate: candidate, ScaledScore: score})
		if score > bestScore {
			bestScore = score
			c := candidate
			best = &c
		}
	}

	if best == nil {
		return nil, ErrNoCandidate
	}

	expected, err := r.targetScaler.InverseValue(0, bestScore)
	if err != nil {
		return nil, fmt.Errorf("failed to inverse-scale score: %w", err)
	}

	rec := &models.Recommendation{
		RunID:          uuid.New(),
		Timestamp:      time.Now(),
		Moisture:       best.Moisture,
		Humidity:       best.Humidity,
		Watering:       best.Watering,
		ExpectedHealth: expected,
		ScaledScore:    bestScore,
		Trials:         trials,
	}

	slog.Debug("Recommender: search finished",
		"samples", len(trials),
		"best_scaled", bestScore,
		"expected_health", expected)

	return rec, nil
}

// contextRows scales the last seqLength-1 history rows. Shorter histories
// are padded at the front by repeating their oldest row, so a one-row
// history still yields a full window instead of a shorter sequence or a
// shape error.
func (r *Recommender) contextRows(history []models.Reading) ([][]float64, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	need := r.seqLength - 1
	rows := make([][]float64, 0, need)
	if len(history) >= need {
		for _, reading := range history[len(history)-need:] {
			rows = append(rows, reading.Features())
		}
	} else {
		for i := 0; i < need-len(history); i++ {
			rows = append(rows, history[0].Features())
		}
		for _, reading := range history {
			rows = append(rows, reading.Features())
		}
	}

	for i, row := range rows {
		scaled, err := r.featureScaler.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to scale history: %w", err)
		}
		rows[i] = scaled
	}
	return rows, nil
}
