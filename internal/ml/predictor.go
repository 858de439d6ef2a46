// Package ml provides the plant-health predictor: a small LSTM regressor
// trained in-process on scaled reading windows.
package ml

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"

	"plant-advisor/internal/models"
	"plant-advisor/internal/sequence"
)

var (
	ErrShapeMismatch    = errors.New("input shape does not match trained window shape")
	ErrNotTrained       = errors.New("model has not been trained")
	ErrEmptyTrainingSet = errors.New("training set is empty")
)

// Predictor maps a batch of windows to a batch of scaled scores.
type Predictor interface {
	Predict(windows []*mat.Dense) ([]float64, error)
}

// Model is a Predictor that can be fitted once on a training set.
type Model interface {
	Predictor
	Fit(ctx context.Context, train, validation sequence.Set) (models.TrainingHistory, error)
}

// TrainConfig holds the network shape and optimizer settings
type TrainConfig struct {
	SeqLength    int
	NumFeatures  int
	LSTMUnits    int
	DenseUnits   int
	Dropout      float64 // Applied to the LSTM output during training only
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         uint64
}

// DefaultTrainConfig returns the settings of the reference experiment
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		SeqLength:    sequence.DefaultSeqLength,
		NumFeatures:  models.NumFeatures,
		LSTMUnits:    64,
		DenseUnits:   32,
		Dropout:      0.2,
		LearningRate: 0.001,
		Epochs:       40,
		BatchSize:    16,
		Seed:         42,
	}
}
