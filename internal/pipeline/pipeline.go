// Package pipeline wires loading, scaling, windowing and training into a
// single fitted bundle that recommenders can share.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"plant-advisor/internal/dataset"
	"plant-advisor/internal/ml"
	"plant-advisor/internal/models"
	"plant-advisor/internal/preprocess"
	"plant-advisor/internal/recommender"
	"plant-advisor/internal/sequence"
	"plant-advisor/pkg/config"
)

// ModelFactory builds an untrained model for the given settings
type ModelFactory func(ml.TrainConfig) ml.Model

// NewLSTMModel is the default ModelFactory
func NewLSTMModel(cfg ml.TrainConfig) ml.Model {
	return ml.NewLSTMRegressor(cfg)
}

// Config combines the training settings with the temporal split fraction
type Config struct {
	Train        ml.TrainConfig
	TestFraction float64
	NewModel     ModelFactory // nil means NewLSTMModel
}

// DefaultConfig returns the settings of the reference experiment
func DefaultConfig() Config {
	return Config{
		Train:        ml.DefaultTrainConfig(),
		TestFraction: sequence.DefaultTestFraction,
		NewModel:     NewLSTMModel,
	}
}

// NewConfig builds pipeline settings from the application config
func NewConfig(cfg *config.Config) Config {
	return Config{
		Train: ml.TrainConfig{
			SeqLength:    cfg.SeqLength,
			NumFeatures:  models.NumFeatures,
			LSTMUnits:    cfg.LSTMUnits,
			DenseUnits:   cfg.DenseUnits,
			Dropout:      cfg.Dropout,
			LearningRate: cfg.LearningRate,
			Epochs:       cfg.Epochs,
			BatchSize:    cfg.BatchSize,
			Seed:         cfg.TrainSeed,
		},
		TestFraction: cfg.TestFraction,
		NewModel:     NewLSTMModel,
	}
}

// NewRecommenderConfig builds the search settings from the application config
func NewRecommenderConfig(cfg *config.Config) recommender.Config {
	return recommender.Config{
		NumSamples: cfg.NumSamples,
		Moisture:   recommender.Range{Min: cfg.MoistureMin, Max: cfg.MoistureMax},
		Humidity:   recommender.Range{Min: cfg.HumidityMin, Max: cfg.HumidityMax},
		Watering:   recommender.Range{Min: cfg.WateringMin, Max: cfg.WateringMax},
	}
}

// Fitted is the read-only result of a training run
type Fitted struct {
	FeatureScaler *preprocess.MinMaxScaler
	TargetScaler  *preprocess.MinMaxScaler
	Predictor     ml.Predictor
	History       models.TrainingHistory
	SeqLength     int
}

// Fit scales rows, builds windows, splits them in time order and trains a
// fresh model on the earlier part, validating on the held-out tail.
func Fit(ctx context.Context, rows []models.Reading, cfg Config) (*Fitted, error) {
	x, y, err := dataset.Matrices(rows)
	if err != nil {
		return nil, err
	}

	featureScaler := preprocess.NewMinMaxScaler("features")
	xScaled, err := featureScaler.FitTransform(x)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	targetScaler := preprocess.NewMinMaxScaler("target")
	yScaled, err := targetScaler.FitTransform(y)
	if err != nil {
		return nil, fmt.Errorf("failed to scale target: %w", err)
	}

	set, err := sequence.Build(xScaled, yScaled, cfg.Train.SeqLength)
	if err != nil {
		return nil, fmt.Errorf("failed to build windows: %w", err)
	}

	train, test, err := sequence.Split(set, cfg.TestFraction)
	if err != nil {
		return nil, fmt.Errorf("failed to split windows: %w", err)
	}

	slog.Info("Pipeline: prepared training data",
		"rows", len(rows),
		"windows", set.Len(),
		"train", train.Len(),
		"test", test.Len())

	trainCfg := cfg.Train
	trainCfg.NumFeatures = models.NumFeatures
	newModel := cfg.NewModel
	if newModel == nil {
		newModel = NewLSTMModel
	}
	model := newModel(trainCfg)

	history, err := model.Fit(ctx, train, test)
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}

	if final, ok := history.Final(); ok {
		slog.Info("Pipeline: training complete",
			"epochs", final.Epoch,
			"loss", final.Loss,
			"val_loss", final.ValLoss)
	}

	return &Fitted{
		FeatureScaler: featureScaler,
		TargetScaler:  targetScaler,
		Predictor:     model,
		History:       history,
		SeqLength:     trainCfg.SeqLength,
	}, nil
}

// FitFiles loads the CSV files in order and fits on their concatenation.
func FitFiles(ctx context.Context, paths []string, cfg Config) (*Fitted, error) {
	rows, err := dataset.LoadFiles(paths...)
	if err != nil {
		return nil, err
	}
	return Fit(ctx, rows, cfg)
}

// Recommender returns a recommender bound to this fitted bundle
func (f *Fitted) Recommender(cfg recommender.Config, src recommender.RandomSource) *recommender.Recommender {
	return recommender.New(f.Predictor, f.FeatureScaler, f.TargetScaler, f.SeqLength, cfg, src)
}
