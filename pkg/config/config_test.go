package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NotNil(t, cfg)

	assert.Len(t, cfg.DataFiles, 5)
	assert.Equal(t, "scenario1.csv", cfg.DataFiles[0])
	assert.Equal(t, 5, cfg.SeqLength)
	assert.Equal(t, 0.2, cfg.TestFraction)
	assert.Equal(t, 40, cfg.Epochs)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 100, cfg.NumSamples)
	assert.Equal(t, 50.0, cfg.MoistureMin)
	assert.Equal(t, 75.0, cfg.HumidityMax)
	assert.False(t, cfg.StoreResults)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATA_FILES", " a.csv, ,b.csv ")
	t.Setenv("EPOCHS", "3")
	t.Setenv("TEST_FRACTION", "0.25")
	t.Setenv("PUBLISH_RESULTS", "true")
	t.Setenv("NUM_SAMPLES", "not-a-number")
	t.Setenv("TRAIN_SEED", "18446744073709551615")

	cfg := Load()

	assert.Equal(t, []string{"a.csv", "b.csv"}, cfg.DataFiles)
	assert.Equal(t, 3, cfg.Epochs)
	assert.Equal(t, 0.25, cfg.TestFraction)
	assert.True(t, cfg.PublishResults)
	assert.Equal(t, 100, cfg.NumSamples, "invalid values fall back to the default")
	assert.Equal(t, uint64(18446744073709551615), cfg.TrainSeed)
}

func TestLoadNegativeSeedUsesDefault(t *testing.T) {
	t.Setenv("TRAIN_SEED", "-1")

	cfg := Load()
	assert.Equal(t, uint64(42), cfg.TrainSeed)
}

func TestSlogLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			cfg := &Config{LogLevel: tc.in}
			assert.Equal(t, tc.want, cfg.SlogLevel())
		})
	}
}
