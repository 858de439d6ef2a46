package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plant-advisor/internal/models"
)

func TestPrintRecommendation(t *testing.T) {
	var buf bytes.Buffer
	printRecommendation(&buf, &models.Recommendation{
		Moisture:       61.234,
		Humidity:       70.005,
		Watering:       0.4567,
		ExpectedHealth: 0.8149,
	})

	assert.Equal(t, "Suggested Moisture: 61.23\n"+
		"Suggested Humidity: 70.00\n"+
		"Suggested Watering: 0.46\n"+
		"Expected Health Score: 0.81\n", buf.String())
}

func TestPersistentPreRun_EnvWarningsUseTint(t *testing.T) {
	t.Setenv("TRAIN_SEED", "-3")
	t.Setenv("LOG_LEVEL", "error")

	var logs bytes.Buffer
	prevOutput, prevLogger := logOutput, slog.Default()
	logOutput = &logs
	t.Cleanup(func() {
		logOutput = prevOutput
		slog.SetDefault(prevLogger)
	})

	rootCmd.PersistentPreRun(rootCmd, nil)

	assert.Contains(t, logs.String(), "WRN")
	assert.Contains(t, logs.String(), "TRAIN_SEED")
	assert.Equal(t, uint64(42), cfg.TrainSeed)

	logs.Reset()
	slog.Warn("below the configured level")
	assert.Empty(t, logs.String())
}

func TestRecommendCommand(t *testing.T) {
	t.Setenv("EPOCHS", "2")
	t.Setenv("LSTM_UNITS", "4")
	t.Setenv("DENSE_UNITS", "4")
	t.Setenv("LOG_LEVEL", "error")

	var data []string
	for i := 1; i <= 5; i++ {
		data = append(data, filepath.Join("..", "..", "internal", "dataset", "testdata", "scenario"+strconv.Itoa(i)+".csv"))
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"recommend", "--data", strings.Join(data, ","), "--seed", "7"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	labels := []string{"Suggested Moisture", "Suggested Humidity", "Suggested Watering", "Expected Health Score"}
	bounds := [][2]float64{{50, 70}, {55, 75}, {0, 1}}
	for i, line := range lines {
		label, value, ok := strings.Cut(line, ": ")
		require.True(t, ok, line)
		assert.Equal(t, labels[i], label)

		v, err := strconv.ParseFloat(value, 64)
		require.NoError(t, err, line)
		if i < len(bounds) {
			assert.GreaterOrEqual(t, v, bounds[i][0], line)
			assert.LessOrEqual(t, v, bounds[i][1], line)
		}
	}
}
