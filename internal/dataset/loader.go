// Package dataset loads plant scenario tables and turns them into model matrices.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"plant-advisor/internal/models"
)

var (
	ErrNoFiles       = errors.New("no input files given")
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyDataset  = errors.New("dataset has no rows")
)

var requiredColumns = slices.Concat(
	[]string{models.ColumnDay},
	models.FeatureNames,
	[]string{models.ColumnPlantHealth},
)

// LoadFiles reads every file in order and concatenates their rows.
// Rows keep their per-file order and files are appended in the order given.
func LoadFiles(paths ...string) ([]models.Reading, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	var rows []models.Reading
	for _, path := range paths {
		fileRows, err := LoadCSV(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}

	slog.Info("Dataset: loaded scenario files", "files", len(paths), "rows", len(rows))
	return rows, nil
}

// LoadCSV reads a single scenario file.
func LoadCSV(path string) ([]models.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	slog.Debug("Dataset: loaded file", "path", path, "rows", len(rows))
	return rows, nil
}

// ReadCSV parses a scenario table with a header row. Columns are located by
// name, so their order does not matter and extra columns are ignored.
func ReadCSV(r io.Reader) ([]models.Reading, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var rows []models.Reading
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		reading, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, reading)
	}

	return rows, nil
}

func parseRecord(record []string, index map[string]int) (models.Reading, error) {
	var reading models.Reading

	day, err := strconv.ParseFloat(strings.TrimSpace(record[index[models.ColumnDay]]), 64)
	if err != nil {
		return reading, fmt.Errorf("invalid %s: %w", models.ColumnDay, err)
	}
	reading.Day = int(day)

	fields := []struct {
		name string
		dst  *float64
	}{
		{models.ColumnMoisture, &reading.Moisture},
		{models.ColumnHumidity, &reading.Humidity},
		{models.ColumnWatering, &reading.Watering},
		{models.ColumnPlantHealth, &reading.PlantHealth},
	}
	for _, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(record[index[field.name]]), 64)
		if err != nil {
			return reading, fmt.Errorf("invalid %s: %w", field.name, err)
		}
		*field.dst = value
	}

	return reading, nil
}

// Matrices converts rows into a feature matrix (rows x NumFeatures) and a
// target matrix (rows x 1).
func Matrices(rows []models.Reading) (*mat.Dense, *mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil, ErrEmptyDataset
	}

	features := make([]float64, 0, len(rows)*models.NumFeatures)
	targets := make([]float64, 0, len(rows))
	for _, row := range rows {
		features = append(features, row.Features()...)
		targets = append(targets, row.PlantHealth)
	}

	return mat.NewDense(len(rows), models.NumFeatures, features),
		mat.NewDense(len(rows), 1, targets), nil
}
