// Package preprocess holds the min-max scaling applied to features and targets.
package preprocess

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted      = errors.New("scaler has not been fitted")
	ErrColumnMismatch = errors.New("column count does not match fitted data")
)

// MinMaxScaler maps each column linearly onto [0,1] using the column
// minimum and maximum seen at fit time. Once fitted it is never refit.
//
// A constant column (max == min) is left unguarded: transforms divide by
// zero and yield NaN (or ±Inf for values off the constant).
type MinMaxScaler struct {
	name string
	min  []float64
	max  []float64
}

// NewMinMaxScaler creates an unfitted scaler. The name only labels log output.
func NewMinMaxScaler(name string) *MinMaxScaler {
	return &MinMaxScaler{name: name}
}

// Fit records per-column min and max over all rows of data.
func (s *MinMaxScaler) Fit(data mat.Matrix) error {
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("failed to fit %s scaler: empty data", s.name)
	}

	mins := make([]float64, cols)
	maxs := make([]float64, cols)
	for j := 0; j < cols; j++ {
		mins[j] = data.At(0, j)
		maxs[j] = data.At(0, j)
		for i := 1; i < rows; i++ {
			v := data.At(i, j)
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}

	s.min = mins
	s.max = maxs

	for _, col := range s.Degenerate() {
		slog.Warn("Scaler: constant column, transform will produce NaN",
			"scaler", s.name, "column", col, "value", mins[col])
	}
	return nil
}

// FitTransform fits the scaler on data and returns the scaled copy.
func (s *MinMaxScaler) FitTransform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(data); err != nil {
		return nil, err
	}
	return s.Transform(data)
}

// Transform applies the fitted mapping. Values outside the fit range map
// outside [0,1]; that is not an error.
func (s *MinMaxScaler) Transform(data mat.Matrix) (*mat.Dense, error) {
	if err := s.check(data); err != nil {
		return nil, err
	}

	out := mat.DenseCopyOf(data)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.min[j]) / (s.max[j] - s.min[j])
	}, out)
	return out, nil
}

// InverseTransform maps scaled values back to original units.
func (s *MinMaxScaler) InverseTransform(scaled mat.Matrix) (*mat.Dense, error) {
	if err := s.check(scaled); err != nil {
		return nil, err
	}

	out := mat.DenseCopyOf(scaled)
	out.Apply(func(_, j int, v float64) float64 {
		return v*(s.max[j]-s.min[j]) + s.min[j]
	}, out)
	return out, nil
}

// TransformRow scales a single row.
func (s *MinMaxScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("%w: empty row", ErrColumnMismatch)
	}
	out, err := s.Transform(mat.NewDense(1, len(row), append([]float64(nil), row...)))
	if err != nil {
		return nil, err
	}
	return out.RawRowView(0), nil
}

// InverseValue maps a single scaled value of column col back to original units.
func (s *MinMaxScaler) InverseValue(col int, v float64) (float64, error) {
	if !s.Fitted() {
		return 0, ErrNotFitted
	}
	if col < 0 || col >= len(s.min) {
		return 0, fmt.Errorf("%w: column %d of %d", ErrColumnMismatch, col, len(s.min))
	}
	return v*(s.max[col]-s.min[col]) + s.min[col], nil
}

// Fitted reports whether Fit has been called successfully.
func (s *MinMaxScaler) Fitted() bool {
	return s.min != nil
}

// Min returns a copy of the fitted per-column minimums.
func (s *MinMaxScaler) Min() []float64 {
	return append([]float64(nil), s.min...)
}

// Max returns a copy of the fitted per-column maximums.
func (s *MinMaxScaler) Max() []float64 {
	return append([]float64(nil), s.max...)
}

// Degenerate lists the columns whose min equals max.
func (s *MinMaxScaler) Degenerate() []int {
	var cols []int
	for j := range s.min {
		if s.min[j] == s.max[j] {
			cols = append(cols, j)
		}
	}
	return cols
}

func (s *MinMaxScaler) check(data mat.Matrix) error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	if _, cols := data.Dims(); cols != len(s.min) {
		return fmt.Errorf("%w: got %d, want %d", ErrColumnMismatch, cols, len(s.min))
	}
	return nil
}
