// Package sequence turns scaled row matrices into fixed-length windows and
// splits them temporally.
package sequence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultSeqLength    = 5
	DefaultTestFraction = 0.2
)

var (
	ErrInvalidLength   = errors.New("window length must be positive")
	ErrRowMismatch     = errors.New("feature and target row counts differ")
	ErrInvalidFraction = errors.New("test fraction must be in [0,1)")
)

// Set is an ordered list of windows aligned by index with their targets.
type Set struct {
	Windows []*mat.Dense
	Targets []float64
}

// Len returns the number of (window, target) pairs.
func (s Set) Len() int {
	return len(s.Windows)
}

// Build emits, for every start index i in [0, rows-L), the window X[i:i+L]
// paired with the target y[i+L]. The result is empty when rows <= L.
// Windows are copies and do not alias X.
func Build(x, y mat.Matrix, seqLength int) (Set, error) {
	if seqLength < 1 {
		return Set{}, ErrInvalidLength
	}

	rows, cols := x.Dims()
	yRows, _ := y.Dims()
	if rows != yRows {
		return Set{}, fmt.Errorf("%w: %d vs %d", ErrRowMismatch, rows, yRows)
	}

	n := rows - seqLength
	if n <= 0 {
		return Set{}, nil
	}

	set := Set{
		Windows: make([]*mat.Dense, n),
		Targets: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		w := mat.NewDense(seqLength, cols, nil)
		for t := 0; t < seqLength; t++ {
			for j := 0; j < cols; j++ {
				w.Set(t, j, x.At(i+t, j))
			}
		}
		set.Windows[i] = w
		set.Targets[i] = y.At(i+seqLength, 0)
	}
	return set, nil
}

// Split keeps the first ceil((1-testFraction)*N) pairs for training and the
// rest for testing. Order is preserved so no future row leaks into training.
func Split(set Set, testFraction float64) (train, test Set, err error) {
	if testFraction < 0 || testFraction >= 1 || math.IsNaN(testFraction) {
		return Set{}, Set{}, fmt.Errorf("%w: %v", ErrInvalidFraction, testFraction)
	}

	n := set.Len()
	// The epsilon absorbs float error such as 0.8*10 = 8.000000000000002.
	nTrain := int(math.Ceil((1-testFraction)*float64(n) - 1e-9))
	if nTrain > n {
		nTrain = n
	}

	train = Set{Windows: set.Windows[:nTrain:nTrain], Targets: set.Targets[:nTrain:nTrain]}
	test = Set{Windows: set.Windows[nTrain:], Targets: set.Targets[nTrain:]}
	return train, test, nil
}
