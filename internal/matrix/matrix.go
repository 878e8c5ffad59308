// Package matrix implements the small dense matrix used by the coordinate
// transform. Values are immutable: every operation returns a new Matrix.
package matrix

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrSizeMismatch is returned when operand shapes are incompatible with the operation.
	ErrSizeMismatch = errors.New("matrix: size mismatch")

	// ErrSingularMatrix is returned when inverting a matrix whose determinant is zero.
	ErrSingularMatrix = errors.New("matrix: singular matrix")
)

// Matrix is a rectangular grid of real numbers stored row-major.
type Matrix struct {
	rows, cols int
	data       []float64
}

// New builds a matrix from its rows. All rows must have the same, non-zero length.
func New(rows [][]float64) (Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Matrix{}, fmt.Errorf("new: empty entries: %w", ErrSizeMismatch)
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Matrix{}, fmt.Errorf("new: row %d has %d entries, want %d: %w", i, len(row), cols, ErrSizeMismatch)
		}
		data = append(data, row...)
	}

	return Matrix{rows: len(rows), cols: cols, data: data}, nil
}

// Vector returns the column vector [u, v]ᵗ.
func Vector(u, v float64) Matrix {
	return Matrix{rows: 2, cols: 1, data: []float64{u, v}}
}

// Diagonal returns the 2×2 matrix with k on the diagonal.
func Diagonal(k float64) Matrix {
	return Matrix{rows: 2, cols: 2, data: []float64{k, 0, 0, k}}
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := Matrix{rows: n, cols: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Rows returns the number of rows.
func (m Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m Matrix) Cols() int { return m.cols }

// At returns the (i, j) entry, indexed from zero. It panics when out of range.
func (m Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range for %dx%d", i, j, m.rows, m.cols))
	}
	return m.data[i*m.cols+j]
}

// Multiply returns m·a.
func (m Matrix) Multiply(a Matrix) (Matrix, error) {
	if m.cols != a.rows {
		return Matrix{}, fmt.Errorf("multiply %dx%d by %dx%d: %w", m.rows, m.cols, a.rows, a.cols, ErrSizeMismatch)
	}

	out := Matrix{rows: m.rows, cols: a.cols, data: make([]float64, m.rows*a.cols)}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < a.cols; j++ {
			var sum float64
			for k := 0; k < m.cols; k++ {
				sum += m.data[i*m.cols+k] * a.data[k*a.cols+j]
			}
			out.data[i*out.cols+j] = sum
		}
	}
	return out, nil
}

// Add returns m + a.
func (m Matrix) Add(a Matrix) (Matrix, error) {
	return m.combine(a, 1, "add")
}

// Subtract returns m - a.
func (m Matrix) Subtract(a Matrix) (Matrix, error) {
	return m.combine(a, -1, "subtract")
}

func (m Matrix) combine(a Matrix, sign float64, op string) (Matrix, error) {
	if m.rows != a.rows || m.cols != a.cols {
		return Matrix{}, fmt.Errorf("%s %dx%d and %dx%d: %w", op, m.rows, m.cols, a.rows, a.cols, ErrSizeMismatch)
	}

	out := Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i := range m.data {
		out.data[i] = m.data[i] + sign*a.data[i]
	}
	return out, nil
}

// Scale returns k·m.
func (m Matrix) Scale(k float64) Matrix {
	out := Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	for i, v := range m.data {
		out.data[i] = k * v
	}
	return out
}

// Norm returns the Euclidean norm of a column vector.
func (m Matrix) Norm() (float64, error) {
	if m.cols != 1 {
		return 0, fmt.Errorf("norm of %dx%d: %w", m.rows, m.cols, ErrSizeMismatch)
	}

	var squares float64
	for _, v := range m.data {
		squares += v * v
	}
	return math.Sqrt(squares), nil
}

// Determinant returns the determinant of a 2×2 matrix.
func (m Matrix) Determinant() (float64, error) {
	if m.rows != 2 || m.cols != 2 {
		return 0, fmt.Errorf("determinant of %dx%d: %w", m.rows, m.cols, ErrSizeMismatch)
	}
	return m.data[0]*m.data[3] - m.data[1]*m.data[2], nil
}

// Inverse returns the inverse of a 2×2 matrix.
func (m Matrix) Inverse() (Matrix, error) {
	det, err := m.Determinant()
	if err != nil {
		return Matrix{}, err
	}
	if det == 0 {
		return Matrix{}, fmt.Errorf("inverse: %w", ErrSingularMatrix)
	}

	// 0 - x rather than -x so zero entries stay +0.
	adj := Matrix{rows: 2, cols: 2, data: []float64{
		m.data[3], 0 - m.data[1],
		0 - m.data[2], m.data[0],
	}}
	return adj.Scale(1 / det), nil
}

// String formats the matrix as space-separated rows, one per line.
func (m Matrix) String() string {
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(m.data[i*m.cols+j], 'g', -1, 64))
		}
	}
	return b.String()
}
