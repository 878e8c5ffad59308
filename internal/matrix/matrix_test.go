package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/matrix"
)

func mustNew(t *testing.T, rows [][]float64) matrix.Matrix {
	t.Helper()
	m, err := matrix.New(rows)
	require.NoError(t, err)
	return m
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := matrix.New([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)

	_, err = matrix.New(nil)
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
}

func TestMultiplyIdentityByVector(t *testing.T) {
	id := mustNew(t, [][]float64{{1, 0}, {0, 1}})
	v := mustNew(t, [][]float64{{3}, {4}})

	got, err := id.Multiply(v)
	require.NoError(t, err)
	require.Equal(t, 2, got.Rows())
	require.Equal(t, 1, got.Cols())
	require.Equal(t, 3.0, got.At(0, 0))
	require.Equal(t, 4.0, got.At(1, 0))
}

func TestMultiplyGeneral(t *testing.T) {
	a := mustNew(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	b := mustNew(t, [][]float64{{7, 8}, {9, 10}, {11, 12}})

	got, err := a.Multiply(b)
	require.NoError(t, err)
	require.Equal(t, "58 64\n139 154", got.String())

	_, err = a.Multiply(a)
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
}

func TestAddSubtract(t *testing.T) {
	a := mustNew(t, [][]float64{{1, 2}, {3, 4}})
	b := mustNew(t, [][]float64{{4, 3}, {2, 1}})

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, "5 5\n5 5", sum.String())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	require.Equal(t, "-3 -1\n1 3", diff.String())

	_, err = a.Add(matrix.Vector(1, 2))
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
	_, err = a.Subtract(matrix.Vector(1, 2))
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
}

func TestScaleLeavesReceiverUnchanged(t *testing.T) {
	a := mustNew(t, [][]float64{{1, -2}})
	scaled := a.Scale(3)

	require.Equal(t, "3 -6", scaled.String())
	require.Equal(t, "1 -2", a.String())
}

func TestNorm(t *testing.T) {
	n, err := matrix.Vector(3, 4).Norm()
	require.NoError(t, err)
	require.InDelta(t, 5.0, n, 1e-12)

	_, err = matrix.Identity(2).Norm()
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
}

func TestDeterminantAndInverse(t *testing.T) {
	a := mustNew(t, [][]float64{{4, 7}, {2, 6}})

	det, err := a.Determinant()
	require.NoError(t, err)
	require.InDelta(t, 10.0, det, 1e-12)

	inv, err := a.Inverse()
	require.NoError(t, err)
	prod, err := a.Multiply(inv)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			require.InDelta(t, matrix.Identity(2).At(i, j), prod.At(i, j), 1e-12)
		}
	}
}

func TestInverseOfIdentityIsIdentity(t *testing.T) {
	inv, err := matrix.Identity(2).Inverse()
	require.NoError(t, err)
	require.Equal(t, matrix.Identity(2).String(), inv.String())
}

func TestInverseSingular(t *testing.T) {
	zero := mustNew(t, [][]float64{{0, 0}, {0, 0}})
	_, err := zero.Inverse()
	require.ErrorIs(t, err, matrix.ErrSingularMatrix)
}

func TestDeterminantRequiresTwoByTwo(t *testing.T) {
	_, err := matrix.Identity(3).Determinant()
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)

	_, err = matrix.Vector(1, 2).Inverse()
	require.ErrorIs(t, err, matrix.ErrSizeMismatch)
}
