package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"manualqa/internal/util"
)

func TestCosineSymmetricAndBounded(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-3, 0.5, 2}
	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
	require.LessOrEqual(t, ab, 1.0)
	require.GreaterOrEqual(t, ab, -1.0)
}

func TestCosineSelfIsOne(t *testing.T) {
	a := []float32{0.3, -0.7, 12}
	got, err := Cosine(a, a)
	require.NoError(t, err)
	require.InDelta(t, 1.0, got, 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	got, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 0.0, got)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	require.ErrorIs(t, err, util.ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	zero := Normalize([]float32{0, 0})
	require.Equal(t, []float32{0, 0}, zero)
}

func TestLiteralRoundTrip(t *testing.T) {
	v := []float32{0.125, -1, 3.5}
	got, err := FromLiteral(ToLiteral(v))
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestFromLiteralRejectsGarbage(t *testing.T) {
	_, err := FromLiteral("0.1,0.2")
	require.Error(t, err)
	_, err = FromLiteral("[a,b]")
	require.Error(t, err)
}
