package linearmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func denseFromRows(rows [][]float64) *mat.Dense {
	n := 0
	if len(rows) > 0 {
		n = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*n)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), n, data)
}

func testModel(t *testing.T, model Model, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)

	c := model.Coef()
	assert.InDeltaSlice(t, coef, c, tol)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func TestPredictFeatureMismatch(t *testing.T) {
	_, err := predict(denseFromRows([][]float64{{1, 2, 3}}), 1.0, []float64{1, 2}, true)
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = predict(nil, 1.0, []float64{1}, true)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)

	res, err := predict(denseFromRows([][]float64{{1, 2}, {0, 1}}), 1.0, []float64{2, 3}, true)
	require.Nil(t, err)
	assert.Equal(t, []float64{9, 4}, res)
}
