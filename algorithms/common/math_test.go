package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnMeans(t *testing.T) {
	got := ColumnMeans([][]float64{{1, 2, 3}, {3, 4, 5}})
	assert.Equal(t, []float64{2, 3, 4}, got)

	assert.Nil(t, ColumnMeans(nil))
	assert.Nil(t, ColumnMeans([][]float64{{1, 2}, {1}}))
}

func TestMeanAndFinite(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))

	assert.True(t, AllFinite([]float64{0, -1, 1e300}))
	assert.False(t, AllFinite([]float64{0, math.NaN()}))
	assert.False(t, AllFinite([]float64{math.Inf(-1)}))
}
