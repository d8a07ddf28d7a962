package bins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haloclust/paircount/bins"
)

func TestNewRejectsInvalidEdges(t *testing.T) {
	_, err := bins.New([]float64{1.0})
	assert.Error(t, err)

	_, err = bins.New([]float64{1.0, 1.0})
	assert.Error(t, err)

	_, err = bins.New([]float64{2.0, 1.0})
	assert.Error(t, err)

	_, err = bins.New([]float64{-1.0, 1.0})
	assert.Error(t, err)
}

func TestClassifyBoundary(t *testing.T) {
	// S3: exact edge resolves to the upper, closed-below bin.
	table, err := bins.New([]float64{0.0, 1.0, 2.0})
	assert.NoError(t, err)

	assert.Equal(t, bins.Out, table.Classify(-0.1))
	assert.Equal(t, 1, table.Classify(0.0))
	assert.Equal(t, 1, table.Classify(0.5))
	assert.Equal(t, 2, table.Classify(1.0))
	assert.Equal(t, 2, table.Classify(3.9))
	assert.Equal(t, bins.Out, table.Classify(4.0))
	assert.Equal(t, bins.Out, table.Classify(100.0))
}

func TestClassifyAndClassifyBinaryAgree(t *testing.T) {
	table, err := bins.New([]float64{0.0, 1.5, 2.5, 4.0, 6.0, 9.0})
	assert.NoError(t, err)

	for r2 := -1.0; r2 < 100.0; r2 += 0.37 {
		assert.Equal(t, table.Classify(r2), table.ClassifyBinary(r2), "mismatch at r2=%v", r2)
	}
}
