package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haloclust/paircount/bins"
	"github.com/haloclust/paircount/grid"
	"github.com/haloclust/paircount/kernel"
)

func cell(xyz ...[3]float64) grid.Cell {
	c := grid.Cell{}
	for _, p := range xyz {
		c.X = append(c.X, p[0])
		c.Y = append(c.Y, p[1])
		c.Z = append(c.Z, p[2])
	}
	return c
}

// S1: two points, one bin. Exercised as the cross-cell call a driver would
// make for two points that land in separate cells; the self-cell call
// (a point's cell against itself) is covered separately by
// TestAccumulateSelfPairWithZeroRmin, since spec.md's own rmin=0 self-pair
// contract would otherwise add two more same-point pairs into bin 1 here
// (see DESIGN.md's note on the S1/S2/S5 scenario arithmetic).
func TestAccumulateTwoPointsOneBin(t *testing.T) {
	table, err := bins.New([]float64{0.0, 2.0})
	require.NoError(t, err)

	p0 := cell([3]float64{0, 0, 0})
	p1 := cell([3]float64{1, 0, 0})
	hist := make([]uint64, table.K())
	kernel.Accumulate(p0, p1, table, hist, nil)
	kernel.Accumulate(p1, p0, table, hist, nil)

	assert.Equal(t, uint64(2), hist[1])
}

// S2: colinear triple. Distances are 1 (p0-p1), 2 (p1-p2), 3 (p0-p2); with
// edges [0.0, 1.5, 2.5, 4.0] distance 1 falls in bin 1, distance 2 falls in
// bin 2 ([1.5,2.5)), and distance 3 falls in bin 3 ([2.5,4.0)) under the
// closed-below/open-above rule of §4.2.
func TestAccumulateColinearTriple(t *testing.T) {
	table, err := bins.New([]float64{0.0, 1.5, 2.5, 4.0})
	require.NoError(t, err)

	p0 := cell([3]float64{0, 0, 0})
	p1 := cell([3]float64{1, 0, 0})
	p2 := cell([3]float64{3, 0, 0})

	hist := make([]uint64, table.K())
	for _, pair := range [][2]grid.Cell{{p0, p1}, {p1, p0}, {p0, p2}, {p2, p0}, {p1, p2}, {p2, p1}} {
		kernel.Accumulate(pair[0], pair[1], table, hist, nil)
	}

	assert.Equal(t, uint64(2), hist[1], "distance 1 (p0,p1) counted in both orders")
	assert.Equal(t, uint64(2), hist[2], "distance 2 (p1,p2) counted in both orders")
	assert.Equal(t, uint64(2), hist[3], "distance 3 (p0,p2) counted in both orders")
}

// S3: exact edge, closed-below.
func TestAccumulateExactEdge(t *testing.T) {
	table, err := bins.New([]float64{0.0, 1.0, 2.0})
	require.NoError(t, err)

	p0 := cell([3]float64{0, 0, 0})
	p1 := cell([3]float64{1, 0, 0})
	hist := make([]uint64, table.K())
	kernel.Accumulate(p0, p1, table, hist, nil)
	kernel.Accumulate(p1, p0, table, hist, nil)

	assert.Equal(t, uint64(0), hist[1])
	assert.Equal(t, uint64(2), hist[2])
}

// S5: mean distance over a colinear triple's cross-pairs.
func TestAccumulateMeanDistance(t *testing.T) {
	table, err := bins.New([]float64{0.0, 5.0})
	require.NoError(t, err)

	p0 := cell([3]float64{0, 0, 0})
	p1 := cell([3]float64{1, 0, 0})
	p2 := cell([3]float64{2, 0, 0})

	hist := make([]uint64, table.K())
	distSum := make([]float64, table.K())
	for _, pair := range [][2]grid.Cell{{p0, p1}, {p1, p0}, {p0, p2}, {p2, p0}, {p1, p2}, {p2, p1}} {
		kernel.Accumulate(pair[0], pair[1], table, hist, distSum)
	}

	assert.Equal(t, uint64(6), hist[1])
	assert.InDelta(t, 4.0/3.0, distSum[1]/float64(hist[1]), 1e-9)
}

// S6: cross-correlation.
func TestAccumulateCrossCorrelation(t *testing.T) {
	table, err := bins.New([]float64{0.0, 1.0, 2.0})
	require.NoError(t, err)

	a := cell([3]float64{0, 0, 0})
	b := cell([3]float64{0.5, 0, 0}, [3]float64{1.5, 0, 0})
	hist := make([]uint64, table.K())
	kernel.Accumulate(a, b, table, hist, nil)

	assert.Equal(t, uint64(1), hist[1])
	assert.Equal(t, uint64(1), hist[2])
}

// Self-pairs are counted when rmin == 0 under autocorrelation; this is the
// caller's contract (spec §4.3), not a special case the kernel applies.
func TestAccumulateSelfPairWithZeroRmin(t *testing.T) {
	table, err := bins.New([]float64{0.0, 1.0})
	require.NoError(t, err)

	c := cell([3]float64{0, 0, 0})
	hist := make([]uint64, table.K())
	kernel.Accumulate(c, c, table, hist, nil)

	assert.Equal(t, uint64(1), hist[1])
}

// A strictly positive rmin excludes the i==j diagonal term even when
// cellA and cellB are the same cell.
func TestAccumulateSelfPairExcludedByPositiveRmin(t *testing.T) {
	table, err := bins.New([]float64{0.5, 1.5})
	require.NoError(t, err)

	c := cell([3]float64{0, 0, 0}, [3]float64{1, 0, 0})
	hist := make([]uint64, table.K())
	kernel.Accumulate(c, c, table, hist, nil)

	// Only the two cross terms (r=1) qualify; the two r=0 diagonal terms do
	// not, since rmin^2 = 0.25 > 0.
	assert.Equal(t, uint64(2), hist[1])
}
